package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/antonajp/ai4joy-sub003/internal/admission"
	"github.com/antonajp/ai4joy-sub003/internal/audio"
	"github.com/antonajp/ai4joy-sub003/internal/config"
	"github.com/antonajp/ai4joy-sub003/internal/observability"
	"github.com/antonajp/ai4joy-sub003/internal/protocol"
	"github.com/antonajp/ai4joy-sub003/internal/session"
)

// fakeOrchestrator scripts the coordinator surface for handler tests.
type fakeOrchestrator struct {
	sessions   *session.Manager
	decision   admission.Decision
	endCalls   []string
	previewErr error
}

func (f *fakeOrchestrator) StartSession(ctx context.Context, userID string) (*session.Session, *admission.Decision, error) {
	if !f.decision.Granted {
		d := f.decision
		return nil, &d, nil
	}
	s := f.sessions.Create(userID)
	d := f.decision
	return s, &d, nil
}

func (f *fakeOrchestrator) EndSession(sessionID string) error {
	if _, err := f.sessions.Close(sessionID); err != nil {
		return err
	}
	f.endCalls = append(f.endCalls, sessionID)
	return nil
}

func (f *fakeOrchestrator) RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			if _, isControl := msg.(protocol.ClientControl); isControl {
				outbound <- protocol.SystemEvent{
					Type:      protocol.TypeSystemEvent,
					SessionID: s.ID,
					Code:      "control_received",
				}
			}
		}
	}
}

func (f *fakeOrchestrator) PreviewMix(ctx context.Context, primaryText, ambientText string) ([]byte, error) {
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	return audio.EncodeWAV([]audio.Frame{audio.Silence(320)}, 16000)
}

func newTestServer(t *testing.T, granted bool) (*Server, *fakeOrchestrator) {
	t.Helper()
	cfg := config.Config{SessionInactivityTimeout: 2 * time.Minute, AllowAnyOrigin: false}
	sessions := session.NewManager(time.Minute, time.Minute)
	metrics := observability.NewMetricsWithRegistry("test", prometheus.NewRegistry())
	fake := &fakeOrchestrator{sessions: sessions, decision: admission.Decision{Granted: granted}}
	if !granted {
		fake.decision.Reason = admission.ReasonDailyLimit
		retry := 600
		fake.decision.RetryAfter = &retry
	}
	return New(cfg, sessions, fake, metrics), fake
}

func TestCreateSessionGranted(t *testing.T) {
	srv, _ := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"user_id":"u1"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	var resp session.CreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" || resp.UserID != "u1" || resp.Phase != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.InactivityTTLMS != (2 * time.Minute).Milliseconds() {
		t.Fatalf("InactivityTTLMS = %d, want %d", resp.InactivityTTLMS, (2 * time.Minute).Milliseconds())
	}
}

func TestCreateSessionDeniedReturns429(t *testing.T) {
	srv, _ := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"user_id":"u1"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	var decision admission.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("decode decision: %v", err)
	}
	if decision.Granted || decision.Reason != admission.ReasonDailyLimit {
		t.Fatalf("decision = %+v, want daily_limit denial", decision)
	}
	if decision.RetryAfter == nil || *decision.RetryAfter != 600 {
		t.Fatalf("RetryAfter = %v, want 600", decision.RetryAfter)
	}
}

func TestCreateSessionRequiresUserID(t *testing.T) {
	srv, _ := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetSession(t *testing.T) {
	srv, fake := newTestServer(t, true)
	s := fake.sessions.Create("u1")

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+s.ID, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/missing", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown session", rec.Code)
	}
}

func TestEndSession(t *testing.T) {
	srv, fake := newTestServer(t, true)
	s := fake.sessions.Create("u1")

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+s.ID+"/end", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if len(fake.endCalls) != 1 || fake.endCalls[0] != s.ID {
		t.Fatalf("endCalls = %v, want [%s]", fake.endCalls, s.ID)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second end status = %d, want 404", rec.Code)
	}
}

func TestMixPreviewReturnsWAV(t *testing.T) {
	srv, _ := newTestServer(t, true)

	body := strings.NewReader(`{"primary_text":"hello","ambient_text":"aside"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/mix/preview", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("Content-Type = %q, want audio/wav", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("RIFF")) {
		t.Fatalf("preview body is not a WAV file")
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, true)
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestWebsocketControlRoundTrip(t *testing.T) {
	srv, fake := newTestServer(t, true)
	s := fake.sessions.Create("u1")

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/ws?session_id=" + s.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	msg := `{"type":"client_control","session_id":"` + s.ID + `","action":"commit"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt protocol.SystemEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read: %v", err)
	}
	if evt.Code != "control_received" || evt.SessionID != s.ID {
		t.Fatalf("event = %+v, want control_received for %s", evt, s.ID)
	}
}

func TestWebsocketRejectsUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t, true)
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/ws?session_id=missing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestWebsocketRejectsCrossOrigin(t *testing.T) {
	srv, fake := newTestServer(t, true)
	s := fake.sessions.Create("u1")

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/ws?session_id=" + s.ID
	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		t.Fatalf("cross-origin dial should fail")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}
