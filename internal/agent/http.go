package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/antonajp/ai4joy-sub003/internal/audio"
	"github.com/antonajp/ai4joy-sub003/internal/reliability"
)

// HTTPRuntime speaks a neutral NDJSON streaming protocol to an agent
// runtime endpoint: one JSON object per line, either an audio chunk or a
// control signal.
type HTTPRuntime struct {
	url          string
	frameSamples int
	client       *http.Client
}

type wireEvent struct {
	Type        string `json:"type"`
	PCM16Base64 string `json:"pcm16_base64,omitempty"`
	Code        string `json:"code,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

func NewHTTPRuntime(url string, frameSamples int) *HTTPRuntime {
	if frameSamples <= 0 {
		frameSamples = 320
	}
	return &HTTPRuntime{
		url:          strings.TrimSpace(url),
		frameSamples: frameSamples,
		// No client-level timeout: each invocation is bounded by its ctx,
		// and a fixed timeout would cut long turns mid-stream.
		client: &http.Client{},
	}
}

func (r *HTTPRuntime) Invoke(ctx context.Context, req InvokeRequest) (<-chan Event, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	res, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		res.Body.Close()
		return nil, fmt.Errorf("agent runtime status %d: %s", res.StatusCode, string(body))
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)
		defer res.Body.Close()

		scanner := bufio.NewScanner(res.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var we wireEvent
			if err := json.Unmarshal([]byte(line), &we); err != nil {
				emit(ctx, out, Event{
					Type:   EventError,
					Code:   "malformed_stream_line",
					Detail: err.Error(),
				})
				return
			}
			switch we.Type {
			case "audio":
				pcm, err := base64.StdEncoding.DecodeString(we.PCM16Base64)
				if err != nil {
					emit(ctx, out, Event{
						Type:   EventError,
						Code:   "malformed_audio_chunk",
						Detail: err.Error(),
					})
					return
				}
				if !emit(ctx, out, Event{Type: EventAudio, Frame: audio.FromPCM16LE(pcm)}) {
					return
				}
			case "end_turn":
				emit(ctx, out, Event{Type: EventEndTurn})
				return
			case "error":
				emit(ctx, out, Event{
					Type:      EventError,
					Code:      we.Code,
					Detail:    we.Detail,
					Retryable: reliability.IsRetryableAgentCode(we.Code),
				})
				return
			}
		}
		if err := scanner.Err(); err != nil {
			emit(ctx, out, Event{
				Type:      EventError,
				Code:      "stream_read_failed",
				Detail:    err.Error(),
				Retryable: true,
			})
		}
	}()
	return out, nil
}

func emit(ctx context.Context, out chan<- Event, e Event) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- e:
		return true
	}
}
