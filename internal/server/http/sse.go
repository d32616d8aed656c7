package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// sseSink writes server-sent events and flushes after each one.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter) (*sseSink, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseSink{w: w, flusher: flusher}, true
}

func (s *sseSink) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// handleStreamSSE streams buffered lines as they arrive. ?replay=n seeds the
// stream with up to n trailing lines before switching to live follow.
func (s *Server) handleStreamSSE(w http.ResponseWriter, r *http.Request) {
	replay := 0
	if v := r.URL.Query().Get("replay"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid replay", http.StatusBadRequest)
			return
		}
		replay = n
	}

	sink, ok := newSSESink(w)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	next := s.buf.LastSeq() + 1
	for _, ln := range s.buf.LastN(replay) {
		if err := sink.send(toLineJSON(ln)); err != nil {
			return
		}
		next = ln.Seq + 1
	}

	ctx := r.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		lines := s.buf.ReadFrom(next, 128)
		if len(lines) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				if err := sink.comment("heartbeat"); err != nil {
					return
				}
			default:
			}
			if !s.buf.WaitForAppend(250 * time.Millisecond) {
				continue
			}
			continue
		}
		for _, ln := range lines {
			if err := sink.send(toLineJSON(ln)); err != nil {
				return
			}
			next = ln.Seq + 1
		}
	}
}
