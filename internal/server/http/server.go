package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/rzbill/flow/internal/linebuf"
	logpkg "github.com/rzbill/flow/pkg/log"
)

// Server exposes the live tail buffer over HTTP: JSON reads of the trailing
// lines plus an SSE stream for follow.
type Server struct {
	buf     *linebuf.Buffer
	input   string
	logger  logpkg.Logger
	srv     *http.Server
	lis     net.Listener
	started time.Time

	// defaultLines is returned by /v1/lines when no n parameter is given.
	defaultLines int

	readyFn func(addr string)
}

// New builds a Server over the given buffer. input is reported in stats.
func New(buf *linebuf.Buffer, input string, defaultLines int, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger().WithComponent("http")
	}
	if defaultLines <= 0 {
		defaultLines = 10
	}
	mux := http.NewServeMux()
	s := &Server{
		buf:          buf,
		input:        input,
		logger:       logger,
		srv:          &http.Server{Handler: cors(mux)},
		started:      time.Now(),
		defaultLines: defaultLines,
	}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/lines", s.handleLines)
	mux.HandleFunc("/v1/search", s.handleSearch)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/v1/stream", s.handleStreamSSE)
	return s
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	if s.readyFn != nil {
		s.readyFn(l.Addr().String())
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Addr returns the bound listener address, or empty before ListenAndServe.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// Close force-closes the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// NotifyReady registers fn to be called with the bound address once the
// listener is accepting. Must be set before ListenAndServe.
func (s *Server) NotifyReady(fn func(addr string)) { s.readyFn = fn }

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// lineJSON is the wire form of a buffered line.
type lineJSON struct {
	Seq  uint64 `json:"seq"`
	TsMs int64  `json:"ts_ms"`
	Text string `json:"text"`
}

func toLineJSON(ln linebuf.Line) lineJSON {
	return lineJSON{Seq: ln.Seq, TsMs: ln.TimeMs, Text: ln.Text}
}

func (s *Server) handleLines(w http.ResponseWriter, r *http.Request) {
	n := s.defaultLines
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	lines := s.buf.LastN(n)
	out := make([]lineJSON, 0, len(lines))
	for _, ln := range lines {
		out = append(out, toLineJSON(ln))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"lines": out})
}

// handleSearch scans the buffer with a regular expression and returns the
// matching lines with their match byte offsets.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing q", http.StatusBadRequest)
		return
	}
	re, err := regexp.Compile(q)
	if err != nil {
		http.Error(w, "invalid q: "+err.Error(), http.StatusBadRequest)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	type matchJSON struct {
		lineJSON
		Offsets [][]int `json:"offsets"`
	}
	matches := s.buf.Search(re, limit)
	out := make([]matchJSON, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchJSON{lineJSON: toLineJSON(m.Line), Offsets: m.Offsets})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"matches": out})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.buf.Stats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"input":     s.input,
		"uptime_ms": time.Since(s.started).Milliseconds(),
		"len":       st.Len,
		"max":       st.Max,
		"appended":  st.Appended,
		"evicted":   st.Evicted,
		"last_seq":  st.LastSeq,
	})
}
