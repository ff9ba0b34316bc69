// Package server exposes the tokenizer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/example/go-nbtok/internal/config"
	"github.com/example/go-nbtok/internal/freq"
	"github.com/example/go-nbtok/internal/text"
	"github.com/example/go-nbtok/internal/tokenizer"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// offsetTokenizer is implemented by tokenizers that can report where each
// token starts and ends.
type offsetTokenizer interface {
	All(text string) iter.Seq[tokenizer.Token]
}

// FrequencyStore persists token counts. It is satisfied by *store.Store.
type FrequencyStore interface {
	Add(ctx context.Context, counts freq.Counts) error
	Top(ctx context.Context, n int) ([]freq.Entry, error)
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	normalize      bool
	backend        string
	store          FrequencyStore
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextBytes:   1 << 20,
		workers:        4,
		requestTimeout: 30 * time.Second,
		normalize:      true,
		backend:        tokenizer.BackendNorwegian,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum allowed text length in bytes.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent tokenize calls. Zero
// disables the limit.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithNormalize toggles line-ending and NFC normalisation of request text.
// Offsets are reported against the normalised text.
func WithNormalize(on bool) Option {
	return func(o *options) { o.normalize = on }
}

// WithBackend sets the backend name reported by /health.
func WithBackend(name string) Option {
	return func(o *options) { o.backend = name }
}

// WithStore enables persistence of counts posted to /frequencies and the
// GET /frequencies listing.
func WithStore(s FrequencyStore) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	tok  tokenizer.Tokenizer
	opts options
	sem  chan struct{} // semaphore for worker pool
	log  *slog.Logger
}

// NewHandler returns an http.Handler that serves GET /health, POST /tokenize
// and GET|POST /frequencies.
func NewHandler(tok tokenizer.Tokenizer, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		tok:  tok,
		opts: opts,
		log:  opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/tokenize", h.handleTokenize)
	mux.HandleFunc("/frequencies", h.handleFrequencies)

	return withRequestID(mux)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
		"backend": h.opts.backend,
	})
}

type tokenizeRequest struct {
	Text      string `json:"text"`
	Offsets   bool   `json:"offsets"`
	Sentences bool   `json:"sentences"`
}

type tokenOffset struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Kind  string `json:"kind"`
}

type tokenizeResponse struct {
	tokenizer.Tokens
	Offsets   []tokenOffset `json:"offsets,omitempty"`
	Sentences [][]string    `json:"sentences,omitempty"`
}

func (h *handler) handleTokenize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req tokenizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Offsets {
		if _, ok := h.tok.(offsetTokenizer); !ok {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("backend %s does not report offsets", h.opts.backend))
			return
		}
	}

	var resp tokenizeResponse

	err := h.run(w, r, len(req.Text), func() {
		input := h.prepare(req.Text)

		if req.Offsets {
			resp.Offsets = []tokenOffset{}
			list := []string{}
			for tok := range h.tok.(offsetTokenizer).All(input) {
				list = append(list, tok.Text)
				resp.Offsets = append(resp.Offsets, tokenOffset{
					Text: tok.Text, Start: tok.Start, End: tok.End, Kind: tok.Kind.String(),
				})
			}
			resp.Tokens = tokenizer.TokensOf(list)
		} else {
			resp.Tokens = tokenizer.TokensOf(h.tok.Tokenize(input))
		}

		if req.Sentences {
			resp.Sentences = text.Sentences(resp.List)
		}
	})
	if err != nil {
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type frequenciesRequest struct {
	Text               string `json:"text"`
	Lowercase          bool   `json:"lowercase"`
	WithoutPunctuation bool   `json:"without_punctuation"`
}

type frequenciesResponse struct {
	Tokens   int          `json:"tokens"`
	Distinct int          `json:"distinct"`
	Top      []freq.Entry `json:"top"`
	Stored   bool         `json:"stored"`
}

func (h *handler) handleFrequencies(w http.ResponseWriter, r *http.Request) {
	top, err := parseTop(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.listFrequencies(w, r, top)
	case http.MethodPost:
		h.countFrequencies(w, r, top)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *handler) listFrequencies(w http.ResponseWriter, r *http.Request, top int) {
	if h.opts.store == nil {
		writeError(w, http.StatusNotFound, "no frequency store configured")
		return
	}

	entries, err := h.opts.store.Top(r.Context(), top)
	if err != nil {
		h.log.ErrorContext(r.Context(), "read frequencies failed",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "read frequencies failed")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) countFrequencies(w http.ResponseWriter, r *http.Request, top int) {
	var req frequenciesRequest
	if !h.decode(w, r, &req) {
		return
	}

	var opts []freq.Option
	if req.Lowercase {
		opts = append(opts, freq.WithLowercase())
	}
	if req.WithoutPunctuation {
		opts = append(opts, freq.WithoutPunctuation())
	}

	var counts freq.Counts

	err := h.run(w, r, len(req.Text), func() {
		counts = freq.Count(h.tok.Tokenize(h.prepare(req.Text)), opts...)
	})
	if err != nil {
		return
	}

	resp := frequenciesResponse{
		Tokens:   counts.Total(),
		Distinct: len(counts),
		Top:      counts.Top(top),
	}

	if h.opts.store != nil {
		err = h.opts.store.Add(r.Context(), counts)
		if err != nil {
			h.log.ErrorContext(r.Context(), "store frequencies failed",
				slog.String("request_id", RequestID(r.Context())),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "store frequencies failed")
			return
		}
		resp.Stored = true
	}

	writeJSON(w, http.StatusOK, resp)
}

// A JSON string escape expands one byte to at most six ("\u0001"), and
// bodySlack covers the remaining fields and syntax.
const (
	maxEscapeRatio = 6
	bodySlack      = 4 << 10
)

// decode reads a JSON body with a "text" field and enforces the size limit.
// It writes the error response itself and reports whether to continue.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}

	body := http.MaxBytesReader(w, r.Body, int64(h.opts.maxTextBytes)*maxEscapeRatio+bodySlack)

	err := json.NewDecoder(body).Decode(dst)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds maximum size of %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}

	var n int
	switch req := dst.(type) {
	case *tokenizeRequest:
		n = len(req.Text)
	case *frequenciesRequest:
		n = len(req.Text)
	}

	if n > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return false
	}

	return true
}

func (h *handler) prepare(s string) string {
	if h.opts.normalize {
		return text.Clean(s)
	}
	return s
}

// run executes fn on a worker slot under the request timeout and logs the
// outcome. On error the response has already been written.
func (h *handler) run(w http.ResponseWriter, r *http.Request, textLen int, fn func()) error {
	reqID := RequestID(r.Context())

	// Acquire a worker slot, honouring cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return r.Context().Err()
		}
	}

	ctx := r.Context()
	if h.opts.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan struct{})

	// The slot is held until fn returns, even after the request times out.
	go func() {
		defer close(done)
		if h.sem != nil {
			defer func() { <-h.sem }()
		}
		fn()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		err := ctx.Err()
		h.log.WarnContext(r.Context(), "tokenize timed out",
			slog.String("request_id", reqID),
			slog.String("path", r.URL.Path),
			slog.Int("text_len", textLen),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "tokenize timed out")
		} else {
			writeError(w, http.StatusServiceUnavailable, "request cancelled")
		}
		return err
	}

	h.log.InfoContext(r.Context(), "tokenize complete",
		slog.String("request_id", reqID),
		slog.String("path", r.URL.Path),
		slog.Int("text_len", textLen),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}

func parseTop(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("top")
	if raw == "" {
		return 20, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("top must be a non-negative integer, got %q", raw)
	}

	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server: wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	tok             tokenizer.Tokenizer
	store           FrequencyStore
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New returns a server for cfg. A nil tok is built from cfg.Tokenizer when
// the server starts; a nil store disables persistence.
func New(cfg config.Config, tok tokenizer.Tokenizer, store FrequencyStore) *Server {
	return &Server{
		cfg:             cfg,
		tok:             tok,
		store:           store,
		logger:          slog.Default(),
		shutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithLogger overrides the request logger.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.logger = l
	return s
}

func (s *Server) Start(ctx context.Context) error {
	backend, err := tokenizer.NormalizeBackend(s.cfg.Tokenizer.Backend)
	if err != nil {
		return err
	}

	tok := s.tok
	if tok == nil {
		tok, err = tokenizer.New(backend, s.cfg.Tokenizer.ModelPath)
		if err != nil {
			return fmt.Errorf("initialize tokenizer: %w", err)
		}
	}

	handlerOpts := []Option{
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout) * time.Second),
		WithNormalize(s.cfg.Tokenizer.Normalize),
		WithBackend(backend),
		WithLogger(s.logger),
	}
	if s.store != nil {
		handlerOpts = append(handlerOpts, WithStore(s.store))
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           NewHandler(tok, handlerOpts...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("server listening",
		slog.String("addr", s.cfg.Server.ListenAddr),
		slog.String("backend", backend),
		slog.Int("workers", s.cfg.Server.Workers),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
