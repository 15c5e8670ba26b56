package cli

import (
	"context"
	"encoding/json"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackgraph/pkg/buildinfo"
	"github.com/matzehuels/stackgraph/pkg/cache"
	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/observability"
	"github.com/matzehuels/stackgraph/pkg/observability/prom"
	"github.com/matzehuels/stackgraph/pkg/pipeline"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/selection"
	"github.com/matzehuels/stackgraph/pkg/stack"
)

const shutdownTimeout = 5 * time.Second

// contentTypes maps output formats to response content types.
var contentTypes = map[string]string{
	pipeline.FormatSVG:    "image/svg+xml",
	pipeline.FormatJSON:   "application/json",
	pipeline.FormatText:   "text/plain; charset=utf-8",
	pipeline.FormatPNG:    "image/png",
	pipeline.FormatPDF:    "application/pdf",
	pipeline.FormatDOT:    "text/vnd.graphviz",
	pipeline.FormatDOTSVG: "image/svg+xml",
	pipeline.FormatFolded: "text/plain; charset=utf-8",
}

// serveCommand creates the serve command, which publishes a live flame graph
// over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		src     sourceFlags
		addr    string
		watch   bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve an interactive flame graph over HTTP",
		Long: `Serve an interactive flame graph over HTTP.

Routes:
  GET    /                 page with the interactive SVG
  GET    /render/{format}  the graph in any render format
  GET    /hit?x=&y=        the box at a point of the graph area
  POST   /select           select by ?frame= or by ?x=&y=
  DELETE /select           clear the selection
  GET    /metrics          Prometheus metrics
  GET    /healthz          liveness

Render routes accept scale, mode, width, columns and title query parameters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, cfg, err := src.options(cmd, args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") && cfg.Serve.Addr != "" {
				addr = cfg.Serve.Addr
			}
			if !cmd.Flags().Changed("watch") {
				watch = watch || cfg.Serve.Watch
			}
			return c.runServe(cmd.Context(), opts, addr, watch, noCache)
		},
	}

	src.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the file when it changes")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the rendered artifact cache")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts pipeline.Options, addr string, watch, noCache bool) error {
	opts.Formats = []string{pipeline.FormatSVG}
	opts.Interactive = true
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom.New(reg).Register()
	defer observability.Reset()

	runner, err := newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	srv, err := newServer(ctx, opts, runner, loggerFromContext(ctx))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if watch {
		if err := srv.src.watch(ctx); err != nil {
			return err
		}
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- httpSrv.ListenAndServe() }()
	printSuccess("Serving %s", StyleValue.Render(opts.Input))
	printDetail("Open %s", StyleLink.Render("http://"+addr+"/"))

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "listen on %s", addr)
	case <-ctx.Done():
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return httpSrv.Shutdown(shutdownCtx)
}

// =============================================================================
// server - HTTP handlers
// =============================================================================

// server holds the live state behind the HTTP routes. One selection is shared
// by all clients; mu serializes access to it and to the display options.
type server struct {
	src    *source
	runner *pipeline.Runner
	opts   pipeline.Options
	filter stack.Filter
	logger *log.Logger

	mu       sync.Mutex
	snap     *sample.Snapshot
	displays map[string]*layout.Options
	sel      *selection.Index
	gen      uint64
}

// newServer loads opts.Input and prepares the handlers. opts must be
// validated.
func newServer(ctx context.Context, opts pipeline.Options, runner *pipeline.Runner, logger *log.Logger) (*server, error) {
	src, err := newSource(opts, logger)
	if err != nil {
		return nil, err
	}
	if _, err := src.load(ctx); err != nil {
		return nil, err
	}
	filter, err := opts.FilterConfig()
	if err != nil {
		return nil, err
	}
	return &server{
		src:      src,
		runner:   runner,
		opts:     opts,
		filter:   filter,
		logger:   logger,
		displays: make(map[string]*layout.Options),
		sel:      selection.New(nil),
	}, nil
}

func (s *server) routes(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/", s.handleIndex)
	r.Get("/render/{format}", s.handleRender)
	r.Get("/hit", s.handleHit)
	r.Get("/stack", s.handleStack)
	r.Post("/select", s.handleSelect)
	r.Delete("/select", s.handleClear)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, buildinfo.Get())
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	return r
}

// instrument reports every request to the HTTP hooks, labelled by route
// pattern rather than raw path.
func (s *server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}

// modelLocked returns an up-to-date model for the request's display
// parameters and rebinds the shared selection when the model changed.
func (s *server) modelLocked(r *http.Request) (*cache.Model, error) {
	snap := s.src.snapshot()
	if snap == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no samples loaded")
	}
	if snap != s.snap {
		s.snap = snap
		clear(s.displays)
	}

	q := r.URL.Query()
	scale, mode := q.Get("scale"), q.Get("mode")
	key := scale + "|" + mode
	display, ok := s.displays[key]
	if !ok {
		o := s.opts
		if scale != "" {
			o.Scale = scale
		}
		if mode != "" {
			o.Mode = mode
		}
		var err error
		if display, err = o.Display(snap.Descriptor()); err != nil {
			return nil, err
		}
		s.displays[key] = display
	}

	m, err := s.runner.Build(r.Context(), snap, display, s.filter)
	if err != nil {
		return nil, err
	}
	if m.Generation != s.gen {
		s.gen = m.Generation
		s.sel.Rebind(m.Layout)
	}
	return m, nil
}

// renderOptions applies the request's paint parameters to the server
// defaults.
func (s *server) renderOptions(r *http.Request, format string) (pipeline.Options, error) {
	opts := s.opts
	opts.Formats = []string{format}
	q := r.URL.Query()
	if v := q.Get("width"); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidOptions, err, "width %q", v)
		}
		opts.Width = w
	}
	if v := q.Get("columns"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidOptions, err, "columns %q", v)
		}
		opts.Columns = n
	}
	if q.Has("title") {
		opts.Title = q.Get("title")
	}
	if format == pipeline.FormatText {
		opts.Plain = true
	}
	return opts, opts.ValidateForRender()
}

func (s *server) render(r *http.Request, format string) ([]byte, error) {
	if err := pipeline.ValidateFormat(format); err != nil {
		return nil, err
	}
	opts, err := s.renderOptions(r, format)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.modelLocked(r)
	if err != nil {
		return nil, err
	}
	artifacts, err := s.runner.Render(r.Context(), m, opts, s.sel)
	if err != nil {
		return nil, err
	}
	return artifacts[format], nil
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	data, err := s.render(r, format)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	_, _ = w.Write(data)
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 16px; background: #fafafa; }
header { color: #555; margin-bottom: 8px; }
nav a { margin-right: 12px; }
</style>
</head>
<body>
<header>{{.Label}}</header>
<div id="graph">{{.SVG}}</div>
<nav>{{range .Formats}}<a href="/render/{{.}}">{{.}}</a>{{end}}</nav>
</body>
</html>
`))

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	svg, err := s.render(r, pipeline.FormatSVG)
	if err != nil {
		s.writeError(w, err)
		return
	}
	title := s.opts.Title
	if title == "" {
		title = appName
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = indexTemplate.Execute(w, struct {
		Title   string
		Label   string
		SVG     template.HTML
		Formats []string
	}{
		Title:   title,
		Label:   s.src.label(),
		SVG:     template.HTML(svg),
		Formats: pipeline.FormatNames(),
	})
	if err != nil {
		s.logger.Warn("write page", "error", err)
	}
}

// boxResponse describes one box in hit and selection responses.
type boxResponse struct {
	Frame   string  `json:"frame"`
	Depth   int     `json:"depth"`
	Share   float64 `json:"share"`
	Tooltip string  `json:"tooltip"`
	Detail  string  `json:"detail"`
}

type selectionResponse struct {
	Selected string `json:"selected,omitempty"`
	Boxes    int    `json:"boxes"`
	Detail   string `json:"detail,omitempty"`
}

// pointLocked resolves the x and y query parameters to a box. Coordinates are
// relative to the graph area; width defaults to the render width and height
// to the layout's rows times the row height.
func (s *server) pointLocked(r *http.Request, l *layout.Layout) (*layout.Box, bool, error) {
	q := r.URL.Query()
	x, err := floatParam(q.Get("x"), "x", -1)
	if err != nil {
		return nil, false, err
	}
	y, err := floatParam(q.Get("y"), "y", -1)
	if err != nil {
		return nil, false, err
	}
	width, err := floatParam(q.Get("width"), "width", s.opts.Width)
	if err != nil {
		return nil, false, err
	}
	if q.Get("height") == "" {
		b, ok := l.HitTestRows(x, y, width)
		return b, ok, nil
	}
	height, err := floatParam(q.Get("height"), "height", 0)
	if err != nil {
		return nil, false, err
	}
	b, ok := l.HitTest(x, y, width, height)
	return b, ok, nil
}

func floatParam(v, name string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s %q", name, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s must be finite, got %q", name, v)
	}
	return f, nil
}

func (s *server) handleHit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.modelLocked(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	b, ok, err := s.pointLocked(r, m.Layout)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "no box at this point"))
		return
	}
	writeJSON(w, http.StatusOK, newBoxResponse(m.Layout, b))
}

// handleStack reports the box of a folded call path, e.g. ?stack=main;parse.
func (s *server) handleStack(w http.ResponseWriter, r *http.Request) {
	folded := r.URL.Query().Get("stack")
	if folded == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "stack parameter is required"))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.modelLocked(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	n, ok := m.Root.Lookup(sample.ParseStack(folded))
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "no call path %q", folded))
		return
	}
	b, ok := m.Layout.BoxFor(n)
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "call path %q is too narrow to draw", folded))
		return
	}
	writeJSON(w, http.StatusOK, newBoxResponse(m.Layout, b))
}

func newBoxResponse(l *layout.Layout, b *layout.Box) boxResponse {
	return boxResponse{
		Frame:   b.Frame.String(),
		Depth:   b.Depth,
		Share:   b.Share,
		Tooltip: l.Tooltip(b),
		Detail:  l.Detail(b),
	}
}

func (s *server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.modelLocked(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if frame := r.URL.Query().Get("frame"); frame != "" {
		s.sel.Select(stack.ParseFrame(frame))
	} else {
		b, ok, err := s.pointLocked(r, m.Layout)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if ok {
			s.sel.SelectBox(b)
		} else {
			s.sel.Clear()
		}
	}
	writeJSON(w, http.StatusOK, s.selectionLocked())
}

func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Clear()
	writeJSON(w, http.StatusOK, s.selectionLocked())
}

func (s *server) selectionLocked() selectionResponse {
	f, ok := s.sel.Selected()
	if !ok {
		return selectionResponse{}
	}
	detail, _ := s.sel.Detail()
	return selectionResponse{
		Selected: f.String(),
		Boxes:    len(s.sel.Boxes(f)),
		Detail:   detail,
	}
}

// writeError maps error codes to HTTP statuses: configuration and input
// errors are the client's fault, a missing box or snapshot is 404.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrCodeNotFound):
		status = http.StatusNotFound
	case errors.IsConfiguration(err), errors.Is(err, errors.ErrCodeInvalidInput), errors.Is(err, errors.ErrCodeInvalidFormat):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeUnsupported):
		status = http.StatusNotImplemented
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
