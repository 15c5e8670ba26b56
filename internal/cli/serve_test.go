package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackgraph/pkg/cache"
	"github.com/matzehuels/stackgraph/pkg/observability"
	"github.com/matzehuels/stackgraph/pkg/observability/prom"
	"github.com/matzehuels/stackgraph/pkg/pipeline"
)

func newTestServer(t *testing.T, metrics http.Handler) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	opts := pipeline.Options{
		Input:       writeSample(t, foldedSample),
		Formats:     []string{pipeline.FormatSVG},
		Interactive: true,
	}
	require.NoError(t, opts.ValidateAndSetDefaults())

	mem, err := cache.NewMemoryCache("artifact", 16)
	require.NoError(t, err)
	runner := pipeline.NewRunner(mem, nil, logger)
	t.Cleanup(func() { runner.Close() })

	srv, err := newServer(context.Background(), opts, runner, logger)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.routes(metrics))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestServeHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))
}

func TestServeVersion(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/version")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info map[string]any
	require.NoError(t, json.Unmarshal(body, &info))
	assert.NotEmpty(t, info["version"])
	assert.Contains(t, info, "go_version")
}

func TestServeIndex(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "<svg")
	assert.Contains(t, string(body), "selectFrame")
	assert.Contains(t, string(body), `href="/render/json"`)
}

func TestServeRender(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := do(t, http.MethodGet, ts.URL+"/render/svg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Equal(t, 4, strings.Count(string(body), `<rect id="box-`))

	resp, body = do(t, http.MethodGet, ts.URL+"/render/json?scale=equal")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Scale string `json:"scale"`
		Boxes []struct {
			Frame string `json:"frame"`
		} `json:"boxes"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "equal", out.Scale)
	assert.Len(t, out.Boxes, 4)

	resp, body = do(t, http.MethodGet, ts.URL+"/render/text?columns=40")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "|main")
}

func TestServeRenderErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		url  string
		code string
	}{
		{"unknown format", "/render/gif", "INVALID_FORMAT"},
		{"unknown scale", "/render/svg?scale=huge", "INVALID_SCALE"},
		{"unknown mode", "/render/svg?mode=bytes", "INVALID_MODE"},
		{"bad width", "/render/svg?width=wide", "INVALID_OPTIONS"},
		{"nan width", "/render/json?width=NaN", "INVALID_OPTIONS"},
		{"infinite width", "/render/svg?width=Inf", "INVALID_OPTIONS"},
		{"nan x", "/hit?x=NaN&y=1", "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, ts.URL+tt.url)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var out map[string]string
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, tt.code, out["code"])
		})
	}
}

func TestServeHit(t *testing.T) {
	ts := newTestServer(t, nil)

	// Graph area is 1200 wide and 3 rows of 18px.
	resp, body := do(t, http.MethodGet, ts.URL+"/hit?x=100&y=20")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hit boxResponse
	require.NoError(t, json.Unmarshal(body, &hit))
	assert.Equal(t, "parse", hit.Frame)
	assert.Equal(t, 2, hit.Depth)
	assert.InDelta(t, 0.4, hit.Share, 1e-9)
	assert.Equal(t, "parse 40.0%", hit.Tooltip)

	// An explicit height divides it evenly among the rows.
	resp, body = do(t, http.MethodGet, ts.URL+"/hit?x=100&y=25&height=30")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &hit))
	assert.Equal(t, "read", hit.Frame)

	resp, _ = do(t, http.MethodGet, ts.URL+"/hit?x=100&y=500")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/hit?x=abc&y=1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeStack(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := do(t, http.MethodGet, ts.URL+"/stack?stack=main;parse;read")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var box boxResponse
	require.NoError(t, json.Unmarshal(body, &box))
	assert.Equal(t, "read", box.Frame)
	assert.Equal(t, 3, box.Depth)
	assert.InDelta(t, 0.3, box.Share, 1e-9)

	resp, _ = do(t, http.MethodGet, ts.URL+"/stack?stack=main;missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/stack")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeSelect(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, ts.URL+"/select?frame=render")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sel selectionResponse
	require.NoError(t, json.Unmarshal(body, &sel))
	assert.Equal(t, "render", sel.Selected)
	assert.Equal(t, 1, sel.Boxes)
	assert.Contains(t, sel.Detail, "calls: 60")

	_, body = do(t, http.MethodGet, ts.URL+"/render/svg")
	assert.Equal(t, 1, strings.Count(string(body), `class="box highlight"`))

	_, body = do(t, http.MethodPost, ts.URL+"/select?x=5&y=5")
	require.NoError(t, json.Unmarshal(body, &sel))
	assert.Equal(t, "main", sel.Selected)

	resp, body = do(t, http.MethodDelete, ts.URL+"/select")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sel = selectionResponse{}
	require.NoError(t, json.Unmarshal(body, &sel))
	assert.Empty(t, sel.Selected)

	_, body = do(t, http.MethodGet, ts.URL+"/render/svg")
	assert.NotContains(t, string(body), `class="box highlight"`)
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom.New(reg).Register()
	t.Cleanup(observability.Reset)

	ts := newTestServer(t, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	do(t, http.MethodGet, ts.URL+"/render/svg")
	do(t, http.MethodGet, ts.URL+"/render/svg")

	resp, body := do(t, http.MethodGet, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, "stackgraph_layouts_total")
	assert.Contains(t, text, `route="/render/{format}"`)
}
