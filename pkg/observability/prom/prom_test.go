package prom

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackgraph/pkg/observability"
)

func TestEngineMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnTrieBuild(ctx, 12, time.Millisecond, nil)
	m.OnTrieBuild(ctx, 0, time.Millisecond, errors.New("boom"))
	m.OnLayout(ctx, "value", 10, 4, time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.builds.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.builds.WithLabelValues("error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.trieNodes), "failed builds keep the last size")
	assert.Equal(t, 10.0, testutil.ToFloat64(m.layoutBoxes))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.layoutRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.layouts.WithLabelValues("value", "ok")))
}

func TestCacheMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnCacheHit(ctx, "trie")
	m.OnCacheHit(ctx, "trie")
	m.OnCacheMiss(ctx, "layout")
	m.OnCacheSet(ctx, "svg", 2048)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("trie", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("layout", "miss")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.cacheBytes.WithLabelValues("svg")))
}

func TestPipelineAndHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	ctx := context.Background()

	m.OnLoadComplete(ctx, "folded", "count", 3, time.Millisecond, nil)
	m.OnRenderComplete(ctx, []string{"svg", "json"}, time.Millisecond, nil)
	m.OnResponse(ctx, "GET", "/svg", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("folded", "count", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("json", "ok")))

	expected := `
# HELP stackgraph_http_requests_total HTTP requests by method, route and status
# TYPE stackgraph_http_requests_total counter
stackgraph_http_requests_total{method="GET",route="/svg",status="200"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "stackgraph_http_requests_total"))
}

func TestRegister(t *testing.T) {
	defer observability.Reset()
	m := New(prometheus.NewRegistry())
	m.Register()
	assert.Same(t, m, observability.Engine())
	assert.Same(t, m, observability.Cache())
	assert.Same(t, m, observability.HTTP())
	assert.Same(t, m, observability.Pipeline())
}
