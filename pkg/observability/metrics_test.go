package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himanshu040604/PregelFlow"
	"github.com/Himanshu040604/PregelFlow/pkg/adapters/memory"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/graph"
	"github.com/Himanshu040604/PregelFlow/pkg/observability"
	"github.com/Himanshu040604/PregelFlow/pkg/schema"
)

// scrape returns the exposition text of m.
func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	s := schema.MustNew(
		schema.Field{Name: "in", Type: schema.String(), Policy: schema.Replace},
		schema.Field{Name: "notes", Type: schema.String(), Policy: schema.Append},
	)
	b := graph.New(s)
	b.Node("good", func(context.Context, domain.Snapshot) (domain.Update, error) {
		return domain.Update{"notes": "ok"}, nil
	}).Writes("notes").From(graph.START).To("sink")
	b.Node("flaky", func(context.Context, domain.Snapshot) (domain.Update, error) {
		return nil, errors.New("upstream down")
	}).Writes("notes").Optional().From(graph.START).To("sink")
	b.Node("sink", func(context.Context, domain.Snapshot) (domain.Update, error) {
		return nil, nil
	}).To(graph.END)
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestMetrics_RecordsRun(t *testing.T) {
	m := observability.NewMetrics(nil)
	eng, err := pregelflow.New(testGraph(t), memory.NewStore(), pregelflow.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, err)

	_, err = eng.Invoke(context.Background(), "s", domain.Update{"in": "x"})
	require.NoError(t, err)

	out := scrape(t, m)
	assert.Contains(t, out, `pregelflow_node_runs_total{node_id="good",outcome="ok"} 1`)
	assert.Contains(t, out, `pregelflow_node_runs_total{node_id="flaky",outcome="dropped"} 1`)
	assert.Contains(t, out, `pregelflow_node_runs_total{node_id="sink",outcome="ok"} 1`)
	assert.Contains(t, out, `pregelflow_wavefront_commits_total{status="running"} 2`, "input and first wavefront")
	assert.Contains(t, out, `pregelflow_wavefront_commits_total{status="completed"} 1`)
	assert.Contains(t, out, `pregelflow_runs_total{status="completed"} 1`)
	assert.Contains(t, out, `pregelflow_node_duration_seconds_count{node_id="good"} 1`)
	assert.Contains(t, out, "pregelflow_inflight_nodes 0")
}

func TestMetrics_FailedRun(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	hooks := m.Hooks()
	hooks.OnRunFinish(context.Background(), &domain.RunEvent{Status: domain.RunRunning, Err: errors.New("boom")})
	hooks.OnNodeFinish(context.Background(), &domain.NodeEvent{NodeID: "n", Err: errors.New("boom")})

	out := scrape(t, m)
	assert.Contains(t, out, `pregelflow_runs_total{status="failed"} 1`)
	assert.Contains(t, out, `pregelflow_node_runs_total{node_id="n",outcome="failed"} 1`)
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.Runs.WithLabelValues("completed").Inc()

	assert.Contains(t, scrape(t, m), `pregelflow_runs_total{status="completed"} 1`)
}

func TestLogHooks(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	eng, err := pregelflow.New(testGraph(t), memory.NewStore(),
		pregelflow.WithLifecycleHooks(observability.LogHooks(logger)))
	require.NoError(t, err)

	_, err = eng.Invoke(context.Background(), "s", domain.Update{"in": "x"})
	require.NoError(t, err)

	out := buf.String()
	for _, msg := range []string{"node_start", "node_finish", "commit", "run_finish"} {
		assert.Contains(t, out, "msg="+msg)
	}
	assert.Equal(t, 3, strings.Count(out, "msg=node_start"))
	assert.Contains(t, out, "upstream down")
}
