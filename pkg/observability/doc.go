/*
Package observability turns executor lifecycle hooks into Prometheus metrics
and structured log lines.

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	eng, _ := pregelflow.New(g, store, pregelflow.WithLifecycleHooks(
		domain.CombineHooks(metrics.Hooks(), observability.LogHooks(logger)),
	))
	http.Handle("/metrics", metrics.Handler())
*/
package observability
