package metrics

import (
	"fmt"
	"io"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Registry collects upstream and inbound request metrics.
// It satisfies explorer.MetricsCollector.
type Registry struct {
	r gometrics.Registry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{r: gometrics.NewRegistry()}
}

// RecordRequestDuration records the latency of one upstream call.
func (m *Registry) RecordRequestDuration(method, path string, statusCode int, duration time.Duration) {
	gometrics.GetOrRegisterTimer(fmt.Sprintf("upstream.%s.latency", path), m.r).Update(duration)
}

// RecordRequestCount counts one upstream call by status code.
func (m *Registry) RecordRequestCount(method, path string, statusCode int) {
	gometrics.GetOrRegisterCounter(fmt.Sprintf("upstream.%s.status.%d", path, statusCode), m.r).Inc(1)
}

// RecordRequestError counts one failed upstream call.
func (m *Registry) RecordRequestError(method, path string) {
	gometrics.GetOrRegisterCounter(fmt.Sprintf("upstream.%s.errors", path), m.r).Inc(1)
}

// RecordHTTP records an inbound request served by the API.
func (m *Registry) RecordHTTP(route string, status int, duration time.Duration) {
	gometrics.GetOrRegisterTimer(fmt.Sprintf("http.%s.latency", route), m.r).Update(duration)
	gometrics.GetOrRegisterCounter(fmt.Sprintf("http.%s.status.%d", route, status), m.r).Inc(1)
}

// RecordCache counts cache hits and misses.
func (m *Registry) RecordCache(hit bool) {
	name := "cache.miss"
	if hit {
		name = "cache.hit"
	}
	gometrics.GetOrRegisterCounter(name, m.r).Inc(1)
}

// Counter returns the current value of a named counter, or 0.
func (m *Registry) Counter(name string) int64 {
	if c, ok := m.r.Get(name).(gometrics.Counter); ok {
		return c.Count()
	}
	return 0
}

// WriteJSON writes a one-off JSON dump of the registry.
func (m *Registry) WriteJSON(w io.Writer) {
	gometrics.WriteJSONOnce(m.r, w)
}
