package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Recorder keeps in-process request counters and renders them in the
// Prometheus text exposition format.
type Recorder struct {
	mu            sync.Mutex
	started       time.Time
	activeConns   int64
	durationSum   float64
	durationCount int64
	requests      map[requestKey]int64
}

type requestKey struct {
	method string
	route  string
	status int
}

func NewRecorder() *Recorder {
	return &Recorder{
		started:  time.Now(),
		requests: map[requestKey]int64{},
	}
}

// Begin marks a request as in flight. The returned func records its outcome.
func (r *Recorder) Begin() func(method, route string, status int) {
	start := time.Now()

	r.mu.Lock()
	r.activeConns++
	r.mu.Unlock()

	return func(method, route string, status int) {
		elapsed := time.Since(start).Seconds()

		r.mu.Lock()
		defer r.mu.Unlock()
		r.activeConns--
		r.durationSum += elapsed
		r.durationCount++
		r.requests[requestKey{method: method, route: route, status: status}]++
	}
}

// RequestsTotal returns the number of completed requests.
func (r *Recorder) RequestsTotal() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.durationCount
}

func (r *Recorder) WriteText(w io.Writer) error {
	r.mu.Lock()
	keys := make([]requestKey, 0, len(r.requests))
	for k := range r.requests {
		keys = append(keys, k)
	}
	counts := make(map[requestKey]int64, len(r.requests))
	for k, v := range r.requests {
		counts[k] = v
	}
	active, sum, count := r.activeConns, r.durationSum, r.durationCount
	uptime := time.Since(r.started).Seconds()
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].route != keys[j].route {
			return keys[i].route < keys[j].route
		}
		if keys[i].method != keys[j].method {
			return keys[i].method < keys[j].method
		}
		return keys[i].status < keys[j].status
	})

	lines := []string{
		"# HELP http_requests_total Completed HTTP requests.",
		"# TYPE http_requests_total counter",
	}
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("http_requests_total{method=%q,route=%q,status=\"%d\"} %d",
			k.method, k.route, k.status, counts[k]))
	}
	lines = append(lines,
		"# HELP http_request_duration_seconds Request latency.",
		"# TYPE http_request_duration_seconds summary",
		fmt.Sprintf("http_request_duration_seconds_sum %g", sum),
		fmt.Sprintf("http_request_duration_seconds_count %d", count),
		"# HELP http_active_connections Requests currently being served.",
		"# TYPE http_active_connections gauge",
		fmt.Sprintf("http_active_connections %d", active),
		"# HELP process_uptime_seconds Seconds since the server started.",
		"# TYPE process_uptime_seconds gauge",
		fmt.Sprintf("process_uptime_seconds %g", uptime),
	)

	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}
