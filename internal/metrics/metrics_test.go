package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.Begin()("GET", "/mock/{resource}", 200)
	r.Begin()("GET", "/mock/{resource}", 200)
	r.Begin()("POST", "/mock/{resource}", 201)
	inFlight := r.Begin()

	assert.Equal(t, int64(3), r.RequestsTotal())

	var sb strings.Builder
	require.NoError(t, r.WriteText(&sb))
	out := sb.String()

	assert.Contains(t, out, `http_requests_total{method="GET",route="/mock/{resource}",status="200"} 2`)
	assert.Contains(t, out, `http_requests_total{method="POST",route="/mock/{resource}",status="201"} 1`)
	assert.Contains(t, out, "http_request_duration_seconds_count 3\n")
	assert.Contains(t, out, "http_active_connections 1\n")
	assert.Contains(t, out, "# TYPE http_requests_total counter")

	inFlight("DELETE", "/mock/{resource}/{id}", 404)
	sb.Reset()
	require.NoError(t, r.WriteText(&sb))
	assert.Contains(t, sb.String(), "http_active_connections 0\n")
	assert.Contains(t, sb.String(), `status="404"} 1`)
}

func TestWriteTextIsSorted(t *testing.T) {
	r := NewRecorder()
	r.Begin()("POST", "/b", 201)
	r.Begin()("GET", "/b", 200)
	r.Begin()("GET", "/a", 200)

	var sb strings.Builder
	require.NoError(t, r.WriteText(&sb))
	out := sb.String()

	a := strings.Index(out, `route="/a"`)
	bGet := strings.Index(out, `method="GET",route="/b"`)
	bPost := strings.Index(out, `method="POST",route="/b"`)
	assert.True(t, a < bGet && bGet < bPost, "unexpected order:\n%s", out)
}
