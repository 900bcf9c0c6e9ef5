package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequestExportsToRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New("compound-site-test", WithRegisterer(reg))
	defer o.Shutdown()

	o.RecordRequest(context.Background(), "GET /blog", "GET", 200, 12*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "http_server_requests_total")
}

func TestNilObservabilityIsSafe(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		o.RecordRequest(context.Background(), "/", "GET", 200, time.Millisecond)
		o.Shutdown()
	})
}
