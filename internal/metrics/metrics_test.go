package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/reachprobe/internal/checker"
	"github.com/hazz-dev/reachprobe/internal/control"
	"github.com/hazz-dev/reachprobe/internal/metrics"
)

func TestRecorder_Attempts(t *testing.T) {
	r := metrics.New()
	r.ObserveAttempt(checker.CheckResult{Status: checker.StatusUp})
	r.ObserveAttempt(checker.CheckResult{Status: checker.StatusDown})
	r.ObserveAttempt(checker.CheckResult{Status: checker.StatusDown})

	expected := `
# HELP reachprobe_tcp_attempts_total TCP reachability samples by result.
# TYPE reachprobe_tcp_attempts_total counter
reachprobe_tcp_attempts_total{result="reachable"} 1
reachprobe_tcp_attempts_total{result="unreachable"} 2
`
	err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "reachprobe_tcp_attempts_total")
	assert.NoError(t, err)
}

func TestRecorder_Report(t *testing.T) {
	r := metrics.New()
	r.ObserveRequest(checker.CheckResult{Status: checker.StatusDown, ResponseTime: 20 * time.Millisecond})
	r.ObserveReport(&control.Report{Results: []control.Result{
		{Control: "gcloud", Status: control.StatusFailed},
	}})

	expected := `
# HELP reachprobe_control_passing 1 when the latest run of the control passed, 0 otherwise.
# TYPE reachprobe_control_passing gauge
reachprobe_control_passing{control="gcloud"} 0
# HELP reachprobe_control_results_total Executed examples by control and status.
# TYPE reachprobe_control_results_total counter
reachprobe_control_results_total{control="gcloud",status="failed"} 1
# HELP reachprobe_http_requests_total Final HTTP GET requests by result.
# TYPE reachprobe_http_requests_total counter
reachprobe_http_requests_total{result="failure"} 1
`
	err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected),
		"reachprobe_control_passing", "reachprobe_control_results_total", "reachprobe_http_requests_total")
	assert.NoError(t, err)

	r.ObserveReport(&control.Report{Results: []control.Result{
		{Control: "gcloud", Status: control.StatusPassed},
	}})
	passing := `
# HELP reachprobe_control_passing 1 when the latest run of the control passed, 0 otherwise.
# TYPE reachprobe_control_passing gauge
reachprobe_control_passing{control="gcloud"} 1
`
	err = testutil.GatherAndCompare(r.Registry(), strings.NewReader(passing), "reachprobe_control_passing")
	assert.NoError(t, err)
}

func TestRecorder_Handler(t *testing.T) {
	r := metrics.New()
	r.ObserveAttempt(checker.CheckResult{Status: checker.StatusUp})

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `reachprobe_tcp_attempts_total{result="reachable"} 1`)
}
