package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("build", time.Second)
	r.IncStageResult("build", ResultFailed)
	r.ObserveJobDuration(time.Second)
	r.IncJobOutcome(JobDone)
	r.IncFramework("vite")
	r.IncRejected("queue_full")
	r.SetQueueDepth(3)
}

func TestPrometheusRecorder_Exposition(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveStageDuration("build", 2*time.Second)
	r.IncStageResult("build", ResultSuccess)
	r.ObserveJobDuration(30 * time.Second)
	r.IncJobOutcome(JobFailed)
	r.IncFramework("next")
	r.IncRejected("invalid_slug")
	r.SetQueueDepth(4)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	for _, want := range []string{
		`sitebuilder_stage_results_total{result="success",stage="build"} 1`,
		`sitebuilder_job_outcomes_total{outcome="error"} 1`,
		`sitebuilder_frameworks_detected_total{framework="next"} 1`,
		`sitebuilder_submissions_rejected_total{reason="invalid_slug"} 1`,
		`sitebuilder_queue_depth 4`,
		`sitebuilder_job_duration_seconds_count 1`,
	} {
		require.True(t, strings.Contains(text, want), "missing %q in exposition", want)
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.IncFramework("vite")
	r.SetQueueDepth(1)
}
