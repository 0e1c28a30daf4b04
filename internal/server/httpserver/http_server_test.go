package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/blackspinne/lovable-cpannel/internal/config"
	"github.com/blackspinne/lovable-cpannel/internal/metrics"
	"github.com/blackspinne/lovable-cpannel/internal/pipeline"
	"github.com/blackspinne/lovable-cpannel/internal/project"
	"github.com/blackspinne/lovable-cpannel/internal/queue"
	"github.com/blackspinne/lovable-cpannel/internal/server/responses"
)

type zipConverter struct{}

func (zipConverter) Convert(_ context.Context, req pipeline.Request, progress pipeline.ProgressFunc) (*pipeline.Report, error) {
	progress(pipeline.ProgressArchive, "Packing…")
	if err := os.WriteFile(req.Output, []byte("PK"), 0o600); err != nil {
		return nil, err
	}
	return &pipeline.Report{Slug: req.Slug, Framework: project.FrameworkNext, ResultPath: req.Output}, nil
}

func newTestServer(t *testing.T, uiDir string) (*httptest.Server, *prom.Registry) {
	t.Helper()
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	q, err := queue.NewManager(zipConverter{}, queue.Options{
		ResultsDir: filepath.Join(t.TempDir(), "results"),
		Recorder:   rec,
	})
	require.NoError(t, err)
	require.NoError(t, q.Start(context.Background()))
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	cfg := config.Default()
	cfg.Server.UIDir = uiDir
	s := New(cfg, q, Options{PrometheusHandler: metrics.HTTPHandler(reg)})

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, reg
}

func noRedirect(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

func TestServer_JobLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("slug", "demo"))
	fw, err := mw.CreateFormFile("file", "demo.zip")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("zip"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/tasks", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var job responses.EnqueueResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))

	var st responses.StatusResponse
	require.Eventually(t, func() bool {
		r, err := http.Get(ts.URL + "/tasks/" + job.ID + "/status")
		if err != nil {
			return false
		}
		defer r.Body.Close()
		return json.NewDecoder(r.Body).Decode(&st) == nil && st.Status == queue.StateDone
	}, 5*time.Second, 10*time.Millisecond)

	dl, err := http.Get(ts.URL + st.DownloadURL)
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusOK, dl.StatusCode)
	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	require.Equal(t, "PK", string(data))
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, "")
	resp, err := http.Get(ts.URL + "/tasks")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t, "")

	for _, path := range []string{"/health", "/healthz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(data), "sitebuilder_queue_depth")
}

func TestServer_UI(t *testing.T) {
	ui := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ui, "index.html"), []byte("<h1>upload</h1>"), 0o600))
	ts, _ := newTestServer(t, ui)
	client := &http.Client{CheckRedirect: noRedirect}

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	require.Equal(t, "/ui/", resp.Header.Get("Location"))

	resp, err = client.Get(ts.URL + "/ui/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "<h1>upload</h1>", string(data))
}

func TestServer_NoUIWithoutDirectory(t *testing.T) {
	ts, _ := newTestServer(t, "")
	resp, err := (&http.Client{CheckRedirect: noRedirect}).Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_StartStop(t *testing.T) {
	q, err := queue.NewManager(zipConverter{}, queue.Options{ResultsDir: filepath.Join(t.TempDir(), "r")})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	s := New(cfg, q, Options{})
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, (&Server{}).Stop(ctx))
}
