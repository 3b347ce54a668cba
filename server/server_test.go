package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ursinus-CS476-F2020/LoopDitty/logging"
	"github.com/Ursinus-CS476-F2020/LoopDitty/projection"
	"github.com/Ursinus-CS476-F2020/LoopDitty/projection/config"
)

const toyRequest = `{
	"features": {"f1": [[1], [2], [3], [4], [5]], "f2": [[10], [10], [10], [10], [10]]},
	"weights": {"f1": 1, "f2": 1},
	"featureNormName": "none",
	"jointNormName": "none",
	"windowConfig": {"length": 1}
}`

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.PCA.Seed = 5
	if mutate != nil {
		mutate(cfg)
	}

	reg := prometheus.NewRegistry()
	quiet := &logging.NoOpLogger{}
	p := projection.NewProjector(cfg,
		projection.WithLogger(quiet),
		projection.WithMetrics(projection.NewMetrics(reg)),
		projection.WithSupersede(false),
	)
	s := New(p, cfg.Server, WithLogger(quiet), WithGatherer(reg))

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, reg
}

func readEvents(t *testing.T, resp *http.Response) []projection.Event {
	t.Helper()
	var events []projection.Event
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		var e projection.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e), scanner.Text())
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestProjectStreamsEvents(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/v1/projections", "application/json", strings.NewReader(toyRequest))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ndjsonContentType, resp.Header.Get("Content-Type"))
	id := resp.Header.Get("X-Projection-ID")
	assert.NotEmpty(t, id)

	events := readEvents(t, resp)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, projection.EventDone, last.Type)
	assert.Equal(t, [][]float64{{1, 10}, {2, 10}, {3, 10}, {4, 10}, {5, 10}}, last.Result)

	var labels []string
	for _, e := range events {
		assert.Equal(t, id, e.ID)
		if e.Type == projection.EventProgress {
			labels = append(labels, e.Label)
		}
	}
	assert.Equal(t, []string{"Normalizing f1", "Normalizing f2", "Normalizing Joint Embedding", "Computing PCA"}, labels)
}

func TestProjectRejectsBadRequests(t *testing.T) {
	ts, _ := newTestServer(t, func(c *config.Config) { c.Server.MaxRequestBytes = 64 })

	resp, err := http.Post(ts.URL+"/v1/projections", "application/json", strings.NewReader(`{"features":`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/v1/projections", "application/json", strings.NewReader(toyRequest))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/v1/projections")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/v1/projections", "application/json", strings.NewReader(toyRequest))
	require.NoError(t, err)
	readEvents(t, resp)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `loopditty_projections_total{status="done"} 1`)
	assert.Contains(t, body.String(), "loopditty_projection_stage_duration_seconds")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	p := projection.NewProjector(cfg, projection.WithLogger(&logging.NoOpLogger{}))
	s := New(p, cfg.Server, WithLogger(&logging.NoOpLogger{}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
