package server

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"tubescribe/internal/metrics"
	"tubescribe/internal/pipeline"
	"tubescribe/internal/questions"
)

type fakeRunner struct {
	result  pipeline.Result
	err     error
	lastURL string
}

func (f *fakeRunner) Run(_ context.Context, rawURL string) (pipeline.Result, error) {
	f.lastURL = rawURL
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	return f.result, nil
}

func postForm(t *testing.T, s *Server, field, value string) (*http.Response, string) {
	t.Helper()

	form := url.Values{}
	form.Set(field, value)
	req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func get(t *testing.T, s *Server, path string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestIndexPageShowsForm(t *testing.T) {
	t.Parallel()

	s := New(Options{Pipeline: &fakeRunner{}})
	resp, body := get(t, s, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Contains(t, body, `name="youtube_url"`)
	require.NotContains(t, body, "Transcript</h2>")
}

func TestTranscribeRendersResult(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: pipeline.Result{
		URL:        "https://www.youtube.com/watch?v=abc123",
		Transcript: "hello world",
		Questions:  []questions.Question{{Question: "What was said?", Answer: "hello world"}},
	}}
	s := New(Options{Pipeline: runner})

	resp, body := postForm(t, s, "youtube_url", "https://www.youtube.com/watch?v=abc123")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://www.youtube.com/watch?v=abc123", runner.lastURL)
	require.Contains(t, body, "hello world")
	require.Contains(t, body, "What was said?")
}

func TestTranscribeRendersUserFacingError(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: &pipeline.ValidationError{Reason: "Please enter a video URL."}}
	s := New(Options{Pipeline: runner})

	resp, body := postForm(t, s, "youtube_url", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Please enter a video URL.")
	require.NotContains(t, body, "Transcript</h2>")
}

func TestTranscribeEscapesTranscriptHTML(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: pipeline.Result{
		URL:        "https://example.com/v",
		Transcript: `<script>alert("x")</script>`,
	}}
	s := New(Options{Pipeline: runner})

	_, body := postForm(t, s, "youtube_url", "https://example.com/v")
	require.NotContains(t, body, "<script>alert")
	require.Contains(t, body, "&lt;script&gt;")
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	s := New(Options{Pipeline: &fakeRunner{}})
	resp, body := get(t, s, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"healthy"}`, body)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	m.RequestsTotal.Inc()

	s := New(Options{Pipeline: &fakeRunner{}, Gatherer: registry})
	resp, body := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "tubescribe_requests_total")
}

func TestMetricsEndpointAbsentWithoutGatherer(t *testing.T) {
	t.Parallel()

	s := New(Options{Pipeline: &fakeRunner{}})
	resp, _ := get(t, s, "/metrics")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
