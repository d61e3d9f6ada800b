package instagram

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"igfetch/pkg/auth"
	"igfetch/pkg/logger"
	"igfetch/pkg/stream"

	"github.com/stretchr/testify/require"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

// newMockHTTPClient creates an HTTP client backed by handler
func newMockHTTPClient(handler func(req *http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{
		Transport: &mockRoundTripper{handler: handler},
		Timeout:   5 * time.Second,
	}
}

// newResponse creates a response with the given status and body
func newResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

// recordedRequest is what the fake server saw
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Form   url.Values
}

// fakeInstagram serves canned responses per path and records every request
type fakeInstagram struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeInstagram(t *testing.T, routes map[string]http.HandlerFunc) *fakeInstagram {
	t.Helper()

	f := &fakeInstagram{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var form url.Values
		if r.Method == http.MethodPost {
			_ = r.ParseForm()
			form = r.PostForm
		}

		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Form:   form,
		})
		f.mu.Unlock()

		if handler, ok := routes[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeInstagram) URL() string {
	return f.server.URL
}

// Requests returns the recorded requests, optionally filtered by path
func (f *fakeInstagram) Requests(path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []recordedRequest
	for _, r := range f.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// jsonHandler replies 200 with body
func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// fakeProxy records the assets it was asked to proxy
type fakeProxy struct {
	mu      sync.Mutex
	configs []stream.Config
}

func (p *fakeProxy) CreateProxyReference(cfg stream.Config) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs = append(p.configs, cfg)
	return "proxy:" + cfg.SourceURL
}

// testEnv is a Service wired against a fake server
type testEnv struct {
	service *Service
	fake    *fakeInstagram
	store   *auth.MemoryStore
	proxy   *fakeProxy
	log     *logger.TestLogger
}

// newTestEnv builds a Service; withSession seeds a valid instagram session
func newTestEnv(t *testing.T, routes map[string]http.HandlerFunc, withSession bool) *testEnv {
	t.Helper()

	fake := newFakeInstagram(t, routes)
	store := auth.NewMemoryStore()
	if withSession {
		require.NoError(t, store.Save(context.Background(), auth.NewSession("sid-1", "csrf-1")))
	}

	log := logger.NewTestLogger()
	proxy := &fakeProxy{}
	client := NewClient(5*time.Second, log)

	svc := NewService(ServiceOptions{
		Client:    client,
		Store:     auth.NewManagerWithBackends(store),
		Proxy:     proxy,
		Endpoints: NewEndpoints(fake.URL()),
		Logger:    log,
	})

	return &testEnv{service: svc, fake: fake, store: store, proxy: proxy, log: log}
}

const landingPage = `<html><script>{"dtsg":{"token":"NAcTOKEN123:17:1700000000"},"other":1}</script></html>`
