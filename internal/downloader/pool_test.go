package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/logger"
	"igfetch/pkg/media"
	"igfetch/pkg/ratelimit"
	"igfetch/pkg/retry"
	"igfetch/pkg/storage"
)

// MockFetcher serves a fixed body for every URL
type MockFetcher struct {
	fetchDelay   time.Duration
	fetchError   error
	fetchCounter int32
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	atomic.AddInt32(&m.fetchCounter, 1)
	if m.fetchDelay > 0 {
		select {
		case <-time.After(m.fetchDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fetchError != nil {
		return nil, m.fetchError
	}
	return io.NopCloser(bytes.NewBufferString("mock media data")), nil
}

func (m *MockFetcher) GetFetchCount() int {
	return int(atomic.LoadInt32(&m.fetchCounter))
}

// MockStorage records saved file names
type MockStorage struct {
	saved     map[string]bool
	saveError error
	mu        sync.Mutex
}

func NewMockStorage() *MockStorage {
	return &MockStorage{saved: make(map[string]bool)}
}

func (m *MockStorage) Exists(filename string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[filename]
}

func (m *MockStorage) Save(r io.Reader, filename string) (string, error) {
	if m.saveError != nil {
		return "", m.saveError
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[filename] = true
	return "/mock/" + filename, nil
}

func (m *MockStorage) GetSavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func makeJobs(n int) []DownloadJob {
	jobs := make([]DownloadJob, n)
	for i := range jobs {
		jobs[i] = DownloadJob{
			URL:      fmt.Sprintf("https://scontent.cdninstagram.com/%d.jpg", i),
			Filename: fmt.Sprintf("instagram_C%d.jpg", i),
			MediaID:  fmt.Sprintf("C%d", i),
		}
	}
	return jobs
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	mockFetcher := &MockFetcher{fetchDelay: 10 * time.Millisecond}
	mockStorage := NewMockStorage()
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewWorkerPool(3, mockFetcher, mockStorage, rateLimiter, logger.NewNopLogger())
	pool.Start(context.Background())

	var results []DownloadResult
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	numJobs := 10
	for _, job := range makeJobs(numJobs) {
		if err := pool.Submit(job); err != nil {
			t.Errorf("Failed to submit job %s: %v", job.Filename, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}

	for _, result := range results {
		if !result.Success {
			t.Errorf("Expected %s to succeed: %v", result.Job.Filename, result.Error)
		}
		if result.Size != int64(len("mock media data")) {
			t.Errorf("Expected size %d, got %d", len("mock media data"), result.Size)
		}
		if result.Path != "/mock/"+result.Job.Filename {
			t.Errorf("Unexpected path %s", result.Path)
		}
	}

	if mockFetcher.GetFetchCount() != numJobs {
		t.Errorf("Expected %d fetch calls, got %d", numJobs, mockFetcher.GetFetchCount())
	}
	if mockStorage.GetSavedCount() != numJobs {
		t.Errorf("Expected %d saved files, got %d", numJobs, mockStorage.GetSavedCount())
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	mockFetcher := &MockFetcher{fetchError: fmt.Errorf("fetch error")}
	pool := NewWorkerPool(2, mockFetcher, NewMockStorage(), nil, logger.NewNopLogger())

	results := pool.Run(context.Background(), makeJobs(5))

	if len(results) != 5 {
		t.Errorf("Expected 5 results, got %d", len(results))
	}
	for _, result := range results {
		if result.Success {
			t.Error("Expected all downloads to fail")
		}
		if result.Error == nil {
			t.Error("Expected error in result")
		}
	}
}

func TestWorkerPoolSaveError(t *testing.T) {
	mockStorage := NewMockStorage()
	mockStorage.saveError = fmt.Errorf("disk full")
	pool := NewWorkerPool(1, &MockFetcher{}, mockStorage, nil, logger.NewNopLogger())

	results := pool.Run(context.Background(), makeJobs(1))

	if len(results) != 1 || results[0].Success {
		t.Fatalf("Expected one failed result, got %+v", results)
	}
}

func TestWorkerPoolSkipsExisting(t *testing.T) {
	mockFetcher := &MockFetcher{}
	mockStorage := NewMockStorage()
	mockStorage.saved["instagram_C0.jpg"] = true

	pool := NewWorkerPool(2, mockFetcher, mockStorage, nil, logger.NewNopLogger())
	results := pool.Run(context.Background(), makeJobs(3))

	skipped := 0
	for _, result := range results {
		if !result.Success {
			t.Errorf("Expected %s to succeed", result.Job.Filename)
		}
		if result.Skipped {
			skipped++
		}
	}
	if skipped != 1 {
		t.Errorf("Expected 1 skipped job, got %d", skipped)
	}
	if mockFetcher.GetFetchCount() != 2 {
		t.Errorf("Expected 2 fetch calls, got %d", mockFetcher.GetFetchCount())
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	mockFetcher := &MockFetcher{fetchDelay: 100 * time.Millisecond}
	pool := NewWorkerPool(5, mockFetcher, NewMockStorage(), nil, logger.NewNopLogger())

	startTime := time.Now()
	results := pool.Run(context.Background(), makeJobs(10))
	elapsed := time.Since(startTime)

	if len(results) != 10 {
		t.Errorf("Expected 10 results, got %d", len(results))
	}

	// 10 jobs at 100ms each over 5 workers takes about 200ms, not 1s
	if elapsed > 600*time.Millisecond {
		t.Errorf("Expected concurrent processing, took %v", elapsed)
	}
}

func TestWorkerPoolCancellation(t *testing.T) {
	mockFetcher := &MockFetcher{fetchDelay: time.Second}
	pool := NewWorkerPool(2, mockFetcher, NewMockStorage(), nil, logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan []DownloadResult)
	go func() { done <- pool.Run(ctx, makeJobs(20)) }()

	select {
	case results := <-done:
		for _, result := range results {
			if result.Success {
				t.Error("Expected no job to finish before cancellation")
			}
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if err := pool.Submit(DownloadJob{Filename: "late.jpg"}); err != ErrPoolStopped {
		t.Errorf("Expected ErrPoolStopped, got %v", err)
	}
}

func TestJobsFor(t *testing.T) {
	tests := []struct {
		name string
		d    media.Descriptor
		want []DownloadJob
	}{
		{
			name: "photo",
			d:    media.Photo("https://x/p.jpg"),
			want: []DownloadJob{{URL: "https://x/p.jpg", Filename: "instagram_C1.jpg", MediaID: "C1"}},
		},
		{
			name: "video",
			d:    media.Video("https://x/v.mp4", "instagram_C1.mp4", "instagram_C1_audio"),
			want: []DownloadJob{{URL: "https://x/v.mp4", Filename: "instagram_C1.mp4", MediaID: "C1"}},
		},
		{
			name: "carousel",
			d: media.Carousel([]media.Item{
				{Type: media.ItemPhoto, URL: "https://x/1.jpg"},
				{Type: media.ItemVideo, URL: "https://x/2.mp4"},
			}),
			want: []DownloadJob{
				{URL: "https://x/1.jpg", Filename: "instagram_C1_1.jpg", MediaID: "C1"},
				{URL: "https://x/2.mp4", Filename: "instagram_C1_2.mp4", MediaID: "C1"},
			},
		},
		{
			name: "failure",
			d:    media.Fail(media.ErrorEmptyDownload),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JobsFor(tt.d, "C1")
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("JobsFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPoolWritesThroughStorage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("bytes of " + r.URL.Path))
	}))
	defer server.Close()

	store, err := storage.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	fetcher := NewHTTPFetcher(server.Client(), "igfetch-test", nil, nil)
	pool := NewWorkerPool(2, fetcher, store, nil, logger.NewNopLogger())

	results := pool.Run(context.Background(), []DownloadJob{
		{URL: server.URL + "/a.jpg", Filename: "a.jpg"},
		{URL: server.URL + "/missing.jpg", Filename: "missing.jpg"},
	})

	byName := map[string]DownloadResult{}
	for _, r := range results {
		byName[r.Job.Filename] = r
	}

	if !byName["a.jpg"].Success || byName["a.jpg"].Size != int64(len("bytes of /a.jpg")) {
		t.Errorf("Unexpected result for a.jpg: %+v", byName["a.jpg"])
	}
	if errs.TypeOf(byName["missing.jpg"].Error) != errs.ErrorTypeNotFound {
		t.Errorf("Expected not_found error, got %v", byName["missing.jpg"].Error)
	}
	if !store.Exists("a.jpg") || store.Exists("missing.jpg") {
		t.Error("Storage state does not match results")
	}
}

func TestHTTPFetcherRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("User-Agent") != "igfetch-test" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client(), "igfetch-test", &retry.Config{
		MaxAttempts: 2,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
	}, nil)

	body, err := fetcher.Fetch(context.Background(), server.URL+"/v.mp4")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != "ok" {
		t.Errorf("Expected body ok, got %q", data)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}
