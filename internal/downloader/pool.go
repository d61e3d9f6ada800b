package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"igfetch/pkg/logger"
	"igfetch/pkg/ratelimit"
)

// ErrPoolStopped is returned when submitting to a pool that is shutting down
var ErrPoolStopped = errors.New("worker pool is shutting down")

// DownloadJob represents a single file to fetch
type DownloadJob struct {
	URL      string
	Filename string
	MediaID  string
}

// DownloadResult represents the result of a download job
type DownloadResult struct {
	Job      DownloadJob
	Path     string
	Skipped  bool
	Success  bool
	Error    error
	Duration time.Duration
	Size     int64
}

// Fetcher opens a media URL for reading
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Storage persists fetched files
type Storage interface {
	Exists(filename string) bool
	Save(r io.Reader, filename string) (string, error)
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DownloadJob
	resultQueue chan DownloadResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     Fetcher
	storage     Storage
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
	stopOnce    sync.Once
}

// NewWorkerPool creates a new download worker pool. rateLimiter may be nil.
func NewWorkerPool(
	numWorkers int,
	fetcher Fetcher,
	storage Storage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan DownloadJob, numWorkers*2),
		resultQueue: make(chan DownloadResult, numWorkers),
		fetcher:     fetcher,
		storage:     storage,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start starts all workers. Cancelling ctx abandons queued jobs.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.ctx, wp.cancel = context.WithCancel(ctx)

	wp.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for queued jobs to finish and closes the result channel
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		wp.logger.Debug("Stopping worker pool")

		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()

		wp.logger.Debug("Worker pool stopped")
	})
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job DownloadJob) error {
	select {
	case <-wp.ctx.Done():
		return ErrPoolStopped
	default:
	}

	select {
	case wp.jobQueue <- job:
		wp.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
			"filename": job.Filename,
		})
		return nil
	case <-wp.ctx.Done():
		return ErrPoolStopped
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

// Run downloads jobs and returns one result per processed job. Jobs not
// reached before ctx is cancelled produce no result.
func (wp *WorkerPool) Run(ctx context.Context, jobs []DownloadJob) []DownloadResult {
	wp.Start(ctx)

	go func() {
		defer wp.Stop()
		for _, job := range jobs {
			if err := wp.Submit(job); err != nil {
				return
			}
		}
	}()

	results := make([]DownloadResult, 0, len(jobs))
	for result := range wp.Results() {
		results = append(results, result)
	}
	return results
}

// worker is the main worker routine
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		if wp.ctx.Err() != nil {
			continue
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
		}
	}
}

// processJob handles a single download job
func (wp *WorkerPool) processJob(job DownloadJob, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}
	log := wp.logger.WithFields(map[string]interface{}{
		"worker_id": workerID,
		"filename":  job.Filename,
	})

	if wp.storage.Exists(job.Filename) {
		log.Debug("File already downloaded")
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	if wp.rateLimiter != nil {
		if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
			result.Error = err
			result.Duration = time.Since(start)
			return result
		}
	}

	body, err := wp.fetcher.Fetch(wp.ctx, job.URL)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)
		log.WithError(err).Error("Worker failed to download file")
		return result
	}
	defer body.Close()

	counter := &countingReader{r: body}
	path, err := wp.storage.Save(counter, job.Filename)
	result.Size = counter.n
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		log.WithError(err).Error("Worker failed to save file")
		return result
	}

	result.Path = path
	result.Success = true
	result.Duration = time.Since(start)

	log.DebugWithFields("Worker completed job successfully", map[string]interface{}{
		"size":     result.Size,
		"duration": result.Duration,
	})

	return result
}

// countingReader tracks how many bytes pass through it
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
