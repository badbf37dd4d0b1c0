// Package downloader drives the download run: it turns resolved track
// descriptors into jobs with deterministic target paths, skips work that is
// already on disk, and executes the rest on a bounded worker pool with
// per-job retry accounting.
package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/sync/semaphore"

	"daytrip/internal/interfaces"
	"daytrip/internal/naming"
	"daytrip/internal/shared"
)

const (
	defaultParallelism = 4
	initialRetryDelay  = 1 * time.Second
	maxRetryDelay      = 30 * time.Second

	barTemplate = `{{ string . "prefix" }} {{ bar . }} {{ percent . }} | {{ speed . "%s/s" }}`
)

// Job is one track's fetch-encode-write unit of work.
type Job struct {
	Track       shared.TrackDescriptor
	TargetPath  string
	Format      shared.OutputFormat
	Attempts    int
	MaxAttempts int
}

// Options carries the job-agnostic run configuration. It is read-only once
// the pool starts.
type Options struct {
	Location     string // destination folder
	SingleFile   string // explicit file name, only for single-track targets
	Format       shared.OutputFormat
	NameTemplate string
	Cleanups     []*regexp.Regexp
	Force        bool
	MaxTries     int
	Parallelism  int
	Debug        bool

	// Retry pacing, overridable in tests.
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
}

// Orchestrator coordinates a download run against the streaming and encoding
// collaborators.
type Orchestrator struct {
	svc  interfaces.StreamingService
	enc  interfaces.Encoder
	opts Options
}

// New creates an Orchestrator, applying defaults for unset options.
func New(svc interfaces.StreamingService, enc interfaces.Encoder, opts Options) *Orchestrator {
	if opts.Location == "" {
		opts.Location = "."
	}
	if opts.Format == "" {
		opts.Format = shared.FormatOpus
	}
	if opts.NameTemplate == "" {
		opts.NameTemplate = "%a - %t"
	}
	if opts.MaxTries < 1 {
		opts.MaxTries = 1
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = defaultParallelism
	}
	if opts.InitialRetryDelay <= 0 {
		opts.InitialRetryDelay = initialRetryDelay
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = maxRetryDelay
	}
	return &Orchestrator{svc: svc, enc: enc, opts: opts}
}

// Run downloads every track in the collection and returns the run summary.
// A single track's failure never aborts the batch; cancellation stops new
// jobs, lets in-flight jobs unwind, and reports the rest as failed.
func (o *Orchestrator) Run(ctx context.Context, coll *shared.Collection) (*shared.DownloadStats, error) {
	stats := &shared.DownloadStats{}

	// Member lookups that already failed during the metadata fetch.
	for _, fail := range coll.Failed {
		stats.FailedCount++
		stats.FailedItems = append(stats.FailedItems, fmt.Sprintf("%s: %v", fail.Title, fail.Err))
	}

	jobs, err := o.buildJobs(coll, stats)
	if err != nil {
		return stats, err
	}
	if len(jobs) == 0 {
		return stats, nil
	}

	var pool *pb.Pool
	bars := make([]*pb.ProgressBar, len(jobs))
	if shared.IsTTY() && !o.opts.Debug {
		pool, err = pb.StartPool()
		if err != nil {
			shared.ColorError.Printf("❌ Failed to start progress bar pool: %v\n", err)
			pool = nil // continue without bars
		} else {
			for i, job := range jobs {
				bar := pb.New(0)
				bar.SetTemplateString(barTemplate)
				bar.Set("prefix", fmt.Sprintf("%-40s", shared.TruncateString(job.Track.Title, 40)))
				bars[i] = bar
				pool.Add(bar)
			}
		}
	}

	var (
		wg        sync.WaitGroup
		sem       = semaphore.NewWeighted(int64(o.opts.Parallelism))
		errorChan = make(chan shared.TrackError, len(jobs))
		cancelled bool
	)

	for i, job := range jobs {
		// Acquire alone is not enough: it succeeds without consulting the
		// context while pool capacity is free, so check cancellation first.
		err := ctx.Err()
		if err == nil {
			err = sem.Acquire(ctx, 1)
		}
		if err != nil {
			// Run cancelled: stop issuing jobs and report the rest.
			cancelled = true
			for _, rest := range jobs[i:] {
				errorChan <- shared.TrackError{Title: rest.Track.Title, Err: shared.ErrDownloadCancelled}
			}
			break
		}

		wg.Add(1)
		go func(job *Job, bar *pb.ProgressBar) {
			defer wg.Done()
			defer sem.Release(1)

			if err := o.downloadJob(ctx, job, bar); err != nil {
				errorChan <- shared.TrackError{Title: job.Track.Title, Err: err}
				return
			}
			shared.DebugPrint(o.opts.Debug, "downloaded %s after %d attempt(s)", job.TargetPath, job.Attempts)
		}(job, bars[i])
	}

	wg.Wait()
	if pool != nil {
		pool.Stop()
	}
	close(errorChan)

	for fail := range errorChan {
		stats.FailedCount++
		stats.FailedItems = append(stats.FailedItems, fmt.Sprintf("%s: %v", fail.Title, fail.Err))
	}
	stats.SuccessCount = len(jobs) - (stats.FailedCount - len(coll.Failed))

	if cancelled {
		return stats, shared.ErrDownloadCancelled
	}
	return stats, nil
}

// buildJobs computes target paths, applies the skip policy, and resolves
// name collisions before any job starts, so at most one writer ever targets
// a path. Colliding names are disambiguated by appending the track id.
func (o *Orchestrator) buildJobs(coll *shared.Collection, stats *shared.DownloadStats) ([]*Job, error) {
	dir := o.opts.Location
	if coll.Title != "" {
		dir = filepath.Join(dir, naming.FolderName(coll.Title, coll.ID, o.opts.Cleanups))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	used := make(map[string]bool)
	var jobs []*Job
	for _, track := range coll.Tracks {
		name := naming.FileName(track, o.opts.NameTemplate, o.opts.Cleanups, o.opts.Format)
		if o.opts.SingleFile != "" && len(coll.Tracks) == 1 {
			name = o.opts.SingleFile
		}

		path := filepath.Join(dir, name)
		if used[path] {
			ext := filepath.Ext(path)
			path = strings.TrimSuffix(path, ext) + " [" + track.ID + "]" + ext
		}
		used[path] = true

		if shared.FileExists(path) && !o.opts.Force {
			stats.SkippedCount++
			shared.ColorWarning.Printf("⏭️  Skipping %s (already exists)\n", filepath.Base(path))
			continue
		}

		jobs = append(jobs, &Job{
			Track:       track,
			TargetPath:  path,
			Format:      o.opts.Format,
			MaxAttempts: o.opts.MaxTries,
		})
	}
	return jobs, nil
}

// downloadJob streams and encodes one track. Output goes to a temporary
// name and is only renamed to the target path on success, so a cancelled or
// failed job never leaves a finalized partial file.
func (o *Orchestrator) downloadJob(ctx context.Context, job *Job, bar *pb.ProgressBar) error {
	tmp := job.TargetPath + ".part"

	attempts, err := shared.RetryWithBackoff(ctx, job.MaxAttempts, o.opts.InitialRetryDelay, o.opts.MaxRetryDelay, func() error {
		stream, err := o.svc.OpenStream(ctx, job.Track.ID)
		if err != nil {
			return err
		}
		defer stream.Close()

		var audio io.Reader = stream
		if bar != nil {
			bar.SetCurrent(0)
			audio = bar.NewProxyReader(stream)
		}

		if err := o.enc.Encode(ctx, audio, job.Format, tmp); err != nil {
			os.Remove(tmp)
			return err
		}
		return nil
	})
	job.Attempts = attempts
	if err != nil {
		os.Remove(tmp)
		return &shared.DownloadError{Track: job.Track.Title, Err: err}
	}

	if err := os.Rename(tmp, job.TargetPath); err != nil {
		os.Remove(tmp)
		return &shared.DownloadError{Track: job.Track.Title, Err: err}
	}
	return nil
}
