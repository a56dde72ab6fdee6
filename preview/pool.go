package preview

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	jobPending int32 = iota
	jobDelivered
	jobAbandoned
)

type result struct {
	preview *Preview
	err     error
}

type job struct {
	ctx    context.Context
	url    string
	state  atomic.Int32
	result chan result
}

// Pool runs resolutions on a fixed set of workers so slow fetches and
// renders never run on request goroutines. Every job has a hard deadline
// measured from submission.
type Pool struct {
	resolver Resolver
	assets   *AssetStore
	workers  int
	timeout  time.Duration
	logger   *zap.Logger

	jobs     chan *job
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPool creates a pool; call Start to launch the workers.
func NewPool(resolver Resolver, assets *AssetStore, workers int, timeout time.Duration, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		resolver: resolver,
		assets:   assets,
		workers:  workers,
		timeout:  timeout,
		logger:   logger.Named("preview"),
		jobs:     make(chan *job, workers*4),
		quit:     make(chan struct{}),
	}
}

// Start launches the workers. They exit when ctx is done or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("preview pool started",
		zap.String("strategy", p.resolver.Name()),
		zap.Int("workers", p.workers),
		zap.Duration("timeout", p.timeout))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
		p.logger.Info("preview pool stopped")
	})
}

// Resolve submits url and waits for the preview, the job deadline, the
// caller's ctx or Stop, whichever comes first. A preview produced after the
// caller gave up is deleted.
func (p *Pool) Resolve(ctx context.Context, url string) (*Preview, error) {
	jctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	j := &job{ctx: jctx, url: url, result: make(chan result, 1)}
	select {
	case p.jobs <- j:
	case <-p.quit:
		return nil, ErrPoolStopped
	case <-jctx.Done():
		return nil, p.abandonErr(ctx, url)
	}

	var stopErr error
	select {
	case r := <-j.result:
		return r.preview, r.err
	case <-jctx.Done():
		stopErr = p.abandonErr(ctx, url)
	case <-p.quit:
		stopErr = ErrPoolStopped
	}
	if j.state.CompareAndSwap(jobPending, jobAbandoned) {
		return nil, stopErr
	}
	// The worker delivered first.
	r := <-j.result
	return r.preview, r.err
}

func (p *Pool) abandonErr(ctx context.Context, url string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return timeoutErr(p.resolver.Name(), url, p.timeout)
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case j := <-p.jobs:
			p.process(j)
		}
	}
}

func (p *Pool) process(j *job) {
	if j.ctx.Err() != nil {
		j.state.CompareAndSwap(jobPending, jobAbandoned)
		return
	}

	start := time.Now()
	preview, err := p.resolver.Resolve(j.ctx, j.url)

	if !j.state.CompareAndSwap(jobPending, jobDelivered) {
		if preview != nil && p.assets != nil {
			if rmErr := p.assets.Remove(preview.PicturePath); rmErr != nil {
				p.logger.Warn("remove abandoned preview", zap.String("file", preview.PicturePath), zap.Error(rmErr))
			}
		}
		p.logger.Debug("preview abandoned by caller", zap.String("url", j.url))
		return
	}

	if err != nil {
		p.logger.Info("preview failed", zap.String("url", j.url), zap.Duration("took", time.Since(start)), zap.Error(err))
	} else {
		p.logger.Debug("preview resolved", zap.String("url", j.url), zap.String("file", preview.PicturePath), zap.Duration("took", time.Since(start)))
	}
	j.result <- result{preview: preview, err: err}
}

func timeoutErr(strategy, url string, timeout time.Duration) error {
	if strategy == StrategyScreenshot {
		return fmt.Errorf("%w: %s after %s", ErrRenderTimeout, url, timeout)
	}
	return fmt.Errorf("%w: %s timed out after %s", ErrDownloadFailed, url, timeout)
}
