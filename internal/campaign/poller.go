package campaign

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PollerConfig holds configuration for the reply poller
type PollerConfig struct {
	// Interval is how often a reply batch runs
	Interval time.Duration
	// Timeout bounds a single batch
	Timeout time.Duration
}

// Poller runs the reply batch in the background on a fixed interval
type Poller struct {
	replies ReplyService
	config  PollerConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewPoller creates a new reply poller
func NewPoller(replies ReplyService, config PollerConfig, logger *slog.Logger) *Poller {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Minute
	}

	return &Poller{
		replies: replies,
		config:  config,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins polling
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	p.wg.Add(1)
	go p.pollLoop(stopCh)

	p.logger.Info("reply poller started", slog.Duration("interval", p.config.Interval))
}

// Stop waits for the running batch, if any, and stops polling
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("reply poller stopped")
}

// IsRunning returns whether the poller is currently running
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) pollLoop(stopCh <-chan struct{}) {
	defer p.wg.Done()

	// Run immediately on start
	p.runBatch(stopCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.runBatch(stopCh)
		}
	}
}

func (p *Poller) runBatch(stopCh <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()

	// Stop cancels a batch in progress.
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	results, err := p.replies.Run(ctx)
	if err != nil {
		p.logger.Error("reply batch failed", slog.Any("error", err))
		return
	}
	p.logger.Debug("reply batch polled", slog.Int("threads", len(results)))
}
