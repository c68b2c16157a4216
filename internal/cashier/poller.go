package cashier

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Poller periodically reconciles pending payouts
type Poller struct {
	cashier  *Cashier
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller creates a Poller sweeping every interval
func NewPoller(c *Cashier, interval time.Duration) *Poller {
	return &Poller{cashier: c, interval: interval}
}

// Start runs a sweep immediately and then on every tick until Stop or ctx ends
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.run(ctx, p.done)
	logrus.WithField("interval", p.interval.String()).Info("Payout poller started")
}

// Stop ends the loop and waits for an in-flight sweep to finish
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.running = false
	done := p.done
	p.mu.Unlock()

	<-done
	logrus.Info("Payout poller stopped")
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.sweep(ctx)
	for {
		select {
		case <-ticker.C:
			p.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	settled, err := p.cashier.ReconcilePayouts(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Payout reconciliation incomplete")
	}
	if settled > 0 {
		logrus.WithField("settled", settled).Info("Payouts reconciled")
	}
}
