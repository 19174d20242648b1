package remind

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aerth/remindbot/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrWorkerRunning is returned by Run while another Run is active
var ErrWorkerRunning = errors.New("remind: worker already running")

// Network is what the worker needs from the IRC connection
type Network interface {
	// Whois asks the server about nicks. Each nick that exists is answered
	// later with RPL_WHOISUSER, which should be passed to Worker.Confirmed.
	Whois(nicks ...string) error
	PrivMsg(to, text string) error
	Connected() bool
}

// WorkerConfig holds the delivery throttles. Zero values take the defaults.
type WorkerConfig struct {
	PollInterval time.Duration // between polls, default 5s
	BatchDelay   time.Duration // between WHOIS batches, default 5s
	MessageDelay time.Duration // between delivered reminders, default 1.5s
	BatchSize    int           // nicks per WHOIS, default 12
}

// Worker polls the store for due reminders and delivers them once the
// receiver is confirmed online.
type Worker struct {
	store   Store
	net     Network
	config  WorkerConfig
	logger  *zap.Logger
	running atomic.Bool
}

func NewWorker(store Store, net Network, cfg WorkerConfig, logger *zap.Logger) *Worker {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = 5 * time.Second
	}
	if cfg.MessageDelay == 0 {
		cfg.MessageDelay = 1500 * time.Millisecond
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 12
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		store:  store,
		net:    net,
		config: cfg,
		logger: logger,
	}
}

// Run polls until the connection drops or ctx is done. A new Run is
// expected after each reconnect.
func (w *Worker) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrWorkerRunning
	}
	defer w.running.Store(false)

	log := w.logger.With(zap.String("run", uuid.NewString()))
	log.Info("remind worker started")
	for {
		if !w.net.Connected() {
			log.Info("remind worker stopped, connection lost")
			return nil
		}
		if !w.poll(ctx, log) {
			break
		}
		if !sleep(ctx, w.config.PollInterval) {
			break
		}
	}
	log.Info("remind worker stopped", zap.Error(ctx.Err()))
	return ctx.Err()
}

// Running reports whether Run is active
func (w *Worker) Running() bool {
	return w.running.Load()
}

// poll runs one iteration, returning false if ctx was cancelled
func (w *Worker) poll(ctx context.Context, log *zap.Logger) bool {
	receivers, err := w.store.DueReceivers(ctx)
	if err != nil {
		log.Error("failed to get due receivers", zap.Error(err))
	}
	metrics.RecordPoll(len(receivers))

	for start := 0; start < len(receivers); start += w.config.BatchSize {
		if start > 0 && !sleep(ctx, w.config.BatchDelay) {
			return false
		}
		batch := receivers[start:min(start+w.config.BatchSize, len(receivers))]
		if err := w.net.Whois(batch...); err != nil {
			log.Warn("whois failed", zap.Strings("nicks", batch), zap.Error(err))
			continue
		}
		metrics.RecordWhois()
	}

	expired, err := w.store.SweepExpired(ctx)
	if err != nil {
		log.Error("failed to sweep expired reminders", zap.Error(err))
	} else if expired > 0 {
		log.Info("expired reminders removed", zap.Int64("count", expired))
		metrics.RecordRemoved(metrics.ReasonExpired, expired)
	}
	return ctx.Err() == nil
}

// Confirmed delivers every due reminder for nick, who the server has just
// reported as online. It returns how many were delivered.
func (w *Worker) Confirmed(ctx context.Context, nick string) int {
	reminders, err := w.store.DueForReceiver(ctx, nick)
	if err != nil {
		w.logger.Error("failed to get due reminders", zap.String("nick", nick), zap.Error(err))
		return 0
	}

	delivered := 0
	for i, r := range reminders {
		if i > 0 && !sleep(ctx, w.config.MessageDelay) {
			break
		}
		if !w.net.Connected() {
			break
		}
		ok, err := w.deliver(ctx, nick, r)
		if err != nil {
			metrics.RecordDeliveryFailure()
			w.logger.Error("failed to deliver reminder",
				zap.Int64("id", r.ID),
				zap.String("nick", nick),
				zap.Error(err),
			)
			continue
		}
		if ok {
			delivered++
		}
	}
	return delivered
}

// deliver removes r and sends it to nick. It returns false without error
// if r was already removed by someone else.
func (w *Worker) deliver(ctx context.Context, nick string, r Reminder) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ok, err = false, fmt.Errorf("panic: %v", p)
		}
	}()

	taken, err := w.store.Take(ctx, r.ID)
	if err != nil {
		return false, err
	}
	if !taken {
		w.logger.Debug("reminder already removed", zap.Int64("id", r.ID))
		return false, nil
	}
	metrics.RecordRemoved(metrics.ReasonDelivered, 1)

	if err := w.net.PrivMsg(nick, Header(r)); err != nil {
		return false, fmt.Errorf("send header: %w", err)
	}
	if err := w.net.PrivMsg(nick, r.Message); err != nil {
		return false, fmt.Errorf("send message: %w", err)
	}
	w.logger.Info("reminder delivered", zap.Int64("id", r.ID), zap.String("nick", nick))
	return true, nil
}

// sleep waits d, returning false if ctx is done first
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
