// Package orchestrator runs the property roster one property at a time,
// bounds each with a timeout, and delivers every record to the callback.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"taxsync/internal/logger"
	"taxsync/internal/models"
	"taxsync/internal/normalizer"
)

// Deliverer posts one record to the callback.
type Deliverer interface {
	Deliver(ctx context.Context, rec *models.TaxRecord) (models.DeliveryStatus, error)
	URL() string
}

// Options control a single run.
type Options struct {
	Timeout time.Duration
	DryRun  bool
}

// Orchestrator drives a sync run.
type Orchestrator struct {
	runner    Runner
	deliverer Deliverer
	logger    *logger.Logger
	out       io.Writer
	now       func() time.Time
	newID     func() string
}

// New creates an orchestrator. A nil deliverer disables the callback.
func New(runner Runner, deliverer Deliverer, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Discard()
	}

	return &Orchestrator{
		runner:    runner,
		deliverer: deliverer,
		logger:    log,
		out:       os.Stdout,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetOutput sets where dry-run lines are printed.
func (o *Orchestrator) SetOutput(w io.Writer) {
	o.out = w
}

// Run processes props in order and returns the finished run. Individual
// failures never abort it.
func (o *Orchestrator) Run(ctx context.Context, props []models.Property, opts Options) *models.SyncRun {
	run := &models.SyncRun{
		ID:        o.newID(),
		StartedAt: o.now().UTC(),
		DryRun:    opts.DryRun,
		Outcomes:  make([]*models.Outcome, 0, len(props)),
	}

	if o.deliverer != nil {
		run.CallbackURL = o.deliverer.URL()
	}

	for _, prop := range props {
		run.Outcomes = append(run.Outcomes, &models.Outcome{
			Property: prop,
			State:    models.StatePending,
			Delivery: models.DeliverySkipped,
			Command:  strings.Join(o.runner.Command(prop), " "),
		})
	}

	if opts.DryRun {
		o.logger.Info(fmt.Sprintf("🧪 Dry run: %d properties planned", len(props)))

		for _, outcome := range run.Outcomes {
			fmt.Fprintf(o.out, "would run: [%s] %s -> %s\n", outcome.Property.Provider, outcome.Property, outcome.Command)
		}

		run.CompletedAt = o.now().UTC()

		return run
	}

	o.logger.Info(fmt.Sprintf("🚀 Sync run %s: %d properties, timeout %s each", run.ID, len(props), opts.Timeout))

	for i, outcome := range run.Outcomes {
		o.logger.Info(fmt.Sprintf("[%d/%d] %s %s", i+1, len(props), outcome.Property.Provider, outcome.Property))
		o.scrape(ctx, outcome, opts.Timeout)
		run.Attempted++

		if outcome.State == models.StateSucceeded {
			run.Succeeded++
		}
	}

	if o.deliverer != nil && o.deliverer.URL() != "" {
		o.deliver(ctx, run)
	}

	run.CompletedAt = o.now().UTC()
	o.logger.Info(fmt.Sprintf("✨ Sync run %s complete: %d/%d succeeded", run.ID, run.Succeeded, run.Attempted))

	return run
}

// scrape moves outcome from PENDING through RUNNING to a terminal state.
func (o *Orchestrator) scrape(ctx context.Context, outcome *models.Outcome, timeout time.Duration) {
	outcome.State = models.StateRunning
	start := o.now()

	pctx := ctx
	cancel := context.CancelFunc(func() {})

	if timeout > 0 {
		pctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	rec, err := o.runner.Run(pctx, outcome.Property)
	outcome.Duration = o.now().Sub(start)

	timedOut := errors.Is(err, models.ErrTimeoutExceeded) ||
		((err != nil || rec == nil) && errors.Is(pctx.Err(), context.DeadlineExceeded))

	switch {
	case timedOut:
		outcome.State = models.StateTimedOut
		outcome.Record = normalizer.FailureRecord(outcome.Property, models.CodeTimeoutExceeded,
			fmt.Sprintf("%v after %s", models.ErrTimeoutExceeded, timeout), o.now())
		o.logger.Error(fmt.Sprintf("⏱️ %s timed out after %s", outcome.Property, timeout))
	case err != nil:
		outcome.State = models.StateFailed
		outcome.Record = normalizer.FailureRecord(outcome.Property, models.CodeFor(err), err.Error(), o.now())
		o.logger.Error(fmt.Sprintf("❌ %s failed: %v", outcome.Property, err))
	case rec == nil:
		outcome.State = models.StateFailed
		outcome.Record = normalizer.FailureRecord(outcome.Property, models.CodeWorkerFailure, ErrEmptyOutput.Error(), o.now())
		o.logger.Error(fmt.Sprintf("❌ %s produced no record", outcome.Property))
	case !rec.Success:
		outcome.State = models.StateFailed
		outcome.Record = rec
		o.logger.Warn(fmt.Sprintf("⚠️ %s: %s (%s)", outcome.Property, rec.Error, rec.ErrorCode))
	default:
		outcome.State = models.StateSucceeded
		outcome.Record = rec
		o.logger.Info(fmt.Sprintf("✅ %s in %s", outcome.Property, outcome.Duration.Round(time.Millisecond)))
	}
}

// deliver posts every record in roster order. Each post is independent.
func (o *Orchestrator) deliver(ctx context.Context, run *models.SyncRun) {
	o.logger.Info(fmt.Sprintf("📤 Delivering %d records to %s", len(run.Outcomes), o.deliverer.URL()))

	for _, outcome := range run.Outcomes {
		if outcome.Record == nil {
			continue
		}

		status, err := o.deliverer.Deliver(ctx, outcome.Record)
		outcome.Delivery = status

		if err != nil {
			outcome.DeliveryError = err.Error()
		}
	}
}
