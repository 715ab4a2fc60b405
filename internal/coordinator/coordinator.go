// Package coordinator runs conversions with bounded parallelism and drives operator-gated retry rounds.
package coordinator

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"ytmp3/internal/entity"
	"ytmp3/internal/observability"
)

// State is a phase of a run.
type State int

const (
	// StateRunning converts the current batch.
	StateRunning State = iota
	// StateAwaitingDecision waits for the operator after a batch left failures.
	StateAwaitingDecision
	// StateRetrying turns the failures into the next batch.
	StateRetrying
	// StateDone ends the run.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateAwaitingDecision:
		return "awaiting_decision"
	case StateRetrying:
		return "retrying"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Converter converts a single item.
type Converter interface {
	Convert(ctx context.Context, item entity.Item) entity.Outcome
}

// Decider decides whether failed items get another round.
type Decider interface {
	AskRetry(ctx context.Context, failures []entity.FailureRecord) (bool, error)
}

// Presenter receives per-item progress.
type Presenter interface {
	Downloading(item entity.Item, started, total int)
	Failed(rec entity.FailureRecord)
}

// Report is the result of a run.
type Report struct {
	Succeeded []entity.Outcome
	// Failures holds the items still failing when the run ended, in batch order.
	Failures []entity.FailureRecord
	// Rounds counts conversion batches, the first one included.
	Rounds int
	// Stopped is set when cancellation or a decider error ended the run early.
	Stopped error
}

// Coordinator dispatches items to a Converter.
type Coordinator struct {
	log       *slog.Logger
	workers   int
	converter Converter
	decider   Decider
	presenter Presenter
	metrics   *observability.Metrics
}

// New creates a coordinator running at most workers conversions at a time.
// A nil decider never retries. presenter and metrics may be nil.
func New(log *slog.Logger,
	workers int,
	converter Converter,
	decider Decider,
	presenter Presenter,
	metrics *observability.Metrics,
) *Coordinator {
	return &Coordinator{
		log:       log.With(slog.String("package", "coordinator")),
		workers:   max(workers, 1),
		converter: converter,
		decider:   decider,
		presenter: presenter,
		metrics:   metrics,
	}
}

// Run converts items and repeats failed ones for as long as the decider approves.
// It returns once every item succeeded, the decider declines, or ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, items []entity.Item) Report {
	var (
		report Report
		batch  = items
		failed []entity.FailureRecord
	)

	state := StateRunning

	for state != StateDone {
		c.log.DebugContext(ctx, "state", slog.String("state", state.String()), slog.Int("batch", len(batch)))

		switch state {
		case StateRunning:
			report.Rounds++

			var ok []entity.Outcome

			ok, failed = c.runBatch(ctx, batch)
			report.Succeeded = append(report.Succeeded, ok...)

			switch {
			case len(failed) == 0:
				state = StateDone
			case ctx.Err() != nil:
				report.Stopped = ctx.Err()
				state = StateDone
			default:
				state = StateAwaitingDecision
			}

		case StateAwaitingDecision:
			state = c.decide(ctx, failed, &report)

		case StateRetrying:
			c.metrics.RecordRetryRound()

			batch = entity.Items(failed)
			state = StateRunning
		}
	}

	report.Failures = failed

	c.log.InfoContext(ctx, "run finished",
		slog.Int("succeeded", len(report.Succeeded)),
		slog.Int("failed", len(report.Failures)),
		slog.Int("rounds", report.Rounds))

	return report
}

func (c *Coordinator) decide(ctx context.Context, failed []entity.FailureRecord, report *Report) State {
	if c.decider == nil {
		return StateDone
	}

	retry, err := c.decider.AskRetry(ctx, failed)
	if err != nil {
		c.log.WarnContext(ctx, "retry decision failed", slog.Any("error", err))
		report.Stopped = err

		return StateDone
	}

	if !retry {
		return StateDone
	}

	return StateRetrying
}

// runBatch converts batch with bounded parallelism.
// Items not started before ctx is cancelled are reported as failed.
func (c *Coordinator) runBatch(ctx context.Context, batch []entity.Item) ([]entity.Outcome, []entity.FailureRecord) {
	var (
		g        errgroup.Group
		failures entity.FailureSet
		started  atomic.Int32
	)

	succeeded := make([]*entity.Outcome, len(batch))

	g.SetLimit(c.workers)

	for pos, item := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures.Add(entity.FailureRecord{
					Item: item, Reason: entity.ReasonDownloadFailed, Err: err, Position: pos,
				})

				return nil
			}

			if c.presenter != nil {
				c.presenter.Downloading(item, int(started.Add(1)), len(batch))
			}

			done := c.metrics.ItemTimer()
			out := c.converter.Convert(ctx, item)

			done()

			if out.OK() {
				succeeded[pos] = &out

				return nil
			}

			rec := entity.FailureRecord{Item: item, Reason: out.Reason, Err: out.Err, Position: pos}
			failures.Add(rec)

			if c.presenter != nil {
				c.presenter.Failed(rec)
			}

			return nil
		})
	}

	_ = g.Wait()

	ok := make([]entity.Outcome, 0, len(batch)-failures.Len())
	for _, out := range succeeded {
		if out != nil {
			ok = append(ok, *out)
		}
	}

	return ok, failures.Records()
}
