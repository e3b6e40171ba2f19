package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskweave/taskweave/pkg/conditions"
	"github.com/taskweave/taskweave/pkg/eventbus"
	"github.com/taskweave/taskweave/pkg/events"
	"github.com/taskweave/taskweave/pkg/history"
	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/otelhelper"
	"github.com/taskweave/taskweave/pkg/registry"
	"github.com/taskweave/taskweave/pkg/variables"
)

// Reserved parameter names injected before dispatch so executors that
// need engine coordination (user input) can identify their step.
const (
	ExecutionIDParam = "execution_id"
	StepIDParam      = "step_id"
)

// Execution is one run of a workflow definition: the state machine
// idle -> running -> {paused <-> running} -> {completed|cancelled|failed}.
// paused and running are the only reversible pair; every other transition
// is terminal. The execution context it owns is never touched from
// outside the step loop.
type Execution struct {
	id       string
	workflow *models.Workflow
	store    *variables.Store

	registry   *registry.Registry
	probes     conditions.Probes
	historyLog history.Store
	bus        eventbus.EventBus
	tracer     trace.Tracer
	inputs     *InputCoordinator
	supervisor *Supervisor
	logger     *slog.Logger
	onFinish   func(*Execution)

	cancelRun context.CancelFunc
	done      chan struct{}

	mu             sync.Mutex
	status         models.ExecutionStatus
	index          int
	stepResults    []models.StepResult
	completedSteps int
	runErr         string
	resumeCh       chan struct{}
	startedAt      time.Time
	result         *models.ExecutionResult
}

func (e *Execution) ID() string { return e.id }

func (e *Execution) WorkflowID() string { return e.workflow.ID }

func (e *Execution) Status() models.ExecutionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.status
}

// Done is closed once the execution reaches a terminal state and its
// result has been recorded.
func (e *Execution) Done() <-chan struct{} { return e.done }

// Result returns the terminal execution result, or nil while the run is
// still in flight.
func (e *Execution) Result() *models.ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.result
}

// Pause requests a cooperative pause. It is only legal while running and
// takes effect at the next step boundary: an in-flight attempt finishes
// its current try, but no new attempt or step starts.
func (e *Execution) Pause() error {
	e.mu.Lock()

	if e.status != models.ExecutionStatusRunning {
		status := e.status
		e.mu.Unlock()

		return fmt.Errorf("%w: cannot pause while %s", ErrInvalidTransition, status)
	}

	e.status = models.ExecutionStatusPaused
	e.resumeCh = make(chan struct{})
	index := e.index
	e.mu.Unlock()

	e.logger.Info("Execution paused", "step_index", index)
	e.publish(context.Background(), events.ExecutionPaused{
		BaseEvent: events.NewBaseEvent(events.ExecutionPausedEvent, e.workflow.ID, e.id),
		StepIndex: index,
	})

	return nil
}

// Resume re-enters the step loop at the same index. Only legal while
// paused.
func (e *Execution) Resume() error {
	e.mu.Lock()

	if e.status != models.ExecutionStatusPaused {
		status := e.status
		e.mu.Unlock()

		return fmt.Errorf("%w: cannot resume while %s", ErrInvalidTransition, status)
	}

	e.status = models.ExecutionStatusRunning
	close(e.resumeCh)
	e.resumeCh = nil
	index := e.index
	e.mu.Unlock()

	e.logger.Info("Execution resumed", "step_index", index)
	e.publish(context.Background(), events.ExecutionResumed{
		BaseEvent: events.NewBaseEvent(events.ExecutionResumedEvent, e.workflow.ID, e.id),
		StepIndex: index,
	})

	return nil
}

// Cancel aborts the run. Legal from running or paused; it interrupts an
// in-flight step attempt without waiting for its timeout and never
// surfaces an error to the caller beyond transition legality.
func (e *Execution) Cancel() error {
	e.mu.Lock()

	if e.status.Terminal() {
		status := e.status
		e.mu.Unlock()

		return fmt.Errorf("%w: cannot cancel while %s", ErrInvalidTransition, status)
	}

	if e.resumeCh != nil {
		close(e.resumeCh)
		e.resumeCh = nil
	}

	e.status = models.ExecutionStatusCancelled
	cancel := e.cancelRun
	e.mu.Unlock()

	e.logger.Info("Execution cancel requested")

	if cancel != nil {
		cancel()
	}

	return nil
}

// ProvideInput delivers the external value a user-input step of this
// execution is suspended on.
func (e *Execution) ProvideInput(stepID string, value any) error {
	return e.inputs.Provide(e.id, stepID, value)
}

// gate blocks while the execution is paused and reports ErrCancelled once
// it is cancelled. The supervisor consults it before every attempt so a
// pause also stops retries of the current step.
func (e *Execution) gate(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		e.mu.Lock()
		status := e.status
		resumeCh := e.resumeCh
		e.mu.Unlock()

		switch status {
		case models.ExecutionStatusRunning:
			return nil
		case models.ExecutionStatusPaused:
			select {
			case <-resumeCh:
			case <-ctx.Done():
				return ErrCancelled
			}
		default:
			return ErrCancelled
		}
	}
}

func (e *Execution) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	ctx, span := e.startRunSpan(ctx)
	defer span.End()

	e.mu.Lock()
	e.cancelRun = cancel
	e.startedAt = time.Now().UTC()

	// Cancel can land between StartExecution returning and this goroutine
	// taking the lock. An accepted cancel must stick: never overwrite a
	// terminal status with running.
	if e.status.Terminal() {
		e.mu.Unlock()
		e.finalize(span)

		return
	}

	e.status = models.ExecutionStatusRunning
	e.mu.Unlock()

	e.logger.Info("Execution started", "total_steps", len(e.workflow.Steps))
	e.publish(ctx, events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, e.workflow.ID, e.id),
		WorkflowName: e.workflow.Name,
		TotalSteps:   len(e.workflow.Steps),
		Variables:    e.store.Snapshot(),
	})

	for {
		// Step boundary: observe pause and cancel before anything starts.
		if err := e.gate(ctx); err != nil {
			break
		}

		e.mu.Lock()
		index := e.index
		e.mu.Unlock()

		if index >= len(e.workflow.Steps) {
			break
		}

		step := e.workflow.Steps[index]

		if !conditions.Evaluate(step.Condition, e.store, e.probes, e.logger) {
			e.recordSkip(ctx, step, index)

			continue
		}

		e.publish(ctx, events.StepStarted{
			BaseEvent: events.NewBaseEvent(events.StepStartedEvent, e.workflow.ID, e.id),
			StepID:    step.ID,
			StepName:  step.Name,
			StepType:  step.Type,
			StepIndex: index,
		})

		result := e.runStep(ctx, step)

		e.mu.Lock()
		e.stepResults = append(e.stepResults, result)
		e.index++

		if result.Success() {
			e.completedSteps++
		} else if !step.ContinueOnError && !e.status.Terminal() {
			e.status = models.ExecutionStatusFailed
			e.runErr = result.Error
		}

		failed := e.status == models.ExecutionStatusFailed
		e.mu.Unlock()

		e.publish(ctx, events.StepFinished{
			BaseEvent:  events.NewBaseEvent(events.StepFinishedEvent, e.workflow.ID, e.id),
			StepID:     step.ID,
			StepName:   step.Name,
			Status:     result.Status,
			Retries:    result.Retries,
			DurationMs: result.Duration.Milliseconds(),
			Error:      result.Error,
		})

		if failed {
			break
		}
	}

	e.finalize(span)
}

// runStep interpolates parameters, dispatches to the registered executor
// through the supervisor and merges declared outputs into the store.
func (e *Execution) runStep(ctx context.Context, step *models.Step) models.StepResult {
	ctx, span := e.startStepSpan(ctx, step)
	defer span.End()

	params := e.store.InterpolateParams(step.Parameters)
	if params == nil {
		params = make(map[string]any)
	}

	params[ExecutionIDParam] = e.id
	params[StepIDParam] = step.ID

	executor, err := e.registry.CreateExecutor(step.Type, params)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.StepResult{
			StepID:   step.ID,
			StepName: step.Name,
			Status:   models.StepStatusFailed,
			Error:    err.Error(),
		}
	}

	stepLogger := e.logger.With("step_id", step.ID, "step_type", string(step.Type))

	result := e.supervisor.Run(ctx, step, func(ctx context.Context) (map[string]any, error) {
		return executor.Execute(ctx, params, stepLogger)
	})

	if result.Success() {
		if name, ok := step.OutputVariable(); ok {
			e.store.Set(name, outputValue(result.Output))
		}
	} else {
		otelhelper.SetError(span, fmt.Errorf("%s", result.Error))
	}

	return result
}

func (e *Execution) recordSkip(ctx context.Context, step *models.Step, index int) {
	e.logger.Info("Step condition evaluated false, skipping", "step_id", step.ID)

	e.mu.Lock()
	e.stepResults = append(e.stepResults, models.StepResult{
		StepID:   step.ID,
		StepName: step.Name,
		Status:   models.StepStatusSkipped,
	})
	e.index++
	e.mu.Unlock()

	e.publish(ctx, events.StepSkipped{
		BaseEvent: events.NewBaseEvent(events.StepSkippedEvent, e.workflow.ID, e.id),
		StepID:    step.ID,
		StepName:  step.Name,
		StepIndex: index,
	})
}

// finalize folds the execution context into an immutable ExecutionResult,
// hands it to the history store and publishes the terminal event. Every
// terminal state produces a result; the caller is never left without one.
func (e *Execution) finalize(span trace.Span) {
	e.mu.Lock()

	if !e.status.Terminal() {
		e.status = models.ExecutionStatusCompleted
	}

	result := &models.ExecutionResult{
		ExecutionID:    e.id,
		WorkflowID:     e.workflow.ID,
		Status:         e.status,
		StartedAt:      e.startedAt,
		Duration:       time.Since(e.startedAt),
		CompletedSteps: e.completedSteps,
		TotalSteps:     len(e.workflow.Steps),
		Error:          e.runErr,
		StepResults:    append([]models.StepResult(nil), e.stepResults...),
	}
	e.result = result
	e.mu.Unlock()

	// The run context may already be cancelled; recording the result and
	// the terminal event must still happen.
	ctx := context.Background()

	if err := e.historyLog.Append(ctx, result); err != nil {
		e.logger.Error("Failed to append execution result to history", "error", err)
	}

	span.SetAttributes(attribute.String(otelhelper.StatusKey, string(result.Status)))

	finished := events.ExecutionFinished{
		Status:         result.Status,
		DurationMs:     result.Duration.Milliseconds(),
		CompletedSteps: result.CompletedSteps,
		TotalSteps:     result.TotalSteps,
		Error:          result.Error,
	}
	finished.BaseEvent = events.NewBaseEvent(finished.GetType(), e.workflow.ID, e.id)
	e.publish(ctx, finished)

	e.logger.Info("Execution finished",
		"status", string(result.Status),
		"completed_steps", result.CompletedSteps,
		"total_steps", result.TotalSteps,
		"duration", result.Duration,
	)

	if e.onFinish != nil {
		e.onFinish(e)
	}

	close(e.done)
}

func (e *Execution) publish(ctx context.Context, event events.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, e.workflow.ID, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", string(event.GetType()), "error", err)
	}
}

func (e *Execution) startRunSpan(ctx context.Context) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return e.tracer.Start(ctx, "workflow.execute", trace.WithAttributes(
		attribute.String(otelhelper.WorkflowIDKey, e.workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, e.id),
	))
}

func (e *Execution) startStepSpan(ctx context.Context, step *models.Step) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return e.tracer.Start(ctx, "workflow.step", trace.WithAttributes(
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepTypeKey, string(step.Type)),
	))
}

// outputValue unwraps single-entry {"value": ...} outputs so simple
// executors store a scalar rather than a one-key map.
func outputValue(output map[string]any) any {
	if v, ok := output["value"]; ok && len(output) == 1 {
		return v
	}

	return output
}
