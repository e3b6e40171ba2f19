package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskweave/taskweave/pkg/eventbus"
	"github.com/taskweave/taskweave/pkg/events"
	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
	"github.com/taskweave/taskweave/pkg/registry"
)

// fakeExecutor runs an arbitrary function and counts its calls.
type fakeExecutor struct {
	calls atomic.Int32
	fn    func(ctx context.Context, params map[string]any) (map[string]any, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, params map[string]any, _ *slog.Logger) (map[string]any, error) {
	f.calls.Add(1)

	if f.fn == nil {
		return map[string]any{}, nil
	}

	return f.fn(ctx, params)
}

type fakeFactory struct {
	stepType models.StepType
	executor protocol.StepExecutor
}

func (f *fakeFactory) Create(_ map[string]any) (protocol.StepExecutor, error) {
	return f.executor, nil
}

func (f *fakeFactory) ID() models.StepType { return f.stepType }

func newTestRegistry(executors map[models.StepType]protocol.StepExecutor) *registry.Registry {
	reg := registry.NewRegistry(testLogger())
	for stepType, executor := range executors {
		reg.RegisterExecutor(&fakeFactory{stepType: stepType, executor: executor})
	}

	return reg
}

func newTestManager(reg *registry.Registry) *Manager {
	return NewManager(Config{
		Registry:     reg,
		Logger:       testLogger(),
		RetryBackoff: time.Millisecond,
	})
}

func simpleStep(id string, stepType models.StepType) *models.Step {
	return &models.Step{
		ID:      id,
		Name:    id,
		Type:    stepType,
		Timeout: models.Duration(5 * time.Second),
	}
}

func testWorkflow(id string, steps ...*models.Step) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Name:    "workflow " + id,
		Steps:   steps,
		Enabled: true,
	}
}

func awaitResult(t *testing.T, execution *Execution) *models.ExecutionResult {
	t.Helper()

	select {
	case <-execution.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("execution did not finish in time")
	}

	result := execution.Result()
	require.NotNil(t, result)

	return result
}

func TestExecution_AllStepsComplete(t *testing.T) {
	executor := &fakeExecutor{}
	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeNotification: executor,
	})
	manager := newTestManager(reg)

	workflow := testWorkflow("wf-complete",
		simpleStep("s1", models.StepTypeNotification),
		simpleStep("s2", models.StepTypeNotification),
		simpleStep("s3", models.StepTypeNotification),
	)

	execution, err := manager.StartExecution(context.Background(), workflow, nil)
	require.NoError(t, err)

	result := awaitResult(t, execution)

	assert.Equal(t, models.ExecutionStatusCompleted, result.Status)
	assert.Equal(t, 3, result.CompletedSteps)
	assert.Equal(t, 3, result.TotalSteps)
	require.Len(t, result.StepResults, 3)

	// Results appear in definition order.
	assert.Equal(t, "s1", result.StepResults[0].StepID)
	assert.Equal(t, "s2", result.StepResults[1].StepID)
	assert.Equal(t, "s3", result.StepResults[2].StepID)
	assert.Equal(t, int32(3), executor.calls.Load())
}

func TestExecution_VariablePropagation(t *testing.T) {
	var received atomic.Value

	producer := &fakeExecutor{fn: func(_ context.Context, _ map[string]any) (map[string]any, error) {
		return map[string]any{"value": "from-step-one"}, nil
	}}
	consumer := &fakeExecutor{fn: func(_ context.Context, params map[string]any) (map[string]any, error) {
		received.Store(params["message"])

		return map[string]any{}, nil
	}}

	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeSystemQuery:  producer,
		models.StepTypeNotification: consumer,
	})
	manager := newTestManager(reg)

	step1 := simpleStep("s1", models.StepTypeSystemQuery)
	step1.Parameters = map[string]any{"outputVariable": "greeting"}

	step2 := simpleStep("s2", models.StepTypeNotification)
	step2.Parameters = map[string]any{"message": "got: ${greeting}"}

	execution, err := manager.StartExecution(context.Background(), testWorkflow("wf-vars", step1, step2), nil)
	require.NoError(t, err)

	result := awaitResult(t, execution)

	assert.Equal(t, models.ExecutionStatusCompleted, result.Status)
	assert.Equal(t, "got: from-step-one", received.Load())
}

func TestExecution_RetryExhaustionFailsRun(t *testing.T) {
	failing := &fakeExecutor{fn: func(_ context.Context, _ map[string]any) (map[string]any, error) {
		return nil, errors.New("executor down")
	}}
	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeFileOperation: failing,
	})
	manager := newTestManager(reg)

	step := simpleStep("s1", models.StepTypeFileOperation)
	step.RetryCount = 2

	execution, err := manager.StartExecution(context.Background(), testWorkflow("wf-retry", step, simpleStep("s2", models.StepTypeFileOperation)), nil)
	require.NoError(t, err)

	result := awaitResult(t, execution)

	assert.Equal(t, models.ExecutionStatusFailed, result.Status)
	require.Len(t, result.StepResults, 1)
	assert.Equal(t, 2, result.StepResults[0].Retries)
	assert.Equal(t, models.StepStatusFailed, result.StepResults[0].Status)
	assert.Equal(t, int32(3), failing.calls.Load())
	assert.NotEmpty(t, result.Error)
}

func TestExecution_ContinueOnError(t *testing.T) {
	failing := &fakeExecutor{fn: func(_ context.Context, _ map[string]any) (map[string]any, error) {
		return nil, errors.New("executor down")
	}}
	succeeding := &fakeExecutor{}

	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeFileOperation: failing,
		models.StepTypeNotification:  succeeding,
	})
	manager := newTestManager(reg)

	step1 := simpleStep("s1", models.StepTypeFileOperation)
	step1.RetryCount = 1
	step1.ContinueOnError = true

	execution, err := manager.StartExecution(context.Background(), testWorkflow("wf-continue", step1, simpleStep("s2", models.StepTypeNotification)), nil)
	require.NoError(t, err)

	result := awaitResult(t, execution)

	assert.Equal(t, models.ExecutionStatusCompleted, result.Status)
	assert.Equal(t, 1, result.CompletedSteps)
	require.Len(t, result.StepResults, 2)
	assert.Equal(t, models.StepStatusFailed, result.StepResults[0].Status)
	assert.Equal(t, 1, result.StepResults[0].Retries)
	assert.Equal(t, models.StepStatusSuccess, result.StepResults[1].Status)
	assert.Equal(t, int32(1), succeeding.calls.Load())
}

// Scenario from the conditional-skip property: step2 is gated on x == 1
// while x was seeded as "2", so it must be skipped without ever invoking
// its executor, and step3 still executes.
func TestExecution_ConditionalSkip(t *testing.T) {
	delay := &fakeExecutor{}
	guarded := &fakeExecutor{}
	notify := &fakeExecutor{}

	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeDelay:        delay,
		models.StepTypeConditional:  guarded,
		models.StepTypeNotification: notify,
	})
	manager := newTestManager(reg)

	step2 := simpleStep("step2", models.StepTypeConditional)
	step2.Condition = &models.Condition{Type: models.ConditionEquals, Variable: "x", Value: "1"}

	workflow := testWorkflow("wf-skip",
		simpleStep("step1", models.StepTypeDelay),
		step2,
		simpleStep("step3", models.StepTypeNotification),
	)

	execution, err := manager.StartExecution(context.Background(), workflow, map[string]any{"x": "2"})
	require.NoError(t, err)

	result := awaitResult(t, execution)

	assert.Equal(t, models.ExecutionStatusCompleted, result.Status)
	assert.Equal(t, 3, result.TotalSteps)
	assert.Equal(t, 2, result.CompletedSteps)
	require.Len(t, result.StepResults, 3)
	assert.Equal(t, models.StepStatusSuccess, result.StepResults[0].Status)
	assert.Equal(t, models.StepStatusSkipped, result.StepResults[1].Status)
	assert.Equal(t, models.StepStatusSuccess, result.StepResults[2].Status)
	assert.Equal(t, int32(0), guarded.calls.Load())
	assert.Equal(t, int32(1), notify.calls.Load())
}

func TestExecution_PauseResume(t *testing.T) {
	step2Started := make(chan struct{})
	step2Release := make(chan struct{})

	producer := &fakeExecutor{fn: func(_ context.Context, _ map[string]any) (map[string]any, error) {
		return map[string]any{"value": "kept"}, nil
	}}
	blocking := &fakeExecutor{fn: func(_ context.Context, _ map[string]any) (map[string]any, error) {
		close(step2Started)
		<-step2Release

		return map[string]any{}, nil
	}}

	var step3Saw atomic.Value

	final := &fakeExecutor{fn: func(_ context.Context, params map[string]any) (map[string]any, error) {
		step3Saw.Store(params["message"])

		return map[string]any{}, nil
	}}

	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeSystemQuery:    producer,
		models.StepTypeDelay:          blocking,
		models.StepTypeTextProcessing: final,
	})
	manager := newTestManager(reg)

	step1 := simpleStep("s1", models.StepTypeSystemQuery)
	step1.Parameters = map[string]any{"outputVariable": "memo"}
	step3 := simpleStep("s3", models.StepTypeTextProcessing)
	step3.Parameters = map[string]any{"message": "${memo}"}

	workflow := testWorkflow("wf-pause", step1, simpleStep("s2", models.StepTypeDelay), step3)

	execution, err := manager.StartExecution(context.Background(), workflow, nil)
	require.NoError(t, err)

	// Pause while step 2 is in flight: the current try finishes, then the
	// loop parks at the next step boundary.
	<-step2Started
	require.NoError(t, execution.Pause())
	close(step2Release)

	// The loop must settle into paused without touching step 3.
	require.Eventually(t, func() bool {
		return execution.Status() == models.ExecutionStatusPaused
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), final.calls.Load())

	// Pausing twice is illegal.
	assert.ErrorIs(t, execution.Pause(), ErrInvalidTransition)

	require.NoError(t, execution.Resume())

	result := awaitResult(t, execution)

	assert.Equal(t, models.ExecutionStatusCompleted, result.Status)
	assert.Equal(t, 3, result.CompletedSteps)
	assert.Equal(t, int32(1), final.calls.Load())
	// Variables written before the pause stay visible after resume.
	assert.Equal(t, "kept", step3Saw.Load())
}

func TestExecution_Cancel(t *testing.T) {
	started := make(chan struct{})
	hanging := &fakeExecutor{fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		close(started)
		<-ctx.Done()

		return nil, ctx.Err()
	}}
	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeDelay: hanging,
	})
	manager := newTestManager(reg)

	workflow := testWorkflow("wf-cancel",
		simpleStep("s1", models.StepTypeDelay),
		simpleStep("s2", models.StepTypeDelay),
	)

	execution, err := manager.StartExecution(context.Background(), workflow, nil)
	require.NoError(t, err)

	<-started
	require.NoError(t, execution.Cancel())

	result := awaitResult(t, execution)

	assert.Equal(t, models.ExecutionStatusCancelled, result.Status)
	assert.LessOrEqual(t, result.CompletedSteps, result.TotalSteps)
	assert.Equal(t, models.ExecutionStatusCancelled, execution.Status())

	// Cancelling a finished run is rejected, not a crash.
	assert.ErrorIs(t, execution.Cancel(), ErrInvalidTransition)
}

func TestManager_RejectsDuplicateStart(t *testing.T) {
	release := make(chan struct{})
	blocking := &fakeExecutor{fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}

		return map[string]any{}, nil
	}}
	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeDelay: blocking,
	})
	manager := newTestManager(reg)

	workflow := testWorkflow("wf-dup", simpleStep("s1", models.StepTypeDelay))

	first, err := manager.StartExecution(context.Background(), workflow, nil)
	require.NoError(t, err)

	_, err = manager.StartExecution(context.Background(), workflow, nil)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	// A different workflow id runs concurrently just fine.
	other := testWorkflow("wf-other", simpleStep("s1", models.StepTypeDelay))
	second, err := manager.StartExecution(context.Background(), other, nil)
	require.NoError(t, err)

	close(release)

	result := awaitResult(t, first)
	assert.Equal(t, models.ExecutionStatusCompleted, result.Status)
	awaitResult(t, second)

	// Once the first run finished, the workflow can start again.
	again, err := manager.StartExecution(context.Background(), workflow, nil)
	require.NoError(t, err)
	awaitResult(t, again)
}

func TestExecution_StepTimeoutWithRetries(t *testing.T) {
	hanging := &fakeExecutor{fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	}}
	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeAppControl: hanging,
	})
	manager := newTestManager(reg)

	step := simpleStep("s1", models.StepTypeAppControl)
	step.Timeout = models.Duration(30 * time.Millisecond)
	step.RetryCount = 2

	execution, err := manager.StartExecution(context.Background(), testWorkflow("wf-timeout", step), nil)
	require.NoError(t, err)

	result := awaitResult(t, execution)

	assert.Equal(t, models.ExecutionStatusFailed, result.Status)
	require.Len(t, result.StepResults, 1)
	assert.Equal(t, 2, result.StepResults[0].Retries)
	assert.False(t, result.StepResults[0].Success())
	assert.Contains(t, result.StepResults[0].Error, "timed out")
}

func TestExecution_UserInputSuspend(t *testing.T) {
	manager := newTestManager(nil)

	inputs := manager.inputs

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan any, 1)

	go func() {
		value, err := inputs.Await(ctx, "exec-1", "step-1")
		if err == nil {
			got <- value
		}
	}()

	// The waiter registers asynchronously; providing input for an unknown
	// step is an error.
	require.Eventually(t, func() bool {
		return inputs.Provide("exec-1", "step-1", "the answer") == nil
	}, 5*time.Second, time.Millisecond)

	assert.ErrorIs(t, inputs.Provide("exec-1", "other-step", "x"), ErrNoPendingInput)

	select {
	case value := <-got:
		assert.Equal(t, "the answer", value)
	case <-time.After(5 * time.Second):
		t.Fatal("awaited input never arrived")
	}
}

// Cancel can land between StartExecution returning and the run goroutine
// taking its first lock. An accepted cancel must yield a cancelled
// terminal result; the run loop may never overwrite it with running.
func TestExecution_CancelImmediatelyAfterStart(t *testing.T) {
	executor := &fakeExecutor{fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
			return map[string]any{}, nil
		}
	}}
	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeDelay: executor,
	})
	manager := newTestManager(reg)

	workflow := testWorkflow("wf-cancel-race", simpleStep("s1", models.StepTypeDelay))

	for i := 0; i < 50; i++ {
		execution, err := manager.StartExecution(context.Background(), workflow, nil)
		require.NoError(t, err)

		cancelErr := execution.Cancel()
		result := awaitResult(t, execution)

		if cancelErr == nil {
			assert.Equal(t, models.ExecutionStatusCancelled, result.Status, "iteration %d", i)
		} else {
			// The run finished before the cancel landed.
			require.ErrorIs(t, cancelErr, ErrInvalidTransition)
			assert.Equal(t, models.ExecutionStatusCompleted, result.Status, "iteration %d", i)
		}
	}
}

type captureBus struct {
	mu       sync.Mutex
	captured []events.Event
}

func (b *captureBus) Publish(_ context.Context, _ string, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.captured = append(b.captured, event)

	return nil
}

func (b *captureBus) Subscribe(_ context.Context) error { return nil }

func (b *captureBus) Handle(_ events.EventType, _ eventbus.EventHandler) error { return nil }

func (b *captureBus) GenerateID() string { return "" }

func (b *captureBus) Close() error { return nil }

// The terminal event's embedded type field must agree with the run's
// terminal status, not default to completed.
func TestExecution_TerminalEventTypeMatchesStatus(t *testing.T) {
	started := make(chan struct{})
	hanging := &fakeExecutor{fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		close(started)
		<-ctx.Done()

		return nil, ctx.Err()
	}}
	reg := newTestRegistry(map[models.StepType]protocol.StepExecutor{
		models.StepTypeDelay: hanging,
	})

	bus := &captureBus{}
	manager := NewManager(Config{
		Registry:     reg,
		EventBus:     bus,
		Logger:       testLogger(),
		RetryBackoff: time.Millisecond,
	})

	workflow := testWorkflow("wf-event-type", simpleStep("s1", models.StepTypeDelay))

	execution, err := manager.StartExecution(context.Background(), workflow, nil)
	require.NoError(t, err)

	<-started
	require.NoError(t, execution.Cancel())
	awaitResult(t, execution)

	bus.mu.Lock()
	defer bus.mu.Unlock()

	var terminal *events.ExecutionFinished

	for _, event := range bus.captured {
		if finished, ok := event.(events.ExecutionFinished); ok {
			terminal = &finished
		}
	}

	require.NotNil(t, terminal, "no terminal event published")
	assert.Equal(t, models.ExecutionStatusCancelled, terminal.Status)
	assert.Equal(t, events.ExecutionCancelledEvent, terminal.Type)
	assert.Equal(t, terminal.GetType(), terminal.Type)
}
