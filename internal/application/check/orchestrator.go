package check

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-audit/internal/checker"
	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/events"
	consts "github.com/khanhnv2901/seca-audit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

// Config tunes an Orchestrator. Zero values pick defaults.
type Config struct {
	// Timeout bounds a single executor run.
	Timeout time.Duration
	Logger  *zap.Logger
	Broker  *events.Broker
	Now     func() time.Time
}

// State is a read-only view of the orchestrator at one instant.
type State struct {
	Results      map[check.Kind]*check.Result
	Running      []check.Kind
	SuiteRunning bool
	LastError    string
}

// Orchestrator coordinates check execution across the catalog.
//
// A single mutex guards the running set, the results, the suite flag and
// lastError, so starting and completing a run are each one atomic step.
type Orchestrator struct {
	executors map[check.Kind]checker.Checker
	timeout   time.Duration
	logger    *zap.Logger
	broker    *events.Broker
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	running   map[check.Kind]chan struct{}
	results   map[check.Kind]*check.Result
	suiteDone chan struct{}
	lastError string
	closed    bool
}

// NewOrchestrator creates a new check orchestrator
func NewOrchestrator(executors []checker.Checker, cfg Config) (*Orchestrator, error) {
	registry := make(map[check.Kind]checker.Checker, len(executors))
	for _, exec := range executors {
		if exec == nil {
			return nil, fmt.Errorf("%w: nil executor", sharedErrors.ErrInvalidInput)
		}
		kind := exec.Kind()
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %q", sharedErrors.ErrUnknownKind, kind)
		}
		if _, exists := registry[kind]; exists {
			return nil, fmt.Errorf("%w: %s", sharedErrors.ErrDuplicateExecutor, kind)
		}
		registry[kind] = exec
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = consts.DefaultCheckTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		executors: registry,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
		broker:    cfg.Broker,
		now:       cfg.Now,
		ctx:       ctx,
		cancel:    cancel,
		running:   make(map[check.Kind]chan struct{}),
		results:   make(map[check.Kind]*check.Result),
	}, nil
}

// RunCheck starts kind unless it is already running. Either way the returned
// channel closes when the run that is now in flight completes.
func (o *Orchestrator) RunCheck(kind check.Kind) (<-chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	done, err := o.startLocked(kind)
	if err != nil {
		o.lastError = err.Error()
		o.logger.Warn("check_schedule_failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	o.lastError = ""
	return done, nil
}

// RunSuite starts every kind that is not already running. While a suite is in
// progress further calls return the same channel and start nothing.
//
// Kinds that could not be scheduled are reported in the returned error and in
// lastError; the rest of the suite still runs.
func (o *Orchestrator) RunSuite() (<-chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		o.lastError = sharedErrors.ErrOrchestratorClosed.Error()
		return nil, sharedErrors.ErrOrchestratorClosed
	}
	if o.suiteDone != nil {
		o.lastError = ""
		return o.suiteDone, nil
	}

	var (
		waits []chan struct{}
		kinds []check.Kind
		errs  *multierror.Error
	)
	for _, kind := range check.Kinds() {
		if _, busy := o.running[kind]; busy {
			continue
		}
		done, err := o.startLocked(kind)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		waits = append(waits, done)
		kinds = append(kinds, kind)
	}

	suiteDone := make(chan struct{})
	o.suiteDone = suiteDone
	startedAt := o.now()

	o.logger.Info("suite_started", zap.Int("kinds", len(kinds)))
	o.broker.Publish(events.Event{
		Type:    events.SuiteStarted,
		Message: fmt.Sprintf("%d checks started", len(kinds)),
		At:      startedAt,
	})

	o.wg.Add(1)
	go o.awaitSuite(kinds, waits, suiteDone, startedAt)

	if err := errs.ErrorOrNil(); err != nil {
		o.lastError = err.Error()
		o.logger.Warn("suite_partially_scheduled", zap.Error(err))
		return suiteDone, err
	}
	o.lastError = ""
	return suiteDone, nil
}

// startLocked inserts kind into the running set and launches its executor.
// The caller holds o.mu.
func (o *Orchestrator) startLocked(kind check.Kind) (chan struct{}, error) {
	if o.closed {
		return nil, sharedErrors.ErrOrchestratorClosed
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", sharedErrors.ErrUnknownKind, kind)
	}
	if done, ok := o.running[kind]; ok {
		return done, nil
	}
	exec, ok := o.executors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sharedErrors.ErrNoExecutor, kind)
	}

	done := make(chan struct{})
	o.running[kind] = done

	o.logger.Debug("check_started", zap.String("kind", string(kind)))
	o.broker.Publish(events.Event{Type: events.CheckStarted, Kind: string(kind)})

	o.wg.Add(1)
	go o.execute(exec, done)
	return done, nil
}

func (o *Orchestrator) execute(exec checker.Checker, done chan struct{}) {
	defer o.wg.Done()

	kind := exec.Kind()
	startedAt := o.now()
	outcome := o.invoke(kind, exec)
	finishedAt := o.now()
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}
	duration := finishedAt.Sub(startedAt)

	result, err := check.NewResult(kind, outcome, finishedAt, duration)
	if err != nil {
		result, _ = check.NewResult(kind, check.ErrorOutcome(kind.Title()+" check returned an invalid result", err), finishedAt, duration)
	}

	o.mu.Lock()
	o.results[kind] = result
	delete(o.running, kind)
	o.mu.Unlock()

	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("status", string(result.Status())),
		zap.Duration("duration", result.Duration()),
	}
	if result.Status() == check.CheckStatusError {
		o.logger.Warn("check_finished", append(fields, zap.String("headline", result.Headline()))...)
	} else {
		o.logger.Info("check_finished", fields...)
	}
	o.broker.Publish(events.Event{
		Type:            events.CheckFinished,
		Kind:            string(kind),
		Status:          string(result.Status()),
		Message:         result.Headline(),
		DurationSeconds: result.Duration().Seconds(),
		At:              finishedAt,
	})

	close(done)
}

type reply struct {
	outcome check.Outcome
	err     error
}

// invoke runs one executor under the timeout guard. Errors, panics,
// timeouts and cancellation all come back as error outcomes.
func (o *Orchestrator) invoke(kind check.Kind, exec checker.Checker) check.Outcome {
	ctx, cancel := context.WithTimeout(o.ctx, o.timeout)
	defer cancel()

	replies := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				replies <- reply{err: fmt.Errorf("%w: %v", sharedErrors.ErrExecutorPanic, r)}
			}
		}()
		outcome, err := exec.Check(ctx)
		replies <- reply{outcome: outcome, err: err}
	}()

	select {
	case r := <-replies:
		switch {
		case errors.Is(r.err, sharedErrors.ErrExecutorPanic):
			return check.ErrorOutcome(kind.Title()+" check crashed", r.err)
		case r.err != nil && ctx.Err() != nil:
			return o.interrupted(kind, ctx.Err())
		case r.err != nil:
			return check.ErrorOutcome(kind.Title()+" check could not complete", r.err)
		}
		return r.outcome
	case <-ctx.Done():
		return o.interrupted(kind, ctx.Err())
	}
}

func (o *Orchestrator) interrupted(kind check.Kind, ctxErr error) check.Outcome {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return check.ErrorOutcome(
			fmt.Sprintf("%s check timed out after %s", kind.Title(), o.timeout),
			sharedErrors.ErrExecutorTimeout,
		)
	}
	return check.ErrorOutcome(kind.Title()+" check was cancelled", sharedErrors.ErrExecutorCancelled)
}

func (o *Orchestrator) awaitSuite(kinds []check.Kind, waits []chan struct{}, done chan struct{}, startedAt time.Time) {
	defer o.wg.Done()
	for _, w := range waits {
		<-w
	}

	o.mu.Lock()
	o.suiteDone = nil
	problems := 0
	for _, k := range kinds {
		if r, ok := o.results[k]; ok && r.Status().Problem() {
			problems++
		}
	}
	o.mu.Unlock()

	elapsed := o.now().Sub(startedAt)
	o.logger.Info("suite_finished",
		zap.Int("kinds", len(kinds)),
		zap.Int("problems", problems),
		zap.Duration("duration", elapsed),
	)
	o.broker.Publish(events.Event{
		Type:            events.SuiteFinished,
		Message:         fmt.Sprintf("%d checks finished, %d with problems", len(kinds), problems),
		DurationSeconds: elapsed.Seconds(),
	})

	close(done)
}

// State returns a consistent copy of the orchestrator state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	results := make(map[check.Kind]*check.Result, len(o.results))
	for k, r := range o.results {
		results[k] = r
	}
	return State{
		Results:      results,
		Running:      o.runningLocked(),
		SuiteRunning: o.suiteDone != nil,
		LastError:    o.lastError,
	}
}

func (o *Orchestrator) runningLocked() []check.Kind {
	kinds := make([]check.Kind, 0, len(o.running))
	for k := range o.running {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Index() < kinds[j].Index() })
	return kinds
}

// Result returns the current result for kind, if it has completed at least once.
func (o *Orchestrator) Result(kind check.Kind) (*check.Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.results[kind]
	return r, ok
}

func (o *Orchestrator) IsRunning(kind check.Kind) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.running[kind]
	return ok
}

func (o *Orchestrator) SuiteRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.suiteDone != nil
}

func (o *Orchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastError
}

// Kinds lists the kinds that have an executor, in catalog order.
func (o *Orchestrator) Kinds() []check.Kind {
	kinds := make([]check.Kind, 0, len(o.executors))
	for _, k := range check.Kinds() {
		if _, ok := o.executors[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Close cancels in-flight runs, waits for them to record their results and
// rejects any further runs.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
	return nil
}
