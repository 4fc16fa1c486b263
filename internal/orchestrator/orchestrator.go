package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/internal/state"
	"github.com/seekerlabs/seekerd/pkg/adapters/events"
)

// DefaultMaxSteps bounds chain runs that never terminate on their own.
const DefaultMaxSteps = 10

// DefaultDrainLimit bounds one DrainQueue call.
const DefaultDrainLimit = 10

// Metrics is the slice of metrics the orchestrator records.
type Metrics interface {
	RecordInvocation(unit, status string, duration time.Duration)
	RecordChain(outcome string, steps int)
	RecordPipeline(pipeline, status string, duration time.Duration)
	SetQueueDepth(depth int)
	RecordQueueItem(status string)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RecordInvocation(string, string, time.Duration) {}
func (NopMetrics) RecordChain(string, int)                        {}
func (NopMetrics) RecordPipeline(string, string, time.Duration)   {}
func (NopMetrics) SetQueueDepth(int)                              {}
func (NopMetrics) RecordQueueItem(string)                         {}

// Orchestrator executes units through the registry and keeps the audit
// trail, metrics, and event feed in sync.
type Orchestrator struct {
	registry  *agent.Registry
	state     *state.Store
	records   records.Store
	bus       events.Bus
	metrics   Metrics
	logger    *zap.Logger
	pipelines map[string][]Step
	maxSteps  int
}

// New creates an orchestrator. A nil bus disables event publishing, a nil
// metrics collector disables measurements, maxSteps <= 0 selects the
// default chain ceiling.
func New(
	registry *agent.Registry,
	st *state.Store,
	rec records.Store,
	bus events.Bus,
	metrics Metrics,
	logger *zap.Logger,
	maxSteps int,
) *Orchestrator {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Orchestrator{
		registry:  registry,
		state:     st,
		records:   rec,
		bus:       bus,
		metrics:   metrics,
		logger:    logger.Named("orchestrator"),
		pipelines: builtinPipelines(),
		maxSteps:  maxSteps,
	}
}

// Invoke resolves and runs one unit, applies its declared state writes, and
// audits the invocation. Unknown units and unexpected unit failures come
// back as errors; domain failures come back as error Results.
func (o *Orchestrator) Invoke(ctx context.Context, unitID string, task agent.Task) (*agent.Result, error) {
	start := time.Now()

	unit, err := o.registry.Resolve(unitID)
	if err != nil {
		o.logger.Error("failed to resolve unit",
			zap.String("unit", unitID),
			zap.Error(err))
		o.metrics.RecordInvocation(unitID, "error", time.Since(start))
		o.publish(ctx, unitID, task.Op(), false, err.Error(), time.Since(start))
		return nil, err
	}

	result, err := unit.Perform(ctx, task)
	if err != nil {
		o.logger.Error("unit failed",
			zap.String("unit", unitID),
			zap.String("op", task.Op()),
			zap.Error(err))
		o.metrics.RecordInvocation(unitID, "error", time.Since(start))
		o.publish(ctx, unitID, task.Op(), false, err.Error(), time.Since(start))
		return nil, fmt.Errorf("unit %s failed: %w", unitID, err)
	}

	// Declared writes land before anything can observe the result.
	if len(result.StateWrites) > 0 {
		if err := o.state.Update(ctx, result.StateWrites); err != nil {
			return nil, fmt.Errorf("failed to apply state writes for %s: %w", unitID, err)
		}
	}

	took := time.Since(start)

	// Audit trail: activity log on the state tree, action log in the
	// durable store.
	if err := o.state.AppendLog(ctx, unitID, result.Op, map[string]interface{}{
		"ok": !result.Failed(),
	}); err != nil {
		return nil, err
	}
	if err := o.records.LogAction(ctx, &records.ActionLog{
		Unit:   unitID,
		Op:     result.Op,
		Input:  agent.CloneMap(task),
		Output: agent.CloneMap(result.Data),
	}); err != nil {
		return nil, fmt.Errorf("failed to log action for %s: %w", unitID, err)
	}

	status := "ok"
	if result.Failed() {
		status = "domain_error"
	}
	o.metrics.RecordInvocation(unitID, status, took)
	o.publish(ctx, unitID, result.Op, !result.Failed(), result.ErrorMessage(), took)

	o.logger.Info("unit invoked",
		zap.String("unit", unitID),
		zap.String("op", result.Op),
		zap.Bool("ok", !result.Failed()),
		zap.Duration("took", took))

	return result, nil
}

// RunChain invokes start and follows successor links until a unit names no
// successor, a failure occurs, or maxSteps results have been produced.
// Failures never escape a chain: the results gathered so far are returned.
func (o *Orchestrator) RunChain(ctx context.Context, start string, task agent.Task, maxSteps int) []*agent.Result {
	if maxSteps <= 0 {
		maxSteps = o.maxSteps
	}
	if task == nil {
		task = agent.Task{}
	}

	results := make([]*agent.Result, 0, 4)
	current := start

	for step := 0; current != "" && step < maxSteps; step++ {
		result, err := o.Invoke(ctx, current, task)
		if err != nil {
			o.logger.Warn("chain stopped",
				zap.String("start", start),
				zap.String("unit", current),
				zap.Int("completed", len(results)),
				zap.Error(err))
			o.metrics.RecordChain("stopped", len(results))
			return results
		}

		results = append(results, result)
		if result.Next == "" {
			break
		}

		// The successor's request is the carry-forward data, or an empty
		// task when the unit declared none.
		next := agent.CloneMap(result.Carry)
		if next == nil {
			next = map[string]interface{}{}
		}
		task = agent.Task(next)
		current = result.Next
	}

	o.metrics.RecordChain("completed", len(results))
	o.logger.Debug("chain completed",
		zap.String("start", start),
		zap.Int("results", len(results)))
	return results
}

// RunPipeline runs the named pipeline for an owner. Steps are independent:
// successor links on their results are ignored, and the owner id is injected
// into every step's task. The first failure aborts the run and propagates,
// with the completed results returned alongside the error.
func (o *Orchestrator) RunPipeline(ctx context.Context, ownerID, name string) ([]*agent.Result, error) {
	steps, ok := o.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPipeline, name)
	}

	start := time.Now()
	o.logger.Info("pipeline started",
		zap.String("pipeline", name),
		zap.String("owner_id", ownerID),
		zap.Int("steps", len(steps)))

	results := make([]*agent.Result, 0, len(steps))
	for _, step := range steps {
		task := agent.Task(agent.CloneMap(step.Task))
		if task == nil {
			task = agent.Task{}
		}
		task["op"] = step.Op
		task["owner_id"] = ownerID

		result, err := o.Invoke(ctx, step.Unit, task)
		if err != nil {
			o.metrics.RecordPipeline(name, "error", time.Since(start))
			return results, fmt.Errorf("pipeline %s failed at %s: %w", name, step.Unit, err)
		}
		results = append(results, result)
	}

	o.metrics.RecordPipeline(name, "ok", time.Since(start))
	o.logger.Info("pipeline completed",
		zap.String("pipeline", name),
		zap.String("owner_id", ownerID),
		zap.Duration("took", time.Since(start)))
	return results, nil
}

// Enqueue adds a task to the FIFO queue. Priority is recorded on the item
// for observability but does not affect ordering.
func (o *Orchestrator) Enqueue(ctx context.Context, unitID string, task agent.Task, priority int) error {
	item := map[string]interface{}{
		"unit":     unitID,
		"task":     map[string]interface{}(task.Clone()),
		"priority": priority,
		"status":   "pending",
	}
	if err := o.state.Enqueue(ctx, item); err != nil {
		return err
	}

	o.metrics.SetQueueDepth(o.state.QueueSize())
	o.logger.Debug("task queued",
		zap.String("unit", unitID),
		zap.Int("priority", priority),
		zap.Int("depth", o.state.QueueSize()))
	return nil
}

// DrainQueue pops and invokes up to max items in arrival order. A failing
// item is logged and skipped; draining continues with the next item. Only
// results of successful invocations are returned.
func (o *Orchestrator) DrainQueue(ctx context.Context, max int) ([]*agent.Result, error) {
	if max <= 0 {
		max = DefaultDrainLimit
	}

	results := make([]*agent.Result, 0, max)
	for i := 0; i < max; i++ {
		item, ok, err := o.state.Dequeue(ctx)
		if err != nil {
			return results, fmt.Errorf("failed to dequeue: %w", err)
		}
		if !ok {
			break
		}

		unitID, _ := item["unit"].(string)
		taskMap, _ := item["task"].(map[string]interface{})

		result, err := o.Invoke(ctx, unitID, agent.Task(taskMap))
		if err != nil {
			o.logger.Warn("queued task failed",
				zap.String("unit", unitID),
				zap.Error(err))
			o.metrics.RecordQueueItem("error")
			continue
		}
		o.metrics.RecordQueueItem("ok")
		results = append(results, result)
	}

	o.metrics.SetQueueDepth(o.state.QueueSize())
	return results, nil
}

// Status is the system snapshot served by the status endpoints.
type Status struct {
	Units      []string                 `json:"units"`
	QueueSize  int                      `json:"queue_size"`
	Metadata   map[string]interface{}   `json:"metadata"`
	RecentLogs []map[string]interface{} `json:"recent_logs"`
}

// SystemStatus reports registered units, queue depth, state metadata, and
// the last ten activity log entries.
func (o *Orchestrator) SystemStatus() *Status {
	return &Status{
		Units:      o.registry.List(),
		QueueSize:  o.state.QueueSize(),
		Metadata:   o.state.Metadata(),
		RecentLogs: o.state.RecentLogs("", 10),
	}
}

// publish emits an invocation event; the feed is best effort and never
// breaks an invocation.
func (o *Orchestrator) publish(ctx context.Context, unit, op string, ok bool, errMsg string, took time.Duration) {
	if o.bus == nil {
		return
	}

	event := events.Event{
		ID:         uuid.NewString(),
		Unit:       unit,
		Op:         op,
		OK:         ok,
		Error:      errMsg,
		DurationMS: took.Milliseconds(),
		At:         time.Now(),
	}
	if err := o.bus.Publish(ctx, events.TopicInvocations, event); err != nil {
		o.logger.Error("failed to publish event",
			zap.String("unit", unit),
			zap.Error(err))
	}
}
