package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Base carries the plumbing every unit shares: identity, the op->handler
// table, and a named logger. Units embed it and register handlers in their
// constructor.
type Base struct {
	id          string
	description string
	logger      *zap.Logger
	handlers    map[string]HandlerFunc
}

// NewBase creates the shared plumbing for a unit.
func NewBase(id, description string, logger *zap.Logger) *Base {
	return &Base{
		id:          id,
		description: description,
		logger:      logger.Named(id),
		handlers:    make(map[string]HandlerFunc),
	}
}

// ID returns the unit identifier.
func (b *Base) ID() string {
	return b.id
}

// Description returns the human-readable unit description.
func (b *Base) Description() string {
	return b.description
}

// Logger returns the unit-scoped logger.
func (b *Base) Logger() *zap.Logger {
	return b.logger
}

// Handle registers the handler for one operation. Later registrations for
// the same op overwrite earlier ones; constructors register each op once.
func (b *Base) Handle(op string, fn HandlerFunc) {
	b.handlers[op] = fn
}

// Ops returns the operation names the unit accepts, unsorted.
func (b *Base) Ops() []string {
	ops := make([]string, 0, len(b.handlers))
	for op := range b.handlers {
		ops = append(ops, op)
	}
	return ops
}

// Perform validates the requested op against the handler table and
// dispatches. Unknown or missing ops are domain failures, not Go errors.
func (b *Base) Perform(ctx context.Context, task Task) (*Result, error) {
	op := task.Op()
	if op == "" {
		return b.Fail(op, "missing op"), nil
	}

	handler, ok := b.handlers[op]
	if !ok {
		return b.Fail(op, fmt.Sprintf("unknown op %q for unit %s", op, b.id)), nil
	}

	return handler(ctx, task)
}

// OK builds a success Result for the given op.
func (b *Base) OK(op string, data map[string]interface{}) *Result {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Result{
		Unit: b.id,
		Op:   op,
		Data: data,
	}
}

// Fail builds an error Result. The requested op is kept in the data so the
// audit trail shows what was attempted.
func (b *Base) Fail(op, msg string) *Result {
	b.logger.Warn("op failed",
		zap.String("op", op),
		zap.String("reason", msg))
	return &Result{
		Unit: b.id,
		Op:   OpError,
		Data: map[string]interface{}{
			"error":        msg,
			"requested_op": op,
		},
	}
}

// Failf builds an error Result with a formatted message.
func (b *Base) Failf(op, format string, args ...interface{}) *Result {
	return b.Fail(op, fmt.Sprintf(format, args...))
}
