package domain

import "context"

type priorityKey struct{}

// WithPriority returns a context carrying the priority of the calling task.
// Blocking queue operations use it to order waiters.
func WithPriority(ctx context.Context, p Priority) context.Context {
	return context.WithValue(ctx, priorityKey{}, p)
}

// PriorityFromContext returns the task priority stored in ctx, or
// IdlePriority when the context does not belong to a task.
func PriorityFromContext(ctx context.Context) Priority {
	if p, ok := ctx.Value(priorityKey{}).(Priority); ok {
		return p
	}
	return IdlePriority
}
