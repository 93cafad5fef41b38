// Package auth carries the identity of dashboard operators.
package auth

import "context"

// Operator is an authenticated restaurant operator.
type Operator struct {
	UserID       string
	RestaurantID string
}

type operatorKey struct{}

// WithOperator returns a copy of ctx carrying op.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFromContext returns the operator stored in ctx, if any.
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	return op, ok
}
