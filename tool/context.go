package tool

import "context"

type callIDKey struct{}

// ContextWithCallID tags ctx with the id of the function call a tool executes
// under. The runner sets it before dispatching a call so tool logs can be
// correlated with the originating model turn.
func ContextWithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey{}, id)
}

// CallIDFromContext returns the function call id attached to ctx, or an empty
// string when none is set.
func CallIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(callIDKey{}).(string); ok {
		return id
	}

	return ""
}
