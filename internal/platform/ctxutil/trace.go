// Package ctxutil carries per-request metadata through context.
package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies the API request a piece of work belongs to. The
// router middleware fills it in from the incoming headers; batch logs read
// it back so store writes can be correlated with their request.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}
