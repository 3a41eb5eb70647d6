package audit

import "context"

// RequestInfo is the per-request metadata copied onto audit entries
type RequestInfo struct {
	RequestID string
	IPAddress string
	UserAgent string
}

type requestInfoKey struct{}

// WithRequestInfo returns a context carrying info
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the request metadata stored in ctx, if any
func RequestInfoFrom(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}
