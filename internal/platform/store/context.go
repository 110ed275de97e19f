package store

import "context"

type (
	machineKey struct{}
	reqIDKey   struct{}
)

// WithMachine attaches a machine id to the context
func WithMachine(ctx context.Context, machineID string) context.Context {
	return context.WithValue(ctx, machineKey{}, machineID)
}

// MachineID retrieves a machine id from context if present
func MachineID(ctx context.Context) (string, bool) {
	v := ctx.Value(machineKey{})
	if v == nil {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// WithRequestID attaches a request id to the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reqIDKey{}, id)
}

// RequestID retrieves a request id from context if present
func RequestID(ctx context.Context) (string, bool) {
	v := ctx.Value(reqIDKey{})
	if v == nil {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}
