// Package net provides utilities for working with request contexts
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ctxKey is an unexported key type for context values
type ctxKey string

const keyMachineID ctxKey = "machine_id"

// WithRequest annotates context with common request scoped ids
func WithRequest(ctx context.Context, reqID, machineID string) context.Context {
	if reqID != "" {
		// set chi RequestID so chimw.GetReqID can retrieve it
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	if machineID != "" {
		ctx = context.WithValue(ctx, keyMachineID, machineID)
	}
	return ctx
}

// WithMachine annotates context with the machine id being operated on
func WithMachine(ctx context.Context, machineID string) context.Context {
	if machineID != "" {
		ctx = context.WithValue(ctx, keyMachineID, machineID)
	}
	return ctx
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	if v := chimw.GetReqID(ctx); v != "" {
		return v
	}
	return ""
}

// MachineID returns the machine id on the context if present
func MachineID(ctx context.Context) string {
	if v, ok := ctx.Value(keyMachineID).(string); ok {
		return v
	}
	return ""
}
