// Package observability carries the per-invocation operation id used by
// logs, traces and receipts.
package observability

import (
	"context"

	"github.com/google/uuid"
)

// OpIDEnv lets a CI system supply the operation id
const OpIDEnv = "PKGVET_OP_ID"

type opIDKey struct{}

// WithOpID stores a fresh random operation id. Call it once per invocation.
func WithOpID(ctx context.Context) context.Context {
	return WithOpIDValue(ctx, uuid.NewString())
}

// WithOpIDValue stores a caller supplied operation id
func WithOpIDValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, opIDKey{}, id)
}

// OpID returns "" when no id was set
func OpID(ctx context.Context) string {
	id, _ := ctx.Value(opIDKey{}).(string)
	return id
}
