// Package requestid tags every API call with a correlation ID. Callers may
// supply their own via the X-Request-ID header; it is echoed back and carried
// through context so log lines across the request can be tied together.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header carrying the correlation ID.
const Header = "X-Request-ID"

// maxInboundLen caps client-supplied IDs so a hostile caller cannot stuff
// the logs with arbitrary payloads.
const maxInboundLen = 64

type ctxKey struct{}

// Ensure returns the inbound ID when the client supplied a usable one,
// otherwise a freshly generated UUID.
func Ensure(inbound string) string {
	if inbound != "" && len(inbound) <= maxInboundLen && printable(inbound) {
		return inbound
	}
	return uuid.NewString()
}

// WithRequestID returns a context carrying the given correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the correlation ID, or "" when the context has none.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
