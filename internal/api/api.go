package api

import (
	"context"
	"encoding/json"

	"devblog/internal/gateway"
)

// Doer issues one JSON call. *gateway.Gateway implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, body any, opts gateway.Options) (json.RawMessage, error)
}

var (
	public = gateway.Options{}
	authed = gateway.Options{Auth: true}
)
