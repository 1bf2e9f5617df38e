// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"

	"github.com/osa030/melodeck/internal/api/playerv1"
	"github.com/osa030/melodeck/internal/infra/config"
)

// NewControlAuthInterceptor creates an interceptor that validates the control
// token on mutating PlayerService procedures. Without a configured token
// every request is allowed.
func NewControlAuthInterceptor(cfg *config.Config) connect.UnaryInterceptorFunc {
	want := []byte(cfg.Server.ControlToken)
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if len(want) == 0 || playerv1.IsReadOnly(req.Spec().Procedure) {
				return next(ctx, req)
			}

			token := req.Header().Get(playerv1.ControlTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}
			return next(ctx, req)
		}
	}
}
