package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/animbox/internal/infra/config"
)

const (
	// AdminTokenHeader is the header name for admin authentication token.
	AdminTokenHeader = "X-Admin-Token"
)

var errInvalidToken = errors.New("missing or invalid admin token")

// NewAdminAuthInterceptor creates an interceptor that validates admin tokens
// on every procedure that changes playback state. Read-only procedures pass
// through unchecked.
func NewAdminAuthInterceptor(cfg *config.Config) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if readOnlyProcedures[req.Spec().Procedure] {
				return next(ctx, req)
			}

			token := req.Header().Get(AdminTokenHeader)
			if token == "" || token != cfg.Admin.Token {
				return nil, connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
			}

			return next(ctx, req)
		}
	}
}
