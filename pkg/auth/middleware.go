package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/norchain/bridge-middleware/pkg/app/errors"
	apphttp "github.com/norchain/bridge-middleware/pkg/app/http"
)

// Verifier turns a bearer token into a user id.
type Verifier interface {
	VerifyToken(token string) (string, error)
}

// Middleware returns a chi-compatible middleware that requires a valid
// Bearer token and injects the authenticated user id into the request
// context.
func Middleware(verifier Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "missing authorization header"))
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "malformed authorization header"))
				return
			}

			userID, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("Token verification failed", zap.Error(err))
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid access token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
