package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pratik-mahalle/gw2ledger/internal/auth"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/errors"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/utils"
)

// OperatorKey is the context key for the authenticated operator
const OperatorKey ContextKey = "operator"

// RequireOperator rejects requests without a valid operator bearer token
func RequireOperator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string
			parts := strings.Split(r.Header.Get("Authorization"), " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenStr = parts[1]
			}

			if tokenStr == "" {
				utils.WriteError(w, errors.Unauthorized("Missing operator token"))
				return
			}

			claims, err := auth.ParseClaims(tokenStr, secret)
			if err != nil {
				utils.WriteError(w, errors.Unauthorized("Invalid or expired operator token"))
				return
			}

			AddLogField(w, "operator", claims.Operator)
			ctx := context.WithValue(r.Context(), OperatorKey, claims.Operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOperator extracts the operator name from the request context
func GetOperator(r *http.Request) (string, bool) {
	op, ok := r.Context().Value(OperatorKey).(string)
	return op, ok
}
