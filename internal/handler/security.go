package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/Kmzf777/foodshorts/internal/domain/auth"
	"github.com/Kmzf777/foodshorts/internal/domain/restaurant"
)

// SecurityHandler authenticates dashboard operators with HS256 bearer
// tokens whose subject is the restaurant owner's user id.
type SecurityHandler struct {
	restaurants restaurant.Repository
	secret      []byte
	parser      *jwt.Parser
}

// NewSecurityHandler returns a SecurityHandler verifying tokens with secret.
func NewSecurityHandler(restaurants restaurant.Repository, secret []byte) *SecurityHandler {
	return &SecurityHandler{
		restaurants: restaurants,
		secret:      secret,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Authenticate resolves the operator's restaurant and stores the operator in
// the request context. Missing or invalid tokens get 401; a valid token
// without a restaurant gets 403.
func (s *SecurityHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := s.subject(r.Header.Get("Authorization"))
		if err != nil {
			zctx.From(ctx).Debug("Rejected operator token", zap.Error(err))
			w.Header().Set("WWW-Authenticate", `Bearer realm="foodshorts"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		rest, err := s.restaurants.GetByOwner(ctx, userID)
		switch {
		case errors.Is(err, restaurant.ErrNotFound):
			writeError(w, http.StatusForbidden, "no restaurant is linked to this account")
			return
		case err != nil:
			zctx.From(ctx).Error("Resolve operator restaurant", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		ctx = auth.WithOperator(ctx, auth.Operator{UserID: userID, RestaurantID: rest.ID})
		ctx = zctx.With(ctx, zap.String("restaurant_id", rest.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *SecurityHandler) subject(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("missing bearer token")
	}
	var claims jwt.RegisteredClaims
	if _, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return "", errors.Wrap(err, "parse token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
