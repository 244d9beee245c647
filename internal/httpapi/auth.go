package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type contextKey string

const userContextKey contextKey = "auth-user"

// tokenAuth проверяет заголовок Authorization: Token <key> и кладёт
// найденного пользователя в контекст запроса.
func (s *Server) tokenAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Token") || token == "" {
			s.writeError(w, http.StatusUnauthorized, "authentication credentials were not provided")
			return
		}

		user, err := s.users.GetByToken(r.Context(), strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				s.writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			s.logger.WithError(err).Error("token lookup failed")
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	})
}

// userFromContext достаёт аутентифицированного пользователя; паника здесь
// означала бы маршрут, забывший middleware.
func userFromContext(ctx context.Context) domain.User {
	user, _ := ctx.Value(userContextKey).(domain.User)
	return user
}
