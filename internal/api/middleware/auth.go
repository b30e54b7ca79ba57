// auth.go — JWT middleware портала заявок.
// Портал сам выдаёт токены при входе (HS256), внешнего IdP нет.
// Claims извлекаются в контекст запроса; обработчики получают
// действующего пользователя через ClaimsFromContext и никогда не
// разбирают токен повторно.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/buzzilka/team-development/internal/api/errors"
	"github.com/buzzilka/team-development/internal/domain/model"
	"github.com/buzzilka/team-development/internal/domain/policy"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyClaims — извлечённые claims в контексте запроса.
const ContextKeyClaims contextKey = "jwt_claims"

// AuthClaims — извлечённые claims токена портала.
type AuthClaims struct {
	// Subject — идентификатор пользователя (sub).
	Subject string
	// Name — отображаемое имя.
	Name string
	// Roles — роли пользователя на момент выдачи токена.
	Roles []model.Role
	// IsConfirmed — подтверждён ли аккаунт на момент выдачи токена.
	IsConfirmed bool
}

// Actor возвращает действующего пользователя для пакета policy.
func (c *AuthClaims) Actor() policy.Actor {
	return policy.Actor{
		UserID:      c.Subject,
		Roles:       c.Roles,
		IsConfirmed: c.IsConfirmed,
	}
}

// portalClaims — raw claims токена для парсинга.
type portalClaims struct {
	jwt.RegisteredClaims
	// Name — отображаемое имя пользователя.
	Name string `json:"name"`
	// Roles — роли пользователя.
	Roles []string `json:"roles"`
	// Confirmed — подтверждён ли аккаунт.
	Confirmed bool `json:"confirmed"`
}

// JWTAuth — middleware аутентификации по HS256-токену портала.
type JWTAuth struct {
	secret []byte
	logger *slog.Logger
}

// NewJWTAuth создаёт JWT middleware с секретом подписи.
func NewJWTAuth(secret string, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		secret: []byte(secret),
		logger: logger.With(slog.String("component", "jwt_auth")),
	}
}

// IssueToken выдаёт подписанный токен для пользователя.
// ttl — время жизни токена.
func (a *JWTAuth) IssueToken(u *model.User, ttl time.Duration) (string, error) {
	roles := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = string(r)
	}

	now := time.Now()
	claims := portalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:      u.Name,
		Roles:     roles,
		Confirmed: u.IsConfirmed,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("подпись токена: %w", err)
	}
	return signed, nil
}

// Middleware возвращает HTTP middleware, проверяющий Bearer-токен.
// При успехе помещает AuthClaims в контекст запроса.
func (a *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				apierrors.Unauthorized(w, "Отсутствует bearer-токен")
				return
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := a.parse(raw)
			if err != nil {
				a.logger.Debug("Отклонён токен", slog.String("error", err.Error()))
				apierrors.Unauthorized(w, "Недействительный токен")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parse разбирает и валидирует токен, возвращая AuthClaims.
func (a *JWTAuth) parse(raw string) (*AuthClaims, error) {
	var pc portalClaims
	token, err := jwt.ParseWithClaims(raw, &pc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("парсинг токена: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("токен недействителен")
	}

	roles := make([]model.Role, 0, len(pc.Roles))
	for _, r := range pc.Roles {
		roles = append(roles, model.Role(r))
	}

	return &AuthClaims{
		Subject:     pc.Subject,
		Name:        pc.Name,
		Roles:       roles,
		IsConfirmed: pc.Confirmed,
	}, nil
}

// ClaimsFromContext возвращает AuthClaims из контекста запроса.
// nil — запрос не прошёл через JWT middleware.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}
