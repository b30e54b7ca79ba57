package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/buzzilka/team-development/internal/domain/model"
)

// testSecret — секрет подписи для тестов.
const testSecret = "test-secret-portal"

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testUser — подтверждённый студент для выдачи токенов.
func testUser() *model.User {
	group := "972301"
	return &model.User{
		ID:          "user-123",
		Login:       "ivanov",
		Name:        "Иванов Иван",
		Roles:       []model.Role{model.RoleStudent},
		Group:       &group,
		IsConfirmed: true,
	}
}

// TestJWTAuth_ValidToken — валидный токен портала.
func TestJWTAuth_ValidToken(t *testing.T) {
	auth := NewJWTAuth(testSecret, testLogger())

	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("claims не найдены в контексте")
		}

		if claims.Subject != "user-123" {
			t.Errorf("ожидался sub=user-123, получен %s", claims.Subject)
		}
		if claims.Name != "Иванов Иван" {
			t.Errorf("ожидалось name=Иванов Иван, получено %s", claims.Name)
		}
		if len(claims.Roles) != 1 || claims.Roles[0] != model.RoleStudent {
			t.Errorf("ожидалась роль Student, получено %v", claims.Roles)
		}
		if !claims.IsConfirmed {
			t.Error("ожидался confirmed=true")
		}

		w.WriteHeader(http.StatusOK)
	}))

	tokenStr, err := auth.IssueToken(testUser(), time.Hour)
	if err != nil {
		t.Fatalf("не удалось выдать токен: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/User/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}
}

// TestJWTAuth_MissingToken — отсутствие Authorization header.
func TestJWTAuth_MissingToken(t *testing.T) {
	auth := NewJWTAuth(testSecret, testLogger())
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	req := httptest.NewRequest(http.MethodGet, "/User/requests", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestJWTAuth_ExpiredToken — просроченный токен.
func TestJWTAuth_ExpiredToken(t *testing.T) {
	auth := NewJWTAuth(testSecret, testLogger())
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	tokenStr, err := auth.IssueToken(testUser(), -time.Hour)
	if err != nil {
		t.Fatalf("не удалось выдать токен: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/User/requests", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestJWTAuth_WrongSecret — токен, подписанный другим секретом.
func TestJWTAuth_WrongSecret(t *testing.T) {
	issuer := NewJWTAuth("other-secret", testLogger())
	auth := NewJWTAuth(testSecret, testLogger())
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	tokenStr, err := issuer.IssueToken(testUser(), time.Hour)
	if err != nil {
		t.Fatalf("не удалось выдать токен: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/User/requests", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestJWTAuth_WrongAlgorithm — токен с неожиданным методом подписи.
func TestJWTAuth_WrongAlgorithm(t *testing.T) {
	auth := NewJWTAuth(testSecret, testLogger())
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	// Алгоритм none не должен приниматься
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-123",
		"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tokenStr, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/User/requests", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestJWTAuth_InvalidFormat — некорректный формат Authorization.
func TestJWTAuth_InvalidFormat(t *testing.T) {
	auth := NewJWTAuth(testSecret, testLogger())
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"no bearer prefix", "token123"},
		{"empty bearer", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/User/requests", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался статус 401, получен %d", rec.Code)
			}
		})
	}
}

// TestClaimsFromContext_Empty — пустой контекст.
func TestClaimsFromContext_Empty(t *testing.T) {
	if claims := ClaimsFromContext(context.Background()); claims != nil {
		t.Errorf("ожидался nil, получено %+v", claims)
	}
}

// TestAuthClaims_Actor — преобразование claims в действующего пользователя.
func TestAuthClaims_Actor(t *testing.T) {
	claims := &AuthClaims{
		Subject:     "user-123",
		Roles:       []model.Role{model.RoleDean},
		IsConfirmed: true,
	}

	actor := claims.Actor()
	if actor.UserID != "user-123" {
		t.Errorf("ожидался UserID=user-123, получен %s", actor.UserID)
	}
	if len(actor.Roles) != 1 || actor.Roles[0] != model.RoleDean {
		t.Errorf("ожидалась роль Dean, получено %v", actor.Roles)
	}
	if !actor.IsConfirmed {
		t.Error("признак подтверждения должен переноситься в Actor")
	}
}
