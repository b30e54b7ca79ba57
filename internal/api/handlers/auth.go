// auth.go — обработчики /User/*: регистрация, вход, выход, профиль.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/buzzilka/team-development/internal/api/errors"
	"github.com/buzzilka/team-development/internal/api/middleware"
	"github.com/buzzilka/team-development/internal/domain/model"
	"github.com/buzzilka/team-development/internal/service"
)

// registerRequest — тело POST /User/register.
type registerRequest struct {
	Login    string   `json:"login"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles,omitempty"`
	Group    *string  `json:"group,omitempty"`
}

// loginRequest — тело POST /User/login.
type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// loginResponse — ответ POST /User/login.
type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Register — POST /User/register.
// Новый аккаунт не подтверждён до решения деканата.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	roles := make([]model.Role, 0, len(body.Roles))
	for _, role := range body.Roles {
		roles = append(roles, model.Role(role))
	}

	u, err := h.auth.Register(r.Context(), service.RegisterParams{
		Login:    body.Login,
		Password: body.Password,
		Name:     body.Name,
		Roles:    roles,
		Group:    body.Group,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// Login — POST /User/login. Возвращает JWT и профиль.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	token, u, err := h.auth.Login(r.Context(), body.Login, body.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toUserResponse(u)})
}

// Logout — POST /User/logout. Токены stateless — сервер не хранит
// сессий, клиент просто забывает токен.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Profile — GET /User/profile. Возвращает профиль текущего пользователя.
func (h *APIHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	u, err := h.auth.Profile(r.Context(), claims.Subject)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}
