// handler.go — основной обработчик HTTP API портала заявок.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	apierrors "github.com/buzzilka/team-development/internal/api/errors"
	"github.com/buzzilka/team-development/internal/domain/model"
	"github.com/buzzilka/team-development/internal/domain/policy"
	"github.com/buzzilka/team-development/internal/domain/request"
	"github.com/buzzilka/team-development/internal/service"
)

// APIHandler — основной обработчик API портала.
type APIHandler struct {
	health   *HealthHandler
	auth     *service.AuthService
	requests *service.RequestService
	users    *service.UserService
	export   *service.ExportService
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	auth *service.AuthService,
	requests *service.RequestService,
	users *service.UserService,
	export *service.ExportService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		auth:     auth,
		requests: requests,
		users:    users,
		export:   export,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- DTO ---

// userResponse — пользователь в ответах API.
type userResponse struct {
	ID          string   `json:"id"`
	Login       string   `json:"login"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	Group       *string  `json:"group,omitempty"`
	IsConfirmed bool     `json:"isConfirmed"`
	CreatedAt   string   `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	roles := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = string(r)
	}
	return userResponse{
		ID:          u.ID,
		Login:       u.Login,
		Name:        u.Name,
		Roles:       roles,
		Group:       u.Group,
		IsConfirmed: u.IsConfirmed,
		CreatedAt:   u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// attachmentResponse — вложение заявки; content — base64.
type attachmentResponse struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Content []byte `json:"content,omitempty"`
}

// requestResponse — заявка в ответах API.
type requestResponse struct {
	ID               string               `json:"id"`
	UserID           string               `json:"userId"`
	UserName         string               `json:"userName,omitempty"`
	ConfirmationType string               `json:"confirmationType"`
	DateFrom         string               `json:"dateFrom"`
	DateTo           *string              `json:"dateTo,omitempty"`
	Status           string               `json:"status"`
	CreatedAt        string               `json:"createdAt"`
	Files            []attachmentResponse `json:"files,omitempty"`
}

func toRequestResponse(req *model.Request, atts []*model.Attachment) requestResponse {
	resp := requestResponse{
		ID:               req.ID,
		UserID:           req.UserID,
		UserName:         req.OwnerName,
		ConfirmationType: string(req.ConfirmationType),
		DateFrom:         req.DateFrom.Format(request.DateLayout),
		Status:           string(req.Status),
		CreatedAt:        req.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if req.DateTo != nil {
		dateTo := req.DateTo.Format(request.DateLayout)
		resp.DateTo = &dateTo
	}
	for _, a := range atts {
		resp.Files = append(resp.Files, attachmentResponse{
			ID:      a.ID,
			Kind:    a.Kind,
			Content: a.Content,
		})
	}
	return resp
}

// pagedResponse — страница результатов.
type pagedResponse struct {
	Items      any `json:"items"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

func newPagedResponse(items any, page, size, total int) pagedResponse {
	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}
	return pagedResponse{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalCount: total,
		TotalPages: totalPages,
	}
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// pagination извлекает параметры page и size из query string.
func pagination(r *http.Request) (page, size int) {
	page = 1
	size = 20

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			page = n
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			size = n
			if size > 100 {
				size = 100
			}
		}
	}
	return page, size
}

// validID проверяет, что идентификатор — корректный UUID.
// Некорректный id отсекается до обращения к БД.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// writeServiceError транслирует ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	var ferr *request.FieldError
	switch {
	case errors.As(err, &ferr):
		apierrors.FieldValidationError(w, ferr.Field, ferr.Reason)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Ресурс не найден")
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, "Недостаточно прав для выполнения действия")
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, "Пользователь с таким логином уже существует")
	case errors.Is(err, service.ErrInvalidCredentials):
		apierrors.Unauthorized(w, "Неверный логин или пароль")
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrStudentNeedsGroup),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, policy.ErrEmptyRoles):
		apierrors.ValidationError(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
