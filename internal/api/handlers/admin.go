// admin.go — обработчики /Admin/*: заявки всех пользователей,
// решения деканата, управление аккаунтами, выгрузка.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apierrors "github.com/buzzilka/team-development/internal/api/errors"
	"github.com/buzzilka/team-development/internal/api/middleware"
	"github.com/buzzilka/team-development/internal/domain/model"
	"github.com/buzzilka/team-development/internal/domain/request"
	"github.com/buzzilka/team-development/internal/repository"
)

// AllRequests — GET /Admin/requests. Все заявки с фильтрами
// (деканат); поддерживает поиск по имени автора и сортировку.
func (h *APIHandler) AllRequests(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	f := requestFilterFromQuery(r)
	items, total, err := h.requests.ListAll(r.Context(), claims.Actor(), f)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	result := make([]requestResponse, 0, len(items))
	for _, req := range items {
		result = append(result, toRequestResponse(req, nil))
	}
	writeJSON(w, http.StatusOK, newPagedResponse(result, f.Page, f.Size, total))
}

// ConfirmRequest — PUT /Admin/confirm-request?requestId=&status=.
// Решение деканата; повторное решение перезаписывает предыдущее.
func (h *APIHandler) ConfirmRequest(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	q := r.URL.Query()
	requestID := q.Get("requestId")
	status := model.Status(q.Get("status"))
	if !validID(requestID) {
		apierrors.ValidationError(w, "Параметр requestId обязателен и должен быть UUID")
		return
	}

	req, err := h.requests.Decide(r.Context(), claims.Actor(), requestID, status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestResponse(req, nil))
}

// Users — GET /Admin/users. Деканат видит всех с фильтрами;
// преподаватель — только подтверждённых студентов.
func (h *APIHandler) Users(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	q := r.URL.Query()
	f := repository.UserFilter{}
	f.Page, f.Size = pagination(r)
	if v := q.Get("group"); v != "" {
		f.Group = &v
	}
	if v := q.Get("role"); v != "" {
		f.Roles = []model.Role{model.Role(v)}
	}
	if q.Get("onlyConfirmed") == "true" {
		f.OnlyConfirmed = true
	}

	users, total, err := h.users.List(r.Context(), claims.Actor(), f)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	result := make([]userResponse, 0, len(users))
	for _, u := range users {
		result = append(result, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, newPagedResponse(result, f.Page, f.Size, total))
}

// ConfirmAccount — PUT /Admin/confirm-account?userId=&isConfirmed=.
func (h *APIHandler) ConfirmAccount(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	q := r.URL.Query()
	userID := q.Get("userId")
	if !validID(userID) {
		apierrors.ValidationError(w, "Параметр userId обязателен и должен быть UUID")
		return
	}
	confirmed := q.Get("isConfirmed") == "true"

	u, err := h.users.SetConfirmation(r.Context(), claims.Actor(), userID, confirmed)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// setRolesRequest — тело PUT /Admin/role.
type setRolesRequest struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

// SetRoles — PUT /Admin/role. Заменяет набор ролей пользователя.
func (h *APIHandler) SetRoles(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var body setRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if !validID(body.ID) {
		apierrors.ValidationError(w, "Поле id обязательно и должно быть UUID")
		return
	}

	roles := make([]model.Role, 0, len(body.Roles))
	for _, role := range body.Roles {
		roles = append(roles, model.Role(role))
	}

	u, err := h.users.SetRoles(r.Context(), claims.Actor(), body.ID, roles)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// setGroupRequest — тело PUT /Admin/group.
type setGroupRequest struct {
	UserID   string  `json:"userId"`
	NewGroup *string `json:"newGroup"`
}

// SetGroup — PUT /Admin/group. Меняет учебную группу пользователя.
func (h *APIHandler) SetGroup(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	var body setGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if !validID(body.UserID) {
		apierrors.ValidationError(w, "Поле userId обязательно и должно быть UUID")
		return
	}

	u, err := h.users.SetGroup(r.Context(), claims.Actor(), body.UserID, body.NewGroup)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// ExportRequests — GET /Admin/requests/export?dateFrom=&dateTo=.
// Отдаёт xlsx-файл с одобренными заявками за период.
func (h *APIHandler) ExportRequests(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	q := r.URL.Query()
	from, err := time.Parse(request.DateLayout, q.Get("dateFrom"))
	if err != nil {
		apierrors.FieldValidationError(w, "dateFrom", "Некорректная дата начала периода")
		return
	}
	to, err := time.Parse(request.DateLayout, q.Get("dateTo"))
	if err != nil {
		apierrors.FieldValidationError(w, "dateTo", "Некорректная дата окончания периода")
		return
	}

	data, err := h.export.ApprovedXLSX(r.Context(), claims.Actor(), from, to)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("approved-requests-%s-%s.xlsx",
		from.Format(request.DateLayout), to.Format(request.DateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
