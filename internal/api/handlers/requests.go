// requests.go — обработчики заявок: /User/requests, /Request/*.
package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/buzzilka/team-development/internal/api/errors"
	"github.com/buzzilka/team-development/internal/api/middleware"
	"github.com/buzzilka/team-development/internal/domain/model"
	"github.com/buzzilka/team-development/internal/domain/request"
	"github.com/buzzilka/team-development/internal/repository"
)

// maxUploadBytes — лимит размера multipart-запроса (32 MiB).
const maxUploadBytes = 32 << 20

// parseDraftForm разбирает multipart-форму заявки.
// Поля: ConfirmationType, DateFrom, DateTo; файлы: Files.
func parseDraftForm(r *http.Request) (request.Draft, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return request.Draft{}, err
	}

	draft := request.Draft{
		ConfirmationType: model.ConfirmationType(r.FormValue("ConfirmationType")),
		DateFrom:         r.FormValue("DateFrom"),
		DateTo:           r.FormValue("DateTo"),
	}

	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["Files"] {
			f, err := fh.Open()
			if err != nil {
				return request.Draft{}, err
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return request.Draft{}, err
			}
			draft.Files = append(draft.Files, content)
		}
	}
	return draft, nil
}

// requestFilterFromQuery извлекает фильтры списка заявок из query string.
func requestFilterFromQuery(r *http.Request) repository.RequestFilter {
	q := r.URL.Query()
	f := repository.RequestFilter{Sort: q.Get("sort")}
	f.Page, f.Size = pagination(r)

	if v := q.Get("confirmationType"); v != "" {
		ct := model.ConfirmationType(v)
		f.Type = &ct
	}
	if v := q.Get("status"); v != "" {
		st := model.Status(v)
		f.Status = &st
	}
	if v := q.Get("userName"); v != "" {
		f.OwnerName = &v
	}
	return f
}

// OwnRequests — GET /User/requests. Заявки текущего пользователя.
func (h *APIHandler) OwnRequests(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	f := requestFilterFromQuery(r)
	items, total, err := h.requests.ListOwn(r.Context(), claims.Actor(), f)
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

// CreateRequest — POST /Request/create. Multipart-форма с датами,
// типом заявки и файлами подтверждения.
func (h *APIHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	draft, err := parseDraftForm(r)
	if err != nil {
		apierrors.ValidationError(w, "Некорректная multipart-форма")
		return
	}

	req, err := h.requests.Create(r.Context(), claims.Actor(), draft)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestResponse(req, nil))
}

// GetRequest — GET /Request/{id}. Заявка с вложениями (base64).
func (h *APIHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	id := chi.URLParam(r, "id")
	if !validID(id) {
		apierrors.ValidationError(w, "Некорректный идентификатор заявки")
		return
	}
	req, atts, err := h.requests.Get(r.Context(), claims.Actor(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestResponse(req, atts))
}

// UpdateRequest — PUT /Request/update/{id}. Статус сбрасывается в
// Pending; новые файлы заменяют набор вложений целиком.
func (h *APIHandler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	draft, err := parseDraftForm(r)
	if err != nil {
		apierrors.ValidationError(w, "Некорректная multipart-форма")
		return
	}

	id := chi.URLParam(r, "id")
	if !validID(id) {
		apierrors.ValidationError(w, "Некорректный идентификатор заявки")
		return
	}
	req, err := h.requests.Edit(r.Context(), claims.Actor(), id, draft)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestResponse(req, nil))
}
