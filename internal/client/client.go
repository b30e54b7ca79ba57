// Пакет client — Go-клиент HTTP API портала заявок.
// Повторяет серверные правила до отправки: черновик заявки и смена
// ролей проверяются локально (fail fast), сервер остаётся
// авторитетным исполнителем. Ответ 401 инвалидирует сессию клиента.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/buzzilka/team-development/internal/directory"
	"github.com/buzzilka/team-development/internal/domain/filekind"
	"github.com/buzzilka/team-development/internal/domain/model"
	"github.com/buzzilka/team-development/internal/domain/policy"
	"github.com/buzzilka/team-development/internal/domain/request"
)

// TransportError — ошибка HTTP-уровня: сервер вернул не-2xx.
type TransportError struct {
	// StatusCode — HTTP-статус ответа
	StatusCode int
	// Code — машинный код ошибки из тела ответа
	Code string
	// Message — человекочитаемое сообщение
	Message string
}

// Error реализует интерфейс error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("сервер вернул %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Session — активная сессия пользователя: идентификатор, роли и
// признак подтверждения из ответа на вход. Передаётся явно,
// не хранится глобально.
type Session struct {
	// UserID — идентификатор вошедшего пользователя
	UserID string
	// Roles — его роли на момент входа
	Roles []model.Role
	// IsConfirmed — подтверждён ли аккаунт на момент входа
	IsConfirmed bool
}

// Actor возвращает действующего пользователя для пакета policy.
func (s *Session) Actor() policy.Actor {
	return policy.Actor{
		UserID:      s.UserID,
		Roles:       s.Roles,
		IsConfirmed: s.IsConfirmed,
	}
}

// User — пользователь в ответах API.
type User struct {
	ID          string   `json:"id"`
	Login       string   `json:"login"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	Group       *string  `json:"group,omitempty"`
	IsConfirmed bool     `json:"isConfirmed"`
	CreatedAt   string   `json:"createdAt"`
}

// ModelRoles конвертирует роли пользователя в доменный тип.
func (u *User) ModelRoles() []model.Role {
	roles := make([]model.Role, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = model.Role(r)
	}
	return roles
}

// Attachment — вложение заявки; Content декодируется из base64.
type Attachment struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Content []byte `json:"content,omitempty"`
}

// Request — заявка в ответах API.
type Request struct {
	ID               string       `json:"id"`
	UserID           string       `json:"userId"`
	UserName         string       `json:"userName,omitempty"`
	ConfirmationType string       `json:"confirmationType"`
	DateFrom         string       `json:"dateFrom"`
	DateTo           *string      `json:"dateTo,omitempty"`
	Status           string       `json:"status"`
	CreatedAt        string       `json:"createdAt"`
	Files            []Attachment `json:"files,omitempty"`
}

// page — страница результатов в ответах API.
type page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// RequestQuery — параметры списков заявок.
type RequestQuery struct {
	Page             int
	Size             int
	Sort             string
	ConfirmationType string
	Status           string
	UserName         string
}

func (q RequestQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.ConfirmationType != "" {
		v.Set("confirmationType", q.ConfirmationType)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.UserName != "" {
		v.Set("userName", q.UserName)
	}
	return v
}

// UserQuery — параметры списка пользователей.
type UserQuery struct {
	Page          int
	Size          int
	Group         string
	Role          string
	OnlyConfirmed bool
}

func (q UserQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Group != "" {
		v.Set("group", q.Group)
	}
	if q.Role != "" {
		v.Set("role", q.Role)
	}
	if q.OnlyConfirmed {
		v.Set("onlyConfirmed", "true")
	}
	return v
}

// Client — HTTP-клиент портала заявок.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger

	mu    sync.Mutex
	token string
}

// New создаёт клиент портала.
func New(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With(slog.String("component", "portal_client")),
	}
}

// Token возвращает текущий токен сессии (пусто — не авторизован).
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// do выполняет запрос, подставляя токен, и декодирует ответ в out.
// Не-2xx транслируется в *TransportError; 401 сбрасывает сессию.
func (c *Client) do(req *http.Request, out any) error {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		terr := &TransportError{StatusCode: resp.StatusCode}

		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			terr.Code = body.Error.Code
			terr.Message = body.Error.Message
		}

		// Сессия недействительна — токен забывается
		if resp.StatusCode == http.StatusUnauthorized {
			c.setToken("")
		}
		return terr
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("чтение ответа: %w", err)
		}
		*raw = data
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("декодирование ответа: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("кодирование тела: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// --- Аккаунт ---

// RegisterParams — параметры регистрации.
type RegisterParams struct {
	Login    string   `json:"login"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles,omitempty"`
	Group    *string  `json:"group,omitempty"`
}

// Register создаёт аккаунт. Аккаунт не подтверждён до решения деканата.
func (c *Client) Register(ctx context.Context, p RegisterParams) (*User, error) {
	var u User
	if err := c.sendJSON(ctx, http.MethodPost, "/User/register", p, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login выполняет вход и сохраняет токен для последующих запросов.
func (c *Client) Login(ctx context.Context, login, password string) (*Session, *User, error) {
	body := map[string]string{"login": login, "password": password}
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := c.sendJSON(ctx, http.MethodPost, "/User/login", body, &resp); err != nil {
		return nil, nil, err
	}

	c.setToken(resp.Token)
	session := &Session{
		UserID:      resp.User.ID,
		Roles:       resp.User.ModelRoles(),
		IsConfirmed: resp.User.IsConfirmed,
	}
	c.logger.Debug("Вход выполнен", slog.String("user_id", session.UserID))
	return session, &resp.User, nil
}

// Logout завершает сессию и забывает токен.
func (c *Client) Logout(ctx context.Context) error {
	err := c.sendJSON(ctx, http.MethodPost, "/User/logout", nil, nil)
	c.setToken("")
	return err
}

// Profile возвращает профиль текущего пользователя.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := c.getJSON(ctx, "/User/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// --- Заявки ---

// OwnRequests возвращает страницу заявок текущего пользователя.
func (c *Client) OwnRequests(ctx context.Context, q RequestQuery) (directory.Page[Request], int, error) {
	return c.requestPage(ctx, "/User/requests", q)
}

// AllRequests возвращает страницу всех заявок (деканат).
func (c *Client) AllRequests(ctx context.Context, q RequestQuery) (directory.Page[Request], int, error) {
	return c.requestPage(ctx, "/Admin/requests", q)
}

func (c *Client) requestPage(ctx context.Context, path string, q RequestQuery) (directory.Page[Request], int, error) {
	var resp page[Request]
	if err := c.getJSON(ctx, path, q.values(), &resp); err != nil {
		return directory.Page[Request]{}, 0, err
	}
	return directory.Page[Request]{
		Items:      resp.Items,
		TotalPages: resp.TotalPages,
	}, resp.TotalCount, nil
}

// Request возвращает заявку с вложениями.
func (c *Client) Request(ctx context.Context, id string) (*Request, error) {
	var r Request
	if err := c.getJSON(ctx, "/Request/"+id, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRequest подаёт новую заявку. Черновик проверяется локально —
// при нарушении правил возвращается *request.FieldError без обращения
// к серверу.
func (c *Client) CreateRequest(ctx context.Context, draft request.Draft) (*Request, error) {
	if ferr := request.ValidateDraft(draft, 0); ferr != nil {
		return nil, ferr
	}
	return c.submitDraft(ctx, http.MethodPost, "/Request/create", draft)
}

// UpdateRequest редактирует заявку. existingAttachments — количество
// вложений на сервере; при новых файлах набор заменяется целиком.
func (c *Client) UpdateRequest(ctx context.Context, id string, draft request.Draft, existingAttachments int) (*Request, error) {
	if ferr := request.ValidateDraft(draft, existingAttachments); ferr != nil {
		return nil, ferr
	}
	return c.submitDraft(ctx, http.MethodPut, "/Request/update/"+id, draft)
}

func (c *Client) submitDraft(ctx context.Context, method, path string, draft request.Draft) (*Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	_ = mw.WriteField("ConfirmationType", string(draft.ConfirmationType))
	_ = mw.WriteField("DateFrom", draft.DateFrom)
	if draft.DateTo != "" {
		_ = mw.WriteField("DateTo", draft.DateTo)
	}
	for i, content := range draft.Files {
		kind := filekind.Detect(content)
		name := fmt.Sprintf("file-%d.%s", i, kind.Extension())
		fw, err := mw.CreateFormFile("Files", name)
		if err != nil {
			return nil, fmt.Errorf("формирование multipart: %w", err)
		}
		if _, err := fw.Write(content); err != nil {
			return nil, fmt.Errorf("формирование multipart: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("формирование multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var r Request
	if err := c.do(req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecideRequest выносит решение по заявке (Approved или Rejected).
func (c *Client) DecideRequest(ctx context.Context, id string, status model.Status) (*Request, error) {
	q := url.Values{}
	q.Set("requestId", id)
	q.Set("status", string(status))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+"/Admin/confirm-request?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}

	var r Request
	if err := c.do(req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// --- Пользователи ---

// Users возвращает страницу пользователей.
func (c *Client) Users(ctx context.Context, q UserQuery) (directory.Page[User], int, error) {
	var resp page[User]
	if err := c.getJSON(ctx, "/Admin/users", q.values(), &resp); err != nil {
		return directory.Page[User]{}, 0, err
	}
	return directory.Page[User]{
		Items:      resp.Items,
		TotalPages: resp.TotalPages,
	}, resp.TotalCount, nil
}

// SetUserConfirmation подтверждает или снимает подтверждение аккаунта.
func (c *Client) SetUserConfirmation(ctx context.Context, userID string, confirmed bool) (*User, error) {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("isConfirmed", strconv.FormatBool(confirmed))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+"/Admin/confirm-account?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}

	var u User
	if err := c.do(req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserRoles заменяет набор ролей пользователя. Пустой или
// некорректный набор отклоняется локально, без обращения к серверу.
func (c *Client) SetUserRoles(ctx context.Context, userID string, roles []model.Role) (*User, error) {
	if err := policy.ValidateRoleChange(roles); err != nil {
		return nil, err
	}

	body := struct {
		ID    string   `json:"id"`
		Roles []string `json:"roles"`
	}{ID: userID}
	for _, r := range roles {
		body.Roles = append(body.Roles, string(r))
	}

	var u User
	if err := c.sendJSON(ctx, http.MethodPut, "/Admin/role", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserGroup меняет учебную группу пользователя.
func (c *Client) SetUserGroup(ctx context.Context, userID string, newGroup *string) (*User, error) {
	body := struct {
		UserID   string  `json:"userId"`
		NewGroup *string `json:"newGroup"`
	}{UserID: userID, NewGroup: newGroup}

	var u User
	if err := c.sendJSON(ctx, http.MethodPut, "/Admin/group", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ExportApproved выгружает xlsx-файл одобренных заявок за период.
// Даты — в формате request.DateLayout.
func (c *Client) ExportApproved(ctx context.Context, dateFrom, dateTo string) ([]byte, error) {
	q := url.Values{}
	q.Set("dateFrom", dateFrom)
	q.Set("dateTo", dateTo)

	var data []byte
	if err := c.getJSON(ctx, "/Admin/requests/export", q, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// --- Представления-справочники ---

// NewOwnRequestDirectory создаёт постраничное представление заявок
// текущего пользователя с локальной сверкой после мутаций.
func NewOwnRequestDirectory(c *Client) *directory.Directory[Request, RequestQuery] {
	return directory.New(func(ctx context.Context, q RequestQuery) (directory.Page[Request], error) {
		p, _, err := c.OwnRequests(ctx, q)
		return p, err
	}, func(r Request) string { return r.ID })
}

// NewAllRequestDirectory создаёт представление всех заявок (деканат).
func NewAllRequestDirectory(c *Client) *directory.Directory[Request, RequestQuery] {
	return directory.New(func(ctx context.Context, q RequestQuery) (directory.Page[Request], error) {
		p, _, err := c.AllRequests(ctx, q)
		return p, err
	}, func(r Request) string { return r.ID })
}

// NewUserDirectory создаёт представление пользователей.
func NewUserDirectory(c *Client) *directory.Directory[User, UserQuery] {
	return directory.New(func(ctx context.Context, q UserQuery) (directory.Page[User], error) {
		p, _, err := c.Users(ctx, q)
		return p, err
	}, func(u User) string { return u.ID })
}
