package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/buzzilka/team-development/internal/directory"
	"github.com/buzzilka/team-development/internal/domain/model"
	"github.com/buzzilka/team-development/internal/domain/policy"
	"github.com/buzzilka/team-development/internal/domain/request"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestClient создаёт клиент поверх httptest-сервера со счётчиком запросов.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int64) {
	t.Helper()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return New(srv.URL, testLogger()), &calls
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// TestClient_LoginStoresToken — вход сохраняет токен, последующие
// запросы несут Authorization header.
func TestClient_LoginStoresToken(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/User/login":
			writeJSON(w, http.StatusOK, map[string]any{
				"token": "token-123",
				"user": User{
					ID:    "user-1",
					Login: "ivanov",
					Roles: []string{"Student"},
				},
			})
		case "/User/profile":
			gotAuth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, User{ID: "user-1"})
		default:
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
	})

	session, user, err := c.Login(context.Background(), "ivanov", "secret")
	if err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	if session.UserID != "user-1" {
		t.Errorf("UserID = %q, хотели user-1", session.UserID)
	}
	if len(session.Roles) != 1 || session.Roles[0] != model.RoleStudent {
		t.Errorf("Roles = %v, хотели [Student]", session.Roles)
	}
	if user.Login != "ivanov" {
		t.Errorf("Login = %q", user.Login)
	}

	if _, err := c.Profile(context.Background()); err != nil {
		t.Fatalf("Profile() ошибка: %v", err)
	}
	if gotAuth != "Bearer token-123" {
		t.Errorf("Authorization = %q, хотели Bearer token-123", gotAuth)
	}
}

// TestClient_CreateRequestLocalValidation — некорректный черновик
// отклоняется локально, без единого HTTP-запроса.
func TestClient_CreateRequestLocalValidation(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("сервер не должен быть вызван")
	})

	// Family с датой начала позже даты окончания
	_, err := c.CreateRequest(context.Background(), request.Draft{
		ConfirmationType: model.ConfirmationFamily,
		DateFrom:         "2026-03-10",
		DateTo:           "2026-03-01",
	})

	var ferr *request.FieldError
	if !errors.As(err, &ferr) {
		t.Fatalf("ожидался FieldError, получено %v", err)
	}
	if ferr.Field != "dateFrom" {
		t.Errorf("Field = %q, хотели dateFrom", ferr.Field)
	}
	if calls.Load() != 0 {
		t.Errorf("HTTP-запросов = %d, хотели 0", calls.Load())
	}
}

// TestClient_SetUserRolesRejectedLocally — пустой набор ролей
// отклоняется до обращения к серверу.
func TestClient_SetUserRolesRejectedLocally(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("сервер не должен быть вызван")
	})

	_, err := c.SetUserRoles(context.Background(), "user-1", nil)
	if !errors.Is(err, policy.ErrEmptyRoles) {
		t.Errorf("ожидался ErrEmptyRoles, получено %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("HTTP-запросов = %d, хотели 0", calls.Load())
	}
}

// TestClient_UnauthorizedInvalidatesSession — ответ 401 сбрасывает токен.
func TestClient_UnauthorizedInvalidatesSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/User/login":
			writeJSON(w, http.StatusOK, map[string]any{
				"token": "token-123",
				"user":  User{ID: "user-1", Roles: []string{"Student"}},
			})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]string{
					"code":    "UNAUTHORIZED",
					"message": "Недействительный токен",
				},
			})
		}
	})

	if _, _, err := c.Login(context.Background(), "ivanov", "secret"); err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	if c.Token() == "" {
		t.Fatal("токен должен быть сохранён после входа")
	}

	_, err := c.Profile(context.Background())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("ожидался TransportError, получено %v", err)
	}
	if terr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, хотели 401", terr.StatusCode)
	}
	if terr.Code != "UNAUTHORIZED" {
		t.Errorf("Code = %q, хотели UNAUTHORIZED", terr.Code)
	}
	if c.Token() != "" {
		t.Error("401 должен инвалидировать сессию клиента")
	}
}

// TestClient_DecideRequestParams — решение уходит query-параметрами.
func TestClient_DecideRequestParams(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/Admin/confirm-request" {
			t.Errorf("запрос = %s %s, хотели PUT /Admin/confirm-request", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("requestId") != "req-1" {
			t.Errorf("requestId = %q", r.URL.Query().Get("requestId"))
		}
		if r.URL.Query().Get("status") != "Approved" {
			t.Errorf("status = %q", r.URL.Query().Get("status"))
		}
		writeJSON(w, http.StatusOK, Request{ID: "req-1", Status: "Approved"})
	})

	got, err := c.DecideRequest(context.Background(), "req-1", model.StatusApproved)
	if err != nil {
		t.Fatalf("DecideRequest() ошибка: %v", err)
	}
	if got.Status != "Approved" {
		t.Errorf("Status = %q, хотели Approved", got.Status)
	}
}

// TestClient_CreateRequestMultipart — корректный черновик уходит
// multipart-формой с файлами.
func TestClient_CreateRequestMultipart(t *testing.T) {
	pdf := []byte("%PDF-1.4 test")
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("не multipart-форма: %v", err)
		}
		if r.FormValue("ConfirmationType") != "Medical" {
			t.Errorf("ConfirmationType = %q", r.FormValue("ConfirmationType"))
		}
		if r.FormValue("DateFrom") != "2026-03-01" {
			t.Errorf("DateFrom = %q", r.FormValue("DateFrom"))
		}
		files := r.MultipartForm.File["Files"]
		if len(files) != 1 {
			t.Fatalf("файлов = %d, хотели 1", len(files))
		}
		if files[0].Filename != "file-0.pdf" {
			t.Errorf("имя файла = %q, расширение должно следовать сигнатуре", files[0].Filename)
		}
		writeJSON(w, http.StatusCreated, Request{ID: "req-1", Status: "Pending"})
	})

	got, err := c.CreateRequest(context.Background(), request.Draft{
		ConfirmationType: model.ConfirmationMedical,
		DateFrom:         "2026-03-01",
		Files:            [][]byte{pdf},
	})
	if err != nil {
		t.Fatalf("CreateRequest() ошибка: %v", err)
	}
	if got.Status != "Pending" {
		t.Errorf("Status = %q, хотели Pending", got.Status)
	}
}

// TestClient_RequestDirectory — справочник заявок: выборка, точечный
// патч после решения, добавление созданной заявки в конец.
func TestClient_RequestDirectory(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []Request{
				{ID: "req-1", Status: "Pending"},
				{ID: "req-2", Status: "Pending"},
			},
			"page": 1, "size": 20, "totalCount": 2, "totalPages": 1,
		})
	})

	dir := NewOwnRequestDirectory(c)
	dir.Fetch(context.Background(), RequestQuery{Page: 1})

	if dir.State() != directory.Ready {
		t.Fatalf("State = %v, хотели Ready", dir.State())
	}
	items := dir.Items()
	if len(items) != 2 {
		t.Fatalf("записей = %d, хотели 2", len(items))
	}
	if dir.TotalPages() != 1 {
		t.Errorf("TotalPages = %d, хотели 1", dir.TotalPages())
	}

	// Решение по req-1 — патчится только статус этой записи
	if !dir.PatchByID("req-1", func(r *Request) { r.Status = "Approved" }) {
		t.Fatal("PatchByID не нашёл запись")
	}
	items = dir.Items()
	if items[0].Status != "Approved" {
		t.Errorf("req-1 Status = %q, хотели Approved", items[0].Status)
	}
	if items[1].Status != "Pending" {
		t.Errorf("req-2 Status = %q, не должен меняться", items[1].Status)
	}

	// Созданная заявка появляется в конце страницы
	dir.Append(Request{ID: "req-3", Status: "Pending"})
	items = dir.Items()
	if len(items) != 3 || items[2].ID != "req-3" {
		t.Error("созданная заявка должна быть в конце списка")
	}
}
