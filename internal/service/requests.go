// requests.go — жизненный цикл заявки: подача, редактирование,
// решение деканата, просмотр. Координирует policy, repository,
// LRU cache и Prometheus-метрики.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/buzzilka/team-development/internal/domain/filekind"
	"github.com/buzzilka/team-development/internal/domain/model"
	"github.com/buzzilka/team-development/internal/domain/policy"
	"github.com/buzzilka/team-development/internal/domain/request"
	"github.com/buzzilka/team-development/internal/repository"
)

// Prometheus-метрики заявок.
var (
	requestsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ap_requests_created_total",
		Help: "Общее количество поданных заявок.",
	})
	requestsDecidedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ap_requests_decided_total",
		Help: "Общее количество решений по заявкам.",
	}, []string{"status"})
)

// RequestTxExecutor выполняет операции над заявками в транзакции.
// Реализуется repository.RequestTx; в тестах подменяется фейком.
type RequestTxExecutor interface {
	InTx(ctx context.Context, fn func(repo repository.RequestRepository) error) error
}

// RequestService — сервис жизненного цикла заявок.
type RequestService struct {
	requests repository.RequestRepository
	tx       RequestTxExecutor
	cache    *RequestCache
	logger   *slog.Logger
}

// NewRequestService создаёт сервис заявок.
func NewRequestService(
	requests repository.RequestRepository,
	tx RequestTxExecutor,
	cache *RequestCache,
	logger *slog.Logger,
) *RequestService {
	return &RequestService{
		requests: requests,
		tx:       tx,
		cache:    cache,
		logger:   logger.With(slog.String("component", "request_service")),
	}
}

// buildAttachments формирует вложения из содержимого файлов черновика.
// Тип каждого файла определяется по сигнатуре, не по имени.
func buildAttachments(files [][]byte) []*model.Attachment {
	atts := make([]*model.Attachment, 0, len(files))
	for _, content := range files {
		atts = append(atts, &model.Attachment{
			Kind:    string(filekind.Detect(content)),
			Content: content,
		})
	}
	return atts
}

// parseDraftDates разбирает даты черновика.
// Черновик уже прошёл ValidateDraft — ошибок разбора быть не может,
// но возвращаем их на случай рассинхронизации.
func parseDraftDates(d request.Draft) (time.Time, *time.Time, error) {
	dateFrom, err := time.Parse(request.DateLayout, d.DateFrom)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("%w: некорректная дата начала", ErrValidation)
	}
	var dateTo *time.Time
	if d.DateTo != "" {
		t, err := time.Parse(request.DateLayout, d.DateTo)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("%w: некорректная дата окончания", ErrValidation)
		}
		dateTo = &t
	}
	return dateFrom, dateTo, nil
}

// Create подаёт новую заявку от имени актора.
// Возвращает *request.FieldError при нарушении правил черновика.
func (s *RequestService) Create(ctx context.Context, actor policy.Actor, draft request.Draft) (*model.Request, error) {
	if !policy.ForRequest(actor, nil).Has(policy.CapCreateRequest) {
		return nil, ErrForbidden
	}

	if ferr := request.ValidateDraft(draft, 0); ferr != nil {
		return nil, ferr
	}

	dateFrom, dateTo, err := parseDraftDates(draft)
	if err != nil {
		return nil, err
	}

	req := &model.Request{
		UserID:           actor.UserID,
		ConfirmationType: draft.ConfirmationType,
		DateFrom:         dateFrom,
		DateTo:           dateTo,
		Status:           model.StatusPending,
	}
	atts := buildAttachments(draft.Files)

	err = s.tx.InTx(ctx, func(repo repository.RequestRepository) error {
		return repo.Create(ctx, req, atts)
	})
	if err != nil {
		return nil, fmt.Errorf("создание заявки: %w", err)
	}

	requestsCreatedTotal.Inc()
	s.logger.Info("Заявка подана",
		slog.String("request_id", req.ID),
		slog.String("user_id", actor.UserID),
		slog.String("type", string(req.ConfirmationType)),
	)
	return req, nil
}

// Get возвращает заявку с вложениями. Студент видит только свои заявки,
// деканат — любые.
func (s *RequestService) Get(ctx context.Context, actor policy.Actor, id string) (*model.Request, []*model.Attachment, error) {
	req, atts, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	caps := policy.ForRequest(actor, req)
	ownView := caps.Has(policy.CapViewOwnRequests) && req.UserID == actor.UserID
	if !ownView && !caps.Has(policy.CapViewAllRequests) {
		return nil, nil, ErrForbidden
	}
	return req, atts, nil
}

// load читает заявку через кэш.
func (s *RequestService) load(ctx context.Context, id string) (*model.Request, []*model.Attachment, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached.request, cached.attachments, nil
	}

	req, atts, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("получение заявки: %w", err)
	}
	s.cache.Set(id, req, atts)
	return req, atts, nil
}

// ListOwn возвращает страницу заявок актора.
func (s *RequestService) ListOwn(ctx context.Context, actor policy.Actor, f repository.RequestFilter) ([]*model.Request, int, error) {
	if !policy.ForRequest(actor, nil).Has(policy.CapViewOwnRequests) {
		return nil, 0, ErrForbidden
	}
	f.UserID = &actor.UserID
	return s.list(ctx, f)
}

// ListAll возвращает страницу всех заявок (деканат).
func (s *RequestService) ListAll(ctx context.Context, actor policy.Actor, f repository.RequestFilter) ([]*model.Request, int, error) {
	if !policy.ForRequest(actor, nil).Has(policy.CapViewAllRequests) {
		return nil, 0, ErrForbidden
	}
	return s.list(ctx, f)
}

func (s *RequestService) list(ctx context.Context, f repository.RequestFilter) ([]*model.Request, int, error) {
	items, total, err := s.requests.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("список заявок: %w", err)
	}
	return items, total, nil
}

// Edit редактирует заявку. Статус сбрасывается в Pending; при наличии
// новых файлов набор вложений заменяется целиком, иначе сохраняется.
// Заявки типа Educational правит только деканат.
func (s *RequestService) Edit(ctx context.Context, actor policy.Actor, id string, draft request.Draft) (*model.Request, error) {
	req, atts, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение заявки: %w", err)
	}

	if !policy.ForRequest(actor, req).Has(policy.CapEditRequest) {
		return nil, ErrForbidden
	}

	if ferr := request.ValidateDraft(draft, len(atts)); ferr != nil {
		return nil, ferr
	}

	dateFrom, dateTo, err := parseDraftDates(draft)
	if err != nil {
		return nil, err
	}

	req.ConfirmationType = draft.ConfirmationType
	req.DateFrom = dateFrom
	req.DateTo = dateTo
	newAtts := buildAttachments(draft.Files)

	err = s.tx.InTx(ctx, func(repo repository.RequestRepository) error {
		return repo.Update(ctx, req, newAtts)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление заявки: %w", err)
	}

	s.cache.Invalidate(id)
	s.logger.Info("Заявка отредактирована",
		slog.String("request_id", id),
		slog.String("actor_id", actor.UserID),
		slog.Bool("attachments_replaced", len(newAtts) > 0),
	)
	return req, nil
}

// Decide выносит решение деканата по заявке.
// Повторное решение перезаписывает предыдущее — действует последнее.
func (s *RequestService) Decide(ctx context.Context, actor policy.Actor, id string, status model.Status) (*model.Request, error) {
	if status != model.StatusApproved && status != model.StatusRejected {
		return nil, ErrInvalidStatus
	}

	req, _, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение заявки: %w", err)
	}

	// Решение по собственной заявке запрещено политикой
	if !policy.ForRequest(actor, req).Has(policy.CapDecideRequest) {
		return nil, ErrForbidden
	}

	updated, err := s.requests.Decide(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("решение по заявке: %w", err)
	}

	s.cache.Invalidate(id)
	requestsDecidedTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("Решение по заявке",
		slog.String("request_id", id),
		slog.String("actor_id", actor.UserID),
		slog.String("status", string(status)),
	)
	return updated, nil
}
