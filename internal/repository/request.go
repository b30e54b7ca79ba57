package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/buzzilka/team-development/internal/domain/model"
)

// Значения сортировки списка заявок.
const (
	SortCreatedAsc  = "CreatedAsc"
	SortCreatedDesc = "CreatedDesc"
)

// RequestFilter — параметры фильтрации списка заявок.
type RequestFilter struct {
	// UserID — заявки конкретного пользователя.
	UserID *string
	// Type — фильтр по типу подтверждения.
	Type *model.ConfirmationType
	// Status — фильтр по статусу.
	Status *model.Status
	// OwnerName — подстрока имени автора (без учёта регистра).
	OwnerName *string
	// Sort — SortCreatedAsc или SortCreatedDesc (по умолчанию Desc).
	Sort string
	// Page — номер страницы (с 1).
	Page int
	// Size — размер страницы.
	Size int
}

// RequestRepository — интерфейс доступа к таблицам requests и attachments.
type RequestRepository interface {
	// Create создаёт заявку вместе с вложениями.
	Create(ctx context.Context, req *model.Request, atts []*model.Attachment) error
	// GetByID возвращает заявку с именем автора и вложениями.
	GetByID(ctx context.Context, id string) (*model.Request, []*model.Attachment, error)
	// List возвращает страницу заявок (без содержимого вложений) и общее количество.
	List(ctx context.Context, f RequestFilter) ([]*model.Request, int, error)
	// Update обновляет поля заявки, сбрасывает статус в Pending и,
	// если newAtts непустой, целиком заменяет вложения.
	Update(ctx context.Context, req *model.Request, newAtts []*model.Attachment) error
	// Decide устанавливает статус заявки и возвращает обновлённую запись.
	Decide(ctx context.Context, id string, status model.Status) (*model.Request, error)
	// ListApprovedBetween возвращает одобренные заявки, пересекающие период.
	ListApprovedBetween(ctx context.Context, from, to time.Time) ([]*model.Request, error)
}

// requestRepo — реализация RequestRepository.
type requestRepo struct {
	db DBTX
}

// NewRequestRepository создаёт репозиторий заявок.
func NewRequestRepository(db DBTX) RequestRepository {
	return &requestRepo{db: db}
}

// RequestTx выполняет операции над заявками внутри транзакции.
// Создание и редактирование пишут в две таблицы (requests, attachments) —
// частичная запись недопустима.
type RequestTx struct {
	runner *TxRunner
}

// NewRequestTx создаёт транзакционную обёртку над репозиторием заявок.
func NewRequestTx(runner *TxRunner) *RequestTx {
	return &RequestTx{runner: runner}
}

// InTx выполняет fn с репозиторием, привязанным к транзакции.
func (t *RequestTx) InTx(ctx context.Context, fn func(repo RequestRepository) error) error {
	return t.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(NewRequestRepository(tx))
	})
}

const requestColumns = `r.id, r.user_id, u.name, r.confirmation_type,
	r.date_from, r.date_to, r.status, r.created_at, r.updated_at`

// scanRequest сканирует строку результата (с JOIN users) в модель Request.
func scanRequest(row pgx.Row) (*model.Request, error) {
	req := &model.Request{}
	err := row.Scan(
		&req.ID, &req.UserID, &req.OwnerName, &req.ConfirmationType,
		&req.DateFrom, &req.DateTo, &req.Status, &req.CreatedAt, &req.UpdatedAt,
	)
	return req, err
}

func (r *requestRepo) Create(ctx context.Context, req *model.Request, atts []*model.Attachment) error {
	query := `
		INSERT INTO requests (user_id, confirmation_type, date_from, date_to, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		req.UserID, req.ConfirmationType, req.DateFrom, req.DateTo, req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания заявки: %w", err)
	}

	return r.insertAttachments(ctx, req.ID, atts)
}

func (r *requestRepo) insertAttachments(ctx context.Context, requestID string, atts []*model.Attachment) error {
	query := `
		INSERT INTO attachments (request_id, kind, content, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	for i, a := range atts {
		a.RequestID = requestID
		a.Position = i
		err := r.db.QueryRow(ctx, query, requestID, a.Kind, a.Content, i).
			Scan(&a.ID, &a.CreatedAt)
		if err != nil {
			return fmt.Errorf("ошибка сохранения вложения: %w", err)
		}
	}
	return nil
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*model.Request, []*model.Attachment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM requests r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1`, requestColumns)

	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("ошибка получения заявки: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, request_id, kind, content, position, created_at
		FROM attachments
		WHERE request_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка получения вложений: %w", err)
	}
	defer rows.Close()

	var atts []*model.Attachment
	for rows.Next() {
		a := &model.Attachment{}
		if err := rows.Scan(&a.ID, &a.RequestID, &a.Kind, &a.Content, &a.Position, &a.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("ошибка сканирования вложения: %w", err)
		}
		atts = append(atts, a)
	}
	return req, atts, rows.Err()
}

func (r *requestRepo) List(ctx context.Context, f RequestFilter) ([]*model.Request, int, error) {
	var conditions []string
	var args []any
	argNum := 1

	if f.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", argNum))
		args = append(args, *f.UserID)
		argNum++
	}
	if f.Type != nil {
		conditions = append(conditions, fmt.Sprintf("r.confirmation_type = $%d", argNum))
		args = append(args, *f.Type)
		argNum++
	}
	if f.Status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", argNum))
		args = append(args, *f.Status)
		argNum++
	}
	if f.OwnerName != nil {
		conditions = append(conditions, fmt.Sprintf("u.name ILIKE $%d", argNum))
		args = append(args, "%"+*f.OwnerName+"%")
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	order := "r.created_at DESC"
	if f.Sort == SortCreatedAsc {
		order = "r.created_at ASC"
	}

	// Общее количество до пагинации
	var total int
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM requests r
		JOIN users u ON u.id = r.user_id
		%s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта заявок: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM requests r
		JOIN users u ON u.id = r.user_id
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`, requestColumns, where, order, argNum, argNum+1)

	args = append(args, f.Size, (f.Page-1)*f.Size)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка заявок: %w", err)
	}
	defer rows.Close()

	var result []*model.Request
	for rows.Next() {
		req := &model.Request{}
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.OwnerName, &req.ConfirmationType,
			&req.DateFrom, &req.DateTo, &req.Status, &req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, req)
	}
	return result, total, rows.Err()
}

func (r *requestRepo) Update(ctx context.Context, req *model.Request, newAtts []*model.Attachment) error {
	// Редактирование всегда возвращает заявку на повторное рассмотрение
	query := `
		UPDATE requests
		SET confirmation_type = $2, date_from = $3, date_to = $4,
			status = 'Pending', updated_at = now()
		WHERE id = $1
		RETURNING status, updated_at`

	err := r.db.QueryRow(ctx, query,
		req.ID, req.ConfirmationType, req.DateFrom, req.DateTo,
	).Scan(&req.Status, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления заявки: %w", err)
	}

	if len(newAtts) == 0 {
		return nil
	}

	// Полная замена вложений: старый набор удаляется целиком
	if _, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE request_id = $1`, req.ID); err != nil {
		return fmt.Errorf("ошибка удаления старых вложений: %w", err)
	}
	return r.insertAttachments(ctx, req.ID, newAtts)
}

func (r *requestRepo) Decide(ctx context.Context, id string, status model.Status) (*model.Request, error) {
	query := fmt.Sprintf(`
		UPDATE requests r
		SET status = $2, updated_at = now()
		FROM users u
		WHERE r.id = $1 AND u.id = r.user_id
		RETURNING %s`, requestColumns)

	req, err := scanRequest(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка изменения статуса заявки: %w", err)
	}
	return req, nil
}

func (r *requestRepo) ListApprovedBetween(ctx context.Context, from, to time.Time) ([]*model.Request, error) {
	// Заявка попадает в выгрузку, если её период пересекается с запрошенным.
	// Для заявок без date_to учитывается только date_from.
	query := fmt.Sprintf(`
		SELECT %s
		FROM requests r
		JOIN users u ON u.id = r.user_id
		WHERE r.status = 'Approved'
			AND r.date_from <= $2
			AND COALESCE(r.date_to, r.date_from) >= $1
		ORDER BY r.date_from, u.name`, requestColumns)

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("ошибка выгрузки одобренных заявок: %w", err)
	}
	defer rows.Close()

	var result []*model.Request
	for rows.Next() {
		req := &model.Request{}
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.OwnerName, &req.ConfirmationType,
			&req.DateFrom, &req.DateTo, &req.Status, &req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, req)
	}
	return result, rows.Err()
}
