// export.go — выгрузка одобренных заявок за период в xlsx.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/buzzilka/team-development/internal/domain/policy"
	"github.com/buzzilka/team-development/internal/domain/request"
	"github.com/buzzilka/team-development/internal/repository"
)

// exportSheetName — имя листа с одобренными заявками.
const exportSheetName = "Одобренные заявки"

// ExportService — выгрузка одобренных заявок для деканата.
type ExportService struct {
	requests repository.RequestRepository
	logger   *slog.Logger
}

// NewExportService создаёт сервис выгрузки.
func NewExportService(requests repository.RequestRepository, logger *slog.Logger) *ExportService {
	return &ExportService{
		requests: requests,
		logger:   logger.With(slog.String("component", "export_service")),
	}
}

// ApprovedXLSX возвращает xlsx-книгу с одобренными заявками, период
// которых пересекается с [from, to]. Доступно только деканату.
func (s *ExportService) ApprovedXLSX(ctx context.Context, actor policy.Actor, from, to time.Time) ([]byte, error) {
	if !policy.ForRequest(actor, nil).Has(policy.CapExportApprovedRequests) {
		return nil, ErrForbidden
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: дата начала позже даты окончания", ErrValidation)
	}

	items, err := s.requests.ListApprovedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("выгрузка заявок: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	f.SetSheetName("Sheet1", exportSheetName)

	header := []any{"ID", "Студент", "Тип", "Дата начала", "Дата окончания", "Создана"}
	if err := f.SetSheetRow(exportSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("запись xlsx: %w", err)
	}

	for i, r := range items {
		dateTo := ""
		if r.DateTo != nil {
			dateTo = r.DateTo.Format(request.DateLayout)
		}
		row := []any{
			r.ID,
			r.OwnerName,
			string(r.ConfirmationType),
			r.DateFrom.Format(request.DateLayout),
			dateTo,
			r.CreatedAt.Format(time.RFC3339),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("запись xlsx: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("запись xlsx: %w", err)
	}

	s.logger.Info("Выгрузка одобренных заявок",
		slog.String("actor_id", actor.UserID),
		slog.Int("rows", len(items)),
	)
	return buf.Bytes(), nil
}
