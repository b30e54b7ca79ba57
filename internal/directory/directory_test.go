package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/buzzilka/team-development/internal/domain/model"
)

// reqFilter — параметры выборки в тестах.
type reqFilter struct {
	Status string
	Page   int
}

func testDirectory(fetch Fetcher[model.Request, reqFilter]) *Directory[model.Request, reqFilter] {
	return New(fetch, func(r model.Request) string { return r.ID })
}

func fixedPage(items ...model.Request) Fetcher[model.Request, reqFilter] {
	return func(ctx context.Context, _ reqFilter) (Page[model.Request], error) {
		return Page[model.Request]{Items: items, TotalPages: 1}, nil
	}
}

func TestFetch_Ready(t *testing.T) {
	d := testDirectory(fixedPage(
		model.Request{ID: "r1", Status: model.StatusPending},
		model.Request{ID: "r2", Status: model.StatusPending},
	))
	if d.State() != Loading {
		t.Fatalf("State() = %v до выборки, хотели Loading", d.State())
	}

	d.Fetch(context.Background(), reqFilter{})

	if d.State() != Ready {
		t.Errorf("State() = %v, хотели Ready", d.State())
	}
	if got := len(d.Items()); got != 2 {
		t.Errorf("len(Items()) = %d, хотели 2", got)
	}
	if d.TotalPages() != 1 {
		t.Errorf("TotalPages() = %d, хотели 1", d.TotalPages())
	}
}

func TestFetch_Error(t *testing.T) {
	boom := errors.New("сервер недоступен")
	d := testDirectory(func(ctx context.Context, _ reqFilter) (Page[model.Request], error) {
		return Page[model.Request]{}, boom
	})

	d.Fetch(context.Background(), reqFilter{})

	if d.State() != Failed {
		t.Errorf("State() = %v, хотели Failed", d.State())
	}
	if !errors.Is(d.Err(), boom) {
		t.Errorf("Err() = %v, хотели %v", d.Err(), boom)
	}
}

func TestPatchByID_TouchesOnlyTarget(t *testing.T) {
	d := testDirectory(fixedPage(
		model.Request{ID: "r1", Status: model.StatusPending, ConfirmationType: model.ConfirmationMedical},
		model.Request{ID: "r2", Status: model.StatusPending, ConfirmationType: model.ConfirmationFamily},
		model.Request{ID: "r3", Status: model.StatusPending, ConfirmationType: model.ConfirmationEducational},
	))
	d.Fetch(context.Background(), reqFilter{})

	// Успешное решение по второй заявке меняет только её статус.
	ok := d.PatchByID("r2", func(r *model.Request) {
		r.Status = model.StatusApproved
	})
	if !ok {
		t.Fatal("PatchByID(r2) = false, запись не найдена")
	}

	items := d.Items()
	if items[0].Status != model.StatusPending || items[2].Status != model.StatusPending {
		t.Error("патч задел соседние записи")
	}
	if items[1].Status != model.StatusApproved {
		t.Errorf("Status r2 = %q, хотели Approved", items[1].Status)
	}
	if items[1].ConfirmationType != model.ConfirmationFamily {
		t.Error("патч задел поле, которое мутация не меняла")
	}

	if d.PatchByID("нет-такой", func(r *model.Request) {}) {
		t.Error("PatchByID по отсутствующему id = true")
	}
}

func TestAppend_AtTailUntilNextFetch(t *testing.T) {
	d := testDirectory(fixedPage(
		model.Request{ID: "r1"},
		model.Request{ID: "r2"},
	))
	d.Fetch(context.Background(), reqFilter{})

	d.Append(model.Request{ID: "r-new", Status: model.StatusPending})

	items := d.Items()
	if len(items) != 3 {
		t.Fatalf("len(Items()) = %d, хотели 3", len(items))
	}
	if items[2].ID != "r-new" {
		t.Errorf("созданная запись не в конце списка: %q", items[2].ID)
	}
}

func TestSequencing_LastFetchWins(t *testing.T) {
	d := testDirectory(nil)

	// Выборка A выдана раньше, выборка B — позже (параметры сменились
	// до завершения A). A завершается после B — её результат отброшен.
	seqA := d.Begin()
	seqB := d.Begin()

	pageB := Page[model.Request]{
		Items:      []model.Request{{ID: "b1"}},
		TotalPages: 2,
	}
	if applied := d.Resolve(seqB, pageB, nil); !applied {
		t.Fatal("Resolve(B) = false, хотели применение")
	}

	pageA := Page[model.Request]{
		Items:      []model.Request{{ID: "a1"}, {ID: "a2"}},
		TotalPages: 9,
	}
	if applied := d.Resolve(seqA, pageA, nil); applied {
		t.Fatal("Resolve(A) = true, устаревший результат не отброшен")
	}

	items := d.Items()
	if len(items) != 1 || items[0].ID != "b1" {
		t.Errorf("итоговая страница %v, хотели результат B", items)
	}
	if d.TotalPages() != 2 {
		t.Errorf("TotalPages() = %d, хотели 2 (из B)", d.TotalPages())
	}
}

func TestSequencing_StaleErrorDiscarded(t *testing.T) {
	d := testDirectory(nil)

	seqA := d.Begin()
	seqB := d.Begin()

	d.Resolve(seqB, Page[model.Request]{Items: []model.Request{{ID: "b1"}}, TotalPages: 1}, nil)

	// Устаревшая ошибка не переводит представление в Failed.
	if d.Resolve(seqA, Page[model.Request]{}, errors.New("таймаут")) {
		t.Error("устаревшая ошибка была применена")
	}
	if d.State() != Ready {
		t.Errorf("State() = %v, хотели Ready", d.State())
	}
}
