// Пакет directory — постраничное представление коллекции (заявок или
// пользователей) с локальной сверкой после мутаций. Держит в памяти
// текущую страницу и согласует её с двумя видами изменений, не требующих
// перезагрузки: точечный патч записи по id после успешной мутации и
// добавление только что созданной записи в конец списка.
//
// Повторные выборки подчиняются правилу «последняя выигрывает»: каждой
// выборке присваивается монотонно растущий номер, и результат
// применяется только если его номер всё ещё последний выданный.
package directory

import (
	"context"
	"sync"
)

// State — состояние представления.
type State int

const (
	// Loading — выборка в полёте, данных ещё нет или они устарели.
	Loading State = iota
	// Ready — данные получены (возможно, пустая страница).
	Ready
	// Failed — последняя выборка завершилась ошибкой; предыдущие данные
	// не затронуты, повтор — по явному действию пользователя.
	Failed
)

// Page — страница результатов выборки.
type Page[T any] struct {
	// Items — записи текущей страницы
	Items []T
	// TotalPages — всего страниц по данным сервера
	TotalPages int
}

// Fetcher — функция выборки страницы по параметрам фильтра/пагинации.
type Fetcher[T, P any] func(ctx context.Context, params P) (Page[T], error)

// Directory — постраничное представление с локальной сверкой.
// Владеет своим состоянием единолично; все изменения — только через
// его методы.
type Directory[T, P any] struct {
	mu sync.Mutex

	fetch Fetcher[T, P]
	idOf  func(T) string

	state      State
	items      []T
	totalPages int
	err        error

	// issued — номер последней выданной выборки; ответы с меньшим
	// номером отбрасываются.
	issued uint64
}

// New создаёт представление. idOf извлекает идентификатор записи —
// сверка после мутаций идёт по id, а не по порядку отправки.
func New[T, P any](fetch Fetcher[T, P], idOf func(T) string) *Directory[T, P] {
	return &Directory[T, P]{
		fetch: fetch,
		idOf:  idOf,
		state: Loading,
	}
}

// Fetch выполняет выборку с текущими параметрами: выдаёт номер,
// вызывает Fetcher и применяет результат, если он всё ещё последний.
// Изменение любого параметра — ровно одна новая выборка.
func (d *Directory[T, P]) Fetch(ctx context.Context, params P) {
	seq := d.Begin()
	page, err := d.fetch(ctx, params)
	d.Resolve(seq, page, err)
}

// Begin регистрирует новую выборку и возвращает её номер.
// Используется вместе с Resolve, когда выборка выполняется асинхронно.
func (d *Directory[T, P]) Begin() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.issued++
	d.state = Loading
	return d.issued
}

// Resolve применяет результат выборки с номером seq.
// Возвращает false, если результат устарел (выдана более новая выборка)
// и был отброшен.
func (d *Directory[T, P]) Resolve(seq uint64, page Page[T], err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if seq != d.issued {
		return false
	}

	if err != nil {
		d.state = Failed
		d.err = err
		return true
	}

	d.state = Ready
	d.err = nil
	d.items = page.Items
	d.totalPages = page.TotalPages
	return true
}

// PatchByID применяет частичное изменение к записи с данным id.
// Патч трогает только те поля, которые меняет мутация; остальные
// записи и их поля остаются нетронутыми. Возвращает false, если записи
// нет на текущей странице.
func (d *Directory[T, P]) PatchByID(id string, patch func(*T)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.items {
		if d.idOf(d.items[i]) == id {
			patch(&d.items[i])
			return true
		}
	}
	return false
}

// Append добавляет созданную запись в конец текущей страницы, чтобы
// автор сразу её увидел. Запись не пересортировывается и не попадает в
// «правильную» серверную позицию до следующей настоящей выборки —
// задокументированная неточность отображения.
func (d *Directory[T, P]) Append(item T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, item)
}

// Items возвращает копию записей текущей страницы.
func (d *Directory[T, P]) Items() []T {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]T, len(d.items))
	copy(out, d.items)
	return out
}

// State возвращает текущее состояние представления.
func (d *Directory[T, P]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Err возвращает ошибку последней неудачной выборки (nil в Ready/Loading).
func (d *Directory[T, P]) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// TotalPages возвращает число страниц по данным последней выборки.
func (d *Directory[T, P]) TotalPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totalPages
}
