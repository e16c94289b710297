package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"pantry/internal/domain"
)

var (
	ErrInvalidTransition = errors.New("invalid add-item transition")
	ErrFlowCancelled     = errors.New("add-item flow cancelled")
)

// FlowState состояние сценария добавления позиции
type FlowState int

const (
	FlowIdle FlowState = iota
	FlowResolving
	FlowDraftPrefilled
	FlowDraftManual
	FlowFailed
)

func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowResolving:
		return "resolving"
	case FlowDraftPrefilled:
		return "draft_prefilled"
	case FlowDraftManual:
		return "draft_manual"
	case FlowFailed:
		return "failed"
	default:
		return fmt.Sprintf("FlowState(%d)", int(s))
	}
}

// DraftFromResolution строит черновик по результату поиска штрихкода.
// Найденная запись заполняет имя и количество 1, иначе сохраняется только штрихкод.
func DraftFromResolution(res Resolution, barcode string) domain.Draft {
	code := strings.TrimSpace(barcode)
	if !res.Found {
		return domain.Draft{Quantity: "1", Status: domain.StatusInStock, Barcode: code}
	}
	return domain.Draft{
		Name:     res.Entry.Name,
		Quantity: "1",
		Status:   domain.StatusInStock,
		Barcode:  code,
	}
}

// AddItemFlow одно взаимодействие "добавить позицию": скан или ручной ввод,
// правка черновика и единственная запись в хранилище при Submit.
type AddItemFlow struct {
	svc *InventoryService

	mu          sync.Mutex
	state       FlowState
	before      FlowState // draft state to return to after Failed
	gen         uint64
	originCat   domain.Category
	originSub   domain.Subcategory
	category    domain.Category
	subcategory domain.Subcategory
	draft       domain.Draft
	lastErr     error
}

// NewAddItemFlow начинает сценарий в группе, откуда пользователь его открыл
func NewAddItemFlow(svc *InventoryService, category domain.Category, sub domain.Subcategory) *AddItemFlow {
	return &AddItemFlow{svc: svc, originCat: category, originSub: sub}
}

func (f *AddItemFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Draft возвращает текущий черновик и группу, в которую он будет сохранён
func (f *AddItemFlow) Draft() (domain.Draft, domain.Category, domain.Subcategory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft, f.category, f.subcategory
}

// LastError ошибка проверки, переведшая сценарий в Failed
func (f *AddItemFlow) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Scan ищет штрихкод и переводит сценарий в DraftPrefilled или DraftManual.
// Поиск идёт без блокировки, поэтому Cancel во время Resolving возможен.
func (f *AddItemFlow) Scan(ctx context.Context, barcode string) (FlowState, error) {
	f.mu.Lock()
	if f.state != FlowIdle {
		st := f.state
		f.mu.Unlock()
		return st, fmt.Errorf("%w: scan from %s", ErrInvalidTransition, st)
	}
	f.state = FlowResolving
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	res, err := f.svc.ResolveBarcode(ctx, barcode)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen || f.state != FlowResolving {
		return f.state, ErrFlowCancelled
	}
	if err != nil {
		f.reset()
		return f.state, err
	}

	f.draft = DraftFromResolution(res, barcode)
	if res.Found {
		f.category, f.subcategory = res.Entry.Category, res.Entry.Subcategory
		f.state = FlowDraftPrefilled
	} else {
		f.category, f.subcategory = f.originCat, f.originSub
		f.state = FlowDraftManual
	}
	return f.state, nil
}

// StartManual открывает пустой черновик без сканирования
func (f *AddItemFlow) StartManual() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FlowIdle {
		return fmt.Errorf("%w: manual entry from %s", ErrInvalidTransition, f.state)
	}
	f.gen++
	f.category, f.subcategory = f.originCat, f.originSub
	f.draft = domain.Draft{Quantity: "1", Status: domain.StatusInStock}
	f.state = FlowDraftManual
	return nil
}

// Edit меняет черновик. Из Failed сценарий возвращается в прежнее состояние черновика.
func (f *AddItemFlow) Edit(fn func(*domain.Draft)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case FlowDraftPrefilled, FlowDraftManual:
	case FlowFailed:
		f.state = f.before
		f.lastErr = nil
	default:
		return fmt.Errorf("%w: edit from %s", ErrInvalidTransition, f.state)
	}
	fn(&f.draft)
	return nil
}

// Submit сохраняет черновик ровно одним вызовом AddItem.
// Ошибка проверки переводит в Failed, ошибка хранилища оставляет черновик для повтора.
// Запись идёт под блокировкой сценария: Cancel, вызванный во время Submit,
// ждёт её окончания и уже сохранённую позицию не отменяет.
func (f *AddItemFlow) Submit(ctx context.Context, ownerID string) (*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case FlowDraftPrefilled, FlowDraftManual, FlowFailed:
	default:
		return nil, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, f.state)
	}

	it, err := f.svc.AddItem(ctx, ownerID, f.category, f.subcategory, f.draft)
	switch {
	case err == nil:
		f.reset()
		return it, nil
	case errors.Is(err, ErrValidation):
		if f.state != FlowFailed {
			f.before = f.state
		}
		f.state = FlowFailed
		f.lastErr = err
		return nil, err
	default:
		return nil, err
	}
}

// Cancel сбрасывает сценарий в Idle из любого состояния; ничего не сохраняется.
// Во время Submit ждёт окончания записи.
func (f *AddItemFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.reset()
}

func (f *AddItemFlow) reset() {
	f.state = FlowIdle
	f.before = FlowIdle
	f.draft = domain.Draft{}
	f.category, f.subcategory = "", ""
	f.lastErr = nil
}
