package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"pantry/internal/catalog"
	"pantry/internal/domain"
	"pantry/internal/events"
	"pantry/internal/observability"
	"pantry/internal/repository"
)

// InventoryService инкапсулирует бизнес-правила вокруг позиций запаса.
// Каждое действие пользователя это один вызов этого слоя.
type InventoryService struct {
	repo       repository.ItemRepository
	resolver   catalog.Resolver
	events     events.Publisher
	logger     *zap.Logger
	tracer     observability.Tracer
	now        func() time.Time
	futureOnly bool
}

// Option настройка сервиса
type Option func(*InventoryService)

// WithFutureExpiryOnly запрещает срок годности раньше сегодняшней даты
func WithFutureExpiryOnly() Option {
	return func(s *InventoryService) { s.futureOnly = true }
}

// WithClock подменяет часы, используется в тестах
func WithClock(now func() time.Time) Option {
	return func(s *InventoryService) { s.now = now }
}

func NewInventoryService(repo repository.ItemRepository, resolver catalog.Resolver, publisher events.Publisher, logger *zap.Logger, tracer observability.Tracer, opts ...Option) *InventoryService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	s := &InventoryService{
		repo:     repo,
		resolver: resolver,
		events:   publisher,
		logger:   logger,
		tracer:   tracer,
		now:      systemNow,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Resolution результат поиска по штрихкоду: либо Found с записью каталога, либо нет
type Resolution struct {
	Found bool                `json:"found"`
	Entry domain.CatalogEntry `json:"entry"`
}

// AddItem проверяет черновик и сохраняет новую позицию
func (s *InventoryService) AddItem(ctx context.Context, ownerID string, category domain.Category, sub domain.Subcategory, draft domain.Draft) (_ *domain.Item, err error) {
	ctx, span := s.tracer.Start(ctx, "inventory.add_item", trace.WithAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("item.category", string(category)),
		attribute.String("item.subcategory", string(sub)),
		attribute.Bool("item.from_scan", draft.Barcode != ""),
	))
	defer func() { finish(span, err) }()

	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateGroup(category, sub); err != nil {
		return nil, err
	}
	ni, err := s.validateDraft(draft)
	if err != nil {
		return nil, err
	}

	it, err := s.repo.Create(ctx, ownerID, category, sub, ni)
	if err != nil {
		s.logger.Error("create item failed", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, normalize(err)
	}
	span.SetAttributes(attribute.String("item.id", it.ID))
	s.publish(ctx, events.FromItem(events.ItemCreated, *it))
	return it, nil
}

// ListItems возвращает позиции группы, отсортированные по имени
func (s *InventoryService) ListItems(ctx context.Context, ownerID string, category domain.Category, sub domain.Subcategory) (_ []domain.Item, err error) {
	ctx, span := s.tracer.Start(ctx, "inventory.list_items", trace.WithAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("item.category", string(category)),
		attribute.String("item.subcategory", string(sub)),
	))
	defer func() { finish(span, err) }()

	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateGroup(category, sub); err != nil {
		return nil, err
	}
	list, err := s.repo.ListBy(ctx, ownerID, category, sub)
	if err != nil {
		s.logger.Error("list items failed", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, normalize(err)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := strings.ToLower(list[i].Name), strings.ToLower(list[j].Name)
		if a != b {
			return a < b
		}
		return list[i].ID < list[j].ID
	})
	span.SetAttributes(attribute.Int("items.count", len(list)))
	return list, nil
}

// GetItem возвращает одну позицию владельца
func (s *InventoryService) GetItem(ctx context.Context, ownerID, itemID string) (_ *domain.Item, err error) {
	ctx, span := s.startItemSpan(ctx, "inventory.get_item", ownerID, itemID)
	defer func() { finish(span, err) }()

	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	it, err := s.repo.Get(ctx, ownerID, itemID)
	if err != nil {
		s.logStoreErr("get item failed", ownerID, itemID, err)
		return nil, normalize(err)
	}
	return it, nil
}

// UpdateQuantity задаёт новое количество; отрицательное отклоняется до обращения к хранилищу
func (s *InventoryService) UpdateQuantity(ctx context.Context, ownerID, itemID string, quantity int64) (_ *domain.Item, err error) {
	ctx, span := s.startItemSpan(ctx, "inventory.update_quantity", ownerID, itemID)
	span.SetAttributes(attribute.Int64("item.quantity", quantity))
	defer func() { finish(span, err) }()

	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if _, err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	return s.apply(ctx, ownerID, itemID, domain.ItemPatch{Quantity: &quantity}, events.ItemQuantityChanged)
}

// UpdateQuantityText разбирает количество, введённое текстом
func (s *InventoryService) UpdateQuantityText(ctx context.Context, ownerID, itemID, raw string) (*domain.Item, error) {
	q, err := ParseQuantity(raw)
	if err != nil {
		return nil, err
	}
	return s.UpdateQuantity(ctx, ownerID, itemID, q)
}

// ToggleStatus переводит позицию в один из двух статусов
func (s *InventoryService) ToggleStatus(ctx context.Context, ownerID, itemID string, status domain.ItemStatus) (_ *domain.Item, err error) {
	ctx, span := s.startItemSpan(ctx, "inventory.toggle_status", ownerID, itemID)
	span.SetAttributes(attribute.String("item.status", string(status)))
	defer func() { finish(span, err) }()

	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalid("status", "must be \"In Stock\" or \"Out of Stock\"")
	}
	return s.apply(ctx, ownerID, itemID, domain.ItemPatch{Status: &status}, events.ItemStatusChanged)
}

// UpdateItem частичное редактирование имени, количества, статуса или срока годности
func (s *InventoryService) UpdateItem(ctx context.Context, ownerID, itemID string, patch domain.ItemPatch) (_ *domain.Item, err error) {
	ctx, span := s.startItemSpan(ctx, "inventory.update_item", ownerID, itemID)
	defer func() { finish(span, err) }()

	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	p, err := s.validatePatch(patch)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, ownerID, itemID, p, events.ItemEdited)
}

// RemoveItem удаляет позицию безвозвратно
func (s *InventoryService) RemoveItem(ctx context.Context, ownerID, itemID string) (err error) {
	ctx, span := s.startItemSpan(ctx, "inventory.remove_item", ownerID, itemID)
	defer func() { finish(span, err) }()

	if err := validateOwner(ownerID); err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, ownerID, itemID)
	if err != nil {
		s.logStoreErr("delete item failed", ownerID, itemID, err)
		return normalize(err)
	}
	e := events.FromItem(events.ItemDeleted, *removed)
	e.OccurredAt = s.now().UTC()
	s.publish(ctx, e)
	return nil
}

// ResolveBarcode ищет штрихкод в каталоге. Отсутствие записи не ошибка.
func (s *InventoryService) ResolveBarcode(ctx context.Context, barcode string) (_ Resolution, err error) {
	ctx, span := s.tracer.Start(ctx, "inventory.resolve_barcode", trace.WithAttributes(
		attribute.String("barcode", barcode),
	))
	defer func() { finish(span, err) }()

	e, err := s.resolver.Resolve(ctx, barcode)
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("barcode.found", true))
		return Resolution{Found: true, Entry: e}, nil
	case errors.Is(err, catalog.ErrNotFound):
		span.SetAttributes(attribute.Bool("barcode.found", false))
		return Resolution{}, nil
	default:
		s.logger.Error("barcode lookup failed", zap.String("barcode", barcode), zap.Error(err))
		return Resolution{}, normalize(err)
	}
}

func (s *InventoryService) apply(ctx context.Context, ownerID, itemID string, patch domain.ItemPatch, evt events.Type) (*domain.Item, error) {
	it, err := s.repo.Update(ctx, ownerID, itemID, patch)
	if err != nil {
		s.logStoreErr("update item failed", ownerID, itemID, err)
		return nil, normalize(err)
	}
	s.publish(ctx, events.FromItem(evt, *it))
	return it, nil
}

// publish runs after the write; the caller may already have gone away
func (s *InventoryService) publish(ctx context.Context, e events.ItemEvent) {
	if err := s.events.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("publish item event failed",
			zap.String("event", string(e.Type)),
			zap.String("item_id", e.ItemID),
			zap.Error(err),
		)
	}
}

func (s *InventoryService) logStoreErr(msg, ownerID, itemID string, err error) {
	fields := []zap.Field{zap.String("owner_id", ownerID), zap.String("item_id", itemID), zap.Error(err)}
	switch {
	case errors.Is(err, repository.ErrForbidden):
		s.logger.Warn("access to foreign item", fields...)
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidField):
		s.logger.Debug(msg, fields...)
	default:
		s.logger.Error(msg, fields...)
	}
}

func (s *InventoryService) startItemSpan(ctx context.Context, name, ownerID, itemID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("item.id", itemID),
	))
}

func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrValidation) && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
