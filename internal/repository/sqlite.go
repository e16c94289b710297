package repository

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"pantry/internal/domain"
)

// SQLiteConfig параметры открытия постоянного хранилища
type SQLiteConfig struct {
	// файл базы; создаётся при отсутствии, каталог должен существовать
	Path string

	// 0 значит max(runtime.NumCPU(), 4); писатели всё равно идут по одному
	PoolSize int

	Logger *zap.Logger

	// часы для CreatedAt/UpdatedAt
	Now func() time.Time
}

// SQLiteStore хранит позиции в одной таблице SQLite через пул соединений.
// У каждого соединения WAL и busy timeout, схема создаётся при подключении.
//
// Изменения и удаления идут в IMMEDIATE транзакции. Если контекст запроса
// отменён посреди записи, транзакция откатывается и частичное изменение
// никто не увидит.
type SQLiteStore struct {
	pool   *sqlitex.Pool
	logger *zap.Logger
	now    func() time.Time
	path   string
}

var _ ItemRepository = (*SQLiteStore)(nil)

const itemsSchema = `
CREATE TABLE IF NOT EXISTS items (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL,
	category    TEXT NOT NULL,
	subcategory TEXT NOT NULL,
	name        TEXT NOT NULL,
	quantity    INTEGER NOT NULL CHECK (quantity >= 0),
	status      TEXT NOT NULL,
	expiry_date TEXT,
	barcode     TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS items_owner_group ON items (owner_id, category, subcategory);
`

const itemColumns = `id, owner_id, category, subcategory, name, quantity, status, expiry_date, barcode, created_at, updated_at`

// OpenSQLite открывает пул; вызывающий обязан закрыть хранилище через Close
func OpenSQLite(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize < 4 {
			poolSize = 4
		}
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: opening %s: %w", cfg.Path, err)
	}
	logger.Info("sqlite item store opened", zap.String("path", cfg.Path), zap.Int("pool_size", poolSize))

	return &SQLiteStore{pool: pool, logger: logger, now: now, path: cfg.Path}, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite store: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, itemsSchema, nil); err != nil {
		return fmt.Errorf("sqlite store: schema: %w", err)
	}
	return nil
}

// Close закрывает соединения и ждёт возврата выданных
func (s *SQLiteStore) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("sqlite item store close error", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("sqlite store: closing %s: %w", s.path, err)
	}
	s.logger.Info("sqlite item store closed", zap.String("path", s.path))
	return nil
}

func (s *SQLiteStore) take(ctx context.Context, op string) (*sqlite.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistenceErr(op, err)
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, persistenceErr(op, err)
	}
	return conn, nil
}

func (s *SQLiteStore) Create(ctx context.Context, ownerID string, category domain.Category, sub domain.Subcategory, it domain.NewItem) (*domain.Item, error) {
	conn, err := s.take(ctx, "create")
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	now := s.now().UTC()
	item := domain.Item{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Category:    category,
		Subcategory: sub,
		Name:        it.Name,
		Quantity:    it.Quantity,
		Status:      it.Status,
		Barcode:     it.Barcode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if it.ExpiryDate != nil {
		d := *it.ExpiryDate
		item.ExpiryDate = &d
	}

	err = sqlitex.Execute(conn, `INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			item.ID,
			item.OwnerID,
			string(item.Category),
			string(item.Subcategory),
			item.Name,
			item.Quantity,
			string(item.Status),
			expiryArg(item.ExpiryDate),
			item.Barcode,
			item.CreatedAt.UnixNano(),
			item.UpdatedAt.UnixNano(),
		},
	})
	if err != nil {
		return nil, persistenceErr("create", err)
	}
	return &item, nil
}

func (s *SQLiteStore) ListBy(ctx context.Context, ownerID string, category domain.Category, sub domain.Subcategory) ([]domain.Item, error) {
	conn, err := s.take(ctx, "list")
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	out := make([]domain.Item, 0)
	err = sqlitex.Execute(conn, `SELECT `+itemColumns+` FROM items
		WHERE owner_id = ? AND category = ? AND subcategory = ?
		ORDER BY created_at`, &sqlitex.ExecOptions{
		Args: []any{ownerID, string(category), string(sub)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			it, err := scanItem(stmt)
			if err != nil {
				return err
			}
			out = append(out, it)
			return nil
		},
	})
	if err != nil {
		return nil, persistenceErr("list", err)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, ownerID, itemID string) (*domain.Item, error) {
	conn, err := s.take(ctx, "get")
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	it, err := s.owned(conn, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *SQLiteStore) Update(ctx context.Context, ownerID, itemID string, patch domain.ItemPatch) (_ *domain.Item, err error) {
	if patch.TouchesImmutable() {
		return nil, ErrInvalidField
	}
	conn, err := s.take(ctx, "update")
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, persistenceErr("update: begin", err)
	}
	defer endTransaction(&err)

	current, err := s.owned(conn, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	updated := patch.Apply(current)
	updated.UpdatedAt = nextUpdatedAt(s.now().UTC(), current.UpdatedAt)

	err = sqlitex.Execute(conn, `UPDATE items
		SET name = ?, quantity = ?, status = ?, expiry_date = ?, updated_at = ?
		WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{
			updated.Name,
			updated.Quantity,
			string(updated.Status),
			expiryArg(updated.ExpiryDate),
			updated.UpdatedAt.UnixNano(),
			itemID,
		},
	})
	if err != nil {
		return nil, persistenceErr("update", err)
	}
	return &updated, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ownerID, itemID string) (_ *domain.Item, err error) {
	conn, err := s.take(ctx, "delete")
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, persistenceErr("delete: begin", err)
	}
	defer endTransaction(&err)

	removed, err := s.owned(conn, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if err = sqlitex.Execute(conn, `DELETE FROM items WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{itemID},
	}); err != nil {
		return nil, persistenceErr("delete", err)
	}
	return &removed, nil
}

// owned читает позицию и проверяет владельца. Существование проверяется
// среди всех владельцев, поэтому чужой id даёт ErrForbidden.
func (s *SQLiteStore) owned(conn *sqlite.Conn, ownerID, itemID string) (domain.Item, error) {
	var (
		found bool
		item  domain.Item
	)
	err := sqlitex.Execute(conn, `SELECT `+itemColumns+` FROM items WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{itemID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			it, err := scanItem(stmt)
			if err != nil {
				return err
			}
			item, found = it, true
			return nil
		},
	})
	if err != nil {
		return domain.Item{}, persistenceErr("lookup", err)
	}
	if !found {
		return domain.Item{}, ErrNotFound
	}
	if item.OwnerID != ownerID {
		return domain.Item{}, ErrForbidden
	}
	return item, nil
}

func scanItem(stmt *sqlite.Stmt) (domain.Item, error) {
	it := domain.Item{
		ID:          stmt.ColumnText(0),
		OwnerID:     stmt.ColumnText(1),
		Category:    domain.Category(stmt.ColumnText(2)),
		Subcategory: domain.Subcategory(stmt.ColumnText(3)),
		Name:        stmt.ColumnText(4),
		Quantity:    stmt.ColumnInt64(5),
		Status:      domain.ItemStatus(stmt.ColumnText(6)),
		Barcode:     stmt.ColumnText(8),
		CreatedAt:   time.Unix(0, stmt.ColumnInt64(9)).UTC(),
		UpdatedAt:   time.Unix(0, stmt.ColumnInt64(10)).UTC(),
	}
	if !stmt.ColumnIsNull(7) {
		d, err := domain.ParseDate(stmt.ColumnText(7))
		if err != nil {
			return domain.Item{}, fmt.Errorf("item %s: %w", it.ID, err)
		}
		it.ExpiryDate = &d
	}
	return it, nil
}

func expiryArg(d *domain.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
