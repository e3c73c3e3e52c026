package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/pkg/database"
)

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of database.TxBeginner.
type mockTxBeginner struct {
	beginFn    func(ctx context.Context) (pgx.Tx, error)
	beginCount int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	m.beginCount++
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

// mockProductRepository is a mock implementation of ProductRepositoryInterface.
type mockProductRepository struct {
	getFn               func(ctx context.Context, id int64) (*model.Product, error)
	getByIDFn           func(ctx context.Context, q database.TxQuerier, id int64) (*model.Product, error)
	getAvailableStockFn func(ctx context.Context, id int64) (int, error)
	getForUpdateFn      func(ctx context.Context, tx database.TxQuerier, id int64) (*model.Product, error)
	adjustStockFn       func(ctx context.Context, tx database.TxQuerier, id int64, delta int) error
}

func (m *mockProductRepository) Get(ctx context.Context, id int64) (*model.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProductRepository) GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Product, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, q, id)
	}
	return nil, nil
}

func (m *mockProductRepository) GetAvailableStock(ctx context.Context, id int64) (int, error) {
	if m.getAvailableStockFn != nil {
		return m.getAvailableStockFn(ctx, id)
	}
	return 0, nil
}

func (m *mockProductRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Product, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, nil
}

func (m *mockProductRepository) AdjustStock(ctx context.Context, tx database.TxQuerier, id int64, delta int) error {
	if m.adjustStockFn != nil {
		return m.adjustStockFn(ctx, tx, id, delta)
	}
	return nil
}

// mockHoldRepository is a mock implementation of HoldRepositoryInterface.
type mockHoldRepository struct {
	insertFn         func(ctx context.Context, tx database.TxQuerier, hold *model.Hold) error
	getForUpdateFn   func(ctx context.Context, tx database.TxQuerier, id int64) (*model.Hold, error)
	updateStatusFn   func(ctx context.Context, tx database.TxQuerier, id int64, status model.HoldStatus) error
	listExpiredIDsFn func(ctx context.Context, now time.Time, limit int) ([]int64, error)
}

func (m *mockHoldRepository) Insert(ctx context.Context, tx database.TxQuerier, hold *model.Hold) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, hold)
	}
	return nil
}

func (m *mockHoldRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Hold, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, ErrHoldNotFound
}

func (m *mockHoldRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id int64, status model.HoldStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, tx, id, status)
	}
	return nil
}

func (m *mockHoldRepository) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	if m.listExpiredIDsFn != nil {
		return m.listExpiredIDsFn(ctx, now, limit)
	}
	return nil, nil
}

// mockOrderRepository is a mock implementation of OrderRepositoryInterface.
type mockOrderRepository struct {
	insertFn       func(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	getByIDFn      func(ctx context.Context, q database.TxQuerier, id int64) (*model.Order, error)
	getForUpdateFn func(ctx context.Context, tx database.TxQuerier, id int64) (*model.Order, error)
	updateStatusFn func(ctx context.Context, tx database.TxQuerier, id int64, status model.OrderStatus) error
}

func (m *mockOrderRepository) Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, order)
	}
	return nil
}

func (m *mockOrderRepository) GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Order, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, q, id)
	}
	return nil, nil
}

func (m *mockOrderRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Order, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, ErrOrderNotFound
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, id int64, status model.OrderStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, tx, id, status)
	}
	return nil
}

// mockWebhookRepository is a mock implementation of WebhookRepositoryInterface.
type mockWebhookRepository struct {
	getByKeyFn func(ctx context.Context, q database.TxQuerier, key string) (*model.PaymentWebhook, error)
	insertFn   func(ctx context.Context, tx database.TxQuerier, webhook *model.PaymentWebhook) error
}

func (m *mockWebhookRepository) GetByKey(ctx context.Context, q database.TxQuerier, key string) (*model.PaymentWebhook, error) {
	if m.getByKeyFn != nil {
		return m.getByKeyFn(ctx, q, key)
	}
	return nil, nil
}

func (m *mockWebhookRepository) Insert(ctx context.Context, tx database.TxQuerier, webhook *model.PaymentWebhook) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, webhook)
	}
	return nil
}
