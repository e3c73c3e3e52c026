package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/service"
)

func TestHoldRepository_Insert_Success(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	tx := &mockTxQuerier{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			capturedArgs = args
			return &mockRow{scanFn: func(dest ...any) error {
				*(dest[0].(*int64)) = 7
				return nil
			}}
		},
	}

	repo := NewHoldRepositoryWithPool(&mockQuerier{})
	expiresAt := time.Date(2025, 6, 1, 12, 2, 0, 0, time.UTC)
	hold := &model.Hold{
		ProductID: 1,
		Qty:       3,
		Status:    model.HoldActive,
		ExpiresAt: expiresAt,
	}

	err := repo.Insert(context.Background(), tx, hold)

	require.NoError(t, err)
	assert.Equal(t, int64(7), hold.ID, "generated id should be filled in")
	assert.Contains(t, capturedSQL, "INSERT INTO holds")
	assert.Contains(t, capturedSQL, "RETURNING id")
	assert.Equal(t, []any{int64(1), 3, model.HoldActive, expiresAt}, capturedArgs)
}

func TestHoldRepository_GetForUpdate_Success(t *testing.T) {
	var capturedSQL string
	tx := &mockTxQuerier{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			return &mockRow{scanFn: func(dest ...any) error {
				*(dest[0].(*int64)) = 7
				*(dest[1].(*int64)) = 1
				*(dest[2].(*int)) = 3
				*(dest[3].(*model.HoldStatus)) = model.HoldActive
				*(dest[4].(*time.Time)) = time.Now().Add(time.Minute)
				*(dest[5].(*time.Time)) = time.Now()
				*(dest[6].(*time.Time)) = time.Now()
				return nil
			}}
		},
	}

	repo := NewHoldRepositoryWithPool(&mockQuerier{})
	hold, err := repo.GetForUpdate(context.Background(), tx, 7)

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "FOR UPDATE")
	assert.Equal(t, int64(7), hold.ID)
	assert.Equal(t, model.HoldActive, hold.Status)
	assert.Equal(t, 3, hold.Qty)
}

func TestHoldRepository_GetForUpdate_NotFound(t *testing.T) {
	tx := &mockTxQuerier{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := NewHoldRepositoryWithPool(&mockQuerier{})
	hold, err := repo.GetForUpdate(context.Background(), tx, 99999)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrHoldNotFound))
	assert.Nil(t, hold)
}

func TestHoldRepository_UpdateStatus(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	tx := &mockTxQuerier{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			capturedArgs = arguments
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}

	repo := NewHoldRepositoryWithPool(&mockQuerier{})
	err := repo.UpdateStatus(context.Background(), tx, 7, model.HoldExpired)

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "UPDATE holds SET status")
	assert.Contains(t, capturedSQL, "updated_at = now()")
	assert.Equal(t, []any{int64(7), model.HoldExpired}, capturedArgs)
}

func TestHoldRepository_ListExpiredIDs(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock := &mockQuerier{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			capturedSQL = sql
			capturedArgs = args
			return &mockIDRows{data: []int64{3, 5, 9}}, nil
		},
	}

	repo := NewHoldRepositoryWithPool(mock)
	ids, err := repo.ListExpiredIDs(context.Background(), now, 100)

	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 9}, ids)
	assert.Contains(t, capturedSQL, "ORDER BY id")
	assert.Contains(t, capturedSQL, "LIMIT $3")
	assert.Equal(t, []any{model.HoldActive, now, 100}, capturedArgs)
}

func TestHoldRepository_ListExpiredIDs_Empty(t *testing.T) {
	mock := &mockQuerier{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockIDRows{}, nil
		},
	}

	repo := NewHoldRepositoryWithPool(mock)
	ids, err := repo.ListExpiredIDs(context.Background(), time.Now(), 100)

	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestHoldRepository_ListExpiredIDs_QueryError(t *testing.T) {
	dbErr := errors.New("database connection failed")
	mock := &mockQuerier{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return nil, dbErr
		},
	}

	repo := NewHoldRepositoryWithPool(mock)
	ids, err := repo.ListExpiredIDs(context.Background(), time.Now(), 100)

	require.Error(t, err)
	assert.Nil(t, ids)
	assert.True(t, errors.Is(err, dbErr), "should wrap original error")
}
