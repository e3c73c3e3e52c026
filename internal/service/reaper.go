package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/model"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/pkg/database"
)

// reaperAdvisoryLockID is the pg_advisory_lock key that keeps at most one
// reaper instance scanning per database. Correctness does not depend on it
// (every hold is re-checked under its row lock), it only avoids duplicate work.
const reaperAdvisoryLockID int64 = 729_440_153

// Reaper periodically returns stock from abandoned holds.
type Reaper struct {
	pool     *pgxpool.Pool // nil when constructed for unit tests; advisory lock is skipped
	beginner database.TxBeginner
	txOpts   database.TxOptions
	products ProductRepositoryInterface
	holds    HoldRepositoryInterface
	clock    clock.Clock
	interval time.Duration
	pageSize int
}

// NewReaper creates a Reaper with the given pool and repositories.
func NewReaper(pool *pgxpool.Pool, txOpts database.TxOptions, products ProductRepositoryInterface, holds HoldRepositoryInterface, clk clock.Clock, interval time.Duration, pageSize int) *Reaper {
	return &Reaper{
		pool:     pool,
		beginner: pool,
		txOpts:   txOpts,
		products: products,
		holds:    holds,
		clock:    clk,
		interval: interval,
		pageSize: pageSize,
	}
}

// NewReaperWithTxBeginner creates a Reaper with a custom TxBeginner and no
// advisory locking. Primarily used for testing.
func NewReaperWithTxBeginner(beginner database.TxBeginner, txOpts database.TxOptions, products ProductRepositoryInterface, holds HoldRepositoryInterface, clk clock.Clock, interval time.Duration, pageSize int) *Reaper {
	return &Reaper{
		beginner: beginner,
		txOpts:   txOpts,
		products: products,
		holds:    holds,
		clock:    clk,
		interval: interval,
		pageSize: pageSize,
	}
}

// Run ticks until ctx is cancelled, reaping expired holds on each tick.
func (r *Reaper) Run(ctx context.Context) {
	log.Info().
		Dur("interval", r.interval).
		Int("page_size", r.pageSize).
		Msg("hold reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("hold reaper stopped")
			return
		case <-ticker.C:
			reaped, err := r.ReapOnce(ctx)
			if err != nil {
				log.Error().Err(err).Msg("reaper tick failed")
				continue
			}
			if reaped > 0 {
				log.Info().Int("reaped", reaped).Msg("expired holds reclaimed")
			}
		}
	}
}

// ReapOnce scans expired active holds in id-ordered pages and expires each in
// its own short transaction. Returns how many holds were expired. If another
// instance holds the advisory lock, it returns immediately.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	if r.pool != nil {
		conn, err := r.pool.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		defer conn.Release()

		// Advisory locks are session-scoped, so lock and unlock must happen
		// on this pinned connection.
		var acquired bool
		if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, reaperAdvisoryLockID).Scan(&acquired); err != nil {
			return 0, err
		}
		if !acquired {
			log.Debug().Msg("another reaper instance is active, skipping tick")
			return 0, nil
		}
		defer func() {
			_, _ = conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, reaperAdvisoryLockID)
		}()
	}

	total := 0
	for {
		ids, err := r.holds.ListExpiredIDs(ctx, r.clock.Now(), r.pageSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		reapedThisPage := 0
		for _, id := range ids {
			reaped, err := r.reapHold(ctx, id)
			if err != nil {
				// One bad hold must not stall the scan
				log.Warn().Err(err).Int64("hold_id", id).Msg("failed to expire hold")
				continue
			}
			if reaped {
				reapedThisPage++
			}
		}
		total += reapedThisPage

		if len(ids) < r.pageSize {
			return total, nil
		}
		if reapedThisPage == 0 {
			// A full page of candidates none of which could be expired would
			// be re-listed forever; let the next tick retry instead.
			return total, nil
		}
	}
}

// reapHold expires a single hold in a fresh transaction. The status and
// expiry are re-checked under the row lock because another actor (an order
// creation or a failure webhook) may have won the race since the scan.
func (r *Reaper) reapHold(ctx context.Context, holdID int64) (bool, error) {
	reaped := false
	err := database.WithTx(ctx, r.beginner, r.txOpts, func(tx pgx.Tx) error {
		hold, err := r.holds.GetForUpdate(ctx, tx, holdID)
		if err != nil {
			if errors.Is(err, ErrHoldNotFound) {
				return nil
			}
			return err
		}

		if hold.Status != model.HoldActive || hold.ExpiresAt.After(r.clock.Now()) {
			return nil // Another actor won the race
		}

		if _, err := r.products.GetForUpdate(ctx, tx, hold.ProductID); err != nil {
			return err
		}
		if err := r.products.AdjustStock(ctx, tx, hold.ProductID, hold.Qty); err != nil {
			return err
		}
		if err := r.holds.UpdateStatus(ctx, tx, holdID, model.HoldExpired); err != nil {
			return err
		}
		reaped = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if reaped {
		log.Info().Int64("hold_id", holdID).Msg("hold_expired")
	}
	return reaped, nil
}
