package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// rollbackTimeout bounds savepoint cleanup, which runs even after the
// statement's own context has expired.
const rollbackTimeout = 5 * time.Second

// backstopGrace is added to the server-side statement timeout to form the
// client deadline. It only fires when the server never answers; lib/pq closes
// the connection when a context expires mid-statement.
const backstopGrace = 30 * time.Second

// Session is one open transaction. Every statement runs inside its own
// savepoint so a failed statement leaves the rest of the transaction usable;
// nothing is durable until Commit.
type Session struct {
	tx             *sqlx.Tx
	logger         *zap.Logger
	insertOrder    string
	insertRejected string
	backstop       time.Duration // 0 = statements inherit the caller's context
	seq            int
}

// InsertOrder inserts into the primary table, ignoring an orderid conflict.
// It returns the number of rows affected: 1 when inserted, 0 on conflict.
func (s *Session) InsertOrder(ctx context.Context, row *OrderRow) (int64, error) {
	var affected int64
	err := s.withSavepoint(ctx, func() error {
		res, err := s.exec(ctx, s.insertOrder, row.args()...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// InsertRejected appends a row to the rejection table.
func (s *Session) InsertRejected(ctx context.Context, row *RejectedRow) error {
	return s.withSavepoint(ctx, func() error {
		_, err := s.exec(ctx, s.insertRejected, row.args()...)
		return err
	})
}

// Commit makes every successful statement of the session durable.
func (s *Session) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the whole session. Calling it after Commit is a no-op.
func (s *Session) Rollback() error {
	if err := s.tx.Rollback(); err != nil && !isTxDone(err) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// exec runs one data statement under the backstop deadline. Expiry of the
// backstop is reported as context.DeadlineExceeded whatever the driver said.
func (s *Session) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	stmtCtx, cancel := s.statementContext(ctx)
	defer cancel()

	res, err := s.tx.ExecContext(stmtCtx, query, args...)
	if err != nil && ctx.Err() == nil && stmtCtx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return res, err
}

func (s *Session) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.backstop == 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.backstop)
}

// withSavepoint runs fn between SAVEPOINT and RELEASE, rolling back to the
// savepoint when fn fails. PostgreSQL aborts the whole transaction on any
// statement error otherwise.
func (s *Session) withSavepoint(ctx context.Context, fn func() error) error {
	s.seq++
	name := fmt.Sprintf("sp_%d", s.seq)

	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}

	err := fn()
	if err == nil {
		if _, err = s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err == nil {
			return nil
		}
		err = fmt.Errorf("release savepoint: %w", err)
	}

	if rbErr := s.rollbackTo(ctx, name); rbErr != nil {
		s.logger.Error("Failed to rollback savepoint",
			zap.String("savepoint", name),
			zap.Error(rbErr))
		return fmt.Errorf("%w (rollback to savepoint failed: %v)", err, rbErr)
	}
	return err
}

// rollbackTo discards everything since the named savepoint. It uses a fresh
// deadline since ctx may be the one that just expired.
func (s *Session) rollbackTo(ctx context.Context, name string) error {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if _, err := s.tx.ExecContext(cleanupCtx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(cleanupCtx, "RELEASE SAVEPOINT "+name); err != nil {
		s.logger.Warn("Failed to release savepoint", zap.String("savepoint", name), zap.Error(err))
	}
	return nil
}
