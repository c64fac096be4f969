package etl

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/raaihank/order-etl/internal/orders"
)

// Session is the transactional storage a run writes through.
type Session interface {
	InsertOrder(ctx context.Context, row *orders.OrderRow) (int64, error)
	InsertRejected(ctx context.Context, row *orders.RejectedRow) error
	Commit() error
	Rollback() error
}

// SessionOpener starts a new Session.
type SessionOpener interface {
	Begin(ctx context.Context) (Session, error)
}

// StoreSessions adapts an orders.Store into a SessionOpener whose sessions
// bound every statement by statementTimeout.
func StoreSessions(store *orders.Store, statementTimeout time.Duration) SessionOpener {
	return storeSessions{store: store, timeout: statementTimeout}
}

type storeSessions struct {
	store   *orders.Store
	timeout time.Duration
}

func (s storeSessions) Begin(ctx context.Context) (Session, error) {
	sess, err := s.store.Begin(ctx, s.timeout)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Classify maps the result of a primary insert attempt to an outcome. A
// conflict on the order id is reported by the store as zero rows affected,
// never as an error.
func Classify(rowsAffected int64, err error) OutcomeKind {
	switch {
	case err != nil && orders.IsTimeout(err):
		return OutcomeTimeout
	case err != nil:
		return OutcomeError
	case rowsAffected == 0:
		return OutcomeDuplicate
	default:
		return OutcomeInserted
	}
}

// Dispatcher decides the outcome of each record. The only side effect it
// performs is the primary insert attempt itself.
type Dispatcher struct {
	limiter *rate.Limiter
}

// NewDispatcher creates a dispatcher. maxPerSecond <= 0 disables throttling.
func NewDispatcher(maxPerSecond float64) *Dispatcher {
	d := &Dispatcher{}
	if maxPerSecond > 0 {
		burst := int(maxPerSecond)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(maxPerSecond), burst)
	}
	return d
}

// Dispatch classifies one record. Invalid records never reach the primary
// insert.
func (d *Dispatcher) Dispatch(ctx context.Context, sess Session, rec Record, valid bool) Outcome {
	out := Outcome{Row: rec.Index}
	if id := rec.Get(ColOrderID); !id.IsMissing() {
		out.OrderID = id.String()
	}

	if !valid {
		out.Kind = OutcomeRejectedMissing
		out.Missing = MissingFields(rec, RequiredColumns)
		return out
	}

	row, err := ToOrderRow(rec)
	if err != nil {
		out.Kind = OutcomeError
		out.Err = err
		return out
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			out.Kind = OutcomeError
			out.Err = fmt.Errorf("throttle: %w", err)
			return out
		}
	}

	affected, err := sess.InsertOrder(ctx, row)
	if err != nil && ctx.Err() != nil {
		// A cancel request sent for ctx comes back from the server as a
		// canceled statement, which must not read as a timeout.
		out.Kind = OutcomeError
		out.Err = fmt.Errorf("%w: %v", ctx.Err(), err)
		return out
	}
	out.Kind = Classify(affected, err)
	out.Err = err
	return out
}
