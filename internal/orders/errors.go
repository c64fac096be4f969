package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// queryCanceled is the SQLSTATE PostgreSQL reports when statement_timeout or
// a client cancel request stops a statement.
const queryCanceled = "57014"

// IsTimeout reports whether err comes from a statement that ran out of time.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == queryCanceled
}

// Describe renders a storage error for the audit log, adding the SQLSTATE
// and constraint name when the server reported them.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err.Error()
	}

	msg := fmt.Sprintf("%s (SQLSTATE %s", pqErr.Message, pqErr.Code)
	if pqErr.Constraint != "" {
		msg += ", constraint " + pqErr.Constraint
	}
	return msg + ")"
}

func isTxDone(err error) bool {
	return errors.Is(err, sql.ErrTxDone)
}
