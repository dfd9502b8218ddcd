// Package store persists all application state in SQLite. Each aggregate
// has its own store type over a shared *sql.DB. Methods that both guard a
// state transition and mutate balances run inside a single transaction:
// the guard is a compare-and-swap (WHERE status = 'pending', or on the old
// balance) so two concurrent writers cannot both win.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fzheng/homepoints/internal/model"
)

// ErrNotPending is returned by review methods when the item has already
// left the pending state.
var ErrNotPending = errors.New("item is not pending")

// ErrInsufficientPoints is returned when a redemption would drive a points
// balance negative.
var ErrInsufficientPoints = errors.New("insufficient points")

// ErrInsufficientBalance is returned when a withdrawal exceeds the savings
// balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrConflict is returned when an optimistic compare-and-swap loses to a
// concurrent writer. Callers may re-read and retry.
var ErrConflict = errors.New("concurrent update conflict")

// execer is satisfied by both *sql.DB and *sql.Tx so helpers can run
// inside or outside a transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// insertPointTransaction appends one ledger entry. This is the single
// write path into point_transactions, shared by the points store and the
// chore record store.
func insertPointTransaction(e execer, familyID, userID int64, points int, txType model.TxType, description string) (int64, error) {
	result, err := e.Exec(
		`INSERT INTO point_transactions (family_id, user_id, points, type, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		familyID, userID, points, string(txType), description, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert point transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// pointTotals computes earned and redeemed sums for one member. Adjust
// entries are excluded: balances are always earn minus redeem.
func pointTotals(e execer, familyID, userID int64) (earned, redeemed int, err error) {
	err = e.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN type = 'earn' THEN points ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'redeem' THEN points ELSE 0 END), 0)
		 FROM point_transactions WHERE family_id = ? AND user_id = ?`,
		familyID, userID,
	).Scan(&earned, &redeemed)
	if err != nil {
		return 0, 0, fmt.Errorf("sum point transactions: %w", err)
	}
	return earned, redeemed, nil
}
