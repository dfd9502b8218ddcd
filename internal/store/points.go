package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fzheng/homepoints/internal/model"
	"github.com/shopspring/decimal"
)

type PointsStore struct {
	db *sql.DB
}

func NewPointsStore(db *sql.DB) *PointsStore {
	return &PointsStore{db: db}
}

func scanPointTransaction(scanner interface{ Scan(...any) error }) (*model.PointTransaction, error) {
	var t model.PointTransaction
	err := scanner.Scan(&t.ID, &t.FamilyID, &t.UserID, &t.Points, &t.Type, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanRedemptionRequest(scanner interface{ Scan(...any) error }) (*model.RedemptionRequest, error) {
	var r model.RedemptionRequest
	var reviewerID sql.NullInt64
	var reviewedAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.FamilyID, &r.UserID, &r.Points, &r.Amount, &r.Status,
		&r.Remark, &r.RejectReason, &reviewerID, &reviewedAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reviewerID.Valid {
		r.ReviewerID = &reviewerID.Int64
	}
	if reviewedAt.Valid {
		r.ReviewedAt = &reviewedAt.Time
	}
	return &r, nil
}

const pointTxCols = `id, family_id, user_id, points, type, description, created_at`
const redemptionCols = `id, family_id, user_id, points, amount, status, remark, reject_reason, reviewer_id, reviewed_at, created_at`

// Append inserts one ledger entry. The log is append-only: there is no
// update or delete anywhere in this store.
func (s *PointsStore) Append(familyID, userID int64, points int, txType model.TxType, description string) (*model.PointTransaction, error) {
	id, err := insertPointTransaction(s.db, familyID, userID, points, txType, description)
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(id)
}

func (s *PointsStore) GetTransaction(id int64) (*model.PointTransaction, error) {
	row := s.db.QueryRow(`SELECT `+pointTxCols+` FROM point_transactions WHERE id = ?`, id)
	t, err := scanPointTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get point transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns a member's entries, newest first.
func (s *PointsStore) ListTransactions(familyID, userID int64) ([]model.PointTransaction, error) {
	rows, err := s.db.Query(
		`SELECT `+pointTxCols+` FROM point_transactions WHERE family_id = ? AND user_id = ? ORDER BY created_at DESC, id DESC`,
		familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list point transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.PointTransaction
	for rows.Next() {
		t, err := scanPointTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan point transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// Totals returns the earned and redeemed sums for one member.
func (s *PointsStore) Totals(familyID, userID int64) (earned, redeemed int, err error) {
	return pointTotals(s.db, familyID, userID)
}

// SumPendingRequestPoints returns the points already earmarked by a
// member's still-pending redemption requests.
func (s *PointsStore) SumPendingRequestPoints(familyID, userID int64) (int, error) {
	var sum int
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM redemption_requests WHERE family_id = ? AND user_id = ? AND status = ?`,
		familyID, userID, string(model.StatusPending),
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum pending requests: %w", err)
	}
	return sum, nil
}

// MemberPointSums returns net points (earn minus redeem) per member,
// restricted to entries at or after since. A zero since means all time.
func (s *PointsStore) MemberPointSums(familyID int64, since time.Time) (map[int64]int, error) {
	query := `SELECT user_id,
		COALESCE(SUM(CASE WHEN type = 'earn' THEN points WHEN type = 'redeem' THEN -points ELSE 0 END), 0)
		FROM point_transactions WHERE family_id = ?`
	args := []any{familyID}
	if !since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY user_id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum member points: %w", err)
	}
	defer rows.Close()

	sums := make(map[int64]int)
	for rows.Next() {
		var userID int64
		var points int
		if err := rows.Scan(&userID, &points); err != nil {
			return nil, fmt.Errorf("scan member points: %w", err)
		}
		sums[userID] = points
	}
	return sums, rows.Err()
}

// --- Redemption request methods ---

func (s *PointsStore) CreateRequest(familyID, userID int64, points int, amount decimal.Decimal, remark string) (*model.RedemptionRequest, error) {
	result, err := s.db.Exec(
		`INSERT INTO redemption_requests (family_id, user_id, points, amount, remark) VALUES (?, ?, ?, ?, ?)`,
		familyID, userID, points, amount, remark,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRequest(id)
}

func (s *PointsStore) GetRequest(id int64) (*model.RedemptionRequest, error) {
	row := s.db.QueryRow(`SELECT `+redemptionCols+` FROM redemption_requests WHERE id = ?`, id)
	r, err := scanRedemptionRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption request: %w", err)
	}
	return r, nil
}

// ListRequests returns a family's requests, newest first. Empty status
// lists all; userID 0 skips the member filter.
func (s *PointsStore) ListRequests(familyID int64, status model.ReviewStatus, userID int64) ([]model.RedemptionRequest, error) {
	query := `SELECT ` + redemptionCols + ` FROM redemption_requests WHERE family_id = ?`
	args := []any{familyID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	if userID != 0 {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list redemption requests: %w", err)
	}
	defer rows.Close()

	var requests []model.RedemptionRequest
	for rows.Next() {
		r, err := scanRedemptionRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// ApproveRequest settles a pending request: compare-and-swap on status,
// re-validate the balance inside the same transaction (it may have changed
// since submission), then append the redeem entry. All or nothing.
func (s *PointsStore) ApproveRequest(requestID, reviewerID int64) (*model.RedemptionRequest, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var familyID, userID int64
	var points int
	err = tx.QueryRow(
		`SELECT family_id, user_id, points FROM redemption_requests WHERE id = ?`, requestID,
	).Scan(&familyID, &userID, &points)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("redemption request %d not found", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption request: %w", err)
	}

	earned, redeemed, err := pointTotals(tx, familyID, userID)
	if err != nil {
		return nil, err
	}
	if points > earned-redeemed {
		return nil, ErrInsufficientPoints
	}

	result, err := tx.Exec(
		`UPDATE redemption_requests SET status = ?, reviewer_id = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusApproved), reviewerID, time.Now().UTC(),
		requestID, string(model.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("approve redemption request: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotPending
	}

	desc := fmt.Sprintf("redemption request #%d approved", requestID)
	if _, err := insertPointTransaction(tx, familyID, userID, points, model.TxRedeem, desc); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetRequest(requestID)
}

// RejectRequest flips a pending request to rejected. No ledger effect.
func (s *PointsStore) RejectRequest(requestID, reviewerID int64, reason string) (*model.RedemptionRequest, error) {
	result, err := s.db.Exec(
		`UPDATE redemption_requests SET status = ?, reject_reason = ?, reviewer_id = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusRejected), reason, reviewerID, time.Now().UTC(),
		requestID, string(model.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("reject redemption request: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotPending
	}
	return s.GetRequest(requestID)
}

// RedeemDirect appends a redeem entry after checking the balance inside
// the same transaction. Used for admin-initiated settlement that bypasses
// the request workflow.
func (s *PointsStore) RedeemDirect(familyID, userID int64, points int, description string) (*model.PointTransaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	earned, redeemed, err := pointTotals(tx, familyID, userID)
	if err != nil {
		return nil, err
	}
	if points > earned-redeemed {
		return nil, ErrInsufficientPoints
	}

	id, err := insertPointTransaction(tx, familyID, userID, points, model.TxRedeem, description)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetTransaction(id)
}
