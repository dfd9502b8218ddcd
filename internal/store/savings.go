package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fzheng/homepoints/internal/model"
	"github.com/shopspring/decimal"
)

type SavingsStore struct {
	db *sql.DB
}

func NewSavingsStore(db *sql.DB) *SavingsStore {
	return &SavingsStore{db: db}
}

func scanSavingsAccount(scanner interface{ Scan(...any) error }) (*model.SavingsAccount, error) {
	var a model.SavingsAccount
	err := scanner.Scan(
		&a.ID, &a.FamilyID, &a.UserID, &a.Balance, &a.TotalInterest, &a.AnnualRate,
		&a.LastInterestDate, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanSavingsTransaction(scanner interface{ Scan(...any) error }) (*model.SavingsTransaction, error) {
	var t model.SavingsTransaction
	err := scanner.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.BalanceAfter, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanSavingsRequest(scanner interface{ Scan(...any) error }) (*model.SavingsRequest, error) {
	var r model.SavingsRequest
	var reviewerID sql.NullInt64
	var reviewedAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.AccountID, &r.UserID, &r.Type, &r.Amount, &r.Description, &r.Status,
		&r.RejectReason, &reviewerID, &reviewedAt, &r.CreatedAt,
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

const savingsAccountCols = `id, family_id, user_id, balance, total_interest, annual_rate, last_interest_date, created_at, updated_at`
const savingsTxCols = `id, account_id, type, amount, balance_after, description, created_at`
const savingsRequestCols = `id, account_id, user_id, type, amount, description, status, reject_reason, reviewer_id, reviewed_at, created_at`

// GetOrCreate returns the member's account, creating it on first access.
func (s *SavingsStore) GetOrCreate(familyID, userID int64) (*model.SavingsAccount, error) {
	_, err := s.db.Exec(
		`INSERT INTO savings_accounts (family_id, user_id, last_interest_date)
		 VALUES (?, ?, ?)
		 ON CONFLICT (family_id, user_id) DO NOTHING`,
		familyID, userID, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("create savings account: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT `+savingsAccountCols+` FROM savings_accounts WHERE family_id = ? AND user_id = ?`,
		familyID, userID,
	)
	a, err := scanSavingsAccount(row)
	if err != nil {
		return nil, fmt.Errorf("get savings account: %w", err)
	}
	return a, nil
}

func (s *SavingsStore) GetByID(id int64) (*model.SavingsAccount, error) {
	row := s.db.QueryRow(`SELECT `+savingsAccountCols+` FROM savings_accounts WHERE id = ?`, id)
	a, err := scanSavingsAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get savings account: %w", err)
	}
	return a, nil
}

func (s *SavingsStore) UpdateRate(accountID int64, rate decimal.Decimal) (*model.SavingsAccount, error) {
	_, err := s.db.Exec(
		`UPDATE savings_accounts SET annual_rate = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		rate, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("update annual rate: %w", err)
	}
	return s.GetByID(accountID)
}

// mutateBalance applies one deposit or withdrawal: read the balance inside
// the transaction, compute the new balance in Go (amounts are decimal
// text, SQL cannot add them), then compare-and-swap on the old balance so
// a concurrent writer forces ErrConflict instead of a lost update. The
// balance update and the transaction insert commit together or not at all.
func (s *SavingsStore) mutateBalance(accountID int64, txType model.SavingsTxType, amount decimal.Decimal, description string) (*model.SavingsTransaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var oldBalance decimal.Decimal
	err = tx.QueryRow(`SELECT balance FROM savings_accounts WHERE id = ?`, accountID).Scan(&oldBalance)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("savings account %d not found", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	var newBalance decimal.Decimal
	switch txType {
	case model.SavingsWithdraw:
		if amount.GreaterThan(oldBalance) {
			return nil, ErrInsufficientBalance
		}
		newBalance = oldBalance.Sub(amount)
	default:
		newBalance = oldBalance.Add(amount)
	}

	txID, err := applyBalanceChange(tx, accountID, oldBalance, newBalance, txType, amount, description)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetTransaction(txID)
}

// applyBalanceChange performs the CAS update and the audit insert inside
// an open transaction. balanceAfter on the inserted row equals the new
// running sum by construction.
func applyBalanceChange(tx *sql.Tx, accountID int64, oldBalance, newBalance decimal.Decimal, txType model.SavingsTxType, amount decimal.Decimal, description string) (int64, error) {
	result, err := tx.Exec(
		`UPDATE savings_accounts SET balance = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND balance = ?`,
		newBalance, accountID, oldBalance,
	)
	if err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return 0, ErrConflict
	}

	insert, err := tx.Exec(
		`INSERT INTO savings_transactions (account_id, type, amount, balance_after, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		accountID, string(txType), amount, newBalance, description, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert savings transaction: %w", err)
	}
	id, err := insert.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *SavingsStore) Deposit(accountID int64, amount decimal.Decimal, description string) (*model.SavingsTransaction, error) {
	return s.mutateBalance(accountID, model.SavingsDeposit, amount, description)
}

func (s *SavingsStore) Withdraw(accountID int64, amount decimal.Decimal, description string) (*model.SavingsTransaction, error) {
	return s.mutateBalance(accountID, model.SavingsWithdraw, amount, description)
}

func (s *SavingsStore) GetTransaction(id int64) (*model.SavingsTransaction, error) {
	row := s.db.QueryRow(`SELECT `+savingsTxCols+` FROM savings_transactions WHERE id = ?`, id)
	t, err := scanSavingsTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get savings transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns an account's log, newest first.
func (s *SavingsStore) ListTransactions(accountID int64) ([]model.SavingsTransaction, error) {
	rows, err := s.db.Query(
		`SELECT `+savingsTxCols+` FROM savings_transactions WHERE account_id = ? ORDER BY created_at DESC, id DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list savings transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.SavingsTransaction
	for rows.Next() {
		t, err := scanSavingsTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// ReplayBalance recomputes an account's balance from its transaction log.
// Used as an audit cross-check against the stored balance column.
func (s *SavingsStore) ReplayBalance(accountID int64) (decimal.Decimal, error) {
	rows, err := s.db.Query(
		`SELECT type, amount FROM savings_transactions WHERE account_id = ? ORDER BY id ASC`,
		accountID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("replay savings transactions: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var txType string
		var amount decimal.Decimal
		if err := rows.Scan(&txType, &amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan savings transaction: %w", err)
		}
		if txType == string(model.SavingsWithdraw) {
			sum = sum.Sub(amount)
		} else {
			sum = sum.Add(amount)
		}
	}
	return sum, rows.Err()
}

// ApplySettlement commits a previously computed interest quote. The
// compare-and-swap on the old balance guarantees the quote was computed
// against the current account state: any interleaved mutation (including
// another settlement) voids it with ErrConflict.
func (s *SavingsStore) ApplySettlement(accountID int64, oldBalance, newBalance, interest, newTotalInterest decimal.Decimal, settledAt time.Time) (*model.SavingsTransaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE savings_accounts
		 SET balance = ?, total_interest = ?, last_interest_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND balance = ?`,
		newBalance, newTotalInterest, settledAt, accountID, oldBalance,
	)
	if err != nil {
		return nil, fmt.Errorf("apply settlement: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrConflict
	}

	insert, err := tx.Exec(
		`INSERT INTO savings_transactions (account_id, type, amount, balance_after, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		accountID, string(model.SavingsInterest), interest, newBalance, "interest settlement", time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert interest transaction: %w", err)
	}
	id, err := insert.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetTransaction(id)
}

// --- Savings request methods ---

func (s *SavingsStore) CreateRequest(accountID, userID int64, reqType model.SavingsRequestType, amount decimal.Decimal, description string) (*model.SavingsRequest, error) {
	result, err := s.db.Exec(
		`INSERT INTO savings_requests (account_id, user_id, type, amount, description) VALUES (?, ?, ?, ?, ?)`,
		accountID, userID, string(reqType), amount, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert savings request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRequest(id)
}

func (s *SavingsStore) GetRequest(id int64) (*model.SavingsRequest, error) {
	row := s.db.QueryRow(`SELECT `+savingsRequestCols+` FROM savings_requests WHERE id = ?`, id)
	r, err := scanSavingsRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get savings request: %w", err)
	}
	return r, nil
}

// ListRequests returns a family's savings requests, newest first.
func (s *SavingsStore) ListRequests(familyID int64, status model.ReviewStatus) ([]model.SavingsRequest, error) {
	query := `SELECT sr.id, sr.account_id, sr.user_id, sr.type, sr.amount, sr.description, sr.status,
		sr.reject_reason, sr.reviewer_id, sr.reviewed_at, sr.created_at
		FROM savings_requests sr
		JOIN savings_accounts sa ON sr.account_id = sa.id
		WHERE sa.family_id = ?`
	args := []any{familyID}
	if status != "" {
		query += ` AND sr.status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY sr.created_at DESC, sr.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list savings requests: %w", err)
	}
	defer rows.Close()

	var requests []model.SavingsRequest
	for rows.Next() {
		r, err := scanSavingsRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// ApproveRequest settles a pending savings request: compare-and-swap on
// status, then the same balance mutation as the direct path, re-checking
// sufficiency for withdrawals against the current balance.
func (s *SavingsStore) ApproveRequest(requestID, reviewerID int64) (*model.SavingsRequest, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var accountID int64
	var reqType, reqDesc string
	var amount decimal.Decimal
	err = tx.QueryRow(
		`SELECT account_id, type, amount, description FROM savings_requests WHERE id = ?`, requestID,
	).Scan(&accountID, &reqType, &amount, &reqDesc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("savings request %d not found", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("get savings request: %w", err)
	}

	var oldBalance decimal.Decimal
	err = tx.QueryRow(`SELECT balance FROM savings_accounts WHERE id = ?`, accountID).Scan(&oldBalance)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	var newBalance decimal.Decimal
	var txType model.SavingsTxType
	if reqType == string(model.RequestWithdraw) {
		if amount.GreaterThan(oldBalance) {
			return nil, ErrInsufficientBalance
		}
		newBalance = oldBalance.Sub(amount)
		txType = model.SavingsWithdraw
	} else {
		newBalance = oldBalance.Add(amount)
		txType = model.SavingsDeposit
	}

	result, err := tx.Exec(
		`UPDATE savings_requests SET status = ?, reviewer_id = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusApproved), reviewerID, time.Now().UTC(),
		requestID, string(model.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("approve savings request: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotPending
	}

	desc := reqDesc
	if desc == "" {
		desc = fmt.Sprintf("savings request #%d approved", requestID)
	}
	if _, err := applyBalanceChange(tx, accountID, oldBalance, newBalance, txType, amount, desc); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetRequest(requestID)
}

// RejectRequest flips a pending request to rejected. No balance effect.
func (s *SavingsStore) RejectRequest(requestID, reviewerID int64, reason string) (*model.SavingsRequest, error) {
	result, err := s.db.Exec(
		`UPDATE savings_requests SET status = ?, reject_reason = ?, reviewer_id = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusRejected), reason, reviewerID, time.Now().UTC(),
		requestID, string(model.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("reject savings request: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotPending
	}
	return s.GetRequest(requestID)
}
