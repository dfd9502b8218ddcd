package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fzheng/homepoints/internal/model"
)

type ChoreRecordStore struct {
	db *sql.DB
}

func NewChoreRecordStore(db *sql.DB) *ChoreRecordStore {
	return &ChoreRecordStore{db: db}
}

func scanChoreRecord(scanner interface{ Scan(...any) error }) (*model.ChoreRecord, error) {
	var r model.ChoreRecord
	var images string
	var reviewerID sql.NullInt64
	var reviewedAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.FamilyID, &r.UserID, &r.ChoreTypeID, &r.ChoreName, &r.OriginalPoints,
		&r.Note, &images, &r.Status, &r.Deduction, &r.DeductionReason, &r.FinalPoints,
		&r.ReviewNote, &reviewerID, &reviewedAt, &r.CompletedAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(images), &r.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	if reviewerID.Valid {
		r.ReviewerID = &reviewerID.Int64
	}
	if reviewedAt.Valid {
		r.ReviewedAt = &reviewedAt.Time
	}
	return &r, nil
}

const choreRecordCols = `id, family_id, user_id, chore_type_id, chore_name, original_points,
	note, images, status, deduction, deduction_reason, final_points,
	review_note, reviewer_id, reviewed_at, completed_at, created_at`

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("encode images: %w", err)
	}
	return string(data), nil
}

// CreatePending inserts a record awaiting review. No ledger effect.
func (s *ChoreRecordStore) CreatePending(familyID, userID, choreTypeID int64, choreName string, points int, note string, images []string) (*model.ChoreRecord, error) {
	imgs, err := encodeImages(images)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO chore_records (family_id, user_id, chore_type_id, chore_name, original_points, note, images, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, userID, choreTypeID, choreName, points, note, imgs, string(model.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateApproved inserts an already-approved record and its earn
// transaction in one transaction. Used when the submitter is an admin or
// the creator: their work needs no review.
func (s *ChoreRecordStore) CreateApproved(familyID, userID, choreTypeID int64, choreName string, points int, note string, images []string, earnDescription string) (*model.ChoreRecord, error) {
	imgs, err := encodeImages(images)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.Exec(
		`INSERT INTO chore_records (family_id, user_id, chore_type_id, chore_name, original_points, note, images,
			status, final_points, reviewer_id, reviewed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, userID, choreTypeID, choreName, points, note, imgs,
		string(model.StatusApproved), points, userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := insertPointTransaction(tx, familyID, userID, points, model.TxEarn, earnDescription); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreRecordStore) GetByID(id int64) (*model.ChoreRecord, error) {
	row := s.db.QueryRow(`SELECT `+choreRecordCols+` FROM chore_records WHERE id = ?`, id)
	r, err := scanChoreRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore record: %w", err)
	}
	return r, nil
}

// List returns a family's records, newest first. Pass an empty status to
// list all, and userID 0 to skip the member filter.
func (s *ChoreRecordStore) List(familyID int64, status model.ReviewStatus, userID int64) ([]model.ChoreRecord, error) {
	query := `SELECT ` + choreRecordCols + ` FROM chore_records WHERE family_id = ?`
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
		return nil, fmt.Errorf("list chore records: %w", err)
	}
	defer rows.Close()

	var records []model.ChoreRecord
	for rows.Next() {
		r, err := scanChoreRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// Approve flips a pending record to approved and appends the earn
// transaction, atomically. The status check is a compare-and-swap: if the
// record already left pending (a concurrent reviewer won), ErrNotPending
// is returned and nothing is written.
func (s *ChoreRecordStore) Approve(recordID, reviewerID int64, deduction int, deductionReason, reviewNote string, finalPoints int, earnDescription string) (*model.ChoreRecord, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var familyID, userID int64
	err = tx.QueryRow(`SELECT family_id, user_id FROM chore_records WHERE id = ?`, recordID).Scan(&familyID, &userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chore record %d not found", recordID)
	}
	if err != nil {
		return nil, fmt.Errorf("get chore record: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE chore_records
		 SET status = ?, deduction = ?, deduction_reason = ?, final_points = ?, review_note = ?, reviewer_id = ?, reviewed_at = ?
		 WHERE id = ? AND status = ?`,
		string(model.StatusApproved), deduction, deductionReason, finalPoints, reviewNote, reviewerID, time.Now().UTC(),
		recordID, string(model.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("approve chore record: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotPending
	}

	if finalPoints > 0 {
		if _, err := insertPointTransaction(tx, familyID, userID, finalPoints, model.TxEarn, earnDescription); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(recordID)
}

// Reject flips a pending record to rejected. No ledger effect: rejected
// work earns zero points.
func (s *ChoreRecordStore) Reject(recordID, reviewerID int64, reviewNote string) (*model.ChoreRecord, error) {
	result, err := s.db.Exec(
		`UPDATE chore_records SET status = ?, review_note = ?, reviewer_id = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusRejected), reviewNote, reviewerID, time.Now().UTC(),
		recordID, string(model.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("reject chore record: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotPending
	}
	return s.GetByID(recordID)
}
