package model

import "time"

// ChoreType is a family's catalog entry: a named chore worth a fixed number
// of points. Types are soft-deleted so historical records keep resolving.
type ChoreType struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Name      string    `json:"name"`
	Points    int       `json:"points"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChoreRecord is one submitted chore completion. The chore name and points
// are copied onto the record at submission time so later catalog edits do
// not rewrite history.
type ChoreRecord struct {
	ID              int64        `json:"id"`
	FamilyID        int64        `json:"family_id"`
	UserID          int64        `json:"user_id"`
	ChoreTypeID     int64        `json:"chore_type_id"`
	ChoreName       string       `json:"chore_name"`
	OriginalPoints  int          `json:"original_points"`
	Note            string       `json:"note"`
	Images          []string     `json:"images"`
	Status          ReviewStatus `json:"status"`
	Deduction       int          `json:"deduction"`
	DeductionReason string       `json:"deduction_reason"`
	FinalPoints     int          `json:"final_points"`
	ReviewNote      string       `json:"review_note"`
	ReviewerID      *int64       `json:"reviewer_id"`
	ReviewedAt      *time.Time   `json:"reviewed_at"`
	CompletedAt     time.Time    `json:"completed_at"`
	CreatedAt       time.Time    `json:"created_at"`
}
