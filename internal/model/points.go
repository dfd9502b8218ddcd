package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType classifies a point transaction. Points are stored positive; the
// sign is implied by the type. Balances are always earn minus redeem;
// adjust entries are audit annotations and never move a balance.
type TxType string

const (
	TxEarn   TxType = "earn"
	TxRedeem TxType = "redeem"
	TxAdjust TxType = "adjust"
)

func (t TxType) Valid() bool {
	return t == TxEarn || t == TxRedeem || t == TxAdjust
}

// PointTransaction is one append-only ledger entry. Entries are never
// updated or deleted; every balance is recomputed from this log.
type PointTransaction struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	UserID      int64     `json:"user_id"`
	Points      int       `json:"points"`
	Type        TxType    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// PointsSummary is the derived view of one member's points economy.
type PointsSummary struct {
	UserID               int64           `json:"user_id"`
	FamilyID             int64           `json:"family_id"`
	TotalEarned          int             `json:"total_earned"`
	TotalRedeemed        int             `json:"total_redeemed"`
	Available            int             `json:"available"`
	PendingRequestPoints int             `json:"pending_request_points"`
	Rank                 int             `json:"rank"`
	Value                decimal.Decimal `json:"value"`
}

// RedemptionRequest asks an admin to settle points for money. Approval
// materializes exactly one redeem transaction; rejection materializes none.
type RedemptionRequest struct {
	ID           int64           `json:"id"`
	FamilyID     int64           `json:"family_id"`
	UserID       int64           `json:"user_id"`
	Points       int             `json:"points"`
	Amount       decimal.Decimal `json:"amount"`
	Status       ReviewStatus    `json:"status"`
	Remark       string          `json:"remark"`
	RejectReason string          `json:"reject_reason"`
	ReviewerID   *int64          `json:"reviewer_id"`
	ReviewedAt   *time.Time      `json:"reviewed_at"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RankEntry is one leaderboard row.
type RankEntry struct {
	Rank     int             `json:"rank"`
	UserID   int64           `json:"user_id"`
	UserName string          `json:"user_name"`
	Points   int             `json:"points"`
	Value    decimal.Decimal `json:"value"`
}
