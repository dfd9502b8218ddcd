package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavingsTxType classifies a savings transaction.
type SavingsTxType string

const (
	SavingsDeposit  SavingsTxType = "deposit"
	SavingsWithdraw SavingsTxType = "withdraw"
	SavingsInterest SavingsTxType = "interest"
)

// SavingsRequestType is the kind of member-submitted savings request.
type SavingsRequestType string

const (
	RequestDeposit  SavingsRequestType = "deposit"
	RequestWithdraw SavingsRequestType = "withdraw"
)

func (t SavingsRequestType) Valid() bool {
	return t == RequestDeposit || t == RequestWithdraw
}

// SavingsAccount is a per-member interest-bearing balance, independent of
// the points ledger. One account per (family, user), created lazily.
type SavingsAccount struct {
	ID               int64           `json:"id"`
	FamilyID         int64           `json:"family_id"`
	UserID           int64           `json:"user_id"`
	Balance          decimal.Decimal `json:"balance"`
	TotalInterest    decimal.Decimal `json:"total_interest"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	LastInterestDate time.Time       `json:"last_interest_date"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// SavingsTransaction is one entry in an account's transaction log.
// BalanceAfter snapshots the running balance at insertion time and serves
// as an audit cross-check against the replayed sum.
type SavingsTransaction struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"account_id"`
	Type         SavingsTxType   `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SavingsRequest is a member-submitted deposit or withdrawal awaiting an
// admin decision. It has no balance effect until approved.
type SavingsRequest struct {
	ID           int64              `json:"id"`
	AccountID    int64              `json:"account_id"`
	UserID       int64              `json:"user_id"`
	Type         SavingsRequestType `json:"type"`
	Amount       decimal.Decimal    `json:"amount"`
	Description  string             `json:"description"`
	Status       ReviewStatus       `json:"status"`
	RejectReason string             `json:"reject_reason"`
	ReviewerID   *int64             `json:"reviewer_id"`
	ReviewedAt   *time.Time         `json:"reviewed_at"`
	CreatedAt    time.Time          `json:"created_at"`
}
