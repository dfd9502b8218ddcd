// Package savings manages per-member interest-bearing accounts: direct
// admin deposits and withdrawals, member requests awaiting approval, and
// manual interest settlement.
package savings

import (
	"errors"
	"fmt"
	"time"

	"github.com/fzheng/homepoints/internal/authz"
	"github.com/fzheng/homepoints/internal/fault"
	"github.com/fzheng/homepoints/internal/model"
	"github.com/fzheng/homepoints/internal/store"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount        = fault.New(fault.Validation, "amount must be positive")
	ErrInvalidRate          = fault.New(fault.Validation, "annual rate must be between 0 and 1")
	ErrInvalidRequestType   = fault.New(fault.Validation, "unknown savings request type")
	ErrInsufficientBalance  = fault.New(fault.State, "insufficient savings balance")
	ErrNoInterestToSettle   = fault.New(fault.State, "no interest to settle")
	ErrAlreadyReviewed      = fault.New(fault.State, "request already reviewed")
	ErrRejectReasonRequired = fault.New(fault.Validation, "a rejection requires a reason")
	ErrRequestNotFound      = fault.New(fault.Validation, "savings request not found")
	ErrAccountNotFound      = fault.New(fault.Validation, "savings account not found")
	ErrInvalidAction        = fault.New(fault.Validation, "unknown review action")
	ErrConcurrentUpdate     = fault.New(fault.State, "account changed while settling, retry")
)

type Service struct {
	savings  *store.SavingsStore
	families *store.FamilyStore
	authz    *authz.Service
}

func NewService(savings *store.SavingsStore, families *store.FamilyStore, az *authz.Service) *Service {
	return &Service{savings: savings, families: families, authz: az}
}

// GetAccount returns a member's account, creating it on first access.
// Members read their own; reading another member's requires admin.
func (s *Service) GetAccount(familyID, requesterID, targetUserID int64) (*model.SavingsAccount, error) {
	if requesterID == targetUserID {
		if _, err := s.authz.RequireMember(familyID, requesterID); err != nil {
			return nil, err
		}
	} else if _, err := s.authz.RequireAdmin(familyID, requesterID); err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMember(familyID, targetUserID); err != nil {
		return nil, err
	}
	a, err := s.savings.GetOrCreate(familyID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// Deposit credits an account directly, bypassing the request workflow.
// Admin only.
func (s *Service) Deposit(familyID, actorID, targetUserID int64, amount decimal.Decimal, description string) (*model.SavingsTransaction, error) {
	a, err := s.requireAdminAndAccount(familyID, actorID, targetUserID)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	tx, err := s.savings.Deposit(a.ID, amount, description)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	return tx, nil
}

// Withdraw debits an account directly. Admin only; never overdraws.
func (s *Service) Withdraw(familyID, actorID, targetUserID int64, amount decimal.Decimal, description string) (*model.SavingsTransaction, error) {
	a, err := s.requireAdminAndAccount(familyID, actorID, targetUserID)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	tx, err := s.savings.Withdraw(a.ID, amount, description)
	if errors.Is(err, store.ErrInsufficientBalance) {
		return nil, fmt.Errorf("%w: cannot withdraw %s", ErrInsufficientBalance, amount)
	}
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	return tx, nil
}

func (s *Service) requireAdminAndAccount(familyID, actorID, targetUserID int64) (*model.SavingsAccount, error) {
	if _, err := s.authz.RequireAdmin(familyID, actorID); err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMember(familyID, targetUserID); err != nil {
		return nil, err
	}
	a, err := s.savings.GetOrCreate(familyID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// ListTransactions returns an account's log, visible to the owner and to
// admins.
func (s *Service) ListTransactions(familyID, requesterID, targetUserID int64) ([]model.SavingsTransaction, error) {
	a, err := s.GetAccount(familyID, requesterID, targetUserID)
	if err != nil {
		return nil, err
	}
	txs, err := s.savings.ListTransactions(a.ID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// SubmitRequest opens a pending deposit or withdrawal on the member's own
// account. Withdrawals are not balance-checked here: the balance that
// matters is the one at approval time.
func (s *Service) SubmitRequest(familyID, userID int64, reqType model.SavingsRequestType, amount decimal.Decimal, description string) (*model.SavingsRequest, error) {
	if _, err := s.authz.RequireMember(familyID, userID); err != nil {
		return nil, err
	}
	if !reqType.Valid() {
		return nil, ErrInvalidRequestType
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	a, err := s.savings.GetOrCreate(familyID, userID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	req, err := s.savings.CreateRequest(a.ID, userID, reqType, amount, description)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// ReviewRequest settles a pending savings request. Approval applies the
// balance change atomically with the status flip, re-checking withdrawal
// sufficiency against the current balance. Rejection needs a reason.
func (s *Service) ReviewRequest(requestID, reviewerID int64, action model.ReviewAction, reason string) (*model.SavingsRequest, error) {
	req, err := s.savings.GetRequest(requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	a, err := s.savings.GetByID(req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if a == nil {
		return nil, ErrAccountNotFound
	}
	if _, err := s.authz.RequireAdmin(a.FamilyID, reviewerID); err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, ErrAlreadyReviewed
	}

	switch action {
	case model.ActionApprove:
		req, err = s.savings.ApproveRequest(requestID, reviewerID)
	case model.ActionReject:
		if reason == "" {
			return nil, ErrRejectReasonRequired
		}
		req, err = s.savings.RejectRequest(requestID, reviewerID, reason)
	default:
		return nil, ErrInvalidAction
	}

	if errors.Is(err, store.ErrNotPending) {
		return nil, ErrAlreadyReviewed
	}
	if errors.Is(err, store.ErrInsufficientBalance) {
		return nil, fmt.Errorf("%w: balance dropped below the requested amount", ErrInsufficientBalance)
	}
	if err != nil {
		return nil, fmt.Errorf("review request: %w", err)
	}
	return req, nil
}

// ListRequests returns a family's savings requests. Members see only
// their own; admins see everyone's.
func (s *Service) ListRequests(familyID, requesterID int64, status model.ReviewStatus) ([]model.SavingsRequest, error) {
	role, err := s.authz.RequireMember(familyID, requesterID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.savings.ListRequests(familyID, status)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if role.AtLeast(model.RoleAdmin) {
		return reqs, nil
	}
	own := reqs[:0]
	for _, r := range reqs {
		if r.UserID == requesterID {
			own = append(own, r)
		}
	}
	return own, nil
}

// PreviewInterest projects what a settlement today would yield, without
// persisting anything.
func (s *Service) PreviewInterest(familyID, requesterID, targetUserID int64) (Quote, error) {
	a, err := s.GetAccount(familyID, requesterID, targetUserID)
	if err != nil {
		return Quote{}, err
	}
	return QuoteInterest(a.Balance, a.AnnualRate, a.LastInterestDate, time.Now()), nil
}

// SettleInterest applies accrued interest to the balance. Admin only, and
// idempotent per day: a second settlement on the same date finds zero
// elapsed days. The quote is applied with a compare-and-swap on the
// balance it was computed from, so an interleaved mutation forces a retry
// instead of settling against stale state.
func (s *Service) SettleInterest(familyID, actorID, targetUserID int64) (*model.SavingsTransaction, error) {
	a, err := s.requireAdminAndAccount(familyID, actorID, targetUserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	q := QuoteInterest(a.Balance, a.AnnualRate, a.LastInterestDate, now)
	if q.Days <= 0 || q.Interest.Sign() <= 0 {
		return nil, ErrNoInterestToSettle
	}

	newTotal := a.TotalInterest.Add(q.Interest)
	tx, err := s.savings.ApplySettlement(a.ID, a.Balance, q.NewBalance, q.Interest, newTotal, now)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrConcurrentUpdate
	}
	if err != nil {
		return nil, fmt.Errorf("apply settlement: %w", err)
	}
	return tx, nil
}

// UpdateRate sets an account's annual interest rate. Creator only.
func (s *Service) UpdateRate(familyID, actorID, targetUserID int64, rate decimal.Decimal) (*model.SavingsAccount, error) {
	if _, err := s.authz.RequireCreator(familyID, actorID); err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMember(familyID, targetUserID); err != nil {
		return nil, err
	}
	if rate.Sign() < 0 || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, ErrInvalidRate
	}
	a, err := s.savings.GetOrCreate(familyID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	a, err = s.savings.UpdateRate(a.ID, rate)
	if err != nil {
		return nil, fmt.Errorf("update rate: %w", err)
	}
	return a, nil
}
