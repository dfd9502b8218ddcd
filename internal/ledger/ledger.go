// Package ledger owns the points economy: the append-only transaction log,
// derived balances, the redemption approval workflow and the leaderboard.
package ledger

import (
	"errors"
	"fmt"

	"github.com/fzheng/homepoints/internal/authz"
	"github.com/fzheng/homepoints/internal/fault"
	"github.com/fzheng/homepoints/internal/model"
	"github.com/fzheng/homepoints/internal/store"
)

var (
	ErrInvalidPoints        = fault.New(fault.Validation, "points must be positive")
	ErrInvalidTxType        = fault.New(fault.Validation, "unknown transaction type")
	ErrInsufficientPoints   = fault.New(fault.State, "insufficient points")
	ErrAlreadyReviewed      = fault.New(fault.State, "request already reviewed")
	ErrRejectReasonRequired = fault.New(fault.Validation, "a rejection requires a reason")
	ErrRequestNotFound      = fault.New(fault.Validation, "redemption request not found")
	ErrInvalidAction        = fault.New(fault.Validation, "unknown review action")
)

type Service struct {
	points   *store.PointsStore
	families *store.FamilyStore
	users    *store.UserStore
	authz    *authz.Service
}

func NewService(points *store.PointsStore, families *store.FamilyStore, users *store.UserStore, az *authz.Service) *Service {
	return &Service{points: points, families: families, users: users, authz: az}
}

// Append writes one ledger entry on behalf of an admin. Earn and redeem
// entries move the target's balance; adjust entries are audit notes only.
func (s *Service) Append(familyID, actorID, targetUserID int64, points int, txType model.TxType, description string) (*model.PointTransaction, error) {
	if _, err := s.authz.RequireAdmin(familyID, actorID); err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMember(familyID, targetUserID); err != nil {
		return nil, err
	}
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	if !txType.Valid() {
		return nil, ErrInvalidTxType
	}
	if txType == model.TxRedeem {
		return s.redeemDirect(familyID, targetUserID, points, description)
	}
	tx, err := s.points.Append(familyID, targetUserID, points, txType, description)
	if err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	return tx, nil
}

func (s *Service) redeemDirect(familyID, userID int64, points int, description string) (*model.PointTransaction, error) {
	tx, err := s.points.RedeemDirect(familyID, userID, points, description)
	if errors.Is(err, store.ErrInsufficientPoints) {
		return nil, fmt.Errorf("%w: balance below %d", ErrInsufficientPoints, points)
	}
	if err != nil {
		return nil, fmt.Errorf("redeem: %w", err)
	}
	return tx, nil
}

// Summary derives one member's points view: lifetime totals, the available
// balance, points earmarked by pending requests, leaderboard rank and the
// monetary value of the available balance.
func (s *Service) Summary(familyID, requesterID, targetUserID int64) (*model.PointsSummary, error) {
	if _, err := s.authz.RequireMember(familyID, requesterID); err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMember(familyID, targetUserID); err != nil {
		return nil, err
	}

	earned, redeemed, err := s.points.Totals(familyID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	pending, err := s.points.SumPendingRequestPoints(familyID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("pending requests: %w", err)
	}

	family, err := s.families.GetByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}

	entries, err := s.rank(familyID, PeriodAll)
	if err != nil {
		return nil, err
	}
	rank := 0
	for _, e := range entries {
		if e.UserID == targetUserID {
			rank = e.Rank
			break
		}
	}

	available := earned - redeemed
	return &model.PointsSummary{
		UserID:               targetUserID,
		FamilyID:             familyID,
		TotalEarned:          earned,
		TotalRedeemed:        redeemed,
		Available:            available,
		PendingRequestPoints: pending,
		Rank:                 rank,
		Value:                family.PointsValue.Mul(decimalFromInt(available)),
	}, nil
}

// ListTransactions returns a member's ledger entries. Members may read
// their own history; reading another member's requires admin authority.
func (s *Service) ListTransactions(familyID, requesterID, targetUserID int64) ([]model.PointTransaction, error) {
	if requesterID == targetUserID {
		if _, err := s.authz.RequireMember(familyID, requesterID); err != nil {
			return nil, err
		}
	} else if _, err := s.authz.RequireAdmin(familyID, requesterID); err != nil {
		return nil, err
	}
	txs, err := s.points.ListTransactions(familyID, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// SubmitRedemptionRequest opens a pending request to trade points for
// money. Points already earmarked by the member's other pending requests
// reduce what can be asked for, so the sum of pending requests can never
// exceed the balance.
func (s *Service) SubmitRedemptionRequest(familyID, userID int64, points int, remark string) (*model.RedemptionRequest, error) {
	if _, err := s.authz.RequireMember(familyID, userID); err != nil {
		return nil, err
	}
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	earned, redeemed, err := s.points.Totals(familyID, userID)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	pending, err := s.points.SumPendingRequestPoints(familyID, userID)
	if err != nil {
		return nil, fmt.Errorf("pending requests: %w", err)
	}
	if points > earned-redeemed-pending {
		return nil, fmt.Errorf("%w: %d available after %d earmarked", ErrInsufficientPoints, earned-redeemed-pending, pending)
	}

	family, err := s.families.GetByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	amount := family.PointsValue.Mul(decimalFromInt(points)).Round(2)

	req, err := s.points.CreateRequest(familyID, userID, points, amount, remark)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// ReviewRedemptionRequest settles a pending request. Approval appends the
// redeem entry atomically with the status flip; rejection needs a reason
// and touches nothing but the request row.
func (s *Service) ReviewRedemptionRequest(requestID, reviewerID int64, action model.ReviewAction, reason string) (*model.RedemptionRequest, error) {
	req, err := s.points.GetRequest(requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if _, err := s.authz.RequireAdmin(req.FamilyID, reviewerID); err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, ErrAlreadyReviewed
	}
	requested := req.Points

	switch action {
	case model.ActionApprove:
		req, err = s.points.ApproveRequest(requestID, reviewerID)
	case model.ActionReject:
		if reason == "" {
			return nil, ErrRejectReasonRequired
		}
		req, err = s.points.RejectRequest(requestID, reviewerID, reason)
	default:
		return nil, ErrInvalidAction
	}

	if errors.Is(err, store.ErrNotPending) {
		return nil, ErrAlreadyReviewed
	}
	if errors.Is(err, store.ErrInsufficientPoints) {
		return nil, fmt.Errorf("%w: balance dropped below the requested %d", ErrInsufficientPoints, requested)
	}
	if err != nil {
		return nil, fmt.Errorf("review request: %w", err)
	}
	return req, nil
}

// ListRedemptionRequests returns requests in the family. Members see only
// their own; admins see everyone's.
func (s *Service) ListRedemptionRequests(familyID, requesterID int64, status model.ReviewStatus) ([]model.RedemptionRequest, error) {
	role, err := s.authz.RequireMember(familyID, requesterID)
	if err != nil {
		return nil, err
	}
	filterUser := requesterID
	if role.AtLeast(model.RoleAdmin) {
		filterUser = 0
	}
	reqs, err := s.points.ListRequests(familyID, status, filterUser)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return reqs, nil
}
