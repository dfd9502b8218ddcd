// Package chorereview runs chore submissions through the review state
// machine: members submit pending records, admins settle them, and an
// approval is what mints points.
package chorereview

import (
	"errors"
	"fmt"

	"github.com/fzheng/homepoints/internal/authz"
	"github.com/fzheng/homepoints/internal/fault"
	"github.com/fzheng/homepoints/internal/model"
	"github.com/fzheng/homepoints/internal/store"
)

var (
	ErrChoreTypeNotFound = fault.New(fault.Validation, "chore type not found in this family")
	ErrChoreTypeInactive = fault.New(fault.Validation, "chore type is no longer active")
	ErrRecordNotFound    = fault.New(fault.Validation, "chore record not found")
	ErrAlreadyReviewed   = fault.New(fault.State, "record already reviewed")
	ErrInvalidAction     = fault.New(fault.Validation, "unknown review action")
	ErrReasonRequired    = fault.New(fault.Validation, "a rejection requires a review note")
)

type Service struct {
	records    *store.ChoreRecordStore
	choreTypes *store.ChoreTypeStore
	authz      *authz.Service
}

func NewService(records *store.ChoreRecordStore, choreTypes *store.ChoreTypeStore, az *authz.Service) *Service {
	return &Service{records: records, choreTypes: choreTypes, authz: az}
}

// SubmitRecord records a completed chore. The chore's name and points are
// snapshotted onto the record. A member's submission waits for review; an
// admin's is approved on the spot and earns immediately.
func (s *Service) SubmitRecord(familyID, userID, choreTypeID int64, note string, images []string) (*model.ChoreRecord, error) {
	role, err := s.authz.RequireMember(familyID, userID)
	if err != nil {
		return nil, err
	}

	ct, err := s.choreTypes.GetByID(choreTypeID)
	if err != nil {
		return nil, fmt.Errorf("get chore type: %w", err)
	}
	if ct == nil || ct.FamilyID != familyID {
		return nil, ErrChoreTypeNotFound
	}
	if !ct.Active {
		return nil, ErrChoreTypeInactive
	}

	if role.AtLeast(model.RoleAdmin) {
		rec, err := s.records.CreateApproved(familyID, userID, ct.ID, ct.Name, ct.Points, note, images,
			fmt.Sprintf("%s completed", ct.Name))
		if err != nil {
			return nil, fmt.Errorf("create approved record: %w", err)
		}
		return rec, nil
	}

	rec, err := s.records.CreatePending(familyID, userID, ct.ID, ct.Name, ct.Points, note, images)
	if err != nil {
		return nil, fmt.Errorf("create pending record: %w", err)
	}
	return rec, nil
}

// ReviewRecord settles a pending record. Approval may deduct points for
// quality; the deduction is clamped to [0, original points] and the
// remainder is credited atomically with the status flip. Rejection needs a
// note and credits nothing.
func (s *Service) ReviewRecord(recordID, reviewerID int64, action model.ReviewAction, deduction int, deductionReason, reviewNote string) (*model.ChoreRecord, error) {
	rec, err := s.records.GetByID(recordID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	if _, err := s.authz.RequireAdmin(rec.FamilyID, reviewerID); err != nil {
		return nil, err
	}
	if rec.Status.Terminal() {
		return nil, ErrAlreadyReviewed
	}

	switch action {
	case model.ActionApprove:
		if deduction < 0 {
			deduction = 0
		}
		if deduction > rec.OriginalPoints {
			deduction = rec.OriginalPoints
		}
		finalPoints := rec.OriginalPoints - deduction
		rec, err = s.records.Approve(recordID, reviewerID, deduction, deductionReason, reviewNote, finalPoints,
			fmt.Sprintf("%s approved", rec.ChoreName))
	case model.ActionReject:
		if reviewNote == "" {
			return nil, ErrReasonRequired
		}
		rec, err = s.records.Reject(recordID, reviewerID, reviewNote)
	default:
		return nil, ErrInvalidAction
	}

	if errors.Is(err, store.ErrNotPending) {
		return nil, ErrAlreadyReviewed
	}
	if err != nil {
		return nil, fmt.Errorf("review record: %w", err)
	}
	return rec, nil
}

// ListRecords returns a family's records. Members see only their own;
// admins see everyone's.
func (s *Service) ListRecords(familyID, requesterID int64, status model.ReviewStatus) ([]model.ChoreRecord, error) {
	role, err := s.authz.RequireMember(familyID, requesterID)
	if err != nil {
		return nil, err
	}
	filterUser := requesterID
	if role.AtLeast(model.RoleAdmin) {
		filterUser = 0
	}
	recs, err := s.records.List(familyID, status, filterUser)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// GetRecord returns one record, visible to any family member.
func (s *Service) GetRecord(recordID, requesterID int64) (*model.ChoreRecord, error) {
	rec, err := s.records.GetByID(recordID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	if _, err := s.authz.RequireMember(rec.FamilyID, requesterID); err != nil {
		return nil, err
	}
	return rec, nil
}
