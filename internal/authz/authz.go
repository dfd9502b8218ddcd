// Package authz answers "may this user do that in this family". Every
// workflow service consults it before touching state.
package authz

import (
	"fmt"

	"github.com/fzheng/homepoints/internal/fault"
	"github.com/fzheng/homepoints/internal/model"
	"github.com/fzheng/homepoints/internal/store"
)

var (
	ErrNotMember       = fault.New(fault.Authorization, "not a member of this family")
	ErrAdminRequired   = fault.New(fault.Authorization, "admin role required")
	ErrCreatorRequired = fault.New(fault.Authorization, "creator role required")
)

type Service struct {
	families *store.FamilyStore
}

func NewService(families *store.FamilyStore) *Service {
	return &Service{families: families}
}

// RoleOf returns the user's role in the family, or ErrNotMember.
func (s *Service) RoleOf(familyID, userID int64) (model.Role, error) {
	m, err := s.families.GetMember(familyID, userID)
	if err != nil {
		return "", fmt.Errorf("look up member: %w", err)
	}
	if m == nil {
		return "", ErrNotMember
	}
	return m.Role, nil
}

// RequireMember verifies membership and returns the role.
func (s *Service) RequireMember(familyID, userID int64) (model.Role, error) {
	return s.RoleOf(familyID, userID)
}

// RequireAdmin verifies the user holds admin or creator authority.
func (s *Service) RequireAdmin(familyID, userID int64) (model.Role, error) {
	role, err := s.RoleOf(familyID, userID)
	if err != nil {
		return "", err
	}
	if !role.AtLeast(model.RoleAdmin) {
		return "", ErrAdminRequired
	}
	return role, nil
}

// RequireCreator verifies the user is the family's creator.
func (s *Service) RequireCreator(familyID, userID int64) (model.Role, error) {
	role, err := s.RoleOf(familyID, userID)
	if err != nil {
		return "", err
	}
	if role != model.RoleCreator {
		return "", ErrCreatorRequired
	}
	return role, nil
}
