package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is a family member's authority level. Roles form a total order:
// creator > admin > member. Each family has exactly one creator.
type Role string

const (
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
	RoleCreator Role = "creator"
)

var roleRank = map[Role]int{
	RoleMember:  1,
	RoleAdmin:   2,
	RoleCreator: 3,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r carries at least the authority of other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

type Family struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	InviteCode  string          `json:"invite_code"`
	PointsValue decimal.Decimal `json:"points_value"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type FamilyMember struct {
	ID       int64     `json:"id"`
	FamilyID int64     `json:"family_id"`
	UserID   int64     `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
