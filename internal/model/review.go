package model

// ReviewStatus is the state of a reviewable item. Pending is the only
// non-terminal state: once approved or rejected an item never changes again.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ReviewAction is a reviewer's decision on a pending item.
type ReviewAction string

const (
	ActionApprove ReviewAction = "approve"
	ActionReject  ReviewAction = "reject"
)

func (a ReviewAction) Valid() bool {
	return a == ActionApprove || a == ActionReject
}
