package store

import (
	"testing"

	"github.com/fzheng/homepoints/internal/model"
)

func TestChoreRecordPendingLifecycle(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)
	ct, _ := ts.choreTypes.Create(f.ID, "Dishes", 10)

	rec, err := ts.choreRecords.CreatePending(f.ID, kid.ID, ct.ID, ct.Name, ct.Points, "done after dinner", []string{"img1.jpg"})
	if err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if rec.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", rec.Status)
	}
	if rec.ChoreName != "Dishes" || rec.OriginalPoints != 10 {
		t.Errorf("snapshot = %q/%d, want Dishes/10", rec.ChoreName, rec.OriginalPoints)
	}
	if len(rec.Images) != 1 || rec.Images[0] != "img1.jpg" {
		t.Errorf("images = %v, want [img1.jpg]", rec.Images)
	}

	// No points until review.
	earned, _, err := ts.points.Totals(f.ID, kid.ID)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if earned != 0 {
		t.Errorf("earned before review = %d, want 0", earned)
	}

	got, err := ts.choreRecords.Approve(rec.ID, admin.ID, 2, "missed a pot", "good otherwise", 8, "Dishes approved")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != model.StatusApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
	if got.Deduction != 2 || got.FinalPoints != 8 {
		t.Errorf("deduction/final = %d/%d, want 2/8", got.Deduction, got.FinalPoints)
	}
	if got.ReviewerID == nil || *got.ReviewerID != admin.ID {
		t.Errorf("reviewer = %v, want %d", got.ReviewerID, admin.ID)
	}
	if got.ReviewedAt == nil {
		t.Error("reviewed_at not set")
	}

	earned, _, err = ts.points.Totals(f.ID, kid.ID)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if earned != 8 {
		t.Errorf("earned after approval = %d, want 8", earned)
	}
}

func TestChoreRecordApproveIsOneShot(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)
	ct, _ := ts.choreTypes.Create(f.ID, "Dishes", 10)

	rec, err := ts.choreRecords.CreatePending(f.ID, kid.ID, ct.ID, ct.Name, ct.Points, "", nil)
	if err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if _, err := ts.choreRecords.Approve(rec.ID, admin.ID, 0, "", "", 10, "Dishes approved"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// A second review must not double-credit.
	if _, err := ts.choreRecords.Approve(rec.ID, admin.ID, 0, "", "", 10, "Dishes approved"); err != ErrNotPending {
		t.Errorf("second approve: err = %v, want ErrNotPending", err)
	}
	if _, err := ts.choreRecords.Reject(rec.ID, admin.ID, "changed my mind"); err != ErrNotPending {
		t.Errorf("reject after approve: err = %v, want ErrNotPending", err)
	}

	earned, _, _ := ts.points.Totals(f.ID, kid.ID)
	if earned != 10 {
		t.Errorf("earned = %d, want 10 (single credit)", earned)
	}
}

func TestChoreRecordRejectEarnsNothing(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)
	ct, _ := ts.choreTypes.Create(f.ID, "Dishes", 10)

	rec, _ := ts.choreRecords.CreatePending(f.ID, kid.ID, ct.ID, ct.Name, ct.Points, "", nil)
	got, err := ts.choreRecords.Reject(rec.ID, admin.ID, "not actually done")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != model.StatusRejected {
		t.Errorf("status = %q, want rejected", got.Status)
	}
	if got.ReviewNote != "not actually done" {
		t.Errorf("review note = %q", got.ReviewNote)
	}

	earned, _, _ := ts.points.Totals(f.ID, kid.ID)
	if earned != 0 {
		t.Errorf("earned after reject = %d, want 0", earned)
	}
}

func TestChoreRecordZeroFinalPointsSkipsLedger(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)
	ct, _ := ts.choreTypes.Create(f.ID, "Dishes", 10)

	rec, _ := ts.choreRecords.CreatePending(f.ID, kid.ID, ct.ID, ct.Name, ct.Points, "", nil)
	got, err := ts.choreRecords.Approve(rec.ID, admin.ID, 10, "fully deducted", "", 0, "Dishes approved")
	if err != nil {
		t.Fatalf("approve with full deduction: %v", err)
	}
	if got.FinalPoints != 0 {
		t.Errorf("final points = %d, want 0", got.FinalPoints)
	}

	txs, err := ts.points.ListTransactions(f.ID, kid.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("got %d ledger entries, want 0 for a zero-point approval", len(txs))
	}
}

func TestChoreRecordCreateApproved(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	ct, _ := ts.choreTypes.Create(f.ID, "Dishes", 10)

	rec, err := ts.choreRecords.CreateApproved(f.ID, admin.ID, ct.ID, ct.Name, ct.Points, "", nil, "Dishes completed")
	if err != nil {
		t.Fatalf("create approved: %v", err)
	}
	if rec.Status != model.StatusApproved {
		t.Errorf("status = %q, want approved", rec.Status)
	}
	if rec.FinalPoints != 10 {
		t.Errorf("final points = %d, want 10", rec.FinalPoints)
	}
	if rec.ReviewerID == nil || *rec.ReviewerID != admin.ID {
		t.Errorf("reviewer = %v, want self %d", rec.ReviewerID, admin.ID)
	}

	earned, _, _ := ts.points.Totals(f.ID, admin.ID)
	if earned != 10 {
		t.Errorf("earned = %d, want 10", earned)
	}
}

func TestChoreRecordListFilters(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)
	ct, _ := ts.choreTypes.Create(f.ID, "Dishes", 10)

	r1, _ := ts.choreRecords.CreatePending(f.ID, kid.ID, ct.ID, ct.Name, ct.Points, "", nil)
	ts.choreRecords.CreatePending(f.ID, kid.ID, ct.ID, ct.Name, ct.Points, "", nil)
	ts.choreRecords.CreatePending(f.ID, admin.ID, ct.ID, ct.Name, ct.Points, "", nil)
	if _, err := ts.choreRecords.Approve(r1.ID, admin.ID, 0, "", "", 10, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	all, err := ts.choreRecords.List(f.ID, "", 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d, want 3", len(all))
	}

	pending, err := ts.choreRecords.List(f.ID, model.StatusPending, 0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}

	kids, err := ts.choreRecords.List(f.ID, model.StatusPending, kid.ID)
	if err != nil {
		t.Fatalf("list kid pending: %v", err)
	}
	if len(kids) != 1 {
		t.Errorf("kid pending = %d, want 1", len(kids))
	}
}
