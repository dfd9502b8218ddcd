package store

import (
	"testing"
	"time"

	"github.com/fzheng/homepoints/internal/model"
	"github.com/shopspring/decimal"
)

func TestPointsTotalsExcludeAdjust(t *testing.T) {
	ts := newTestDB(t)
	u, f := ts.seedFamily(t, "alice@example.com", "Alice")

	if _, err := ts.points.Append(f.ID, u.ID, 100, model.TxEarn, "chores"); err != nil {
		t.Fatalf("append earn: %v", err)
	}
	if _, err := ts.points.Append(f.ID, u.ID, 30, model.TxRedeem, "candy"); err != nil {
		t.Fatalf("append redeem: %v", err)
	}
	if _, err := ts.points.Append(f.ID, u.ID, 999, model.TxAdjust, "audit note"); err != nil {
		t.Fatalf("append adjust: %v", err)
	}

	earned, redeemed, err := ts.points.Totals(f.ID, u.ID)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if earned != 100 || redeemed != 30 {
		t.Errorf("totals = %d/%d, want 100/30 (adjust excluded)", earned, redeemed)
	}
}

func TestRedemptionRequestApprove(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)

	ts.points.Append(f.ID, kid.ID, 100, model.TxEarn, "chores")
	req, err := ts.points.CreateRequest(f.ID, kid.ID, 40, decimal.RequireFromString("4.00"), "lego set")
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if req.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", req.Status)
	}

	got, err := ts.points.ApproveRequest(req.ID, admin.ID)
	if err != nil {
		t.Fatalf("approve request: %v", err)
	}
	if got.Status != model.StatusApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}

	earned, redeemed, _ := ts.points.Totals(f.ID, kid.ID)
	if earned-redeemed != 60 {
		t.Errorf("balance = %d, want 60", earned-redeemed)
	}

	// Re-approval must not double-redeem.
	if _, err := ts.points.ApproveRequest(req.ID, admin.ID); err != ErrNotPending {
		t.Errorf("second approve: err = %v, want ErrNotPending", err)
	}
	_, redeemed, _ = ts.points.Totals(f.ID, kid.ID)
	if redeemed != 40 {
		t.Errorf("redeemed = %d, want 40 (single entry)", redeemed)
	}
}

func TestRedemptionRequestApproveRechecksBalance(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)

	ts.points.Append(f.ID, kid.ID, 50, model.TxEarn, "chores")
	req, err := ts.points.CreateRequest(f.ID, kid.ID, 40, decimal.RequireFromString("4.00"), "lego set")
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	// Balance drains between submission and review.
	if _, err := ts.points.RedeemDirect(f.ID, kid.ID, 30, "spent at the fair"); err != nil {
		t.Fatalf("redeem direct: %v", err)
	}

	if _, err := ts.points.ApproveRequest(req.ID, admin.ID); err != ErrInsufficientPoints {
		t.Errorf("approve with drained balance: err = %v, want ErrInsufficientPoints", err)
	}

	// The request stays pending so it can be rejected or retried later.
	got, _ := ts.points.GetRequest(req.ID)
	if got.Status != model.StatusPending {
		t.Errorf("status after failed approve = %q, want pending", got.Status)
	}
}

func TestRedemptionRequestReject(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)

	ts.points.Append(f.ID, kid.ID, 100, model.TxEarn, "chores")
	req, _ := ts.points.CreateRequest(f.ID, kid.ID, 40, decimal.RequireFromString("4.00"), "lego set")

	got, err := ts.points.RejectRequest(req.ID, admin.ID, "too expensive")
	if err != nil {
		t.Fatalf("reject request: %v", err)
	}
	if got.Status != model.StatusRejected {
		t.Errorf("status = %q, want rejected", got.Status)
	}
	if got.RejectReason != "too expensive" {
		t.Errorf("reject reason = %q", got.RejectReason)
	}

	// No ledger entry on rejection.
	_, redeemed, _ := ts.points.Totals(f.ID, kid.ID)
	if redeemed != 0 {
		t.Errorf("redeemed = %d, want 0", redeemed)
	}
}

func TestRedeemDirectInsufficient(t *testing.T) {
	ts := newTestDB(t)
	u, f := ts.seedFamily(t, "alice@example.com", "Alice")

	ts.points.Append(f.ID, u.ID, 10, model.TxEarn, "chores")
	if _, err := ts.points.RedeemDirect(f.ID, u.ID, 11, "too much"); err != ErrInsufficientPoints {
		t.Errorf("err = %v, want ErrInsufficientPoints", err)
	}

	// Exactly the full balance is allowed.
	if _, err := ts.points.RedeemDirect(f.ID, u.ID, 10, "all of it"); err != nil {
		t.Fatalf("redeem full balance: %v", err)
	}
	earned, redeemed, _ := ts.points.Totals(f.ID, u.ID)
	if earned-redeemed != 0 {
		t.Errorf("balance = %d, want 0", earned-redeemed)
	}
}

func TestSumPendingRequestPoints(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)

	ts.points.Append(f.ID, kid.ID, 100, model.TxEarn, "chores")
	ts.points.CreateRequest(f.ID, kid.ID, 20, decimal.RequireFromString("2.00"), "a")
	r2, _ := ts.points.CreateRequest(f.ID, kid.ID, 30, decimal.RequireFromString("3.00"), "b")

	sum, err := ts.points.SumPendingRequestPoints(f.ID, kid.ID)
	if err != nil {
		t.Fatalf("sum pending: %v", err)
	}
	if sum != 50 {
		t.Errorf("pending sum = %d, want 50", sum)
	}

	// Settled requests stop counting.
	if _, err := ts.points.ApproveRequest(r2.ID, admin.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	sum, _ = ts.points.SumPendingRequestPoints(f.ID, kid.ID)
	if sum != 20 {
		t.Errorf("pending sum after approval = %d, want 20", sum)
	}
}

func TestMemberPointSums(t *testing.T) {
	ts := newTestDB(t)
	admin, f := ts.seedFamily(t, "alice@example.com", "Alice")
	kid := ts.seedMember(t, f.ID, "bob@example.com", model.RoleMember)

	ts.points.Append(f.ID, admin.ID, 50, model.TxEarn, "chores")
	ts.points.Append(f.ID, kid.ID, 80, model.TxEarn, "chores")
	ts.points.Append(f.ID, kid.ID, 30, model.TxRedeem, "candy")
	ts.points.Append(f.ID, kid.ID, 7, model.TxAdjust, "note")

	sums, err := ts.points.MemberPointSums(f.ID, time.Time{})
	if err != nil {
		t.Fatalf("member sums: %v", err)
	}
	if sums[admin.ID] != 50 {
		t.Errorf("admin sum = %d, want 50", sums[admin.ID])
	}
	if sums[kid.ID] != 50 {
		t.Errorf("kid sum = %d, want 50 (80 earned - 30 redeemed, adjust ignored)", sums[kid.ID])
	}
}
