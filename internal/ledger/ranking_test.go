package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/fzheng/homepoints/internal/model"
)

func TestPeriodStart(t *testing.T) {
	// Wednesday 2026-08-19 15:30 UTC.
	now := time.Date(2026, 8, 19, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period Period
		want   time.Time
	}{
		{PeriodAll, time.Time{}},
		{PeriodWeek, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)},
		{PeriodMonth, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := periodStart(tt.period, now)
		if err != nil {
			t.Fatalf("periodStart(%q): %v", tt.period, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("periodStart(%q) = %v, want %v", tt.period, got, tt.want)
		}
	}
}

func TestPeriodStartSundayBelongsToPriorMonday(t *testing.T) {
	// Sunday 2026-08-23: the week still starts Monday the 17th.
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	got, err := periodStart(PeriodWeek, now)
	if err != nil {
		t.Fatalf("periodStart: %v", err)
	}
	want := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPeriodStartMondayIsItsOwnWeek(t *testing.T) {
	now := time.Date(2026, 8, 17, 0, 0, 1, 0, time.UTC)
	got, _ := periodStart(PeriodWeek, now)
	want := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPeriodStartRejectsUnknown(t *testing.T) {
	if _, err := periodStart("fortnight", time.Now()); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("err = %v, want ErrInvalidPeriod", err)
	}
}

func TestRankingOrderAndTies(t *testing.T) {
	fx := setup(t)
	carol := mustUser(t, fx, "carol@example.com", "Carol")

	// kid joined before carol; both end at 50 points. admin has 80.
	fx.svc.Append(fx.family.ID, fx.admin.ID, fx.admin.ID, 80, model.TxEarn, "")
	fx.svc.Append(fx.family.ID, fx.admin.ID, fx.kid.ID, 50, model.TxEarn, "")
	fx.svc.Append(fx.family.ID, fx.admin.ID, carol.ID, 50, model.TxEarn, "")

	entries, err := fx.svc.Ranking(fx.family.ID, fx.kid.ID, PeriodAll)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].UserID != fx.admin.ID || entries[0].Rank != 1 {
		t.Errorf("first = user %d rank %d, want admin rank 1", entries[0].UserID, entries[0].Rank)
	}
	// Tie at 50: the earlier joiner ranks higher.
	if entries[1].UserID != fx.kid.ID {
		t.Errorf("second = user %d, want earlier joiner %d", entries[1].UserID, fx.kid.ID)
	}
	if entries[2].UserID != carol.ID || entries[2].Rank != 3 {
		t.Errorf("third = user %d rank %d, want carol rank 3", entries[2].UserID, entries[2].Rank)
	}
}

func TestRankingIncludesZeroPointMembers(t *testing.T) {
	fx := setup(t)
	fx.svc.Append(fx.family.ID, fx.admin.ID, fx.admin.ID, 10, model.TxEarn, "")

	entries, err := fx.svc.Ranking(fx.family.ID, fx.admin.ID, PeriodAll)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (zero-point member included)", len(entries))
	}
	if entries[1].UserID != fx.kid.ID || entries[1].Points != 0 {
		t.Errorf("last = user %d with %d points, want kid with 0", entries[1].UserID, entries[1].Points)
	}
}

func TestRankingNetsRedemptions(t *testing.T) {
	fx := setup(t)

	fx.svc.Append(fx.family.ID, fx.admin.ID, fx.kid.ID, 100, model.TxEarn, "")
	fx.svc.Append(fx.family.ID, fx.admin.ID, fx.kid.ID, 90, model.TxRedeem, "")
	fx.svc.Append(fx.family.ID, fx.admin.ID, fx.admin.ID, 20, model.TxEarn, "")

	entries, err := fx.svc.Ranking(fx.family.ID, fx.admin.ID, PeriodAll)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if entries[0].UserID != fx.admin.ID {
		t.Errorf("first = user %d, want admin (kid netted down to 10)", entries[0].UserID)
	}
	if entries[1].Points != 10 {
		t.Errorf("kid points = %d, want 10", entries[1].Points)
	}
}
