package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/fzheng/homepoints/internal/fault"
	"github.com/fzheng/homepoints/internal/model"
	"github.com/shopspring/decimal"
)

// Period selects the ranking window.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

var ErrInvalidPeriod = fault.New(fault.Validation, "unknown ranking period")

// periodStart returns the window's inclusive start, or the zero time for
// all-time. Weeks start Monday 00:00 UTC, months on the 1st 00:00 UTC.
func periodStart(p Period, now time.Time) (time.Time, error) {
	now = now.UTC()
	switch p {
	case PeriodAll, "":
		return time.Time{}, nil
	case PeriodWeek:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		day := now.AddDate(0, 0, -daysSinceMonday)
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), nil
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, ErrInvalidPeriod
	}
}

// Ranking returns the family leaderboard for the period, every member
// included even at zero points. Ties break by join date, then member id,
// so the ordering is total and stable across reads.
func (s *Service) Ranking(familyID, requesterID int64, period Period) ([]model.RankEntry, error) {
	if _, err := s.authz.RequireMember(familyID, requesterID); err != nil {
		return nil, err
	}
	return s.rank(familyID, period)
}

func (s *Service) rank(familyID int64, period Period) ([]model.RankEntry, error) {
	since, err := periodStart(period, time.Now())
	if err != nil {
		return nil, err
	}

	members, err := s.families.ListMembers(familyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	sums, err := s.points.MemberPointSums(familyID, since)
	if err != nil {
		return nil, fmt.Errorf("sum points: %w", err)
	}
	family, err := s.families.GetByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}

	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	names, err := s.users.Names(ids)
	if err != nil {
		return nil, fmt.Errorf("resolve names: %w", err)
	}

	// Members arrive ordered by join date then id; a stable sort on points
	// preserves that order within ties.
	entries := make([]model.RankEntry, len(members))
	for i, m := range members {
		points := sums[m.UserID]
		entries[i] = model.RankEntry{
			UserID:   m.UserID,
			UserName: names[m.UserID],
			Points:   points,
			Value:    family.PointsValue.Mul(decimalFromInt(points)),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
