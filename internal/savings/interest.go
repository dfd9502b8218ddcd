package savings

import (
	"time"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)
var daysPerYear = decimal.NewFromInt(365)

// Quote is a projected interest settlement. It is a pure computation over
// an account snapshot; nothing is persisted until the quote is applied.
type Quote struct {
	Days       int64
	Interest   decimal.Decimal
	NewBalance decimal.Decimal
}

// QuoteInterest compounds daily at rate/365 over the whole days elapsed
// between the last settlement date and today. Times are truncated to
// dates first, so settling twice in one day yields zero days. The new
// balance is rounded to cents and the interest is the rounded difference.
func QuoteInterest(balance, annualRate decimal.Decimal, lastInterestDate, today time.Time) Quote {
	days := wholeDaysBetween(lastInterestDate, today)
	if days <= 0 || balance.Sign() <= 0 || annualRate.Sign() <= 0 {
		return Quote{Days: days, Interest: decimal.Zero, NewBalance: balance}
	}

	dailyFactor := one.Add(annualRate.Div(daysPerYear))
	newBalance := balance.Mul(dailyFactor.Pow(decimal.NewFromInt(days))).Round(2)
	return Quote{
		Days:       days,
		Interest:   newBalance.Sub(balance),
		NewBalance: newBalance,
	}
}

func wholeDaysBetween(from, to time.Time) int64 {
	from = truncateToDate(from)
	to = truncateToDate(to)
	return int64(to.Sub(from).Hours() / 24)
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
