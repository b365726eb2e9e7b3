package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/shopspring/decimal"
)

// SplitAmount divides total into n whole-cent parts. Every part but the last is total/n truncated to
// cents and the last takes what is left, so the parts always add up to total.
func SplitAmount(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	part := total.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	parts := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		parts[i] = part
	}
	parts[n-1] = total.Sub(part.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts
}

// AddMonths moves t forward by whole calendar months. When the target month is shorter than t's day
// the result lands on that month's last day.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dateOnly keeps the calendar date of t at midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// buildSchedule lays out one pending payment per month starting on start. Each due date is computed
// from start, never from the previous payment, so a clamped February does not drag March back.
func buildSchedule(installmentID uuid.UUID, total decimal.Decimal, n int, start, createdAt time.Time) []*models.InstallmentPayment {
	amounts := SplitAmount(total, n)
	payments := make([]*models.InstallmentPayment, n)
	for k := range amounts {
		payments[k] = &models.InstallmentPayment{
			ID:            uuid.New(),
			InstallmentID: installmentID,
			PaymentNumber: k + 1,
			Amount:        amounts[k],
			DueDate:       AddMonths(start, k),
			Status:        models.PaymentPending,
			CreatedAt:     createdAt,
		}
	}
	return payments
}
