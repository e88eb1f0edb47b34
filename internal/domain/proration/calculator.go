package proration

import (
	"context"
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/shopspring/decimal"
)

// NewCalculator creates the day based proration calculator
func NewCalculator() Calculator {
	return &dayBasedCalculator{}
}

// dayBasedCalculator prorates linearly by calendar days, rounding half-up to the currency scale.
type dayBasedCalculator struct{}

func (c *dayBasedCalculator) FixedAmount(price decimal.Decimal, currency string) decimal.Decimal {
	return types.RoundToCurrencyPrecision(price, currency)
}

func (c *dayBasedCalculator) CalculateRecurring(ctx context.Context, params RecurringParams) (*RecurringResult, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	result := &RecurringResult{
		Items:      []RecurringItem{},
		Boundaries: []time.Time{},
	}

	start := toDate(params.WindowStart)
	var end *time.Time
	if params.WindowEnd != nil {
		e := toDate(*params.WindowEnd)
		// zero-length or negative windows owe nothing
		if !e.After(start) {
			return result, nil
		}
		end = &e
	}
	cutoff := toDate(params.Cutoff)

	schedule := newPeriodSchedule(params)
	k := schedule.indexOf(start)

	for {
		periodStart := schedule.start(k)
		periodEnd := schedule.start(k + 1)

		chunkStart := types.MaxTime(periodStart, start)
		chunkEnd := periodEnd
		if end != nil && end.Before(periodEnd) {
			chunkEnd = *end
		}

		billingDate := chunkStart
		if params.BillingMode == types.BillingModeInArrears {
			billingDate = chunkEnd
		}
		if billingDate.After(cutoff) {
			break
		}

		totalDays := daysInPeriod(periodStart, periodEnd)
		days := daysInPeriod(chunkStart, chunkEnd)
		if totalDays <= 0 {
			return nil, ierr.NewError("billing period has no days").
				WithHintf("Billing period %s to %s is empty", periodStart.Format(time.DateOnly), periodEnd.Format(time.DateOnly)).
				Mark(ierr.ErrProration)
		}

		amount := params.Rate
		prorated := days != totalDays
		if prorated {
			amount = params.Rate.Mul(decimal.NewFromInt(int64(days))).Div(decimal.NewFromInt(int64(totalDays)))
		}

		result.Items = append(result.Items, RecurringItem{
			StartDate:   chunkStart,
			EndDate:     chunkEnd,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			BillingDate: billingDate,
			Amount:      types.RoundToCurrencyPrecision(amount, params.Currency),
			Prorated:    prorated,
		})
		if chunkEnd.Equal(periodEnd) {
			result.Boundaries = append(result.Boundaries, periodEnd)
		}

		if end != nil && !periodEnd.Before(*end) {
			break
		}
		k++
	}

	return result, nil
}

// periodSchedule enumerates billing period starts; index 0 is the period containing the alignment date
type periodSchedule struct {
	months    int
	days      int
	bcd       int
	alignment time.Time
}

func newPeriodSchedule(params RecurringParams) *periodSchedule {
	return &periodSchedule{
		months:    params.BillingPeriod.Months(),
		days:      params.BillingPeriod.Days(),
		bcd:       params.BillCycleDay,
		alignment: toDate(params.AlignmentDate),
	}
}

func (s *periodSchedule) start(k int) time.Time {
	if s.months > 0 {
		// clamp from the reference month each time so BCD 31 lands on Feb 28 then Mar 31
		return types.ClampedDate(s.alignment.Year(), s.alignment.Month()+time.Month(k*s.months), s.bcd)
	}
	return types.AddClampedDate(s.alignment, 0, 0, k*s.days)
}

// indexOf returns k such that start(k) <= d < start(k+1)
func (s *periodSchedule) indexOf(d time.Time) int {
	var k int
	if s.months > 0 {
		offset := (d.Year()-s.alignment.Year())*12 + int(d.Month()-s.alignment.Month())
		k = floorDiv(offset, s.months)
	} else {
		k = floorDiv(types.DaysBetween(s.alignment, d), s.days)
	}
	for s.start(k).After(d) {
		k--
	}
	for !s.start(k + 1).After(d) {
		k++
	}
	return k
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// daysInPeriod counts calendar days in [start, end), normalizing to midnight before counting
func daysInPeriod(start, end time.Time) int {
	return types.DaysBetween(start, end)
}

func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func validateParams(params RecurringParams) error {
	details := map[string]any{
		"billing_period": params.BillingPeriod,
		"bill_cycle_day": params.BillCycleDay,
		"billing_mode":   params.BillingMode,
	}

	if err := params.BillingPeriod.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Unknown billing period").
			WithReportableDetails(details).
			Mark(ierr.ErrProration)
	}
	if params.BillingPeriod == types.BILLING_PERIOD_NONE {
		return ierr.NewError("recurring rate without a billing period").
			WithHint("A recurring price requires a billing period").
			WithReportableDetails(details).
			Mark(ierr.ErrProration)
	}
	if params.BillingPeriod.Months() > 0 && (params.BillCycleDay < 1 || params.BillCycleDay > 31) {
		return ierr.NewError("invalid bill cycle day").
			WithHintf("Bill cycle day must be between 1 and 31, got %d", params.BillCycleDay).
			WithReportableDetails(details).
			Mark(ierr.ErrProration)
	}
	if err := params.BillingMode.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Unknown billing mode").
			WithReportableDetails(details).
			Mark(ierr.ErrProration)
	}
	if params.Rate.IsNegative() {
		return ierr.NewError("negative recurring rate").
			WithHint("Recurring rate cannot be negative").
			WithReportableDetails(details).
			Mark(ierr.ErrProration)
	}
	if params.Currency == "" {
		return ierr.NewError("missing currency").
			WithHint("Recurring charges require a currency").
			WithReportableDetails(details).
			Mark(ierr.ErrProration)
	}
	if params.AlignmentDate.IsZero() || toDate(params.WindowStart).Before(toDate(params.AlignmentDate)) {
		return ierr.NewError("charge window starts before the billing alignment date").
			WithHint("Billing alignment date must not be after the charge window").
			WithReportableDetails(details).
			Mark(ierr.ErrProration)
	}
	return nil
}
