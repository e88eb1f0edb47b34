package reconciliation

import (
	"time"

	"github.com/flexprice/invoicer/internal/types"
)

// itemKey identifies a logical charge across runs.
// Recurring charges match on their covered window, fixed charges on the event that produced them.
type itemKey struct {
	subscriptionID string
	kind           types.InvoiceItemType
	phase          string
	start          string
	end            string
}

func recurringKey(subscriptionID string, start, end time.Time) itemKey {
	return itemKey{
		subscriptionID: subscriptionID,
		kind:           types.InvoiceItemTypeRecurring,
		start:          start.Format(time.DateOnly),
		end:            end.Format(time.DateOnly),
	}
}

func fixedKey(subscriptionID, phase string, start time.Time) itemKey {
	return itemKey{
		subscriptionID: subscriptionID,
		kind:           types.InvoiceItemTypeFixed,
		phase:          phase,
		start:          start.Format(time.DateOnly),
	}
}

func (k itemKey) String() string {
	s := k.subscriptionID + "/" + string(k.kind) + "/" + k.start
	if k.kind == types.InvoiceItemTypeFixed {
		return s + "/" + k.phase
	}
	return s + "/" + k.end
}

func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
