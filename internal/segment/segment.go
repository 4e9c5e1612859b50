// Package segment splits classified records into the DC and Store views and
// restricts them to a day window.
package segment

import (
	"fmt"
	"strings"

	"delivery-shift-report/internal/delivery"
	"delivery-shift-report/internal/window"
)

// MatchMode is how the customer column is compared with the target value.
type MatchMode string

const (
	Exact    MatchMode = "exact"
	Contains MatchMode = "contains"
)

// CustomerRule selects the customer whose orders are reported.
type CustomerRule struct {
	Mode  MatchMode
	Value string
}

// ParseMatchMode accepts "exact" or "contains"; empty means Contains.
func ParseMatchMode(value string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", Contains:
		return Contains, nil
	case Exact:
		return Exact, nil
	default:
		return "", fmt.Errorf("unknown customer match mode: %s", value)
	}
}

// Match reports whether customer satisfies the rule. A blank customer never
// matches.
func (r CustomerRule) Match(customer string) bool {
	if customer == "" {
		return false
	}
	if r.Mode == Exact {
		return customer == r.Value
	}
	return strings.Contains(customer, r.Value)
}

// Split returns the DC view (pickup hub == hub) and the Store view (any
// other hub) of the customer's records. Filters on columns the table does
// not carry are skipped.
func Split(table delivery.Table, records []delivery.Classified, rule CustomerRule, hub string) (dc, store []delivery.Classified) {
	for _, r := range records {
		if table.HasCustomer && !rule.Match(r.Customer) {
			continue
		}
		if !table.HasPickupHub {
			dc = append(dc, r)
			store = append(store, r)
			continue
		}
		if r.PickupHub == hub {
			dc = append(dc, r)
		} else {
			store = append(store, r)
		}
	}
	return dc, store
}

// Restrict keeps records whose pickup date falls inside w. Records without
// a pickup date are dropped.
func Restrict(records []delivery.Classified, w window.DayWindow) []delivery.Classified {
	var out []delivery.Classified
	for _, r := range records {
		if w.Contains(r.PickedDate) {
			out = append(out, r)
		}
	}
	return out
}
