package domain

import (
	"fmt"
	"time"
)

// Period units accepted by create and renew commands.
const (
	PeriodUnitDay   = "d"
	PeriodUnitMonth = "m"
	PeriodUnitYear  = "y"
)

// allowedPeriods lists the registration periods the registry sells,
// per unit. Anything else is a policy-range error.
var allowedPeriods = map[string][]int{
	PeriodUnitDay:   {365, 730, 1095},
	PeriodUnitMonth: {12, 24, 36},
	PeriodUnitYear:  {1, 2, 3},
}

// ValidatePeriod checks a period value and unit against registry policy.
func ValidatePeriod(period int, unit string) error {
	allowed, ok := allowedPeriods[unit]
	if !ok {
		return fmt.Errorf("unknown period unit %q", unit)
	}
	for _, v := range allowed {
		if v == period {
			return nil
		}
	}
	return fmt.Errorf("period %d%s out of range, allowed %v", period, unit, allowed)
}

// PeriodEnd returns the expiry resulting from adding the period to from.
// Month and year arithmetic follows calendar semantics, days are exact.
func PeriodEnd(from time.Time, period int, unit string) time.Time {
	switch unit {
	case PeriodUnitDay:
		return from.AddDate(0, 0, period)
	case PeriodUnitMonth:
		return from.AddDate(0, period, 0)
	default:
		return from.AddDate(period, 0, 0)
	}
}
