// v1
// internal/crop/clock.go
package crop

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate reports a planting date that is out of range or does not
// exist on the calendar.
var ErrInvalidDate = errors.New("invalid planting date")

// ValidateDate checks year/month/day ranges and that the triple names a real
// calendar date (time.Date normalizes Feb 30 to Mar 2, which we reject).
func ValidateDate(year, month, day int) error {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return fmt.Errorf("%w: %04d-%02d-%02d does not exist", ErrInvalidDate, year, month, day)
	}
	return nil
}

// DaysAfterPlanting returns whole days elapsed between the planting date and
// now, clamped to zero for planting dates in the future.
func DaysAfterPlanting(now time.Time, year, month, day int) (int, error) {
	if err := ValidateDate(year, month, day); err != nil {
		return 0, err
	}
	sow := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	days := int(now.Sub(sow).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, nil
}
