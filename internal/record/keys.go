package record

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var ErrInvalidMonth = errors.New("invalid month key")

var (
	monthKeyRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dateKeyRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// IsMonthKey reports whether k looks like YYYY-MM and names a real month.
func IsMonthKey(k string) bool {
	if !monthKeyRe.MatchString(k) {
		return false
	}
	_, err := time.Parse("2006-01", k)
	return err == nil
}

// IsDateKey reports whether k looks like YYYY-MM-DD and names a real date.
func IsDateKey(k string) bool {
	if !dateKeyRe.MatchString(k) {
		return false
	}
	_, err := time.Parse("2006-01-02", k)
	return err == nil
}

// MonthBounds returns the first date of month and the first date of the
// following month, both as YYYY-MM-DD.
func MonthBounds(month string) (string, string, error) {
	if !IsMonthKey(month) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	first, _ := time.Parse("2006-01", month)
	return first.Format("2006-01-02"), first.AddDate(0, 1, 0).Format("2006-01-02"), nil
}

// InMonth reports whether date is a valid date key inside month.
func InMonth(date, month string) bool {
	return IsDateKey(date) && date[:7] == month
}
