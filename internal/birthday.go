package internal

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ErrInvalidBirthday is returned for fragments that are not a real dd-mm day.
var ErrInvalidBirthday = errors.New("invalid birthday fragment")

var birthdayPattern = regexp.MustCompile(`^(\d{2})-(\d{2})$`)

// UpcomingBirthday is a client with the next occurrence of their birthday.
type UpcomingBirthday struct {
	Client         Client
	NextOccurrence time.Time
	DaysUntil      int
}

// ParseBirthdayFragment validates a "dd-mm" fragment and returns its day and month.
func ParseBirthdayFragment(fragment string) (day int, month time.Month, err error) {
	m := birthdayPattern.FindStringSubmatch(strings.TrimSpace(fragment))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidBirthday, fragment)
	}
	day, _ = strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm < 1 || mm > 12 {
		return 0, 0, fmt.Errorf("%w: month %d", ErrInvalidBirthday, mm)
	}
	month = time.Month(mm)
	// Checked against a leap year so 29-02 stays valid
	if day < 1 || day > daysIn(2024, month) {
		return 0, 0, fmt.Errorf("%w: day %d of month %d", ErrInvalidBirthday, day, mm)
	}
	return day, month, nil
}

// NextOccurrence projects a dd-mm fragment onto today's year, moving to the next
// year when that day has already passed. A birthday today is today.
func NextOccurrence(fragment string, today time.Time) (time.Time, error) {
	day, month, err := ParseBirthdayFragment(fragment)
	if err != nil {
		return time.Time{}, err
	}
	today = Midnight(today)
	next := projectBirthday(today.Year(), month, day, today.Location())
	if next.Before(today) {
		next = projectBirthday(today.Year()+1, month, day, today.Location())
	}
	return next, nil
}

// projectBirthday places day/month in year; 29 Feb is celebrated on 28 Feb in non-leap years.
func projectBirthday(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// UpcomingBirthdays returns clients with a valid birthday fragment, ordered by next
// occurrence (then by name). windowDays > 0 limits the result to that many days ahead.
func UpcomingBirthdays(clients []Client, today time.Time, windowDays int) []UpcomingBirthday {
	today = Midnight(today)

	withDOB := lo.Filter(clients, func(c Client, _ int) bool {
		return birthdayPattern.MatchString(strings.TrimSpace(c.DOBFragment))
	})

	var result []UpcomingBirthday
	for _, c := range withDOB {
		next, err := NextOccurrence(c.DOBFragment, today)
		if err != nil {
			continue
		}
		until := DaysBetween(today, next)
		if windowDays > 0 && until > windowDays {
			continue
		}
		result = append(result, UpcomingBirthday{Client: c, NextOccurrence: next, DaysUntil: until})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].NextOccurrence.Equal(result[j].NextOccurrence) {
			return result[i].NextOccurrence.Before(result[j].NextOccurrence)
		}
		return strings.ToLower(result[i].Client.Name) < strings.ToLower(result[j].Client.Name)
	})
	return result
}
