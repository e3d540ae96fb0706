package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var dateRe = regexp.MustCompile(`^(-?\d+)-(\d{2})-(\d{2})T`)

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Date is the calendar part of an ISO instant
type Date struct {
	Year  int
	Month int
	Day   int
}

// ParseDate reads "YYYY-MM-DDT..." (year may be negative or longer than
// four digits). ok is false for anything else.
func ParseDate(s string) (Date, bool) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return Date{}, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return Date{}, false
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

func (d Date) monthName() string {
	return monthNames[d.Month-1]
}

func (d Date) lastDayOfMonth() int {
	return time.Date(d.Year, time.Month(d.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) String() string {
	return fmt.Sprintf("%d %s %s", d.Day, d.monthName(), formatYear(d.Year))
}

// formatYear renders negative years as "N BC"
func formatYear(year int) string {
	if year < 0 {
		return strconv.Itoa(-year) + " BC"
	}
	return strconv.Itoa(year)
}

// FormatTimespan renders a begin/end pair as a readable date range:
// whole years ("1800", "1800 to 1805"), whole months ("March 1990",
// "March to May 1990") or exact days ("5 to 12 March 1990"). With one
// endpoint missing it renders the other as a single date. It returns ""
// when neither instant parses.
func FormatTimespan(beginISO, endISO string) string {
	begin, okBegin := ParseDate(beginISO)
	end, okEnd := ParseDate(endISO)
	switch {
	case !okBegin && !okEnd:
		return ""
	case !okBegin:
		return end.String()
	case !okEnd:
		return begin.String()
	}

	sameYear := begin.Year == end.Year
	sameMonth := sameYear && begin.Month == end.Month

	// whole years
	if begin.Month == 1 && begin.Day == 1 && end.Month == 12 && end.Day == 31 {
		if sameYear {
			return formatYear(begin.Year)
		}
		return formatYear(begin.Year) + " to " + formatYear(end.Year)
	}

	// whole months
	if begin.Day == 1 && end.Day == end.lastDayOfMonth() {
		switch {
		case sameMonth:
			return begin.monthName() + " " + formatYear(begin.Year)
		case sameYear:
			return begin.monthName() + " to " + end.monthName() + " " + formatYear(begin.Year)
		default:
			return begin.monthName() + " " + formatYear(begin.Year) + " to " + end.monthName() + " " + formatYear(end.Year)
		}
	}

	// exact days; a single day reads "5 to 5 March 1990"
	if sameMonth {
		return fmt.Sprintf("%d to %s", begin.Day, end)
	}
	return begin.String() + " to " + end.String()
}
