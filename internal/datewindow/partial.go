package datewindow

import (
	"regexp"
	"strconv"
	"time"
)

const (
	monthPattern   = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?`
	weekdayPattern = `(mon(?:day)?|tue(?:s(?:day)?)?|wed(?:nesday)?|thu(?:r(?:s(?:day)?)?)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?)\.?`
	ordinal        = `(?:st|nd|rd|th)?`
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// partialDate is a date as written, with zero month or year when absent.
type partialDate struct {
	day   int
	month time.Month
	year  int
}

var (
	leadingWeekdayRe = regexp.MustCompile(`^` + weekdayPattern + `,? `)

	// "15", "15th", "15 march", "15th of march 2025", "15 mar, 2025"
	dayMonthRe = regexp.MustCompile(`^(\d{1,2})` + ordinal + `(?: (?:of )?` + monthPattern + `(?:,? (\d{4}))?)?$`)
	// "march 15", "march 15th, 2025"
	monthDayRe = regexp.MustCompile(`^` + monthPattern + ` (\d{1,2})` + ordinal + `(?:,? (\d{4}))?$`)
	// "15/03", "15/03/2025", "15.03.25"
	slashDateRe = regexp.MustCompile(`^(\d{1,2})[/.](\d{1,2})(?:[/.](\d{4}|\d{2}))?$`)
	// "15-03-2025", "15-03-25"
	dashDateRe = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4}|\d{2})$`)
)

// parsePartial parses a single date as written, without resolving the year.
// Numeric dates are day first.
func parsePartial(s string) (partialDate, bool) {
	if m := leadingWeekdayRe.FindStringSubmatch(s); m != nil {
		s = s[len(m[0]):]
	}

	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		pd := partialDate{day: atoi(m[1])}
		if m[2] != "" {
			pd.month = months[m[2][:3]]
		}
		pd.year = atoi(m[3])
		return pd, pd.valid()
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		pd := partialDate{month: months[m[1][:3]], day: atoi(m[2]), year: atoi(m[3])}
		return pd, pd.valid()
	}
	m := slashDateRe.FindStringSubmatch(s)
	if m == nil {
		m = dashDateRe.FindStringSubmatch(s)
	}
	if m != nil {
		month := atoi(m[2])
		if month < 1 || month > 12 {
			return partialDate{}, false
		}
		pd := partialDate{day: atoi(m[1]), month: time.Month(month), year: expandYear(m[3])}
		return pd, pd.valid()
	}
	return partialDate{}, false
}

func (pd partialDate) valid() bool {
	return pd.day >= 1 && pd.day <= 31
}

// expandYear maps two-digit years into the 2000s.
func expandYear(s string) int {
	y := atoi(s)
	if len(s) == 2 {
		y += 2000
	}
	return y
}

// atoi returns 0 for empty or invalid input.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
