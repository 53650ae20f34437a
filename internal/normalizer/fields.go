package normalizer

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"eligibility/pkg/utils"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Inline annotations appended to values that could not be normalized.
const (
	PhoneAnnotation = "*(Invalid Phone Number)"
	DOBAnnotation   = "*(Invalid DOB)"
)

// DateLayout is the canonical date of birth format.
const DateLayout = "2006-01-02"

// MinBirthYear is the earliest year accepted for a date of birth.
const MinBirthYear = 1900

var nonDigitPattern = regexp.MustCompile(`\D`)

// FieldResult is the outcome of normalizing a field that can be flagged.
// When Invalid is set, Value holds the raw input followed by an annotation.
type FieldResult struct {
	Value   string
	Invalid bool
}

// NormalizeEmail trims and lowercases an email address. It does not validate it.
func NormalizeEmail(value string) string {
	if utils.IsBlank(value) {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeName upper-cases the first letter of every whitespace-separated
// token and lower-cases the rest.
func NormalizeName(value string) string {
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)

	var sb strings.Builder

	sb.Grow(len(value))

	tokenStart := true

	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			sb.WriteRune(r)

			tokenStart = true
		case tokenStart:
			sb.WriteString(upper.String(string(r)))

			tokenStart = false
		default:
			sb.WriteString(lower.String(string(r)))
		}
	}

	return sb.String()
}

// FormatPhone formats a North American number as DDD-DDD-DDDD.
// Ten digits, or eleven with a leading 1, are accepted; punctuation is ignored.
func FormatPhone(value string) FieldResult {
	if utils.IsBlank(value) {
		return FieldResult{}
	}

	digits := nonDigitPattern.ReplaceAllString(value, "")

	switch {
	case len(digits) == 10:
		return FieldResult{Value: formatTenDigits(digits)}
	case len(digits) == 11 && digits[0] == '1':
		return FieldResult{Value: formatTenDigits(digits[1:])}
	default:
		return FieldResult{Value: value + PhoneAnnotation, Invalid: true}
	}
}

func formatTenDigits(digits string) string {
	return digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
}

// ParseDate parses a date of birth and returns it as YYYY-MM-DD.
func ParseDate(value string) FieldResult {
	return ParseDateAt(value, time.Now())
}

// ParseDateAt is ParseDate with an explicit reference time for the year range
// check. Years outside [MinBirthYear, now.Year()+1] are rejected.
//
// Ambiguous numeric dates are read month first; when that cannot be a real
// date the day-first reading is tried. Dash and slash separators are
// equivalent. A leading weekday is ignored. Values carrying anything besides
// a year, a month and a day (trailing text, a time, epoch seconds) are
// rejected rather than truncated.
func ParseDateAt(value string, now time.Time) FieldResult {
	if utils.IsBlank(value) {
		return FieldResult{}
	}

	invalid := FieldResult{Value: value + DOBAnnotation, Invalid: true}

	candidate := prepareDate(value)
	if allDigitsPattern.MatchString(candidate) && len(candidate) != len("20060102") {
		return invalid
	}

	opts := []dateparse.ParserOption{
		dateparse.PreferMonthFirst(true),
		dateparse.RetryAmbiguousDateWithSwap(true),
	}

	layout, err := dateparse.ParseFormat(candidate, opts...)
	if err != nil || !isDateOnlyLayout(layout) {
		return invalid
	}

	parsed, err := dateparse.ParseIn(candidate, time.UTC, opts...)
	if err != nil {
		return invalid
	}

	if parsed.Year() < MinBirthYear || parsed.Year() > now.Year()+1 {
		return invalid
	}

	if !isCalendarDate(parsed.Year(), parsed.Month(), parsed.Day()) {
		return invalid
	}

	return FieldResult{Value: parsed.Format(DateLayout)}
}

var (
	allDigitsPattern    = regexp.MustCompile(`^\d+$`)
	leadingWeekday      = regexp.MustCompile(`(?i)^(?:mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)(?:day|nesday|sday|urday)?\.?,?\s+`)
	numericDashedDate   = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{2}|\d{4})$`)
	layoutTokenPattern  = regexp.MustCompile(`_?\d+|[A-Za-z]+`)
	layoutSeparatorOnly = regexp.MustCompile(`^[\s,./-]*$`)
)

// prepareDate trims the value, drops a leading weekday and rewrites
// d-m-y dashes as slashes so both separators share one parse path.
func prepareDate(value string) string {
	s := strings.TrimSpace(value)
	s = leadingWeekday.ReplaceAllString(s, "")

	return numericDashedDate.ReplaceAllString(s, "$1/$2/$3")
}

// isDateOnlyLayout reports whether a layout returned by dateparse holds
// exactly one year, one month and one day and nothing else but separators.
// Text dateparse could not interpret stays in the layout verbatim.
func isDateOnlyLayout(layout string) bool {
	if !layoutSeparatorOnly.MatchString(layoutTokenPattern.ReplaceAllString(layout, "")) {
		return false
	}

	var years, months, days int

	for _, token := range layoutTokenPattern.FindAllString(layout, -1) {
		switch token {
		case "2006", "06":
			years++
		case "January", "Jan", "01", "1":
			months++
		case "02", "2", "_2":
			days++
		case "20060102":
			years++
			months++
			days++
		default:
			return false
		}
	}

	return years == 1 && months == 1 && days == 1
}

// isCalendarDate reports whether y-m-d survives time.Date without rolling over.
func isCalendarDate(y int, m time.Month, d int) bool {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	return t.Year() == y && t.Month() == m && t.Day() == d
}
