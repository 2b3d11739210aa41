package pivot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// EmptyValue labels the group of records whose group field is nil or missing.
const EmptyValue = "(Empty)"

// DefaultDateLayout is the en-US short date, e.g. 1/15/2024.
const DefaultDateLayout = "1/2/2006"

// inputDateLayouts are tried in order when a date field holds a string.
var inputDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// formatter renders discriminant values for group nodes.
type formatter struct {
	dateLayout string
	loc        *time.Location
}

func newFormatter(layout string, loc *time.Location) formatter {
	if layout == "" {
		layout = DefaultDateLayout
	}
	if loc == nil {
		loc = time.Local
	}
	return formatter{dateLayout: layout, loc: loc}
}

// Discriminant formats the value of field for grouping and display.
func (f formatter) Discriminant(field string, v any) string {
	if v == nil {
		return EmptyValue
	}
	switch {
	case IsDateField(field):
		if s, ok := f.formatDate(v); ok {
			return s
		}
		return naturalString(v)
	case IsStatusField(field):
		return capitalize(naturalString(v))
	default:
		return naturalString(v)
	}
}

// IsDateField reports whether a field name follows the date naming
// convention. "date" must stand as its own word: a prefix in any case
// (date, dateCreated, Date_due), a camel-case "Date" word (orderDate,
// dueDateUTC) or a "_date" segment. Names ending in "At" or "_at" count too.
func IsDateField(field string) bool {
	lower := strings.ToLower(field)
	switch {
	case strings.HasPrefix(lower, "date"):
		return true
	case strings.Contains(field, "Date"), strings.Contains(lower, "_date"):
		return true
	}
	return strings.HasSuffix(field, "At") || strings.HasSuffix(lower, "_at")
}

// IsStatusField reports whether a field name contains "status" in any case.
func IsStatusField(field string) bool {
	return strings.Contains(strings.ToLower(field), "status")
}

func (f formatter) formatDate(v any) (string, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "", false
		}
		return t.In(f.loc).Format(f.dateLayout), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return "", false
		}
		return t.In(f.loc).Format(f.dateLayout), true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range inputDateLayouts {
			parsed, err := time.ParseInLocation(layout, s, f.loc)
			if err == nil {
				return parsed.In(f.loc).Format(f.dateLayout), true
			}
		}
	}
	return "", false
}

// naturalString renders a value the way it would print on its own:
// whole floats without decimals, decimals in canonical form.
func naturalString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
