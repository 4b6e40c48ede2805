package analytics

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/domain/shared"
)

// ErrUnknownSegment is returned for a segment name no profile emits.
var ErrUnknownSegment = shared.NewDomainError("UNKNOWN_SEGMENT", "Unknown RFM segment")

var currencySymbols = map[string]string{
	"BRL": "R$",
	"USD": "US$",
	"EUR": "€",
}

// Formatter renders report values for display in a locale.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// NewFormatter creates a formatter for a BCP 47 locale such as "pt-BR".
func NewFormatter(locale string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	unit, _ := currency.FromTag(tag)
	symbol, ok := currencySymbols[unit.String()]
	if !ok {
		symbol = unit.String()
	}
	return &Formatter{printer: message.NewPrinter(tag), symbol: symbol}, nil
}

// Currency formats an amount with two decimals, e.g. "R$ 1.234,56".
func (f *Formatter) Currency(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + f.symbol + " " + f.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// Percent formats a percentage value (12.5 → "12,5%"). Nil is undefined and
// renders as "-".
func (f *Formatter) Percent(v *float64, decimals int) string {
	if v == nil {
		return "-"
	}
	return f.printer.Sprint(number.Decimal(*v, number.Scale(decimals))) + "%"
}

// Integer formats a count with grouping separators.
func (f *Formatter) Integer(n int64) string {
	return f.printer.Sprint(number.Decimal(n))
}

// Month formats a month as "01/2024".
func (f *Formatter) Month(t time.Time) string {
	return t.Format("01/2006")
}

// Fold lowercases s and strips diacritics so labels typed without accents
// still match ("Salao" matches "Salão").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return cases.Fold().String(out)
}

// ParseSegments resolves segment identifiers or display labels, ignoring case
// and accents.
func ParseSegments(values []string) ([]analytics.Segment, error) {
	known := append(analytics.SegmentsTenRule.Segments(), analytics.SegmentsSixRule.Segments()...)
	var out []analytics.Segment
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		seg, ok := analytics.ParseSegment(v)
		if !ok {
			key := Fold(v)
			for _, k := range known {
				if Fold(string(k)) == key || Fold(k.Label()) == key {
					seg, ok = k, true
					break
				}
			}
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSegment, v)
		}
		out = append(out, seg)
	}
	return out, nil
}
