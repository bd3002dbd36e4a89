// Package format renders analytics and planning results as markdown for the
// chat advisor, the HTTP API and the CLI.
package format

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Currency used for every amount in summaries.
const Currency = money.USD

// Money formats an amount in major units, e.g. "$1,234.56".
func Money(amount float64) string {
	return moneyIn(decimal.NewFromFloat(amount), Currency)
}

func moneyIn(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor := decimal.NewFromInt(10).Pow(decimal.NewFromInt(int64(cur.Fraction)))
	return money.New(amount.Mul(factor).Round(0).IntPart(), currency).Display()
}

// Percent formats a fraction, e.g. 0.1234 as "12.3%".
func Percent(f float64) string {
	return decimal.NewFromFloat(f*100).StringFixed(1) + "%"
}

// Title turns "real_estate" into "Real Estate". Letters after the first of
// each word keep their case.
func Title(s string) string {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
	// a Caser keeps state, so one per call
	return cases.Title(language.Und, cases.NoLower).String(s)
}

var md = goldmark.New()

// HTML converts markdown to an HTML fragment.
func HTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
