package sheet

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"ledgerbot/internal/domain/position"
	"ledgerbot/pkg/errors"
)

// The sheet keeps display strings ("$1,234.56", "12.34%", "08/15/2026");
// the domain keeps numbers. All conversion lives here and only here.

const dateLayout = "01/02/2006"

// Status display values as they appear in the sheet
const (
	statusOpenDisplay            = "Open"
	statusPartiallyClosedDisplay = "Partially Closed"
	statusClosedDisplay          = "Closed"
)

func formatDollars(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	if f < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -f)
	}
	return "$" + humanize.FormatFloat("#,###.##", f)
}

func parseDollars(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrStoreConsistency, "bad dollar value %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func formatPercent(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2) + "%"
}

func parsePercent(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(s), "%")
	if cleaned == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrStoreConsistency, "bad percent value %q", s)
	}
	return d, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrStoreConsistency, "bad date %q", s)
	}
	return t, nil
}

func formatStatus(s position.Status) string {
	switch s {
	case position.StatusOpen:
		return statusOpenDisplay
	case position.StatusPartiallyClosed:
		return statusPartiallyClosedDisplay
	case position.StatusClosed:
		return statusClosedDisplay
	}
	return string(s)
}

func parseStatus(s string) (position.Status, error) {
	switch strings.TrimSpace(s) {
	case statusOpenDisplay:
		return position.StatusOpen, nil
	case statusPartiallyClosedDisplay:
		return position.StatusPartiallyClosed, nil
	case statusClosedDisplay:
		return position.StatusClosed, nil
	}
	return "", errors.Wrapf(errors.ErrStoreConsistency, "bad status %q", s)
}
