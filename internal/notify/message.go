// Package notify renders divergence reports and delivers them to chat sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rewired-gh/oisentry/internal/models"
	"github.com/samber/lo"
)

// Sink is a single delivery channel.
type Sink interface {
	Name() string
	Notify(ctx context.Context, report models.Report) error
}

// Multi fans a report out to every sink. A failing sink does not stop the
// others; all failures are joined into the returned error.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, report models.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func formatOI(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// Title joins the fired categories, e.g. "🟨 Seesaw / 🟦 Total Swing".
func Title(alerts []models.Alert) string {
	return strings.Join(lo.Map(alerts, func(a models.Alert, _ int) string {
		return a.Category.Badge()
	}), " / ")
}

// Details lists each alert with its description.
func Details(alerts []models.Alert) string {
	return strings.Join(lo.Map(alerts, func(a models.Alert, _ int) string {
		return a.Category.Badge() + " → " + a.Description
	}), " | ")
}

// Compose renders the plain Markdown message shared by webhook sinks.
func Compose(r models.Report) string {
	e := r.Evaluation
	lines := []string{
		fmt.Sprintf("**%s**  `%s`", Title(e.Alerts), r.Time.UTC().Format(time.RFC3339)),
		fmt.Sprintf("Binance OI: **%s**  (%+.2f%%)  z=%+.2f", formatOI(r.Current.Binance), e.DeltaBinancePct, e.ZBinance),
		fmt.Sprintf("Bybit   OI: **%s**  (%+.2f%%)  z=%+.2f", formatOI(r.Current.Bybit), e.DeltaBybitPct, e.ZBybit),
		fmt.Sprintf("ΔTotal OI: %s (contracts)", formatOI(e.TotalSwing)),
		"Details: " + Details(e.Alerts),
	}
	return strings.Join(lines, "\n")
}
