package monitor

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/rewired-gh/oisentry/internal/history"
	"github.com/rewired-gh/oisentry/internal/models"
)

// Thresholds configure the alert rules. The first three are percentages,
// TotalSwing is an absolute contract quantity.
type Thresholds struct {
	UpPct      float64
	DownPct    float64
	SyncPct    float64
	TotalSwing float64
}

const (
	directionBinanceUp = "Binance↑ / Bybit↓"
	directionBybitUp   = "Bybit↑ / Binance↓"
)

// Classify compares current against previous and against the statistics of
// window, which already contains current. It has no side effects.
// Alerts are returned in rule order: Seesaw, Sync Pump, Sync Flush, Total Swing.
func Classify(current, previous models.Reading, window *history.Store, th Thresholds) models.Evaluation {
	dBin := PctChange(current.Binance, previous.Binance)
	dByb := PctChange(current.Bybit, previous.Bybit)

	meanBin, stdBin := RollingStats(window.WindowValues(history.Binance))
	meanByb, stdByb := RollingStats(window.WindowValues(history.Bybit))

	eval := models.Evaluation{
		DeltaBinancePct: dBin,
		DeltaBybitPct:   dByb,
		ZBinance:        ZScore(current.Binance, meanBin, stdBin),
		ZBybit:          ZScore(current.Bybit, meanByb, stdByb),
		TotalSwing:      math.Abs(current.Total() - previous.Total()),
	}

	binanceUp := dBin >= th.UpPct && dByb <= -th.DownPct
	bybitUp := dByb >= th.UpPct && dBin <= -th.DownPct
	if binanceUp || bybitUp {
		side := directionBybitUp
		if binanceUp {
			side = directionBinanceUp
		}
		eval.Alerts = append(eval.Alerts, models.Alert{Category: models.Seesaw, Description: side})
	}

	if dBin >= th.SyncPct && dByb >= th.SyncPct {
		eval.Alerts = append(eval.Alerts, models.Alert{Category: models.SyncPump, Description: "Both OI increasing"})
	}

	if dBin <= -th.SyncPct && dByb <= -th.SyncPct {
		eval.Alerts = append(eval.Alerts, models.Alert{Category: models.SyncFlush, Description: "Both OI decreasing"})
	}

	if eval.TotalSwing >= th.TotalSwing {
		eval.Alerts = append(eval.Alerts, models.Alert{
			Category:    models.TotalSwing,
			Description: fmt.Sprintf("|Δ(B+Y)| ≥ %s", humanize.FormatFloat("#,###.##", th.TotalSwing)),
		})
	}

	return eval
}
