package monitor

import (
	"testing"
	"time"

	"github.com/rewired-gh/oisentry/internal/history"
	"github.com/rewired-gh/oisentry/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultThresholds = Thresholds{UpPct: 0.5, DownPct: 0.5, SyncPct: 0.5, TotalSwing: 2_000_000}

// windowOf builds a store holding readings in order, as the monitor would
// after appending the last one.
func windowOf(readings ...models.Reading) *history.Store {
	s := history.New(360)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range readings {
		s.Append(models.Tick{Time: start.Add(time.Duration(i) * time.Minute), Binance: r.Binance, Bybit: r.Bybit})
	}
	return s
}

func categories(eval models.Evaluation) []models.Category {
	out := make([]models.Category, 0, len(eval.Alerts))
	for _, a := range eval.Alerts {
		out = append(out, a.Category)
	}
	return out
}

func TestClassify_SeesawBinanceUp(t *testing.T) {
	prev := models.Reading{Binance: 1_000_000, Bybit: 1_000_000}
	cur := models.Reading{Binance: 1_006_000, Bybit: 994_000}

	eval := Classify(cur, prev, windowOf(prev, cur), defaultThresholds)

	assert.InDelta(t, 0.6, eval.DeltaBinancePct, 1e-9)
	assert.InDelta(t, -0.6, eval.DeltaBybitPct, 1e-9)
	assert.Equal(t, 0.0, eval.TotalSwing)
	require.Equal(t, []models.Category{models.Seesaw}, categories(eval))
	assert.Equal(t, "Binance↑ / Bybit↓", eval.Alerts[0].Description)
}

func TestClassify_SeesawBybitUp(t *testing.T) {
	prev := models.Reading{Binance: 1_000_000, Bybit: 1_000_000}
	cur := models.Reading{Binance: 994_000, Bybit: 1_006_000}

	eval := Classify(cur, prev, windowOf(prev, cur), defaultThresholds)

	require.Equal(t, []models.Category{models.Seesaw}, categories(eval))
	assert.Equal(t, "Bybit↑ / Binance↓", eval.Alerts[0].Description)
}

func TestClassify_SeesawRespectsSeparateThresholds(t *testing.T) {
	prev := models.Reading{Binance: 1_000_000, Bybit: 1_000_000}
	cur := models.Reading{Binance: 1_006_000, Bybit: 997_000}

	th := defaultThresholds
	eval := Classify(cur, prev, windowOf(prev, cur), th)
	assert.Empty(t, eval.Alerts, "bybit fell only 0.3 pct, below the 0.5 pct down threshold")

	th.DownPct = 0.25
	eval = Classify(cur, prev, windowOf(prev, cur), th)
	assert.Equal(t, []models.Category{models.Seesaw}, categories(eval))
}

func TestClassify_SyncPump(t *testing.T) {
	prev := models.Reading{Binance: 1_000_000, Bybit: 1_000_000}
	cur := models.Reading{Binance: 1_010_000, Bybit: 1_010_000}

	eval := Classify(cur, prev, windowOf(prev, cur), defaultThresholds)

	assert.InDelta(t, 1.0, eval.DeltaBinancePct, 1e-9)
	assert.InDelta(t, 1.0, eval.DeltaBybitPct, 1e-9)
	require.Equal(t, []models.Category{models.SyncPump}, categories(eval))
	assert.Equal(t, "Both OI increasing", eval.Alerts[0].Description)
}

func TestClassify_SyncFlush(t *testing.T) {
	prev := models.Reading{Binance: 1_000_000, Bybit: 1_000_000}
	cur := models.Reading{Binance: 990_000, Bybit: 990_000}

	eval := Classify(cur, prev, windowOf(prev, cur), defaultThresholds)

	require.Equal(t, []models.Category{models.SyncFlush}, categories(eval))
	assert.Equal(t, "Both OI decreasing", eval.Alerts[0].Description)
}

func TestClassify_TotalSwingIndependentOfPercentages(t *testing.T) {
	prev := models.Reading{Binance: 1_000_000_000, Bybit: 1_000_000_000}
	cur := models.Reading{Binance: 1_001_250_000, Bybit: 1_001_250_000}

	eval := Classify(cur, prev, windowOf(prev, cur), defaultThresholds)

	assert.Equal(t, 2_500_000.0, eval.TotalSwing)
	assert.Less(t, eval.DeltaBinancePct, defaultThresholds.SyncPct)
	require.Equal(t, []models.Category{models.TotalSwing}, categories(eval))
	assert.Equal(t, "|Δ(B+Y)| ≥ 2,000,000.00", eval.Alerts[0].Description)
}

func TestClassify_TotalSwingIsAbsolute(t *testing.T) {
	prev := models.Reading{Binance: 1_001_250_000, Bybit: 1_001_250_000}
	cur := models.Reading{Binance: 1_000_000_000, Bybit: 1_000_000_000}

	eval := Classify(cur, prev, windowOf(prev, cur), defaultThresholds)

	assert.Equal(t, 2_500_000.0, eval.TotalSwing)
	assert.Equal(t, []models.Category{models.TotalSwing}, categories(eval))
}

func TestClassify_MultipleAlertsInRuleOrder(t *testing.T) {
	prev := models.Reading{Binance: 500_000_000, Bybit: 500_000_000}
	cur := models.Reading{Binance: 510_000_000, Bybit: 510_000_000}

	eval := Classify(cur, prev, windowOf(prev, cur), defaultThresholds)

	assert.Equal(t, []models.Category{models.SyncPump, models.TotalSwing}, categories(eval))
}

func TestClassify_ZeroThresholdsFireEveryRuleInOrder(t *testing.T) {
	r := models.Reading{Binance: 1_000, Bybit: 2_000}

	eval := Classify(r, r, windowOf(r, r), Thresholds{})

	assert.Equal(t,
		[]models.Category{models.Seesaw, models.SyncPump, models.SyncFlush, models.TotalSwing},
		categories(eval))
	assert.Equal(t, "Binance↑ / Bybit↓", eval.Alerts[0].Description)
}

func TestClassify_ZeroPreviousValue(t *testing.T) {
	prev := models.Reading{Binance: 0, Bybit: 1_000_000}
	cur := models.Reading{Binance: 5_000, Bybit: 1_000_000}

	eval := Classify(cur, prev, windowOf(prev, cur), defaultThresholds)

	assert.Equal(t, 0.0, eval.DeltaBinancePct)
	assert.Empty(t, eval.Alerts)
}

func TestClassify_ZScoresUseOwnWindow(t *testing.T) {
	readings := []models.Reading{
		{Binance: 100, Bybit: 50},
		{Binance: 102, Bybit: 50},
		{Binance: 98, Bybit: 50},
		{Binance: 110, Bybit: 50},
	}
	window := windowOf(readings...)
	cur, prev := readings[3], readings[2]

	eval := Classify(cur, prev, window, defaultThresholds)

	mean, std := RollingStats([]float64{100, 102, 98, 110})
	assert.InDelta(t, (110-mean)/std, eval.ZBinance, 1e-12)
	assert.Equal(t, 0.0, eval.ZBybit, "flat bybit window yields zero z-score")
}

func TestClassify_NoMovementNoAlerts(t *testing.T) {
	r := models.Reading{Binance: 81_000, Bybit: 54_000}
	eval := Classify(r, r, windowOf(r, r), defaultThresholds)
	assert.False(t, eval.Fired())
}
