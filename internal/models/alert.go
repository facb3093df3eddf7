package models

import "time"

// Category classifies a tick's joint movement.
type Category int

const (
	Seesaw Category = iota
	SyncPump
	SyncFlush
	TotalSwing
)

func (c Category) String() string {
	switch c {
	case Seesaw:
		return "Seesaw"
	case SyncPump:
		return "Sync Pump"
	case SyncFlush:
		return "Sync Flush"
	case TotalSwing:
		return "Total Swing"
	default:
		return "Unknown"
	}
}

// Badge is the category label used in notifications.
func (c Category) Badge() string {
	switch c {
	case Seesaw:
		return "🟨 Seesaw"
	case SyncPump:
		return "🟩 Sync Pump"
	case SyncFlush:
		return "🟥 Sync Flush"
	case TotalSwing:
		return "🟦 Total Swing"
	default:
		return c.String()
	}
}

// Alert is a single fired rule. Alerts are never persisted.
type Alert struct {
	Category    Category
	Description string
}

// Evaluation holds everything the classifier derived for one tick.
type Evaluation struct {
	DeltaBinancePct float64
	DeltaBybitPct   float64
	ZBinance        float64
	ZBybit          float64
	TotalSwing      float64
	Alerts          []Alert
}

// Fired reports whether any rule fired.
func (e Evaluation) Fired() bool {
	return len(e.Alerts) > 0
}

// Report is what notifiers receive for a tick with alerts.
type Report struct {
	CycleID    string
	Time       time.Time
	Current    Reading
	Previous   Reading
	Evaluation Evaluation
}
