package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rewired-gh/oisentry/internal/exchange"
	"github.com/rewired-gh/oisentry/internal/history"
	"github.com/rewired-gh/oisentry/internal/logger"
	"github.com/rewired-gh/oisentry/internal/metrics"
	"github.com/rewired-gh/oisentry/internal/models"
	"github.com/samber/lo"
)

// Source yields one open-interest figure per call.
type Source interface {
	Name() string
	FetchOpenInterest(ctx context.Context) (float64, error)
}

// Notifier delivers a report for a tick on which at least one alert fired.
type Notifier interface {
	Notify(ctx context.Context, report models.Report) error
}

// Persister stores the full history, replacing what was there.
type Persister interface {
	Save(ctx context.Context, ticks []models.Tick) error
}

type Config struct {
	PollInterval  time.Duration
	KeepPoints    int
	MaxIterations int
	Thresholds    Thresholds
}

func DefaultConfig() Config {
	return Config{
		PollInterval:  time.Minute,
		KeepPoints:    360,
		MaxIterations: 0,
		Thresholds: Thresholds{
			UpPct:      0.5,
			DownPct:    0.5,
			SyncPct:    0.5,
			TotalSwing: 2_000_000,
		},
	}
}

// Phase is the monitor's lifecycle state.
type Phase int

const (
	Warmup Phase = iota
	Steady
	Draining
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Warmup:
		return "warmup"
	case Steady:
		return "steady"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Outcome describes what a single cycle did.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeWarmup  Outcome = "warmup"
	OutcomeSteady  Outcome = "steady"
)

type CycleResult struct {
	ID         string
	Outcome    Outcome
	Tick       models.Tick
	Evaluation models.Evaluation
}

// Monitor owns the history buffer and baseline and drives the polling loop.
// All state is touched only from the goroutine calling RunCycle or Run.
type Monitor struct {
	binance   Source
	bybit     Source
	store     *history.Store
	persister Persister
	notifier  Notifier
	config    Config

	baseline *models.Reading
	phase    Phase
	now      func() time.Time
}

type Option func(m *Monitor)

func WithNotifier(n Notifier) Option {
	return func(m *Monitor) {
		m.notifier = n
	}
}

func WithPersister(p Persister) Option {
	return func(m *Monitor) {
		m.persister = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// New creates a monitor over store. A non-empty store supplies the baseline,
// so a restarted process resumes in Steady.
func New(binance, bybit Source, store *history.Store, config Config, opts ...Option) *Monitor {
	m := &Monitor{
		binance: binance,
		bybit:   bybit,
		store:   store,
		config:  config,
		phase:   Warmup,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if last, ok := store.Last(); ok {
		r := last.Reading()
		m.baseline = &r
		m.phase = Steady
		logger.Info("Restored %d ticks; baseline binance=%s bybit=%s", store.Len(), formatOI(r.Binance), formatOI(r.Bybit))
	}
	return m
}

func (m *Monitor) Phase() Phase { return m.phase }

// Baseline returns the previous reading, absent during warmup.
func (m *Monitor) Baseline() (models.Reading, bool) {
	if m.baseline == nil {
		return models.Reading{}, false
	}
	return *m.baseline, true
}

// RunCycle performs one tick. Fetches run on a context detached from ctx's
// cancellation so a stop request never leaves a half-applied tick.
func (m *Monitor) RunCycle(ctx context.Context) CycleResult {
	id := uuid.NewString()[:8]
	log := logger.With("cycle", id)
	fetchCtx := context.WithoutCancel(ctx)
	ts := m.now().UTC()

	binOI, binErr := m.binance.FetchOpenInterest(fetchCtx)
	bybOI, bybErr := m.bybit.FetchOpenInterest(fetchCtx)
	if binErr != nil || bybErr != nil {
		for _, err := range []error{binErr, bybErr} {
			recordFetchFailure(err)
			if err != nil {
				log.Warn().Err(err).Msg("Open interest fetch failed")
			}
		}
		log.Debug().Msgf("Skipped due to fetch failure (binance=%s, bybit=%s)",
			formatOptional(binOI, binErr), formatOptional(bybOI, bybErr))
		metrics.Cycles.WithLabelValues(string(OutcomeSkipped)).Inc()
		return CycleResult{ID: id, Outcome: OutcomeSkipped}
	}

	tick := models.Tick{Time: ts, Binance: binOI, Bybit: bybOI}
	current := tick.Reading()
	m.store.Append(tick)
	metrics.OpenInterest.WithLabelValues(m.binance.Name()).Set(binOI)
	metrics.OpenInterest.WithLabelValues(m.bybit.Name()).Set(bybOI)
	metrics.HistoryLength.Set(float64(m.store.Len()))

	if m.baseline == nil {
		log.Debug().Msgf("Warmup: binance=%s, bybit=%s", formatOI(binOI), formatOI(bybOI))
		m.baseline = &current
		m.phase = Steady
		m.persist(fetchCtx)
		metrics.Cycles.WithLabelValues(string(OutcomeWarmup)).Inc()
		return CycleResult{ID: id, Outcome: OutcomeWarmup, Tick: tick}
	}

	previous := *m.baseline
	eval := Classify(current, previous, m.store, m.config.Thresholds)
	metrics.ZScore.WithLabelValues(m.binance.Name()).Set(eval.ZBinance)
	metrics.ZScore.WithLabelValues(m.bybit.Name()).Set(eval.ZBybit)

	log.Debug().Msgf("BIN: %s (%+.2f%%), z=%+.2f | BYB: %s (%+.2f%%), z=%+.2f | ΔTotal=%s",
		formatOI(binOI), eval.DeltaBinancePct, eval.ZBinance,
		formatOI(bybOI), eval.DeltaBybitPct, eval.ZBybit,
		formatOI(eval.TotalSwing))

	if eval.Fired() {
		titles := lo.Map(eval.Alerts, func(a models.Alert, _ int) string {
			metrics.Alerts.WithLabelValues(a.Category.String()).Inc()
			return a.Category.String()
		})
		log.Info().Strs("alerts", titles).Msg("Divergence alerts fired")

		if m.notifier != nil {
			report := models.Report{
				CycleID:    id,
				Time:       ts,
				Current:    current,
				Previous:   previous,
				Evaluation: eval,
			}
			if err := m.notifier.Notify(fetchCtx, report); err != nil {
				log.Error().Err(err).Msg("Failed to deliver alert notification")
			}
		}
	}

	m.baseline = &current
	m.persist(fetchCtx)
	metrics.Cycles.WithLabelValues(string(OutcomeSteady)).Inc()
	return CycleResult{ID: id, Outcome: OutcomeSteady, Tick: tick, Evaluation: eval}
}

// Run polls until ctx is cancelled or MaxIterations cycles have completed,
// then drains. Cancellation is observed only between cycles.
func (m *Monitor) Run(ctx context.Context) {
	logger.Info("Starting OI monitor (interval: %v, keep_points: %d, max_iter: %d, phase: %s)",
		m.config.PollInterval, m.config.KeepPoints, m.config.MaxIterations, m.phase)

	iterations := 0
	for ctx.Err() == nil {
		m.RunCycle(ctx)
		iterations++

		if m.config.MaxIterations > 0 && iterations >= m.config.MaxIterations {
			logger.Info("Reached max iterations (%d)", m.config.MaxIterations)
			break
		}

		timer := time.NewTimer(m.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	m.Shutdown(context.WithoutCancel(ctx))
}

// Shutdown trims history to the retention length and persists it.
func (m *Monitor) Shutdown(ctx context.Context) {
	if m.phase == Stopped {
		return
	}
	m.phase = Draining
	if m.config.KeepPoints > 0 {
		m.store.Trim(m.config.KeepPoints)
	}
	logger.Info("Stopping; persisting %d ticks", m.store.Len())
	m.persist(ctx)
	m.phase = Stopped
}

func (m *Monitor) persist(ctx context.Context) {
	if m.persister == nil {
		return
	}
	if err := m.persister.Save(ctx, m.store.Records()); err != nil {
		logger.Warn("Failed to persist history (%d ticks), restart will lose recent state: %v", m.store.Len(), err)
	}
}

func recordFetchFailure(err error) {
	if err == nil {
		return
	}
	var fe *exchange.FetchError
	if errors.As(err, &fe) {
		metrics.FetchFailures.WithLabelValues(fe.Source, string(fe.Kind)).Inc()
		return
	}
	metrics.FetchFailures.WithLabelValues("unknown", "unknown").Inc()
}

func formatOI(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func formatOptional(v float64, err error) string {
	if err != nil {
		return "n/a"
	}
	return formatOI(v)
}
