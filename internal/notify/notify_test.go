package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/oisentry/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seesawReport() models.Report {
	return models.Report{
		CycleID:  "1a2b3c4d",
		Time:     time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		Previous: models.Reading{Binance: 1_000_000, Bybit: 1_000_000},
		Current:  models.Reading{Binance: 1_006_000, Bybit: 994_000},
		Evaluation: models.Evaluation{
			DeltaBinancePct: 0.6,
			DeltaBybitPct:   -0.6,
			ZBinance:        1.25,
			ZBybit:          -1.5,
			TotalSwing:      0,
			Alerts: []models.Alert{
				{Category: models.Seesaw, Description: "Binance↑ / Bybit↓"},
				{Category: models.TotalSwing, Description: "|Δ(B+Y)| ≥ 2,000,000.00"},
			},
		},
	}
}

func TestCompose(t *testing.T) {
	msg := Compose(seesawReport())
	lines := strings.Split(msg, "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "**🟨 Seesaw / 🟦 Total Swing**  `2025-06-01T12:30:00Z`", lines[0])
	assert.Equal(t, "Binance OI: **1,006,000.00**  (+0.60%)  z=+1.25", lines[1])
	assert.Equal(t, "Bybit   OI: **994,000.00**  (-0.60%)  z=-1.50", lines[2])
	assert.Equal(t, "ΔTotal OI: 0.00 (contracts)", lines[3])
	assert.Equal(t, "Details: 🟨 Seesaw → Binance↑ / Bybit↓ | 🟦 Total Swing → |Δ(B+Y)| ≥ 2,000,000.00", lines[4])
}

func TestDiscord_Notify(t *testing.T) {
	var got discordPayload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	d := NewDiscord(srv.URL)
	require.NoError(t, d.Notify(context.Background(), seesawReport()))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, Compose(seesawReport()), got.Content)
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "🟨 Seesaw / 🟦 Total Swing", got.Embeds[0].Title)
	assert.Equal(t, 0xF1C40F, got.Embeds[0].Color)
	assert.Equal(t, "cycle 1a2b3c4d", got.Embeds[0].Footer.Text)
	assert.Len(t, got.Embeds[0].Fields, 3)
}

func TestDiscord_NonSuccessStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	err := NewDiscord(srv.URL).Notify(context.Background(), seesawReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, 1, calls, "delivery is not retried")
}

type stubSink struct {
	name  string
	err   error
	calls int
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Notify(ctx context.Context, report models.Report) error {
	s.calls++
	return s.err
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &stubSink{name: "a", err: boom}
	b := &stubSink{name: "b"}

	err := Multi{a, b}.Notify(context.Background(), seesawReport())

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a: boom")
	assert.NoError(t, Multi{b}.Notify(context.Background(), seesawReport()))
	assert.NoError(t, Multi{}.Notify(context.Background(), seesawReport()))
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"Hello_World", "Hello\\_World"},
		{"Test*bold*", "Test\\*bold\\*"},
		{"1,006,000.00", "1,006,000\\.00"},
		{"(+0.60%) z=-1.50", "\\(\\+0\\.60%\\) z\\=\\-1\\.50"},
		{"|Δ(B+Y)|", "\\|Δ\\(B\\+Y\\)\\|"},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := escapeMarkdownV2(tt.input)
			if result != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatTelegram(t *testing.T) {
	msg := formatTelegram(seesawReport())

	assert.True(t, strings.HasPrefix(msg, "🚨 *🟨 Seesaw / 🟦 Total Swing*\n"))
	assert.Contains(t, msg, "📅 2025\\-06\\-01 12:30:00")
	assert.Contains(t, msg, "Binance OI: *1,006,000\\.00* \\(\\+0\\.60%\\) z\\=\\+1\\.25")
	assert.Contains(t, msg, "• 🟨 Seesaw → Binance↑ / Bybit↓")
}

func TestNewTelegram_InvalidChatID(t *testing.T) {
	_, err := NewTelegram("", "not-a-number")
	if err == nil {
		t.Error("Expected error for invalid chat ID, got nil")
	}
}
