package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rewired-gh/oisentry/internal/models"
)

const discordTimeout = 10 * time.Second

// Discord posts reports to a webhook. Delivery is attempted once.
type Discord struct {
	webhookURL string
	httpClient *http.Client
}

type discordPayload struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

var categoryColors = map[models.Category]int{
	models.Seesaw:     0xF1C40F,
	models.SyncPump:   0x2ECC71,
	models.SyncFlush:  0xE74C3C,
	models.TotalSwing: 0x3498DB,
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: discordTimeout},
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Notify(ctx context.Context, report models.Report) error {
	body, err := json.Marshal(d.payload(report))
	if err != nil {
		return fmt.Errorf("failed to encode discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord returned status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func (d *Discord) payload(r models.Report) discordPayload {
	e := r.Evaluation
	color := 0x95A5A6
	if len(e.Alerts) > 0 {
		color = categoryColors[e.Alerts[0].Category]
	}
	return discordPayload{
		Content: Compose(r),
		Embeds: []discordEmbed{{
			Title:       Title(e.Alerts),
			Description: Details(e.Alerts),
			Color:       color,
			Timestamp:   r.Time.UTC().Format(time.RFC3339),
			Fields: []discordField{
				{Name: "Binance OI", Value: fmt.Sprintf("%s (%+.2f%%) z=%+.2f", formatOI(r.Current.Binance), e.DeltaBinancePct, e.ZBinance), Inline: true},
				{Name: "Bybit OI", Value: fmt.Sprintf("%s (%+.2f%%) z=%+.2f", formatOI(r.Current.Bybit), e.DeltaBybitPct, e.ZBybit), Inline: true},
				{Name: "ΔTotal OI", Value: formatOI(e.TotalSwing), Inline: false},
			},
			Footer: &discordFooter{Text: "cycle " + r.CycleID},
		}},
	}
}
