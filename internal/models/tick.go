// Package models defines the core domain entities: ticks, readings, alerts, and reports.
package models

import (
	"errors"
	"time"
)

// Tick is one paired open-interest observation of both exchanges.
// JSON field names match state files written by earlier releases.
type Tick struct {
	Time    time.Time `json:"ts"`
	Binance float64   `json:"oi_binance"`
	Bybit   float64   `json:"oi_bybit"`
}

// Reading returns the value pair carried by the tick.
func (t Tick) Reading() Reading {
	return Reading{Binance: t.Binance, Bybit: t.Bybit}
}

// Validate checks tick field constraints.
func (t *Tick) Validate() error {
	if t.Time.IsZero() {
		return errors.New("tick timestamp must be set")
	}
	if t.Binance < 0 {
		return errors.New("binance open interest must not be negative")
	}
	if t.Bybit < 0 {
		return errors.New("bybit open interest must not be negative")
	}
	return nil
}

// Reading is a Binance/Bybit open-interest pair without a timestamp.
// The monitor keeps the previous reading as its baseline.
type Reading struct {
	Binance float64
	Bybit   float64
}

// Total returns the combined open interest across both exchanges.
func (r Reading) Total() float64 {
	return r.Binance + r.Bybit
}

// State is the persisted document.
type State struct {
	History []Tick `json:"history"`
}
