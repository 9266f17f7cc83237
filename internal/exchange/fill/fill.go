// Package fill implements the polling state machine that turns an
// asynchronous, eventually-consistent remote order into a synchronous fill
// result. Adapters supply a fetch function that reads the native order record
// and derives filled quantity and average price from exchange-specific fields.
package fill

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPollInterval is the pause between polls when none is configured.
const DefaultPollInterval = 500 * time.Millisecond

// Confidence states how trustworthy the numeric fields of a Snapshot are.
type Confidence string

const (
	// ConfidenceExact means filled and average price were parsed from the
	// expected response fields.
	ConfidenceExact Confidence = "exact"
	// ConfidenceUnknown means the response could not be parsed into numbers;
	// zero values mean "no information", not "zero filled".
	ConfidenceUnknown Confidence = "unknown"
)

// Snapshot is one observation of a remote order.
type Snapshot struct {
	// Filled is the executed quantity in base units, zero if unknown.
	Filled decimal.Decimal
	// AvgPrice is the average fill price, zero if unknown.
	AvgPrice decimal.Decimal
	// Status is the exchange-native status string.
	Status string
	// Confidence qualifies the numeric fields.
	Confidence Confidence
	// Raw is the native order record as returned by the exchange.
	Raw json.RawMessage
}

// filled reports whether the snapshot shows confirmed fill progress.
func (s Snapshot) filled() bool {
	return s.Filled.IsPositive() && s.AvgPrice.IsPositive()
}

// FetchFunc reads the current order state. An error is treated as a
// transient poll failure: it never aborts the loop, the previous snapshot is
// kept and polling continues until the deadline.
type FetchFunc func(ctx context.Context) (Snapshot, error)

// Options controls a single Wait call.
type Options struct {
	// MaxWait bounds the total time spent polling. Zero means a single poll
	// with no sleep.
	MaxWait time.Duration
	// PollInterval is the pause between polls. Zero means DefaultPollInterval.
	PollInterval time.Duration
	// TerminalStatuses are the exchange-native statuses, compared
	// case-insensitively as substrings, from which no further fill progress
	// is expected.
	TerminalStatuses []string
	// ReturnOnPartial terminates as soon as filled > 0 and avg price > 0,
	// even when the native status says the order is still open. This mirrors
	// the historical behavior; set it to false to poll partial fills through
	// to a terminal status or the deadline.
	ReturnOnPartial bool
}

// interval returns the effective poll interval.
func (o Options) interval() time.Duration {
	if o.PollInterval > 0 {
		return o.PollInterval
	}
	return DefaultPollInterval
}

// Terminal reports whether status matches the configured terminal set.
func (o Options) Terminal(status string) bool {
	if status == "" {
		return false
	}
	lower := strings.ToLower(status)
	for _, t := range o.TerminalStatuses {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// Wait polls fetch until the order fills, reaches a terminal status, or the
// deadline passes. It always returns the last snapshot observed, even on
// timeout; the caller decides what a timed-out partial means. The only error
// returned is the context's, so that an external cancel is distinguishable
// from an ordinary deadline return.
func Wait(ctx context.Context, fetch FetchFunc, opts Options) (Snapshot, error) {
	deadline := time.Now().Add(opts.MaxWait)
	last := Snapshot{Confidence: ConfidenceUnknown}

	for {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		snap, err := fetch(ctx)
		if err == nil {
			last = snap
		}

		if opts.ReturnOnPartial && last.filled() {
			return last, nil
		}
		if opts.Terminal(last.Status) {
			return last, nil
		}
		if !time.Now().Before(deadline) {
			return last, nil
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(opts.interval()):
		}
	}
}
