// Package notify delivers halt reports to external channels so an
// operator learns about an exhausted retry budget without tailing logs.
package notify

import (
	"context"
	"time"
)

// HaltReport describes a stage that halted after exhausting its retry
// budget. It carries the full internal diagnostics and must only be
// sent to operator-facing channels.
type HaltReport struct {
	Workflow string    `json:"workflow,omitempty"`
	Stage    string    `json:"stage"`
	Producer string    `json:"producer"`
	Attempts int       `json:"attempts"`
	Internal string    `json:"internal"`
	When     time.Time `json:"when"`
}

// Notifier delivers a halt report to one channel.
type Notifier interface {
	NotifyHalt(ctx context.Context, report HaltReport) error
}
