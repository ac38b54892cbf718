package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type Status string

const (
	Status_Start           Status = "start"
	Status_NormalDay       Status = "normal-day"
	Status_PreRebalance    Status = "pre-rebalance"
	Status_RebalanceInit   Status = "rebalance-init"
	Status_RebalanceTarget Status = "rebalance-target"
	Status_Rebalanced      Status = "rebalanced"
)

func NewStatus(s string) (*Status, error) {
	status := Status(s)
	switch status {
	case Status_Start, Status_NormalDay, Status_PreRebalance,
		Status_RebalanceInit, Status_RebalanceTarget, Status_Rebalanced:
		return &status, nil
	}
	return nil, fmt.Errorf("unknown portfolio status %s", s)
}

// Settled reports whether portfolios with this status hold the
// investment at the end of the day (as opposed to intermediate
// rebalance targets).
func (s Status) Settled() bool {
	return s == Status_Start || s == Status_NormalDay || s == Status_Rebalanced
}

type Snapshot struct {
	Portfolio Portfolio
	Status    Status
}

type BacktestResult struct {
	RunID     uuid.UUID
	Snapshots []Snapshot
}

// Settled returns the last settled snapshot of each day in order.
func (r BacktestResult) Settled() []Snapshot {
	out := []Snapshot{}
	for _, s := range r.Snapshots {
		if !s.Status.Settled() {
			continue
		}
		if len(out) > 0 && out[len(out)-1].Portfolio.Date.Equal(s.Portfolio.Date) {
			out[len(out)-1] = s
			continue
		}
		out = append(out, s)
	}
	return out
}
