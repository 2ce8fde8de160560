// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package display

import (
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/linuxdeepin/go-lib/log"
)

type OutcomeKind uint8

const (
	OutcomeUnconfigured OutcomeKind = iota
	OutcomeSkipped
	OutcomeNoChange
	OutcomePlanned
	OutcomeApplied
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeUnconfigured:
		return "unconfigured"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNoChange:
		return "no change"
	case OutcomePlanned:
		return "planned"
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(k))
	}
}

// Outcome is the terminal state of one monitor in a pass.
type Outcome struct {
	Monitor string
	Kind    OutcomeKind
	Diff    Diff
	Err     error
}

// String returns the diagnostic line printed for the monitor.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeUnconfigured:
		return fmt.Sprintf("Skipping unconfigured monitor: %s", o.Monitor)
	case OutcomeSkipped:
		return fmt.Sprintf("Skipping monitor %s: %v", o.Monitor, skipReason(o.Err))
	case OutcomeNoChange:
		return fmt.Sprintf("Monitor %s already matches its configuration", o.Monitor)
	case OutcomePlanned:
		return fmt.Sprintf("Monitor %s needs update: %v", o.Monitor, o.Diff)
	case OutcomeApplied:
		return fmt.Sprintf("Updated monitor %s: %v", o.Monitor, o.Diff)
	case OutcomeFailed:
		return fmt.Sprintf("Failed to update monitor %s %v: %v", o.Monitor, o.Diff, o.Err)
	}
	return fmt.Sprintf("Monitor %s: %v", o.Monitor, o.Kind)
}

func skipReason(err error) string {
	var diffErr *DiffError
	if errors.As(err, &diffErr) {
		if diffErr.Detail == "" {
			return diffErr.Err.Error()
		}
		return diffErr.Err.Error() + ": " + diffErr.Detail
	}
	if err == nil {
		return "unknown reason"
	}
	return err.Error()
}

type ReconcileOptions struct {
	// DryRun reports OutcomePlanned instead of applying non empty diffs.
	DryRun bool
}

var errNoControl = errors.New("output is not controllable")

// Reconcile computes and applies the diff of every monitor. Monitors are
// handled independently, a failure never stops the pass.
func Reconcile(cfg Config, monitors []*MonitorState, catalog []Mode, opts ReconcileOptions) []Outcome {
	outcomes := make([]Outcome, 0, len(monitors))
	for _, monitor := range monitors {
		outcome := reconcileMonitor(cfg, monitor, catalog, opts)
		logger.Debugf("monitor %s outcome: %v", monitor.Name, outcome.Kind)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func reconcileMonitor(cfg Config, monitor *MonitorState, catalog []Mode, opts ReconcileOptions) Outcome {
	outcome := Outcome{Monitor: monitor.Name}
	spec, ok := cfg[monitor.Name]
	if !ok || spec == nil {
		outcome.Kind = OutcomeUnconfigured
		return outcome
	}

	diff, err := ComputeDiff(spec, monitor, catalog)
	if err != nil {
		outcome.Kind = OutcomeSkipped
		outcome.Err = err
		return outcome
	}
	outcome.Diff = diff
	if diff.IsEmpty() {
		outcome.Kind = OutcomeNoChange
		return outcome
	}
	if logger.GetLogLevel() == log.LevelDebug {
		logger.Debug("diff:", spew.Sdump(diff))
	}

	if opts.DryRun {
		outcome.Kind = OutcomePlanned
		return outcome
	}

	out := monitor.Outputs[0].Control
	if out == nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = errNoControl
		return outcome
	}
	err = ApplyDiff(out, diff)
	if err != nil {
		logger.Warningf("apply diff to monitor %s failed: %v", monitor.Name, err)
		outcome.Kind = OutcomeFailed
		outcome.Err = err
		return outcome
	}
	outcome.Kind = OutcomeApplied
	return outcome
}
