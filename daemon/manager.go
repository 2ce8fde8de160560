// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package daemon runs reconciliation passes, once or for as long as the
// process lives, serializing every pass on a single goroutine.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/xerrors"

	"github.com/linuxdeepin/randrd/display"
	"github.com/linuxdeepin/randrd/display/edid"
)

var logger = log.NewLogger("randrd/daemon")

func SetLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
}

// Backend queries the display server. Every call returns a fresh snapshot.
type Backend interface {
	ListModes() ([]display.Mode, error)
	ListMonitors() ([]*display.MonitorState, error)
}

// ChangeSource reports display changes until it fails.
type ChangeSource interface {
	ListenChanges(notify func(reason string)) error
}

type ConfigLoader func() (display.Config, error)

type Options struct {
	DryRun bool
	// diagnostic lines, one per monitor and pass; defaults to stdout
	Out io.Writer
	// coalescing delay for triggered passes
	Delay time.Duration
}

const (
	defaultDelay = 500 * time.Millisecond
	taskReload   = "reload config"
)

var errStopped = errors.New("manager stopped")

type request struct {
	reload bool
	reply  chan result
}

type result struct {
	outcomes []display.Outcome
	err      error
}

type Manager struct {
	backend Backend
	loader  ConfigLoader
	opts    Options
	// only touched by the goroutine running passes
	cfg display.Config

	requests chan *request
	done     chan struct{}
	delay    *delayHandler
	sigLoop  *dbusutil.SignalLoop
}

func NewManager(backend Backend, cfg display.Config, loader ConfigLoader, opts Options) *Manager {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Delay <= 0 {
		opts.Delay = defaultDelay
	}
	m := &Manager{
		backend:  backend,
		loader:   loader,
		opts:     opts,
		cfg:      cfg,
		requests: make(chan *request),
		done:     make(chan struct{}),
	}
	m.delay = newDelayHandler(opts.Delay, m.handleDelayedTasks)
	return m
}

// RunPass queries the display server and reconciles every monitor once. It
// must not run concurrently with another pass; in daemon mode only Run calls
// it. The error is only set when the display server could not be queried.
func (m *Manager) RunPass() ([]display.Outcome, error) {
	catalog, err := m.backend.ListModes()
	if err != nil {
		return nil, xerrors.Errorf("failed to list modes: %w", err)
	}
	monitors, err := m.backend.ListMonitors()
	if err != nil {
		return nil, xerrors.Errorf("failed to list monitors: %w", err)
	}
	logger.Debugf("pass: %d modes, %d monitors, %d configured", len(catalog), len(monitors), len(m.cfg))
	logIdentities(monitors)

	outcomes := display.Reconcile(m.cfg, monitors, catalog,
		display.ReconcileOptions{DryRun: m.opts.DryRun})
	for _, outcome := range outcomes {
		fmt.Fprintln(m.opts.Out, outcome.String())
	}
	return outcomes, nil
}

func logIdentities(monitors []*display.MonitorState) {
	for _, monitor := range monitors {
		for _, output := range monitor.Outputs {
			if len(output.EDID) == 0 {
				continue
			}
			id, err := edid.Parse(output.Name, output.EDID)
			if err != nil {
				logger.Debugf("monitor %s output %s: parse edid failed: %v", monitor.Name, output.Name, err)
				continue
			}
			logger.Debugf("monitor %s output %s: %v, uuid %s", monitor.Name, output.Name, id, id.UUID)
		}
	}
}

func (m *Manager) reloadConfig() error {
	if m.loader == nil {
		return errors.New("no config file to reload")
	}
	cfg, err := m.loader()
	if err != nil {
		return err
	}
	m.cfg = cfg
	logger.Infof("config reloaded, %d monitors", len(cfg))
	return nil
}

// Run serves pass requests until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.done)
	defer m.delay.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-m.requests:
			res := m.serve(req)
			if req.reply != nil {
				req.reply <- res
			}
		}
	}
}

func (m *Manager) serve(req *request) result {
	var res result
	if req.reload {
		err := m.reloadConfig()
		if err != nil {
			logger.Warning("reload config failed, keep the previous one:", err)
			res.err = err
			return res
		}
	}
	res.outcomes, res.err = m.RunPass()
	if res.err != nil {
		logger.Warning("pass failed:", res.err)
	}
	return res
}

// Trigger schedules a pass. Triggers arriving before it starts are merged.
func (m *Manager) Trigger(reason string) {
	logger.Debug("trigger:", reason)
	m.delay.AddTask(reason)
}

// TriggerReload schedules a config reload followed by a pass.
func (m *Manager) TriggerReload() {
	m.Trigger(taskReload)
}

func (m *Manager) handleDelayedTasks(names []string) {
	logger.Debug("delayed tasks:", names)
	req := &request{}
	for _, name := range names {
		if name == taskReload {
			req.reload = true
		}
	}
	select {
	case m.requests <- req:
	case <-m.done:
	}
}

// Reconcile runs a pass as soon as possible and waits for its outcomes.
func (m *Manager) Reconcile() ([]display.Outcome, error) {
	return m.do(&request{})
}

// ReloadConfig reloads the config and runs a pass with it.
func (m *Manager) ReloadConfig() ([]display.Outcome, error) {
	return m.do(&request{reload: true})
}

func (m *Manager) do(req *request) ([]display.Outcome, error) {
	req.reply = make(chan result, 1)
	select {
	case m.requests <- req:
	case <-m.done:
		return nil, errStopped
	}
	select {
	case res := <-req.reply:
		return res.outcomes, res.err
	case <-m.done:
		return nil, errStopped
	}
}

func outcomeLines(outcomes []display.Outcome) []string {
	lines := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		lines = append(lines, outcome.String())
	}
	return lines
}
