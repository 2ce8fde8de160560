// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package display

import (
	"errors"
	"testing"

	"github.com/linuxdeepin/go-lib/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outcomeKinds(outcomes []Outcome) map[string]OutcomeKind {
	result := make(map[string]OutcomeKind, len(outcomes))
	for _, o := range outcomes {
		result[o.Monitor] = o.Kind
	}
	return result
}

func newReconcileFixture() (Config, []*MonitorState, map[string]*fakeOutput) {
	cfg := Config{
		"eDP-1":    {Width: 1920, Height: 1080, RefreshRate: rate(60), Primary: true},
		"DP-1":     {Width: 2560, Height: 1440, RefreshRate: rate(144), X: 1920},
		"DP-2":     {Width: 1920, Height: 1080, RefreshRate: rate(60), X: 4480},
		"HDMI-1":   {Width: 1920, Height: 1080, RefreshRate: rate(75)},
		"HDMI-2":   {Width: 1280, Height: 1024},
		"DP-3":     {Width: 3840, Height: 2160},
		"Virtual1": {Width: 1920, Height: 1080},
	}

	monitors := []*MonitorState{
		// already matching
		newMonitorState("eDP-1", 2, &ControllerState{ID: 1}),
		// needs mode and position
		newMonitorState("DP-1", 6, &ControllerState{ID: 2}),
		// ambiguous: two 60Hz candidates, current is 74.97
		newMonitorState("DP-2", 3, &ControllerState{ID: 3, X: 4480}),
		// mode change rejected by the server
		newMonitorState("HDMI-1", 2, &ControllerState{ID: 4}),
		// no controller
		newMonitorState("HDMI-2", NoMode, nil),
		// no compatible mode
		newMonitorState("DP-3", 2, &ControllerState{ID: 5}),
		// not in config
		newMonitorState("VGA-1", 2, &ControllerState{ID: 6}),
		// two outputs
		{
			Name: "Virtual1",
			Outputs: []*OutputState{
				{ID: 7, Connected: true, CurrentMode: 2, Controller: &ControllerState{ID: 7}},
				{ID: 8, Connected: true, CurrentMode: 2, Controller: &ControllerState{ID: 8}},
			},
		},
	}
	monitors[0].Outputs[0].Primary = true

	outs := make(map[string]*fakeOutput)
	for _, monitor := range monitors {
		outs[monitor.Name] = newFakeOutput(monitor.Outputs[0])
	}
	outs["HDMI-1"].reject = map[Attribute]error{AttrMode: errors.New("BadMatch")}
	return cfg, monitors, outs
}

func Test_Reconcile(t *testing.T) {
	cfg, monitors, outs := newReconcileFixture()

	outcomes := Reconcile(cfg, monitors, testCatalog, ReconcileOptions{})
	require.Len(t, outcomes, len(monitors))
	for i, o := range outcomes {
		assert.Equal(t, monitors[i].Name, o.Monitor)
	}

	assert.Equal(t, map[string]OutcomeKind{
		"eDP-1":    OutcomeNoChange,
		"DP-1":     OutcomeApplied,
		"DP-2":     OutcomeSkipped,
		"HDMI-1":   OutcomeFailed,
		"HDMI-2":   OutcomeSkipped,
		"DP-3":     OutcomeSkipped,
		"VGA-1":    OutcomeUnconfigured,
		"Virtual1": OutcomeSkipped,
	}, outcomeKinds(outcomes))

	assert.ErrorIs(t, outcomes[2].Err, ErrAmbiguousMode)
	assert.ErrorIs(t, outcomes[4].Err, ErrNoController)
	assert.ErrorIs(t, outcomes[5].Err, ErrNoCompatibleMode)
	assert.ErrorIs(t, outcomes[7].Err, ErrUnsupportedTopology)

	assert.Equal(t, []Attribute{AttrPosition, AttrMode}, outs["DP-1"].calls)
	assert.Equal(t, ModeID(5), monitors[1].Outputs[0].CurrentMode)
	assert.Equal(t, []Attribute{AttrMode}, outs["HDMI-1"].calls)
	assert.Empty(t, outs["eDP-1"].calls)
	assert.Empty(t, outs["DP-2"].calls)
	assert.Empty(t, outs["VGA-1"].calls)

	// second pass converges
	outcomes = Reconcile(cfg, monitors, testCatalog, ReconcileOptions{})
	assert.Equal(t, OutcomeNoChange, outcomeKinds(outcomes)["DP-1"])
	assert.Equal(t, OutcomeFailed, outcomeKinds(outcomes)["HDMI-1"])
}

func Test_Reconcile_orderIndependent(t *testing.T) {
	cfg, monitors, _ := newReconcileFixture()
	forward := outcomeKinds(Reconcile(cfg, monitors, testCatalog, ReconcileOptions{DryRun: true}))

	cfg, monitors, _ = newReconcileFixture()
	reversed := make([]*MonitorState, len(monitors))
	for i, monitor := range monitors {
		reversed[len(monitors)-1-i] = monitor
	}
	backward := outcomeKinds(Reconcile(cfg, reversed, testCatalog, ReconcileOptions{DryRun: true}))

	assert.Equal(t, forward, backward)
}

func Test_Reconcile_dryRun(t *testing.T) {
	cfg, monitors, outs := newReconcileFixture()

	outcomes := Reconcile(cfg, monitors, testCatalog, ReconcileOptions{DryRun: true})
	kinds := outcomeKinds(outcomes)
	assert.Equal(t, OutcomePlanned, kinds["DP-1"])
	assert.Equal(t, OutcomePlanned, kinds["HDMI-1"])
	for name, out := range outs {
		assert.Empty(t, out.calls, name)
	}
	require.NotNil(t, outcomes[1].Diff.Mode)
	assert.Equal(t, ModeID(5), outcomes[1].Diff.Mode.ID)
}

func Test_Reconcile_noControl(t *testing.T) {
	state := newMonitorState("DP-1", 1, &ControllerState{ID: 1})
	cfg := Config{"DP-1": {Width: 1920, Height: 1080, X: 5}}

	outcomes := Reconcile(cfg, []*MonitorState{state}, testCatalog, ReconcileOptions{})
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeFailed, outcomes[0].Kind)
}

func Test_Outcome_String(t *testing.T) {
	cfg, monitors, _ := newReconcileFixture()
	outcomes := Reconcile(cfg, monitors, testCatalog, ReconcileOptions{})

	lines := make(map[string]string)
	for _, o := range outcomes {
		lines[o.Monitor] = o.String()
	}
	assert.Equal(t, "Skipping unconfigured monitor: VGA-1", lines["VGA-1"])
	assert.Equal(t, "Monitor eDP-1 already matches its configuration", lines["eDP-1"])
	assert.Equal(t, "Updated monitor DP-1: {pos=1920,0 mode=2560x1440@143.86}", lines["DP-1"])
	assert.Equal(t, "Skipping monitor Virtual1: unsupported topology: 2 outputs", lines["Virtual1"])
	assert.Contains(t, lines["HDMI-1"], "BadMatch")
}

func Test_Reconcile_debugLevel(t *testing.T) {
	level := logger.GetLogLevel()
	defer logger.SetLogLevel(level)

	logger.SetLogLevel(log.LevelInfo)
	cfg, monitors, _ := newReconcileFixture()
	quiet := outcomeKinds(Reconcile(cfg, monitors, testCatalog, ReconcileOptions{}))

	logger.SetLogLevel(log.LevelDebug)
	cfg, monitors, outs := newReconcileFixture()
	verbose := outcomeKinds(Reconcile(cfg, monitors, testCatalog, ReconcileOptions{}))

	assert.Equal(t, quiet, verbose)
	assert.Equal(t, []Attribute{AttrPosition, AttrMode}, outs["DP-1"].calls)
}
