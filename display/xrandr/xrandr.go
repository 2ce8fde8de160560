// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package xrandr exposes the X RandR extension as a display server adapter
// for the reconciliation engine.
package xrandr

import (
	"fmt"
	"sync"

	"github.com/linuxdeepin/go-lib/log"
	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/randr"
	"golang.org/x/xerrors"

	"github.com/linuxdeepin/randrd/display"
)

var logger = log.NewLogger("randrd/xrandr")

func SetLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
}

// Conn is a connection to the X server. Queries and mutations are blocking
// round trips and are issued sequentially.
type Conn struct {
	xConn *x.Conn
	root  x.Window

	mu    sync.Mutex
	cfgTs x.Timestamp
	modes []randr.ModeInfo
}

// Open connects to the X server named by $DISPLAY. RandR 1.5 is required
// for monitor objects.
func Open() (*Conn, error) {
	xConn, err := x.NewConn()
	if err != nil {
		return nil, xerrors.Errorf("failed to connect X: %w", err)
	}

	version, err := randr.QueryVersion(xConn, randr.MajorVersion, randr.MinorVersion).Reply(xConn)
	if err != nil {
		xConn.Close()
		return nil, xerrors.Errorf("failed to query randr version: %w", err)
	}
	logger.Debugf("randr version %d.%d", version.ServerMajorVersion, version.ServerMinorVersion)
	if version.ServerMajorVersion < 1 ||
		(version.ServerMajorVersion == 1 && version.ServerMinorVersion < 5) {
		xConn.Close()
		return nil, xerrors.Errorf("randr %d.%d is too old, need 1.5",
			version.ServerMajorVersion, version.ServerMinorVersion)
	}

	c := &Conn{
		xConn: xConn,
		root:  xConn.GetDefaultScreen().Root,
	}
	_, err = c.refreshResources()
	if err != nil {
		xConn.Close()
		return nil, xerrors.Errorf("failed to get screen resources: %w", err)
	}
	return c, nil
}

func (c *Conn) Close() {
	c.xConn.Close()
}

func (c *Conn) refreshResources() (*randr.GetScreenResourcesReply, error) {
	resources, err := randr.GetScreenResources(c.xConn, c.root).Reply(c.xConn)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cfgTs = resources.ConfigTimestamp
	c.modes = resources.Modes
	c.mu.Unlock()
	return resources, nil
}

func (c *Conn) configTimestamp() x.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfgTs
}

func (c *Conn) findModeInfo(id randr.Mode) (randr.ModeInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, info := range c.modes {
		if randr.Mode(info.Id) == id {
			return info, true
		}
	}
	return randr.ModeInfo{}, false
}

// ListModes returns the modes the server advertises for the screen.
func (c *Conn) ListModes() ([]display.Mode, error) {
	resources, err := c.refreshResources()
	if err != nil {
		return nil, xerrors.Errorf("failed to get screen resources: %w", err)
	}
	modes := make([]display.Mode, 0, len(resources.Modes))
	for _, info := range resources.Modes {
		modes = append(modes, toMode(info))
	}
	return modes, nil
}

// ListMonitors returns a fresh snapshot of every RandR monitor with the state
// of its outputs.
func (c *Conn) ListMonitors() ([]*display.MonitorState, error) {
	_, err := c.refreshResources()
	if err != nil {
		return nil, xerrors.Errorf("failed to get screen resources: %w", err)
	}
	primary, err := c.getOutputPrimary()
	if err != nil {
		return nil, xerrors.Errorf("failed to get primary output: %w", err)
	}

	reply, err := randr.GetMonitors(c.xConn, c.root, false).Reply(c.xConn)
	if err != nil {
		return nil, xerrors.Errorf("failed to get monitors: %w", err)
	}

	entries := make([]monitorEntry, 0, len(reply.Monitors))
	for _, info := range reply.Monitors {
		name, err := c.xConn.GetAtomName(info.Name)
		if err != nil {
			logger.Warningf("get monitor name of atom %d failed: %v", info.Name, err)
			continue
		}
		entries = append(entries, monitorEntry{name: name, outputs: info.Outputs})
	}
	return collectMonitors(entries, func(output randr.Output) (*display.OutputState, error) {
		return c.getOutputState(output, primary)
	}), nil
}

type monitorEntry struct {
	name    string
	outputs []randr.Output
}

// collectMonitors queries the outputs of every monitor. A monitor with an
// output that cannot be queried, for example because a hotplug changed the
// configuration meanwhile, is left out of this snapshot.
func collectMonitors(entries []monitorEntry,
	getOutput func(randr.Output) (*display.OutputState, error)) []*display.MonitorState {
	monitors := make([]*display.MonitorState, 0, len(entries))
	for _, entry := range entries {
		monitor := &display.MonitorState{Name: entry.name}
		var err error
		for _, output := range entry.outputs {
			var state *display.OutputState
			state, err = getOutput(output)
			if err != nil {
				break
			}
			monitor.Outputs = append(monitor.Outputs, state)
		}
		if err != nil {
			logger.Warningf("skip monitor %s: failed to get output state: %v", entry.name, err)
			continue
		}
		monitors = append(monitors, monitor)
	}
	return monitors
}

func (c *Conn) getOutputState(output randr.Output, primary randr.Output) (*display.OutputState, error) {
	outputInfo, err := c.getOutputInfo(output)
	if err != nil {
		return nil, err
	}

	state := &display.OutputState{
		ID:        uint32(output),
		Name:      outputInfo.Name,
		Connected: outputInfo.Connection == randr.ConnectionConnected,
		Primary:   output == primary,
		Control:   &outputControl{c: c, output: output},
	}

	state.EDID, err = c.getOutputEdid(output)
	if err != nil {
		logger.Warningf("get output %d edid failed: %v", output, err)
	}

	if outputInfo.Crtc != 0 {
		crtcInfo, err := c.getCrtcInfo(outputInfo.Crtc)
		if err != nil {
			return nil, err
		}
		state.CurrentMode = display.ModeID(crtcInfo.Mode)
		state.Controller = toControllerState(outputInfo.Crtc, crtcInfo)
	}
	return state, nil
}

// GetController returns the current state of a CRTC.
func (c *Conn) GetController(id uint32) (*display.ControllerState, error) {
	crtcInfo, err := c.getCrtcInfo(randr.Crtc(id))
	if err != nil {
		return nil, xerrors.Errorf("failed to get crtc %d info: %w", id, err)
	}
	return toControllerState(randr.Crtc(id), crtcInfo), nil
}

func toControllerState(crtc randr.Crtc, crtcInfo *randr.GetCrtcInfoReply) *display.ControllerState {
	rotation, _ := parseCrtcRotation(crtcInfo.Rotation)
	return &display.ControllerState{
		ID:       uint32(crtc),
		Rotation: fromRandrRotation(rotation),
		X:        int32(crtcInfo.X),
		Y:        int32(crtcInfo.Y),
	}
}

func (c *Conn) getOutputInfo(output randr.Output) (*randr.GetOutputInfoReply, error) {
	outputInfo, err := randr.GetOutputInfo(c.xConn, output, c.configTimestamp()).Reply(c.xConn)
	if err != nil {
		return nil, err
	}
	if outputInfo.Status != randr.StatusSuccess {
		return nil, fmt.Errorf("status is not success, is %v", outputInfo.Status)
	}
	return outputInfo, nil
}

func (c *Conn) getCrtcInfo(crtc randr.Crtc) (*randr.GetCrtcInfoReply, error) {
	crtcInfo, err := randr.GetCrtcInfo(c.xConn, crtc, c.configTimestamp()).Reply(c.xConn)
	if err != nil {
		return nil, err
	}
	if crtcInfo.Status != randr.StatusSuccess {
		return nil, fmt.Errorf("status is not success, is %v", crtcInfo.Status)
	}
	return crtcInfo, nil
}

func (c *Conn) getOutputEdid(output randr.Output) ([]byte, error) {
	atomEDID, err := c.xConn.GetAtom("EDID")
	if err != nil {
		return nil, err
	}

	reply, err := randr.GetOutputProperty(c.xConn, output,
		atomEDID, x.AtomInteger,
		0, 32, false, false).Reply(c.xConn)
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (c *Conn) getOutputPrimary() (randr.Output, error) {
	reply, err := randr.GetOutputPrimary(c.xConn, c.root).Reply(c.xConn)
	if err != nil {
		return 0, err
	}
	return reply.Output, nil
}

func (c *Conn) setOutputPrimary(output randr.Output) error {
	logger.Debug("set output primary", output)
	return randr.SetOutputPrimaryChecked(c.xConn, c.root, output).Check(c.xConn)
}
