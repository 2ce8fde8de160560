// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xrandr

import (
	"github.com/linuxdeepin/go-x11-client/ext/randr"
	"golang.org/x/xerrors"
)

// ListenChanges calls notify whenever an output is connected or disconnected
// or the screen configuration timestamp changes. Changes made by this process
// to a CRTC do not trigger it. It blocks until the connection is closed.
func (c *Conn) ListenChanges(notify func(reason string)) error {
	eventChan := c.xConn.MakeAndAddEventChan(50)
	err := randr.SelectInputChecked(c.xConn, c.root,
		randr.NotifyMaskOutputChange|randr.NotifyMaskScreenChange).Check(c.xConn)
	if err != nil {
		return xerrors.Errorf("failed to select randr event: %w", err)
	}

	connections := make(map[randr.Output]uint8)
	resources, err := c.refreshResources()
	if err != nil {
		return xerrors.Errorf("failed to get screen resources: %w", err)
	}
	for _, output := range resources.Outputs {
		outputInfo, err := c.getOutputInfo(output)
		if err != nil {
			logger.Warningf("get output %v info failed: %v", output, err)
			continue
		}
		connections[output] = outputInfo.Connection
	}

	rrExtData := c.xConn.GetExtensionData(randr.Ext())

	for ev := range eventChan {
		switch ev.GetEventCode() {
		case randr.NotifyEventCode + rrExtData.FirstEvent:
			event, _ := randr.NewNotifyEvent(ev)
			if event.SubCode != randr.NotifyOutputChange {
				continue
			}
			e, _ := event.NewOutputChangeNotifyEvent()
			prev, known := connections[e.Output]
			connections[e.Output] = e.Connection
			logger.Debugf("output %d changed, connection %d", e.Output, e.Connection)
			if known && prev == e.Connection {
				continue
			}
			notify("output changed")

		case randr.ScreenChangeNotifyEventCode + rrExtData.FirstEvent:
			e, _ := randr.NewScreenChangeNotifyEvent(ev)
			logger.Debugf("screen changed cfgTs: %v", e.ConfigTimestamp)
			if e.ConfigTimestamp == c.configTimestamp() {
				continue
			}
			notify("screen changed")
		}
	}
	return nil
}
