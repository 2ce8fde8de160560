// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package daemon

import (
	"context"
)

type ServeOptions struct {
	// reload the config when this file changes; empty disables watching
	WatchConfig string
	DBus        bool
	Login1      bool
}

// Serve runs passes on startup and whenever src, the config file, login1 or
// a D-Bus caller asks for one, until ctx is done. Failing to set up one of
// the optional triggers is logged and does not stop the daemon.
func (m *Manager) Serve(ctx context.Context, src ChangeSource, opts ServeOptions) error {
	if src != nil {
		go func() {
			err := src.ListenChanges(m.Trigger)
			if err != nil {
				logger.Warning("listen display changes failed:", err)
			}
		}()
	}

	if opts.WatchConfig != "" {
		watcher, err := m.watchConfig(opts.WatchConfig)
		if err != nil {
			logger.Warning("watch config failed:", err)
		} else {
			defer watcher.Close()
		}
	}

	if opts.Login1 {
		err := m.listenLogin1()
		if err != nil {
			logger.Warning("listen login1 failed:", err)
		}
		if m.sigLoop != nil {
			defer m.sigLoop.Stop()
		}
	}

	if opts.DBus {
		stopExport, err := m.exportDBus()
		if err != nil {
			logger.Warning("export dbus service failed:", err)
		} else {
			defer stopExport()
		}
	}

	m.Trigger("startup")
	return m.Run(ctx)
}
