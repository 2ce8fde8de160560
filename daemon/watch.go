// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package daemon

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

const configChangedOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// watchConfig reloads the config after filename changes. The parent
// directory is watched so editors replacing the file are noticed too.
func (m *Manager) watchConfig(filename string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	filename = filepath.Clean(filename)
	err = watcher.Add(filepath.Dir(filename))
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filename || ev.Op&configChangedOps == 0 {
					continue
				}
				logger.Debug("config file event:", ev)
				m.TriggerReload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warning("watch config:", err)
			}
		}
	}()
	return watcher, nil
}
