// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package daemon

import (
	"github.com/godbus/dbus/v5"
	login1 "github.com/linuxdeepin/go-dbus-factory/system/org.freedesktop.login1"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

// listenLogin1 triggers a pass when the system wakes up and when the session
// this process runs in becomes active again.
func (m *Manager) listenLogin1() error {
	sysBus, err := dbus.SystemBus()
	if err != nil {
		return err
	}

	sigLoop := dbusutil.NewSignalLoop(sysBus, 10)
	sigLoop.Start()
	m.sigLoop = sigLoop

	managerObj := login1.NewManager(sysBus)
	managerObj.InitSignalExt(sigLoop, true)
	_, err = managerObj.ConnectPrepareForSleep(func(isSleep bool) {
		if isSleep {
			return
		}
		logger.Info("system wakeup")
		m.Trigger("wakeup")
	})
	if err != nil {
		return err
	}

	selfObj, err := login1.NewSession(sysBus, "/org/freedesktop/login1/session/self")
	if err != nil {
		logger.Warningf("connect login1 self session failed! %v", err)
		return nil
	}
	id, err := selfObj.Id().Get(0)
	if err != nil {
		// not started from a login session
		logger.Debug("get self session id failed:", err)
		return nil
	}
	path, err := managerObj.GetSession(0, id)
	if err != nil {
		logger.Warningf("get session path %s failed! %v", id, err)
		return nil
	}
	sessionObj, err := login1.NewSession(sysBus, path)
	if err != nil {
		logger.Warningf("connect login1 session %s failed! %v", path, err)
		return nil
	}
	sessionObj.InitSignalExt(sigLoop, true)
	err = sessionObj.Active().ConnectChanged(func(hasValue, value bool) {
		if !hasValue || !value {
			return
		}
		m.Trigger("session active")
	})
	if err != nil {
		logger.Warningf("prop active ConnectChanged failed! %v", err)
	}
	return nil
}
