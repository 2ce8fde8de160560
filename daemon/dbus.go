// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package daemon

import (
	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

const (
	dbusServiceName = "org.deepin.dde.Randrd1"
	dbusPath        = "/org/deepin/dde/Randrd1"
	dbusInterface   = dbusServiceName
)

type dbusObject struct {
	m *Manager

	methods *struct { //nolint
		Reconcile    func() `out:"outcomes"`
		ReloadConfig func() `out:"outcomes"`
	}
}

func (*dbusObject) GetInterfaceName() string {
	return dbusInterface
}

func (obj *dbusObject) Reconcile() ([]string, *dbus.Error) {
	outcomes, err := obj.m.Reconcile()
	if err != nil {
		return nil, dbusutil.ToError(err)
	}
	return outcomeLines(outcomes), nil
}

func (obj *dbusObject) ReloadConfig() ([]string, *dbus.Error) {
	outcomes, err := obj.m.ReloadConfig()
	if err != nil {
		return nil, dbusutil.ToError(err)
	}
	return outcomeLines(outcomes), nil
}

// exportDBus serves the manager on the session bus and returns a function
// withdrawing it.
func (m *Manager) exportDBus() (func(), error) {
	service, err := dbusutil.NewSessionService()
	if err != nil {
		return nil, err
	}
	obj := &dbusObject{m: m}
	err = service.Export(dbusPath, obj)
	if err != nil {
		return nil, err
	}
	err = service.RequestName(dbusServiceName)
	if err != nil {
		_ = service.StopExport(obj)
		return nil, err
	}
	return func() {
		err := service.StopExport(obj)
		if err != nil {
			logger.Warning(err)
		}
	}, nil
}
