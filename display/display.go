// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package display reconciles the live monitor configuration reported by a
// display server against a declared desired state.
package display

import (
	"github.com/linuxdeepin/go-lib/log"
)

var logger = log.NewLogger("randrd/display")

func SetLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
}
