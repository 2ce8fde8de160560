// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package daemon

import (
	"sort"
	"sync"
	"time"
)

// delayHandler collects named tasks and runs do once with all of them after
// delay has passed since the first one was added.
type delayHandler struct {
	task  map[string]bool
	mutex sync.Mutex
	timer *time.Timer
	delay time.Duration
	do    func([]string)
}

func newDelayHandler(delay time.Duration, f func([]string)) *delayHandler {
	return &delayHandler{
		task:  make(map[string]bool),
		do:    f,
		delay: delay,
	}
}

func (dh *delayHandler) AddTask(name string) {
	dh.mutex.Lock()
	defer dh.mutex.Unlock()

	dh.task[name] = true
	if dh.timer != nil {
		return
	}
	dh.timer = time.AfterFunc(dh.delay, dh.fire)
}

func (dh *delayHandler) fire() {
	dh.mutex.Lock()
	names := make([]string, 0, len(dh.task))
	for name := range dh.task {
		names = append(names, name)
	}
	dh.task = make(map[string]bool)
	dh.timer = nil
	dh.mutex.Unlock()

	sort.Strings(names)
	if dh.do != nil && len(names) > 0 {
		dh.do(names)
	}
}

func (dh *delayHandler) Stop() {
	dh.mutex.Lock()
	if dh.timer != nil {
		dh.timer.Stop()
		dh.timer = nil
	}
	dh.task = make(map[string]bool)
	dh.mutex.Unlock()
}
