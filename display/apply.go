// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package display

import (
	"errors"
	"fmt"
	"strings"
)

type Attribute string

const (
	AttrPrimary  Attribute = "primary"
	AttrPosition Attribute = "position"
	AttrRotation Attribute = "rotation"
	AttrMode     Attribute = "mode"
)

// Output is the controllable handle of a single output on the display server.
type Output interface {
	SetPrimary() error
	SetPosition(pos Position) error
	SetRotation(rotation Rotation) error
	SetMode(mode Mode) error
}

var errDemotePrimary = errors.New("demoting a primary output is not supported")

// ApplyError reports the attribute the display server rejected. Attributes in
// Applied were already written and are not rolled back.
type ApplyError struct {
	Attr    Attribute
	Applied []Attribute
	Err     error
}

func (e *ApplyError) Error() string {
	msg := fmt.Sprintf("set %s: %v", e.Attr, e.Err)
	if len(e.Applied) > 0 {
		attrs := make([]string, len(e.Applied))
		for i, attr := range e.Applied {
			attrs[i] = string(attr)
		}
		msg += fmt.Sprintf(" (already applied: %s)", strings.Join(attrs, ", "))
	}
	return msg
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

type applyStep struct {
	attr Attribute
	fn   func() error
}

// ApplyDiff writes diff to out in the order primary, position, rotation,
// mode. The mode goes last since changing it may reset the controller.
// Application stops at the first rejected attribute.
func ApplyDiff(out Output, diff Diff) error {
	var steps []applyStep
	if diff.Primary != nil {
		steps = append(steps, applyStep{AttrPrimary, func() error {
			if !*diff.Primary {
				return errDemotePrimary
			}
			return out.SetPrimary()
		}})
	}
	if diff.Position != nil {
		steps = append(steps, applyStep{AttrPosition, func() error {
			return out.SetPosition(*diff.Position)
		}})
	}
	if diff.Rotation != nil {
		steps = append(steps, applyStep{AttrRotation, func() error {
			return out.SetRotation(*diff.Rotation)
		}})
	}
	if diff.Mode != nil {
		steps = append(steps, applyStep{AttrMode, func() error {
			return out.SetMode(*diff.Mode)
		}})
	}

	var applied []Attribute
	for _, step := range steps {
		logger.Debugf("apply %s", step.attr)
		err := step.fn()
		if err != nil {
			return &ApplyError{
				Attr:    step.attr,
				Applied: applied,
				Err:     err,
			}
		}
		applied = append(applied, step.attr)
	}
	return nil
}
