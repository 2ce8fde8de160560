// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package display

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedTopology = errors.New("unsupported topology")
	ErrNoController        = errors.New("no controller")
	ErrNoCompatibleMode    = errors.New("no compatible mode")
	ErrAmbiguousMode       = errors.New("ambiguous mode")
)

// DiffError reports why no diff could be computed for a monitor. These are
// expected steady states, the monitor is left alone.
type DiffError struct {
	Monitor string
	Err     error
	Detail  string
}

func (e *DiffError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("monitor %s: %v", e.Monitor, e.Err)
	}
	return fmt.Sprintf("monitor %s: %v: %s", e.Monitor, e.Err, e.Detail)
}

func (e *DiffError) Unwrap() error {
	return e.Err
}

// Diff holds only the attributes that must change. The zero value means no
// change.
type Diff struct {
	Mode     *Mode
	Position *Position
	Rotation *Rotation
	Primary  *bool
}

func (d Diff) IsEmpty() bool {
	return d.Mode == nil && d.Position == nil && d.Rotation == nil && d.Primary == nil
}

func (d Diff) String() string {
	var parts []string
	if d.Primary != nil {
		parts = append(parts, fmt.Sprintf("primary=%v", *d.Primary))
	}
	if d.Position != nil {
		parts = append(parts, "pos="+d.Position.String())
	}
	if d.Rotation != nil {
		parts = append(parts, "rotation="+d.Rotation.String())
	}
	if d.Mode != nil {
		parts = append(parts, "mode="+d.Mode.String())
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// ComputeDiff compares the current state of a monitor with its desired spec.
// The returned diff only touches attributes that differ, so once it has been
// applied a new ComputeDiff yields the empty diff.
func ComputeDiff(spec *MonitorSpec, current *MonitorState, catalog []Mode) (Diff, error) {
	var diff Diff

	if len(current.Outputs) != 1 {
		return diff, &DiffError{
			Monitor: current.Name,
			Err:     ErrUnsupportedTopology,
			Detail:  fmt.Sprintf("%d outputs", len(current.Outputs)),
		}
	}
	output := current.Outputs[0]
	if !output.Connected {
		return diff, &DiffError{
			Monitor: current.Name,
			Err:     ErrUnsupportedTopology,
			Detail:  fmt.Sprintf("output %s is disconnected", output.Name),
		}
	}

	ctrl := output.Controller
	if ctrl == nil {
		return diff, &DiffError{
			Monitor: current.Name,
			Err:     ErrNoController,
			Detail:  fmt.Sprintf("output %s", output.Name),
		}
	}

	if ctrl.Rotation != spec.Rotation {
		rotation := spec.Rotation
		diff.Rotation = &rotation
	}

	if ctrl.X != spec.X || ctrl.Y != spec.Y {
		diff.Position = &Position{X: spec.X, Y: spec.Y}
	}

	compatible := CompatibleModes(spec, catalog)
	switch {
	case len(compatible) == 0:
		return Diff{}, &DiffError{
			Monitor: current.Name,
			Err:     ErrNoCompatibleMode,
			Detail:  fmt.Sprintf("want %v", spec),
		}
	case modesContain(compatible, output.CurrentMode):
		// already acceptable, even if other modes are within tolerance too
	case len(compatible) == 1:
		mode := compatible[0]
		diff.Mode = &mode
	default:
		detail := "candidates " + formatModes(compatible)
		if cur := findMode(catalog, output.CurrentMode); cur != nil {
			detail = fmt.Sprintf("current %v, %s", cur, detail)
		}
		return Diff{}, &DiffError{
			Monitor: current.Name,
			Err:     ErrAmbiguousMode,
			Detail:  detail,
		}
	}

	// there is no way to demote a primary output, only promote
	if spec.Primary && !output.Primary {
		primary := true
		diff.Primary = &primary
	}

	return diff, nil
}
