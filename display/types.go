// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package display

import (
	"fmt"
	"math"
	"strings"
)

type Rotation uint8

const (
	RotationNormal Rotation = iota
	RotationLeft
	RotationInverted
	RotationRight
)

var rotationNames = [...]string{
	RotationNormal:   "normal",
	RotationLeft:     "left",
	RotationInverted: "inverted",
	RotationRight:    "right",
}

func (r Rotation) String() string {
	if int(r) < len(rotationNames) {
		return rotationNames[r]
	}
	return fmt.Sprintf("rotation(%d)", uint8(r))
}

func (r Rotation) valid() bool {
	return int(r) < len(rotationNames)
}

// ParseRotation accepts the names printed by Rotation.String, case insensitive.
// An empty string means RotationNormal.
func ParseRotation(s string) (Rotation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RotationNormal, nil
	}
	for r, name := range rotationNames {
		if name == s {
			return Rotation(r), nil
		}
	}
	return RotationNormal, fmt.Errorf("invalid rotation %q", s)
}

// MonitorSpec is the desired state of one monitor.
type MonitorSpec struct {
	Width  uint32
	Height uint32
	// nil matches any refresh rate
	RefreshRate *float64
	Primary     bool
	Rotation    Rotation
	X           int32
	Y           int32
}

func (s *MonitorSpec) Validate() error {
	if s.Width == 0 || s.Height == 0 {
		return fmt.Errorf("invalid size %dx%d", s.Width, s.Height)
	}
	if r := s.RefreshRate; r != nil &&
		(math.IsNaN(*r) || math.IsInf(*r, 0) || *r <= 0) {
		return fmt.Errorf("invalid refresh rate %v", *s.RefreshRate)
	}
	if !s.Rotation.valid() {
		return fmt.Errorf("invalid rotation %d", s.Rotation)
	}
	return nil
}

func (s *MonitorSpec) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d", s.Width, s.Height)
	if s.RefreshRate != nil {
		fmt.Fprintf(&sb, "@%.2f", *s.RefreshRate)
	}
	fmt.Fprintf(&sb, "+%d+%d %v", s.X, s.Y, s.Rotation)
	if s.Primary {
		sb.WriteString(" primary")
	}
	return sb.String()
}

// ModeID identifies a mode in the display server catalog. NoMode is never
// handed out by the server.
type ModeID uint32

const NoMode ModeID = 0

type Mode struct {
	ID     ModeID
	Name   string
	Width  uint32
	Height uint32
	Rate   float64
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%.2f", m.Width, m.Height, m.Rate)
}

type Position struct {
	X int32
	Y int32
}

func (p Position) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// ControllerState is the CRTC currently driving an output.
type ControllerState struct {
	ID       uint32
	Rotation Rotation
	X        int32
	Y        int32
}

type OutputState struct {
	ID          uint32
	Name        string
	Connected   bool
	CurrentMode ModeID
	// nil when the output is not bound to a controller
	Controller *ControllerState
	Primary    bool
	// raw identity bytes, diagnostics only
	EDID []byte
	// Control mutates this output on the display server.
	Control Output
}

// MonitorState is a freshly queried snapshot of one monitor.
type MonitorState struct {
	Name    string
	Outputs []*OutputState
}
