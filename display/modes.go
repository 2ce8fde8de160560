// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package display

import (
	"math"
)

// RefreshRateTolerance is the largest refresh rate deviation, exclusive, for a
// mode to be compatible with a requested rate.
const RefreshRateTolerance = 1.0

// CompatibleModes returns the catalog modes with the exact size of spec and,
// when spec asks for a refresh rate, a rate within RefreshRateTolerance of it.
// Catalog order is preserved. No winner is picked among several matches.
func CompatibleModes(spec *MonitorSpec, catalog []Mode) []Mode {
	var result []Mode
	for _, mode := range catalog {
		if mode.Width != spec.Width || mode.Height != spec.Height {
			continue
		}
		if spec.RefreshRate != nil &&
			math.Abs(mode.Rate-*spec.RefreshRate) >= RefreshRateTolerance {
			continue
		}
		result = append(result, mode)
	}
	return result
}

func modesContain(modes []Mode, id ModeID) bool {
	for _, mode := range modes {
		if mode.ID == id {
			return true
		}
	}
	return false
}

func findMode(modes []Mode, id ModeID) *Mode {
	for _, mode := range modes {
		if mode.ID == id {
			return &mode
		}
	}
	return nil
}

func formatModes(modes []Mode) string {
	s := ""
	for i, mode := range modes {
		if i > 0 {
			s += ", "
		}
		s += mode.String()
	}
	return s
}
