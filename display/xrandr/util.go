// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xrandr

import (
	"github.com/linuxdeepin/go-x11-client/ext/randr"

	"github.com/linuxdeepin/randrd/display"
)

func parseCrtcRotation(origin uint16) (rotation, reflect uint16) {
	rotation = origin & 0xf
	reflect = origin & 0xf0

	switch rotation {
	case 1, 2, 4, 8:
		break
	default:
		//Invalid rotation value
		rotation = 1
	}

	switch reflect {
	case 0, 16, 32, 48:
		break
	default:
		// Invalid reflect value
		reflect = 0
	}

	return
}

func fromRandrRotation(rotation uint16) display.Rotation {
	switch rotation {
	case randr.RotationRotate90:
		return display.RotationLeft
	case randr.RotationRotate180:
		return display.RotationInverted
	case randr.RotationRotate270:
		return display.RotationRight
	default:
		return display.RotationNormal
	}
}

func toRandrRotation(rotation display.Rotation) uint16 {
	switch rotation {
	case display.RotationLeft:
		return randr.RotationRotate90
	case display.RotationInverted:
		return randr.RotationRotate180
	case display.RotationRight:
		return randr.RotationRotate270
	default:
		return randr.RotationRotate0
	}
}

func needSwapWidthHeight(rotation uint16) bool {
	return rotation&randr.RotationRotate90 != 0 ||
		rotation&randr.RotationRotate270 != 0
}

func toMode(info randr.ModeInfo) display.Mode {
	return display.Mode{
		ID:     display.ModeID(info.Id),
		Name:   info.Name,
		Width:  uint32(info.Width),
		Height: uint32(info.Height),
		Rate:   calcModeRate(info),
	}
}

func calcModeRate(info randr.ModeInfo) float64 {
	vTotal := float64(info.VTotal)
	if (info.ModeFlags & randr.ModeFlagDoubleScan) != 0 {
		/* doublescan doubles the number of lines */
		vTotal *= 2
	}
	if (info.ModeFlags & randr.ModeFlagInterlace) != 0 {
		/* interlace splits the frame into two fields */
		/* the field rate is what is typically reported by monitors */
		vTotal /= 2
	}

	if info.HTotal == 0 || vTotal == 0 {
		return 0
	}
	return float64(info.DotClock) / (float64(info.HTotal) * vTotal)
}
