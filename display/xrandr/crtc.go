// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xrandr

import (
	"fmt"
	"math"

	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/ext/randr"

	"github.com/linuxdeepin/randrd/display"
)

type crtcConfig struct {
	crtc    randr.Crtc
	outputs []randr.Output

	x        int16
	y        int16
	rotation uint16
	mode     randr.Mode
}

type screenSize struct {
	width    uint16
	height   uint16
	mmWidth  uint32
	mmHeight uint32
}

// outputControl changes one attribute of the CRTC bound to an output and
// keeps the others as they are on the server.
type outputControl struct {
	c      *Conn
	output randr.Output
}

func (oc *outputControl) SetPrimary() error {
	return oc.c.setOutputPrimary(oc.output)
}

func (oc *outputControl) SetPosition(pos display.Position) error {
	if pos.X < math.MinInt16 || pos.X > math.MaxInt16 ||
		pos.Y < math.MinInt16 || pos.Y > math.MaxInt16 {
		return fmt.Errorf("position %v out of range", pos)
	}
	return oc.updateCrtc(func(cfg *crtcConfig) {
		cfg.x = int16(pos.X)
		cfg.y = int16(pos.Y)
	})
}

func (oc *outputControl) SetRotation(rotation display.Rotation) error {
	return oc.updateCrtc(func(cfg *crtcConfig) {
		_, reflect := parseCrtcRotation(cfg.rotation)
		cfg.rotation = toRandrRotation(rotation) | reflect
	})
}

func (oc *outputControl) SetMode(mode display.Mode) error {
	return oc.updateCrtc(func(cfg *crtcConfig) {
		cfg.mode = randr.Mode(mode.ID)
	})
}

func (oc *outputControl) updateCrtc(fn func(cfg *crtcConfig)) error {
	c := oc.c
	outputInfo, err := c.getOutputInfo(oc.output)
	if err != nil {
		return err
	}
	if outputInfo.Crtc == 0 {
		return fmt.Errorf("output %s has no crtc", outputInfo.Name)
	}
	crtcInfo, err := c.getCrtcInfo(outputInfo.Crtc)
	if err != nil {
		return err
	}

	cfg := crtcConfig{
		crtc:     outputInfo.Crtc,
		outputs:  crtcInfo.Outputs,
		x:        crtcInfo.X,
		y:        crtcInfo.Y,
		rotation: crtcInfo.Rotation,
		mode:     crtcInfo.Mode,
	}
	fn(&cfg)

	err = c.growScreen(cfg)
	if err != nil {
		return err
	}
	return c.applyConfig(cfg)
}

func (c *Conn) applyConfig(cfg crtcConfig) error {
	cfgTs := c.configTimestamp()
	logger.Debugf("setCrtcConfig crtc: %v, cfgTs: %v, x: %v, y: %v,"+
		" mode: %v, rotation|reflect: %v, outputs: %v",
		cfg.crtc, cfgTs, cfg.x, cfg.y, cfg.mode, cfg.rotation, cfg.outputs)
	setCfg, err := randr.SetCrtcConfig(c.xConn, cfg.crtc, 0, cfgTs,
		cfg.x, cfg.y, cfg.mode, cfg.rotation,
		cfg.outputs).Reply(c.xConn)
	if err != nil {
		return err
	}
	if setCfg.Status != randr.SetConfigSuccess {
		return fmt.Errorf("failed to configure crtc %v: %v",
			cfg.crtc, getRandrStatusStr(setCfg.Status))
	}
	return nil
}

// growScreen enlarges the root window when cfg would not fit in it. The
// screen is never shrunk.
func (c *Conn) growScreen(cfg crtcConfig) error {
	resources, err := c.refreshResources()
	if err != nil {
		return err
	}
	rects := make([]x.Rectangle, 0, len(resources.Crtcs))
	for _, crtc := range resources.Crtcs {
		if crtc == cfg.crtc {
			continue
		}
		crtcInfo, err := c.getCrtcInfo(crtc)
		if err != nil {
			return err
		}
		if crtcInfo.Mode == 0 {
			continue
		}
		rects = append(rects, x.Rectangle{
			X:      crtcInfo.X,
			Y:      crtcInfo.Y,
			Width:  crtcInfo.Width,
			Height: crtcInfo.Height,
		})
	}
	modeInfo, ok := c.findModeInfo(cfg.mode)
	if !ok {
		return fmt.Errorf("unknown mode %d", cfg.mode)
	}
	rects = append(rects, crtcRect(cfg, modeInfo))

	geometry, err := x.GetGeometry(c.xConn, x.Drawable(c.root)).Reply(c.xConn)
	if err != nil {
		return err
	}
	size, grow := requiredScreenSize(rects, geometry.Width, geometry.Height)
	if !grow {
		return nil
	}
	logger.Debugf("set screen size %dx%d, mm: %dx%d",
		size.width, size.height, size.mmWidth, size.mmHeight)
	return randr.SetScreenSizeChecked(c.xConn, c.root, size.width, size.height,
		size.mmWidth, size.mmHeight).Check(c.xConn)
}

func crtcRect(cfg crtcConfig, modeInfo randr.ModeInfo) x.Rectangle {
	width, height := modeInfo.Width, modeInfo.Height
	if needSwapWidthHeight(cfg.rotation) {
		width, height = height, width
	}
	return x.Rectangle{X: cfg.x, Y: cfg.y, Width: width, Height: height}
}

// requiredScreenSize returns the bounding size of rects and whether it
// exceeds the current screen size in either dimension.
func requiredScreenSize(rects []x.Rectangle, curWidth, curHeight uint16) (screenSize, bool) {
	w, h := int(curWidth), int(curHeight)
	for _, rect := range rects {
		w1 := int(rect.X) + int(rect.Width)
		h1 := int(rect.Y) + int(rect.Height)
		if w < w1 {
			w = w1
		}
		if h < h1 {
			h = h1
		}
	}
	if w > math.MaxUint16 {
		w = math.MaxUint16
	}
	if h > math.MaxUint16 {
		h = math.MaxUint16
	}
	size := screenSize{
		width:    uint16(w),
		height:   uint16(h),
		mmWidth:  uint32(float64(w) / 3.792),
		mmHeight: uint32(float64(h) / 3.792),
	}
	return size, size.width != curWidth || size.height != curHeight
}

func getRandrStatusStr(status uint8) string {
	switch status {
	case randr.SetConfigSuccess:
		return "success"
	case randr.SetConfigFailed:
		return "failed"
	case randr.SetConfigInvalidConfigTime:
		return "invalid config time"
	case randr.SetConfigInvalidTime:
		return "invalid time"
	default:
		return fmt.Sprintf("unknown status %d", status)
	}
}
