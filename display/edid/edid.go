// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package edid extracts a human readable identity from the EDID block of an
// output. It is used for diagnostics only.
package edid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/linuxdeepin/go-lib/utils"
)

const (
	blockSize      = 128
	descriptorSize = 18
	tagMonitorName = 0xfc
	tagSerial      = 0xff
)

var header = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

var (
	ErrTooShort  = errors.New("edid too short")
	ErrBadHeader = errors.New("bad edid header")
)

type Identity struct {
	Manufacturer string
	ProductCode  uint16
	Serial       uint32
	Model        string
	SerialText   string
	// output name plus a digest of the base block
	UUID string
}

func (id *Identity) String() string {
	s := id.Manufacturer
	if id.Model != "" {
		s += " " + id.Model
	}
	if id.SerialText != "" {
		s += " serial " + id.SerialText
	} else if id.Serial != 0 {
		s += fmt.Sprintf(" serial %d", id.Serial)
	}
	return s
}

// Parse decodes the base EDID block read from output name.
func Parse(name string, edid []byte) (*Identity, error) {
	if len(edid) < blockSize {
		return nil, ErrTooShort
	}
	if !bytes.Equal(edid[:len(header)], header) {
		return nil, ErrBadHeader
	}

	manufacturer, err := parseManufacturer(edid[8:10])
	if err != nil {
		return nil, err
	}

	id := &Identity{
		Manufacturer: manufacturer,
		ProductCode:  binary.LittleEndian.Uint16(edid[10:12]),
		Serial:       binary.LittleEndian.Uint32(edid[12:16]),
		UUID:         outputUUID(name, edid),
	}

	for off := 54; off+descriptorSize <= 126; off += descriptorSize {
		desc := edid[off : off+descriptorSize]
		// display descriptors start with a zero pixel clock
		if desc[0] != 0 || desc[1] != 0 || desc[2] != 0 {
			continue
		}
		switch desc[3] {
		case tagMonitorName:
			id.Model = descriptorText(desc[5:])
		case tagSerial:
			id.SerialText = descriptorText(desc[5:])
		}
	}

	if id.Model == "" {
		// no name descriptor, fall back to the product code
		id.Model = strconv.Itoa(int(id.ProductCode))
	}
	return id, nil
}

// parseManufacturer decodes the three 5-bit letters of the PNP id.
func parseManufacturer(b []byte) (string, error) {
	v := uint16(b[0])<<8 | uint16(b[1])
	var name []byte
	for k := uint(1); k <= 3; k++ {
		m := byte(((v >> (15 - 5*k)) & 31) + 'A' - 1)
		if m < 'A' || m > 'Z' {
			return "", fmt.Errorf("invalid manufacturer id %#04x", v)
		}
		name = append(name, m)
	}
	return string(name), nil
}

func descriptorText(b []byte) string {
	var text []byte
	for _, c := range b {
		if c == '\n' || c == 0 {
			break
		}
		if c >= ' ' && c <= '~' {
			text = append(text, c)
		}
	}
	return string(bytes.TrimSpace(text))
}

func outputUUID(name string, edid []byte) string {
	id, _ := utils.SumStrMd5(string(edid[:blockSize]))
	if id == "" {
		return name
	}
	return name + id
}
