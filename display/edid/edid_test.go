// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package edid

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEDID(model, serial string) []byte {
	b := make([]byte, 128)
	copy(b, header)
	// "DEL"
	b[8], b[9] = 0x10, 0xac
	binary.LittleEndian.PutUint16(b[10:], 0xa0c4)
	binary.LittleEndian.PutUint32(b[12:], 0x31303030)

	// first descriptor is a detailed timing
	b[54], b[55] = 0x02, 0x3a

	putText := func(off int, tag byte, text string) {
		b[off+3] = tag
		payload := b[off+5 : off+18]
		for i := range payload {
			payload[i] = ' '
		}
		n := copy(payload, text)
		if n < len(payload) {
			payload[n] = '\n'
		}
	}
	if serial != "" {
		putText(72, tagSerial, serial)
	}
	if model != "" {
		putText(90, tagMonitorName, model)
	}
	return b
}

func Test_Parse(t *testing.T) {
	id, err := Parse("DP-1", makeEDID("DELL U2720Q", "ABC123"))
	require.NoError(t, err)
	assert.Equal(t, "DEL", id.Manufacturer)
	assert.Equal(t, uint16(0xa0c4), id.ProductCode)
	assert.Equal(t, uint32(0x31303030), id.Serial)
	assert.Equal(t, "DELL U2720Q", id.Model)
	assert.Equal(t, "ABC123", id.SerialText)
	assert.True(t, strings.HasPrefix(id.UUID, "DP-1"))
	assert.Len(t, id.UUID, len("DP-1")+32)
	assert.Equal(t, "DEL DELL U2720Q serial ABC123", id.String())
}

func Test_Parse_noNameDescriptor(t *testing.T) {
	id, err := Parse("HDMI-1", makeEDID("", ""))
	require.NoError(t, err)
	assert.Equal(t, "41156", id.Model)
	assert.Equal(t, "DEL 41156 serial 825241648", id.String())
}

func Test_Parse_invalid(t *testing.T) {
	_, err := Parse("DP-1", nil)
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = Parse("DP-1", make([]byte, 100))
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = Parse("DP-1", make([]byte, 128))
	assert.ErrorIs(t, err, ErrBadHeader)

	b := makeEDID("x", "")
	b[8], b[9] = 0, 0
	_, err = Parse("DP-1", b)
	assert.Error(t, err)
}

func Test_outputUUID_stable(t *testing.T) {
	b := makeEDID("DELL U2720Q", "")
	assert.Equal(t, outputUUID("DP-1", b), outputUUID("DP-1", append(b, 1, 2, 3)))
	assert.NotEqual(t, outputUUID("DP-1", b), outputUUID("DP-2", b))
}
