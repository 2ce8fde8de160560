// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package display

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/linuxdeepin/go-lib/keyfile"
	"github.com/linuxdeepin/go-lib/xdg/basedir"
	"gopkg.in/yaml.v3"
)

var (
	// ~/.config/randrd/monitors.conf
	defaultConfigFile string
)

func init() {
	cfgDir := filepath.Join(basedir.GetUserConfigDir(), "randrd")
	defaultConfigFile = filepath.Join(cfgDir, "monitors.conf")
}

func DefaultConfigFile() string {
	return defaultConfigFile
}

// Config maps monitor names to their desired state. It is not modified during
// a pass.
type Config map[string]*MonitorSpec

func (c Config) Validate() error {
	for _, name := range c.Names() {
		if name == "" {
			return errors.New("empty monitor name")
		}
		spec := c[name]
		if spec == nil {
			return fmt.Errorf("monitor %s: no spec", name)
		}
		err := spec.Validate()
		if err != nil {
			return fmt.Errorf("monitor %s: %w", name, err)
		}
	}
	return nil
}

// Names returns the configured monitor names sorted.
func (c Config) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type ConfigFormat uint8

const (
	ConfigFormatKeyFile ConfigFormat = iota
	ConfigFormatYAML
)

func (f ConfigFormat) String() string {
	if f == ConfigFormatYAML {
		return "yaml"
	}
	return "keyfile"
}

func ConfigFormatFromFilename(filename string) ConfigFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return ConfigFormatYAML
	}
	return ConfigFormatKeyFile
}

func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data, ConfigFormatFromFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a configuration.
func ParseConfig(data []byte, format ConfigFormat) (Config, error) {
	var cfg Config
	var err error
	switch format {
	case ConfigFormatYAML:
		cfg, err = parseYAMLConfig(data)
	default:
		cfg, err = parseKeyFileConfig(data)
	}
	if err != nil {
		return nil, err
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

const (
	kfKeyWidth       = "Width"
	kfKeyHeight      = "Height"
	kfKeyRefreshRate = "RefreshRate"
	kfKeyPrimary     = "Primary"
	kfKeyRotation    = "Rotation"
	kfKeyX           = "X"
	kfKeyY           = "Y"
)

// parseKeyFileConfig reads one group per monitor:
//
//	[HDMI-1]
//	Width=1920
//	Height=1080
//	RefreshRate=60
//	Primary=true
//	Rotation=normal
//	X=0
//	Y=0
func parseKeyFileConfig(data []byte) (Config, error) {
	kf := keyfile.NewKeyFile()
	err := kf.LoadFromData(data)
	if err != nil {
		return nil, err
	}

	cfg := make(Config)
	for _, name := range kf.GetSections() {
		section, err := kf.GetSection(name)
		if err != nil {
			return nil, err
		}
		spec, err := specFromSection(section)
		if err != nil {
			return nil, fmt.Errorf("monitor %s: %w", name, err)
		}
		cfg[name] = spec
	}
	return cfg, nil
}

func specFromSection(section map[string]string) (*MonitorSpec, error) {
	spec := &MonitorSpec{}
	for key, value := range section {
		value = strings.TrimSpace(value)
		var err error
		switch key {
		case kfKeyWidth:
			spec.Width, err = parseUint32(value)
		case kfKeyHeight:
			spec.Height, err = parseUint32(value)
		case kfKeyRefreshRate:
			var rate float64
			rate, err = strconv.ParseFloat(value, 64)
			spec.RefreshRate = &rate
		case kfKeyPrimary:
			spec.Primary, err = strconv.ParseBool(value)
		case kfKeyRotation:
			spec.Rotation, err = ParseRotation(value)
		case kfKeyX:
			spec.X, err = parseInt32(value)
		case kfKeyY:
			spec.Y, err = parseInt32(value)
		default:
			logger.Warningf("unknown key %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}
	}
	return spec, nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	return int32(v), err
}

type yamlConfig struct {
	Monitors map[string]yamlMonitorSpec `yaml:"monitors"`
}

type yamlMonitorSpec struct {
	Width       uint32   `yaml:"width"`
	Height      uint32   `yaml:"height"`
	RefreshRate *float64 `yaml:"refresh_rate"`
	Primary     bool     `yaml:"primary"`
	Rotation    string   `yaml:"rotation"`
	X           int32    `yaml:"x"`
	Y           int32    `yaml:"y"`
}

func parseYAMLConfig(data []byte) (Config, error) {
	var raw yamlConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(&raw)
	if err != nil && err != io.EOF {
		return nil, err
	}

	cfg := make(Config, len(raw.Monitors))
	for name, m := range raw.Monitors {
		rotation, err := ParseRotation(m.Rotation)
		if err != nil {
			return nil, fmt.Errorf("monitor %s: %w", name, err)
		}
		cfg[name] = &MonitorSpec{
			Width:       m.Width,
			Height:      m.Height,
			RefreshRate: m.RefreshRate,
			Primary:     m.Primary,
			Rotation:    rotation,
			X:           m.X,
			Y:           m.Y,
		}
	}
	return cfg, nil
}
