// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/xerrors"

	"github.com/linuxdeepin/randrd/daemon"
	"github.com/linuxdeepin/randrd/display"
	"github.com/linuxdeepin/randrd/display/xrandr"
	"github.com/linuxdeepin/randrd/pidlock"
)

var logger = log.NewLogger("randrd")

var (
	optConfig       = flag.String("config", display.DefaultConfigFile(), "monitor configuration file, keyfile or yaml by extension")
	optConfigData   = flag.String("config-data", "", "inline monitor configuration, overrides -config")
	optConfigFormat = flag.String("config-format", "keyfile", "format of -config-data: keyfile or yaml")
	optPidFile      = flag.String("pid-file", pidlock.DefaultFile(), "lock file guarding against a second instance")
	optDaemon       = flag.Bool("daemon", false, "keep running and reconcile on display changes")
	optWatchConfig  = flag.Bool("watch-config", false, "reload the configuration file when it changes, daemon only")
	optDBus         = flag.Bool("dbus", false, "export the D-Bus service on the session bus, daemon only")
	optDryRun       = flag.Bool("n", false, "only report the changes that would be made")
	optDebug        = flag.Bool("d", false, "debug")
)

func setLogLevel(level log.Priority) {
	logger.SetLogLevel(level)
	display.SetLogLevel(level)
	xrandr.SetLogLevel(level)
	daemon.SetLogLevel(level)
}

func main() {
	flag.Parse()
	if *optDebug {
		setLogLevel(log.LevelDebug)
	}

	lock, err := pidlock.Acquire(*optPidFile)
	if err != nil {
		logger.Fatal(err)
	}

	err = run()
	errRelease := lock.Release()
	if errRelease != nil {
		logger.Warning("failed to remove pid file:", errRelease)
	}
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func loadConfig() (display.Config, daemon.ConfigLoader, error) {
	if *optConfigData != "" {
		var format display.ConfigFormat
		switch *optConfigFormat {
		case "keyfile":
			format = display.ConfigFormatKeyFile
		case "yaml":
			format = display.ConfigFormatYAML
		default:
			return nil, nil, fmt.Errorf("unknown config format %q", *optConfigFormat)
		}
		cfg, err := display.ParseConfig([]byte(*optConfigData), format)
		if err != nil {
			return nil, nil, xerrors.Errorf("failed to parse config data: %w", err)
		}
		return cfg, nil, nil
	}

	filename := *optConfig
	loader := func() (display.Config, error) {
		return display.LoadConfig(filename)
	}
	cfg, err := loader()
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to load config: %w", err)
	}
	return cfg, loader, nil
}

func run() error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Debug("configured monitors:", cfg.Names())

	conn, err := xrandr.Open()
	if err != nil {
		return err
	}
	defer conn.Close()

	m := daemon.NewManager(conn, cfg, loader, daemon.Options{DryRun: *optDryRun})
	if !*optDaemon {
		_, err = m.RunPass()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := daemon.ServeOptions{
		DBus:   *optDBus,
		Login1: true,
	}
	if *optWatchConfig && loader != nil {
		opts.WatchConfig = *optConfig
	}
	logger.Info("daemon started")
	err = m.Serve(ctx, conn, opts)
	logger.Info("daemon stopped")
	return err
}
