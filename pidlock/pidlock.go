// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pidlock guarantees a single running instance through an exclusive
// lock on a pid file held for the lifetime of the process.
package pidlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

const defaultName = "randrd.pid"

var ErrLocked = errors.New("already locked by another process")

type Lock struct {
	filename string
	file     *os.File
}

// DefaultFile is /var/run/randrd.pid for root and the user runtime directory
// otherwise.
func DefaultFile() string {
	if os.Geteuid() == 0 {
		return filepath.Join("/var/run", defaultName)
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, defaultName)
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("randrd-%d.pid", os.Getuid()))
}

// Acquire locks filename without blocking and writes the current pid into it.
func Acquire(filename string) (*Lock, error) {
	for {
		file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return nil, xerrors.Errorf("failed to open lock file: %w", err)
		}

		err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err != nil {
			pid := readPid(file)
			_ = file.Close()
			if err == unix.EWOULDBLOCK {
				return nil, xerrors.Errorf("%s (pid %d): %w", filename, pid, ErrLocked)
			}
			return nil, xerrors.Errorf("failed to lock %s: %w", filename, err)
		}

		// the holder removes the file on release, so the inode locked here
		// may no longer be the one at filename
		same, err := sameFile(file, filename)
		if err != nil {
			_ = file.Close()
			return nil, xerrors.Errorf("failed to stat %s: %w", filename, err)
		}
		if !same {
			_ = file.Close()
			continue
		}

		err = writePid(file)
		if err != nil {
			_ = file.Close()
			return nil, xerrors.Errorf("failed to write pid to %s: %w", filename, err)
		}
		return &Lock{filename: filename, file: file}, nil
	}
}

func sameFile(file *os.File, filename string) (bool, error) {
	fi, err := file.Stat()
	if err != nil {
		return false, err
	}
	pathFi, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return os.SameFile(fi, pathFi), nil
}

func readPid(file *os.File) int {
	buf := make([]byte, 32)
	n, _ := file.ReadAt(buf, 0)
	pid, _ := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	return pid
}

func writePid(file *os.File) error {
	err := file.Truncate(0)
	if err != nil {
		return err
	}
	_, err = file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	if err != nil {
		return err
	}
	return file.Sync()
}

// Release removes the pid file and drops the lock.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	err := os.Remove(l.filename)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	err = l.file.Close()
	l.file = nil
	return err
}
