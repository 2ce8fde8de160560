// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pidlock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAcquire(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.pid")

	lock, err := Acquire(filename)
	require.NoError(t, err)

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(content)))

	_, err = Acquire(filename)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))

	require.NoError(t, lock.Release())
	_, err = os.Stat(filename)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, lock.Release())

	lock, err = Acquire(filename)
	require.NoError(t, err)
	assert.NoError(t, lock.Release())
}

func TestAcquireStaleFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.pid")
	require.NoError(t, os.WriteFile(filename, []byte("999999999\nleftover"), 0644))

	lock, err := Acquire(filename)
	require.NoError(t, err)
	defer lock.Release()

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(content))
}

func TestAcquireAfterRelease(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.pid")

	lock, err := Acquire(filename)
	require.NoError(t, err)

	// opened before the holder released, like a racing second instance
	stale, err := os.OpenFile(filename, os.O_RDWR, 0644)
	require.NoError(t, err)
	defer stale.Close()

	require.NoError(t, lock.Release())

	lock, err = Acquire(filename)
	require.NoError(t, err)
	defer lock.Release()

	// the old inode can be flocked but no longer guards the path
	require.NoError(t, unix.Flock(int(stale.Fd()), unix.LOCK_EX|unix.LOCK_NB))
	same, err := sameFile(stale, filename)
	require.NoError(t, err)
	assert.False(t, same)

	same, err = sameFile(lock.file, filename)
	require.NoError(t, err)
	assert.True(t, same)

	_, err = Acquire(filename)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestSameFileRemoved(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.pid")
	file, err := os.Create(filename)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, os.Remove(filename))

	same, err := sameFile(file, filename)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestAcquireBadDir(t *testing.T) {
	_, err := Acquire(filepath.Join(t.TempDir(), "missing", "test.pid"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}

func TestDefaultFile(t *testing.T) {
	assert.True(t, strings.HasSuffix(DefaultFile(), ".pid"))
}
