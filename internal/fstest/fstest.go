// Package fstest provides shared fixtures for exercising the file system
// core in tests: scratch in-memory devices and deterministic byte patterns,
// the way the teacher lineage's own testing helpers build throwaway images
// for its drivers.
package fstest

import (
	"testing"

	"github.com/dargueta/sfs/device"
	"github.com/dargueta/sfs/fs"
	"github.com/stretchr/testify/require"
)

// NewFormattedDevice formats a fresh in-memory device with totalBlocks
// blocks and returns it, unmounted and ready for [fs.FileSystem.Mount].
func NewFormattedDevice(t *testing.T, totalBlocks uint32) *device.MemoryDevice {
	t.Helper()
	dev := device.NewMemoryDevice(totalBlocks)
	require.NoError(t, fs.Format(dev))
	return dev
}

// NewMountedFileSystem formats and mounts a fresh in-memory device with
// totalBlocks blocks, returning both the handle and the underlying device.
func NewMountedFileSystem(t *testing.T, totalBlocks uint32) (*fs.FileSystem, *device.MemoryDevice) {
	t.Helper()
	dev := NewFormattedDevice(t, totalBlocks)
	handle := fs.New()
	require.NoError(t, handle.Mount(dev))
	return handle, dev
}

// DeterministicPattern fills a buffer of the given length with a repeating,
// non-trivial byte pattern -- useful for exercising cross-block reads and
// writes without relying on crypto/rand (which would make test failures
// unreproducible).
func DeterministicPattern(length int) []byte {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = byte((i*31 + 7) % 256)
	}
	return buf
}
