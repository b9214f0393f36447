package fs_test

import (
	"bytes"
	"testing"

	"github.com/dargueta/sfs/block"
	"github.com/dargueta/sfs/device"
	"github.com/dargueta/sfs/fs"
	"github.com/dargueta/sfs/internal/fstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1: format + mount + debug.
func TestFormatMountDebug(t *testing.T) {
	dev := device.NewMemoryDevice(20)
	require.NoError(t, fs.Format(dev))

	handle := fs.New()
	require.NoError(t, handle.Mount(dev))

	var out bytes.Buffer
	require.NoError(t, fs.Debug(&out, dev))

	text := out.String()
	assert.Contains(t, text, "20 blocks")
	assert.Contains(t, text, "2 inode blocks")
	assert.Contains(t, text, "256 inodes")
	assert.NotContains(t, text, "Inode ")
}

// S2: create / stat / remove.
func TestCreateStatRemove(t *testing.T) {
	handle, _ := fstest.NewMountedFileSystem(t, 20)

	inumber := handle.Create()
	require.EqualValues(t, 0, inumber)

	assert.EqualValues(t, 0, handle.Stat(uint32(inumber)))
	assert.True(t, handle.Remove(uint32(inumber)))
	assert.EqualValues(t, -1, handle.Stat(uint32(inumber)))
}

// S3: small write/read.
func TestSmallWriteRead(t *testing.T) {
	handle, _ := fstest.NewMountedFileSystem(t, 20)
	inumber := uint32(handle.Create())

	payload := []byte("hello")
	written := handle.Write(inumber, payload, uint32(len(payload)), 0)
	require.EqualValues(t, len(payload), written)
	assert.EqualValues(t, len(payload), handle.Stat(inumber))

	buf := make([]byte, len(payload))
	read := handle.Read(inumber, buf, uint32(len(payload)), 0)
	require.EqualValues(t, len(payload), read)
	assert.Equal(t, payload, buf)
}

// S4: cross-block write entirely within direct pointers.
func TestCrossBlockWriteRead(t *testing.T) {
	handle, _ := fstest.NewMountedFileSystem(t, 40)
	inumber := uint32(handle.Create())

	payload := fstest.DeterministicPattern(5000)
	written := handle.Write(inumber, payload, uint32(len(payload)), 0)
	require.EqualValues(t, len(payload), written)
	assert.EqualValues(t, len(payload), handle.Stat(inumber))

	buf := make([]byte, len(payload))
	read := handle.Read(inumber, buf, uint32(len(payload)), 0)
	require.EqualValues(t, len(payload), read)
	assert.Equal(t, payload, buf)
}

// S5: a write that crosses into the indirect region.
func TestWriteIntoIndirectRegion(t *testing.T) {
	handle, dev := fstest.NewMountedFileSystem(t, 40)
	inumber := uint32(handle.Create())

	payload := fstest.DeterministicPattern(block.Size)
	offset := uint32(5 * block.Size)

	written := handle.Write(inumber, payload, uint32(len(payload)), offset)
	require.EqualValues(t, block.Size, written)
	assert.EqualValues(t, 6*block.Size, handle.Stat(inumber))

	buf := make([]byte, block.Size)
	read := handle.Read(inumber, buf, uint32(len(payload)), offset)
	require.EqualValues(t, block.Size, read)
	assert.Equal(t, payload, buf)

	raw := block.ZeroBlock()
	require.NoError(t, dev.ReadBlock(1, raw))
	inodes, err := block.DecodeInodeBlock(raw)
	require.NoError(t, err)

	inode := inodes[inumber]
	assert.NotZero(t, inode.Indirect)

	indirectRaw := block.ZeroBlock()
	require.NoError(t, dev.ReadBlock(inode.Indirect, indirectRaw))
	pointers, err := block.DecodePointerBlock(indirectRaw)
	require.NoError(t, err)

	nonzeroCount := 0
	for _, p := range pointers {
		if p != 0 {
			nonzeroCount++
		}
	}
	assert.Equal(t, 1, nonzeroCount)
}

// S6: allocator exhaustion -- a 20-block disk has 2 inode blocks, leaving
// 17 data blocks (block 0 is the superblock, blocks 1-2 are the inode
// table). A file filling them needs one of those blocks for its indirect
// pointer array, so 16 blocks of file data should succeed and exhaust the
// allocator.
func TestAllocatorExhaustion(t *testing.T) {
	handle, _ := fstest.NewMountedFileSystem(t, 20)

	geometry := block.ComputeGeometry(20)
	dataBlocks := 20 - 1 - geometry.InodeBlocks
	fileBlocks := dataBlocks - 1 // one data block becomes the indirect block

	first := uint32(handle.Create())
	payload := fstest.DeterministicPattern(int(fileBlocks) * block.Size)
	written := handle.Write(first, payload, uint32(len(payload)), 0)
	require.EqualValues(t, len(payload), written)

	second := uint32(handle.Create())
	extra := []byte{0x42}
	written = handle.Write(second, extra, 1, 0)
	assert.EqualValues(t, 0, written, "no data blocks remain")
	assert.EqualValues(t, 0, handle.Stat(second))
}

// Invariant 7: mount detects corruption.
func TestMountDetectsCorruption(t *testing.T) {
	dev := fstest.NewFormattedDevice(t, 20)
	handle := fs.New()
	require.NoError(t, handle.Mount(dev))

	inumber := uint32(handle.Create())
	payload := []byte("x")
	require.EqualValues(t, 1, handle.Write(inumber, payload, 1, 0))
	require.NoError(t, handle.Unmount())

	raw := block.ZeroBlock()
	require.NoError(t, dev.ReadBlock(1, raw))
	inodes, err := block.DecodeInodeBlock(raw)
	require.NoError(t, err)
	inodes[inumber].Direct[0] = 20 // out of range: dev has 20 blocks, valid range [0,20)
	require.NoError(t, dev.WriteBlock(1, block.EncodeInodeBlock(inodes)))

	freshHandle := fs.New()
	assert.Error(t, freshHandle.Mount(dev))
	assert.False(t, dev.IsMounted(), "mount count must not change on rejected mount")
}

// Invariant 6: remove-then-create locality.
func TestRemoveThenCreateLocality(t *testing.T) {
	handle, _ := fstest.NewMountedFileSystem(t, 20)

	inumber := uint32(handle.Create())
	require.True(t, handle.Remove(inumber))

	again := uint32(handle.Create())
	assert.Equal(t, inumber, again)
}

// Invariant 5: idempotent format.
func TestIdempotentFormat(t *testing.T) {
	dev := device.NewMemoryDevice(20)
	require.NoError(t, fs.Format(dev))

	first := snapshotDevice(t, dev)

	require.NoError(t, fs.Format(dev))
	second := snapshotDevice(t, dev)

	assert.Equal(t, first, second)
}

func snapshotDevice(t *testing.T, dev *device.MemoryDevice) []byte {
	t.Helper()
	var out []byte
	for i := uint32(0); i < dev.Size(); i++ {
		buf := block.ZeroBlock()
		require.NoError(t, dev.ReadBlock(i, buf))
		out = append(out, buf...)
	}
	return out
}

func TestFormatFailsWhenMounted(t *testing.T) {
	handle, dev := fstest.NewMountedFileSystem(t, 20)
	defer handle.Unmount()

	assert.Error(t, fs.Format(dev))
}

func TestMountFailsWhenAlreadyMounted(t *testing.T) {
	handle, dev := fstest.NewMountedFileSystem(t, 20)
	defer handle.Unmount()

	other := fs.New()
	assert.Error(t, other.Mount(dev))
}

func TestOperationsFailWhenNotMounted(t *testing.T) {
	handle := fs.New()
	assert.EqualValues(t, -1, handle.Create())
	assert.False(t, handle.Remove(0))
	assert.EqualValues(t, -1, handle.Stat(0))
	assert.EqualValues(t, -1, handle.Read(0, make([]byte, 1), 1, 0))
	assert.EqualValues(t, -1, handle.Write(0, []byte{1}, 1, 0))
}

func TestWriteRejectsFileTooLarge(t *testing.T) {
	handle, _ := fstest.NewMountedFileSystem(t, 20)
	inumber := uint32(handle.Create())

	written := handle.Write(inumber, []byte{1}, 1, block.MaxFileSize)
	assert.EqualValues(t, -1, written)
}

func TestReadOffsetPastEndReturnsZero(t *testing.T) {
	handle, _ := fstest.NewMountedFileSystem(t, 20)
	inumber := uint32(handle.Create())
	require.EqualValues(t, 5, handle.Write(inumber, []byte("hello"), 5, 0))

	buf := make([]byte, 10)
	assert.EqualValues(t, 0, handle.Read(inumber, buf, 10, 100))
}

func TestMountReportCollectsAllCorruption(t *testing.T) {
	dev := fstest.NewFormattedDevice(t, 20)
	handle := fs.New()
	require.NoError(t, handle.Mount(dev))
	a := uint32(handle.Create())
	b := uint32(handle.Create())
	require.NoError(t, handle.Unmount())

	raw := block.ZeroBlock()
	require.NoError(t, dev.ReadBlock(1, raw))
	inodes, err := block.DecodeInodeBlock(raw)
	require.NoError(t, err)
	inodes[a].Direct[0] = 999
	inodes[b].Direct[0] = 998
	require.NoError(t, dev.WriteBlock(1, block.EncodeInodeBlock(inodes)))

	err = fs.MountReport(dev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors")
}
