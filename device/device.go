// Package device defines the block device contract the file system core is
// built against, and two implementations: an in-memory device for tests and
// scratch work, and a real file-backed device for the CLI.
//
// The core treats every call through this contract as infallible at the
// signature level: I/O errors come back as Go errors and the caller aborts
// the operation, but there is no separate "maybe it silently corrupted
// things" state to reason about.
package device

import (
	"fmt"
	"io"
	"os"

	"github.com/dargueta/sfs/block"
	"github.com/xaionaro-go/bytesextra"
)

// Device is the external collaborator the file system core is built on top
// of: a sized, addressable array of fixed-size blocks with mount-count
// bookkeeping. Implementations are expected to fail loudly (return an
// error) when a block index is out of range.
type Device interface {
	// Size returns the total number of blocks on the device.
	Size() uint32

	// ReadBlock fills buf (which must be exactly [block.Size] bytes) with the
	// contents of the block at the given index.
	ReadBlock(index uint32, buf []byte) error

	// WriteBlock writes buf (which must be exactly [block.Size] bytes) to the
	// block at the given index.
	WriteBlock(index uint32, buf []byte) error

	// Mount records that a file system handle has attached to this device.
	Mount() error

	// Unmount records that a file system handle has detached from this
	// device.
	Unmount() error

	// IsMounted reports whether a handle currently has this device mounted.
	IsMounted() bool
}

// streamDevice is the shared implementation for every [Device] in this
// package: block-addressed I/O over an arbitrary [io.ReadWriteSeeker], plus
// an advisory mount counter. Block 0 is never special-cased here -- the
// file system core is what assigns meaning to particular block indices.
type streamDevice struct {
	stream      io.ReadWriteSeeker
	totalBlocks uint32
	mountCount  uint
}

func (d *streamDevice) Size() uint32 {
	return d.totalBlocks
}

func (d *streamDevice) checkBounds(index uint32, bufLen int) error {
	if index >= d.totalBlocks {
		return fmt.Errorf("block index %d not in range [0, %d)", index, d.totalBlocks)
	}
	if bufLen != block.Size {
		return fmt.Errorf("buffer must be exactly %d bytes, got %d", block.Size, bufLen)
	}
	return nil
}

func (d *streamDevice) ReadBlock(index uint32, buf []byte) error {
	if err := d.checkBounds(index, len(buf)); err != nil {
		return err
	}
	if _, err := d.stream.Seek(int64(index)*block.Size, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(d.stream, buf)
	return err
}

func (d *streamDevice) WriteBlock(index uint32, buf []byte) error {
	if err := d.checkBounds(index, len(buf)); err != nil {
		return err
	}
	if _, err := d.stream.Seek(int64(index)*block.Size, io.SeekStart); err != nil {
		return err
	}
	_, err := d.stream.Write(buf)
	return err
}

func (d *streamDevice) Mount() error {
	d.mountCount++
	return nil
}

func (d *streamDevice) Unmount() error {
	if d.mountCount > 0 {
		d.mountCount--
	}
	return nil
}

func (d *streamDevice) IsMounted() bool {
	return d.mountCount > 0
}

// MemoryDevice is a [Device] backed entirely by an in-memory byte slice via
// [bytesextra.NewReadWriteSeeker]. It never touches disk; it exists for
// tests and scratch work.
type MemoryDevice struct {
	streamDevice
}

// NewMemoryDevice creates a zeroed device with room for totalBlocks blocks.
func NewMemoryDevice(totalBlocks uint32) *MemoryDevice {
	backing := make([]byte, uint64(totalBlocks)*block.Size)
	return &MemoryDevice{streamDevice{
		stream:      bytesextra.NewReadWriteSeeker(backing),
		totalBlocks: totalBlocks,
	}}
}

// WrapBytes creates a device over an existing byte slice, whose length must
// be an exact multiple of [block.Size]. Useful for loading a previously
// formatted image held in memory.
func WrapBytes(data []byte) (*MemoryDevice, error) {
	if len(data)%block.Size != 0 {
		return nil, fmt.Errorf(
			"image size %d is not a multiple of the block size (%d)",
			len(data), block.Size,
		)
	}
	return &MemoryDevice{streamDevice{
		stream:      bytesextra.NewReadWriteSeeker(data),
		totalBlocks: uint32(len(data) / block.Size),
	}}, nil
}

// FileDevice is a [Device] backed by a real file on disk, opened by the
// caller. Its size in blocks is fixed at open time from the file's length.
type FileDevice struct {
	streamDevice
	file *os.File
}

// NewFileDevice wraps an already-open file as a device. The file's size must
// already be an exact multiple of [block.Size]; the CLI's format command
// truncates a new file to the required length before wrapping it.
func NewFileDevice(file *os.File) (*FileDevice, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size()%block.Size != 0 {
		return nil, fmt.Errorf(
			"file size %d is not a multiple of the block size (%d)",
			info.Size(), block.Size,
		)
	}

	return &FileDevice{
		streamDevice: streamDevice{
			stream:      file,
			totalBlocks: uint32(info.Size() / block.Size),
		},
		file: file,
	}, nil
}

// Close closes the underlying file.
func (d *FileDevice) Close() error {
	return d.file.Close()
}
