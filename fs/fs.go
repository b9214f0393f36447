// Package fs implements the file system core: on-disk layout, mount-time
// integrity reconstruction, and the direct + single-indirect block-addressed
// read/write engine described by the design this repository implements.
//
// A [FileSystem] value owns the in-memory free-block bitmap and per-inode-
// block population counters for exactly one mounted [device.Device]. It
// holds a non-owning reference to that device; nothing here is safe for
// concurrent use by more than one goroutine without an external mutex
// serializing calls to the whole handle.
package fs

import (
	"github.com/dargueta/sfs/allocator"
	"github.com/dargueta/sfs/block"
	"github.com/dargueta/sfs/device"
	"github.com/dargueta/sfs/errors"
	"github.com/hashicorp/go-multierror"
)

// FileSystem is a mounted (or not-yet-mounted) handle onto a block device.
// The zero value is usable and represents an unmounted handle.
type FileSystem struct {
	device device.Device
	sb     block.Superblock
	alloc  *allocator.Allocator
}

// New returns an unmounted file system handle.
func New() *FileSystem {
	return &FileSystem{}
}

// IsMounted reports whether this handle currently has a device mounted.
func (fs *FileSystem) IsMounted() bool {
	return fs.device != nil
}

// Format initializes a fresh, empty file system on dev: a zeroed superblock
// with geometry derived from the device's size, a zeroed inode table, and a
// zeroed data region. It fails if the device is currently mounted, and is
// otherwise idempotent -- formatting twice in a row produces a bit-identical
// image.
func Format(dev device.Device) error {
	if dev.IsMounted() {
		return errors.ErrAlreadyMounted
	}

	sb := block.ComputeGeometry(dev.Size())
	if err := dev.WriteBlock(0, block.EncodeSuperblock(sb)); err != nil {
		return errors.ErrIOFailure.WrapError(err)
	}

	var emptyInodes [block.InodesPerBlock]block.Inode
	emptyInodeBlock := block.EncodeInodeBlock(emptyInodes)
	for i := uint32(1); i <= sb.InodeBlocks; i++ {
		if err := dev.WriteBlock(i, emptyInodeBlock); err != nil {
			return errors.ErrIOFailure.WrapError(err)
		}
	}

	zeroed := block.ZeroBlock()
	for i := sb.InodeBlocks + 1; i < sb.Blocks; i++ {
		if err := dev.WriteBlock(i, zeroed); err != nil {
			return errors.ErrIOFailure.WrapError(err)
		}
	}

	return nil
}

// Mount validates dev's superblock, reconstructs the free-block bitmap and
// population counters by walking every valid inode, and attaches dev to fs.
// It fails without mutating dev's mount count if the superblock is invalid
// or any inode/indirect pointer references a block outside [0, blocks).
func (fs *FileSystem) Mount(dev device.Device) error {
	if dev.IsMounted() {
		return errors.ErrAlreadyMounted
	}

	sb, err := readSuperblock(dev)
	if err != nil {
		return err
	}
	if err := sb.Validate(); err != nil {
		return err
	}

	alloc, err := reconstructAllocator(dev, sb, false)
	if err != nil {
		return err
	}

	if err := dev.Mount(); err != nil {
		return errors.ErrIOFailure.WrapError(err)
	}

	fs.device = dev
	fs.sb = sb
	fs.alloc = alloc
	return nil
}

// Unmount releases the in-memory bitmap and population counters and detaches
// the device. It is always safe to call, regardless of how many prior
// operations succeeded; calling it on an already-unmounted handle is a
// no-op error, not a panic.
func (fs *FileSystem) Unmount() error {
	if !fs.IsMounted() {
		return errors.ErrNotMounted
	}

	err := fs.device.Unmount()
	fs.device = nil
	fs.sb = block.Superblock{}
	fs.alloc = nil
	if err != nil {
		return errors.ErrIOFailure.WrapError(err)
	}
	return nil
}

func readSuperblock(dev device.Device) (block.Superblock, error) {
	raw := block.ZeroBlock()
	if err := dev.ReadBlock(0, raw); err != nil {
		return block.Superblock{}, errors.ErrIOFailure.WrapError(err)
	}
	sb, err := block.DecodeSuperblock(raw)
	if err != nil {
		return block.Superblock{}, errors.ErrBadSuperblock.WrapError(err)
	}
	return sb, nil
}

// reconstructAllocator walks every inode block, building the free-block
// bitmap and population counters from scratch. If collectAll is false, it
// aborts and returns the first corrupt reference it finds. If collectAll is
// true, it keeps walking and returns every corrupt reference found, joined
// with [multierror], for use by [MountReport].
func reconstructAllocator(
	dev device.Device, sb block.Superblock, collectAll bool,
) (*allocator.Allocator, error) {
	alloc := allocator.New(sb.Blocks, sb.InodeBlocks)
	var problems error

	// reportCorruption returns a non-nil error when the walk must abort
	// immediately (collectAll == false); otherwise it records the problem
	// and lets the walk continue so [MountReport] can surface every
	// corrupt reference in one pass.
	reportCorruption := func(message string) error {
		err := errors.ErrCorruptReference.WithMessage(message)
		if !collectAll {
			return err
		}
		problems = multierror.Append(problems, err)
		return nil
	}

	for i := uint32(1); i <= sb.InodeBlocks; i++ {
		raw := block.ZeroBlock()
		if err := dev.ReadBlock(i, raw); err != nil {
			return nil, errors.ErrIOFailure.WrapError(err)
		}
		inodes, err := block.DecodeInodeBlock(raw)
		if err != nil {
			return nil, errors.ErrIOFailure.WrapError(err)
		}

		for _, inode := range inodes {
			if !inode.IsValid() {
				continue
			}
			_ = alloc.IncrementPopulation(i)

			for _, direct := range inode.Direct {
				if direct == 0 {
					continue
				}
				if direct >= sb.Blocks {
					if err := reportCorruption("direct pointer out of range"); err != nil {
						return nil, err
					}
					continue
				}
				_ = alloc.MarkUsed(direct)
			}

			if inode.Indirect == 0 {
				continue
			}
			if inode.Indirect >= sb.Blocks {
				if err := reportCorruption("indirect pointer out of range"); err != nil {
					return nil, err
				}
				continue
			}
			_ = alloc.MarkUsed(inode.Indirect)

			indirectRaw := block.ZeroBlock()
			if err := dev.ReadBlock(inode.Indirect, indirectRaw); err != nil {
				return nil, errors.ErrIOFailure.WrapError(err)
			}
			pointers, err := block.DecodePointerBlock(indirectRaw)
			if err != nil {
				return nil, errors.ErrIOFailure.WrapError(err)
			}
			for _, ptr := range pointers {
				if ptr == 0 {
					continue
				}
				if ptr >= sb.Blocks {
					if err := reportCorruption("indirect data pointer out of range"); err != nil {
						return nil, err
					}
					continue
				}
				_ = alloc.MarkUsed(ptr)
			}
		}
	}

	if collectAll && problems != nil {
		return nil, problems
	}
	return alloc, nil
}

// MountReport walks dev's inode table the same way [FileSystem.Mount] does,
// but instead of aborting on the first corrupt reference it collects every
// one it finds and returns them joined together. It never mutates dev's
// mount count or attaches it to a handle; it's read-only diagnostic tooling
// for the CLI's check command.
func MountReport(dev device.Device) error {
	sb, err := readSuperblock(dev)
	if err != nil {
		return err
	}
	if err := sb.Validate(); err != nil {
		return err
	}

	_, err = reconstructAllocator(dev, sb, true)
	return err
}
