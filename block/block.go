// Package block implements the four on-disk interpretations of a single
// fixed-size block: raw bytes, the superblock, an inode table slice, and an
// indirect pointer array. Every integer is stored little-endian; this repo
// picks that convention explicitly (the original source is host-endian,
// format compatibility across machines was never a goal) so images are
// portable across little-endian hosts and test fixtures are reproducible
// regardless of the machine running them.
package block

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/sfs/errors"
	"github.com/noxer/bytewriter"
)

// Size is the fixed size of every block on the device, in bytes.
const Size = 4096

// SuperblockMagic identifies a correctly formatted disk image.
const SuperblockMagic = uint32(0xf0f03410)

// InodesPerBlock is the number of 32-byte inodes that fit in one block.
const InodesPerBlock = Size / 32

// PointersPerBlock is the number of 4-byte pointers that fit in one
// indirect block.
const PointersPerBlock = Size / 4

// PointersPerInode is the number of direct block pointers stored in an
// inode.
const PointersPerInode = 5

// Pointer is a 32-bit block index used by indirect blocks and inode pointer
// arrays. Zero means "hole" everywhere it is used.
type Pointer = uint32

// Superblock is the on-disk layout of block 0.
type Superblock struct {
	Magic       uint32
	Blocks      uint32
	InodeBlocks uint32
	Inodes      uint32
}

// Inode is the on-disk, 32-byte layout of a single inode table entry.
type Inode struct {
	Valid    uint32
	Size     uint32
	Direct   [PointersPerInode]uint32
	Indirect uint32
}

// IsValid reports whether the inode's Valid flag is set.
func (inode *Inode) IsValid() bool {
	return inode.Valid != 0
}

// MaxFileSize is the largest size, in bytes, an inode can address: five
// direct blocks plus one indirect block's worth of pointers.
const MaxFileSize = (PointersPerInode + PointersPerBlock) * Size

// DecodeSuperblock parses a raw block into a Superblock. raw must be exactly
// [Size] bytes; only the first 16 bytes carry meaning, the rest is padding.
func DecodeSuperblock(raw []byte) (Superblock, error) {
	if len(raw) != Size {
		return Superblock{}, fmt.Errorf("superblock buffer must be %d bytes, got %d", Size, len(raw))
	}

	var sb Superblock
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &sb); err != nil {
		return Superblock{}, errors.ErrIOFailure.WrapError(err)
	}
	return sb, nil
}

// EncodeSuperblock renders a Superblock as a zero-padded [Size]-byte block.
func EncodeSuperblock(sb Superblock) []byte {
	buffer := make([]byte, Size)
	writer := bytewriter.New(buffer)
	_ = binary.Write(writer, binary.LittleEndian, &sb)
	return buffer
}

// DecodeInodeBlock parses a raw block into its 128 inode slots, in order.
func DecodeInodeBlock(raw []byte) ([InodesPerBlock]Inode, error) {
	var inodes [InodesPerBlock]Inode
	if len(raw) != Size {
		return inodes, fmt.Errorf("inode block buffer must be %d bytes, got %d", Size, len(raw))
	}

	reader := bytes.NewReader(raw)
	for i := range inodes {
		if err := binary.Read(reader, binary.LittleEndian, &inodes[i]); err != nil {
			return inodes, errors.ErrIOFailure.WrapError(err)
		}
	}
	return inodes, nil
}

// EncodeInodeBlock renders 128 inode slots as a [Size]-byte block.
func EncodeInodeBlock(inodes [InodesPerBlock]Inode) []byte {
	buffer := make([]byte, Size)
	writer := bytewriter.New(buffer)
	for i := range inodes {
		_ = binary.Write(writer, binary.LittleEndian, &inodes[i])
	}
	return buffer
}

// DecodePointerBlock parses a raw block into its 1024-entry pointer array,
// the layout of an indirect block.
func DecodePointerBlock(raw []byte) ([PointersPerBlock]Pointer, error) {
	var pointers [PointersPerBlock]Pointer
	if len(raw) != Size {
		return pointers, fmt.Errorf("pointer block buffer must be %d bytes, got %d", Size, len(raw))
	}

	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &pointers); err != nil {
		return pointers, errors.ErrIOFailure.WrapError(err)
	}
	return pointers, nil
}

// EncodePointerBlock renders a 1024-entry pointer array as a [Size]-byte
// block.
func EncodePointerBlock(pointers [PointersPerBlock]Pointer) []byte {
	buffer := make([]byte, Size)
	writer := bytewriter.New(buffer)
	_ = binary.Write(writer, binary.LittleEndian, &pointers)
	return buffer
}

// ZeroBlock returns a fresh, zeroed block buffer.
func ZeroBlock() []byte {
	return make([]byte, Size)
}

// ComputeGeometry derives the expected superblock fields from a device's raw
// block count: inode_blocks = ceil(blocks / 10), inodes = inode_blocks *
// InodesPerBlock.
func ComputeGeometry(totalBlocks uint32) Superblock {
	inodeBlocks := (totalBlocks + 9) / 10
	return Superblock{
		Magic:       SuperblockMagic,
		Blocks:      totalBlocks,
		InodeBlocks: inodeBlocks,
		Inodes:      inodeBlocks * InodesPerBlock,
	}
}

// Validate checks the superblock against the geometry a device of its
// claimed size should have, per the format's invariants.
func (sb Superblock) Validate() error {
	if sb.Magic != SuperblockMagic {
		return errors.ErrBadSuperblock.WithMessage(
			fmt.Sprintf("magic number 0x%x does not match 0x%x", sb.Magic, SuperblockMagic),
		)
	}

	expected := ComputeGeometry(sb.Blocks)
	if sb.InodeBlocks != expected.InodeBlocks {
		return errors.ErrBadSuperblock.WithMessage(
			fmt.Sprintf(
				"inode_blocks is %d, expected %d for %d blocks",
				sb.InodeBlocks, expected.InodeBlocks, sb.Blocks,
			),
		)
	}
	if sb.Inodes != expected.Inodes {
		return errors.ErrBadSuperblock.WithMessage(
			fmt.Sprintf("inodes is %d, expected %d", sb.Inodes, expected.Inodes),
		)
	}
	return nil
}
