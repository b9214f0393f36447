package fs

import (
	"fmt"
	"io"

	"github.com/dargueta/sfs/block"
	"github.com/dargueta/sfs/device"
	"github.com/dargueta/sfs/errors"
)

// Debug prints a human-readable description of dev's superblock and every
// valid inode's block list to w. dev does not need to be mounted through a
// [FileSystem] handle; Debug reads it directly, the way a standalone fsck
// tool would.
func Debug(w io.Writer, dev device.Device) error {
	sb, err := readSuperblock(dev)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "SuperBlock:")
	if sb.Magic == block.SuperblockMagic {
		fmt.Fprintln(w, "    magic number is valid")
	} else {
		fmt.Fprintln(w, "    magic number is invalid")
	}
	fmt.Fprintf(w, "    %d blocks\n", sb.Blocks)
	fmt.Fprintf(w, "    %d inode blocks\n", sb.InodeBlocks)
	fmt.Fprintf(w, "    %d inodes\n", sb.Inodes)

	for blockIndex := uint32(1); blockIndex <= sb.InodeBlocks; blockIndex++ {
		raw := block.ZeroBlock()
		if err := dev.ReadBlock(blockIndex, raw); err != nil {
			return errors.ErrIOFailure.WrapError(err)
		}
		inodes, err := block.DecodeInodeBlock(raw)
		if err != nil {
			return errors.ErrIOFailure.WrapError(err)
		}

		for slot, inode := range inodes {
			if !inode.IsValid() {
				continue
			}

			inumber := (blockIndex-1)*block.InodesPerBlock + uint32(slot)
			fmt.Fprintf(w, "Inode %d:\n", inumber)
			fmt.Fprintf(w, "    size: %d bytes\n", inode.Size)

			fmt.Fprint(w, "    direct blocks:")
			for _, p := range nonzero(inode.Direct[:]) {
				fmt.Fprintf(w, " %d", p)
			}
			fmt.Fprintln(w)

			if inode.Indirect != 0 {
				fmt.Fprintf(w, "    indirect block: %d\n", inode.Indirect)

				indirectRaw := block.ZeroBlock()
				if err := dev.ReadBlock(inode.Indirect, indirectRaw); err != nil {
					return errors.ErrIOFailure.WrapError(err)
				}
				pointers, err := block.DecodePointerBlock(indirectRaw)
				if err != nil {
					return errors.ErrIOFailure.WrapError(err)
				}

				fmt.Fprint(w, "    indirect data blocks:")
				for _, p := range nonzero(pointers[:]) {
					fmt.Fprintf(w, " %d", p)
				}
				fmt.Fprintln(w)
			}
		}
	}

	return nil
}

func nonzero(pointers []block.Pointer) []block.Pointer {
	result := make([]block.Pointer, 0, len(pointers))
	for _, p := range pointers {
		if p != 0 {
			result = append(result, p)
		}
	}
	return result
}
