package fs

import (
	"github.com/dargueta/sfs/block"
	"github.com/dargueta/sfs/errors"
)

// inodeAddress returns the inode block (a device block index in
// [1, inodeBlocks]) and slot within that block for a zero-based inumber.
func inodeAddress(inumber uint32) (blockIndex uint32, slot uint32) {
	return inumber/block.InodesPerBlock + 1, inumber % block.InodesPerBlock
}

func (fs *FileSystem) readInodeBlock(blockIndex uint32) ([block.InodesPerBlock]block.Inode, error) {
	var inodes [block.InodesPerBlock]block.Inode
	raw := block.ZeroBlock()
	if err := fs.device.ReadBlock(blockIndex, raw); err != nil {
		return inodes, errors.ErrIOFailure.WrapError(err)
	}
	decoded, err := block.DecodeInodeBlock(raw)
	if err != nil {
		return inodes, errors.ErrIOFailure.WrapError(err)
	}
	return decoded, nil
}

func (fs *FileSystem) writeInodeBlock(blockIndex uint32, inodes [block.InodesPerBlock]block.Inode) error {
	if err := fs.device.WriteBlock(blockIndex, block.EncodeInodeBlock(inodes)); err != nil {
		return errors.ErrIOFailure.WrapError(err)
	}
	return nil
}

// findInode looks up an inode by inumber. The bool return is false when the
// inumber is structurally valid but names an empty slot -- either its inode
// block currently holds no valid inodes (the population fast-reject) or the
// specific slot's valid flag is unset. err is only non-nil for usage errors:
// not mounted, or inumber >= total inode count.
func (fs *FileSystem) findInode(inumber uint32) (block.Inode, bool, error) {
	if !fs.IsMounted() {
		return block.Inode{}, false, errors.ErrNotMounted
	}
	if inumber >= fs.sb.Inodes {
		return block.Inode{}, false, errors.ErrOutOfRangeInumber
	}

	blockIndex, slot := inodeAddress(inumber)
	if fs.alloc.Population(blockIndex) == 0 {
		return block.Inode{}, false, nil
	}

	inodes, err := fs.readInodeBlock(blockIndex)
	if err != nil {
		return block.Inode{}, false, err
	}

	inode := inodes[slot]
	if !inode.IsValid() {
		return block.Inode{}, false, nil
	}
	return inode, true, nil
}

// storeInode overwrites the slot for inumber with inode and persists the
// containing inode block.
func (fs *FileSystem) storeInode(inumber uint32, inode block.Inode) error {
	if !fs.IsMounted() {
		return errors.ErrNotMounted
	}
	if inumber >= fs.sb.Inodes {
		return errors.ErrOutOfRangeInumber
	}

	blockIndex, slot := inodeAddress(inumber)
	inodes, err := fs.readInodeBlock(blockIndex)
	if err != nil {
		return err
	}
	inodes[slot] = inode
	return fs.writeInodeBlock(blockIndex, inodes)
}

// Create allocates the first free inode slot, scanning inode blocks in order
// and skipping any block whose population counter already reports it full.
// It returns the new inumber, or -1 if every inode slot is in use.
func (fs *FileSystem) Create() int64 {
	if !fs.IsMounted() {
		return -1
	}

	for blockIndex := uint32(1); blockIndex <= fs.sb.InodeBlocks; blockIndex++ {
		if fs.alloc.IsFull(blockIndex) {
			continue
		}

		inodes, err := fs.readInodeBlock(blockIndex)
		if err != nil {
			return -1
		}

		for slot := range inodes {
			if inodes[slot].IsValid() {
				continue
			}

			inodes[slot] = block.Inode{Valid: 1}
			if err := fs.writeInodeBlock(blockIndex, inodes); err != nil {
				return -1
			}
			_ = fs.alloc.IncrementPopulation(blockIndex)
			_ = fs.alloc.MarkUsed(blockIndex)

			return int64((blockIndex-1)*block.InodesPerBlock + uint32(slot))
		}
	}

	return -1
}

// Remove deletes the inode identified by inumber, freeing every block it
// referenced -- its direct blocks, its indirect block, and every block the
// indirect block pointed to -- and clearing the inode slot itself. It
// returns false if the inode doesn't exist or isn't valid.
func (fs *FileSystem) Remove(inumber uint32) bool {
	inode, ok, err := fs.findInode(inumber)
	if err != nil || !ok {
		return false
	}

	blockIndex, _ := inodeAddress(inumber)
	_ = fs.alloc.DecrementPopulation(blockIndex)

	for _, direct := range inode.Direct {
		if direct != 0 {
			_ = fs.alloc.MarkFree(direct)
		}
	}

	if inode.Indirect != 0 {
		raw := block.ZeroBlock()
		if err := fs.device.ReadBlock(inode.Indirect, raw); err == nil {
			if pointers, err := block.DecodePointerBlock(raw); err == nil {
				for _, ptr := range pointers {
					if ptr != 0 {
						_ = fs.alloc.MarkFree(ptr)
					}
				}
			}
		}
		_ = fs.alloc.MarkFree(inode.Indirect)
	}

	if err := fs.storeInode(inumber, block.Inode{}); err != nil {
		return false
	}
	return true
}

// Stat returns the size, in bytes, of the inode identified by inumber, or -1
// if it doesn't exist or isn't valid.
func (fs *FileSystem) Stat(inumber uint32) int64 {
	inode, ok, err := fs.findInode(inumber)
	if err != nil || !ok {
		return -1
	}
	return int64(inode.Size)
}
