// Package allocator owns the two pieces of in-memory, mount-session-scoped
// state the file system core needs: the free-block bitmap and the
// per-inode-block population counters. Neither is ever persisted; both are
// rebuilt from scratch by walking every inode at mount time.
package allocator

import (
	"fmt"

	"github.com/dargueta/sfs/block"
	bitmap "github.com/boljen/go-bitmap"
)

// Allocator tracks which blocks on a mounted device are in use and how many
// valid inodes each inode block currently holds. It allocates the
// lowest-indexed unused data block, the same tie-break the original source
// uses.
type Allocator struct {
	inUse       bitmap.Bitmap
	population  []uint16
	totalBlocks uint32
	inodeBlocks uint32
}

// New creates an allocator for a device with the given total block count and
// inode block count. Block 0 (the superblock) and blocks 1..=inodeBlocks
// (the inode table) start out marked in use; every data block starts free.
func New(totalBlocks, inodeBlocks uint32) *Allocator {
	a := &Allocator{
		inUse:       bitmap.New(int(totalBlocks)),
		population:  make([]uint16, inodeBlocks),
		totalBlocks: totalBlocks,
		inodeBlocks: inodeBlocks,
	}

	a.inUse.Set(0, true)
	for i := uint32(1); i <= inodeBlocks; i++ {
		a.inUse.Set(int(i), true)
	}
	return a
}

// DataRegionStart is the first block index eligible for data-block
// allocation: the block immediately following the inode table.
func (a *Allocator) DataRegionStart() uint32 {
	return a.inodeBlocks + 1
}

// MarkUsed flags a block as in use. It is a no-op for blocks already in use,
// including the superblock and inode table, which [New] marks in use from
// the start.
func (a *Allocator) MarkUsed(index uint32) error {
	if index >= a.totalBlocks {
		return fmt.Errorf("block index %d not in range [0, %d)", index, a.totalBlocks)
	}
	a.inUse.Set(int(index), true)
	return nil
}

// MarkFree flags a block as no longer in use.
func (a *Allocator) MarkFree(index uint32) error {
	if index >= a.totalBlocks {
		return fmt.Errorf("block index %d not in range [0, %d)", index, a.totalBlocks)
	}
	a.inUse.Set(int(index), false)
	return nil
}

// IsUsed reports whether a block is currently marked in use.
func (a *Allocator) IsUsed(index uint32) bool {
	if index >= a.totalBlocks {
		return false
	}
	return a.inUse.Get(int(index))
}

// AllocateDataBlock scans the data region (blocks inodeBlocks+1..totalBlocks-1)
// for the lowest-indexed free block, marks it in use, and returns its index.
// It returns 0 if no free data block is available -- 0 is never a legal data
// block because it's always the superblock, so this is an unambiguous
// failure signal to callers that already rejected index 0 from the scan.
func (a *Allocator) AllocateDataBlock() uint32 {
	start := a.DataRegionStart()
	for i := start; i < a.totalBlocks; i++ {
		if !a.inUse.Get(int(i)) {
			a.inUse.Set(int(i), true)
			return i
		}
	}
	return 0
}

func (a *Allocator) checkInodeBlock(inodeBlockIndex uint32) (int, error) {
	if inodeBlockIndex < 1 || inodeBlockIndex > a.inodeBlocks {
		return 0, fmt.Errorf(
			"inode block %d not in range [1, %d]", inodeBlockIndex, a.inodeBlocks,
		)
	}
	return int(inodeBlockIndex - 1), nil
}

// Population returns the number of valid inodes currently stored in the
// given inode block (a device block index in [1, inodeBlocks]).
func (a *Allocator) Population(inodeBlockIndex uint32) uint16 {
	slot, err := a.checkInodeBlock(inodeBlockIndex)
	if err != nil {
		return 0
	}
	return a.population[slot]
}

// IsFull reports whether an inode block already holds the maximum number of
// valid inodes and should be skipped during inode creation.
func (a *Allocator) IsFull(inodeBlockIndex uint32) bool {
	return a.Population(inodeBlockIndex) >= block.InodesPerBlock
}

// IncrementPopulation records that one more inode in the given inode block
// became valid.
func (a *Allocator) IncrementPopulation(inodeBlockIndex uint32) error {
	slot, err := a.checkInodeBlock(inodeBlockIndex)
	if err != nil {
		return err
	}
	a.population[slot]++
	return nil
}

// DecrementPopulation records that one inode in the given inode block was
// removed. If the count reaches zero, the inode block's own bitmap bit is
// cleared -- an empty inode block is no longer "in use."
func (a *Allocator) DecrementPopulation(inodeBlockIndex uint32) error {
	slot, err := a.checkInodeBlock(inodeBlockIndex)
	if err != nil {
		return err
	}
	if a.population[slot] > 0 {
		a.population[slot]--
	}
	if a.population[slot] == 0 {
		return a.MarkFree(inodeBlockIndex)
	}
	return nil
}

// InodeBlockCount returns the number of inode blocks this allocator was
// built for.
func (a *Allocator) InodeBlockCount() uint32 {
	return a.inodeBlocks
}

// TotalPopulation sums the population counters across every inode block --
// used by the inode-count-conservation testable property.
func (a *Allocator) TotalPopulation() uint64 {
	var total uint64
	for _, count := range a.population {
		total += uint64(count)
	}
	return total
}
