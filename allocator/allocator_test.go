package allocator_test

import (
	"testing"

	"github.com/dargueta/sfs/allocator"
	"github.com/dargueta/sfs/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator() *allocator.Allocator {
	// 20 blocks -> 2 inode blocks (1, 2), data region starts at block 3.
	return allocator.New(20, 2)
}

func TestNewMarksReservedRegionInUse(t *testing.T) {
	a := newTestAllocator()
	assert.True(t, a.IsUsed(0))
	assert.True(t, a.IsUsed(1))
	assert.True(t, a.IsUsed(2))
	assert.False(t, a.IsUsed(3))
	assert.EqualValues(t, 3, a.DataRegionStart())
}

func TestAllocateDataBlockLowestFirst(t *testing.T) {
	a := newTestAllocator()

	first := a.AllocateDataBlock()
	assert.EqualValues(t, 3, first)

	second := a.AllocateDataBlock()
	assert.EqualValues(t, 4, second)

	require.NoError(t, a.MarkFree(first))
	third := a.AllocateDataBlock()
	assert.EqualValues(t, first, third, "freed lowest block should be reused first")
}

func TestAllocateDataBlockExhaustion(t *testing.T) {
	a := newTestAllocator()
	for i := a.DataRegionStart(); i < 20; i++ {
		require.NotZero(t, a.AllocateDataBlock())
	}
	assert.Zero(t, a.AllocateDataBlock(), "no free blocks remain")
}

func TestPopulationCounters(t *testing.T) {
	a := newTestAllocator()
	assert.EqualValues(t, 0, a.Population(1))
	assert.False(t, a.IsFull(1))

	for i := 0; i < block.InodesPerBlock; i++ {
		require.NoError(t, a.IncrementPopulation(1))
	}
	assert.True(t, a.IsFull(1))
	assert.EqualValues(t, block.InodesPerBlock, a.TotalPopulation())
}

func TestDecrementPopulationFreesInodeBlock(t *testing.T) {
	a := newTestAllocator()
	require.NoError(t, a.IncrementPopulation(2))
	assert.True(t, a.IsUsed(2))

	require.NoError(t, a.DecrementPopulation(2))
	assert.False(t, a.IsUsed(2), "inode block with zero population should be freed")
}

func TestInodeBlockOutOfRange(t *testing.T) {
	a := newTestAllocator()
	assert.Error(t, a.IncrementPopulation(0))
	assert.Error(t, a.IncrementPopulation(3))
}
