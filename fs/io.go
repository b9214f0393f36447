package fs

import (
	"github.com/dargueta/sfs/block"
)

const indirectRegionStart = block.PointersPerInode * block.Size

// blockSlot maps a logical byte offset within a file to the slot that
// addresses its block: either a direct slot (0..4) or an indirect slot
// (0..1023). The byte's offset within that block is n % block.Size.
func blockSlot(n uint32) (isDirect bool, slot uint32) {
	if n < indirectRegionStart {
		return true, n / block.Size
	}
	return false, (n - indirectRegionStart) / block.Size
}

// Read copies up to length bytes starting at offset from the inode
// identified by inumber into buf, and returns the number of bytes actually
// copied. It returns 0 if offset is at or past the end of the file, and
// clamps length so the read never runs past the file's recorded size. It
// returns -1 if the inode doesn't exist.
func (fs *FileSystem) Read(inumber uint32, buf []byte, length, offset uint32) int64 {
	inode, ok, err := fs.findInode(inumber)
	if err != nil || !ok {
		return -1
	}

	if offset >= inode.Size {
		return 0
	}
	if offset+length > inode.Size {
		length = inode.Size - offset
	}
	if length == 0 {
		return 0
	}

	var indirect [block.PointersPerBlock]block.Pointer
	indirectLoaded := false

	var totalRead uint32
	cursor := offset

	for totalRead < length {
		isDirect, slot := blockSlot(cursor)

		var ptr block.Pointer
		if isDirect {
			ptr = inode.Direct[slot]
		} else {
			if !indirectLoaded {
				if inode.Indirect == 0 {
					break
				}
				raw := block.ZeroBlock()
				if err := fs.device.ReadBlock(inode.Indirect, raw); err != nil {
					break
				}
				decoded, err := block.DecodePointerBlock(raw)
				if err != nil {
					break
				}
				indirect = decoded
				indirectLoaded = true
			}
			ptr = indirect[slot]
		}

		// A zero pointer within the valid-size region is a read-as-zero
		// hole. In practice size only ever reflects the highest byte
		// actually written, so this shouldn't happen -- if it does, stop
		// and return what's been read so far rather than fabricate zero
		// bytes.
		if ptr == 0 {
			break
		}

		intraOffset := cursor % block.Size
		chunk := block.Size - intraOffset
		if remaining := length - totalRead; chunk > remaining {
			chunk = remaining
		}

		raw := block.ZeroBlock()
		if err := fs.device.ReadBlock(ptr, raw); err != nil {
			break
		}
		copy(buf[totalRead:totalRead+chunk], raw[intraOffset:intraOffset+chunk])

		totalRead += chunk
		cursor += chunk
	}

	return int64(totalRead)
}

// Write copies up to length bytes from buf into the inode identified by
// inumber starting at offset, allocating data blocks as needed. It returns
// the number of bytes actually persisted, which may be less than length if
// the allocator ran out of data blocks -- at every return point the inode
// on disk is left consistent with exactly the bytes that made it to disk.
// It returns -1 for hard errors: the handle isn't mounted, or offset+length
// exceeds the maximum addressable file size.
func (fs *FileSystem) Write(inumber uint32, buf []byte, length, offset uint32) int64 {
	if !fs.IsMounted() {
		return -1
	}
	if uint64(offset)+uint64(length) > block.MaxFileSize {
		return -1
	}

	inode, existed, err := fs.findInode(inumber)
	if err != nil {
		return -1
	}

	inodeBlockIndex, _ := inodeAddress(inumber)
	if !existed {
		inode = block.Inode{Valid: 1}
		_ = fs.alloc.IncrementPopulation(inodeBlockIndex)
		_ = fs.alloc.MarkUsed(inodeBlockIndex)
	}

	currentSize := inode.Size
	targetSize := offset + length
	if currentSize > targetSize {
		targetSize = currentSize
	}

	var indirect [block.PointersPerBlock]block.Pointer
	indirectLoaded := false
	indirectDirty := false

	loadIndirect := func() bool {
		if indirectLoaded {
			return true
		}
		if inode.Indirect != 0 {
			raw := block.ZeroBlock()
			if err := fs.device.ReadBlock(inode.Indirect, raw); err != nil {
				return false
			}
			decoded, err := block.DecodePointerBlock(raw)
			if err != nil {
				return false
			}
			indirect = decoded
		} else {
			ptr := fs.alloc.AllocateDataBlock()
			if ptr == 0 {
				return false
			}
			inode.Indirect = ptr
			indirect = [block.PointersPerBlock]block.Pointer{}
			indirectDirty = true
		}
		indirectLoaded = true
		return true
	}

	finish := func(bytesWritten uint32) int64 {
		if indirectDirty {
			_ = fs.device.WriteBlock(inode.Indirect, block.EncodePointerBlock(indirect))
		}
		if bytesWritten == length {
			inode.Size = targetSize
		} else {
			inode.Size = offset + bytesWritten
		}
		_ = fs.storeInode(inumber, inode)
		return int64(bytesWritten)
	}

	var bytesWritten uint32
	cursor := offset

	for bytesWritten < length {
		isDirect, slot := blockSlot(cursor)

		var ptr block.Pointer
		if isDirect {
			ptr = inode.Direct[slot]
			if ptr == 0 {
				newPtr := fs.alloc.AllocateDataBlock()
				if newPtr == 0 {
					return finish(bytesWritten)
				}
				inode.Direct[slot] = newPtr
				ptr = newPtr
			}
		} else {
			if !loadIndirect() {
				return finish(bytesWritten)
			}
			ptr = indirect[slot]
			if ptr == 0 {
				newPtr := fs.alloc.AllocateDataBlock()
				if newPtr == 0 {
					return finish(bytesWritten)
				}
				indirect[slot] = newPtr
				indirectDirty = true
				ptr = newPtr
			}
		}

		intraOffset := cursor % block.Size
		chunk := block.Size - intraOffset
		if remaining := length - bytesWritten; chunk > remaining {
			chunk = remaining
		}

		raw := block.ZeroBlock()
		if intraOffset != 0 || chunk != block.Size {
			if err := fs.device.ReadBlock(ptr, raw); err != nil {
				return finish(bytesWritten)
			}
		}
		copy(raw[intraOffset:intraOffset+chunk], buf[bytesWritten:bytesWritten+chunk])

		if err := fs.device.WriteBlock(ptr, raw); err != nil {
			return finish(bytesWritten)
		}

		bytesWritten += chunk
		cursor += chunk
	}

	return finish(bytesWritten)
}
