// Package errors defines the closed set of sentinel error values the file
// system core can return, plus a small wrapper type for attaching context
// to one of them without losing its identity under errors.Is.
package errors

import (
	"fmt"
)

// Errno is one of the fixed failure conditions the file system core can
// detect, usable directly as an error or extended with [Errno.WithMessage]
// without losing its identity under errors.Is. [Errno.WrapError] keeps the
// wrapped error, not the Errno, as the parent seen by errors.Is.
type Errno string

// Error kinds from the file system's error handling design. Each one
// corresponds to exactly one of the failure conditions the core can detect.
const ErrNotMounted = Errno("file system is not mounted")
const ErrAlreadyMounted = Errno("device is already mounted")
const ErrBadSuperblock = Errno("superblock magic or geometry mismatch")
const ErrCorruptReference = Errno("inode or indirect block references an out-of-range block")
const ErrOutOfRangeInumber = Errno("inumber is out of range for this file system")
const ErrNoFreeInode = Errno("no free inode slots remain")
const ErrNoFreeBlock = Errno("no free data blocks remain")
const ErrFileTooLarge = Errno("offset plus length exceeds the maximum file size")
const ErrIOFailure = Errno("underlying device read or write failed")

func (e Errno) Error() string {
	return string(e)
}

func (e Errno) WithMessage(message string) FSError {
	return contextualError{
		message: fmt.Sprintf("%s: %s", e.Error(), message),
		parent:  e,
	}
}

func (e Errno) WrapError(err error) FSError {
	return contextualError{
		message: fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		parent:  err,
	}
}
