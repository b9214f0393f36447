package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/dargueta/sfs/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrnoWithMessage(t *testing.T) {
	newErr := errors.ErrNoFreeBlock.WithMessage("data region exhausted")
	assert.Equal(
		t,
		"no free data blocks remain: data region exhausted",
		newErr.Error(),
		"error message is wrong",
	)
	assert.ErrorIs(t, newErr, errors.ErrNoFreeBlock)
}

func TestErrnoWrapError(t *testing.T) {
	originalErr := stderrors.New("short read")
	newErr := errors.ErrIOFailure.WrapError(originalErr)

	assert.EqualValues(
		t,
		"underlying device read or write failed: short read",
		newErr.Error(),
		"error message is wrong",
	)
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
}
