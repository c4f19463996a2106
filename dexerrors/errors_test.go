package dexerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorParts(t *testing.T) {
	assert.Equal(t, "P1", GetErrorCode(ErrMetadataLookup))
	assert.Equal(t, "MetadataLookupFailure", GetErrorName(ErrMetadataLookup))
	assert.Equal(t, "P1_MetadataLookupFailure", GetErrorCodeWithName(ErrMetadataLookup))
	assert.Contains(t, GetErrorDesc(ErrMetadataLookup), "field metadata table")
}

func TestWrappedErrorKeepsCode(t *testing.T) {
	err := fmt.Errorf("iput v0, v5, LFoo;.x:I: %w", ErrMetadataLookup)
	assert.True(t, errors.Is(err, ErrMetadataLookup))
	assert.Equal(t, "P1", GetErrorCode(err))
	assert.Equal(t, "MetadataLookupFailure", GetErrorName(err))
}

func TestUncodedError(t *testing.T) {
	err := errors.New("plain failure")
	assert.Equal(t, "", GetErrorCode(err))
	assert.Equal(t, "plain failure", GetErrorName(err))
	assert.Equal(t, "DESC NOT SET", GetErrorDesc(err))
	assert.Equal(t, "No Error", GetErrorName(nil))
}
