package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New(ErrCodeIndexLoad, "index source is empty")
	assert.Equal(t, "[IDX_001] index source is empty", e.Error())

	withDetail := e.WithDetail("path=data/molecules.jsonl")
	assert.Equal(t, "[IDX_001] index source is empty: path=data/molecules.jsonl", withDetail.Error())
	// Original untouched.
	assert.Empty(t, e.Detail)
}

func TestWrap(t *testing.T) {
	base := stderrors.New("connection refused")
	wrapped := Wrap(base, ErrCodeIngestFetchFailed, "pubchem record fetch")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCodeIngestFetchFailed, wrapped.Code)
	assert.ErrorIs(t, wrapped, base)

	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
}

func TestWrap_PreservesCodeOnUnknown(t *testing.T) {
	inner := New(ErrCodeMoleculeNotFound, "CID 2519 not in index")
	outer := Wrap(inner, CodeUnknown, "fingerprint lookup")
	assert.Equal(t, ErrCodeMoleculeNotFound, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeEmbeddingFailed, "embedding service unavailable")
	outer := fmt.Errorf("search aborted: %w", inner)

	assert.True(t, IsCode(outer, ErrCodeEmbeddingFailed))
	assert.False(t, IsCode(outer, ErrCodeIndexLoad))
	assert.False(t, IsCode(nil, ErrCodeInternal))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("no such record")))
	assert.True(t, IsNotFound(New(ErrCodeMoleculeNotFound, "CID missing")))
	assert.False(t, IsNotFound(Internal("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeValidation, GetCode(InvalidParam("top_k must be positive")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeFilterInvalid, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeMoleculeNotFound, http.StatusNotFound},
		{ErrCodeEmbeddingFailed, http.StatusBadGateway},
		{ErrCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeIndexLoad, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.HTTPStatus(), string(tt.code))
	}
}

func TestStackCaptured(t *testing.T) {
	e := New(ErrCodeInternal, "boom")
	assert.Contains(t, e.Stack, "errors_test.go")
}
