package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndCode(t *testing.T) {
	err := New(InvalidInput, "bad argument")
	assert.Equal(t, "bad argument", err.Error())
	assert.Equal(t, InvalidInput, CodeOf(err))
	assert.True(t, IsCode(err, InvalidInput))
	assert.False(t, IsCode(err, PersistenceFailed))
}

func TestWrapPreservesChain(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, PersistenceFailed, "could not save outcomes")

	assert.Equal(t, "could not save outcomes: disk full", err.Error())
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, PersistenceFailed, CodeOf(err))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, Unknown, "ignored"))
	assert.Nil(t, WithFields(nil, Fields{"k": "v"}))
}

func TestWithFields(t *testing.T) {
	err := WithFields(New(ResourceNotFound, "no such strategy"), Fields{"strategy": "x"})

	var e *Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, "x", e.Fields()["strategy"])
	assert.Contains(t, err.Error(), "strategy=x")

	// Adding fields must not clobber existing ones or mutate the source.
	again := WithFields(err, Fields{"score": 6.5})
	require.True(t, stderrors.As(again, &e))
	assert.Equal(t, "x", e.Fields()["strategy"])
	assert.Equal(t, 6.5, e.Fields()["score"])
}

func TestWithFieldsForeignError(t *testing.T) {
	err := WithFields(stderrors.New("plain"), Fields{"k": "v"})
	assert.Equal(t, Unknown, CodeOf(err))

	var e *Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, "v", e.Fields()["k"])
}

func TestIsMatchesOnCode(t *testing.T) {
	err := Wrap(New(ScoringFailed, "inner"), Unknown, "outer")
	assert.True(t, stderrors.Is(err, New(Unknown, "anything")))
	assert.True(t, stderrors.Is(err, New(ScoringFailed, "anything")))
	assert.False(t, stderrors.Is(err, New(TransformFailed, "anything")))
}

func TestCodeOfForeignError(t *testing.T) {
	assert.Equal(t, Unknown, CodeOf(fmt.Errorf("plain: %w", stderrors.New("x"))))
}
