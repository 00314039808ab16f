package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageTable(t *testing.T) {
	assert.Equal(t, "Failed to load entries.", LoadFailed.Message())
	assert.Equal(t, genericMessage, Unknown.Message())
	assert.Equal(t, genericMessage, Kind(99).Message())
}

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("saving: %w", Wrap(SaveFailed, cause))

	assert.Equal(t, SaveFailed, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to save entry.", Message(err))
	assert.Equal(t, Unknown, KindOf(cause))
	assert.Equal(t, genericMessage, Message(cause))
	assert.Empty(t, Message(nil))
}

func TestIsPrecondition(t *testing.T) {
	assert.True(t, EmptyContent.IsPrecondition())
	assert.True(t, NoIdentity.IsPrecondition())
	assert.False(t, SaveFailed.IsPrecondition())
	assert.False(t, LoadFailed.IsPrecondition())
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "Write something before saving.", New(EmptyContent).Error())
	assert.Equal(t, "Failed to delete entry. (boom)", Wrap(DeleteFailed, errors.New("boom")).Error())
}
