package apperr

import (
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := NotFound("pending request not found")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)

	wrapped := pkgerrors.Wrap(err, "relationship.Accept")
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("boom")))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Invariant("duplicate friendship row", fmt.Errorf("unique violation"))
	assert.Equal(t, "duplicate friendship row: unique violation", err.Error())
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestMessageOfStripsWrapping(t *testing.T) {
	err := pkgerrors.Wrap(Forbidden("you can only message friends"), "conversation.Send")
	assert.Equal(t, "you can only message friends", MessageOf(err))
	assert.Equal(t, "boom", MessageOf(fmt.Errorf("boom")))
}
