package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorNormalises(t *testing.T) {
	plain := errors.New("boom")
	e := FromError(plain)
	require.NotNil(t, e)
	assert.Equal(t, ErrInternal.Code, e.Code)
	assert.ErrorIs(t, e, plain)

	typed := Clone(ErrTokenExpired, "")
	assert.Equal(t, typed, FromError(typed))

	wrapped := Wrap(typed, ErrUpstream.Code, ErrUpstream.Status, "outer")
	assert.Equal(t, ErrUpstream.Code, FromError(wrapped).Code)

	assert.Nil(t, FromError(nil))
}

func TestCloneOverridesMessage(t *testing.T) {
	clone := Clone(ErrAccountBlocked, "account suspended by the registrar")
	assert.Equal(t, ErrAccountBlocked.Code, clone.Code)
	assert.Equal(t, "account suspended by the registrar", clone.Message)
	assert.Equal(t, "account is blocked", ErrAccountBlocked.Message)

	unchanged := Clone(ErrAccountBlocked, "")
	assert.Equal(t, ErrAccountBlocked.Message, unchanged.Message)
}

func TestFromFieldErrors(t *testing.T) {
	e := FromFieldErrors(map[string][]string{
		"username": {"This field is required."},
		"password": {"This field is required.", "Too short."},
	})
	require.NotNil(t, e)
	assert.Equal(t, ErrValidation.Code, e.Code)
	assert.Equal(t, "password: This field is required.\npassword: Too short.\nusername: This field is required.", e.Message)

	empty := FromFieldErrors(nil)
	assert.Equal(t, ErrValidation.Message, empty.Message)
}

func TestIsAuthRejection(t *testing.T) {
	assert.True(t, IsAuthRejection(Clone(ErrTokenExpired, "")))
	assert.True(t, IsAuthRejection(Clone(ErrUnauthorized, "")))
	assert.False(t, IsAuthRejection(Clone(ErrConnectivity, "")))
	assert.False(t, IsAuthRejection(Clone(ErrForbidden, "")))
	assert.False(t, IsAuthRejection(errors.New("boom")))
	assert.False(t, IsAuthRejection(nil))
}
