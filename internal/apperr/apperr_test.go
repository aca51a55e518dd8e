package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrEmptyMessageBody, http.StatusBadRequest},
		{ErrUserNotFound, http.StatusNotFound},
		{ErrHandleTaken, http.StatusConflict},
		{ErrAlreadyResolved, http.StatusConflict},
		{ErrRequestAlreadyPending, http.StatusConflict},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrNotConnected, http.StatusForbidden},
		{Unavailable("store down"), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(ErrUserNotFound))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", ErrAlreadyResolved)
	assert.Equal(t, CodeConflict, CodeOf(wrapped))
}

func TestSentinelMatchesWrappedCopy(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrAlreadyConnected)
	assert.True(t, errors.Is(wrapped, ErrAlreadyConnected))
	assert.False(t, errors.Is(wrapped, ErrAlreadyResolved))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeUnavailable, "presence store unavailable", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}
