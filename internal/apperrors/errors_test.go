package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicMapsCodesToStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{Validation("missing name"), http.StatusBadRequest},
		{Unauthorized("bad token"), http.StatusUnauthorized},
		{Forbidden("not admin"), http.StatusForbidden},
		{NotFound("no user"), http.StatusNotFound},
		{Conflict("already swiped"), http.StatusConflict},
		{New(CodeRateLimited, "slow down"), http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		status, msg := Public(tc.err)
		assert.Equal(t, tc.status, status)
		assert.Equal(t, As(tc.err).Message(), msg)
	}
}

func TestPublicHidesInternalDetail(t *testing.T) {
	status, msg := Public(errors.New("pq: relation \"users\" does not exist"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, InternalMessage, msg)

	status, msg = Public(Wrap(CodeInternal, errors.New("disk full"), "failed to save"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, InternalMessage, msg)
}

func TestAsFindsWrappedError(t *testing.T) {
	base := NotFound("Collaboration not found")
	wrapped := fmt.Errorf("loading: %w", base)

	got := As(wrapped)
	assert.Same(t, base, got)
	assert.Nil(t, As(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeConflict, cause, "duplicate")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, CodeConflict, err.Code())
}
