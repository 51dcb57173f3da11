package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{SignatureInvalid(), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Unauthorized("no token"), http.StatusUnauthorized},
		{Forbidden("not yours"), http.StatusForbidden},
		{Conflict("taken"), http.StatusConflict},
		{Gateway(errors.New("down")), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
		{nil, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, Status(tt.err), "%v", tt.err)
	}
}

func TestStatusSeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create order: %w", Conflict("insufficient stock for Oxford Shirt"))
	assert.Equal(t, http.StatusConflict, Status(wrapped))
	assert.True(t, IsConflict(wrapped))
}

func TestMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "Internal Server Error", Message(errors.New("pq: connection refused")))
	assert.Equal(t, "insufficient stock for Oxford Shirt", Message(Conflict("insufficient stock for %s", "Oxford Shirt")))
}

func TestGatewayHidesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Gateway(cause)

	assert.Equal(t, "payment gateway unavailable", Message(err))
	assert.ErrorIs(t, err, cause, "cause must stay unwrappable for logging")
}
