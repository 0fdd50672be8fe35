package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusError(t *testing.T) {
	err := &StatusError{Method: "GET", Path: "/api/auth/me", Status: 502, Body: `{"detail":"down"}`}
	assert.Equal(t, `GET /api/auth/me failed: 502 {"detail":"down"}`, err.Error())
}

func TestStatusOf(t *testing.T) {
	se := &StatusError{Method: "POST", Path: "/x", Status: 401}

	assert.Equal(t, 401, StatusOf(se))
	assert.Equal(t, 401, StatusOf(fmt.Errorf("sign in: %w", se)))
	assert.Equal(t, 0, StatusOf(errors.New("connection refused")))
	assert.Equal(t, 0, StatusOf(nil))
}
