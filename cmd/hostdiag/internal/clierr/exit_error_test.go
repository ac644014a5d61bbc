package clierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, 0, ExitCodeOf(nil))
	assert.Equal(t, CodeDegraded, ExitCodeOf(New(CodeDegraded, "degraded")))
	assert.Equal(t, CodeFailed, ExitCodeOf(New(CodeFailed, "failed")))
	assert.Equal(t, CodeFatal, ExitCodeOf(errors.New("plain error")))
}

func TestExitCodeOf_Wrapped(t *testing.T) {
	inner := New(CodeFailed, "failed")
	outer := fmt.Errorf("while reporting: %w", inner)
	assert.Equal(t, CodeFailed, ExitCodeOf(outer))
}

func TestWrap(t *testing.T) {
	cause := errors.New("no such file")
	err := Wrap(CodeFatal, "loading catalog", cause)
	assert.Equal(t, "loading catalog: no such file", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "loading catalog", Wrap(CodeFatal, "loading catalog", nil).Error())
}

func TestNormalize(t *testing.T) {
	// Errors must never carry a success code.
	assert.Equal(t, CodeFatal, ExitCodeOf(New(0, "bad")))
	assert.Equal(t, CodeFatal, ExitCodeOf(New(-2, "bad")))
}
