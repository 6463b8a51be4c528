package storeerr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	cause := errors.New("connection reset")

	r := Read(cause, "list orders")
	assert.True(t, IsRead(r))
	assert.False(t, IsWrite(r))
	assert.True(t, errors.Is(r, cause))
	assert.Equal(t, "list orders: connection reset", r.Error())

	w := errors.Wrap(Write(cause, "upsert order"), "increment")
	assert.True(t, IsWrite(w))

	assert.NoError(t, Read(nil, "noop"))
	assert.NoError(t, Write(nil, "noop"))
}
