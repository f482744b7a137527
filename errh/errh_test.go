package errh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerAccumulatesAndClassifies(t *testing.T) {
	h := New()
	h.Add(Info, "src", errors.New("starting up"))
	h.Warningf("src", "queue depth %d near limit", 900)
	assert.False(t, h.HasErrors())
	assert.NoError(t, h.Err())

	h.Errorf("sink", "port %d unbound", 2)
	assert.True(t, h.HasErrors())
	require.Error(t, h.Err())
	assert.Contains(t, h.Err().Error(), "port 2 unbound")
	assert.Len(t, h.Messages(), 3)
}
