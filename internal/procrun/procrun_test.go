package procrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitedBufferCapsOutput(t *testing.T) {
	b := newLimitedBuffer(8)

	n, err := b.Write([]byte("12345"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	// Over the cap: everything is reported written so the pipe keeps
	// draining, but only the first 8 bytes are kept.
	n, err = b.Write([]byte("6789AB"))
	assert.NoError(t, err)
	assert.Equal(t, 6, n)

	assert.Equal(t, "12345678", string(b.Bytes()))
	assert.True(t, b.Truncated())
}

func TestLimitedBufferUnderCapNotTruncated(t *testing.T) {
	b := newLimitedBuffer(8)
	b.Write([]byte("1234"))
	assert.False(t, b.Truncated())
}

func TestLimitedBufferZeroMaxUsesDefault(t *testing.T) {
	b := newLimitedBuffer(0)
	assert.Equal(t, defaultMaxCapture, b.max)
}
