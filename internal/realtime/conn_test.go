package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testConn() *Conn {
	return &Conn{
		send:    make(chan []byte, 2),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(inboundRate, inboundBurst),
	}
}

func TestConnSendQueues(t *testing.T) {
	c := testConn()

	require.NoError(t, c.Send([]byte("one")))
	require.NoError(t, c.Send([]byte("two")))

	assert.Equal(t, []byte("one"), <-c.send)
	assert.Equal(t, []byte("two"), <-c.send)
}

func TestConnSendDoesNotBlockWhenBufferFull(t *testing.T) {
	c := testConn()

	require.NoError(t, c.Send([]byte("one")))
	require.NoError(t, c.Send([]byte("two")))

	// A stalled consumer must fail the publish instead of blocking it.
	err := c.Send([]byte("three"))
	assert.ErrorIs(t, err, ErrSendBufferFull)
}

func TestConnSendAfterClose(t *testing.T) {
	c := testConn()
	close(c.done)

	assert.ErrorIs(t, c.Send([]byte("late")), ErrConnClosed)
}
