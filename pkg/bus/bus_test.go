package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusSendReceiveRoundTrip(t *testing.T) {
	b := NewMemoryBus(4)
	msg := NewAlert("test", AlertPayload{Level: 2, Description: "separation breach"})

	require.NoError(t, b.Send(context.Background(), msg))

	got, ok, err := b.Receive(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindAlert, got.Kind)
	assert.Equal(t, "separation breach", got.Alert.Description)
}

func TestMemoryBusReceiveTimesOutWhenEmpty(t *testing.T) {
	b := NewMemoryBus(1)
	_, ok, err := b.Receive(context.Background(), 5*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBusReceiveZeroTimeoutIsNonBlockingDrain(t *testing.T) {
	b := NewMemoryBus(2)
	require.NoError(t, b.Send(context.Background(), NewAlert("test", AlertPayload{Level: 1})))

	msg, ok, err := b.Receive(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindAlert, msg.Kind)

	_, ok, err = b.Receive(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, ok, "a zero timeout on an empty bus must return immediately, not block")
}

func TestMemoryBusFIFOOrderPerSender(t *testing.T) {
	b := NewMemoryBus(8)
	ctx := context.Background()
	require.NoError(t, b.Send(ctx, NewAlert("sensor", AlertPayload{Level: 1, Description: "first"})))
	require.NoError(t, b.Send(ctx, NewAlert("sensor", AlertPayload{Level: 1, Description: "second"})))

	first, _, _ := b.Receive(ctx, 0)
	second, _, _ := b.Receive(ctx, 0)
	assert.Equal(t, "first", first.Alert.Description)
	assert.Equal(t, "second", second.Alert.Description)
}

func TestMemoryBusCloseRejectsFurtherSends(t *testing.T) {
	b := NewMemoryBus(1)
	require.NoError(t, b.Close())

	err := b.Send(context.Background(), NewAlert("test", AlertPayload{}))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryBusCloseIsIdempotent(t *testing.T) {
	b := NewMemoryBus(1)
	require.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}

func TestMemoryBusReceiveAfterCloseDrainsThenReportsClosed(t *testing.T) {
	b := NewMemoryBus(2)
	require.NoError(t, b.Send(context.Background(), NewAlert("test", AlertPayload{Description: "last"})))
	require.NoError(t, b.Close())

	msg, ok, err := b.Receive(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "last", msg.Alert.Description)

	_, ok, err = b.Receive(context.Background(), 0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, ok)
}

func TestMemoryBusSendRespectsContextCancellation(t *testing.T) {
	b := NewMemoryBus(0) // unbuffered: a send with no reader blocks until ctx is done
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := b.Send(ctx, NewAlert("test", AlertPayload{}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
