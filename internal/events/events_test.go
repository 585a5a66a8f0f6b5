package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHub_SubscribePublishUnsubscribe(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch, unsubscribe := h.Subscribe()
	require.Equal(t, 1, h.SubscriberCount())

	h.PublishProgress(3, 10, "extract")

	select {
	case ev := <-ch:
		require.Equal(t, KindProgress, ev.Kind)
		require.NotNil(t, ev.Progress)
		require.Equal(t, 3, ev.Progress.Current)
		require.Equal(t, "extract", ev.Progress.Label)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	unsubscribe()
	require.Equal(t, 0, h.SubscriberCount())

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after unsubscribe")
}

func TestHub_PublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	t.Parallel()

	h := NewHub()
	h.PublishWarning("take1.wav", "fmt/iXML sample rate mismatch")
}

func TestHub_FullSubscriberBufferDropsRatherThanBlocks(t *testing.T) {
	t.Parallel()

	h := NewHub()
	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	for i := 0; i < 1000; i++ {
		h.PublishFileError("f.wav", "decode", "boom")
	}
}
