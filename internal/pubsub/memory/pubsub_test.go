package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishBeforeSubscribe(t *testing.T) {
	ps := NewPubSub(logger.NewNoopLogger())
	defer ps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "invoices", message.NewMessage("dedupe-1", []byte(`{"a":1}`))))

	ch, err := ps.Subscribe(ctx, "invoices")
	require.NoError(t, err)

	select {
	case msg := <-ch:
		assert.Equal(t, "dedupe-1", msg.UUID)
		assert.JSONEq(t, `{"a":1}`, string(msg.Payload))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}
