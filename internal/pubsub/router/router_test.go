package router

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/invoicer/internal/config"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/pubsub/memory"
	"github.com/flexprice/invoicer/internal/sentry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldRetry(t *testing.T) {
	log := logger.NewNoopLogger()

	assert.False(t, shouldRetry(log, ierr.NewError("bad payload").Mark(ierr.ErrValidation)))
	assert.False(t, shouldRetry(log, ierr.NewError("bad timeline").Mark(ierr.ErrInvalidEventOrdering)))
	assert.True(t, shouldRetry(log, errors.New("connection refused")))
}

func TestRouterDeliversToHandler(t *testing.T) {
	log := logger.NewNoopLogger()
	ps := memory.NewPubSub(log)
	defer ps.Close()

	r, err := NewRouter(log, sentry.NewSentryService(config.GetDefaultConfig(), log))
	require.NoError(t, err)

	var handled atomic.Int32
	r.AddNoPublishHandler("count", "invoice_notifications", ps, func(msg *message.Message) error {
		handled.Add(1)
		// validation errors are acknowledged, never retried
		return ierr.NewError("ignored").Mark(ierr.ErrValidation)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()
	<-r.Running()

	require.NoError(t, ps.Publish(ctx, "invoice_notifications", message.NewMessage("m1", []byte(`{}`))))
	assert.Eventually(t, func() bool { return handled.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// no retries for a non retryable failure
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), handled.Load())
	require.NoError(t, r.Close())
}
