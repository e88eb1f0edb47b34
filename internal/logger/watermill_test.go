package logger

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWatermillAdapterWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewWatermillAdapter(&Logger{SugaredLogger: zap.New(core).Sugar()})

	adapter.With(watermill.LogFields{"topic": "invoice_notifications"}).
		Error("handler failed", errors.New("boom"), watermill.LogFields{"message_uuid": "m1"})
	adapter.Trace("polling", nil)

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		fields := entries[0].ContextMap()
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "watermill", fields["component"])
		assert.Equal(t, "invoice_notifications", fields["topic"])
		assert.Equal(t, "m1", fields["message_uuid"])
		assert.Equal(t, "boom", fields["error"])

		assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	}
}
