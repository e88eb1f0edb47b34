package logger

import (
	"sort"

	"github.com/ThreeDotsLabs/watermill"
)

// WatermillAdapter routes watermill router and pubsub logs through zap.
// Watermill debug and trace output is noisy so both land on debug.
type WatermillAdapter struct {
	logger *Logger
}

// NewWatermillAdapter returns a watermill.LoggerAdapter writing to l
func NewWatermillAdapter(l *Logger) watermill.LoggerAdapter {
	return &WatermillAdapter{logger: l.With("component", "watermill")}
}

func (w *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	w.logger.Errorw(msg, append(toKeysAndValues(fields), "error", err)...)
}

func (w *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	w.logger.Infow(msg, toKeysAndValues(fields)...)
}

func (w *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	w.logger.Debugw(msg, toKeysAndValues(fields)...)
}

func (w *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	w.logger.Debugw(msg, toKeysAndValues(fields)...)
}

func (w *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{logger: w.logger.With(toKeysAndValues(fields)...)}
}

func toKeysAndValues(fields watermill.LogFields) []interface{} {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return kv
}
