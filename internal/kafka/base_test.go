package kafka

import (
	"testing"

	"github.com/Shopify/sarama"
	"github.com/flexprice/invoicer/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestGetSaramaConfig(t *testing.T) {
	cfg := config.GetDefaultConfig()

	plain := GetSaramaConfig(cfg)
	assert.Equal(t, cfg.Kafka.ClientID, plain.ClientID)
	assert.Equal(t, sarama.WaitForAll, plain.Producer.RequiredAcks)
	assert.True(t, plain.Producer.Return.Successes)
	assert.Equal(t, sarama.OffsetOldest, plain.Consumer.Offsets.Initial)
	assert.False(t, plain.Net.SASL.Enable)
	assert.False(t, plain.Net.TLS.Enable)

	cfg.Kafka.UseSASL = true
	cfg.Kafka.SASLMechanism = sarama.SASLTypePlaintext
	cfg.Kafka.SASLUser = "invoicer"
	cfg.Kafka.SASLPassword = "secret"

	sasl := GetSaramaConfig(cfg)
	assert.True(t, sasl.Net.SASL.Enable)
	assert.True(t, sasl.Net.TLS.Enable)
	assert.Equal(t, sarama.SASLMechanism(sarama.SASLTypePlaintext), sasl.Net.SASL.Mechanism)
	assert.Equal(t, "invoicer", sasl.Net.SASL.User)
}

func TestNewConsumerRequiresGroup(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Kafka.ConsumerGroup = ""

	_, err := NewConsumer(cfg, nil)
	assert.Error(t, err)
}
