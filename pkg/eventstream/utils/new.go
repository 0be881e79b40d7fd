package eventstreamutils

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/tabletalk/pkg/eventstream"
	"github.com/papercomputeco/tabletalk/pkg/eventstream/kafka"
	"github.com/papercomputeco/tabletalk/pkg/eventstream/nop"
)

const (
	Nop   = "nop"
	Kafka = "kafka"
)

// SupportedProviders returns the publisher names accepted by NewPublisher.
func SupportedProviders() []string {
	return []string{Nop, Kafka}
}

type NewPublisherOpts struct {
	ProviderType string

	// Brokers is a comma separated list of host:port pairs.
	Brokers string
	Topic   string
	Logger  *slog.Logger
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case Nop, "":
		return nop.NewPublisher(), nil

	case Kafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: splitBrokers(o.Brokers),
			Topic:   o.Topic,
		}, o.Logger)

	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", o.ProviderType)
	}
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
