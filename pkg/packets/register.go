package packets

import (
	"fmt"

	"packetlog/pkg/packet"
)

// Registers every packet type of this package
func Register(registry *packet.Registry) (err error) {
	factories := []packet.Factory{
		func() packet.Packet { return &ThreadInfo{} },
		func() packet.Packet { return &LogMessage{} },
		func() packet.Packet { return &MetricDefinition{} },
		func() packet.Packet { return &Metric{} },
		func() packet.Packet { return &MetricSample{} },
		func() packet.Packet { return &SessionClose{} },
	}
	for _, factory := range factories {
		err = registry.Register(factory)
		if err != nil {
			err = fmt.Errorf("failed to register packet types: %w", err)
			return
		}
	}
	return
}

// New registry holding every packet type of this package
func NewRegistry() (registry *packet.Registry) {
	registry = packet.NewRegistry()
	err := Register(registry)
	if err != nil {
		// Only possible if this package's own definitions are invalid
		panic(err)
	}
	return
}
