package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// streamConfigs declares one stream per subject hierarchy the simulator
// publishes on.
var streamConfigs = map[string]jetstream.StreamConfig{
	"AIRCRAFT": {
		Name:        "AIRCRAFT",
		Description: "Aircraft position updates",
		Subjects:    []string{"aircraft.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      10 * time.Minute,
		Storage:     jetstream.MemoryStorage,
		Discard:     jetstream.DiscardOld,
	},
	"COMMAND": {
		Name:        "COMMAND",
		Description: "Controller commands addressed to aircraft",
		Subjects:    []string{"command.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      time.Hour,
		Storage:     jetstream.MemoryStorage,
	},
	"ALERT": {
		Name:        "ALERT",
		Description: "Separation-violation and resolution alerts",
		Subjects:    []string{"alert.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.MemoryStorage,
	},
	"STATUS": {
		Name:        "STATUS",
		Description: "Status requests and responses",
		Subjects:    []string{"status.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      time.Minute,
		Storage:     jetstream.MemoryStorage,
	},
}

// NATSBus is a JetStream-backed Bus implementation. It exists so the
// simulator can be pointed at a real broker without any consumer code
// change; the in-process MemoryBus remains the default.
type NATSBus struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	sub *nats.Subscription
	msg chan Message
}

// DialNATS connects to url, declares the simulator's streams, and
// subscribes to every subject so Receive can hand back whatever arrives
// next regardless of kind — matching the interface's single inbound
// queue semantics.
func DialNATS(ctx context.Context, url string) (*NATSBus, error) {
	nc, err := nats.Connect(url, nats.MaxReconnects(-1), nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("bus: connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("bus: jetstream: %w", err)
	}

	for _, cfg := range streamConfigs {
		if _, err := js.Stream(ctx, cfg.Name); err != nil {
			if _, err := js.CreateStream(ctx, cfg); err != nil {
				nc.Close()
				return nil, fmt.Errorf("bus: create stream %s: %w", cfg.Name, err)
			}
		}
	}

	b := &NATSBus{nc: nc, js: js, msg: make(chan Message, 256)}

	sub, err := nc.Subscribe("aircraft.>", b.onMsg)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("bus: subscribe aircraft: %w", err)
	}
	b.sub = sub
	for _, subject := range []string{"command.>", "alert.>", "status.>"} {
		if _, err := nc.Subscribe(subject, b.onMsg); err != nil {
			nc.Close()
			return nil, fmt.Errorf("bus: subscribe %s: %w", subject, err)
		}
	}

	return b, nil
}

func (b *NATSBus) onMsg(m *nats.Msg) {
	var msg Message
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		return
	}
	select {
	case b.msg <- msg:
	default:
		// Slow consumer: drop rather than block the NATS dispatch
		// goroutine.
	}
}

func (b *NATSBus) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.nc.Publish(msg.Subject(), data)
}

func (b *NATSBus) Receive(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-b.msg:
		if !ok {
			return Message{}, false, ErrClosed
		}
		return msg, true, nil
	case <-timer.C:
		return Message{}, false, nil
	case <-ctx.Done():
		return Message{}, false, ctx.Err()
	}
}

// Close unsubscribes and closes the NATS connection. It does not close
// the inbound queue, so Receive after Close returns (zero, false, nil)
// on timeout rather than ErrClosed.
func (b *NATSBus) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.nc.Close()
	return nil
}
