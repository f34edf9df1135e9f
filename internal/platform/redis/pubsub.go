package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/sprint-insights/internal/coord"
)

// Publisher implements coord.Publisher with PUBLISH on a command client.
type Publisher struct {
	client goredis.UniversalClient
}

var _ coord.Publisher = (*Publisher)(nil)

// NewPublisher creates a Publisher issuing commands on client.
func NewPublisher(client goredis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

// Publish sends payload to channel. Delivery is fire-and-forget: subscribers
// that are not connected never see the message.
func (p *Publisher) Publish(ctx context.Context, channel, payload string) error {
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: publish to %s: %v", coord.ErrStore, channel, err)
	}
	return nil
}

// Subscriber implements coord.Subscriber. Its client should be dedicated to
// subscriptions so that waiting for messages never stalls other commands.
type Subscriber struct {
	client goredis.UniversalClient
}

var _ coord.Subscriber = (*Subscriber)(nil)

// NewSubscriber creates a Subscriber receiving on client.
func NewSubscriber(client goredis.UniversalClient) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe returns once the server has confirmed the subscription, so any
// message published afterwards is delivered.
func (s *Subscriber) Subscribe(ctx context.Context, channels ...string) (coord.Subscription, error) {
	ps := s.client.Subscribe(ctx, channels...)

	// Receive blocks until the first subscription confirmation arrives.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: subscribe to %v: %v", coord.ErrStore, channels, err)
	}

	sub := &subscription{
		ps:   ps,
		out:  make(chan coord.Message),
		done: make(chan struct{}),
	}
	go sub.forward()

	return sub, nil
}

type subscription struct {
	ps   *goredis.PubSub
	out  chan coord.Message
	done chan struct{}
	once sync.Once
}

func (s *subscription) Messages() <-chan coord.Message {
	return s.out
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

func (s *subscription) forward() {
	defer close(s.out)

	in := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- coord.Message{Channel: msg.Channel, Payload: msg.Payload}:
			case <-s.done:
				return
			}
		}
	}
}
