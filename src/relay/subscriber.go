package relay

import (
	"context"

	r "github.com/redis/go-redis/v9"
	logger "github.com/sirupsen/logrus"
)

// Subscriber owns the pub/sub connection to the trading engines and feeds
// every received message into the router. Messages are routed in arrival
// order; persistence of one message never blocks routing of the next.
type Subscriber struct {
	rdb    *r.Client
	router *Router
	pubsub *r.PubSub
}

func NewSubscriber(rdb *r.Client, router *Router) *Subscriber {
	return &Subscriber{rdb: rdb, router: router}
}

// Start subscribes to all engine channels and runs the receive loop until
// ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.pubsub = s.rdb.PSubscribe(ctx, SubscribePatterns...)
	if err := s.pubsub.Subscribe(ctx, SubscribeChannels...); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"channels": len(SubscribeChannels),
		"patterns": len(SubscribePatterns),
	}).Info("[relay] Subscriber listening")

	go func() {
		ch := s.pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				s.router.Route(ctx, msg.Channel, []byte(msg.Payload))
			}
		}
	}()

	return nil
}

// Stop unsubscribes and closes the pub/sub connection.
func (s *Subscriber) Stop() {
	if s.pubsub == nil {
		return
	}
	if err := s.pubsub.Close(); err != nil {
		logger.WithError(err).Warn("[relay] Failed to close pub/sub")
	}
	logger.Info("[relay] Subscriber stopped")
}
