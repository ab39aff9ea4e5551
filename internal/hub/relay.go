package hub

import (
	"context"
	"log/slog"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Relay carries frames between hub instances. Every frame published on the
// relay, including by this instance, comes back on the subscription.
type Relay interface {
	Publish(ctx context.Context, f Frame) error
	Subscribe(ctx context.Context) (<-chan Frame, error)
	Close() error
}

var (
	frameEnc cbor.EncMode
	frameDec cbor.DecMode
)

func init() {
	var err error
	frameEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("hub: CBOR encoder initialization failed: " + err.Error())
	}
	frameDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("hub: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeFrame returns the relay wire form of f.
func EncodeFrame(f Frame) ([]byte, error) {
	return frameEnc.Marshal(f)
}

// DecodeFrame parses a relay wire frame.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	err := frameDec.Unmarshal(b, &f)
	return f, err
}

// RedisRelay fans frames out through one Redis pub/sub channel.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	log     *slog.Logger
	pubsub  *redis.PubSub
}

func NewRedisRelay(rdb *redis.Client, channel string, log *slog.Logger) *RedisRelay {
	return &RedisRelay{rdb: rdb, channel: channel, log: log}
}

func (r *RedisRelay) Publish(ctx context.Context, f Frame) error {
	b, err := EncodeFrame(f)
	if err != nil {
		return errors.Wrap(err, "relay: encode")
	}
	return errors.Wrap(r.rdb.Publish(ctx, r.channel, b).Err(), "relay: publish")
}

// Subscribe returns once Redis confirmed the subscription.
func (r *RedisRelay) Subscribe(ctx context.Context) (<-chan Frame, error) {
	ps := r.rdb.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, errors.Wrap(err, "relay: subscribe")
	}
	r.pubsub = ps

	out := make(chan Frame, defaultQueueSize)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			f, err := DecodeFrame([]byte(msg.Payload))
			if err != nil {
				r.log.Warn("relay: dropping undecodable frame", "error", err)
				continue
			}
			out <- f
		}
	}()
	return out, nil
}

func (r *RedisRelay) Close() error {
	if r.pubsub == nil {
		return nil
	}
	return r.pubsub.Close()
}
