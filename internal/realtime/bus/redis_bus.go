package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
	"github.com/yungbote/shelfscan-backend/internal/realtime"
)

const DefaultChannel = "shelfscan.changes"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	origin  string
}

func NewRedisBus(log *logger.Logger, cfg RedisConfig) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = DefaultChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:     log.With("service", "RedisChangeBus"),
		rdb:     rdb,
		channel: ch,
		origin:  uuid.NewString(),
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, change realtime.Change) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis change bus not initialized")
	}
	change.Origin = b.origin
	raw, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(ch realtime.Change)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis change bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok || m == nil {
					return
				}
				change, ok, err := b.decode(m.Payload)
				if err != nil {
					b.log.Warn("bad redis change payload", "error", err)
					continue
				}
				if ok {
					onMsg(change)
				}
			}
		}
	}()
	return nil
}

// decode parses a bus message. Changes this instance published are already
// signalled locally, so ok is false for them.
func (b *redisBus) decode(payload string) (realtime.Change, bool, error) {
	var change realtime.Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return realtime.Change{}, false, err
	}
	return change, change.Origin != b.origin, nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
