package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

var rdb *redis.Client

func InitRedis(c Config) error {
	cli := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis ping")
	}
	rdb = cli
	return nil
}

// presence key: im:presence:<user>
// value: gateway_id; the TTL bounds the online validity period
func presenceKey(user string) string { return "im:presence:" + user }

// last-online key: im:lastonline:<user>, RFC3339, written on disconnect
func lastOnlineKey(user string) string { return "im:lastonline:" + user }

// PresenceManager implements the gateway's presence mirror over redis.
type PresenceManager struct {
	ttl time.Duration
}

func NewPresenceManager(ttl time.Duration) *PresenceManager {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &PresenceManager{ttl: ttl}
}

// Online marks the user online on gatewayID and renews the TTL.
func (m *PresenceManager) Online(ctx context.Context, user, gatewayID string) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), gatewayID, m.ttl).Err()
}

// Offline deletes the presence key and records the last-online timestamp.
func (m *PresenceManager) Offline(ctx context.Context, user string) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	if err := rdb.Del(ctx, presenceKey(user)).Err(); err != nil {
		return err
	}
	return rdb.Set(ctx, lastOnlineKey(user), time.Now().UTC().Format(time.RFC3339), 0).Err()
}

// Lookup reports which gateway currently holds the user, if any.
func (m *PresenceManager) Lookup(ctx context.Context, user string) (gatewayID string, online bool, err error) {
	if rdb == nil {
		return "", false, errors.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// LastOnline returns the recorded disconnect time, ok=false if never seen.
func (m *PresenceManager) LastOnline(ctx context.Context, user string) (time.Time, bool, error) {
	if rdb == nil {
		return time.Time{}, false, errors.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, lastOnlineKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "parse last online")
	}
	return t, true, nil
}
