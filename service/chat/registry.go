package chat

import (
	"hash/fnv"
	"sync"

	"BKConnect/logger"
)

// Channel is the write side of one live push connection. Push must be
// bounded: a dead or saturated peer returns an error instead of hanging the
// caller. Close is idempotent.
type Channel interface {
	Push(data []byte) error
	Close() error
}

const numShards = 32

type shard struct {
	mu    sync.RWMutex
	conns map[string]Channel // userID -> current channel
}

// Registry is the process-wide table of connected users. Keys are sharded so
// unrelated users never contend on one mutex; transitions for a single key
// (replace on reconnect, compare-and-remove on disconnect) happen under that
// key's shard lock.
type Registry struct {
	shards [numShards]shard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].conns = make(map[string]Channel)
	}
	return r
}

func (r *Registry) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &r.shards[h.Sum32()%numShards]
}

// Register installs ch as the delivery target for userID. An existing
// channel is replaced atomically and closed best-effort; replacement is the
// normal reconnect path, not an error.
func (r *Registry) Register(userID string, ch Channel) {
	s := r.shardFor(userID)
	s.mu.Lock()
	old := s.conns[userID]
	s.conns[userID] = ch
	s.mu.Unlock()

	if old != nil && old != ch {
		_ = old.Close()
		logger.Infof("[Registry] replaced connection user=%s", userID)
	}
}

// Unregister removes the entry for userID only if ch is still the registered
// channel. A disconnect handler racing a newer Register is a no-op here.
func (r *Registry) Unregister(userID string, ch Channel) {
	s := r.shardFor(userID)
	s.mu.Lock()
	if cur, ok := s.conns[userID]; ok && cur == ch {
		delete(s.conns, userID)
	}
	s.mu.Unlock()
}

// Lookup returns the current channel for userID. Absence means offline and
// is a normal outcome.
func (r *Registry) Lookup(userID string) (Channel, bool) {
	s := r.shardFor(userID)
	s.mu.RLock()
	ch, ok := s.conns[userID]
	s.mu.RUnlock()
	return ch, ok
}

func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Send pushes data to userID's channel if one exists. A push failure is an
// implicit disconnect: the channel is compare-and-removed and closed, and the
// caller sees delivered=false either way.
func (r *Registry) Send(userID string, data []byte) bool {
	ch, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	if err := ch.Push(data); err != nil {
		r.Unregister(userID, ch)
		_ = ch.Close()
		logger.Infof("[Registry] push failed, evicted user=%s err=%v", userID, err)
		return false
	}
	return true
}

// Snapshot lists currently connected user ids (diagnostics / online checks).
func (r *Registry) Snapshot() []string {
	var out []string
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for uid := range s.conns {
			out = append(out, uid)
		}
		s.mu.RUnlock()
	}
	return out
}

// Close drops and closes every registered channel (gateway shutdown).
func (r *Registry) Close() {
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for uid, ch := range s.conns {
			_ = ch.Close()
			delete(s.conns, uid)
		}
		s.mu.Unlock()
	}
}
