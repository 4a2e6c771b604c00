package chat

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel records pushes and can be told to fail.
type fakeChannel struct {
	mu     sync.Mutex
	pushed [][]byte
	failed bool
	closed bool
}

func (f *fakeChannel) Push(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return errors.New("broken pipe")
	}
	f.pushed = append(f.pushed, data)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegistryRegisterLookup(t *testing.T) {
	reg := NewRegistry()
	ch := &fakeChannel{}

	_, ok := reg.Lookup("u1")
	assert.False(t, ok)
	assert.False(t, reg.IsOnline("u1"))

	reg.Register("u1", ch)
	got, ok := reg.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, ch, got.(*fakeChannel))
	assert.True(t, reg.IsOnline("u1"))
}

func TestRegistryReconnectReplacesAndClosesOld(t *testing.T) {
	reg := NewRegistry()
	old := &fakeChannel{}
	fresh := &fakeChannel{}

	reg.Register("u1", old)
	reg.Register("u1", fresh)

	got, ok := reg.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, fresh, got.(*fakeChannel))
	assert.True(t, old.isClosed())
	assert.False(t, fresh.isClosed())
}

func TestRegistryUnregisterCompareAndRemove(t *testing.T) {
	reg := NewRegistry()
	old := &fakeChannel{}
	fresh := &fakeChannel{}

	reg.Register("u1", old)
	reg.Register("u1", fresh)

	// the stale disconnect handler must not evict the new connection
	reg.Unregister("u1", old)
	assert.True(t, reg.IsOnline("u1"))

	reg.Unregister("u1", fresh)
	assert.False(t, reg.IsOnline("u1"))
}

func TestRegistrySendOffline(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Send("ghost", []byte("hi")))
}

func TestRegistrySendFailureEvicts(t *testing.T) {
	reg := NewRegistry()
	ch := &fakeChannel{failed: true}
	reg.Register("u1", ch)

	assert.False(t, reg.Send("u1", []byte("hi")))
	assert.False(t, reg.IsOnline("u1"))
	assert.True(t, ch.isClosed())

	// second send sees plain offline
	assert.False(t, reg.Send("u1", []byte("hi")))
}

func TestRegistrySendDeliversInOrder(t *testing.T) {
	reg := NewRegistry()
	ch := &fakeChannel{}
	reg.Register("u1", ch)

	for i := 0; i < 5; i++ {
		require.True(t, reg.Send("u1", []byte(fmt.Sprintf("m%d", i))))
	}
	require.Equal(t, 5, ch.pushCount())
	for i, b := range ch.pushed {
		assert.Equal(t, fmt.Sprintf("m%d", i), string(b))
	}
}

func TestRegistrySnapshot(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 10; i++ {
		reg.Register(fmt.Sprintf("u%d", i), &fakeChannel{})
	}
	snap := reg.Snapshot()
	assert.Len(t, snap, 10)
	assert.ElementsMatch(t, snap, []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9"})
}

func TestRegistryClose(t *testing.T) {
	reg := NewRegistry()
	chs := make([]*fakeChannel, 4)
	for i := range chs {
		chs[i] = &fakeChannel{}
		reg.Register(fmt.Sprintf("u%d", i), chs[i])
	}
	reg.Close()
	assert.Empty(t, reg.Snapshot())
	for _, ch := range chs {
		assert.True(t, ch.isClosed())
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := fmt.Sprintf("u%d", i%10)
			ch := &fakeChannel{}
			reg.Register(uid, ch)
			reg.Send(uid, []byte("x"))
			reg.Unregister(uid, ch)
		}(i)
	}
	wg.Wait()
}
