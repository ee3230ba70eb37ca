package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	_ Locker = (*KeyedMutex)(nil)
	_ Locker = (*RedisLocker)(nil)
)

func TestLockerReleasesThroughInterface(t *testing.T) {
	var l Locker = NewKeyedMutex()

	unlock, err := l.Lock(context.Background(), BookKey(1))
	require.NoError(t, err)
	unlock()

	unlock, err = l.Lock(context.Background(), BookKey(1))
	require.NoError(t, err, "key is free again after unlock")
	unlock()
	assert.Zero(t, l.(*KeyedMutex).Len())
}

func TestBookKey(t *testing.T) {
	assert.Equal(t, "library:book:7", BookKey(7))
}

func TestKeyedMutexExclusion(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, BookKey(1))
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, km.Len(), "idle keys are dropped")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := km.Lock(ctx, BookKey(1))
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := km.Lock(ctx, BookKey(2))
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutexContextCancel(t *testing.T) {
	km := NewKeyedMutex()

	unlock, err := km.Lock(context.Background(), BookKey(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, BookKey(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Zero(t, km.Len())

	unlock, err = km.Lock(context.Background(), BookKey(1))
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	l, err := NewRedisLocker(addr, time.Second, zap.NewNop())
	require.NoError(t, err)
	defer l.Close()

	key := BookKey(uint(time.Now().UnixNano() % 1_000_000))
	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock, err = l.Lock(context.Background(), key)
	require.NoError(t, err)
	unlock()
}

func TestNewRedisLockerRequiresAddr(t *testing.T) {
	_, err := NewRedisLocker("", 0, zap.NewNop())
	assert.Error(t, err)
}
