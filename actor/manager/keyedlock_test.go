package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daprkit/actorhost/actor"
)

func TestKeyedLockMutualExclusion(t *testing.T) {
	t.Parallel()

	k := newKeyedLock()

	var mu sync.Mutex
	active := 0
	overlapped := false

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := k.acquire("same-id", "", false, 0)
			require.NoError(t, err)

			mu.Lock()
			active++
			if active > 1 {
				overlapped = true
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()

			release()
		}()
	}
	wg.Wait()

	require.False(t, overlapped)
}

func TestKeyedLockReentrantSameID(t *testing.T) {
	t.Parallel()

	k := newKeyedLock()

	release1, err := k.acquire("id-1", "reentrancy-a", true, 32)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		release2, err := k.acquire("id-1", "reentrancy-a", true, 32)
		require.NoError(t, err)
		release2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reentrant acquire under the same reentrancy id should not block")
	}

	release1()
}

func TestKeyedLockReentrancyDepthExceeded(t *testing.T) {
	t.Parallel()

	k := newKeyedLock()
	const maxDepth = 3

	var releases []func()
	release, err := k.acquire("id-1", "r", true, maxDepth)
	require.NoError(t, err)
	releases = append(releases, release)

	for i := 1; i < maxDepth; i++ {
		release, err = k.acquire("id-1", "r", true, maxDepth)
		require.NoError(t, err)
		releases = append(releases, release)
	}

	_, err = k.acquire("id-1", "r", true, maxDepth)
	require.ErrorIs(t, err, actor.ErrReentrancyDepthExceeded)

	for _, r := range releases {
		r()
	}
}

func TestKeyedLockDifferentReentrancyIDsBlock(t *testing.T) {
	t.Parallel()

	k := newKeyedLock()

	release1, err := k.acquire("id-1", "reentrancy-a", true, 32)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release2, err := k.acquire("id-1", "reentrancy-b", true, 32)
		require.NoError(t, err)
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("a different reentrancy id must block behind the current holder")
	case <-time.After(50 * time.Millisecond):
	}

	release1()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should succeed once the first holder releases")
	}
}
