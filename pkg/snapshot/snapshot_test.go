package snapshot_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
	"gitlab.com/tozd/go/errors"
)

func result(version int32) *virtualcode.Result {
	return &virtualcode.Result{Source: virtualcode.Source{Path: "/a.astro", Version: version}}
}

func TestSingleFlight(t *testing.T) {
	cache := snapshot.NewCache()
	ctx := context.Background()

	var builds atomic.Int32
	release := make(chan struct{})
	build := func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error) {
		builds.Add(1)
		<-release
		return result(1), nil
	}

	var wg sync.WaitGroup
	entries := make([]*snapshot.Entry, 8)
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := cache.GetOrBuild(ctx, "file:///a.astro", 1, build)
			assert.NoError(t, err)
			entries[i] = e
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, e := range entries {
		assert.Same(t, entries[0], e)
	}
}

func TestFailuresAreNotCached(t *testing.T) {
	cache := snapshot.NewCache()
	ctx := context.Background()

	calls := 0
	build := func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("engine exploded")
		}
		return result(1), nil
	}

	_, err := cache.GetOrBuild(ctx, "file:///a.astro", 1, build)
	require.Error(t, err)
	_, ok := cache.Latest("file:///a.astro")
	assert.False(t, ok)

	e, err := cache.GetOrBuild(ctx, "file:///a.astro", 1, build)
	require.NoError(t, err)
	assert.Equal(t, int32(1), e.Version)
	assert.Equal(t, 2, calls)
}

func TestNewerVersionEvictsOlder(t *testing.T) {
	cache := snapshot.NewCache()
	ctx := context.Background()
	uri := "file:///a.astro"

	var seenPrev *virtualcode.Result
	build := func(v int32) snapshot.BuildFunc {
		return func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error) {
			seenPrev = prev
			return result(v), nil
		}
	}

	first, err := cache.GetOrBuild(ctx, uri, 1, build(1))
	require.NoError(t, err)
	assert.Nil(t, seenPrev)

	second, err := cache.GetOrBuild(ctx, uri, 2, build(2))
	require.NoError(t, err)
	assert.Same(t, first.Result, seenPrev, "previous result is offered for reuse")

	latest, ok := cache.Latest(uri)
	require.True(t, ok)
	assert.Same(t, second, latest)
	assert.Equal(t, 1, cache.Len())

	_, err = cache.GetOrBuild(ctx, uri, 1, build(1))
	assert.ErrorIs(t, err, snapshot.ErrSuperseded)

	cache.Evict(uri)
	assert.Equal(t, 0, cache.Len())
}

func TestStaleBuildIsNotInstalled(t *testing.T) {
	cache := snapshot.NewCache()
	ctx := context.Background()
	uri := "file:///a.astro"

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := cache.GetOrBuild(ctx, uri, 1, func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error) {
			close(started)
			<-release
			return result(1), nil
		})
		done <- err
	}()

	<-started
	_, err := cache.GetOrBuild(ctx, uri, 2, func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error) {
		return result(2), nil
	})
	require.NoError(t, err)

	close(release)
	assert.ErrorIs(t, <-done, snapshot.ErrSuperseded)

	latest, _ := cache.Latest(uri)
	assert.Equal(t, int32(2), latest.Version)
}

func TestCancelledWaiter(t *testing.T) {
	cache := snapshot.NewCache()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)

	_, err := cache.GetOrBuild(ctx, "file:///a.astro", 1, func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error) {
		<-release
		return result(1), nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemo(t *testing.T) {
	cache := snapshot.NewCache()
	ctx := context.Background()

	e, err := cache.GetOrBuild(ctx, "file:///a.astro", 1, func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error) {
		return result(1), nil
	})
	require.NoError(t, err)

	calls := 0
	compute := func() ([]string, error) {
		calls++
		return []string{"a"}, nil
	}

	v, err := snapshot.Memo(e, "completion:Card", compute)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v)

	_, err = snapshot.Memo(e, "completion:Card", compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = snapshot.Memo(e, "completion:Other", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = snapshot.Memo(e, "failing", func() (int, error) { return 0, errors.New("no") })
	require.Error(t, err)
	v2, err := snapshot.Memo(e, "failing", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v2)
}

func TestReinstallKeepsEntry(t *testing.T) {
	cache := snapshot.NewCache()
	ctx := context.Background()

	builds := 0
	build := func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error) {
		builds++
		return result(1), nil
	}

	e, err := cache.GetOrBuild(ctx, "file:///a.astro", 1, build)
	require.NoError(t, err)

	_, err = snapshot.Memo(e, "tag", func() (int, error) { return 1, nil })
	require.NoError(t, err)

	// a second build of the same version that lost the race to install
	again, err := cache.Install(ctx, "file:///a.astro", 1, result(1))
	require.NoError(t, err)
	assert.Same(t, e, again)

	v, err := snapshot.Memo(again, "tag", func() (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v, "memo survives")

	_, err = cache.Install(ctx, "file:///a.astro", 0, result(0))
	assert.ErrorIs(t, err, snapshot.ErrSuperseded)

	latest, ok := cache.Latest("file:///a.astro")
	require.True(t, ok)
	assert.Same(t, e, latest)
	assert.Equal(t, 1, builds)
}
