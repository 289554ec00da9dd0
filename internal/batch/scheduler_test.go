package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportfetch/internal/domain/model"
	"reportfetch/internal/observability/mocks"
)

func requests(n int) []model.DownloadRequest {
	reqs := make([]model.DownloadRequest, n)
	for i := range reqs {
		reqs[i] = model.NewDownloadRequest(fmt.Sprintf("https://example.com/%d.pdf", i), "")
	}
	return reqs
}

// succeedOddFail fails even indexes and succeeds odd ones.
func succeedOddFail(ctx context.Context, index int, req model.DownloadRequest) model.Outcome {
	if index%2 == 0 {
		return model.Failed(model.NewFailure(req, model.NewHTTPStatusError(req.SourceURL, 500, "Internal Server Error"), 1))
	}
	return model.Succeeded(model.Success{SourceURL: req.SourceURL, Valid: true, Attempts: 1})
}

func newScheduler(t *testing.T, opts Options, item ItemFunc, options ...Option) *Scheduler {
	t.Helper()
	if opts.DestinationDir == "" {
		opts.DestinationDir = t.TempDir()
	}
	return New(opts, item, mocks.NewMockLogger(), mocks.NewMockMetrics(), options...)
}

type event struct {
	start bool
	index int
}

type tracker struct {
	mu       sync.Mutex
	events   []event
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (tr *tracker) item(delay time.Duration) ItemFunc {
	return func(ctx context.Context, index int, req model.DownloadRequest) model.Outcome {
		n := tr.inFlight.Add(1)
		for {
			m := tr.maxSeen.Load()
			if n <= m || tr.maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
		tr.record(event{start: true, index: index})

		time.Sleep(delay)

		tr.record(event{start: false, index: index})
		tr.inFlight.Add(-1)
		return model.Succeeded(model.Success{SourceURL: req.SourceURL})
	}
}

func (tr *tracker) record(e event) {
	tr.mu.Lock()
	tr.events = append(tr.events, e)
	tr.mu.Unlock()
}

func (tr *tracker) position(start bool, index int) int {
	for i, e := range tr.events {
		if e.start == start && e.index == index {
			return i
		}
	}
	return -1
}

func TestRun_WindowOfThreeOverFiveItems(t *testing.T) {
	tr := &tracker{}
	s := newScheduler(t, Options{Mode: ModeWindow, Concurrency: 3}, tr.item(30*time.Millisecond))

	result, err := s.Run(context.Background(), requests(5))
	require.NoError(t, err)

	assert.Len(t, result.Successes, 5)
	assert.Equal(t, int32(3), tr.maxSeen.Load())

	// Second window starts only after every item of the first settled.
	for _, second := range []int{3, 4} {
		for _, first := range []int{0, 1, 2} {
			assert.Less(t, tr.position(false, first), tr.position(true, second),
				"item %d started before item %d finished", second, first)
		}
	}
}

func TestRun_InterBatchDelayBetweenWindowsOnly(t *testing.T) {
	var delays []time.Duration
	wait := func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	s := newScheduler(t, Options{Mode: ModeWindow, Concurrency: 2, InterBatchDelay: 250 * time.Millisecond},
		succeedOddFail, WithWait(wait))

	_, err := s.Run(context.Background(), requests(5))
	require.NoError(t, err)

	// 3 windows, 2 pauses.
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, delays)
}

func TestRun_NoDropNoDuplicateInOrder(t *testing.T) {
	for _, mode := range []string{ModeWindow, ModePaced} {
		t.Run(mode, func(t *testing.T) {
			pacer := PacerFunc(func(ctx context.Context, done, total int) error { return nil })
			s := newScheduler(t, Options{Mode: mode, Concurrency: 3}, succeedOddFail, WithPacer(pacer))
			reqs := requests(7)

			result, err := s.Run(context.Background(), reqs)
			require.NoError(t, err)

			assert.Equal(t, len(reqs), result.Total())
			seen := map[string]int{}
			for _, s := range result.Successes {
				seen[s.SourceURL]++
			}
			for _, f := range result.Failures {
				seen[f.SourceURL]++
			}
			for _, r := range reqs {
				assert.Equal(t, 1, seen[r.SourceURL], r.SourceURL)
			}

			require.Len(t, result.Successes, 3)
			require.Len(t, result.Failures, 4)
			assert.Equal(t, reqs[1].SourceURL, result.Successes[0].SourceURL)
			assert.Equal(t, reqs[3].SourceURL, result.Successes[1].SourceURL)
			assert.Equal(t, reqs[5].SourceURL, result.Successes[2].SourceURL)
			assert.Equal(t, reqs[0].SourceURL, result.Failures[0].SourceURL)
			assert.Equal(t, reqs[6].SourceURL, result.Failures[3].SourceURL)
		})
	}
}

func TestRun_OrderIndependentOfCompletionOrder(t *testing.T) {
	// Later items in a window finish first.
	item := func(ctx context.Context, index int, req model.DownloadRequest) model.Outcome {
		time.Sleep(time.Duration(3-index%3) * 10 * time.Millisecond)
		return model.Succeeded(model.Success{SourceURL: req.SourceURL})
	}
	s := newScheduler(t, Options{Mode: ModeWindow, Concurrency: 3}, item)
	reqs := requests(6)

	result, err := s.Run(context.Background(), reqs)
	require.NoError(t, err)

	require.Len(t, result.Successes, 6)
	for i, r := range reqs {
		assert.Equal(t, r.SourceURL, result.Successes[i].SourceURL)
	}
}

func TestRun_PacedModeSuspendsBetweenItems(t *testing.T) {
	var mu sync.Mutex
	var log []string
	item := func(ctx context.Context, index int, req model.DownloadRequest) model.Outcome {
		mu.Lock()
		log = append(log, fmt.Sprintf("item %d", index))
		mu.Unlock()
		return model.Succeeded(model.Success{SourceURL: req.SourceURL})
	}
	pacer := PacerFunc(func(ctx context.Context, done, total int) error {
		mu.Lock()
		log = append(log, fmt.Sprintf("wait %d/%d", done, total))
		mu.Unlock()
		return nil
	})
	s := newScheduler(t, Options{Mode: ModePaced}, item, WithPacer(pacer))

	_, err := s.Run(context.Background(), requests(4))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"item 0", "wait 1/4",
		"item 1", "wait 2/4",
		"item 2", "wait 3/4",
		"item 3",
	}, log)
}

func TestRun_PacedModeSingleItemNeverWaits(t *testing.T) {
	waits := 0
	pacer := PacerFunc(func(ctx context.Context, done, total int) error { waits++; return nil })
	s := newScheduler(t, Options{Mode: ModePaced}, succeedOddFail, WithPacer(pacer))

	_, err := s.Run(context.Background(), requests(1))
	require.NoError(t, err)
	assert.Zero(t, waits)
}

func TestRun_ChannelPacerGatesItems(t *testing.T) {
	signals := make(chan struct{})
	var started atomic.Int32
	item := func(ctx context.Context, index int, req model.DownloadRequest) model.Outcome {
		started.Add(1)
		return model.Succeeded(model.Success{SourceURL: req.SourceURL})
	}
	s := newScheduler(t, Options{Mode: ModePaced}, item, WithPacer(NewChannelPacer(signals)))

	done := make(chan model.BatchResult)
	go func() {
		r, _ := s.Run(context.Background(), requests(3))
		done <- r
	}()

	assert.Eventually(t, func() bool { return started.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), started.Load())

	signals <- struct{}{}
	assert.Eventually(t, func() bool { return started.Load() == 2 }, time.Second, 5*time.Millisecond)

	signals <- struct{}{}
	select {
	case r := <-done:
		assert.Len(t, r.Successes, 3)
	case <-time.After(time.Second):
		t.Fatal("batch did not finish")
	}
}

func TestRun_PacedModeRequiresPacer(t *testing.T) {
	s := newScheduler(t, Options{Mode: ModePaced}, succeedOddFail)

	_, err := s.Run(context.Background(), requests(2))
	assert.ErrorIs(t, err, ErrPacerRequired)
}

func TestRun_CancellationMarksUnstartedItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	item := func(c context.Context, index int, req model.DownloadRequest) model.Outcome {
		if index == 1 {
			cancel()
		}
		return model.Succeeded(model.Success{SourceURL: req.SourceURL})
	}
	s := newScheduler(t, Options{Mode: ModeWindow, Concurrency: 2}, item)

	result, err := s.Run(ctx, requests(5))
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total())
	assert.Len(t, result.Successes, 2)
	require.Len(t, result.Failures, 3)
	for _, f := range result.Failures {
		assert.Equal(t, model.Cancelled, f.Kind)
		assert.Zero(t, f.Attempts)
	}
}

func TestRun_CancelledWhilePacing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pacer := PacerFunc(func(c context.Context, done, total int) error {
		cancel()
		return c.Err()
	})
	s := newScheduler(t, Options{Mode: ModePaced}, succeedOddFail, WithPacer(pacer))

	result, err := s.Run(ctx, requests(3))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total())
	require.Len(t, result.Failures, 3)
	assert.Equal(t, model.HTTPStatusError, result.Failures[0].Kind)
	assert.Equal(t, model.Cancelled, result.Failures[1].Kind)
	assert.Equal(t, model.Cancelled, result.Failures[2].Kind)
}

func TestRun_PanickingItemBecomesFailure(t *testing.T) {
	item := func(ctx context.Context, index int, req model.DownloadRequest) model.Outcome {
		if index == 1 {
			panic("boom")
		}
		return model.Succeeded(model.Success{SourceURL: req.SourceURL})
	}
	s := newScheduler(t, Options{Mode: ModeWindow, Concurrency: 3}, item)

	result, err := s.Run(context.Background(), requests(3))
	require.NoError(t, err)

	assert.Len(t, result.Successes, 2)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].ErrorMessage, "boom")
}

func TestRun_EmptyRequestList(t *testing.T) {
	s := newScheduler(t, Options{Mode: ModeWindow, Concurrency: 3}, succeedOddFail)

	result, err := s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Total())
}

func TestPrepare_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	s := New(Options{DestinationDir: dir}, succeedOddFail, mocks.NewMockLogger(), mocks.NewMockMetrics())

	require.NoError(t, s.Prepare())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "probe file must be removed")
}

func TestRun_UnusableDestinationAbortsBeforeAnyItem(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	called := false
	item := func(ctx context.Context, index int, req model.DownloadRequest) model.Outcome {
		called = true
		return model.Outcome{}
	}
	s := New(Options{DestinationDir: filepath.Join(file, "sub")}, item, mocks.NewMockLogger(), mocks.NewMockMetrics())

	_, err := s.Run(context.Background(), requests(2))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not writable")
	assert.False(t, called)
}

func TestRun_UnknownMode(t *testing.T) {
	s := newScheduler(t, Options{Mode: "burst"}, succeedOddFail)

	_, err := s.Run(context.Background(), requests(1))
	assert.Error(t, err)
}

func TestChannelPacer_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewChannelPacer(make(chan struct{}))

	err := p.Wait(ctx, 1, 2)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestChannelPacer_ClosedChannelReleases(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	prompts := 0
	p := NewChannelPacer(ch)
	p.Prompt = func(done, total int) { prompts++ }

	assert.NoError(t, p.Wait(context.Background(), 1, 3))
	assert.NoError(t, p.Wait(context.Background(), 2, 3))
	assert.Equal(t, 2, prompts)
}
