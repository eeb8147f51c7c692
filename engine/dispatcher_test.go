package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name   string
	result *FetchResult
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Fetch(ctx context.Context, _ *FetchRequest) (*FetchResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.EngineName = f.name
	return &res, nil
}

func TestDispatcher_FirstSuccessWins(t *testing.T) {
	t.Parallel()

	fast := &fakeEngine{name: "http", result: &FetchResult{StatusCode: 404}}
	slow := &fakeEngine{name: "rod", result: &FetchResult{StatusCode: 200}, delay: time.Second}
	mem := NewDomainMemory(time.Hour, 0)
	d := NewDispatcher([]Engine{fast, slow}, []time.Duration{0, 0}, mem)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, "http", res.EngineName)
	assert.Equal(t, 404, res.StatusCode)
	assert.Equal(t, "http", mem.Get("example.com"))
}

func TestDispatcher_EscalatesPastFailures(t *testing.T) {
	t.Parallel()

	broken := &fakeEngine{name: "http", err: errors.New("connection reset")}
	browser := &fakeEngine{name: "rod", result: &FetchResult{StatusCode: 200}}
	d := NewDispatcher([]Engine{broken, browser}, []time.Duration{0, 10 * time.Millisecond}, nil)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)
}

func TestDispatcher_AllFail(t *testing.T) {
	t.Parallel()

	a := &fakeEngine{name: "http", err: errors.New("dial failed")}
	b := &fakeEngine{name: "rod", err: errors.New("navigate failed")}
	d := NewDispatcher([]Engine{a, b}, nil, nil)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestDispatcher_DeadlineSurvivesJoin(t *testing.T) {
	t.Parallel()

	slow := &fakeEngine{name: "http", delay: time.Minute, result: &FetchResult{StatusCode: 200}}
	broken := &fakeEngine{name: "rod", err: errors.New("navigate failed")}
	d := NewDispatcher([]Engine{slow, broken}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := d.Fetch(ctx, &FetchRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorContains(t, err, "navigate failed")
}

func TestDispatcher_NeedsRenderingFallsBack(t *testing.T) {
	t.Parallel()

	shell := &fakeEngine{name: "http", result: &FetchResult{StatusCode: 200, NeedsRendering: true}}
	browser := &fakeEngine{name: "rod", err: errors.New("browser crashed")}
	mem := NewDomainMemory(time.Hour, 0)
	d := NewDispatcher([]Engine{shell, browser}, []time.Duration{0, 0}, mem)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://spa.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "http", res.EngineName)
	assert.True(t, res.NeedsRendering)
	assert.Empty(t, mem.Get("spa.example.com"))
}

func TestDispatcher_RenderedBeatsShell(t *testing.T) {
	t.Parallel()

	shell := &fakeEngine{name: "http", result: &FetchResult{StatusCode: 200, NeedsRendering: true}}
	browser := &fakeEngine{name: "rod", result: &FetchResult{StatusCode: 200}, delay: 20 * time.Millisecond}
	d := NewDispatcher([]Engine{shell, browser}, []time.Duration{0, 0}, nil)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://spa.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)
}

func TestDispatcher_DomainMemoryShortCircuits(t *testing.T) {
	t.Parallel()

	httpEng := &fakeEngine{name: "http", result: &FetchResult{StatusCode: 200}}
	rodEng := &fakeEngine{name: "rod", result: &FetchResult{StatusCode: 200}}
	mem := NewDomainMemory(time.Hour, 0)
	mem.Set("example.com", "rod")
	d := NewDispatcher([]Engine{httpEng, rodEng}, nil, mem)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)
	assert.Equal(t, int32(0), httpEng.calls.Load())
}

func TestDispatcher_ForgetsFailingMemory(t *testing.T) {
	t.Parallel()

	httpEng := &fakeEngine{name: "http", result: &FetchResult{StatusCode: 200}}
	rodEng := &fakeEngine{name: "rod", err: errors.New("gone"), delay: 0}
	mem := NewDomainMemory(time.Hour, 0)
	mem.Set("example.com", "rod")
	d := NewDispatcher([]Engine{httpEng, rodEng}, []time.Duration{0, time.Second}, mem)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "http", res.EngineName)
	assert.Equal(t, "http", mem.Get("example.com"))
}

func TestDomainMemory_Expiry(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	mem := NewDomainMemory(time.Minute, 0)
	mem.now = func() time.Time { return now }

	mem.Set("a.example", "rod")
	mem.Set("", "rod")
	assert.Equal(t, "rod", mem.Get("a.example"))
	assert.Equal(t, 1, mem.Len())

	now = now.Add(2 * time.Minute)
	mem.prune()
	assert.Equal(t, 0, mem.Len())
	assert.Empty(t, mem.Get("a.example"))
	mem.Stop()
	mem.Stop()
}
