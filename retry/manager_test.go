package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures requested delays instead of sleeping.
type recorder struct {
	delays []time.Duration
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestManager(t *testing.T) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	m, err := NewManager(WithSleep(rec.sleep), WithRand(func() float64 { return 0 }))
	require.NoError(t, err)
	return m, rec
}

func testPolicy() Policy {
	return Policy{
		MaxAttempts:      4,
		BaseDelay:        100 * time.Millisecond,
		Multiplier:       2,
		MaxDelay:         time.Second,
		RateLimitCeiling: 2,
	}
}

func TestDo_Success(t *testing.T) {
	m, rec := newTestManager(t)

	out, err := m.Do(context.Background(), testPolicy(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, rec.delays)
}

func TestDo_EventualSuccess(t *testing.T) {
	m, rec := newTestManager(t)
	attempts := 0

	out, err := m.Do(context.Background(), testPolicy(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return core.Transient(core.CodeExtraction, errors.New("flaky"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, rec.delays)
}

func TestDo_PermanentFailsImmediately(t *testing.T) {
	m, rec := newTestManager(t)
	permanent := core.Permanent(core.CodeValidation, errors.New("bad"))

	out, err := m.Do(context.Background(), testPolicy(), func(ctx context.Context) error { return permanent })
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, rec.delays)
}

func TestDo_UnclassifiedIsPermanent(t *testing.T) {
	m, _ := newTestManager(t)

	out, err := m.Do(context.Background(), testPolicy(), func(ctx context.Context) error { return errors.New("mystery") })
	require.Error(t, err)
	assert.Equal(t, 1, out.Attempts)
}

func TestDo_ExhaustedRetries(t *testing.T) {
	m, rec := newTestManager(t)
	last := errors.New("still down")

	out, err := m.Do(context.Background(), testPolicy(), func(ctx context.Context) error {
		return core.Transient(core.CodeExtraction, last)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, last)
	assert.Equal(t, core.CodeExhaustedRetries, core.CodeOf(err, ""))
	assert.Equal(t, core.KindPermanent, core.KindOf(err))
	assert.Equal(t, 4, out.Attempts)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}, rec.delays)
}

func TestDo_DelayCappedAtMax(t *testing.T) {
	m, rec := newTestManager(t)
	p := testPolicy()
	p.MaxAttempts = 7

	_, err := m.Do(context.Background(), p, func(ctx context.Context) error {
		return core.Transient(core.CodeExtraction, errors.New("down"))
	})
	require.Error(t, err)
	require.Len(t, rec.delays, 6)
	assert.Equal(t, time.Second, rec.delays[4])
	assert.Equal(t, time.Second, rec.delays[5])
}

func TestDo_RateLimitedHonorsRetryAfter(t *testing.T) {
	m, rec := newTestManager(t)
	calls := 0

	out, err := m.Do(context.Background(), testPolicy(), func(ctx context.Context) error {
		calls++
		switch calls {
		case 1:
			return core.RateLimited(core.CodeExtraction, errors.New("429"), 5*time.Second)
		case 2:
			return core.RateLimited(core.CodeExtraction, errors.New("429"), time.Millisecond)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 2, out.RateLimited)
	// Advised delay wins when larger, computed backoff otherwise
	assert.Equal(t, []time.Duration{5 * time.Second, 100 * time.Millisecond}, rec.delays)
}

func TestDo_RateLimitedDoesNotConsumeAttempts(t *testing.T) {
	m, _ := newTestManager(t)
	p := testPolicy()
	p.MaxAttempts = 2
	calls := 0

	_, err := m.Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		switch calls {
		case 1, 2:
			return core.RateLimited(core.CodeExtraction, errors.New("429"), 0)
		case 3:
			return core.Transient(core.CodeExtraction, errors.New("blip"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestDo_RateLimitCeiling(t *testing.T) {
	m, _ := newTestManager(t)

	out, err := m.Do(context.Background(), testPolicy(), func(ctx context.Context) error {
		return core.RateLimited(core.CodeExtraction, errors.New("429"), 0)
	})
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, out.RateLimited)
}

func TestDo_Jitter(t *testing.T) {
	rec := &recorder{}
	m, err := NewManager(WithSleep(rec.sleep), WithRand(func() float64 { return 0.5 }))
	require.NoError(t, err)

	p := testPolicy()
	p.Jitter = 0.2
	p.MaxAttempts = 2

	_, err = m.Do(context.Background(), p, func(ctx context.Context) error {
		return core.Transient(core.CodeExtraction, errors.New("down"))
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{110 * time.Millisecond}, rec.delays)
}

func TestDo_AttemptTimeoutIsTransient(t *testing.T) {
	m, _ := newTestManager(t)
	p := testPolicy()
	p.Timeout = 10 * time.Millisecond
	calls := 0

	out, err := m.Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return core.Permanent(core.CodeExtraction, ctx.Err())
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Attempts)
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m, _ := newTestManager(t)
	attempts := 0

	_, err := m.Do(ctx, testPolicy(), func(ctx context.Context) error {
		attempts++
		cancel()
		return core.Transient(core.CodeExtraction, errors.New("error"))
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDo_InvalidPolicy(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Do(context.Background(), Policy{}, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestNoRetry(t *testing.T) {
	m, rec := newTestManager(t)

	out, err := m.Do(context.Background(), NoRetry(), func(ctx context.Context) error {
		return core.Transient(core.CodeExtraction, errors.New("flaky"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, rec.delays)
}

func TestSleep_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
