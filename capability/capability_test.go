package capability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	kind  Kind
	delay time.Duration
	calls atomic.Int32
}

func (s *stubService) Kind() Kind { return s.kind }

func (s *stubService) Process(ctx context.Context, req Request) (*Result, error) {
	s.calls.Add(1)
	select {
	case <-time.After(s.delay):
		return &Result{Text: "ok"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind core.ErrorKind
	}{
		{"rate limited", &RetryAfterError{After: 3 * time.Second, Err: errors.New("429")}, core.KindRateLimited},
		{"wrapped rate limited", fmt.Errorf("call: %w", &RetryAfterError{Err: errors.New("429")}), core.KindRateLimited},
		{"permanent", Permanentf("bad media %s", "x"), core.KindPermanent},
		{"unavailable", ErrUnavailable, core.KindPermanent},
		{"other", errors.New("connection reset"), core.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.err)
			assert.Equal(t, tt.wantKind, core.KindOf(err))
			assert.Equal(t, core.CodeExtraction, core.CodeOf(err, ""))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, Classify(nil))
	assert.Equal(t, 3*time.Second, core.RetryAfterOf(Classify(&RetryAfterError{After: 3 * time.Second, Err: errors.New("x")})))
	assert.Equal(t, context.Canceled, Classify(context.Canceled))
}

func TestLimit_BoundsConcurrency(t *testing.T) {
	stub := &stubService{kind: KindOCR, delay: 20 * time.Millisecond}
	limited := Limit(stub, 2)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := limited.Process(context.Background(), Request{Kind: KindOCR})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), stub.calls.Load())
	assert.LessOrEqual(t, limited.Peak(), 2)
	assert.Equal(t, KindOCR, limited.Kind())
}

func TestLimit_AcquireHonorsContext(t *testing.T) {
	stub := &stubService{kind: KindOCR, delay: time.Second}
	limited := Limit(stub, 1)

	busy, cancelBusy := context.WithCancel(context.Background())
	defer cancelBusy()
	go limited.Process(busy, Request{})
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := limited.Process(ctx, Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestSet(t *testing.T) {
	ocr := &stubService{kind: KindOCR}
	speech := &stubService{kind: KindTranscription}
	set := NewSet(ocr, speech, nil)

	got, ok := set.Service(KindOCR)
	require.True(t, ok)
	assert.Same(t, ocr, got)

	_, ok = set.Service(KindDiarization)
	assert.False(t, ok)

	limited := set.Limit(1)
	got, ok = limited.Service(KindTranscription)
	require.True(t, ok)
	assert.IsType(t, &Limited{}, got)

	closed := false
	set.OnClose(func() error { closed = true; return nil })
	require.NoError(t, set.Close())
	assert.True(t, closed)
}
