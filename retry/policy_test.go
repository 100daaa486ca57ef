package retry

import (
	"testing"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BaseDelay: time.Second, Multiplier: 3, MaxDelay: 20 * time.Second}

	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 3*time.Second, p.Delay(2))
	assert.Equal(t, 9*time.Second, p.Delay(3))
	assert.Equal(t, 20*time.Second, p.Delay(4))
	assert.Equal(t, time.Second, p.Delay(0))
}

func TestPolicy_DelayMultiplierFloor(t *testing.T) {
	p := Policy{BaseDelay: time.Second, Multiplier: 0.5}
	assert.Equal(t, time.Second, p.Delay(5))
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr error
	}{
		{"default", DefaultPolicy(), nil},
		{"no retry", NoRetry(), nil},
		{"zero attempts", Policy{}, ErrInvalidMaxAttempts},
		{"negative base", Policy{MaxAttempts: 1, BaseDelay: -1}, ErrInvalidDelay},
		{"base above max", Policy{MaxAttempts: 1, BaseDelay: time.Minute, MaxDelay: time.Second}, ErrInvalidDelay},
		{"negative jitter", Policy{MaxAttempts: 1, Jitter: -0.1}, ErrInvalidDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPolicy_Retries(t *testing.T) {
	def := DefaultPolicy()
	assert.True(t, def.Retries(core.KindTransient))
	assert.True(t, def.Retries(core.KindRateLimited))
	assert.False(t, def.Retries(core.KindPermanent))

	onlyTransient := Policy{Retryable: []core.ErrorKind{core.KindTransient}}
	assert.False(t, onlyTransient.Retries(core.KindRateLimited))
}
