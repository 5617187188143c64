package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := newBreaker(3, 1, time.Hour)

	b.Record(false)
	b.Record(false)
	assert.Equal(t, "closed", b.State())
	assert.True(t, b.Allow())

	b.Record(false)
	assert.Equal(t, "open", b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newBreaker(2, 1, time.Hour)

	b.Record(false)
	b.Record(true)
	b.Record(false)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b := newBreaker(1, 2, time.Millisecond)

	b.Record(false)
	assert.False(t, b.Allow())

	time.Sleep(5 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.Equal(t, "half-open", b.State())

	// One success is not enough with a threshold of two
	b.Record(true)
	assert.Equal(t, "half-open", b.State())
	b.Record(true)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newBreaker(1, 1, time.Millisecond)

	b.Record(false)
	time.Sleep(5 * time.Millisecond)
	assert.True(t, b.Allow())

	b.Record(false)
	assert.Equal(t, "open", b.State())
	assert.False(t, b.Allow())
}
