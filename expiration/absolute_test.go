package expiration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/advert-resolver/expiration"
)

func TestAbsoluteBoundary(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := expiration.Absolute{}

	exp := s.ExpireAt(now, 5*time.Minute)
	assert.Equal(t, now.Add(5*time.Minute), exp)

	assert.False(t, s.IsExpired(exp, now.Add(5*time.Minute-time.Nanosecond)))
	assert.True(t, s.IsExpired(exp, now.Add(5*time.Minute)), "visible only until now >= expireAt")
}

func TestAbsoluteDefaultTTL(t *testing.T) {
	now := time.Now()

	assert.True(t, expiration.Absolute{}.ExpireAt(now, 0).IsZero())
	assert.Equal(t, now.Add(time.Minute), expiration.Absolute{DefaultTTL: time.Minute}.ExpireAt(now, 0))
	assert.False(t, expiration.Absolute{}.IsExpired(time.Time{}, now.Add(100*time.Hour)))
}
