package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeHours(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 10.0, AgeHours(now.Add(-10*time.Hour), now))
	assert.Equal(t, 0.5, AgeHours(now.Add(-30*time.Minute), now))

	// future creation times clamp to zero
	assert.Equal(t, 0.0, AgeHours(now.Add(time.Hour), now))
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 0.8611, Round4(0.86111111))
	assert.Equal(t, 0.8612, Round4(0.86115))
	assert.Equal(t, 1.0, Round4(0.99999))
	assert.Equal(t, 0.0, Round4(0.00001))
}
