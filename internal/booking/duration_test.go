package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{time.Hour + 5*time.Minute + 30*time.Second, "1h 5m 30s"},
		{2 * time.Hour, "2h"},
		{90 * time.Minute, "1h 30m"},
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{time.Hour + 12*time.Second, "1h 12s"},
		{0, "0s"},
		{-90 * time.Second, "1m 30s"},
		{1500 * time.Millisecond, "2s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), tt.d.String())
	}
}
