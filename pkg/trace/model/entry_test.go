package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow_Widen(t *testing.T) {
	t.Run("should start unset", func(t *testing.T) {
		var w Window
		assert.False(t, w.IsSet())
		assert.False(t, w.Contains(time.Time{}))
		assert.Zero(t, w.Duration())
	})

	t.Run("should keep the earliest possible instant", func(t *testing.T) {
		var w Window
		earliest := time.Time{}
		later := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		w.Widen(earliest)
		assert.True(t, w.IsSet())
		w.Widen(later)

		assert.Equal(t, earliest, w.StartedAt)
		assert.Equal(t, later, w.FinishedAt)
		assert.True(t, w.Contains(earliest))
		assert.True(t, w.Contains(later))
	})
}
