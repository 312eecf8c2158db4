package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSaveGuard(t *testing.T) {
	t.Run("suspended while a hold is active", func(t *testing.T) {
		g := NewSaveGuard(time.Second, 0, nil)
		assert.False(t, g.Suspended())

		release := g.Acquire("save")
		assert.True(t, g.Suspended())

		release()
		assert.False(t, g.Suspended())
	})

	t.Run("release is idempotent", func(t *testing.T) {
		g := NewSaveGuard(time.Second, 0, nil)
		release := g.Acquire("save")
		release()
		release()
		assert.False(t, g.Suspended())
	})

	t.Run("overlapping holds keep the guard suspended", func(t *testing.T) {
		g := NewSaveGuard(time.Second, 0, nil)
		r1 := g.Acquire("save-1")
		r2 := g.Acquire("save-2")

		r1()
		assert.True(t, g.Suspended())
		r2()
		assert.False(t, g.Suspended())
	})

	t.Run("grace window keeps suspension briefly after release", func(t *testing.T) {
		g := NewSaveGuard(time.Second, 50*time.Millisecond, nil)
		release := g.Acquire("save")
		release()

		assert.True(t, g.Suspended())
		time.Sleep(80 * time.Millisecond)
		assert.False(t, g.Suspended())
	})

	t.Run("unreleased hold is force-released after the timeout", func(t *testing.T) {
		g := NewSaveGuard(30*time.Millisecond, 0, nil)
		g.Acquire("leaky-save") // release intentionally dropped

		assert.True(t, g.Suspended())
		assert.Eventually(t, func() bool { return !g.Suspended() },
			time.Second, 10*time.Millisecond,
			"guard should force-release instead of starving the coordinator")
	})

	t.Run("late release after force-release is harmless", func(t *testing.T) {
		g := NewSaveGuard(20*time.Millisecond, 0, nil)
		release := g.Acquire("slow-save")
		time.Sleep(60 * time.Millisecond)
		release()
		assert.False(t, g.Suspended())
	})

	t.Run("holders reports active owners", func(t *testing.T) {
		g := NewSaveGuard(time.Second, 0, nil)
		release := g.Acquire("bulk-clear")
		defer release()
		assert.Equal(t, []string{"bulk-clear"}, g.Holders())
	})
}
