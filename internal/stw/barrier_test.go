package stw

import (
	"runtime"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrierRun(t *testing.T) {
	before := runtime.GOMAXPROCS(0)

	var inside int
	err := NewBarrier(time.Second).Run(func() error {
		inside = runtime.GOMAXPROCS(0)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, inside)
	assert.Equal(t, before, runtime.GOMAXPROCS(0))
}

func TestBarrierReturnsCallbackError(t *testing.T) {
	want := errors.New("boom")
	err := NewBarrier(0).Run(func() error { return want })
	assert.ErrorIs(t, err, want)
}

func TestBarrierTimeout(t *testing.T) {
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- NewBarrier(0).Run(func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := NewBarrier(10 * time.Millisecond).Run(func() error { return nil })
	assert.ErrorIs(t, err, ErrPauseTimeout)

	close(release)
	require.NoError(t, <-done)
}
