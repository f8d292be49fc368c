package exception

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mezonai/tokenledger/logx"
)

func TestSafeGo_RecoversPanic(t *testing.T) {
	logx.SetOutput(io.Discard)

	done := make(chan struct{})
	SafeGo("test", func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}

	ran := make(chan struct{})
	SafeGo("after", func() { close(ran) })
	require.Eventually(t, func() bool {
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
