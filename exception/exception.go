package exception

import (
	"fmt"
	"runtime/debug"

	"github.com/mezonai/tokenledger/logx"
	"github.com/mezonai/tokenledger/monitoring"
)

// SafeGo runs fn in a goroutine, logging and counting a panic instead of crashing the process
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("PANIC", fmt.Sprintf("Panic in %s: %v\n%s", name, r, debug.Stack()))
			}
		}()
		fn()
	}()
}
