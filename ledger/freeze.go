package ledger

import (
	"fmt"

	"github.com/mezonai/tokenledger/db"
	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/events"
	"github.com/mezonai/tokenledger/logx"
	"github.com/mezonai/tokenledger/types"
)

// FreezeAccount blocks every operation touching any account of owner. Only admins may freeze.
func (l *Ledger) FreezeAccount(caller, owner types.Principal) error {
	return l.setFrozen(OpFreeze, caller, owner, true)
}

func (l *Ledger) UnfreezeAccount(caller, owner types.Principal) error {
	return l.setFrozen(OpUnfreeze, caller, owner, false)
}

func (l *Ledger) IsFrozen(owner types.Principal) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isFrozenLocked(owner)
}

func (l *Ledger) setFrozen(op string, caller, owner types.Principal, frozen bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.cfg.IsAdmin(caller) {
		return l.reject(op, caller, lerrors.NewUnauthorized("only admins can change frozen accounts"))
	}
	if l.isFrozenLocked(owner) == frozen {
		return nil
	}

	err := l.stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		if frozen {
			l.stores.Meta.StageFreeze(batch, owner)
		} else {
			l.stores.Meta.StageUnfreeze(batch, owner)
		}
		return nil
	})
	if err != nil {
		return l.reject(op, caller, lerrors.NewInternalError(err))
	}

	if frozen {
		l.frozen[owner] = struct{}{}
	} else {
		delete(l.frozen, owner)
	}
	logx.Info("LEDGER", fmt.Sprintf("Account %s frozen=%t by %s", owner, frozen, caller))
	if l.eventBus != nil {
		l.eventBus.Publish(events.NewAccountFreezeToggled(owner, frozen, l.clock.Now()))
	}
	return nil
}
