package ledger

import (
	"context"
	"fmt"

	"github.com/mezonai/tokenledger/db"
	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/events"
	"github.com/mezonai/tokenledger/exception"
	"github.com/mezonai/tokenledger/logx"
	"github.com/mezonai/tokenledger/monitoring"
)

// ArchiveTransactions moves the oldest num_blocks_to_archive records to the archive when
// the hot log is longer than trigger_threshold. It returns how many records moved.
func (l *Ledger) ArchiveTransactions(ctx context.Context) (uint64, error) {
	if l.archive == nil {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	hot := l.meta.LogLength - l.meta.FirstIndex
	if hot <= l.archiveOpts.TriggerThreshold {
		return 0, nil
	}
	n := min(l.archiveOpts.NumBlocksToArchive, hot)
	if n == 0 {
		return 0, nil
	}

	start := l.meta.FirstIndex
	txs, err := l.stores.Txs.GetRange(start, start+n)
	if err != nil {
		return 0, lerrors.NewInternalError(err)
	}
	if uint64(len(txs)) != n {
		return 0, lerrors.NewInternalError(fmt.Errorf("hot log is missing records in [%d, %d)", start, start+n))
	}

	// the archive skips indices it already holds, so a failure below is retried safely
	if err := l.archive.AppendTransactions(ctx, txs); err != nil {
		return 0, lerrors.NewInternalError(fmt.Errorf("failed to append to archive: %w", err))
	}

	meta := l.meta.Clone()
	meta.FirstIndex += n
	err = l.stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		for _, tx := range txs {
			l.stores.Txs.StageDelete(batch, tx.Index)
		}
		return l.stores.Meta.StageLedgerMeta(batch, meta)
	})
	if err != nil {
		return 0, lerrors.NewInternalError(err)
	}
	l.meta = meta

	monitoring.AddArchivedTransactions(len(txs))
	monitoring.SetLogLength(meta.LogLength, meta.FirstIndex)
	logx.Info("LEDGER", fmt.Sprintf("Archived transactions [%d, %d), first_index=%d", start, start+n, meta.FirstIndex))
	if l.eventBus != nil {
		l.eventBus.Publish(events.NewTransactionsArchived(start, n, l.clock.Now()))
	}
	return n, nil
}

// maybeArchive starts background archiving once a commit pushes the hot log past the
// threshold. At most one run is in flight. Called with mu held.
func (l *Ledger) maybeArchive() {
	if !l.archivePendingLocked() {
		return
	}
	if !l.archiving.CompareAndSwap(false, true) {
		return
	}
	l.background.Add(1)
	exception.SafeGo("ledger-archive", func() {
		defer l.background.Done()
		l.runArchiving()
	})
}

// waitBackground blocks until every background archiving run has returned
func (l *Ledger) waitBackground() {
	l.background.Wait()
}

func (l *Ledger) archivePendingLocked() bool {
	return l.archive != nil && l.meta.LogLength-l.meta.FirstIndex > l.archiveOpts.TriggerThreshold
}

// runArchiving archives until the hot log is back under the threshold. A commit that lands
// while the flag is being cleared is picked up by the re-check.
func (l *Ledger) runArchiving() {
	for {
		for {
			n, err := l.ArchiveTransactions(context.Background())
			if err != nil {
				logx.Error("LEDGER", fmt.Sprintf("Background archiving failed: %v", err))
				l.archiving.Store(false)
				return
			}
			if n == 0 {
				break
			}
		}
		l.archiving.Store(false)

		l.mu.RLock()
		pending := l.archivePendingLocked()
		l.mu.RUnlock()
		if !pending || !l.archiving.CompareAndSwap(false, true) {
			return
		}
	}
}
