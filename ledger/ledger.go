package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/holiman/uint256"

	"github.com/mezonai/tokenledger/archive"
	"github.com/mezonai/tokenledger/config"
	"github.com/mezonai/tokenledger/db"
	"github.com/mezonai/tokenledger/dedup"
	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/events"
	"github.com/mezonai/tokenledger/jsonx"
	"github.com/mezonai/tokenledger/logx"
	"github.com/mezonai/tokenledger/monitoring"
	"github.com/mezonai/tokenledger/store"
	"github.com/mezonai/tokenledger/types"
)

// Operation names used in logs, metrics and rejection events
const (
	OpTransfer     = "transfer"
	OpTransferFrom = "transfer_from"
	OpApprove      = "approve"
	OpMint         = "mint"
	OpBurn         = "burn"
	OpFreeze       = "freeze"
	OpUnfreeze     = "unfreeze"
)

// rebuildChunk is how many records are read per step when rebuilding the dedup window
const rebuildChunk = 512

// Ledger is the single authoritative state machine. Every mutating operation holds mu
// for writing from validation through commit; queries hold it for reading.
type Ledger struct {
	mu     sync.RWMutex
	cfg    *config.TokenConfig
	stores *store.Stores
	window *dedup.Window
	clock  clock.Clock

	archive     archive.Archive
	archiveOpts config.ArchiveOptions
	archiving   atomic.Bool

	// background tracks archiving goroutines so Close can wait for them
	background sync.WaitGroup

	eventBus *events.EventBus

	// meta and frozen mirror committed state; they are replaced only after a batch write succeeds
	meta   *store.LedgerMeta
	frozen map[types.Principal]struct{}
}

type Option func(*Ledger)

// WithClock sets the source of ledger time
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithArchive enables moving old records out of hot storage
func WithArchive(a archive.Archive, opts config.ArchiveOptions) Option {
	return func(l *Ledger) {
		if opts.NumBlocksToArchive == 0 {
			opts.NumBlocksToArchive = config.DefaultNumBlocksToArchive
		}
		l.archive = a
		l.archiveOpts = opts
	}
}

func WithEventBus(eventBus *events.EventBus) Option {
	return func(l *Ledger) {
		l.eventBus = eventBus
	}
}

// NewLedger opens the ledger on stores. A fresh provider is initialized from cfg, recording
// every initial balance as a mint; an existing one is resumed and cfg only supplies settings.
func NewLedger(stores *store.Stores, cfg *config.TokenConfig, opts ...Option) (*Ledger, error) {
	if stores == nil {
		return nil, fmt.Errorf("stores cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("token config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid token config: %w", err)
	}

	l := &Ledger{
		cfg:    cfg,
		stores: stores,
		window: dedup.NewWindow(cfg.Advanced.TransactionWindow, cfg.Advanced.PermittedDrift),
		clock:  clock.New(),
		frozen: make(map[types.Principal]struct{}),
		archiveOpts: config.ArchiveOptions{
			TriggerThreshold:           config.DefaultTriggerThreshold,
			NumBlocksToArchive:         config.DefaultNumBlocksToArchive,
			MaxTransactionsPerResponse: config.DefaultMaxTransactionsPerResponse,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	monitoring.InitMetrics()

	meta, err := stores.Meta.GetLedgerMeta()
	if err != nil {
		return nil, err
	}
	if meta == nil {
		if err := l.initGenesis(); err != nil {
			return nil, fmt.Errorf("failed to initialize ledger: %w", err)
		}
	} else {
		l.meta = meta
		if err := l.loadFrozen(); err != nil {
			return nil, err
		}
		if err := l.rebuildWindow(); err != nil {
			return nil, fmt.Errorf("failed to rebuild deduplication window: %w", err)
		}
	}

	monitoring.SetLogLength(l.meta.LogLength, l.meta.FirstIndex)
	logx.Info("LEDGER", fmt.Sprintf("Ledger %s ready: log_length=%d, first_index=%d, total_supply=%s",
		cfg.Symbol, l.meta.LogLength, l.meta.FirstIndex, l.meta.TotalSupply.Dec()))
	return l, nil
}

func (l *Ledger) initGenesis() error {
	now := l.now()
	meta := &store.LedgerMeta{
		TotalSupply:  new(uint256.Int),
		BurnedTokens: l.cfg.Advanced.BurnedTokens.Clone(),
	}
	view := newStateView(l.stores, meta)

	txs := make([]*types.Transaction, 0, len(l.cfg.InitialBalances))
	for _, ib := range l.cfg.InitialBalances {
		if err := view.credit(ib.Account, ib.Amount); err != nil {
			return err
		}
		view.meta.TotalSupply.Add(view.meta.TotalSupply, ib.Amount)
		txs = append(txs, &types.Transaction{
			Index:     view.meta.LogLength,
			Timestamp: now,
			Kind:      types.TxKindMint,
			Mint:      &types.Mint{To: ib.Account, Amount: ib.Amount.Clone()},
		})
		view.meta.LogLength++
	}

	err := l.stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		if err := view.flush(batch); err != nil {
			return err
		}
		for _, tx := range txs {
			if err := l.stores.Txs.StageAppend(batch, tx); err != nil {
				return err
			}
		}
		return l.stores.Meta.StageLedgerMeta(batch, view.meta)
	})
	if err != nil {
		return err
	}

	l.meta = view.meta
	logx.Info("LEDGER", fmt.Sprintf("Initialized ledger with %d initial balances", len(txs)))
	return nil
}

func (l *Ledger) loadFrozen() error {
	owners, err := l.stores.Meta.FrozenOwners()
	if err != nil {
		return err
	}
	for _, owner := range owners {
		l.frozen[owner] = struct{}{}
	}
	return nil
}

// rebuildWindow replays the log tail that can still produce duplicates at the current time.
// The scan walks back through hot storage and continues into the archive until it reaches
// records older than the window.
func (l *Ledger) rebuildWindow() error {
	now := l.now()
	span := uint64(l.window.TransactionWindow() + 2*l.window.PermittedDrift())
	var oldest uint64
	if now > span {
		oldest = now - span
	}

	l.window.Reset()
	restored := 0
	end := l.meta.LogLength
	done := false
	for !done && end > l.meta.FirstIndex {
		start := l.meta.FirstIndex
		if end-start > rebuildChunk {
			start = end - rebuildChunk
		}
		txs, err := l.stores.Txs.GetRange(start, end)
		if err != nil {
			return err
		}
		var n int
		n, done = l.replayWindow(txs, oldest, now)
		restored += n
		end = start
	}

	if !done && l.archive != nil {
		chunk := uint64(rebuildChunk)
		if maxResp := l.archiveOpts.MaxTransactionsPerResponse; maxResp > 0 && maxResp < chunk {
			chunk = maxResp
		}
		for !done && end > 0 {
			start := uint64(0)
			if end > chunk {
				start = end - chunk
			}
			rng, err := l.archive.GetTransactions(context.Background(), start, end-start)
			if err != nil {
				return fmt.Errorf("failed to read archived transactions: %w", err)
			}
			if len(rng.Transactions) == 0 {
				break
			}
			var n int
			n, done = l.replayWindow(rng.Transactions, oldest, now)
			restored += n
			end = rng.Transactions[0].Index
		}
	}

	l.window.Evict(now)
	logx.Info("LEDGER", fmt.Sprintf("Restored %d deduplication entries", restored))
	return nil
}

// replayWindow records txs newest first and reports whether a record older than oldest was reached
func (l *Ledger) replayWindow(txs []*types.Transaction, oldest, now uint64) (int, bool) {
	restored := 0
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if tx.Timestamp < oldest {
			return restored, true
		}
		if tx.CreatedAtTime() == nil {
			continue
		}
		l.window.Record(submitterOf(tx, l.cfg.MintingAccount), tx.Memo(), tx.CreatedAtTime(), tx.Index, now)
		restored++
	}
	return restored, false
}

// submitterOf is the account a committed record was deduplicated under
func submitterOf(tx *types.Transaction, mintingAccount *types.Account) types.Account {
	switch tx.Kind {
	case types.TxKindMint:
		if mintingAccount != nil {
			return *mintingAccount
		}
		return tx.Mint.To
	case types.TxKindBurn:
		if tx.Burn.Spender != nil {
			return *tx.Burn.Spender
		}
		return tx.Burn.From
	case types.TxKindApprove:
		return tx.Approve.From
	default:
		if tx.Transfer.Spender != nil {
			return *tx.Transfer.Spender
		}
		return tx.Transfer.From
	}
}

// now is the ledger time in nanoseconds
func (l *Ledger) now() uint64 {
	return uint64(l.clock.Now().UnixNano())
}

func (l *Ledger) isFrozenLocked(owners ...types.Principal) bool {
	for _, owner := range owners {
		if _, ok := l.frozen[owner]; ok {
			return true
		}
	}
	return false
}

func (l *Ledger) validateMemo(memo []byte) error {
	if len(memo) > l.cfg.MaxMemoLength {
		return lerrors.NewBadRequest("memo is %d bytes, at most %d allowed", len(memo), l.cfg.MaxMemoLength)
	}
	return nil
}

func validateAmount(amount *uint256.Int) error {
	if amount == nil {
		return lerrors.NewBadRequest("amount is required")
	}
	if !types.InBalanceRange(amount) {
		return lerrors.NewBadRequest("amount %s exceeds the 128-bit range", amount.Dec())
	}
	return nil
}

// checkFee accepts an absent fee or exactly expected
func checkFee(fee, expected *uint256.Int) error {
	if fee != nil && !fee.Eq(expected) {
		return lerrors.NewBadFee(expected)
	}
	return nil
}

func (l *Ledger) isMintingAccount(account types.Account) bool {
	return l.cfg.MintingAccount != nil && l.cfg.MintingAccount.Equal(account)
}

// chargeFee debits fee from payer and routes it to the fee collector, or burns it when there is none
func (l *Ledger) chargeFee(view *stateView, payer types.Account, fee *uint256.Int) error {
	if fee.IsZero() {
		return nil
	}
	if err := view.debit(payer, fee); err != nil {
		return err
	}
	// fees collected by the minting account leave circulation like any burn
	if l.cfg.FeeCollector != nil && !l.isMintingAccount(*l.cfg.FeeCollector) {
		return view.credit(*l.cfg.FeeCollector, fee)
	}
	view.meta.TotalSupply.Sub(view.meta.TotalSupply, fee)
	view.meta.BurnedTokens.Add(view.meta.BurnedTokens, fee)
	return nil
}

// commit appends tx and writes everything view staged in one batch. Cached state and the
// dedup window only change once the write succeeded.
func (l *Ledger) commit(op string, view *stateView, submitter types.Account, tx *types.Transaction, now uint64) (uint64, error) {
	tx.Index = view.meta.LogLength
	tx.Timestamp = now
	view.meta.LogLength++

	err := l.stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		if err := view.flush(batch); err != nil {
			return err
		}
		if err := l.stores.Txs.StageAppend(batch, tx); err != nil {
			return err
		}
		return l.stores.Meta.StageLedgerMeta(batch, view.meta)
	})
	if err != nil {
		logx.Error("LEDGER", fmt.Sprintf("Failed to commit %s at index %d: %v", op, tx.Index, err))
		return 0, lerrors.NewInternalError(err)
	}

	l.meta = view.meta
	l.window.Record(submitter, tx.Memo(), tx.CreatedAtTime(), tx.Index, now)

	monitoring.RecordOperation(string(tx.Kind))
	monitoring.SetLogLength(l.meta.LogLength, l.meta.FirstIndex)
	logx.Debug("LEDGER", fmt.Sprintf("Committed %s at index %d: %s", op, tx.Index, jsonx.MarshalString(tx)))
	if l.eventBus != nil {
		l.eventBus.Publish(events.NewTransactionCommitted(tx, l.clock.Now()))
	}

	l.maybeArchive()
	return tx.Index, nil
}

// reject records a failed operation and returns the typed error
func (l *Ledger) reject(op string, caller types.Principal, err error) error {
	le := lerrors.AsLedgerError(err)
	monitoring.RecordRejectedOperation(op, string(le.Kind))
	logx.Debug("LEDGER", fmt.Sprintf("Rejected %s from %s: %v", op, caller, le))
	if l.eventBus != nil {
		l.eventBus.Publish(events.NewOperationRejected(op, caller, le, l.clock.Now()))
	}
	return le
}
