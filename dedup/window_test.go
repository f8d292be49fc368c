package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	lerrors "github.com/mezonai/tokenledger/errors"
	"github.com/mezonai/tokenledger/types"
)

var (
	alice = types.Account{Owner: types.Principal("alice")}
	bob   = types.Account{Owner: types.Principal("bob")}
)

func ts(d time.Duration) *uint64 {
	v := uint64(d)
	return &v
}

// now is far enough from zero that the lower bound does not clamp
const now = uint64(48 * time.Hour)

func newTestWindow() *Window {
	return NewWindow(time.Hour, time.Minute)
}

func TestWindow_SkipsWithoutCreatedAtTime(t *testing.T) {
	w := newTestWindow()

	require.NoError(t, w.CheckAndRecord(alice, []byte("m"), nil, now, 0))
	require.NoError(t, w.CheckAndRecord(alice, []byte("m"), nil, now, 1))
	require.Equal(t, 0, w.Len())
}

func TestWindow_Duplicate(t *testing.T) {
	w := newTestWindow()
	created := ts(48*time.Hour - time.Second)

	require.NoError(t, w.CheckAndRecord(alice, []byte("memo"), created, now, 7))

	err := w.Check(alice, []byte("memo"), created, now)
	require.ErrorIs(t, err, lerrors.ErrDuplicate)
	le := lerrors.AsLedgerError(err)
	require.NotNil(t, le.DuplicateOf)
	require.Equal(t, uint64(7), *le.DuplicateOf)
}

func TestWindow_DistinctKeysAreNotDuplicates(t *testing.T) {
	w := newTestWindow()
	created := ts(48*time.Hour - time.Second)
	require.NoError(t, w.CheckAndRecord(alice, []byte("memo"), created, now, 1))

	require.NoError(t, w.Check(bob, []byte("memo"), created, now))
	require.NoError(t, w.Check(alice, []byte("other"), created, now))
	require.NoError(t, w.Check(alice, []byte("memo"), ts(48*time.Hour-2*time.Second), now))
}

func TestWindow_TooOld(t *testing.T) {
	w := newTestWindow()

	// exactly at the lower bound is still accepted
	atBound := ts(48*time.Hour - time.Hour - time.Minute)
	require.NoError(t, w.Check(alice, nil, atBound, now))

	tooOld := ts(48*time.Hour - time.Hour - time.Minute - 1)
	err := w.Check(alice, nil, tooOld, now)
	require.ErrorIs(t, err, lerrors.ErrTooOld)
}

func TestWindow_CreatedInFuture(t *testing.T) {
	w := newTestWindow()

	require.NoError(t, w.Check(alice, nil, ts(48*time.Hour+time.Minute), now))

	err := w.Check(alice, nil, ts(48*time.Hour+time.Minute+1), now)
	require.ErrorIs(t, err, lerrors.ErrCreatedInFuture)
	le := lerrors.AsLedgerError(err)
	require.Equal(t, now, *le.LedgerTime)
}

func TestWindow_RejectedChecksAreNotRecorded(t *testing.T) {
	w := newTestWindow()

	err := w.CheckAndRecord(alice, nil, ts(72*time.Hour), now, 3)
	require.ErrorIs(t, err, lerrors.ErrCreatedInFuture)
	require.Equal(t, 0, w.Len())
}

func TestWindow_EvictionKeepsValidEntries(t *testing.T) {
	w := newTestWindow()
	created := now - uint64(30*time.Minute)
	w.Record(alice, []byte("a"), &created, 1, now)

	// an hour later the entry is 90 minutes old: past window + drift, so it can go
	later := now + uint64(time.Hour)
	stillValid := now + uint64(50*time.Minute)
	w.Record(bob, []byte("b"), &stillValid, 2, later)

	require.Equal(t, 1, w.Len())
	require.ErrorIs(t, w.Check(bob, []byte("b"), &stillValid, later), lerrors.ErrDuplicate)

	// just before its bound the entry outlives repeated eviction
	edge := stillValid + uint64(time.Hour+time.Minute)
	w.Evict(edge)
	require.ErrorIs(t, w.Check(bob, []byte("b"), &stillValid, edge), lerrors.ErrDuplicate)

	w.Evict(edge + uint64(2*time.Second))
	require.Equal(t, 0, w.Len())
}

func TestWindow_ClampsLowerBoundNearEpoch(t *testing.T) {
	w := newTestWindow()
	require.NoError(t, w.Check(alice, nil, ts(0), uint64(time.Second)))
}
