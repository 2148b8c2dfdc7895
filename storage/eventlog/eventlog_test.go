package eventlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hashswap/core/types"
)

func openTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	log, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log, path
}

func evt(kind, id string) *types.Event {
	return &types.Event{Type: kind, Attributes: map[string]string{"orderId": id}}
}

func TestAppendAndRange(t *testing.T) {
	log, _ := openTestLog(t)
	at := time.Unix(1_700_000_000, 0)

	first, err := log.Append([]*types.Event{evt("a", "1"), evt("b", "2")}, at)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)

	next, err := log.Append([]*types.Event{evt("c", "3")}, at)
	require.NoError(t, err)
	require.Equal(t, uint64(3), next)

	records, err := log.Range(2, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, uint64(2), records[0].Sequence)
	require.Equal(t, "b", records[0].Type)
	require.True(t, records[0].Time.Equal(at))

	all, err := log.Events()
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "3", all[2].Attr("orderId"))

	n, err := log.Len()
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestAppendIsAllOrNothing(t *testing.T) {
	log, _ := openTestLog(t)
	_, err := log.Append([]*types.Event{evt("a", "1"), nil}, time.Now())
	require.Error(t, err)

	n, err := log.Len()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTruncateRewindsSequence(t *testing.T) {
	log, _ := openTestLog(t)
	_, err := log.Append([]*types.Event{evt("a", "1"), evt("b", "2"), evt("c", "3")}, time.Now())
	require.NoError(t, err)

	require.NoError(t, log.Truncate(2))
	records, err := log.Range(0, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	seq, err := log.Append([]*types.Event{evt("d", "4")}, time.Now())
	require.NoError(t, err)
	require.Equal(t, uint64(2), seq)
}

func TestLogSurvivesReopen(t *testing.T) {
	log, path := openTestLog(t)
	_, err := log.Append([]*types.Event{evt("a", "1")}, time.Now())
	require.NoError(t, err)
	require.NoError(t, log.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	events, err := reopened.Events()
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, err = log.Append([]*types.Event{evt("b", "2")}, time.Now())
	require.ErrorIs(t, err, ErrClosed)
}
