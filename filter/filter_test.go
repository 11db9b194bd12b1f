package filter

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/verify"
)

func TestNewFilterAssignsSequentialNonZeroIDs(t *testing.T) {
	r := New()
	id1, err := r.NewFilter(KindEvent, Options{}, 0)
	require.NoError(t, err)
	id2, err := r.NewFilter(KindEvent, Options{}, 0)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)
}

func TestNewFilterRejectsTooManyTopics(t *testing.T) {
	r := New()
	topics := make([]*[]common.Hash, 5)
	_, err := r.NewFilter(KindEvent, Options{Topics: topics}, 0)
	assert.ErrorIs(t, err, ErrTooManyTopics)
}

func TestNewFilterRejectsBlockHashWithBlockRange(t *testing.T) {
	r := New()
	hash := common.HexToHash("0x01")
	_, err := r.NewFilter(KindEvent, Options{BlockHash: &hash, FromBlock: big.NewInt(1)}, 0)
	assert.ErrorIs(t, err, ErrBlockHashMutuallyExclusive)
}

func TestRemoveTombstonesIDPermanently(t *testing.T) {
	r := New()
	id, err := r.NewFilter(KindBlock, Options{}, 0)
	require.NoError(t, err)

	require.NoError(t, r.Remove(id))

	_, err = r.GetFilterChanges(id, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidID)

	id2, err := r.NewFilter(KindBlock, Options{}, 0)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestGetFilterChangesRejectsInvalidID(t *testing.T) {
	r := New()
	_, err := r.GetFilterChanges(0, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = r.GetFilterChanges(99, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestGetFilterChangesPendingUnsupported(t *testing.T) {
	r := New()
	id, err := r.NewFilter(KindPendingTx, Options{}, 0)
	require.NoError(t, err)

	_, err = r.GetFilterChanges(id, nil, nil)
	assert.ErrorIs(t, err, ErrPendingUnsupported)
}

type fakeHeaders struct {
	head   uint64
	hashes map[uint64]common.Hash
}

func (f *fakeHeaders) HeadNumber() (uint64, error) { return f.head, nil }
func (f *fakeHeaders) HashByNumber(n uint64) (common.Hash, error) {
	return f.hashes[n], nil
}

func TestGetFilterChangesBlockCollectsHashesSinceLastPoll(t *testing.T) {
	r := New()
	id, err := r.NewFilter(KindBlock, Options{}, 10)
	require.NoError(t, err)

	h := &fakeHeaders{head: 13, hashes: map[uint64]common.Hash{
		11: common.HexToHash("0x0b"),
		12: common.HexToHash("0x0c"),
		13: common.HexToHash("0x0d"),
	}}

	changes, err := r.GetFilterChanges(id, nil, h)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{common.HexToHash("0x0b"), common.HexToHash("0x0c"), common.HexToHash("0x0d")}, changes.BlockHashes)

	changes, err = r.GetFilterChanges(id, nil, h)
	require.NoError(t, err)
	assert.Empty(t, changes.BlockHashes)
}

type fakeLogs struct {
	logs []verify.Log
}

func (f *fakeLogs) GetLogs(options Options) ([]verify.Log, error) {
	return f.logs, nil
}

func TestGetFilterChangesEventCallsGetLogsAndBumpsLastBlock(t *testing.T) {
	r := New()
	id, err := r.NewFilter(KindEvent, Options{}, 5)
	require.NoError(t, err)

	logsSrc := &fakeLogs{logs: []verify.Log{{Address: common.HexToAddress("0x01")}}}
	headers := &fakeHeaders{head: 20}

	changes, err := r.GetFilterChanges(id, logsSrc, headers)
	require.NoError(t, err)
	assert.Len(t, changes.Logs, 1)
	assert.Equal(t, uint64(20), r.entries[id-1].lastBlock)
}
