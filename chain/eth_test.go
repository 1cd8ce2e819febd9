package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/injectivepass/nfc_service/config"
	wrapErrors "github.com/injectivepass/nfc_service/errors"
)

var testMasterKey = strings.Repeat("11", 32)

// fakeEth is a minimal "eth" JSON-RPC namespace. It accepts a raw
// transaction only when its nonce is the next one for the account.
type fakeEth struct {
	mu       sync.Mutex
	nonce    uint64
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	code     map[common.Address][]byte

	revert       bool
	stalePending bool // pending count never advances, like a lagging node
	tipErr       error
	nonceErr     error
}

func newFakeEth() *fakeEth {
	return &fakeEth{
		receipts: map[common.Hash]*types.Receipt{},
		code:     map[common.Address][]byte{},
	}
}

func (f *fakeEth) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1439))
}

func (f *fakeEth) GetTransactionCount(_ common.Address, _ string) (hexutil.Uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nonceErr != nil {
		return 0, f.nonceErr
	}
	if f.stalePending {
		return 0, nil
	}
	return hexutil.Uint64(f.nonce), nil
}

func (f *fakeEth) MaxPriorityFeePerGas() (*hexutil.Big, error) {
	if f.tipErr != nil {
		return nil, f.tipErr
	}
	return (*hexutil.Big)(big.NewInt(1_000_000_000)), nil
}

func (f *fakeEth) GetBlockByNumber(_ string, _ bool) *types.Header {
	return &types.Header{
		Number:     big.NewInt(7),
		Difficulty: big.NewInt(0),
		GasLimit:   30_000_000,
		BaseFee:    big.NewInt(1_000_000_000),
	}
}

func (f *fakeEth) BlockNumber() hexutil.Uint64 {
	return 7
}

func (f *fakeEth) GetBalance(_ common.Address, _ string) *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(5_000_000_000_000_000_000))
}

func (f *fakeEth) GetCode(addr common.Address, _ string) hexutil.Bytes {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code[addr]
}

func (f *fakeEth) SendRawTransaction(data hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(data); err != nil {
		return common.Hash{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case tx.Nonce() < f.nonce:
		return common.Hash{}, errors.New("replacement transaction underpriced")
	case tx.Nonce() > f.nonce:
		return common.Hash{}, errors.New("nonce too high")
	}
	f.nonce++
	f.sent = append(f.sent, tx)

	status := types.ReceiptStatusSuccessful
	if f.revert {
		status = types.ReceiptStatusFailed
	}
	f.receipts[tx.Hash()] = &types.Receipt{
		Type:              tx.Type(),
		Status:            status,
		CumulativeGasUsed: transferGas,
		GasUsed:           transferGas,
		TxHash:            tx.Hash(),
		Logs:              []*types.Log{},
		BlockNumber:       big.NewInt(8),
	}
	return tx.Hash(), nil
}

func (f *fakeEth) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipts[hash]
}

func (f *fakeEth) sentNonces() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, 0, len(f.sent))
	for _, tx := range f.sent {
		out = append(out, tx.Nonce())
	}
	return out
}

func newTestChain(t *testing.T, fake *fakeEth, contracts config.ContractsConfig) *ETHChain {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", fake))
	client := ethclient.NewClient(rpc.DialInProc(srv))
	t.Cleanup(func() {
		client.Close()
		srv.Stop()
	})

	e, err := newETHChain(context.Background(), client, config.ChainConfig{
		MasterPrivateKey: testMasterKey,
		TxTimeout:        5 * time.Second,
		Contracts:        contracts,
	}, nil)
	require.NoError(t, err)
	return e
}

func TestTransfer(t *testing.T) {
	fake := newFakeEth()
	e := newTestChain(t, fake, config.ContractsConfig{})
	to := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")

	hash, err := e.Transfer(context.Background(), to, big.NewInt(100))
	require.NoError(t, err)

	require.Len(t, fake.sent, 1)
	tx := fake.sent[0]
	require.Equal(t, tx.Hash().Hex(), hash)
	require.Equal(t, to, *tx.To())
	require.Equal(t, int64(100), tx.Value().Int64())
	require.Equal(t, uint64(transferGas), tx.Gas())
	require.Equal(t, int64(1439), tx.ChainId().Int64())

	sender, err := types.Sender(types.NewLondonSigner(big.NewInt(1439)), tx)
	require.NoError(t, err)
	require.Equal(t, e.MasterAddress(), sender)
}

func TestTransferReverted(t *testing.T) {
	fake := newFakeEth()
	fake.revert = true
	e := newTestChain(t, fake, config.ContractsConfig{})

	hash, err := e.Transfer(context.Background(), common.Address{1}, big.NewInt(1))
	require.True(t, wrapErrors.Is(err, wrapErrors.CodeTxFailed))
	// the hash is still reported for the logs
	require.NotEmpty(t, hash)
}

func TestTransferRPCErrors(t *testing.T) {
	fake := newFakeEth()
	fake.tipErr = errors.New("tip unavailable")
	e := newTestChain(t, fake, config.ContractsConfig{})

	_, err := e.Transfer(context.Background(), common.Address{1}, big.NewInt(1))
	require.True(t, wrapErrors.Is(err, wrapErrors.CodeGasEstimate))

	fake.tipErr = nil
	fake.nonceErr = errors.New("nonce unavailable")
	_, err = e.Transfer(context.Background(), common.Address{1}, big.NewInt(1))
	require.True(t, wrapErrors.Is(err, wrapErrors.PendingNonceAt))
	require.Empty(t, fake.sent)
}

func TestParallelTransfersUseDistinctNonces(t *testing.T) {
	fake := newFakeEth()
	e := newTestChain(t, fake, config.ContractsConfig{})

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Transfer(context.Background(), common.BigToAddress(big.NewInt(int64(i+1))), big.NewInt(1))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.ElementsMatch(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7}, fake.sentNonces())
}

func TestTransferTracksNonceAheadOfLaggingNode(t *testing.T) {
	fake := newFakeEth()
	fake.stalePending = true
	e := newTestChain(t, fake, config.ContractsConfig{})

	for i := 0; i < 3; i++ {
		_, err := e.Transfer(context.Background(), common.Address{1}, big.NewInt(1))
		require.NoError(t, err)
	}
	require.Equal(t, []uint64{0, 1, 2}, fake.sentNonces())
}

func TestSendResyncsAfterRejectedTransaction(t *testing.T) {
	fake := newFakeEth()
	e := newTestChain(t, fake, config.ContractsConfig{})

	e.txMu.Lock()
	e.nextNonce, e.nonceKnown = 5, true
	e.txMu.Unlock()

	_, err := e.Transfer(context.Background(), common.Address{1}, big.NewInt(1))
	require.True(t, wrapErrors.Is(err, wrapErrors.SendTxErr))

	_, err = e.Transfer(context.Background(), common.Address{1}, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, fake.sentNonces())
}

func TestStatus(t *testing.T) {
	fake := newFakeEth()
	deployed := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	fake.code[deployed] = []byte{0x60, 0x80}

	e := newTestChain(t, fake, config.ContractsConfig{
		DomainRegistry: deployed.Hex(),
		NFCRegistry:    "0x00000000000000000000000000000000000000bb",
	})

	st, err := e.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1439", st.ChainID)
	require.Equal(t, uint64(7), st.LatestBlock)
	require.Equal(t, e.MasterAddress().Hex(), st.MasterAddress)
	require.Equal(t, "5000000000000000000", st.MasterBalance)
	require.Equal(t, []ContractStatus{
		{Name: "domainRegistry", Address: deployed.Hex(), Configured: true, Deployed: true},
		{Name: "nfcRegistry", Address: "0x00000000000000000000000000000000000000bb", Configured: true, Deployed: false},
		{Name: "catNFT", Address: "", Configured: false, Deployed: false},
	}, st.Contracts)
}
