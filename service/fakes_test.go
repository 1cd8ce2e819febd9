package service

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/injectivepass/nfc_service/chain"
	"github.com/injectivepass/nfc_service/domain"
	"github.com/injectivepass/nfc_service/entity"
	apperrors "github.com/injectivepass/nfc_service/errors"
	"github.com/injectivepass/nfc_service/metrics"
	"github.com/injectivepass/nfc_service/repository"
)

var errRPC = apperrors.WrapWithCode(apperrors.CodeChainRPC, "test", errors.New("rpc unavailable"))

type fakeFunder struct {
	mu      sync.Mutex
	calls   []common.Address
	err     error
	release chan struct{} // when set, Transfer blocks until closed
}

func (f *fakeFunder) Transfer(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, to)
	if f.err != nil {
		return "", f.err
	}
	return "0xfund", nil
}

func (f *fakeFunder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeBinder struct {
	mu        sync.Mutex
	bound     map[string]common.Address
	unbound   []string
	bindErr   error
	unbindErr error
}

func newFakeBinder() *fakeBinder {
	return &fakeBinder{bound: map[string]common.Address{}}
}

func (b *fakeBinder) Bind(_ context.Context, uid string, wallet common.Address) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bindErr != nil {
		return "", b.bindErr
	}
	b.bound[uid] = wallet
	return "0xbind", nil
}

func (b *fakeBinder) Unbind(_ context.Context, uid string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unbindErr != nil {
		return "", b.unbindErr
	}
	b.unbound = append(b.unbound, uid)
	return "0xunbind", nil
}

type fakeRegistrar struct {
	mu          sync.Mutex
	onChain     map[string]common.Address
	registered  int
	checkErr    error
	registerErr error
}

func (r *fakeRegistrar) IsAvailable(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.checkErr != nil {
		return false, r.checkErr
	}
	_, taken := r.onChain[name]
	return !taken, nil
}

func (r *fakeRegistrar) Register(_ context.Context, name string, owner common.Address) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registerErr != nil {
		return "", r.registerErr
	}
	if r.onChain == nil {
		r.onChain = map[string]common.Address{}
	}
	r.onChain[name] = owner
	r.registered++
	return "0xdomain", nil
}

type fakeMinter struct {
	next   int64
	rarity uint8
	err    error
	to     []common.Address
}

func (m *fakeMinter) Draw(_ context.Context, to common.Address, name string) (*entity.CatDraw, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.next++
	m.to = append(m.to, to)
	return &entity.CatDraw{
		TokenID: big.NewInt(m.next).String(),
		Name:    name,
		Rarity:  m.rarity,
		Color:   "orange",
		TxHash:  "0xcat",
	}, nil
}

type fakeChain struct {
	balances map[common.Address]*big.Int
	err      error
}

func (c *fakeChain) Balance(_ context.Context, addr common.Address) (*big.Int, error) {
	if c.err != nil {
		return nil, c.err
	}
	if b, ok := c.balances[addr]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (c *fakeChain) Status(context.Context) (*chain.Status, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &chain.Status{ChainID: "1439", LatestBlock: 42}, nil
}

func testCipher(t *testing.T) *domain.Cipher {
	t.Helper()
	c, err := domain.NewCipher(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return c
}

type nfcFixture struct {
	svc    *NFCService
	repo   *repository.MemoryWalletRepo
	funder *fakeFunder
	binder *fakeBinder
	cipher *domain.Cipher
	keys   *domain.KeyGenerator
}

func newNFCFixture(t *testing.T, funder *fakeFunder) *nfcFixture {
	t.Helper()
	f := &nfcFixture{
		repo:   repository.NewMemoryWalletRepo(),
		funder: funder,
		binder: newFakeBinder(),
		cipher: testCipher(t),
		keys:   domain.NewKeyGenerator("inj"),
	}
	f.svc = NewNFCService(NFCServiceDeps{
		Repo:       f.repo,
		Keys:       f.keys,
		Cipher:     f.cipher,
		Funder:     funder,
		Binder:     f.binder,
		Metrics:    metrics.New(prometheus.NewRegistry()),
		FundAmount: big.NewInt(1e17),
	})
	t.Cleanup(f.svc.Wait)
	return f
}
