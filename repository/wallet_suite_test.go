package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/injectivepass/nfc_service/entity"
	apperrors "github.com/injectivepass/nfc_service/errors"
)

// walletRepoSuite runs the same contract against every WalletRepository.
type walletRepoSuite struct {
	suite.Suite
	newRepo func() WalletRepository
	repo    WalletRepository
	ctx     context.Context
}

func (s *walletRepoSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.newRepo()
}

func testWallet(uid string, n int) *entity.NFCWallet {
	return &entity.NFCWallet{
		UID:                 uid,
		Address:             fmt.Sprintf("inj1test%d", n),
		EthAddress:          fmt.Sprintf("0x%040x", n),
		PublicKey:           "02abcdef",
		EncryptedPrivateKey: "00:11:22",
		CreatedAt:           time.Now().UTC().Truncate(time.Millisecond),
	}
}

func (s *walletRepoSuite) TestGetMissing() {
	_, err := s.repo.Get(s.ctx, "04:00:00:00")
	s.Require().True(apperrors.Is(err, apperrors.CodeNotFound))

	ok, err := s.repo.Exists(s.ctx, "04:00:00:00")
	s.Require().NoError(err)
	s.Require().False(ok)
}

func (s *walletRepoSuite) TestGetOrCreateKeepsFirstRecord() {
	first := testWallet("04:1a:2b:3c", 1)
	stored, created, err := s.repo.GetOrCreate(s.ctx, first)
	s.Require().NoError(err)
	s.Require().True(created)
	s.Require().Equal(first.Address, stored.Address)

	second := testWallet("04:1a:2b:3c", 2)
	stored, created, err = s.repo.GetOrCreate(s.ctx, second)
	s.Require().NoError(err)
	s.Require().False(created)
	s.Require().Equal(first.Address, stored.Address)
	s.Require().Equal(first.EthAddress, stored.EthAddress)

	got, err := s.repo.Get(s.ctx, "04:1a:2b:3c")
	s.Require().NoError(err)
	s.Require().Equal(first.EncryptedPrivateKey, got.EncryptedPrivateKey)
	s.Require().False(got.InitialFunded)
}

func (s *walletRepoSuite) TestConcurrentGetOrCreate() {
	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		addrs   = map[string]struct{}{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, c, err := s.repo.GetOrCreate(s.ctx, testWallet("04:aa:bb:cc", 100+i))
			s.NoError(err)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if c {
				created++
			}
			addrs[stored.Address] = struct{}{}
		}(i)
	}
	wg.Wait()

	s.Require().Equal(1, created)
	s.Require().Len(addrs, 1)

	stats, err := s.repo.Stats(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(int64(1), stats.TotalWallets)
}

func (s *walletRepoSuite) TestMarkFunded() {
	_, _, err := s.repo.GetOrCreate(s.ctx, testWallet("04:1a:2b:3c", 1))
	s.Require().NoError(err)

	s.Require().NoError(s.repo.MarkFunded(s.ctx, "04:1a:2b:3c", "0xabc"))
	got, err := s.repo.Get(s.ctx, "04:1a:2b:3c")
	s.Require().NoError(err)
	s.Require().True(got.InitialFunded)
	s.Require().Equal("0xabc", got.FundingTxHash)

	err = s.repo.MarkFunded(s.ctx, "04:00:00:00", "0xabc")
	s.Require().True(apperrors.Is(err, apperrors.CodeNotFound))
}

func (s *walletRepoSuite) registerDomain(uid, domain string) {
	s.Require().NoError(s.repo.ReserveDomain(s.ctx, uid, domain))
	s.Require().NoError(s.repo.ConfirmDomain(s.ctx, uid, domain))
}

func (s *walletRepoSuite) TestReserveDomain() {
	_, _, err := s.repo.GetOrCreate(s.ctx, testWallet("04:00:00:01", 1))
	s.Require().NoError(err)
	_, _, err = s.repo.GetOrCreate(s.ctx, testWallet("04:00:00:02", 2))
	s.Require().NoError(err)

	s.Require().NoError(s.repo.ReserveDomain(s.ctx, "04:00:00:01", "alice.inj"))
	got, err := s.repo.Get(s.ctx, "04:00:00:01")
	s.Require().NoError(err)
	s.Require().True(got.DomainPending)

	// a pending name is taken for everyone
	taken, err := s.repo.DomainTaken(s.ctx, "alice.inj")
	s.Require().NoError(err)
	s.Require().True(taken)
	err = s.repo.ReserveDomain(s.ctx, "04:00:00:02", "alice.inj")
	s.Require().True(apperrors.Is(err, apperrors.CodeConflict))

	// and the wallet cannot claim a second one meanwhile
	err = s.repo.ReserveDomain(s.ctx, "04:00:00:01", "bob.inj")
	s.Require().True(apperrors.Is(err, apperrors.CodeConflict))

	s.Require().NoError(s.repo.ConfirmDomain(s.ctx, "04:00:00:01", "alice.inj"))
	got, err = s.repo.Get(s.ctx, "04:00:00:01")
	s.Require().NoError(err)
	s.Require().False(got.DomainPending)
	s.Require().NotNil(got.Domain)
	s.Require().Equal("alice.inj", *got.Domain)

	// a confirmed name is not released
	s.Require().NoError(s.repo.ReleaseDomain(s.ctx, "04:00:00:01", "alice.inj"))
	taken, err = s.repo.DomainTaken(s.ctx, "alice.inj")
	s.Require().NoError(err)
	s.Require().True(taken)

	err = s.repo.ReserveDomain(s.ctx, "04:00:00:03", "carol.inj")
	s.Require().True(apperrors.Is(err, apperrors.CodeNotFound))
	err = s.repo.ConfirmDomain(s.ctx, "04:00:00:02", "carol.inj")
	s.Require().True(apperrors.Is(err, apperrors.CodeConflict))
}

func (s *walletRepoSuite) TestReleaseDomain() {
	_, _, err := s.repo.GetOrCreate(s.ctx, testWallet("04:00:00:01", 1))
	s.Require().NoError(err)

	s.Require().NoError(s.repo.ReserveDomain(s.ctx, "04:00:00:01", "alice.inj"))
	s.Require().NoError(s.repo.ReleaseDomain(s.ctx, "04:00:00:01", "alice.inj"))

	got, err := s.repo.Get(s.ctx, "04:00:00:01")
	s.Require().NoError(err)
	s.Require().Nil(got.Domain)
	s.Require().False(got.DomainPending)
	taken, err := s.repo.DomainTaken(s.ctx, "alice.inj")
	s.Require().NoError(err)
	s.Require().False(taken)

	// nothing pending
	s.Require().NoError(s.repo.ReleaseDomain(s.ctx, "04:00:00:01", "alice.inj"))
	s.Require().NoError(s.repo.ReserveDomain(s.ctx, "04:00:00:01", "bob.inj"))
}

func (s *walletRepoSuite) TestConcurrentReserveDomain() {
	_, _, err := s.repo.GetOrCreate(s.ctx, testWallet("04:00:00:01", 1))
	s.Require().NoError(err)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.repo.ReserveDomain(s.ctx, "04:00:00:01", fmt.Sprintf("name%d.inj", i))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			s.True(apperrors.Is(err, apperrors.CodeConflict))
		}(i)
	}
	wg.Wait()
	s.Require().Equal(1, wins)
}

func (s *walletRepoSuite) TestDeleteFreesDomain() {
	_, _, err := s.repo.GetOrCreate(s.ctx, testWallet("04:00:00:01", 1))
	s.Require().NoError(err)
	s.registerDomain("04:00:00:01", "alice.inj")

	s.Require().NoError(s.repo.Delete(s.ctx, "04:00:00:01"))
	_, err = s.repo.Get(s.ctx, "04:00:00:01")
	s.Require().True(apperrors.Is(err, apperrors.CodeNotFound))

	taken, err := s.repo.DomainTaken(s.ctx, "alice.inj")
	s.Require().NoError(err)
	s.Require().False(taken)

	err = s.repo.Delete(s.ctx, "04:00:00:01")
	s.Require().True(apperrors.Is(err, apperrors.CodeNotFound))
}

func (s *walletRepoSuite) TestStats() {
	for i := 1; i <= 3; i++ {
		_, _, err := s.repo.GetOrCreate(s.ctx, testWallet(fmt.Sprintf("04:00:00:0%d", i), i))
		s.Require().NoError(err)
	}
	s.Require().NoError(s.repo.MarkFunded(s.ctx, "04:00:00:01", "0x1"))
	s.Require().NoError(s.repo.MarkFunded(s.ctx, "04:00:00:02", "0x2"))
	s.registerDomain("04:00:00:01", "alice.inj")
	// a pending reservation is not counted
	s.Require().NoError(s.repo.ReserveDomain(s.ctx, "04:00:00:02", "bob.inj"))
	s.Require().NoError(s.repo.SetNFT(s.ctx, "04:00:00:03", "7"))

	stats, err := s.repo.Stats(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(entity.WalletStats{
		TotalWallets:      3,
		FundedWallets:     2,
		WalletsWithDomain: 1,
		WalletsWithNFT:    1,
	}, stats)
}
