package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/injectivepass/nfc_service/domain"
	"github.com/injectivepass/nfc_service/entity"
	apperrors "github.com/injectivepass/nfc_service/errors"
	"github.com/injectivepass/nfc_service/metrics"
	"github.com/injectivepass/nfc_service/repository"
)

type NFCServiceDeps struct {
	Repo    repository.WalletRepository
	Keys    *domain.KeyGenerator
	Cipher  *domain.Cipher
	Funder  Funder
	Binder  CardBinder
	Log     *zap.Logger
	Metrics *metrics.Metrics

	// FundAmount is the initial transfer in wei; nil or zero skips funding.
	FundAmount  *big.Int
	FundTimeout time.Duration
}

// NFCService binds card UIDs to generated wallets.
type NFCService struct {
	repo        repository.WalletRepository
	keys        *domain.KeyGenerator
	cipher      *domain.Cipher
	funder      Funder
	binder      CardBinder
	log         *zap.Logger
	metrics     *metrics.Metrics
	fundAmount  *big.Int
	fundTimeout time.Duration

	wg  sync.WaitGroup
	now func() time.Time
}

func NewNFCService(deps NFCServiceDeps) *NFCService {
	timeout := deps.FundTimeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &NFCService{
		repo:        deps.Repo,
		keys:        deps.Keys,
		cipher:      deps.Cipher,
		funder:      deps.Funder,
		binder:      deps.Binder,
		log:         log,
		metrics:     deps.Metrics,
		fundAmount:  deps.FundAmount,
		fundTimeout: timeout,
		now:         time.Now,
	}
}

type RegisterInput struct {
	UID         string
	UserAddress string
	Nickname    string
}

// Register returns the wallet bound to the UID, creating it on first scan.
// created is false for a repeated scan, including the loser of a concurrent
// first registration. Funding runs in the background after a create.
func (s *NFCService) Register(ctx context.Context, in RegisterInput) (WalletView, bool, error) {
	uid, err := domain.NormalizeUID(in.UID)
	if err != nil {
		s.metrics.IncRegistration("error")
		return WalletView{}, false, err
	}

	existing, err := s.repo.Get(ctx, uid)
	if err == nil {
		s.metrics.IncRegistration("existing")
		return newWalletView(existing), false, nil
	}
	if !apperrors.Is(err, apperrors.CodeNotFound) {
		s.metrics.IncRegistration("error")
		return WalletView{}, false, err
	}

	w, err := s.newWallet(uid, in)
	if err != nil {
		s.metrics.IncRegistration("error")
		return WalletView{}, false, err
	}

	stored, created, err := s.repo.GetOrCreate(ctx, w)
	if err != nil {
		s.metrics.IncRegistration("error")
		return WalletView{}, false, err
	}
	if !created {
		s.metrics.IncRegistration("existing")
		return newWalletView(stored), false, nil
	}

	s.metrics.IncRegistration("created")
	s.log.Info("nfc wallet created",
		zap.String("uid", uid),
		zap.String("address", stored.Address),
		zap.String("eth_address", stored.EthAddress))

	s.wg.Add(1)
	go s.onboard(stored.Clone())

	return newWalletView(stored), true, nil
}

// newWallet generates a keypair and seals its private key. The sealed value
// is opened once before it is returned so an unrecoverable key is never
// persisted.
func (s *NFCService) newWallet(uid string, in RegisterInput) (*entity.NFCWallet, error) {
	kp, err := s.keys.Generate()
	if err != nil {
		return nil, apperrors.WrapWithCode(apperrors.CodeInternal, "generate keypair", err)
	}

	sealed, err := s.cipher.Encrypt(kp.PrivateKeyHex)
	if err != nil {
		return nil, apperrors.WrapWithCode(apperrors.CodeInternal, "encrypt private key", err)
	}
	opened, err := s.cipher.Decrypt(sealed)
	if err != nil {
		return nil, err
	}
	if opened != kp.PrivateKeyHex {
		return nil, apperrors.New(apperrors.CodeDecryption, "verify sealed key", "sealed key does not round-trip")
	}

	return &entity.NFCWallet{
		UID:                 uid,
		Address:             kp.Address,
		EthAddress:          kp.EthAddress,
		PublicKey:           kp.PublicKeyHex,
		EncryptedPrivateKey: sealed,
		Nickname:            strings.TrimSpace(in.Nickname),
		UserAddress:         strings.TrimSpace(in.UserAddress),
		InitialFunded:       false,
		CreatedAt:           s.now().UTC(),
	}, nil
}

// onboard funds a new wallet and mirrors the binding on-chain. Nothing here
// is retried; failures leave the wallet usable with initialFunded=false.
func (s *NFCService) onboard(w *entity.NFCWallet) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.fundTimeout)
	defer cancel()

	log := s.log.With(zap.String("uid", w.UID), zap.String("address", w.Address))
	to := common.HexToAddress(w.EthAddress)

	if s.funder != nil && s.fundAmount != nil && s.fundAmount.Sign() > 0 {
		txHash, err := s.funder.Transfer(ctx, to, s.fundAmount)
		switch {
		case err != nil:
			s.metrics.IncFunding("failure")
			s.metrics.IncChainFailure("fund")
			log.Warn("initial funding failed", zap.String("tx_hash", txHash), zap.Error(err))
		default:
			if err := s.repo.MarkFunded(ctx, w.UID, txHash); err != nil {
				s.metrics.IncFunding("failure")
				log.Error("funding confirmed but record not updated", zap.String("tx_hash", txHash), zap.Error(err))
			} else {
				s.metrics.IncFunding("success")
				log.Info("initial funding confirmed", zap.String("tx_hash", txHash))
			}
		}
	}

	if s.binder != nil {
		if _, err := s.binder.Bind(ctx, w.UID, to); err != nil {
			s.metrics.IncChainFailure("nfc_bind")
			log.Warn("on-chain nfc binding failed", zap.Error(err))
		}
	}
}

// Wait blocks until in-flight onboarding jobs finish.
func (s *NFCService) Wait() {
	s.wg.Wait()
}

func (s *NFCService) Lookup(ctx context.Context, rawUID string) (WalletView, error) {
	uid, err := domain.NormalizeUID(rawUID)
	if err != nil {
		return WalletView{}, err
	}
	w, err := s.repo.Get(ctx, uid)
	if err != nil {
		return WalletView{}, err
	}
	return newWalletView(w), nil
}

// Unbind deletes the card binding. The encrypted key goes with the record,
// so the wallet can no longer be recovered through this service. When
// ownerAddress is set it must name the bound wallet in either encoding.
func (s *NFCService) Unbind(ctx context.Context, rawUID, ownerAddress string) (UnbindResult, error) {
	const op = "unbind"

	uid, err := domain.NormalizeUID(rawUID)
	if err != nil {
		return UnbindResult{}, err
	}
	w, err := s.repo.Get(ctx, uid)
	if err != nil {
		return UnbindResult{}, err
	}

	if ownerAddress = strings.TrimSpace(ownerAddress); ownerAddress != "" {
		owner, err := domain.ParseAddress(s.keys.Prefix(), ownerAddress)
		if err != nil {
			return UnbindResult{}, err
		}
		if owner != common.HexToAddress(w.EthAddress) {
			return UnbindResult{}, apperrors.New(apperrors.CodeForbidden, op, "address does not own this card")
		}
	}

	res := UnbindResult{UID: uid}
	if s.binder != nil {
		txHash, err := s.binder.Unbind(ctx, uid)
		if err != nil {
			s.metrics.IncChainFailure("nfc_unbind")
			s.log.Warn("on-chain nfc unbind failed", zap.String("uid", uid), zap.Error(err))
		}
		res.TxHash = txHash
	}

	if err := s.repo.Delete(ctx, uid); err != nil {
		return UnbindResult{}, err
	}
	s.log.Info("nfc wallet unbound", zap.String("uid", uid), zap.String("address", w.Address))
	return res, nil
}

func (s *NFCService) Stats(ctx context.Context) (entity.WalletStats, error) {
	return s.repo.Stats(ctx)
}

// VerifyCustody decrypts the stored key in-process and checks it still
// derives the stored address. The key itself never leaves this method. It
// returns the normalized UID.
func (s *NFCService) VerifyCustody(ctx context.Context, rawUID string) (string, error) {
	const op = "verify custody"

	uid, err := domain.NormalizeUID(rawUID)
	if err != nil {
		return "", err
	}
	w, err := s.repo.Get(ctx, uid)
	if err != nil {
		return "", err
	}
	privHex, err := s.cipher.Decrypt(w.EncryptedPrivateKey)
	if err != nil {
		return "", err
	}
	kp, err := s.keys.FromPrivateKeyHex(privHex)
	if err != nil {
		return "", apperrors.WrapWithCode(apperrors.CodeDecryption, op, err)
	}
	if kp.EthAddress != w.EthAddress {
		return "", apperrors.WrapWithCode(apperrors.CodeDecryption, op,
			errors.New("decrypted key does not match wallet address"))
	}
	return uid, nil
}
