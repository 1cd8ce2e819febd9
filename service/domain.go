package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/injectivepass/nfc_service/domain"
	apperrors "github.com/injectivepass/nfc_service/errors"
	"github.com/injectivepass/nfc_service/metrics"
	"github.com/injectivepass/nfc_service/repository"
)

// DomainService registers .inj names for card wallets. A wallet gets at most
// one name and keeps it.
type DomainService struct {
	repo      repository.WalletRepository
	registrar DomainRegistrar
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewDomainService(repo repository.WalletRepository, registrar DomainRegistrar, log *zap.Logger, m *metrics.Metrics) *DomainService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DomainService{repo: repo, registrar: registrar, log: log, metrics: m}
}

func (s *DomainService) CheckDomain(ctx context.Context, name string) (DomainAvailability, error) {
	full, err := domain.NormalizeDomain(name)
	if err != nil {
		return DomainAvailability{}, err
	}
	available, err := s.available(ctx, full)
	if err != nil {
		return DomainAvailability{}, err
	}
	return DomainAvailability{Domain: full, Available: available}, nil
}

func (s *DomainService) available(ctx context.Context, full string) (bool, error) {
	taken, err := s.repo.DomainTaken(ctx, full)
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}
	ok, err := s.registrar.IsAvailable(ctx, full)
	if err != nil {
		s.metrics.IncChainFailure("domain_check")
		return false, err
	}
	return ok, nil
}

func (s *DomainService) RegisterDomain(ctx context.Context, rawUID, name string) (DomainView, error) {
	const op = "register domain"

	uid, err := domain.NormalizeUID(rawUID)
	if err != nil {
		return DomainView{}, err
	}
	full, err := domain.NormalizeDomain(name)
	if err != nil {
		return DomainView{}, err
	}

	w, err := s.repo.Get(ctx, uid)
	if err != nil {
		return DomainView{}, err
	}
	if w.Domain != nil {
		if w.DomainPending {
			return DomainView{}, apperrors.New(apperrors.CodeConflict, op, "domain registration already in progress")
		}
		return DomainView{}, apperrors.New(apperrors.CodeConflict, op, "wallet already has domain "+*w.Domain)
	}

	available, err := s.available(ctx, full)
	if err != nil {
		return DomainView{}, err
	}
	if !available {
		return DomainView{}, apperrors.New(apperrors.CodeConflict, op, "domain "+full+" is not available")
	}

	// Claim the name before touching the chain so a concurrent request for
	// the same wallet or the same name loses here.
	if err := s.repo.ReserveDomain(ctx, uid, full); err != nil {
		return DomainView{}, err
	}

	txHash, err := s.registrar.Register(ctx, full, common.HexToAddress(w.EthAddress))
	if err != nil {
		s.metrics.IncChainFailure("domain_register")
		s.log.Warn("domain registration failed", zap.String("uid", uid), zap.String("domain", full), zap.Error(err))
		if relErr := s.repo.ReleaseDomain(ctx, uid, full); relErr != nil {
			s.log.Error("domain reservation not released",
				zap.String("uid", uid), zap.String("domain", full), zap.Error(relErr))
		}
		return DomainView{}, err
	}

	if err := s.repo.ConfirmDomain(ctx, uid, full); err != nil {
		// The name is already owned on-chain; the record is behind.
		s.log.Error("domain registered on-chain but record not updated",
			zap.String("uid", uid), zap.String("domain", full), zap.String("tx_hash", txHash), zap.Error(err))
		return DomainView{}, err
	}

	s.log.Info("domain registered", zap.String("uid", uid), zap.String("domain", full), zap.String("tx_hash", txHash))
	return DomainView{UID: uid, Domain: full, Address: w.Address, TxHash: txHash}, nil
}
