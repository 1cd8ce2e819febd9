package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/injectivepass/nfc_service/domain"
	"github.com/injectivepass/nfc_service/metrics"
	"github.com/injectivepass/nfc_service/repository"
)

var rarityNames = []string{"common", "rare", "epic", "legendary"}

func rarityName(r uint8) string {
	if int(r) < len(rarityNames) {
		return rarityNames[r]
	}
	return "unknown"
}

// CatService mints cat NFTs to card wallets. Rarity is rolled on-chain.
type CatService struct {
	repo    repository.WalletRepository
	minter  CatMinter
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewCatService(repo repository.WalletRepository, minter CatMinter, log *zap.Logger, m *metrics.Metrics) *CatService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatService{repo: repo, minter: minter, log: log, metrics: m}
}

func (s *CatService) DrawCat(ctx context.Context, rawUID, catName string) (CatView, error) {
	uid, err := domain.NormalizeUID(rawUID)
	if err != nil {
		return CatView{}, err
	}
	name, err := domain.ValidateCatName(catName)
	if err != nil {
		return CatView{}, err
	}
	w, err := s.repo.Get(ctx, uid)
	if err != nil {
		return CatView{}, err
	}

	draw, err := s.minter.Draw(ctx, common.HexToAddress(w.EthAddress), name)
	if err != nil {
		s.metrics.IncChainFailure("cat_draw")
		s.log.Warn("cat draw failed", zap.String("uid", uid), zap.Error(err))
		return CatView{}, err
	}

	// The token is minted either way; a stale record is logged, not returned.
	if err := s.repo.SetNFT(ctx, uid, draw.TokenID); err != nil {
		s.log.Error("cat minted but record not updated",
			zap.String("uid", uid), zap.String("token_id", draw.TokenID), zap.Error(err))
	}

	s.log.Info("cat drawn", zap.String("uid", uid), zap.String("token_id", draw.TokenID),
		zap.String("rarity", rarityName(draw.Rarity)))

	if draw.Name == "" {
		draw.Name = name
	}
	return CatView{
		UID:        uid,
		TokenID:    draw.TokenID,
		Name:       draw.Name,
		Rarity:     draw.Rarity,
		RarityName: rarityName(draw.Rarity),
		Color:      draw.Color,
		TxHash:     draw.TxHash,
	}, nil
}
