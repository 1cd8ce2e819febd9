package service

import (
	"context"

	"github.com/injectivepass/nfc_service/chain"
	"github.com/injectivepass/nfc_service/domain"
	"github.com/injectivepass/nfc_service/utils"
)

type ChainService struct {
	balances BalanceReader
	status   StatusReader
	prefix   string
}

func NewChainService(balances BalanceReader, status StatusReader, prefix string) *ChainService {
	if prefix == "" {
		prefix = domain.DefaultBech32Prefix
	}
	return &ChainService{balances: balances, status: status, prefix: prefix}
}

// Balance accepts an inj1... or 0x... address.
func (s *ChainService) Balance(ctx context.Context, address string) (BalanceView, error) {
	addr, err := domain.ParseAddress(s.prefix, address)
	if err != nil {
		return BalanceView{}, err
	}
	bech, err := domain.EncodeBech32(s.prefix, addr)
	if err != nil {
		return BalanceView{}, err
	}
	wei, err := s.balances.Balance(ctx, addr)
	if err != nil {
		return BalanceView{}, err
	}
	return BalanceView{
		Address:    bech,
		EthAddress: addr.Hex(),
		Wei:        wei.String(),
		INJ:        utils.WeiToINJ(wei),
	}, nil
}

func (s *ChainService) Status(ctx context.Context) (*chain.Status, error) {
	return s.status.Status(ctx)
}
