package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/injectivepass/nfc_service/chain"
	"github.com/injectivepass/nfc_service/entity"
)

// Funder sends native INJ from the master account and returns the mined tx hash.
type Funder interface {
	Transfer(ctx context.Context, to common.Address, amountWei *big.Int) (string, error)
}

type BalanceReader interface {
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
}

type StatusReader interface {
	Status(ctx context.Context) (*chain.Status, error)
}

// CardBinder mirrors the UID -> wallet binding in the on-chain NFC registry.
type CardBinder interface {
	Bind(ctx context.Context, uid string, wallet common.Address) (string, error)
	Unbind(ctx context.Context, uid string) (string, error)
}

type DomainRegistrar interface {
	IsAvailable(ctx context.Context, domain string) (bool, error)
	Register(ctx context.Context, domain string, owner common.Address) (string, error)
}

type CatMinter interface {
	Draw(ctx context.Context, to common.Address, name string) (*entity.CatDraw, error)
}
