package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/injectivepass/nfc_service/entity"
	wrapErrors "github.com/injectivepass/nfc_service/errors"
)

var errChainDisabled = errors.New("chain access is disabled")

// Offline stands in for every chain collaborator when chain.enabled is false.
// Every call fails with CHAIN_RPC_ERROR, so wallets register but stay unfunded.
type Offline struct{}

func (Offline) fail(op string) error {
	return wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, op, errChainDisabled)
}

func (o Offline) Balance(context.Context, common.Address) (*big.Int, error) {
	return nil, o.fail("balance")
}

func (o Offline) Transfer(context.Context, common.Address, *big.Int) (string, error) {
	return "", o.fail("transfer")
}

func (o Offline) Status(context.Context) (*Status, error) {
	return nil, o.fail("status")
}

func (o Offline) Bind(context.Context, string, common.Address) (string, error) {
	return "", o.fail("nfcRegistry.bindNFC")
}

func (o Offline) Unbind(context.Context, string) (string, error) {
	return "", o.fail("nfcRegistry.unbindNFC")
}

func (o Offline) IsAvailable(context.Context, string) (bool, error) {
	return false, o.fail("domainRegistry.isAvailable")
}

func (o Offline) Register(context.Context, string, common.Address) (string, error) {
	return "", o.fail("domainRegistry.registerDomainFor")
}

func (o Offline) Draw(context.Context, common.Address, string) (*entity.CatDraw, error) {
	return nil, o.fail("catNFT.mintCat")
}
