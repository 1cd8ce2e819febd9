package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/injectivepass/nfc_service/entity"
	wrapErrors "github.com/injectivepass/nfc_service/errors"
)

const domainRegistryABI = `[
  {"type":"function","name":"isAvailable","stateMutability":"view",
   "inputs":[{"name":"domain","type":"string"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"registerDomainFor","stateMutability":"nonpayable",
   "inputs":[{"name":"domain","type":"string"},{"name":"owner","type":"address"}],"outputs":[]}
]`

const nfcRegistryABI = `[
  {"type":"function","name":"bindNFC","stateMutability":"nonpayable",
   "inputs":[{"name":"uid","type":"string"},{"name":"wallet","type":"address"}],"outputs":[]},
  {"type":"function","name":"unbindNFC","stateMutability":"nonpayable",
   "inputs":[{"name":"uid","type":"string"}],"outputs":[]}
]`

const catNFTABI = `[
  {"type":"function","name":"mintCat","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"name","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getCatInfo","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"name","type":"string"},{"name":"rarity","type":"uint8"},{"name":"color","type":"string"}]},
  {"type":"event","name":"Transfer","anonymous":false,
   "inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`

type contract struct {
	chain   *ETHChain
	name    string
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
}

func newContract(e *ETHChain, name, addr, abiJSON string) (*contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", name, err)
	}
	c := &contract{chain: e, name: name, abi: parsed}
	if common.IsHexAddress(addr) {
		c.address = common.HexToAddress(addr)
		c.bound = bind.NewBoundContract(c.address, parsed, e.client, e.client, e.client)
	}
	return c, nil
}

func (c *contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	op := c.name + "." + method
	if c.bound == nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeContractCall, op, errNotConfigured)
	}
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeContractCall, op, err)
	}
	return out, nil
}

// transact sends a master-signed call and waits for it to be mined.
func (c *contract) transact(ctx context.Context, method string, args ...interface{}) (*types.Receipt, error) {
	op := c.name + "." + method
	if c.bound == nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeContractCall, op, errNotConfigured)
	}
	opts, err := c.chain.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := c.chain.send(ctx, func(nonce uint64) (*types.Transaction, error) {
		opts.Nonce = new(big.Int).SetUint64(nonce)
		tx, err := c.bound.Transact(opts, method, args...)
		if err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeContractCall, op, err)
		}
		return tx, nil
	})
	if err != nil {
		return nil, err
	}
	return c.chain.waitMined(ctx, tx)
}

type DomainRegistry struct {
	c *contract
}

func NewDomainRegistry(e *ETHChain) (*DomainRegistry, error) {
	c, err := newContract(e, "domainRegistry", e.contracts.DomainRegistry, domainRegistryABI)
	if err != nil {
		return nil, err
	}
	return &DomainRegistry{c: c}, nil
}

func (d *DomainRegistry) IsAvailable(ctx context.Context, domain string) (bool, error) {
	out, err := d.c.call(ctx, "isAvailable", domain)
	if err != nil {
		return false, err
	}
	ok, _ := out[0].(bool)
	return ok, nil
}

func (d *DomainRegistry) Register(ctx context.Context, domain string, owner common.Address) (string, error) {
	receipt, err := d.c.transact(ctx, "registerDomainFor", domain, owner)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

type NFCRegistry struct {
	c *contract
}

func NewNFCRegistry(e *ETHChain) (*NFCRegistry, error) {
	c, err := newContract(e, "nfcRegistry", e.contracts.NFCRegistry, nfcRegistryABI)
	if err != nil {
		return nil, err
	}
	return &NFCRegistry{c: c}, nil
}

func (n *NFCRegistry) Bind(ctx context.Context, uid string, wallet common.Address) (string, error) {
	receipt, err := n.c.transact(ctx, "bindNFC", uid, wallet)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

func (n *NFCRegistry) Unbind(ctx context.Context, uid string) (string, error) {
	receipt, err := n.c.transact(ctx, "unbindNFC", uid)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

type CatNFT struct {
	c *contract
}

func NewCatNFT(e *ETHChain) (*CatNFT, error) {
	c, err := newContract(e, "catNFT", e.contracts.CatNFT, catNFTABI)
	if err != nil {
		return nil, err
	}
	return &CatNFT{c: c}, nil
}

// Draw mints a cat to `to`. The contract rolls rarity and color; the token id
// comes from the ERC-721 Transfer log in the receipt.
func (n *CatNFT) Draw(ctx context.Context, to common.Address, name string) (*entity.CatDraw, error) {
	receipt, err := n.c.transact(ctx, "mintCat", to, name)
	if err != nil {
		return nil, err
	}

	tokenID, err := n.tokenIDFromReceipt(receipt)
	if err != nil {
		return nil, err
	}

	out, err := n.c.call(ctx, "getCatInfo", tokenID)
	if err != nil {
		return nil, err
	}
	draw := &entity.CatDraw{
		TokenID: tokenID.String(),
		TxHash:  receipt.TxHash.Hex(),
	}
	draw.Name, _ = out[0].(string)
	draw.Rarity, _ = out[1].(uint8)
	draw.Color, _ = out[2].(string)
	return draw, nil
}

func (n *CatNFT) tokenIDFromReceipt(receipt *types.Receipt) (*big.Int, error) {
	transferID := n.c.abi.Events["Transfer"].ID
	for _, l := range receipt.Logs {
		if l.Address != n.c.address || len(l.Topics) != 4 || l.Topics[0] != transferID {
			continue
		}
		return new(big.Int).SetBytes(l.Topics[3].Bytes()), nil
	}
	return nil, wrapErrors.WrapWithCode(wrapErrors.CodeContractCall, "catNFT.mintCat",
		fmt.Errorf("no Transfer event in receipt %s", receipt.TxHash.Hex()))
}
