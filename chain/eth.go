package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/injectivepass/nfc_service/config"
	wrapErrors "github.com/injectivepass/nfc_service/errors"
)

const transferGas = 21000

// ETHChain talks to the Injective EVM JSON-RPC endpoint and signs with the
// master funding key.
type ETHChain struct {
	client     *ethclient.Client
	chainID    *big.Int
	master     *ecdsa.PrivateKey
	masterAddr common.Address
	txTimeout  time.Duration
	contracts  config.ContractsConfig
	log        *zap.Logger

	// txMu serializes master-signed sends from nonce read to broadcast.
	txMu       sync.Mutex
	nextNonce  uint64
	nonceKnown bool
}

func NewETHChain(ctx context.Context, cfg config.ChainConfig, log *zap.Logger) (*ETHChain, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPC)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.DailChain, "eth dial", err)
	}
	e, err := newETHChain(ctx, client, cfg, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	return e, nil
}

func newETHChain(ctx context.Context, client *ethclient.Client, cfg config.ChainConfig, log *zap.Logger) (*ETHChain, error) {
	if log == nil {
		log = zap.NewNop()
	}
	master, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.MasterPrivateKey, "0x"))
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.SignerErr, "load master key", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.GetchainIDErr, "get chainID", err)
	}
	if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
		log.Warn("rpc chain id differs from configured chain id",
			zap.Int64("configured", cfg.ChainID), zap.String("rpc", chainID.String()))
	}

	timeout := cfg.TxTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &ETHChain{
		client:     client,
		chainID:    chainID,
		master:     master,
		masterAddr: crypto.PubkeyToAddress(master.PublicKey),
		txTimeout:  timeout,
		contracts:  cfg.Contracts,
		log:        log,
	}, nil
}

func (e *ETHChain) Close() {
	e.client.Close()
}

func (e *ETHChain) MasterAddress() common.Address {
	return e.masterAddr
}

func (e *ETHChain) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := e.client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, "balance", err)
	}
	return bal, nil
}

// Transfer sends amountWei from the master account to `to` and blocks until
// the transaction is mined. A reverted receipt is an error.
func (e *ETHChain) Transfer(ctx context.Context, to common.Address, amountWei *big.Int) (string, error) {
	tip, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeGasEstimate, "SuggestGasTipCap", err)
	}

	header, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, "HeaderByNumber", err)
	}

	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	feeCap := new(big.Int).Add(
		new(big.Int).Mul(baseFee, big.NewInt(2)), // 留 buffer
		tip,
	)

	signedTx, err := e.send(ctx, func(nonce uint64) (*types.Transaction, error) {
		tx := types.NewTx(&types.DynamicFeeTx{
			ChainID:   e.chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       transferGas,
			To:        &to,
			Value:     amountWei,
		})

		signer := types.NewLondonSigner(e.chainID)
		signedTx, err := types.SignTx(tx, signer, e.master)
		if err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.SignerErr, "SignTx", err)
		}
		if err := e.client.SendTransaction(ctx, signedTx); err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.SendTxErr, "SendTransaction", err)
		}
		return signedTx, nil
	})
	if err != nil {
		return "", err
	}

	if _, err := e.waitMined(ctx, signedTx); err != nil {
		return signedTx.Hash().Hex(), err
	}
	return signedTx.Hash().Hex(), nil
}

// send runs one master-signed broadcast under txMu. The nonce is the larger
// of the node's pending count and the last nonce this process sent plus one,
// so back-to-back sends never reuse a nonce while the node's pool catches up.
func (e *ETHChain) send(ctx context.Context, sendTx func(nonce uint64) (*types.Transaction, error)) (*types.Transaction, error) {
	e.txMu.Lock()
	defer e.txMu.Unlock()

	pending, err := e.client.PendingNonceAt(ctx, e.masterAddr)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.PendingNonceAt, "PendingNonceAt", err)
	}
	nonce := pending
	if e.nonceKnown && e.nextNonce > nonce {
		nonce = e.nextNonce
	}

	tx, err := sendTx(nonce)
	if err != nil {
		// resync from the node next time
		e.nonceKnown = false
		return nil, err
	}
	e.nextNonce = nonce + 1
	e.nonceKnown = true
	return tx, nil
}

func (e *ETHChain) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.txTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(ctx, e.client, tx)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, "wait mined", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, wrapErrors.WrapWithCode(wrapErrors.CodeTxFailed, "wait mined",
			fmt.Errorf("transaction %s reverted", tx.Hash().Hex()))
	}
	return receipt, nil
}

// transactOpts signs contract calls with the master key. Callers set Nonce
// inside send.
func (e *ETHChain) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(e.master, e.chainID)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.SignerErr, "transactor", err)
	}
	opts.Context = ctx
	return opts, nil
}

// ContractStatus reports whether a configured contract has code deployed.
type ContractStatus struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Configured bool   `json:"configured"`
	Deployed   bool   `json:"deployed"`
}

type Status struct {
	ChainID       string           `json:"chainId"`
	LatestBlock   uint64           `json:"latestBlock"`
	MasterAddress string           `json:"masterAddress"`
	MasterBalance string           `json:"masterBalanceWei"`
	Contracts     []ContractStatus `json:"contracts"`
}

func (e *ETHChain) Status(ctx context.Context) (*Status, error) {
	block, err := e.client.BlockNumber(ctx)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, "BlockNumber", err)
	}
	bal, err := e.Balance(ctx, e.masterAddr)
	if err != nil {
		return nil, err
	}

	st := &Status{
		ChainID:       e.chainID.String(),
		LatestBlock:   block,
		MasterAddress: e.masterAddr.Hex(),
		MasterBalance: bal.String(),
	}
	for _, c := range []struct{ name, addr string }{
		{"domainRegistry", e.contracts.DomainRegistry},
		{"nfcRegistry", e.contracts.NFCRegistry},
		{"catNFT", e.contracts.CatNFT},
	} {
		cs := ContractStatus{Name: c.name, Address: c.addr, Configured: common.IsHexAddress(c.addr)}
		if cs.Configured {
			code, err := e.client.CodeAt(ctx, common.HexToAddress(c.addr), nil)
			if err != nil {
				return nil, wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, "CodeAt", err)
			}
			cs.Deployed = len(code) > 0
		}
		st.Contracts = append(st.Contracts, cs)
	}
	return st, nil
}

var errNotConfigured = errors.New("contract address not configured")
