package domain

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	bip39 "github.com/tyler-smith/go-bip39"

	apperrors "github.com/injectivepass/nfc_service/errors"
)

// DerivationPath is the BIP-44 path Injective wallets use (Ethereum coin type).
const DerivationPath = "m/44'/60'/0'/0/0"

// DefaultBech32Prefix is the Injective account HRP.
const DefaultBech32Prefix = "inj"

// KeyPair is a freshly generated account. PrivateKeyHex must be encrypted
// before it leaves the process.
type KeyPair struct {
	PrivateKeyHex string
	PublicKeyHex  string
	EthAddress    string
	Address       string
}

// KeyGenerator creates keypairs and encodes addresses under a bech32 prefix.
type KeyGenerator struct {
	prefix string
}

func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix == "" {
		prefix = DefaultBech32Prefix
	}
	return &KeyGenerator{prefix: prefix}
}

func (g *KeyGenerator) Prefix() string {
	return g.prefix
}

// Generate draws 256 bits of BIP-39 entropy and derives the account key along
// DerivationPath. The mnemonic and seed are discarded.
func (g *KeyGenerator) Generate() (*KeyPair, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}
	defer clearBytes(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	seed := bip39.NewSeed(mnemonic, "")
	defer clearBytes(seed)

	priv, err := deriveKey(seed, DerivationPath)
	if err != nil {
		return nil, err
	}
	return g.fromECDSA(priv)
}

// FromPrivateKeyHex rebuilds a keypair from a raw secp256k1 key, with or
// without 0x prefix.
func (g *KeyGenerator) FromPrivateKeyHex(privHex string) (*KeyPair, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(privHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return g.fromECDSA(priv)
}

func (g *KeyGenerator) fromECDSA(priv *ecdsa.PrivateKey) (*KeyPair, error) {
	addr := crypto.PubkeyToAddress(priv.PublicKey)
	bech, err := EncodeBech32(g.prefix, addr)
	if err != nil {
		return nil, err
	}
	privBytes := crypto.FromECDSA(priv)
	defer clearBytes(privBytes)

	return &KeyPair{
		PrivateKeyHex: hex.EncodeToString(privBytes),
		PublicKeyHex:  hex.EncodeToString(crypto.CompressPubkey(&priv.PublicKey)),
		EthAddress:    addr.Hex(),
		Address:       bech,
	}, nil
}

func deriveKey(seed []byte, path string) (*ecdsa.PrivateKey, error) {
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	indices, err := parseDerivationPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid derivation path: %w", err)
	}

	key := master
	for _, idx := range indices {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key: %w", err)
		}
	}

	ecPriv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get EC private key: %w", err)
	}
	privBytes := ecPriv.Serialize()
	defer clearBytes(privBytes)

	ecdsaKey, err := crypto.ToECDSA(privBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to ecdsa: %w", err)
	}
	return ecdsaKey, nil
}

// parseDerivationPath accepts "m/44'/60'/0'/0/0" or "44'/60'/0'/0/0"
func parseDerivationPath(path string) ([]uint32, error) {
	p := strings.TrimSpace(path)
	if strings.HasPrefix(p, "m/") || strings.HasPrefix(p, "M/") {
		p = p[2:]
	}
	if p == "" {
		return nil, errors.New("empty derivation path")
	}
	parts := strings.Split(p, "/")
	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		hardened := strings.HasSuffix(part, "'")
		part = strings.TrimSuffix(part, "'")
		if part == "" {
			return nil, errors.New("invalid path segment")
		}
		v, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, errors.New("invalid derivation index")
		}
		idx := uint32(v)
		if hardened {
			idx += hdkeychain.HardenedKeyStart
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// EncodeBech32 encodes the 20 address bytes under prefix.
func EncodeBech32(prefix string, addr common.Address) (string, error) {
	conv, err := bech32.ConvertBits(addr.Bytes(), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(prefix, conv)
}

// ParseAddress accepts either a 0x hex address or a bech32 address under
// prefix and returns the underlying 20 bytes.
func ParseAddress(prefix, s string) (common.Address, error) {
	const op = "parse address"
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if !common.IsHexAddress(s) {
			return common.Address{}, apperrors.New(apperrors.CodeInvalidFormat, op, "invalid hex address")
		}
		return common.HexToAddress(s), nil
	}

	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return common.Address{}, apperrors.WrapWithCode(apperrors.CodeInvalidFormat, op, err)
	}
	if hrp != prefix {
		return common.Address{}, apperrors.New(apperrors.CodeInvalidFormat, op,
			fmt.Sprintf("address prefix %q, want %q", hrp, prefix))
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return common.Address{}, apperrors.WrapWithCode(apperrors.CodeInvalidFormat, op, err)
	}
	if len(raw) != common.AddressLength {
		return common.Address{}, apperrors.New(apperrors.CodeInvalidFormat, op, "address must be 20 bytes")
	}
	return common.BytesToAddress(raw), nil
}
