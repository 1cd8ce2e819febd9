package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port    string        `mapstructure:"port"`
	Store   string        `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Crypto  CryptoConfig  `mapstructure:"crypto"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Funding FundingConfig `mapstructure:"funding"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// CryptoConfig holds the server-side envelope key. AESKey is either 64 hex
// chars or a passphrase stretched with Salt.
type CryptoConfig struct {
	AESKey string `mapstructure:"aes_key"`
	Salt   string `mapstructure:"salt"`
}

type ChainConfig struct {
	Enabled          bool            `mapstructure:"enabled"`
	RPC              string          `mapstructure:"rpc"`
	ChainID          int64           `mapstructure:"chain_id"`
	MasterPrivateKey string          `mapstructure:"master_private_key"`
	Bech32Prefix     string          `mapstructure:"bech32_prefix"`
	TxTimeout        time.Duration   `mapstructure:"tx_timeout"`
	Contracts        ContractsConfig `mapstructure:"contracts"`
}

type ContractsConfig struct {
	DomainRegistry string `mapstructure:"domain_registry"`
	NFCRegistry    string `mapstructure:"nfc_registry"`
	CatNFT         string `mapstructure:"cat_nft"`
}

type FundingConfig struct {
	// Amount is a decimal INJ string, e.g. "0.1".
	Amount  string        `mapstructure:"amount"`
	Timeout time.Duration `mapstructure:"timeout"`
}

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("store", StoreMongo)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "injective_pass")
	v.SetDefault("crypto.salt", "injective-pass")
	v.SetDefault("chain.enabled", true)
	v.SetDefault("chain.chain_id", 1439)
	v.SetDefault("chain.bech32_prefix", "inj")
	v.SetDefault("chain.tx_timeout", 2*time.Minute)
	v.SetDefault("funding.amount", "0.1")
	v.SetDefault("funding.timeout", 3*time.Minute)
}

// keys without defaults must be bound explicitly or Unmarshal never sees
// their env values.
var envOnlyKeys = []string{
	"crypto.aes_key",
	"chain.rpc",
	"chain.master_private_key",
	"chain.contracts.domain_registry",
	"chain.contracts.nfc_registry",
	"chain.contracts.cat_nft",
}

// Load reads an optional YAML file at path and lets the environment override
// it, e.g. CHAIN_RPC overrides chain.rpc. An empty path means env only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ENV 覆盖 YAML
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Crypto.AESKey == "" {
		return errors.New("crypto.aes_key is required")
	}
	switch c.Store {
	case StoreMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo.uri is required")
		}
	case StoreMemory:
	default:
		return errors.New("store must be mongo or memory")
	}
	if c.Chain.Enabled {
		if c.Chain.RPC == "" {
			return errors.New("chain.rpc is required when chain is enabled")
		}
		if c.Chain.MasterPrivateKey == "" {
			return errors.New("chain.master_private_key is required when chain is enabled")
		}
	}
	return nil
}
