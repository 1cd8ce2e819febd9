package service

import (
	"time"

	"github.com/injectivepass/nfc_service/entity"
)

// WalletView is the public shape of a wallet. It never carries key material.
type WalletView struct {
	UID           string    `json:"uid"`
	Address       string    `json:"address"`
	EthAddress    string    `json:"ethAddress"`
	PublicKey     string    `json:"publicKey"`
	Nickname      string    `json:"nickname,omitempty"`
	UserAddress   string    `json:"userAddress,omitempty"`
	Domain        *string   `json:"domain"`
	NFTTokenID    *string   `json:"nftTokenId"`
	InitialFunded bool      `json:"initialFunded"`
	FundingTxHash string    `json:"fundingTxHash,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newWalletView(w *entity.NFCWallet) WalletView {
	domain := w.Domain
	if w.DomainPending {
		domain = nil
	}
	return WalletView{
		UID:           w.UID,
		Address:       w.Address,
		EthAddress:    w.EthAddress,
		PublicKey:     w.PublicKey,
		Nickname:      w.Nickname,
		UserAddress:   w.UserAddress,
		Domain:        domain,
		NFTTokenID:    w.NFTTokenID,
		InitialFunded: w.InitialFunded,
		FundingTxHash: w.FundingTxHash,
		CreatedAt:     w.CreatedAt,
	}
}

type DomainAvailability struct {
	Domain    string `json:"domain"`
	Available bool   `json:"available"`
}

type DomainView struct {
	UID     string `json:"uid"`
	Domain  string `json:"domain"`
	Address string `json:"address"`
	TxHash  string `json:"txHash"`
}

type UnbindResult struct {
	UID    string `json:"uid"`
	TxHash string `json:"txHash,omitempty"`
}

type CatView struct {
	UID        string `json:"uid"`
	TokenID    string `json:"tokenId"`
	Name       string `json:"name"`
	Rarity     uint8  `json:"rarity"`
	RarityName string `json:"rarityName"`
	Color      string `json:"color"`
	TxHash     string `json:"txHash"`
}

type BalanceView struct {
	Address    string `json:"address"`
	EthAddress string `json:"ethAddress"`
	Wei        string `json:"wei"`
	INJ        string `json:"inj"`
}
