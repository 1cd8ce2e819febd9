package entity

import "time"

// NFCWallet binds one card UID to one generated account. EncryptedPrivateKey
// is hex(nonce):hex(tag):hex(ciphertext) under the server AES key.
type NFCWallet struct {
	UID                 string    `bson:"uid"`
	Address             string    `bson:"address"`     // bech32, inj1...
	EthAddress          string    `bson:"eth_address"` // 0x...
	PublicKey           string    `bson:"public_key"`  // compressed secp256k1, hex
	EncryptedPrivateKey string    `bson:"encrypted_private_key"`
	Nickname            string    `bson:"nickname,omitempty"`
	UserAddress         string    `bson:"user_address,omitempty"`
	Domain              *string   `bson:"domain,omitempty"`
	DomainPending       bool      `bson:"domain_pending,omitempty"` // reserved, on-chain registration not confirmed
	NFTTokenID          *string   `bson:"nft_token_id,omitempty"`
	InitialFunded       bool      `bson:"initial_funded"`
	FundingTxHash       string    `bson:"funding_tx_hash,omitempty"`
	CreatedAt           time.Time `bson:"created_at"`
}

// Clone returns a deep copy so callers cannot mutate stored records.
func (w *NFCWallet) Clone() *NFCWallet {
	if w == nil {
		return nil
	}
	c := *w
	if w.Domain != nil {
		d := *w.Domain
		c.Domain = &d
	}
	if w.NFTTokenID != nil {
		t := *w.NFTTokenID
		c.NFTTokenID = &t
	}
	return &c
}
