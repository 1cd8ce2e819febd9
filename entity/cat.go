package entity

// CatDraw is the on-chain result of a cat NFT draw. Rarity and color are
// rolled by the contract.
type CatDraw struct {
	TokenID string
	Name    string
	Rarity  uint8
	Color   string
	TxHash  string
}
