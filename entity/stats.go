package entity

type WalletStats struct {
	TotalWallets      int64 `json:"totalWallets"`
	FundedWallets     int64 `json:"fundedWallets"`
	WalletsWithDomain int64 `json:"walletsWithDomain"`
	WalletsWithNFT    int64 `json:"walletsWithNft"`
}
