package request

type RegisterNFCReq struct {
	UID         string `json:"uid" binding:"required"`
	UserAddress string `json:"userAddress"`
	Nickname    string `json:"nickname" binding:"max=64"`
}

type DomainCheckReq struct {
	Domain string `form:"domain" binding:"required"`
}

type RegisterDomainReq struct {
	UID    string `json:"uid" binding:"required"`
	Domain string `json:"domain" binding:"required"`
}

type UnbindReq struct {
	UID          string `json:"uid" binding:"required"`
	OwnerAddress string `json:"ownerAddress"`
}

type DrawCatReq struct {
	UID     string `json:"uid" binding:"required"`
	CatName string `json:"catName" binding:"required"`
}
