package api

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/injectivepass/nfc_service/request"
	"github.com/injectivepass/nfc_service/service"
)

type NFCHandler struct {
	nfc     *service.NFCService
	domains *service.DomainService
	cats    *service.CatService
	chain   *service.ChainService
	log     *zap.Logger
}

func NewNFCHandler(nfc *service.NFCService, domains *service.DomainService, cats *service.CatService, chain *service.ChainService, log *zap.Logger) *NFCHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &NFCHandler{nfc: nfc, domains: domains, cats: cats, chain: chain, log: log}
}

// Register handles POST /api/nfc/register. 201 on first scan, 200 after.
func (h *NFCHandler) Register(c *gin.Context) {
	var req request.RegisterNFCReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	wallet, created, err := h.nfc.Register(c.Request.Context(), service.RegisterInput{
		UID:         req.UID,
		UserAddress: req.UserAddress,
		Nickname:    req.Nickname,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, wallet)
}

// GetWallet handles GET /api/nfc/wallet/:uid
func (h *NFCHandler) GetWallet(c *gin.Context) {
	wallet, err := h.nfc.Lookup(c.Request.Context(), c.Param("uid"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, wallet)
}

// WalletQR handles GET /api/nfc/wallet/:uid/qr and returns a base64 PNG of
// the bech32 address.
func (h *NFCHandler) WalletQR(c *gin.Context) {
	wallet, err := h.nfc.Lookup(c.Request.Context(), c.Param("uid"))
	if err != nil {
		fail(c, h.log, err)
		return
	}

	png, err := qrcode.Encode(wallet.Address, qrcode.Medium, 256)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"uid":     wallet.UID,
		"address": wallet.Address,
		"qr":      base64.StdEncoding.EncodeToString(png),
	})
}

// Custody handles GET /api/nfc/wallet/:uid/custody
func (h *NFCHandler) Custody(c *gin.Context) {
	uid, err := h.nfc.VerifyCustody(c.Request.Context(), c.Param("uid"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"uid": uid, "recoverable": true})
}

// CheckDomain handles GET /api/nfc/domain/check?domain=
func (h *NFCHandler) CheckDomain(c *gin.Context) {
	var req request.DomainCheckReq
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.domains.CheckDomain(c.Request.Context(), req.Domain)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// RegisterDomain handles POST /api/nfc/domain/register
func (h *NFCHandler) RegisterDomain(c *gin.Context) {
	var req request.RegisterDomainReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.domains.RegisterDomain(c.Request.Context(), req.UID, req.Domain)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// Unbind handles POST /api/nfc/unbind
func (h *NFCHandler) Unbind(c *gin.Context) {
	var req request.UnbindReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.nfc.Unbind(c.Request.Context(), req.UID, req.OwnerAddress)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// GetBalance handles GET /api/nfc/balance/:address
func (h *NFCHandler) GetBalance(c *gin.Context) {
	res, err := h.chain.Balance(c.Request.Context(), c.Param("address"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// DrawCat handles POST /api/nfc/cat/draw
func (h *NFCHandler) DrawCat(c *gin.Context) {
	var req request.DrawCatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.cats.DrawCat(c.Request.Context(), req.UID, req.CatName)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// Stats handles GET /api/nfc/stats
func (h *NFCHandler) Stats(c *gin.Context) {
	res, err := h.nfc.Stats(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// ContractStatus handles GET /api/contract/status
func (h *NFCHandler) ContractStatus(c *gin.Context) {
	res, err := h.chain.Status(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, res)
}
