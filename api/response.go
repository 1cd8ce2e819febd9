package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/injectivepass/nfc_service/errors"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func statusFor(code apperrors.Code) int {
	switch {
	case code == apperrors.CodeInvalidFormat:
		return http.StatusBadRequest
	case code == apperrors.CodeNotFound:
		return http.StatusNotFound
	case code == apperrors.CodeConflict:
		return http.StatusConflict
	case code == apperrors.CodeForbidden:
		return http.StatusForbidden
	case code.IsChain():
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes {success:false, error, code}. Internal errors are logged and
// their details withheld from the client.
func fail(c *gin.Context, log *zap.Logger, err error) {
	code := apperrors.CodeOf(err)
	status := statusFor(code)
	msg := apperrors.Message(err)

	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", requestID(c)),
			zap.String("path", c.FullPath()),
			zap.String("code", string(code)),
			zap.Error(err))
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	c.JSON(status, envelope{Success: false, Error: msg, Code: string(code)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, envelope{
		Success: false,
		Error:   err.Error(),
		Code:    string(apperrors.CodeInvalidFormat),
	})
}
