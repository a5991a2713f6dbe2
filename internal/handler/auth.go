package handler

import (
	"crypto/subtle"
	"errors"

	"github.com/gin-gonic/gin"

	"sudooom.fedi.sync/internal/jwt"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/repository"
	"sudooom.fedi.sync/pkg/response"
	appErrors "sudooom.fedi.sync/pkg/errors"
)

// TokenRequest 用账号的上游访问令牌换取本地令牌
type TokenRequest struct {
	AccountID   string `json:"account_id" binding:"required"`
	AccessToken string `json:"access_token" binding:"required"`
}

// TokenResponse 本地令牌
type TokenResponse struct {
	AccountID   model.AccountID `json:"account_id,string"`
	Account     string          `json:"account"`
	AccessToken string          `json:"access_token"`
	ExpiresAt   int64           `json:"expires_at"`
}

// AuthHandler 认证处理器
type AuthHandler struct {
	store repository.Store
	jwt   *jwt.Service
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(store repository.Store, jwtService *jwt.Service) *AuthHandler {
	return &AuthHandler{store: store, jwt: jwtService}
}

// Token 签发本地令牌
// @Summary      获取本地令牌
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body TokenRequest true "账号与上游访问令牌"
// @Success      200  {object}  response.Response{data=TokenResponse}
// @Router       /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err.Error())
		return
	}
	accountID, err := model.ParseAccountID(req.AccountID)
	if err != nil {
		response.InvalidParams(c, "account_id must be numeric")
		return
	}

	account, err := h.store.Account(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.Error(c, appErrors.ErrInvalidCredentials)
			return
		}
		fail(c, err)
		return
	}
	if subtle.ConstantTimeCompare([]byte(account.AccessToken), []byte(req.AccessToken)) != 1 {
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	token, err := h.jwt.Generate(account.ID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, TokenResponse{
		AccountID:   account.ID,
		Account:     account.FullName(),
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
	})
}
