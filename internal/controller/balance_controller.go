package controller

import (
	"rewards_backend/internal/model"
	"rewards_backend/internal/service"
	"rewards_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BalanceController struct {
	CoinService   *service.CoinService
	NotifyService *service.NotifyService
}

func NewBalanceController(coinService *service.CoinService, notifyService *service.NotifyService) *BalanceController {
	return &BalanceController{CoinService: coinService, NotifyService: notifyService}
}

// AdjustRequest 余额调整请求
// swagger:model AdjustRequest
type AdjustRequest struct {
	Delta        *float64 `json:"delta" binding:"required"`
	RequestToken string   `json:"requestToken"`
}

// GetBalance godoc
// @Summary 查询金币余额
// @Tags 余额
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/balance [get]
func (c *BalanceController) GetBalance(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	amount, err := c.CoinService.GetBalance(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"amount": amount})
}

// Adjust godoc
// @Summary 调整金币余额
// @Description 幂等：同一requestToken只入账一次。扣减仅限管理员。
// @Tags 余额
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AdjustRequest true "调整请求"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "余额不足"
// @Router /api/balance/adjust [post]
func (c *BalanceController) Adjust(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req AdjustRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token := req.RequestToken
	if token == "" {
		token = util.NewRequestToken()
	}

	allowDebit := string(user.Role) == string(model.RoleAdmin)
	amount, err := c.CoinService.Adjust(ctx.Request.Context(), user.UserID, *req.Delta, allowDebit, token, "adjust")
	if err != nil {
		writeClaimError(ctx, err)
		return
	}

	c.NotifyService.BalanceChanged(ctx.Request.Context(), user.UserID, amount)
	util.Success(ctx, gin.H{"amount": amount})
}
