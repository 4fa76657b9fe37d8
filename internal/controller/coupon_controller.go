package controller

import (
	"rewards_backend/internal/repository"
	"rewards_backend/internal/service"
	"rewards_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CouponController struct {
	CheckinService *service.CheckinService
	GameRepo       *repository.GameRepository
}

func NewCouponController(checkinService *service.CheckinService, gameRepo *repository.GameRepository) *CouponController {
	return &CouponController{CheckinService: checkinService, GameRepo: gameRepo}
}

// RedeemRequest 金币兑换请求；price 用于和服务端配置互验
// swagger:model RedeemRequest
type RedeemRequest struct {
	ItemIndex    *int     `json:"itemIndex" binding:"required"`
	Price        *float64 `json:"price" binding:"required"`
	RequestToken string   `json:"requestToken"`
}

// Redeem godoc
// @Summary 金币兑换奖励码
// @Description 先扣款后发码；码发完会把扣款原路补偿回来
// @Tags 兑换
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param gameId path string true "活动ID"
// @Param request body RedeemRequest true "兑换请求"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "余额不足/价格不符"
// @Failure 410 {object} util.Response "码已发完"
// @Router /api/games/{gameId}/coupons/redeem [post]
func (c *CouponController) Redeem(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req RedeemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	code, err := c.CheckinService.RedeemCoupon(ctx.Request.Context(), ctx.Param("gameId"), user.UserID, *req.ItemIndex, *req.Price, req.RequestToken)
	if err != nil {
		writeClaimError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"code": code})
}

// List godoc
// @Summary 可兑换项列表
// @Tags 兑换
// @Produce json
// @Security BearerAuth
// @Param gameId path string true "活动ID"
// @Success 200 {object} util.Response
// @Router /api/games/{gameId}/coupons [get]
func (c *CouponController) List(ctx *gin.Context) {
	items, err := c.GameRepo.ListCouponItems(ctx.Request.Context(), ctx.Param("gameId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}
