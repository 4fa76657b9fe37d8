package controller

import (
	"rewards_backend/internal/service"
	"rewards_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CheckinController 签到申领相关的API
type CheckinController struct {
	CheckinService *service.CheckinService
}

func NewCheckinController(checkinService *service.CheckinService) *CheckinController {
	return &CheckinController{CheckinService: checkinService}
}

// ClaimDayRequest 领取某天签到奖励的请求
// swagger:model ClaimDayRequest
type ClaimDayRequest struct {
	DayIndex     *int   `json:"dayIndex" binding:"required"`
	RequestToken string `json:"requestToken"`
}

// ClaimCompleteRequest 领取全勤奖的请求
// swagger:model ClaimCompleteRequest
type ClaimCompleteRequest struct {
	RequestToken string `json:"requestToken"`
}

// GetClaimable godoc
// @Summary 查询当前可签到的天
// @Description 返回当前可领的天序号（无可领为null）与全勤奖资格
// @Tags 签到
// @Produce json
// @Security BearerAuth
// @Param gameId path string true "活动ID"
// @Success 200 {object} util.Response{data=service.ClaimableInfo}
// @Router /api/games/{gameId}/checkin/claimable [get]
func (c *CheckinController) GetClaimable(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	info, err := c.CheckinService.GetClaimable(ctx.Request.Context(), ctx.Param("gameId"), user.UserID)
	if err != nil {
		writeClaimError(ctx, err)
		return
	}
	util.Success(ctx, info)
}

// ClaimDay godoc
// @Summary 领取某天的签到奖励
// @Description 幂等：带同一requestToken重试返回同一结果，不会重复发奖
// @Tags 签到
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param gameId path string true "活动ID"
// @Param request body ClaimDayRequest true "申领请求"
// @Success 200 {object} util.Response{data=service.ClaimResult}
// @Failure 409 {object} util.Response "今天已领过"
// @Failure 410 {object} util.Response "码已发完"
// @Router /api/games/{gameId}/checkin/claim [post]
func (c *CheckinController) ClaimDay(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ClaimDayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.CheckinService.ClaimDay(ctx.Request.Context(), ctx.Param("gameId"), user.UserID, *req.DayIndex, req.RequestToken)
	if err != nil {
		writeClaimError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// ClaimCompleteReward godoc
// @Summary 领取全勤奖
// @Tags 签到
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param gameId path string true "活动ID"
// @Param request body ClaimCompleteRequest true "申领请求"
// @Success 200 {object} util.Response{data=service.ClaimResult}
// @Router /api/games/{gameId}/checkin/complete-reward [post]
func (c *CheckinController) ClaimCompleteReward(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ClaimCompleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.CheckinService.ClaimCompleteReward(ctx.Request.Context(), ctx.Param("gameId"), user.UserID, req.RequestToken)
	if err != nil {
		writeClaimError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
