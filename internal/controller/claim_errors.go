package controller

import (
	"errors"
	"net/http"

	"rewards_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// writeClaimError 把申领错误分类映射到HTTP语义：
// 终态错误给明确状态码，瞬态错误统一 503 让前端提示"稍后再试"。
func writeClaimError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAlreadyClaimed):
		util.Conflict(c, "already claimed")
	case errors.Is(err, util.ErrCodesExhausted):
		util.Error(c, http.StatusGone, "codes exhausted")
	case errors.Is(err, util.ErrGameEnded):
		util.Error(c, http.StatusGone, "game has ended")
	case errors.Is(err, util.ErrInsufficientBalance):
		util.BadRequest(c, "insufficient balance")
	case errors.Is(err, util.ErrDebitNotAllowed):
		util.Forbidden(c)
	case errors.Is(err, util.ErrDayNotClaimable):
		util.BadRequest(c, "day not claimable")
	case errors.Is(err, util.ErrPriceMismatch):
		util.BadRequest(c, "price mismatch")
	case errors.Is(err, util.ErrGameNotFound), errors.Is(err, util.ErrRewardNotFound):
		util.NotFound(c)
	case errors.Is(err, util.ErrTransactionFailed), errors.Is(err, util.ErrInvalidDate):
		util.Error(c, http.StatusServiceUnavailable, "temporary failure, please retry")
	default:
		util.LogInternalError(c, err)
	}
}
