package controller

import (
	"rewards_backend/internal/model"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/service"
	"rewards_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController 活动与码表配置的管理端入口。
// 配置是申领路径的只读输入，这里只是薄CRUD。
type AdminController struct {
	GameRepo         *repository.GameRepository
	PoolRepo         *repository.CodePoolRepository
	MigrationService *service.MigrationService
}

func NewAdminController(gameRepo *repository.GameRepository, poolRepo *repository.CodePoolRepository, migration *service.MigrationService) *AdminController {
	return &AdminController{GameRepo: gameRepo, PoolRepo: poolRepo, MigrationService: migration}
}

// swagger:model SaveGameRequest
type SaveGameRequest struct {
	ID             string           `json:"id" binding:"required"`
	Name           string           `json:"name" binding:"required"`
	TotalDays      int              `json:"totalDays" binding:"required,min=1"`
	EndDate        string           `json:"endDate"`
	CompleteKind   model.RewardKind `json:"completeKind"`
	CompleteAmount float64          `json:"completeAmount"`
	CompleteCodes  []string         `json:"completeCodes"`
}

// swagger:model SaveDayRewardRequest
type SaveDayRewardRequest struct {
	DayIndex *int             `json:"dayIndex" binding:"required"`
	Kind     model.RewardKind `json:"kind" binding:"required"`
	Amount   float64          `json:"amount"`
	Codes    []string         `json:"codes"`
}

// swagger:model SaveCouponItemRequest
type SaveCouponItemRequest struct {
	ItemIndex *int     `json:"itemIndex" binding:"required"`
	Name      string   `json:"name"`
	Price     float64  `json:"price" binding:"required"`
	Codes     []string `json:"codes" binding:"required"`
}

// SaveGame godoc
// @Summary 创建/更新活动
// @Tags 管理
// @Security BearerAuth
// @Router /api/admin/games [post]
func (c *AdminController) SaveGame(ctx *gin.Context) {
	var req SaveGameRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	kind := req.CompleteKind
	if kind == "" {
		kind = model.RewardCoin
	}
	game := &model.Game{
		ID:             req.ID,
		Name:           req.Name,
		TotalDays:      req.TotalDays,
		EndDate:        req.EndDate,
		CompleteKind:   kind,
		CompleteAmount: req.CompleteAmount,
		CompleteCodes:  req.CompleteCodes,
	}
	if err := c.GameRepo.SaveGame(ctx.Request.Context(), game); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, game)
}

// SaveDayReward godoc
// @Summary 配置某天的奖励（发布/替换码表）
// @Tags 管理
// @Security BearerAuth
// @Router /api/admin/games/{gameId}/day-rewards [post]
func (c *AdminController) SaveDayReward(ctx *gin.Context) {
	var req SaveDayRewardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	gameID := ctx.Param("gameId")
	existing, err := c.GameRepo.GetDayReward(ctx.Request.Context(), gameID, *req.DayIndex)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	reward := &model.DayReward{
		GameID:   gameID,
		DayIndex: *req.DayIndex,
		Kind:     req.Kind,
		Amount:   req.Amount,
		Codes:    req.Codes,
	}
	if existing != nil {
		reward.ID = existing.ID
	}
	if err := c.GameRepo.SaveDayReward(ctx.Request.Context(), reward); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, reward)
}

// SaveCouponItem godoc
// @Summary 配置兑换项
// @Tags 管理
// @Security BearerAuth
// @Router /api/admin/games/{gameId}/coupon-items [post]
func (c *AdminController) SaveCouponItem(ctx *gin.Context) {
	var req SaveCouponItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	gameID := ctx.Param("gameId")
	existing, err := c.GameRepo.GetCouponItem(ctx.Request.Context(), gameID, *req.ItemIndex)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	item := &model.CouponItem{
		GameID:    gameID,
		ItemIndex: *req.ItemIndex,
		Name:      req.Name,
		Price:     req.Price,
		Codes:     req.Codes,
	}
	if existing != nil {
		item.ID = existing.ID
	}
	if err := c.GameRepo.SaveCouponItem(ctx.Request.Context(), item); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, item)
}

// GetPool godoc
// @Summary 查看某槽位的发码状态
// @Tags 管理
// @Security BearerAuth
// @Router /api/admin/games/{gameId}/pools/{slotId} [get]
func (c *AdminController) GetPool(ctx *gin.Context) {
	pool, err := c.PoolRepo.GetPool(ctx.Request.Context(), ctx.Param("gameId"), ctx.Param("slotId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if pool == nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, gin.H{
		"slotId":    pool.SlotID,
		"total":     len(pool.Codes),
		"cursor":    pool.Cursor,
		"claimed":   len(pool.ClaimedBy),
		"remaining": pool.Remaining(),
	})
}

// Migrate godoc
// @Summary 回填旧版签到数据
// @Description 幂等，可与线上申领并发执行；checked=true 的记录绝不降级
// @Tags 管理
// @Security BearerAuth
// @Router /api/admin/games/{gameId}/migrate [post]
func (c *AdminController) Migrate(ctx *gin.Context) {
	report, err := c.MigrationService.MigrateGame(ctx.Request.Context(), ctx.Param("gameId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// ListDayRewards godoc
// @Summary 某活动全部天奖励配置
// @Tags 管理
// @Security BearerAuth
// @Router /api/admin/games/{gameId}/day-rewards [get]
func (c *AdminController) ListDayRewards(ctx *gin.Context) {
	rewards, err := c.GameRepo.ListDayRewards(ctx.Request.Context(), ctx.Param("gameId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rewards)
}
