package util

import "errors"

// 申领错误分类（见各服务的传播约定）：
// AlreadyClaimed / CodesExhausted / InsufficientBalance 是终态，
// TransactionFailed / InvalidDate 是瞬态，调用方可重试。
var (
	ErrAlreadyClaimed      = errors.New("already claimed")
	ErrLostRace            = errors.New("lost claim race")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrCodesExhausted      = errors.New("codes exhausted")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidDate         = errors.New("trusted date reads disagree")
	ErrDebitNotAllowed     = errors.New("debit not allowed")

	// ErrWriteConflict CAS写落空，由申领协议内部重试，不直接出服务层
	ErrWriteConflict = errors.New("write conflict")
	// ErrDuplicateToken 流水token撞唯一索引，表示该请求已入账过
	ErrDuplicateToken = errors.New("duplicate request token")

	ErrGameNotFound    = errors.New("game not found")
	ErrGameEnded       = errors.New("game has ended")
	ErrDayNotClaimable = errors.New("day not claimable")
	ErrRewardNotFound  = errors.New("reward not configured")
	ErrPriceMismatch   = errors.New("price mismatch")

	ErrUserNotFound    = errors.New("用户不存在")
	ErrEmailRegistered = errors.New("该邮箱已被注册")
	ErrBadCredentials  = errors.New("邮箱或密码错误")
)
