// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"time"

	"gembot-go/internal/model"
	"gembot-go/internal/repository"
)

// EntitlementService 是套餐与配额状态的唯一裁决者和变更入口。
type EntitlementService interface {
	// RemainingRequests 返回用户当前可用的请求数。
	// 注意这是一个命令式查询：过期套餐的懒降级与跨天的计数器懒重置
	// 会在这里落盘，同一天内重复调用幂等。
	RemainingRequests(ctx context.Context, userID int64) (int, error)
	// Snapshot 与 RemainingRequests 语义相同，同时返回对账后的用户。
	Snapshot(ctx context.Context, userID int64) (*model.User, int, error)
	// ConsumeRequest 将每日计数器加一。仅在生成成功后、且仅对受限套餐调用。
	ConsumeRequest(ctx context.Context, userID int64) error
	// ChangePlan 变更套餐；days 仅对 pro/premium 有意义。
	ChangePlan(ctx context.Context, userID int64, plan string, days int) error
	// RedeemPromoCode 原子地兑换促销码，失败结果为终态、不重试。
	RedeemPromoCode(ctx context.Context, userID int64, code string) (*model.PromoCode, error)
	// PlanSummary 生成用户当前套餐的展示行。
	PlanSummary(ctx context.Context, userID int64) (string, error)
	// Limits 返回配置的每日限额。
	Limits() model.QuotaLimits
}

type entitlementService struct {
	userRepo  repository.UserRepository
	promoRepo repository.PromoCodeRepository
	limits    model.QuotaLimits
	now       func() time.Time
}

// NewEntitlementService 创建一个新的 EntitlementService 实例。
func NewEntitlementService(userRepo repository.UserRepository, promoRepo repository.PromoCodeRepository, limits model.QuotaLimits) EntitlementService {
	return &entitlementService{
		userRepo:  userRepo,
		promoRepo: promoRepo,
		limits:    limits,
		now:       time.Now,
	}
}

// Snapshot 在单个事务内完成对账读：加锁读取、懒迁移、按需落盘。
func (s *entitlementService) Snapshot(ctx context.Context, userID int64) (*model.User, int, error) {
	now := s.now()
	user, err := s.userRepo.Mutate(ctx, userID, func(u *model.User) bool {
		return u.Reconcile(now)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to reconcile user %d: %w", userID, err)
	}
	return user, user.Remaining(s.limits), nil
}

// RemainingRequests 返回对账后的剩余请求数。
func (s *entitlementService) RemainingRequests(ctx context.Context, userID int64) (int, error) {
	_, remaining, err := s.Snapshot(ctx, userID)
	return remaining, err
}

// ConsumeRequest 在一次成功生成后消耗一个配额单位。
func (s *entitlementService) ConsumeRequest(ctx context.Context, userID int64) error {
	return s.userRepo.IncrementDailyRequests(ctx, userID)
}

// ChangePlan 是懒降级之外唯一合法的套餐变更路径。
func (s *entitlementService) ChangePlan(ctx context.Context, userID int64, plan string, days int) error {
	now := s.now()
	_, err := s.userRepo.Mutate(ctx, userID, func(u *model.User) bool {
		u.SetPlan(plan, days, now)
		return true
	})
	return err
}

// RedeemPromoCode 委托给仓储层的单事务兑换。
func (s *entitlementService) RedeemPromoCode(ctx context.Context, userID int64, code string) (*model.PromoCode, error) {
	return s.promoRepo.Redeem(ctx, userID, code, s.now())
}

// PlanSummary 生成 /start 与 /stats 展示用的套餐信息行。
func (s *entitlementService) PlanSummary(ctx context.Context, userID int64) (string, error) {
	user, remaining, err := s.Snapshot(ctx, userID)
	if err != nil {
		return "", err
	}

	now := s.now()
	switch user.Plan {
	case model.PlanVIP:
		return "💎 套餐：VIP（永久） | ∞ 次请求 ✨", nil
	case model.PlanPremium:
		days := int(user.PlanExpiresAt.Sub(now).Hours() / 24)
		return fmt.Sprintf("⭐ 套餐：PREMIUM（剩 %d 天） | ∞ 次请求", days), nil
	case model.PlanPro:
		days := int(user.PlanExpiresAt.Sub(now).Hours() / 24)
		return fmt.Sprintf("🔥 套餐：PRO（剩 %d 天） | %d/%d 次请求", days, remaining, s.limits.ProDaily), nil
	default:
		return fmt.Sprintf("🆓 套餐：FREE | %d/%d 次请求", remaining, s.limits.FreeDaily), nil
	}
}

// Limits 返回配置的每日限额。
func (s *entitlementService) Limits() model.QuotaLimits {
	return s.limits
}
