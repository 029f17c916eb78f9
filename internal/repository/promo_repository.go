package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gembot-go/internal/model"
)

// 促销码兑换的终态失败结果，按先到先报的顺序检查，从不重试。
var (
	ErrCodeNotFound    = errors.New("promo code not found")
	ErrAlreadyRedeemed = errors.New("promo code already redeemed by this user")
	ErrCodeExhausted   = errors.New("promo code exhausted")
)

// PromoCodeRepository 定义了促销码的持久化操作。
type PromoCodeRepository interface {
	Create(ctx context.Context, promo *model.PromoCode) error
	FindByCode(ctx context.Context, code string) (*model.PromoCode, error)
	FindAll(ctx context.Context) ([]model.PromoCode, error)
	// Redeem 在单个事务内完成一次兑换：校验、施加效果、记录兑换、扣减次数。
	Redeem(ctx context.Context, userID int64, code string, now time.Time) (*model.PromoCode, error)
}

// promoCodeRepository 是 PromoCodeRepository 的 GORM 实现。
type promoCodeRepository struct {
	db *gorm.DB
}

// NewPromoCodeRepository 创建一个新的 PromoCodeRepository 实例。
func NewPromoCodeRepository(db *gorm.DB) PromoCodeRepository {
	return &promoCodeRepository{db: db}
}

// Create 写入一条新的促销码记录，码值统一大写。
func (r *promoCodeRepository) Create(ctx context.Context, promo *model.PromoCode) error {
	promo.Code = strings.ToUpper(promo.Code)
	return r.db.WithContext(ctx).Create(promo).Error
}

// FindByCode 按码值（大小写不敏感）查找促销码。
func (r *promoCodeRepository) FindByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	var promo model.PromoCode
	err := r.db.WithContext(ctx).First(&promo, "code = ?", strings.ToUpper(code)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &promo, nil
}

// FindAll 返回所有促销码记录。
func (r *promoCodeRepository) FindAll(ctx context.Context) ([]model.PromoCode, error) {
	var promos []model.PromoCode
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&promos).Error
	return promos, err
}

// Redeem 执行一次原子兑换。
// 三项前置校验按顺序执行，首个失败即返回：码存在 → 该用户未兑换过 → 剩余次数 > 0。
// 成功路径上的三个写入（施加效果、记录兑换、扣减次数）在同一事务内提交，
// 崩溃不会留下“已扣次数却无兑换记录”或相反的中间态。
func (r *promoCodeRepository) Redeem(ctx context.Context, userID int64, code string, now time.Time) (*model.PromoCode, error) {
	code = strings.ToUpper(code)
	var promo model.PromoCode

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁定促销码行，序列化同一码上的并发兑换
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&promo, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&model.Redemption{}).
			Where("user_id = ? AND code = ?", userID, code).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyRedeemed
		}

		if promo.UsesLeft <= 0 {
			return ErrCodeExhausted
		}

		// 施加效果到用户行
		var user model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			return err
		}
		model.ApplyPromo(&user, &promo, now)
		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		// 复合主键在双提交竞争下会触发重复键错误，归并为 AlreadyRedeemed
		if err := tx.Create(&model.Redemption{UserID: userID, Code: code, UsedAt: now}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyRedeemed
			}
			return err
		}

		if err := tx.Model(&model.PromoCode{}).
			Where("code = ?", code).
			UpdateColumn("uses_left", gorm.Expr("uses_left - 1")).Error; err != nil {
			return err
		}
		promo.UsesLeft--
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &promo, nil
}
