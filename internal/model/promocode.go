package model

import "time"

// 促销码类型。
const (
	PromoKindVIP      = "vip"
	PromoKindPremium  = "premium"
	PromoKindPro      = "pro"
	PromoKindRequests = "requests"
)

// PromoCode 对应 'promo_codes' 表。码值在创建时统一大写，作为主键。
type PromoCode struct {
	Code string `gorm:"type:varchar(64);primaryKey" json:"code"`
	// Kind 取值 vip / premium / pro / requests。
	Kind string `gorm:"type:varchar(16);not null" json:"kind"`
	// Days 仅对 premium/pro 有意义。
	Days int `gorm:"not null;default:0" json:"days"`
	// Requests 仅对 requests 类型有意义，表示奖励的请求数。
	Requests int `gorm:"not null;default:0" json:"requests"`
	// UsesLeft 为剩余可兑换次数，减到 0 后该码永久失效。
	UsesLeft  int       `gorm:"not null;default:1" json:"usesLeft"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (PromoCode) TableName() string {
	return "promo_codes"
}

// Redemption 对应 'redemptions' 表，记录某用户已兑换某促销码。
// (UserID, Code) 复合主键保证同一用户对同一码至多兑换一次，
// 同时充当并发双提交下的兜底护栏。
type Redemption struct {
	UserID int64     `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	Code   string    `gorm:"type:varchar(64);primaryKey" json:"code"`
	UsedAt time.Time `gorm:"autoCreateTime" json:"usedAt"`
}

func (Redemption) TableName() string {
	return "redemptions"
}

// ApplyPromo 将促销码的效果施加到用户上。
// requests 类型直接从已用计数中扣减奖励值，允许计数变为负数，
// 从而让剩余请求数表现为“加量”；该负值会被下一次跨天懒重置清零。
func ApplyPromo(u *User, p *PromoCode, now time.Time) {
	switch p.Kind {
	case PromoKindVIP:
		u.SetPlan(PlanVIP, 0, now)
	case PromoKindPremium:
		u.SetPlan(PlanPremium, p.Days, now)
	case PromoKindPro:
		u.SetPlan(PlanPro, p.Days, now)
	case PromoKindRequests:
		u.DailyRequests -= p.Requests
	}
}
