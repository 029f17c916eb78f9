// Package model 包含了应用的数据模型定义。
package model

import "time"

// 套餐档位。
const (
	PlanFree    = "free"
	PlanPro     = "pro"
	PlanPremium = "premium"
	PlanVIP     = "vip"
)

// UnlimitedRequests 是无限额套餐的剩余请求数哨兵值。
const UnlimitedRequests = 999999

// DateLayout 是每日计数器使用的日历日期格式（服务器本地时区）。
const DateLayout = "2006-01-02"

// QuotaLimits 汇总各受限套餐的每日请求上限。
type QuotaLimits struct {
	FreeDaily int
	ProDaily  int
}

// User 对应 'users' 表，记录外部身份、套餐与每日配额计数。
type User struct {
	// ID 是聊天端的稳定外部身份，直接作为主键。
	ID       int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username string `gorm:"type:varchar(255)" json:"username"`
	// Plan 取值 free / pro / premium / vip。
	Plan string `gorm:"type:varchar(16);not null;default:'free'" json:"plan"`
	// PlanExpiresAt 仅对 pro/premium 有意义；vip 与 free 恒为 NULL。
	PlanExpiresAt *time.Time `gorm:"index" json:"planExpiresAt"`
	// DailyRequests 为当日已计数的请求数；requests 类促销码兑换后可为负。
	DailyRequests int `gorm:"not null;default:0" json:"dailyRequests"`
	// LastRequestDate 为最后一次计数请求的日历日期，跨天时计数器懒重置。
	LastRequestDate string    `gorm:"type:varchar(10)" json:"lastRequestDate"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

// HasDailyCap 报告该用户的套餐是否受每日限额约束。
func (u *User) HasDailyCap() bool {
	return u.Plan == PlanFree || u.Plan == PlanPro
}

// PlanActive 报告 pro/premium 套餐是否仍在有效期内。
func (u *User) PlanActive(now time.Time) bool {
	return u.PlanExpiresAt != nil && u.PlanExpiresAt.After(now)
}

// SetPlan 变更套餐：vip 与 free 清空有效期，pro/premium 设置为 now+days。
// 除懒降级外，这是唯一合法的套餐/有效期变更入口。
func (u *User) SetPlan(plan string, days int, now time.Time) {
	switch plan {
	case PlanVIP:
		u.Plan = PlanVIP
		u.PlanExpiresAt = nil
	case PlanPro, PlanPremium:
		expires := now.AddDate(0, 0, days)
		u.Plan = plan
		u.PlanExpiresAt = &expires
	default:
		u.Plan = PlanFree
		u.PlanExpiresAt = nil
	}
}

// Reconcile 执行惰性状态迁移：过期的 pro/premium 降级为 free，
// 受限套餐跨天时重置每日计数器。返回用户数据是否发生变化。
// 同一天内重复调用是幂等的。
func (u *User) Reconcile(now time.Time) bool {
	changed := false

	if (u.Plan == PlanPro || u.Plan == PlanPremium) && !u.PlanActive(now) {
		u.SetPlan(PlanFree, 0, now)
		changed = true
	}

	if u.HasDailyCap() {
		today := now.Format(DateLayout)
		if u.LastRequestDate != today {
			u.DailyRequests = 0
			u.LastRequestDate = today
			changed = true
		}
	}

	return changed
}

// Remaining 计算剩余请求数。调用前必须先执行 Reconcile。
func (u *User) Remaining(limits QuotaLimits) int {
	switch u.Plan {
	case PlanVIP, PlanPremium:
		return UnlimitedRequests
	case PlanPro:
		return maxInt(0, limits.ProDaily-u.DailyRequests)
	default:
		return maxInt(0, limits.FreeDaily-u.DailyRequests)
	}
}

// DailyLimit 返回当前套餐的每日上限；无限额套餐返回哨兵值。
func (u *User) DailyLimit(limits QuotaLimits) int {
	switch u.Plan {
	case PlanPro:
		return limits.ProDaily
	case PlanFree:
		return limits.FreeDaily
	default:
		return UnlimitedRequests
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
