package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"gorm.io/gorm"

	"gembot-go/internal/config"
	"gembot-go/internal/model"
	"gembot-go/internal/repository"
	"gembot-go/pkg/gemini"
	"gembot-go/pkg/log"
	"gembot-go/pkg/textutil"
)

// Reply 是一次消息处理的结果：已按传输层限制分块的正文，
// 以及可选的附加提示（如低配额预警）。
type Reply struct {
	Chunks []string `json:"chunks"`
	Notice string   `json:"notice,omitempty"`
}

// ChatService 是消息处理的统一入口，编排配额检查、历史装配、
// 生成调用与落盘消耗。
type ChatService interface {
	// Start 幂等地登记用户并返回欢迎菜单。
	Start(ctx context.Context, userID int64, username string) (string, error)
	// Ask 处理一条对话消息：检查 → 生成 → 成功后落盘并消耗配额。
	Ask(ctx context.Context, userID int64, text string) (Reply, error)
	// RedeemPromo 兑换促销码并返回展示文案。
	RedeemPromo(ctx context.Context, userID int64, code string) (string, error)
	// Stats 返回用户统计信息。
	Stats(ctx context.Context, userID int64) (string, error)
	// ClearHistory 清空用户的对话历史。
	ClearHistory(ctx context.Context, userID int64) (string, error)
	// 静态菜单文案。
	HelpText() string
	UpgradeText() string
	FootballText() string
	PromoHint() string
}

type chatService struct {
	userRepo    repository.UserRepository
	convRepo    repository.ConversationRepository
	entitlement EntitlementService
	generation  GenerationService
	chatCfg     config.ChatConfig
	pricing     config.PricingConfig
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	userRepo repository.UserRepository,
	convRepo repository.ConversationRepository,
	entitlement EntitlementService,
	generation GenerationService,
	chatCfg config.ChatConfig,
	pricing config.PricingConfig,
) ChatService {
	return &chatService{
		userRepo:    userRepo,
		convRepo:    convRepo,
		entitlement: entitlement,
		generation:  generation,
		chatCfg:     chatCfg,
		pricing:     pricing,
	}
}

// Start 登记用户并返回带套餐信息的欢迎菜单。
func (s *chatService) Start(ctx context.Context, userID int64, username string) (string, error) {
	if username == "" {
		username = "Unknown"
	}
	if _, err := s.userRepo.GetOrCreate(ctx, userID, username); err != nil {
		return "", fmt.Errorf("failed to register user %d: %w", userID, err)
	}

	planInfo, err := s.entitlement.PlanSummary(ctx, userID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`👋 你好！我是 Gemini AI 助手

%s

💬 直接发消息即可对话！
⚽ 也可以聊足球！

🔧 命令：
/player [姓名] - 球员数据
/club [名称] - 俱乐部信息
/compare [球员1] vs [球员2]
/match [球队1] vs [球队2]
/predict [比赛] - 赛果预测
/promo [码] - 兑换促销码
/stats - 我的统计
/clear - 清空历史
/help - 帮助`, planInfo), nil
}

// Ask 处理一条对话消息。
// 顺序刻意为：检查配额 → 调用后端 → 成功后保存历史 → 消耗配额。
// 生成失败不保存历史也不扣配额；生成期间不持有任何存储事务。
func (s *chatService) Ask(ctx context.Context, userID int64, text string) (Reply, error) {
	user, remaining, err := s.entitlement.Snapshot(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Reply{Chunks: []string{"⚠️ 请先发送 /start"}}, nil
		}
		return Reply{}, err
	}
	if remaining <= 0 {
		return Reply{Chunks: []string{"❌ 今日额度已用完！发送 /upgrade 解锁无限请求"}}, nil
	}

	if utf8.RuneCountInString(text) > s.chatCfg.MaxQuestionLength {
		return Reply{Chunks: []string{fmt.Sprintf(
			"⚠️ 消息太长了！\n请控制在 %d 字以内再试一次 📝", s.chatCfg.MaxQuestionLength)}}, nil
	}

	history, err := s.convRepo.RecentHistory(ctx, userID, s.chatCfg.MaxHistory)
	if err != nil {
		log.Errorf("Failed to load conversation history: %v", err)
		history = []model.ChatMessage{}
	}

	answer, err := s.generation.Generate(ctx, text, history, user.Plan)
	if err != nil {
		// 分类失败已在网关内解析完毕，这里只做文案映射；历史与配额保持不变。
		log.Warnf("Generation failed for user %d: %v", userID, err)
		return Reply{Chunks: []string{apologyFor(err)}}, nil
	}

	chunks := textutil.SplitMessage(answer, s.chatCfg.ChunkLimit)

	// 历史只记录成功的交互
	if err := s.convRepo.AppendExchange(ctx, userID, text, answer); err != nil {
		log.Errorf("Failed to save conversation history for user %d: %v", userID, err)
	}

	var notice string
	if user.HasDailyCap() {
		if err := s.entitlement.ConsumeRequest(ctx, userID); err != nil {
			log.Errorf("Failed to consume request for user %d: %v", userID, err)
		} else if left, err := s.entitlement.RemainingRequests(ctx, userID); err == nil {
			if left > 0 && left <= s.chatCfg.LowQuotaThreshold {
				notice = fmt.Sprintf("⚠️ 今日剩余请求数：%d", left)
			}
		}
	}

	return Reply{Chunks: chunks, Notice: notice}, nil
}

// apologyFor 把分类后的生成失败映射为用户可读的致歉文案。
func apologyFor(err error) string {
	switch gemini.ClassifyError(err) {
	case gemini.KindRateLimited:
		return "😔 后端请求被限流了，请一分钟后再试！⏰"
	case gemini.KindModelNotFound:
		return "😔 配置的模型不存在，请联系管理员检查配置！"
	case gemini.KindTimeout:
		return "😔 等待超时。试试 /clear 清空历史，或者写短一点！"
	case gemini.KindEmpty:
		return "😔 没能生成回复。试试 /clear 之后再发一次！"
	default:
		return "😔 多次尝试后仍然失败。可以试试：\n1️⃣ /clear 清空历史\n2️⃣ 写短一点\n3️⃣ 等一分钟再试"
	}
}

// RedeemPromo 兑换促销码并返回结果文案。兑换失败是终态，原样上报。
func (s *chatService) RedeemPromo(ctx context.Context, userID int64, code string) (string, error) {
	promo, err := s.entitlement.RedeemPromoCode(ctx, userID, code)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCodeNotFound):
			return "❌ 促销码不存在", nil
		case errors.Is(err, repository.ErrAlreadyRedeemed):
			return "❌ 该促销码你已经用过了", nil
		case errors.Is(err, repository.ErrCodeExhausted):
			return "❌ 促销码已被兑完", nil
		default:
			return "", fmt.Errorf("failed to redeem promo code: %w", err)
		}
	}

	msg := "🎉 促销码兑换成功！\n\n"
	switch promo.Kind {
	case model.PromoKindVIP:
		msg += "💎 VIP 永久生效"
	case model.PromoKindPremium:
		msg += fmt.Sprintf("⭐ Premium %d 天", promo.Days)
	case model.PromoKindPro:
		msg += fmt.Sprintf("🔥 PRO %d 天", promo.Days)
	case model.PromoKindRequests:
		msg += fmt.Sprintf("📊 +%d 次请求", promo.Requests)
	}
	return msg, nil
}

// Stats 汇总用户的套餐、消息数与剩余额度。
func (s *chatService) Stats(ctx context.Context, userID int64) (string, error) {
	user, remaining, err := s.entitlement.Snapshot(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "⚠️ 请先发送 /start", nil
		}
		return "", err
	}

	total, err := s.convRepo.CountUserMessages(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to count messages: %w", err)
	}

	remainingText := "∞"
	if user.HasDailyCap() {
		remainingText = fmt.Sprintf("%d", remaining)
	}

	return fmt.Sprintf(`📊 我的统计

👤 ID: %d
📝 套餐: %s
💬 消息数: %d
📊 今日剩余: %s`, user.ID, user.Plan, total, remainingText), nil
}

// ClearHistory 清空历史并返回确认文案。
func (s *chatService) ClearHistory(ctx context.Context, userID int64) (string, error) {
	if err := s.convRepo.ClearHistory(ctx, userID); err != nil {
		return "", err
	}
	log.Infof("History cleared for user %d", userID)
	return "🗑️ 历史已清空！", nil
}

// HelpText 返回帮助菜单。
func (s *chatService) HelpText() string {
	return `ℹ️ 帮助

🔧 命令：
/start - 主菜单
/promo [码] - 兑换促销码
/upgrade - 查看套餐
/stats - 我的统计
/clear - 清空历史

⚽ 足球：
/player [姓名]
/club [名称]
/compare [A] vs [B]
/match [A] vs [B]
/predict [比赛]

💬 其他内容直接发消息即可！`
}

// UpgradeText 返回套餐购买菜单（购买由管理员线下处理）。
func (s *chatService) UpgradeText() string {
	return fmt.Sprintf(`💰 套餐价目

🆓 FREE
• 每天 10 次请求

🔥 PRO
• 每天 20 次请求
• 30 天 $%d / 90 天 $%d

⭐ PREMIUM
• ♾️ 无限请求
• 30 天 $%d / 90 天 $%d

💎 VIP（最划算！）
• Premium 全部内容
• ⏰ 永久有效
• $%d

💳 购买请联系管理员，或使用促销码：/promo [码]`,
		s.pricing.Pro30, s.pricing.Pro90,
		s.pricing.Premium30, s.pricing.Premium90,
		s.pricing.VIP)
}

// FootballText 返回足球命令菜单。
func (s *chatService) FootballText() string {
	return `⚽ 足球命令

/player [姓名] - 球员数据
/club [名称] - 俱乐部信息
/compare [球员1] vs [球员2]
/match [球队1] vs [球队2]
/predict [比赛] - 赛果预测

示例：
/player 梅西
/compare 梅西 vs C罗
/predict 皇马 vs 巴萨`
}

// PromoHint 返回促销码用法提示。
func (s *chatService) PromoHint() string {
	return "🎁 用法：/promo 促销码"
}
