package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gembot-go/internal/config"
	"gembot-go/internal/model"
	"gembot-go/pkg/gemini"
)

// fakeGeneration 返回固定结果的 GenerationService。
type fakeGeneration struct {
	answer string
	err    error
	calls  int
}

func (g *fakeGeneration) Generate(ctx context.Context, message string, history []model.ChatMessage, plan string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

// fakeConvRepo 记录历史读写的 ConversationRepository。
type fakeConvRepo struct {
	history  []model.ChatMessage
	appends  int
	cleared  bool
	messages int64
}

func (r *fakeConvRepo) AppendExchange(ctx context.Context, userID int64, question, answer string) error {
	r.appends++
	r.history = append(r.history,
		model.ChatMessage{Role: model.RoleUser, Content: question},
		model.ChatMessage{Role: model.RoleAssistant, Content: answer},
	)
	return nil
}

func (r *fakeConvRepo) RecentHistory(ctx context.Context, userID int64, limit int) ([]model.ChatMessage, error) {
	return r.history, nil
}

func (r *fakeConvRepo) ClearHistory(ctx context.Context, userID int64) error {
	r.cleared = true
	r.history = nil
	return nil
}

func (r *fakeConvRepo) CountUserMessages(ctx context.Context, userID int64) (int64, error) {
	return r.messages, nil
}

var testChatCfg = config.ChatConfig{
	MaxHistory:        10,
	MaxQuestionLength: 2000,
	LowQuotaThreshold: 3,
	ChunkLimit:        4096,
}

type chatFixture struct {
	svc   ChatService
	users *fakeUserRepo
	conv  *fakeConvRepo
	gen   *fakeGeneration
	ent   *entitlementService
}

func newChatFixture(t *testing.T, now time.Time, user *model.User, gen *fakeGeneration) *chatFixture {
	t.Helper()
	var users *fakeUserRepo
	if user != nil {
		users = newFakeUserRepo(user)
	} else {
		users = newFakeUserRepo()
	}
	promos := newFakePromoRepo(users, &model.PromoCode{Code: "VIP-TEST", Kind: model.PromoKindVIP, UsesLeft: 1})
	ent := newTestEntitlement(users, promos, now)
	conv := &fakeConvRepo{}
	svc := NewChatService(users, conv, ent, gen, testChatCfg, config.PricingConfig{
		Pro30: 5, Pro90: 12, Premium30: 10, Premium90: 25, VIP: 50,
	})
	return &chatFixture{svc: svc, users: users, conv: conv, gen: gen, ent: ent}
}

func TestAskRequiresRegistration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newChatFixture(t, now, nil, &fakeGeneration{answer: "ok"})

	reply, err := f.svc.Ask(context.Background(), 42, "hello")

	require.NoError(t, err)
	require.Len(t, reply.Chunks, 1)
	assert.Contains(t, reply.Chunks[0], "/start")
	assert.Equal(t, 0, f.gen.calls)
}

func TestAskRejectsWhenQuotaExhausted(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{ID: 1, Plan: model.PlanFree, DailyRequests: 10, LastRequestDate: now.Format(model.DateLayout)}
	f := newChatFixture(t, now, user, &fakeGeneration{answer: "ok"})

	reply, err := f.svc.Ask(context.Background(), 1, "hello")

	require.NoError(t, err)
	require.Len(t, reply.Chunks, 1)
	assert.Contains(t, reply.Chunks[0], "额度已用完")
	assert.Equal(t, 0, f.gen.calls)
	assert.Equal(t, 0, f.conv.appends)
}

func TestAskRejectsOverlongQuestion(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{ID: 1, Plan: model.PlanFree, LastRequestDate: now.Format(model.DateLayout)}
	f := newChatFixture(t, now, user, &fakeGeneration{answer: "ok"})

	long := make([]rune, 2001)
	for i := range long {
		long[i] = '问'
	}
	reply, err := f.svc.Ask(context.Background(), 1, string(long))

	require.NoError(t, err)
	require.Len(t, reply.Chunks, 1)
	assert.Contains(t, reply.Chunks[0], "消息太长")
	assert.Equal(t, 0, f.gen.calls)
}

func TestAskSuccessConsumesQuotaAndSavesHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{ID: 1, Plan: model.PlanFree, DailyRequests: 2, LastRequestDate: now.Format(model.DateLayout)}
	f := newChatFixture(t, now, user, &fakeGeneration{answer: "这是回答"})

	reply, err := f.svc.Ask(context.Background(), 1, "这是问题")

	require.NoError(t, err)
	require.Len(t, reply.Chunks, 1)
	assert.Equal(t, "这是回答", reply.Chunks[0])
	assert.Equal(t, 1, f.conv.appends)
	assert.Equal(t, 3, user.DailyRequests)
	assert.Empty(t, reply.Notice)
}

func TestAskWarnsOnLowQuota(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// 消耗后剩 2，低于阈值 3
	user := &model.User{ID: 1, Plan: model.PlanFree, DailyRequests: 7, LastRequestDate: now.Format(model.DateLayout)}
	f := newChatFixture(t, now, user, &fakeGeneration{answer: "ok"})

	reply, err := f.svc.Ask(context.Background(), 1, "hello")

	require.NoError(t, err)
	assert.Equal(t, "⚠️ 今日剩余请求数：2", reply.Notice)
}

func TestAskSkipsConsumeForUnlimitedPlans(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{ID: 1, Plan: model.PlanVIP}
	f := newChatFixture(t, now, user, &fakeGeneration{answer: "ok"})

	reply, err := f.svc.Ask(context.Background(), 1, "hello")

	require.NoError(t, err)
	assert.Equal(t, 0, user.DailyRequests)
	assert.Empty(t, reply.Notice)
	assert.Equal(t, 1, f.conv.appends)
}

func TestAskGenerationFailureLeavesStateUntouched(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{ID: 1, Plan: model.PlanFree, DailyRequests: 2, LastRequestDate: now.Format(model.DateLayout)}
	gen := &fakeGeneration{err: &gemini.APIError{Kind: gemini.KindTimeout, Message: "deadline exceeded"}}
	f := newChatFixture(t, now, user, gen)

	reply, err := f.svc.Ask(context.Background(), 1, "hello")

	require.NoError(t, err)
	require.Len(t, reply.Chunks, 1)
	assert.Contains(t, reply.Chunks[0], "超时")
	// 失败不保存历史、不扣配额
	assert.Equal(t, 0, f.conv.appends)
	assert.Equal(t, 2, user.DailyRequests)
}

func TestApologyByErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", &gemini.APIError{Kind: gemini.KindRateLimited}, "限流"},
		{"model not found", &gemini.APIError{Kind: gemini.KindModelNotFound}, "模型不存在"},
		{"timeout", &gemini.APIError{Kind: gemini.KindTimeout}, "超时"},
		{"empty", &gemini.APIError{Kind: gemini.KindEmpty}, "没能生成回复"},
		{"unknown", assert.AnError, "多次尝试"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, apologyFor(tt.err), tt.want)
		})
	}
}

func TestRedeemPromoMessages(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{ID: 1, Plan: model.PlanFree, LastRequestDate: now.Format(model.DateLayout)}
	f := newChatFixture(t, now, user, &fakeGeneration{answer: "ok"})

	msg, err := f.svc.RedeemPromo(context.Background(), 1, "VIP-TEST")
	require.NoError(t, err)
	assert.Contains(t, msg, "兑换成功")
	assert.Contains(t, msg, "VIP")
	assert.Equal(t, model.PlanVIP, user.Plan)

	// 同一码第二次兑换
	msg, err = f.svc.RedeemPromo(context.Background(), 1, "VIP-TEST")
	require.NoError(t, err)
	assert.Contains(t, msg, "已经用过")

	// 不存在的码
	msg, err = f.svc.RedeemPromo(context.Background(), 1, "NOPE")
	require.NoError(t, err)
	assert.Contains(t, msg, "不存在")
}

func TestStart(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newChatFixture(t, now, nil, &fakeGeneration{answer: "ok"})

	msg, err := f.svc.Start(context.Background(), 7, "alice")

	require.NoError(t, err)
	assert.Contains(t, msg, "Gemini AI 助手")
	assert.Contains(t, msg, "套餐：FREE")

	u, err := f.users.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, model.PlanFree, u.Plan)
}

func TestStats(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{ID: 9, Plan: model.PlanFree, DailyRequests: 4, LastRequestDate: now.Format(model.DateLayout)}
	f := newChatFixture(t, now, user, &fakeGeneration{answer: "ok"})
	f.conv.messages = 17

	msg, err := f.svc.Stats(context.Background(), 9)

	require.NoError(t, err)
	assert.Contains(t, msg, "ID: 9")
	assert.Contains(t, msg, "消息数: 17")
	assert.Contains(t, msg, "今日剩余: 6")
}

func TestStatsUnlimitedPlanShowsInfinity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{ID: 9, Plan: model.PlanVIP}
	f := newChatFixture(t, now, user, &fakeGeneration{answer: "ok"})

	msg, err := f.svc.Stats(context.Background(), 9)

	require.NoError(t, err)
	assert.Contains(t, msg, "今日剩余: ∞")
}

func TestClearHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{ID: 1, Plan: model.PlanFree, LastRequestDate: now.Format(model.DateLayout)}
	f := newChatFixture(t, now, user, &fakeGeneration{answer: "ok"})

	msg, err := f.svc.ClearHistory(context.Background(), 1)

	require.NoError(t, err)
	assert.Contains(t, msg, "历史已清空")
	assert.True(t, f.conv.cleared)
}
