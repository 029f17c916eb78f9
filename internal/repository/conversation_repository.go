package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"gembot-go/internal/model"
	"gembot-go/pkg/log"
)

// 最近对话窗口在 Redis 中的保留时长。
const historyCacheTTL = 7 * 24 * time.Hour

// ConversationRepository 定义了对话历史记录的操作接口。
// MySQL 保存全量轮次，Redis 缓存最近窗口供生成上下文读取。
type ConversationRepository interface {
	// AppendExchange 在一次成功生成后追加一问一答两条轮次。
	AppendExchange(ctx context.Context, userID int64, question, answer string) error
	// RecentHistory 返回最近 limit 条消息，按时间正序。
	RecentHistory(ctx context.Context, userID int64, limit int) ([]model.ChatMessage, error)
	// ClearHistory 删除该用户的全部历史。
	ClearHistory(ctx context.Context, userID int64) error
	// CountUserMessages 返回该用户累计发送的消息数。
	CountUserMessages(ctx context.Context, userID int64) (int64, error)
}

type conversationRepository struct {
	db     *gorm.DB
	rdb    *redis.Client
	window int // Redis 窗口内保留的最大消息条数
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB, rdb *redis.Client, window int) ConversationRepository {
	if window <= 0 {
		window = 20
	}
	return &conversationRepository{db: db, rdb: rdb, window: window}
}

func historyKey(userID int64) string {
	return fmt.Sprintf("user:%d:history", userID)
}

// AppendExchange 事务性写入两条轮次，随后刷新 Redis 窗口。
func (r *conversationRepository) AppendExchange(ctx context.Context, userID int64, question, answer string) error {
	turns := []model.ConversationTurn{
		{UserID: userID, Role: model.RoleUser, Content: question},
		{UserID: userID, Role: model.RoleAssistant, Content: answer},
	}
	if err := r.db.WithContext(ctx).Create(&turns).Error; err != nil {
		return fmt.Errorf("failed to append conversation turns: %w", err)
	}

	// 缓存刷新失败只记日志，下一次读取会从 MySQL 重建窗口
	if err := r.refreshCache(ctx, userID, question, answer); err != nil {
		log.Warnf("Failed to refresh history cache for user %d: %v", userID, err)
	}
	return nil
}

func (r *conversationRepository) refreshCache(ctx context.Context, userID int64, question, answer string) error {
	key := historyKey(userID)
	messages, err := r.cachedHistory(ctx, key)
	if err != nil {
		if err != redis.Nil {
			return err
		}
		messages = []model.ChatMessage{}
	}

	now := time.Now()
	messages = append(messages,
		model.ChatMessage{Role: model.RoleUser, Content: question, Timestamp: now},
		model.ChatMessage{Role: model.RoleAssistant, Content: answer, Timestamp: now},
	)
	if len(messages) > r.window {
		messages = messages[len(messages)-r.window:]
	}

	jsonData, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, jsonData, historyCacheTTL).Err()
}

func (r *conversationRepository) cachedHistory(ctx context.Context, key string) ([]model.ChatMessage, error) {
	jsonData, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var messages []model.ChatMessage
	if err := json.Unmarshal([]byte(jsonData), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// RecentHistory 优先读 Redis 窗口，未命中时从 MySQL 重建并回填。
func (r *conversationRepository) RecentHistory(ctx context.Context, userID int64, limit int) ([]model.ChatMessage, error) {
	key := historyKey(userID)
	messages, err := r.cachedHistory(ctx, key)
	if err == nil {
		return tail(messages, limit), nil
	}
	if err != redis.Nil {
		log.Warnf("Failed to read history cache for user %d: %v", userID, err)
	}

	var turns []model.ConversationTurn
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(r.window).
		Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	// 倒序查询结果翻转为时间正序
	messages = make([]model.ChatMessage, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		messages = append(messages, model.ChatMessage{
			Role:      turns[i].Role,
			Content:   turns[i].Content,
			Timestamp: turns[i].CreatedAt,
		})
	}

	if jsonData, err := json.Marshal(messages); err == nil {
		if err := r.rdb.Set(ctx, key, jsonData, historyCacheTTL).Err(); err != nil {
			log.Warnf("Failed to backfill history cache for user %d: %v", userID, err)
		}
	}

	return tail(messages, limit), nil
}

// ClearHistory 删除 MySQL 中的全部轮次并失效 Redis 窗口。
func (r *conversationRepository) ClearHistory(ctx context.Context, userID int64) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.ConversationTurn{}).Error; err != nil {
		return fmt.Errorf("failed to clear conversation history: %w", err)
	}
	if err := r.rdb.Del(ctx, historyKey(userID)).Err(); err != nil {
		log.Warnf("Failed to invalidate history cache for user %d: %v", userID, err)
	}
	return nil
}

// CountUserMessages 统计该用户发送过的消息总数。
func (r *conversationRepository) CountUserMessages(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.ConversationTurn{}).
		Where("user_id = ? AND role = ?", userID, model.RoleUser).
		Count(&total).Error
	return total, err
}

func tail(messages []model.ChatMessage, limit int) []model.ChatMessage {
	if limit > 0 && len(messages) > limit {
		return messages[len(messages)-limit:]
	}
	return messages
}
