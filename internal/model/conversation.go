package model

import "time"

// 对话角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 代表缓存在 Redis 窗口中的单条对话消息。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationTurn 对应 'conversation_turns' 表，持久化单条对话消息。
// 仅在生成成功后追加写入，从不修改；自增主键提供读取时的单调顺序。
type ConversationTurn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"userId"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}
