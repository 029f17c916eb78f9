// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gembot-go/internal/service"
	"gembot-go/pkg/log"
	"gembot-go/pkg/textutil"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// BotHandler 是聊天传输边界：把入站文本命令转换为服务调用，
// 并把结果作为文本分块返回给同一用户。
type BotHandler struct {
	chatService service.ChatService
}

// NewBotHandler 创建一个新的 BotHandler 实例。
func NewBotHandler(chatService service.ChatService) *BotHandler {
	return &BotHandler{chatService: chatService}
}

// MessageRequest 定义了入站消息的请求体结构。
type MessageRequest struct {
	UserID   int64  `json:"userId" binding:"required"`
	Username string `json:"username"`
	Text     string `json:"text" binding:"required"`
}

// HandleMessage 处理一条入站消息（命令或普通文本）并同步返回回复分块。
func (h *BotHandler) HandleMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("HandleMessage: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：userId 和 text 不能为空",
		})
		return
	}

	reply := h.dispatch(c.Request.Context(), req.UserID, req.Username, req.Text)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    reply,
	})
}

// HandleWebSocket 处理 WebSocket 形式的传输：每个文本帧是一条用户消息，
// 回复以 JSON 帧写回。
func (h *BotHandler) HandleWebSocket(c *gin.Context) {
	var query struct {
		UserID   int64  `form:"user_id" binding:"required"`
		Username string `form:"username"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "user_id 不能为空"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket connected, user: %d", query.UserID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("Failed to read from WebSocket: %v", err)
			break
		}

		reply := h.dispatch(c.Request.Context(), query.UserID, query.Username, string(message))
		if err := conn.WriteJSON(gin.H{"type": "reply", "chunks": reply.Chunks, "notice": reply.Notice}); err != nil {
			// 格式化投递失败时降级为纯文本逐条下发，而不是丢弃消息
			log.Warnf("Failed to write formatted reply, falling back to plain text: %v", err)
			for _, chunk := range reply.Chunks {
				if werr := conn.WriteMessage(websocket.TextMessage, []byte(textutil.StripMarkdown(chunk))); werr != nil {
					log.Errorf("Failed to deliver reply chunk: %v", werr)
					return
				}
			}
		}
	}
}

// dispatch 解析命令并路由到对应的服务方法。
// 足球子命令通过纯提示词构造函数汇入统一的 Ask 入口。
func (h *BotHandler) dispatch(ctx context.Context, userID int64, username, text string) service.Reply {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return h.ask(ctx, userID, text)
	}

	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	argText := strings.Join(args, " ")

	switch cmd {
	case "/start":
		return h.textReply(h.chatService.Start(ctx, userID, username))

	case "/help":
		return service.Reply{Chunks: []string{h.chatService.HelpText()}}

	case "/upgrade":
		return service.Reply{Chunks: []string{h.chatService.UpgradeText()}}

	case "/football":
		return service.Reply{Chunks: []string{h.chatService.FootballText()}}

	case "/promo":
		if len(args) == 0 {
			return service.Reply{Chunks: []string{h.chatService.PromoHint()}}
		}
		return h.textReply(h.chatService.RedeemPromo(ctx, userID, args[0]))

	case "/stats":
		return h.textReply(h.chatService.Stats(ctx, userID))

	case "/clear":
		return h.textReply(h.chatService.ClearHistory(ctx, userID))

	case "/player":
		if len(args) == 0 {
			return service.Reply{Chunks: []string{"⚽ 用法：/player 梅西"}}
		}
		return h.ask(ctx, userID, service.PlayerPrompt(argText))

	case "/club":
		if len(args) == 0 {
			return service.Reply{Chunks: []string{"⚽ 用法：/club 皇家马德里"}}
		}
		return h.ask(ctx, userID, service.ClubPrompt(argText))

	case "/compare":
		a, b, ok := splitVersus(argText)
		if !ok {
			return service.Reply{Chunks: []string{"⚽ 用法：/compare 梅西 vs C罗"}}
		}
		return h.ask(ctx, userID, service.ComparePrompt(a, b))

	case "/match":
		if _, _, ok := splitVersus(argText); !ok {
			return service.Reply{Chunks: []string{"⚽ 用法：/match 皇马 vs 巴萨"}}
		}
		return h.ask(ctx, userID, service.MatchPrompt(argText))

	case "/predict":
		if len(args) == 0 {
			return service.Reply{Chunks: []string{"⚽ 用法：/predict 皇马 vs 巴萨"}}
		}
		return h.ask(ctx, userID, service.PredictPrompt(argText))

	default:
		return service.Reply{Chunks: []string{"❓ 未知命令，发送 /help 查看用法"}}
	}
}

func (h *BotHandler) ask(ctx context.Context, userID int64, text string) service.Reply {
	reply, err := h.chatService.Ask(ctx, userID, text)
	if err != nil {
		// 最外层兜底：未预期的失败也必须回复用户，进程不中断
		log.Errorf("Ask failed for user %d: %v", userID, err)
		return service.Reply{Chunks: []string{"😔 出错了。可以试试：\n1️⃣ /clear 清空历史\n2️⃣ 写短一点\n3️⃣ 等一分钟再试"}}
	}
	return reply
}

func (h *BotHandler) textReply(text string, err error) service.Reply {
	if err != nil {
		log.Errorf("Command failed: %v", err)
		return service.Reply{Chunks: []string{"😔 出错了，请稍后再试"}}
	}
	return service.Reply{Chunks: []string{text}}
}

// splitVersus 把 "A vs B" 形式的参数拆成两个非空部分。
func splitVersus(text string) (string, string, bool) {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, " vs ")
	if idx < 0 {
		return "", "", false
	}
	a := strings.TrimSpace(text[:idx])
	b := strings.TrimSpace(text[idx+4:])
	if a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}
