package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gembot-go/internal/model"
	"gembot-go/internal/service"
	"gembot-go/pkg/log"
)

// AdminHandler 负责处理管理端 API 请求。
type AdminHandler struct {
	adminService service.AdminService
	entitlement  service.EntitlementService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService, entitlement service.EntitlementService) *AdminHandler {
	return &AdminHandler{adminService: adminService, entitlement: entitlement}
}

// LoginRequest 定义了管理员登录 API 的请求体结构。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理管理员登录请求。
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：用户名和密码不能为空",
		})
		return
	}

	accessToken, err := h.adminService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "用户名或密码错误"})
			return
		}
		log.Errorf("Admin login failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "登录失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"accessToken": accessToken},
	})
}

// CreatePromoCodeRequest 定义了创建促销码 API 的请求体结构。
type CreatePromoCodeRequest struct {
	Kind     string `json:"kind" binding:"required"`
	Code     string `json:"code"`
	Days     int    `json:"days"`
	Requests int    `json:"requests"`
	Uses     int    `json:"uses"`
}

// CreatePromoCode 处理促销码创建请求。
func (h *AdminHandler) CreatePromoCode(c *gin.Context) {
	var req CreatePromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：kind 不能为空",
		})
		return
	}

	promo, err := h.adminService.CreatePromoCode(c.Request.Context(), req.Kind, req.Code, req.Days, req.Requests, req.Uses)
	if err != nil {
		log.Warnf("CreatePromoCode failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    promo,
	})
}

// ListPromoCodes 返回所有促销码。
func (h *AdminHandler) ListPromoCodes(c *gin.Context) {
	promos, err := h.adminService.ListPromoCodes(c.Request.Context())
	if err != nil {
		log.Errorf("ListPromoCodes failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    promos,
	})
}

// UpdateUserPlanRequest 定义了管理员变更用户套餐的请求体结构。
type UpdateUserPlanRequest struct {
	UserID int64  `json:"userId" binding:"required"`
	Plan   string `json:"plan" binding:"required"`
	Days   int    `json:"days"`
}

// UpdateUserPlan 由管理员直接为用户开通或调整套餐（线下收款后的发货动作）。
func (h *AdminHandler) UpdateUserPlan(c *gin.Context) {
	var req UpdateUserPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：userId 和 plan 不能为空",
		})
		return
	}

	switch req.Plan {
	case model.PlanFree, model.PlanPro, model.PlanPremium, model.PlanVIP:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "未知的套餐类型"})
		return
	}
	if (req.Plan == model.PlanPro || req.Plan == model.PlanPremium) && req.Days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "该套餐需要指定有效天数"})
		return
	}

	if err := h.entitlement.ChangePlan(c.Request.Context(), req.UserID, req.Plan, req.Days); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "用户不存在"})
			return
		}
		log.Errorf("UpdateUserPlan failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "套餐变更失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}

// ListUsers 分页列出用户。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	users, total, err := h.adminService.ListUsers(c.Request.Context(), page, size)
	if err != nil {
		log.Errorf("ListUsers failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"users": users,
			"total": total,
			"page":  page,
			"size":  size,
		},
	})
}
