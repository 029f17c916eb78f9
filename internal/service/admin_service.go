package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"

	"gembot-go/internal/model"
	"gembot-go/internal/repository"
	"gembot-go/pkg/hash"
	"gembot-go/pkg/log"
	"gembot-go/pkg/token"
)

// ErrInvalidCredentials 表示管理员登录凭据无效。
var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminService 定义了管理端的业务操作：登录与促销码铸造。
type AdminService interface {
	// Bootstrap 确保配置中的管理员账号存在（幂等）。
	Bootstrap(ctx context.Context, username, password string) error
	// Login 校验凭据并签发 access token。
	Login(ctx context.Context, username, password string) (string, error)
	// CreatePromoCode 创建一个促销码；code 为空时自动生成。
	CreatePromoCode(ctx context.Context, kind, code string, days, requests, uses int) (*model.PromoCode, error)
	ListPromoCodes(ctx context.Context) ([]model.PromoCode, error)
	ListUsers(ctx context.Context, page, size int) ([]model.User, int64, error)
}

type adminService struct {
	adminRepo  repository.AdminRepository
	promoRepo  repository.PromoCodeRepository
	userRepo   repository.UserRepository
	jwtManager *token.JWTManager
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(adminRepo repository.AdminRepository, promoRepo repository.PromoCodeRepository, userRepo repository.UserRepository, jwtManager *token.JWTManager) AdminService {
	return &adminService{
		adminRepo:  adminRepo,
		promoRepo:  promoRepo,
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

// Bootstrap 在启动时引导写入配置的管理员账号。
func (s *adminService) Bootstrap(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		log.Warnf("Admin bootstrap skipped: no credentials configured")
		return nil
	}

	_, err := s.adminRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := s.adminRepo.Create(ctx, &model.Admin{
		Username: username,
		Password: hashed,
		Role:     "ADMIN",
	}); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	log.Infof("Admin account '%s' bootstrapped", username)
	return nil
}

// Login 校验管理员凭据并签发 JWT。
func (s *adminService) Login(ctx context.Context, username, password string) (string, error) {
	admin, err := s.adminRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !hash.CheckPassword(password, admin.Password) {
		return "", ErrInvalidCredentials
	}
	return s.jwtManager.GenerateToken(admin.ID, admin.Username, admin.Role)
}

// CreatePromoCode 校验参数并写入促销码；码值统一大写，唯一性由主键保证。
func (s *adminService) CreatePromoCode(ctx context.Context, kind, code string, days, requests, uses int) (*model.PromoCode, error) {
	switch kind {
	case model.PromoKindVIP:
		// 无附加参数
	case model.PromoKindPremium, model.PromoKindPro:
		if days <= 0 {
			return nil, fmt.Errorf("kind %q requires a positive days value", kind)
		}
	case model.PromoKindRequests:
		if requests <= 0 {
			return nil, fmt.Errorf("kind %q requires a positive requests value", kind)
		}
	default:
		return nil, fmt.Errorf("unknown promo kind %q", kind)
	}
	if uses <= 0 {
		uses = 1
	}

	if code == "" {
		code = generateCode(kind, days, requests)
	}

	promo := &model.PromoCode{
		Code:     strings.ToUpper(code),
		Kind:     kind,
		Days:     days,
		Requests: requests,
		UsesLeft: uses,
	}
	if err := s.promoRepo.Create(ctx, promo); err != nil {
		return nil, fmt.Errorf("failed to create promo code: %w", err)
	}

	log.Infof("Promo code created: %s (kind=%s, uses=%d)", promo.Code, kind, uses)
	return promo, nil
}

// ListPromoCodes 返回所有促销码。
func (s *adminService) ListPromoCodes(ctx context.Context) ([]model.PromoCode, error) {
	return s.promoRepo.FindAll(ctx)
}

// ListUsers 分页列出用户。
func (s *adminService) ListUsers(ctx context.Context, page, size int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return s.userRepo.FindWithPagination(ctx, (page-1)*size, size)
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateCode 按类型生成带前缀的随机促销码。
func generateCode(kind string, days, requests int) string {
	switch kind {
	case model.PromoKindVIP:
		return "VIP-" + randomCode(6)
	case model.PromoKindPremium:
		return fmt.Sprintf("PREMIUM-%d-%s", days, randomCode(4))
	case model.PromoKindPro:
		return fmt.Sprintf("PRO-%d-%s", days, randomCode(4))
	default:
		return fmt.Sprintf("REQ-%d-%s", requests, randomCode(4))
	}
}

func randomCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return fmt.Sprintf("F%d", time.Now().UnixNano())
		}
		b[i] = codeCharset[n.Int64()]
	}
	return string(b)
}
