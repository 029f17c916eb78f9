package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gembot-go/internal/model"
	"gembot-go/pkg/hash"
	"gembot-go/pkg/token"
)

type fakeAdminRepo struct {
	admins map[string]*model.Admin
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: make(map[string]*model.Admin)}
}

func (r *fakeAdminRepo) Create(ctx context.Context, admin *model.Admin) error {
	admin.ID = uint(len(r.admins) + 1)
	r.admins[admin.Username] = admin
	return nil
}

func (r *fakeAdminRepo) FindByUsername(ctx context.Context, username string) (*model.Admin, error) {
	a, ok := r.admins[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func newTestAdmin(t *testing.T) (AdminService, *fakeAdminRepo, *fakePromoRepo) {
	t.Helper()
	users := newFakeUserRepo()
	promos := newFakePromoRepo(users)
	admins := newFakeAdminRepo()
	jwtManager := token.NewJWTManager("test-secret", 24)
	return NewAdminService(admins, promos, users, jwtManager), admins, promos
}

func TestBootstrapIsIdempotent(t *testing.T) {
	svc, admins, _ := newTestAdmin(t)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, "admin", "secret"))
	require.Len(t, admins.admins, 1)

	a := admins.admins["admin"]
	assert.Equal(t, "ADMIN", a.Role)
	assert.NotEqual(t, "secret", a.Password)
	assert.True(t, hash.CheckPassword("secret", a.Password))

	// 再次引导不重复创建
	require.NoError(t, svc.Bootstrap(ctx, "admin", "other"))
	assert.Len(t, admins.admins, 1)
	assert.True(t, hash.CheckPassword("secret", admins.admins["admin"].Password))
}

func TestBootstrapSkipsWithoutCredentials(t *testing.T) {
	svc, admins, _ := newTestAdmin(t)

	require.NoError(t, svc.Bootstrap(context.Background(), "", ""))
	assert.Empty(t, admins.admins)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestAdmin(t)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, "admin", "secret"))

	t.Run("valid credentials", func(t *testing.T) {
		tok, err := svc.Login(ctx, "admin", "secret")
		require.NoError(t, err)
		assert.NotEmpty(t, tok)

		claims, err := token.NewJWTManager("test-secret", 24).VerifyToken(tok)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, "ADMIN", claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "admin", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody", "secret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestCreatePromoCodeValidation(t *testing.T) {
	svc, _, _ := newTestAdmin(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		kind     string
		days     int
		requests int
		wantErr  bool
	}{
		{"vip needs nothing", model.PromoKindVIP, 0, 0, false},
		{"premium needs days", model.PromoKindPremium, 0, 0, true},
		{"premium with days", model.PromoKindPremium, 30, 0, false},
		{"pro needs days", model.PromoKindPro, 0, 0, true},
		{"requests needs requests", model.PromoKindRequests, 0, 0, true},
		{"requests with amount", model.PromoKindRequests, 0, 50, false},
		{"unknown kind", "gold", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePromoCode(ctx, tt.kind, "", tt.days, tt.requests, 1)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreatePromoCodeGeneratesPrefixedCodes(t *testing.T) {
	svc, _, _ := newTestAdmin(t)
	ctx := context.Background()

	vip, err := svc.CreatePromoCode(ctx, model.PromoKindVIP, "", 0, 0, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(vip.Code, "VIP-"))
	// uses 未指定时默认为 1
	assert.Equal(t, 1, vip.UsesLeft)

	pro, err := svc.CreatePromoCode(ctx, model.PromoKindPro, "", 30, 0, 5)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pro.Code, "PRO-30-"))
	assert.Equal(t, 5, pro.UsesLeft)

	req, err := svc.CreatePromoCode(ctx, model.PromoKindRequests, "", 0, 50, 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(req.Code, "REQ-50-"))
}

func TestCreatePromoCodeUppercasesCustomCode(t *testing.T) {
	svc, _, promos := newTestAdmin(t)

	promo, err := svc.CreatePromoCode(context.Background(), model.PromoKindVIP, "summer-vip", 0, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, "SUMMER-VIP", promo.Code)

	stored, err := promos.FindByCode(context.Background(), "SUMMER-VIP")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.UsesLeft)
}
