package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"douyin_copy_v1_202608/internal/middleware"
	"douyin_copy_v1_202608/internal/model"
	"douyin_copy_v1_202608/internal/repository"
)

// ==================== 业务错误 ====================

var (
	ErrEmailTaken         = errors.New("该邮箱已注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserDisabled       = errors.New("账号已停用")
	ErrInvalidPackage     = errors.New("无效的充值套餐")
)

// rechargePackages 充值套餐：面额（元）-> 次数
var rechargePackages = map[int]int{
	10:  100,
	30:  350,
	50:  600,
	100: 1300,
}

// ==================== AuthService ====================

// AuthService 注册、登录、Token 校验与充值
type AuthService struct {
	userRepo repository.UserRepository
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// AuthResult 认证结果
type AuthResult struct {
	Token string
	User  *model.User
}

// Register 注册新用户，赠送初始生成次数并直接签发 Token
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &model.User{
		Email:    email,
		Password: string(hash),
		Credits:  model.InitialCredits,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := middleware.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Login 邮箱密码登录。邮箱不存在与密码错误返回同一个错误，不泄露注册状态
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}

	token, err := middleware.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Verify 校验 Token 并返回最新用户状态，用于页面加载时恢复会话
func (s *AuthService) Verify(ctx context.Context, token string) (*model.User, error) {
	claims, err := middleware.ParseToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	return user, nil
}

// Recharge 充值（演示实现，未接入真实支付）。
// 只接受预设套餐面额，返回充值后的余额
func (s *AuthService) Recharge(ctx context.Context, userID int64, amount int) (int, error) {
	credits, ok := rechargePackages[amount]
	if !ok {
		return 0, ErrInvalidPackage
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, ErrUserNotFound
	}

	return s.userRepo.AddCredits(ctx, userID, credits)
}

// GetUser 查询用户
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
