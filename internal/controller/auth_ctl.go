package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"douyin_copy_v1_202608/internal/api/dto"
	"douyin_copy_v1_202608/internal/model"
	"douyin_copy_v1_202608/internal/service"
)

type AuthController struct {
	authService *service.AuthService
}

func NewAuthController(s *service.AuthService) *AuthController {
	return &AuthController{authService: s}
}

// Register
// @Summary 注册
// @Description 邮箱注册，赠送初始生成次数并直接登录
// @Tags Auth (认证模块)
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} map[string]interface{} "参数错误/邮箱已注册"
// @Router /api/auth/register [post]
func (ctrl *AuthController) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "参数错误: " + err.Error()})
		return
	}

	result, err := ctrl.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "注册失败，请重试"})
		return
	}

	c.JSON(http.StatusOK, authResponse(result.Token, result.User))
}

// Login
// @Summary 登录
// @Description 邮箱密码登录，返回 7 天有效的 Token
// @Tags Auth (认证模块)
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} map[string]interface{} "邮箱或密码错误"
// @Router /api/auth/login [post]
func (ctrl *AuthController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "参数错误: " + err.Error()})
		return
	}

	result, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, service.ErrUserDisabled):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "登录失败，请重试"})
		}
		return
	}

	c.JSON(http.StatusOK, authResponse(result.Token, result.User))
}

// Verify
// @Summary 校验 Token
// @Description 页面加载时校验 Token 有效性并返回最新用户状态
// @Tags Auth (认证模块)
// @Accept json
// @Produce json
// @Param body body dto.VerifyRequest true "Token"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} map[string]interface{} "Token 无效或已过期"
// @Router /api/auth/verify [post]
func (ctrl *AuthController) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "参数错误: " + err.Error()})
		return
	}

	user, err := ctrl.authService.Verify(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Token 无效或已过期"})
		return
	}

	c.JSON(http.StatusOK, authResponse("", user))
}

// authResponse 组装认证响应
func authResponse(token string, user *model.User) *dto.AuthResponse {
	return &dto.AuthResponse{
		Success: true,
		Token:   token,
		User: &dto.UserInfo{
			ID:      user.ID,
			Email:   user.Email,
			Credits: user.Credits,
		},
	}
}
