package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"douyin_copy_v1_202608/internal/api/dto"
	"douyin_copy_v1_202608/internal/middleware"
	"douyin_copy_v1_202608/internal/service"
)

type CreditController struct {
	authService *service.AuthService
}

func NewCreditController(s *service.AuthService) *CreditController {
	return &CreditController{authService: s}
}

// Recharge
// @Summary 充值生成次数
// @Description 演示版充值：按预设套餐面额直接入账，未接真实支付
// @Tags Credit (次数模块)
// @Accept json
// @Produce json
// @Param body body dto.RechargeRequest true "充值套餐面额"
// @Success 200 {object} dto.RechargeResponse
// @Failure 400 {object} map[string]interface{} "无效套餐"
// @Router /api/recharge [post]
func (ctrl *CreditController) Recharge(c *gin.Context) {
	var req dto.RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "参数错误: " + err.Error()})
		return
	}

	credits, err := ctrl.authService.Recharge(c.Request.Context(), middleware.GetUserID(c), req.Amount)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPackage) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "充值失败，请重试"})
		return
	}

	c.JSON(http.StatusOK, &dto.RechargeResponse{
		Success: true,
		Credits: credits,
		Message: "充值成功",
	})
}

// Balance
// @Summary 查询余额
// @Description 查询当前用户剩余生成次数
// @Tags Credit (次数模块)
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/credits [get]
func (ctrl *CreditController) Balance(c *gin.Context) {
	user, err := ctrl.authService.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "用户不存在"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"credits": user.Credits,
	})
}
