package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"douyin_copy_v1_202608/internal/api/dto"
	"douyin_copy_v1_202608/internal/middleware"
	"douyin_copy_v1_202608/internal/repository"
	"douyin_copy_v1_202608/internal/service"
)

type GenerateController struct {
	generateService *service.GenerateService
}

func NewGenerateController(s *service.GenerateService) *GenerateController {
	return &GenerateController{generateService: s}
}

// Generate
// @Summary 生成爆款文案
// @Description 根据文字/媒体输入生成 3 套文案方案，成功扣减一次
// @Tags Generate (生成模块)
// @Accept json
// @Produce json
// @Param body body dto.GenerateRequest true "生成请求"
// @Success 200 {object} dto.GenerateResponse
// @Failure 402 {object} map[string]interface{} "剩余次数不足"
// @Failure 429 {object} map[string]interface{} "请求在途/限流"
// @Router /api/generate [post]
func (ctrl *GenerateController) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "参数错误: " + err.Error()})
		return
	}
	if req.Content == "" && req.MediaData == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "请输入内容或上传媒体"})
		return
	}

	input := &service.GenerationInput{
		Content:   req.Content,
		History:   req.History,
		AuthToken: middleware.GetToken(c),
	}
	if req.MediaData != nil {
		input.Media = &service.MediaPayload{
			MimeType: req.MediaData.MimeType,
			Data:     req.MediaData.Data,
		}
	}

	output, err := ctrl.generateService.Generate(c.Request.Context(), middleware.GetUserID(c), input)
	if err != nil {
		respondGenerateError(c, err)
		return
	}

	c.JSON(http.StatusOK, &dto.GenerateResponse{
		Success: true,
		Data:    output.RawText,
		Result:  output.Result,
		Credits: output.Credits,
	})
}

// Usage
// @Summary 用量统计
// @Description 查询当前用户最近 N 天的生成用量
// @Tags Generate (生成模块)
// @Produce json
// @Param days query int false "统计天数，默认 30"
// @Success 200 {object} map[string]interface{}
// @Router /api/usage [get]
func (ctrl *GenerateController) Usage(c *gin.Context) {
	days := 30
	if v, err := strconv.Atoi(c.Query("days")); err == nil && v > 0 && v <= 365 {
		days = v
	}

	endTime := time.Now()
	startTime := endTime.AddDate(0, 0, -days)

	stats, err := ctrl.generateService.GetUsage(c.Request.Context(), middleware.GetUserID(c), startTime, endTime)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "查询失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"days":    days,
		"stats":   stats,
	})
}

// respondGenerateError 生成错误映射：按失败类别给出用户可读提示
func respondGenerateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGenerationBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": err.Error()})
		return
	case errors.Is(err, repository.ErrNoCredits):
		c.JSON(http.StatusPaymentRequired, gin.H{"success": false, "error": err.Error()})
		return
	}

	var genErr *service.GenerationError
	if errors.As(err, &genErr) {
		switch genErr.Category {
		case service.ErrCategoryQuota:
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "请求过于频繁，请稍后再试"})
		case service.ErrCategoryNetwork:
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "网络连接异常，请检查网络后重试"})
		case service.ErrCategoryConfig:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "服务配置异常，请联系管理员"})
		case service.ErrCategoryCanceled:
			// 客户端已断开，写啥都到不了，状态码留给访问日志
			c.JSON(499, gin.H{"success": false, "error": "请求已取消"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "生成失败，请重试"})
		}
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "生成失败，请重试"})
}
