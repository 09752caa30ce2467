package dto

import "douyin_copy_v1_202608/internal/model"

// ==================== 生成 ====================

// MediaData 内联媒体：mime 类型 + base64 数据
type MediaData struct {
	MimeType string `json:"mimeType" binding:"required"`
	Data     string `json:"data" binding:"required"`
}

// GenerateRequest 生成请求，与中转端点的报文格式一致
type GenerateRequest struct {
	Content   string     `json:"content"`
	MediaData *MediaData `json:"mediaData"`
	History   []string   `json:"history"`
}

// GenerateResponse 生成响应：原始文本 + 归一化结果 + 剩余次数
type GenerateResponse struct {
	Success bool                   `json:"success"`
	Data    string                 `json:"data"`
	Result  *model.GeneratedResult `json:"result"`
	Credits int                    `json:"credits"`
}
