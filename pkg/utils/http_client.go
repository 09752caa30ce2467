package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewHTTPClient 创建统一配置的 Resty 客户端，全系统出站 HTTP 的入口。
// proxyURL 不为空时挂载出口代理
func NewHTTPClient(timeout time.Duration, proxyURL string) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "douyin-copy/1.0").
		SetHeader("Content-Type", "application/json")

	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}

	return client
}
