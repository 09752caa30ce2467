package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"douyin_copy_v1_202608/internal/config"
	"douyin_copy_v1_202608/internal/model"
	"douyin_copy_v1_202608/pkg/utils"
)

// ==================== 错误分类 ====================

// ErrorCategory 失败类别，前端据此决定提示语（限流提示稍后再试，网络提示检查连接）
type ErrorCategory string

const (
	ErrCategoryNetwork  ErrorCategory = "network"  // 连接、超时
	ErrCategoryQuota    ErrorCategory = "quota"    // 限流、配额耗尽
	ErrCategoryConfig   ErrorCategory = "config"   // 凭证缺失或无效，重试无意义
	ErrCategoryProvider ErrorCategory = "provider" // 服务端其它错误
	ErrCategoryCanceled ErrorCategory = "canceled" // 调用方取消
)

// GenerationError 所有回退尝试耗尽后的聚合错误，携带最后一次底层失败
type GenerationError struct {
	Category ErrorCategory
	Message  string
	Attempts int
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("API调用失败: %s", e.Message)
}

// ==================== Transport 接口 ====================

// TransportResult 单个通道的成功结果
type TransportResult struct {
	Text      string
	ModelName string
	Attempts  int // 该通道内部消耗的尝试次数
}

// Transport 一条生成通道。实现内部自带模型回退循环，
// 返回的 error 应为 *GenerationError 以便网关聚合分类
type Transport interface {
	Name() string
	Generate(ctx context.Context, input *GenerationInput) (*TransportResult, error)
}

// ==================== GatewayService ====================

// GatewayResult 网关成功结果，附带路由元信息供调用方记账
type GatewayResult struct {
	Text      string
	Transport string
	ModelName string
	Attempts  int
	Duration  time.Duration
}

// GatewayService 按序尝试各通道直到首个成功。
// 回退逻辑只写一处：通道列表声明式排序，循环即策略
type GatewayService struct {
	transports []Transport
}

// NewGatewayService 按配置组装通道：配置了中转端点时优先走中转，直连兜底；
// 否则仅直连
func NewGatewayService(cfg *config.AIConfig, prompt *PromptService) *GatewayService {
	var transports []Transport
	if cfg.RelayURL != "" {
		transports = append(transports, NewRelayTransport(cfg))
	}
	if cfg.APIKey != "" {
		transports = append(transports, NewDirectTransport(cfg, prompt))
	}
	return &GatewayService{transports: transports}
}

// NewGatewayServiceWithTransports 注入自定义通道，测试用
func NewGatewayServiceWithTransports(transports ...Transport) *GatewayService {
	return &GatewayService{transports: transports}
}

// Generate 依次尝试各通道，首个成功即返回。
// 凭证类错误与调用方取消立即终止，不再尝试后续通道；
// 全部失败时返回携带最后一次底层错误的聚合失败
func (s *GatewayService) Generate(ctx context.Context, input *GenerationInput) (*GatewayResult, error) {
	if len(s.transports) == 0 {
		return nil, &GenerationError{Category: ErrCategoryConfig, Message: "未配置任何生成通道"}
	}

	start := time.Now()
	totalAttempts := 0
	var lastErr *GenerationError

	for _, transport := range s.transports {
		result, err := transport.Generate(ctx, input)
		if err == nil {
			return &GatewayResult{
				Text:      result.Text,
				Transport: transport.Name(),
				ModelName: result.ModelName,
				Attempts:  totalAttempts + result.Attempts,
				Duration:  time.Since(start),
			}, nil
		}

		genErr := asGenerationError(err)
		totalAttempts += genErr.Attempts
		lastErr = genErr
		log.Printf("通道 %s 失败 [%s]: %s", transport.Name(), genErr.Category, genErr.Message)

		// 凭证错误换通道也救不回来，取消则立即退出
		if genErr.Category == ErrCategoryConfig || genErr.Category == ErrCategoryCanceled {
			break
		}
	}

	lastErr.Attempts = totalAttempts
	return nil, lastErr
}

// asGenerationError 统一包装通道错误
func asGenerationError(err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}
	return &GenerationError{Category: ErrCategoryProvider, Message: err.Error(), Attempts: 1}
}

// ==================== 中转通道 ====================

// relayResponse 中转端点响应契约
type relayResponse struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
	Error   string `json:"error"`
}

// relayRequest 中转端点请求体
type relayRequest struct {
	Content   string          `json:"content"`
	MediaData *relayMediaData `json:"mediaData"`
	History   []string        `json:"history"`
}

type relayMediaData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// RelayTransport 走内部中转端点的通道，模型回退循环在中转服务端执行
type RelayTransport struct {
	client   *resty.Client
	relayURL string
}

// NewRelayTransport 创建中转通道。回退策略由网关层控制，HTTP 层不重试
func NewRelayTransport(cfg *config.AIConfig) *RelayTransport {
	return &RelayTransport{
		client:   utils.NewHTTPClient(cfg.AttemptTimeout, cfg.ProxyURL),
		relayURL: cfg.RelayURL,
	}
}

// Name 通道名
func (t *RelayTransport) Name() string {
	return model.TransportRelay
}

// Generate 发起中转请求。success:false 与传输异常同等对待，
// 由网关落到下一个通道
func (t *RelayTransport) Generate(ctx context.Context, input *GenerationInput) (*TransportResult, error) {
	body := &relayRequest{
		Content: input.Content,
		History: input.History,
	}
	if input.Media != nil {
		body.MediaData = &relayMediaData{
			MimeType: input.Media.MimeType,
			Data:     input.Media.Data,
		}
	}

	req := t.client.R().
		SetContext(ctx).
		SetBody(body)
	if input.AuthToken != "" {
		req.SetAuthToken(input.AuthToken)
	}

	resp, err := req.Post(t.relayURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &GenerationError{Category: ErrCategoryCanceled, Message: ctx.Err().Error(), Attempts: 1}
		}
		return nil, &GenerationError{Category: ErrCategoryNetwork, Message: err.Error(), Attempts: 1}
	}

	// 手动解析响应体：中转端点不一定带规范的 Content-Type，
	// 不能依赖按响应头触发的自动反序列化
	var result relayResponse
	if jsonErr := json.Unmarshal(resp.Body(), &result); jsonErr != nil {
		result = relayResponse{}
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, &GenerationError{Category: ErrCategoryQuota, Message: relayErrorMessage(&result, resp), Attempts: 1}
	}
	if resp.IsError() || !result.Success {
		return nil, &GenerationError{Category: ErrCategoryProvider, Message: relayErrorMessage(&result, resp), Attempts: 1}
	}
	if result.Data == "" {
		return nil, &GenerationError{Category: ErrCategoryProvider, Message: "中转返回空结果", Attempts: 1}
	}

	return &TransportResult{Text: result.Data, ModelName: "relay", Attempts: 1}, nil
}

func relayErrorMessage(result *relayResponse, resp *resty.Response) string {
	if result.Error != "" {
		return result.Error
	}
	return fmt.Sprintf("中转端点错误 [%d]", resp.StatusCode())
}

// ==================== 直连通道 ====================

// DirectTransport 直连模型供应商的通道，内部按优先级遍历模型列表：
// 快而便宜的在前，逐级回退到更强的模型
type DirectTransport struct {
	cfg    *config.AIConfig
	prompt *PromptService

	// call 单次模型调用。默认为空走 genai SDK，测试可注入替身
	call func(ctx context.Context, modelName string, parts []genai.Part) (string, error)
}

// NewDirectTransport 创建直连通道
func NewDirectTransport(cfg *config.AIConfig, prompt *PromptService) *DirectTransport {
	return &DirectTransport{cfg: cfg, prompt: prompt}
}

// Name 通道名
func (t *DirectTransport) Name() string {
	return model.TransportDirect
}

// clientOptions 组装 SDK 连接参数，支持可选出口代理
func (t *DirectTransport) clientOptions() ([]option.ClientOption, error) {
	opts := []option.ClientOption{option.WithAPIKey(t.cfg.APIKey)}
	if t.cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(t.cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("代理地址无效: %w", err)
		}
		opts = append(opts, option.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}))
	}
	return opts, nil
}

// Generate 遍历模型列表，首个返回非空文本的模型胜出。
// 每次尝试有独立超时；全部失败返回最后一个底层错误
func (t *DirectTransport) Generate(ctx context.Context, input *GenerationInput) (*TransportResult, error) {
	parts, err := t.prompt.BuildParts(input)
	if err != nil {
		return nil, &GenerationError{Category: ErrCategoryProvider, Message: err.Error()}
	}

	caller := t.call
	if caller == nil {
		opts, err := t.clientOptions()
		if err != nil {
			return nil, &GenerationError{Category: ErrCategoryConfig, Message: err.Error()}
		}

		client, err := genai.NewClient(ctx, opts...)
		if err != nil {
			return nil, &GenerationError{Category: ErrCategoryConfig, Message: err.Error()}
		}
		defer client.Close()

		caller = func(ctx context.Context, modelName string, parts []genai.Part) (string, error) {
			return t.tryModel(ctx, client, modelName, parts)
		}
	}

	attempts := 0
	var lastErr *GenerationError

	for _, modelName := range t.cfg.Models {
		if ctx.Err() != nil {
			return nil, &GenerationError{Category: ErrCategoryCanceled, Message: ctx.Err().Error(), Attempts: attempts}
		}

		attempts++
		text, err := caller(ctx, modelName, parts)
		if err == nil {
			return &TransportResult{Text: text, ModelName: modelName, Attempts: attempts}, nil
		}

		lastErr = classifyDirectError(err)
		lastErr.Attempts = attempts
		log.Printf("模型 %s 失败: %s", modelName, lastErr.Message)

		if lastErr.Category == ErrCategoryConfig || lastErr.Category == ErrCategoryCanceled {
			return nil, lastErr
		}
	}

	if lastErr == nil {
		lastErr = &GenerationError{Category: ErrCategoryConfig, Message: "模型列表为空", Attempts: attempts}
	}
	return nil, lastErr
}

// tryModel 单次模型调用，带独立超时
func (t *DirectTransport) tryModel(ctx context.Context, client *genai.Client, modelName string, parts []genai.Part) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.cfg.AttemptTimeout)
	defer cancel()

	gm := client.GenerativeModel(modelName)
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(t.prompt.SystemInstruction())},
	}
	gm.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   t.prompt.ResponseSchema(),
		Temperature:      genai.Ptr[float32](t.cfg.Temperature),
	}

	resp, err := gm.GenerateContent(attemptCtx, parts...)
	if err != nil {
		return "", err
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("无生成结果")
	}
	return text, nil
}

// extractText 从候选结果中取首个文本分片
func extractText(resp *genai.GenerateContentResponse) string {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok && text != "" {
				return string(text)
			}
		}
	}
	return ""
}

// classifyDirectError 直连错误分类：
// 429 限流单独归类，401/403 视为凭证错误不再重试，取消原样透传
func classifyDirectError(err error) *GenerationError {
	if errors.Is(err, context.Canceled) {
		return &GenerationError{Category: ErrCategoryCanceled, Message: err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Category: ErrCategoryNetwork, Message: "请求超时"}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return &GenerationError{Category: ErrCategoryQuota, Message: apiErr.Message}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &GenerationError{Category: ErrCategoryConfig, Message: apiErr.Message}
		default:
			return &GenerationError{Category: ErrCategoryProvider, Message: apiErr.Message}
		}
	}

	return &GenerationError{Category: ErrCategoryNetwork, Message: err.Error()}
}
