package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"douyin_copy_v1_202608/internal/middleware"
	"douyin_copy_v1_202608/internal/model"
	"douyin_copy_v1_202608/internal/repository"
)

// ==================== 业务错误 ====================

var (
	// ErrGenerationBusy 同一用户已有生成请求在途
	ErrGenerationBusy = errors.New("已有生成任务进行中，请稍候")
)

// maxEvolutionHistory 历史文案上限。
// 前端会话内是只增不减的列表，不设上限提示词会无限膨胀，
// 这里只保留最近的 N 条
const maxEvolutionHistory = 50

// ==================== GenerateService ====================

// GenerateOutput 一次生成的完整产出
type GenerateOutput struct {
	RequestID string
	RawText   string
	Result    *model.GeneratedResult
	Credits   int // 扣减后的剩余次数
}

// GenerateService 生成编排：余额门禁 -> 并发守卫 -> 网关调用 ->
// 归一化 -> 扣减次数 -> 记录日志 -> 异步归档媒体
type GenerateService struct {
	userRepo repository.UserRepository
	logRepo  repository.GenerationLogRepository
	gateway  *GatewayService
	parser   *ParserService
	media    *MediaService // 可为 nil
	guard    *middleware.GenerationGuard
}

// NewGenerateService 创建生成服务
func NewGenerateService(
	userRepo repository.UserRepository,
	logRepo repository.GenerationLogRepository,
	gateway *GatewayService,
	parser *ParserService,
	media *MediaService,
	guard *middleware.GenerationGuard,
) *GenerateService {
	return &GenerateService{
		userRepo: userRepo,
		logRepo:  logRepo,
		gateway:  gateway,
		parser:   parser,
		media:    media,
		guard:    guard,
	}
}

// Generate 执行一次生成。
// 次数在调用前检查、在确认成功后才扣减：上游失败不消耗用户余额
func (s *GenerateService) Generate(ctx context.Context, userID int64, input *GenerationInput) (*GenerateOutput, error) {
	if !s.guard.TryAcquire(userID) {
		return nil, ErrGenerationBusy
	}
	defer s.guard.Release(userID)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Credits <= 0 {
		return nil, repository.ErrNoCredits
	}

	input.History = trimHistory(input.History)
	requestID := uuid.New().String()

	gwResult, err := s.gateway.Generate(ctx, input)
	if err != nil {
		s.recordFailure(userID, requestID, input, err)
		return nil, err
	}

	result := s.parser.Normalize(gwResult.Text)

	credits, err := s.userRepo.DeductCredit(ctx, userID)
	if err != nil {
		// 成功结果不因扣减竞态丢弃，余额按 0 返回
		log.Printf("扣减次数失败 user_id=%d: %v", userID, err)
		credits = 0
	}

	s.recordSuccess(userID, requestID, input, gwResult, result)

	if s.media != nil && input.Media != nil {
		s.media.ArchiveAsync(requestID, input.Media)
	}

	return &GenerateOutput{
		RequestID: requestID,
		RawText:   gwResult.Text,
		Result:    result,
		Credits:   credits,
	}, nil
}

// trimHistory 保留最近的 maxEvolutionHistory 条
func trimHistory(history []string) []string {
	if len(history) <= maxEvolutionHistory {
		return history
	}
	return history[len(history)-maxEvolutionHistory:]
}

// recordSuccess 记录成功日志。日志写失败只打日志，不影响返回
func (s *GenerateService) recordSuccess(userID int64, requestID string, input *GenerationInput, gwResult *GatewayResult, result *model.GeneratedResult) {
	snapshot, err := json.Marshal(result)
	if err != nil {
		snapshot = nil
	}

	entry := &model.GenerationLog{
		UserID:     userID,
		RequestID:  requestID,
		Transport:  gwResult.Transport,
		ModelName:  gwResult.ModelName,
		Attempts:   gwResult.Attempts,
		HasMedia:   input.Media != nil,
		DurationMs: gwResult.Duration.Milliseconds(),
		Status:     model.GenerationStatusSuccess,
		Result:     snapshot,
		Tags:       result.Tags,
	}
	s.persistLog(entry)
}

// recordFailure 记录失败日志
func (s *GenerateService) recordFailure(userID int64, requestID string, input *GenerationInput, err error) {
	entry := &model.GenerationLog{
		UserID:    userID,
		RequestID: requestID,
		HasMedia:  input.Media != nil,
		Status:    model.GenerationStatusFailed,
		ErrorMsg:  err.Error(),
	}

	var genErr *GenerationError
	if errors.As(err, &genErr) {
		entry.ErrorCategory = string(genErr.Category)
		entry.Attempts = genErr.Attempts
	}
	s.persistLog(entry)
}

// persistLog 独立超时写日志，请求取消也不丢记录
func (s *GenerateService) persistLog(entry *model.GenerationLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.logRepo.Create(ctx, entry); err != nil {
		log.Printf("生成日志写入失败 request_id=%s: %v", entry.RequestID, err)
	}
}

// GetUsage 查询用户用量统计
func (s *GenerateService) GetUsage(ctx context.Context, userID int64, startTime, endTime time.Time) (*repository.GenerationUsageStats, error) {
	return s.logRepo.GetUsageByUser(ctx, userID, startTime, endTime)
}
