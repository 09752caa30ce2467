package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"douyin_copy_v1_202608/internal/middleware"
	"douyin_copy_v1_202608/internal/model"
	"douyin_copy_v1_202608/internal/repository"
)

// ==================== 测试仓库 ====================

type fakeUserRepo struct {
	users       map[int64]*model.User
	deductCalls int
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	m := make(map[int64]*model.User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = int64(len(r.users) + 1)
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := r.GetByEmail(ctx, email)
	return u != nil, nil
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, id int64) error { return nil }

func (r *fakeUserRepo) AddCredits(ctx context.Context, id int64, amount int) (int, error) {
	r.users[id].Credits += amount
	return r.users[id].Credits, nil
}

func (r *fakeUserRepo) DeductCredit(ctx context.Context, id int64) (int, error) {
	r.deductCalls++
	u := r.users[id]
	if u.Credits <= 0 {
		return 0, repository.ErrNoCredits
	}
	u.Credits--
	return u.Credits, nil
}

type fakeLogRepo struct {
	entries []*model.GenerationLog
}

func (r *fakeLogRepo) Create(ctx context.Context, log *model.GenerationLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func (r *fakeLogRepo) GetByRequestID(ctx context.Context, requestID string) (*model.GenerationLog, error) {
	for _, e := range r.entries {
		if e.RequestID == requestID {
			return e, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (r *fakeLogRepo) GetUsageByUser(ctx context.Context, userID int64, startTime, endTime time.Time) (*repository.GenerationUsageStats, error) {
	return &repository.GenerationUsageStats{TotalCalls: int64(len(r.entries))}, nil
}

func (r *fakeLogRepo) GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]repository.DailyGenerationStats, error) {
	return nil, nil
}

func (r *fakeLogRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// ==================== 测试辅助 ====================

const rawSuccess = `{"options":[{"id":1,"titleTop":"测试标题"}],"tags":["#测试"]}`

func newTestGenerateService(userRepo *fakeUserRepo, logRepo *fakeLogRepo, transport Transport) *GenerateService {
	gw := NewGatewayServiceWithTransports(transport)
	return NewGenerateService(userRepo, logRepo, gw, NewParserService(), nil, middleware.NewGenerationGuard())
}

// ==================== 测试 ====================

func TestGenerate_SuccessDeductsOnce(t *testing.T) {
	user := &model.User{Email: "a@b.com", Credits: 5, IsActive: true}
	user.ID = 1
	userRepo := newFakeUserRepo(user)
	logRepo := &fakeLogRepo{}

	transport := &fakeTransport{
		name:   "direct",
		result: &TransportResult{Text: rawSuccess, ModelName: "gemini-2.0-flash", Attempts: 1},
	}

	svc := newTestGenerateService(userRepo, logRepo, transport)
	output, err := svc.Generate(context.Background(), 1, &GenerationInput{Content: "测试"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if output.Credits != 4 {
		t.Errorf("剩余次数期望 4 实际 %d", output.Credits)
	}
	if userRepo.deductCalls != 1 {
		t.Errorf("应只扣减一次，实际 %d", userRepo.deductCalls)
	}
	if output.RequestID == "" {
		t.Error("RequestID 不能为空")
	}
	if len(output.Result.Options) != 1 || output.Result.Options[0].TitleTop != "测试标题" {
		t.Errorf("归一化结果不对: %+v", output.Result)
	}

	if len(logRepo.entries) != 1 {
		t.Fatalf("应记录 1 条日志，实际 %d", len(logRepo.entries))
	}
	entry := logRepo.entries[0]
	if entry.Status != model.GenerationStatusSuccess || entry.Transport != "direct" || entry.ModelName != "gemini-2.0-flash" {
		t.Errorf("日志内容不对: %+v", entry)
	}
	if len(entry.Tags) != 1 || entry.Tags[0] != "#测试" {
		t.Errorf("日志标签不对: %v", entry.Tags)
	}
}

func TestGenerate_FailureDoesNotDeduct(t *testing.T) {
	user := &model.User{Email: "a@b.com", Credits: 5, IsActive: true}
	user.ID = 1
	userRepo := newFakeUserRepo(user)
	logRepo := &fakeLogRepo{}

	transport := &fakeTransport{
		name: "direct",
		err:  &GenerationError{Category: ErrCategoryQuota, Message: "配额耗尽", Attempts: 3},
	}

	svc := newTestGenerateService(userRepo, logRepo, transport)
	_, err := svc.Generate(context.Background(), 1, &GenerationInput{Content: "测试"})
	if err == nil {
		t.Fatal("上游失败应返回错误")
	}

	if userRepo.deductCalls != 0 {
		t.Errorf("失败不应扣减次数")
	}
	if user.Credits != 5 {
		t.Errorf("余额不应变化，实际 %d", user.Credits)
	}

	if len(logRepo.entries) != 1 {
		t.Fatalf("失败也应记日志，实际 %d 条", len(logRepo.entries))
	}
	entry := logRepo.entries[0]
	if entry.Status != model.GenerationStatusFailed || entry.ErrorCategory != string(ErrCategoryQuota) || entry.Attempts != 3 {
		t.Errorf("失败日志不对: %+v", entry)
	}
}

func TestGenerate_NoCreditsRejectedBeforeCall(t *testing.T) {
	user := &model.User{Email: "a@b.com", Credits: 0, IsActive: true}
	user.ID = 1
	userRepo := newFakeUserRepo(user)

	transport := &fakeTransport{name: "direct", result: &TransportResult{Text: rawSuccess, Attempts: 1}}

	svc := newTestGenerateService(userRepo, &fakeLogRepo{}, transport)
	_, err := svc.Generate(context.Background(), 1, &GenerationInput{Content: "测试"})

	if !errors.Is(err, repository.ErrNoCredits) {
		t.Fatalf("期望 ErrNoCredits，实际 %v", err)
	}
	if transport.called != 0 {
		t.Errorf("余额不足不应发起上游调用")
	}
}

func TestGenerate_BusyRejected(t *testing.T) {
	user := &model.User{Email: "a@b.com", Credits: 5, IsActive: true}
	user.ID = 1
	userRepo := newFakeUserRepo(user)

	guard := middleware.NewGenerationGuard()
	guard.TryAcquire(1) // 模拟已有在途请求

	transport := &fakeTransport{name: "direct", result: &TransportResult{Text: rawSuccess, Attempts: 1}}
	gw := NewGatewayServiceWithTransports(transport)
	svc := NewGenerateService(userRepo, &fakeLogRepo{}, gw, NewParserService(), nil, guard)

	_, err := svc.Generate(context.Background(), 1, &GenerationInput{Content: "测试"})
	if !errors.Is(err, ErrGenerationBusy) {
		t.Fatalf("期望 ErrGenerationBusy，实际 %v", err)
	}
	if transport.called != 0 {
		t.Errorf("在途拒绝不应发起上游调用")
	}
}

func TestGenerate_GuardReleasedAfterCompletion(t *testing.T) {
	user := &model.User{Email: "a@b.com", Credits: 5, IsActive: true}
	user.ID = 1
	userRepo := newFakeUserRepo(user)

	transport := &fakeTransport{name: "direct", result: &TransportResult{Text: rawSuccess, Attempts: 1}}
	svc := newTestGenerateService(userRepo, &fakeLogRepo{}, transport)

	for i := 0; i < 2; i++ {
		if _, err := svc.Generate(context.Background(), 1, &GenerationInput{Content: "测试"}); err != nil {
			t.Fatalf("第 %d 次 Generate() error = %v", i+1, err)
		}
	}
	if transport.called != 2 {
		t.Errorf("两次串行请求都应放行，实际调用 %d 次", transport.called)
	}
}

func TestGenerate_HistoryTrimmed(t *testing.T) {
	user := &model.User{Email: "a@b.com", Credits: 5, IsActive: true}
	user.ID = 1
	userRepo := newFakeUserRepo(user)

	var gotHistory []string
	transport := &fakeTransport{
		name: "direct",
		generate: func(ctx context.Context, input *GenerationInput) (*TransportResult, error) {
			gotHistory = input.History
			return &TransportResult{Text: rawSuccess, Attempts: 1}, nil
		},
	}

	history := make([]string, 80)
	for i := range history {
		history[i] = fmt.Sprintf("文案 %d", i)
	}

	svc := newTestGenerateService(userRepo, &fakeLogRepo{}, transport)
	if _, err := svc.Generate(context.Background(), 1, &GenerationInput{Content: "测试", History: history}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(gotHistory) != maxEvolutionHistory {
		t.Fatalf("历史应截断到 %d 条，实际 %d", maxEvolutionHistory, len(gotHistory))
	}
	// 保留的是最近的，不是最早的
	if gotHistory[len(gotHistory)-1] != "文案 79" || gotHistory[0] != "文案 30" {
		t.Errorf("截断应保留最近记录: first=%s last=%s", gotHistory[0], gotHistory[len(gotHistory)-1])
	}
}
