package middleware

import (
	"sync"
	"time"
)

// ==================== GenerationGuard 生成并发守卫 ====================

// GenerationGuard 每个用户同一时刻只允许一个生成请求在途，
// 防止重复提交打爆计费调用
type GenerationGuard struct {
	inflight sync.Map // userID -> *flightEntry
}

// flightEntry 在途条目
type flightEntry struct {
	startedAt time.Time
}

// staleAfter 兜底：持有超过该时长视为泄漏（例如 panic 后未释放），允许抢占
const staleAfter = 10 * time.Minute

// NewGenerationGuard 创建守卫
func NewGenerationGuard() *GenerationGuard {
	return &GenerationGuard{}
}

// TryAcquire 尝试占位，占位成功返回 true；已有在途请求返回 false
func (g *GenerationGuard) TryAcquire(userID int64) bool {
	entry := &flightEntry{startedAt: time.Now()}
	actual, loaded := g.inflight.LoadOrStore(userID, entry)
	if !loaded {
		return true
	}

	// 过期条目直接抢占
	if existing, ok := actual.(*flightEntry); ok && time.Since(existing.startedAt) > staleAfter {
		g.inflight.Store(userID, entry)
		return true
	}
	return false
}

// Release 释放占位
func (g *GenerationGuard) Release(userID int64) {
	g.inflight.Delete(userID)
}

// InFlight 是否有在途请求
func (g *GenerationGuard) InFlight(userID int64) bool {
	actual, ok := g.inflight.Load(userID)
	if !ok {
		return false
	}
	entry, ok := actual.(*flightEntry)
	return ok && time.Since(entry.startedAt) <= staleAfter
}
