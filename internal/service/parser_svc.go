package service

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"douyin_copy_v1_202608/internal/model"
)

// ==================== 默认值 ====================

// 字段级默认值：上游字段缺失或类型不对时的兜底文案
const (
	defaultViralScore  = "90%"
	defaultTitleTop    = "标题生成中..."
	defaultTitleFill   = "..."
	defaultTrendText   = "暂无数据"
	parseFailedText    = "解析失败，请重试"
	defaultGuidePace   = "根据画面节奏自然剪辑"
	defaultGuideOpen   = "前3秒设置视觉钩子"
	defaultGuideBGM    = "使用快节奏新闻卡点音乐"
	defaultGuideVisual = "添加关键信息字幕"
)

// ==================== ParserService ====================

// ParserService 响应归一化服务。
// Normalize 是全函数：任何输入都返回结构完整的结果，绝不向上抛解析错误。
// 模型输出不可信且只是部分可靠，单个字段畸形不能连累兄弟字段，
// 所以顶层先拆成 RawMessage，再对每个字段独立做尽力解码。
type ParserService struct{}

// NewParserService 创建归一化服务
func NewParserService() *ParserService {
	return &ParserService{}
}

// Normalize 把模型原始输出文本归一化为完整结果。
// 先剥掉模型偶尔包裹的 markdown 代码围栏再解析；
// 顶层不是合法 JSON 时返回文档化的空结果（解析失败哨兵文案）
func (s *ParserService) Normalize(rawText string) *model.GeneratedResult {
	cleaned := stripCodeFences(rawText)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		log.Printf("生成结果 JSON 解析失败: %v", err)
		return s.emptyResult(rawText)
	}

	return &model.GeneratedResult{
		RawText:        rawText,
		TrendAnalysis:  s.normalizeTrend(fields["trendAnalysis"]),
		VisualKeywords: decodeStringList(fields["visualKeywords"]),
		Options:        s.normalizeOptions(fields["options"]),
		FooterCopy:     decodeStringList(fields["footerCopy"]),
		Tags:           decodeStringList(fields["tags"]),
		EditingGuide:   s.normalizeGuide(fields["editingGuide"]),
	}
}

// emptyResult 解析失败兜底：所有序列为空，叙述字段置哨兵文案
func (s *ParserService) emptyResult(rawText string) *model.GeneratedResult {
	return &model.GeneratedResult{
		RawText:        rawText,
		TrendAnalysis:  parseFailedText,
		VisualKeywords: []string{},
		Options:        []model.TitleOption{},
		FooterCopy:     []string{},
		Tags:           []string{},
		EditingGuide:   model.EditingGuide{Steps: []string{}},
	}
}

// normalizeTrend 趋势分析格式化为「画像匹配度：{分数}\n{内容}」，缺失时置默认文案
func (s *ParserService) normalizeTrend(raw json.RawMessage) string {
	if len(raw) == 0 {
		return defaultTrendText
	}
	var trend struct {
		MatchScore string `json:"matchScore"`
		Content    string `json:"content"`
	}
	if err := json.Unmarshal(raw, &trend); err != nil {
		return defaultTrendText
	}
	return fmt.Sprintf("画像匹配度：%s\n%s", trend.MatchScore, trend.Content)
}

// normalizeOptions 候选方案归一化。
// 每个方案的每个字段独立兜底，非对象元素同样产出一条全默认方案，
// id 缺失或非正数时按位置补 i+1
func (s *ParserService) normalizeOptions(raw json.RawMessage) []model.TitleOption {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return []model.TitleOption{}
	}

	options := make([]model.TitleOption, 0, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			fields = nil
		}

		opt := model.TitleOption{
			ID:             decodeInt(fields["id"]),
			ViralScore:     decodeStringOr(fields["viralScore"], defaultViralScore),
			TitleTop:       decodeStringOr(fields["titleTop"], defaultTitleTop),
			TitleMiddle:    decodeStringOr(fields["titleMiddle"], defaultTitleFill),
			TitleBottom:    decodeStringOr(fields["titleBottom"], defaultTitleFill),
			Description:    "",
			TickerSegments: decodeStringList(fields["tickerSegments"]),
			LongTicker:     decodeStringList(fields["longTicker"]),
		}
		if opt.ID <= 0 {
			opt.ID = i + 1
		}
		options = append(options, opt)
	}
	return options
}

// normalizeGuide 剪辑指南归一化，每个子字段独立兜底
func (s *ParserService) normalizeGuide(raw json.RawMessage) model.EditingGuide {
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		fields = nil
	}

	return model.EditingGuide{
		Pace:    decodeStringOr(fields["pace"], defaultGuidePace),
		Opening: decodeStringOr(fields["opening"], defaultGuideOpen),
		BGM:     decodeStringOr(fields["bgm"], defaultGuideBGM),
		Visuals: decodeStringOr(fields["visuals"], defaultGuideVisual),
		Steps:   decodeStringList(fields["steps"]),
	}
}

// stripCodeFences 去掉包裹 JSON 的 ```json / ``` 围栏
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// ==================== 字段级解码工具 ====================

// decodeStringOr 解码字符串字段，缺失、类型不对或为空串时返回默认值
func decodeStringOr(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return fallback
	}
	return s
}

// decodeStringList 解码字符串数组，失败时返回空切片而非 nil，
// 保证序列化回 JSON 时是 [] 而不是 null
func decodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil || list == nil {
		return []string{}
	}
	return list
}

// decodeInt 解码整数字段，失败返回 0
func decodeInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}
