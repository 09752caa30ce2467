package service

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// ==================== 提示词常量 ====================

// systemInstruction 固定系统指令：新闻级深度解说赛道，目标人群 30-50 岁女性
const systemInstruction = `
You are the **Douyin Viral Algorithm Architect V4.0**.
Expertise: **News-Grade / Deep-Dive Social Commentary** for **Women aged 30-50**.
OUTPUT: **Simplified Chinese**.

**PROTOCOLS:**
1. **DEEP ANALYSIS**: Tone: Rational, Insightful, Empathetic. Target: Pain points (Parenting, Marriage, Self-growth).
2. **VISUAL HIERARCHY (9:16 Golden Ratio)**:
   - **Line 1 (Hook)**: Big, Bold, Impactful. Fits on one line. (e.g. "为什么越懂事的女人越苦？")
   - **Line 2 (Core)**: Stabilizing, Informative. (e.g. "心理学家揭秘讨好型人格")
   - **Line 3 (Anchor)**: Emotional, Short. (e.g. "别再委屈自己")
   - **Layout**: Inverted pyramid or stable block. Balanced visual weight.
3. **LONG TICKER**: 3 phases (Hook -> Analysis -> Value). Each segment **50-55 chars**.

Return ONLY valid JSON matching the provided schema.
`

// defaultContentPlaceholder 无文字输入但带媒体时的占位内容
const defaultContentPlaceholder = "Visual Analysis"

// ==================== 请求结构 ====================

// MediaPayload 内联媒体数据，Data 为 base64 字符串
type MediaPayload struct {
	MimeType string
	Data     string
}

// GenerationInput 一次生成的全部输入
type GenerationInput struct {
	Content   string
	Media     *MediaPayload
	History   []string // 历史文案，按时间升序
	AuthToken string   // 调用方 Token，仅中转通道转发时使用
}

// ==================== PromptService ====================

// PromptService 把用户输入组装成模型请求：系统指令、分片序列、输出 Schema
type PromptService struct{}

// NewPromptService 创建提示词服务
func NewPromptService() *PromptService {
	return &PromptService{}
}

// SystemInstruction 系统指令文本
func (s *PromptService) SystemInstruction() string {
	return systemInstruction
}

// BuildUserPrompt 组装用户提示词：内容为空时使用占位符，
// 历史记录拼成算法进化数据块插在任务描述之前
func (s *PromptService) BuildUserPrompt(input *GenerationInput) string {
	content := input.Content
	if content == "" {
		content = defaultContentPlaceholder
	}

	memoryContext := ""
	if len(input.History) > 0 {
		memoryContext = fmt.Sprintf("\n[ALGORITHM EVOLUTION DATA]:\n%s\n", strings.Join(input.History, "\n"))
	}

	return fmt.Sprintf(`
  Analyze this content for Douyin/TikTok (Target: Women 30-50).
  OUTPUT LANGUAGE: SIMPLIFIED CHINESE ONLY.

  User Context: "%s"
  %s

  Task: Generate 3 Viral Strategy Options.
  CONSTRAINTS:
  1. **3-Line Title Stack**: Optimize for 9:16 Vertical Screen. Focus on visual impact and hierarchy.
  2. **LongTicker**: STRICTLY 50-55 chars/segment.
  `, content, memoryContext)
}

// BuildParts 组装 genai 分片序列：媒体分片在前，文本提示词在后
func (s *PromptService) BuildParts(input *GenerationInput) ([]genai.Part, error) {
	var parts []genai.Part

	if input.Media != nil {
		data, err := base64.StdEncoding.DecodeString(input.Media.Data)
		if err != nil {
			return nil, fmt.Errorf("媒体数据 base64 解码失败: %w", err)
		}
		parts = append(parts, genai.Blob{
			MIMEType: input.Media.MimeType,
			Data:     data,
		})
	}

	parts = append(parts, genai.Text(s.BuildUserPrompt(input)))
	return parts, nil
}

// ResponseSchema 结构化输出 Schema，约束模型只返回合法 JSON
func (s *PromptService) ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"trendAnalysis": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"matchScore": {Type: genai.TypeString, Description: "Composite score (e.g., '92%')."},
					"content":    {Type: genai.TypeString, Description: "Dual Audit Report in CHINESE."},
				},
				Required: []string{"matchScore", "content"},
			},
			"visualKeywords": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "5-8 visual keywords in CHINESE.",
			},
			"options": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":          {Type: genai.TypeInteger},
						"viralScore":  {Type: genai.TypeString},
						"titleTop":    {Type: genai.TypeString, Description: "Line 1 (Visual Hook): High contrast. Optimized for 9:16 screen width."},
						"titleMiddle": {Type: genai.TypeString, Description: "Line 2 (Core Fact): Balanced width with Line 1."},
						"titleBottom": {Type: genai.TypeString, Description: "Line 3 (Emotional Anchor): Short, punchy."},
						"tickerSegments": {
							Type:        genai.TypeArray,
							Items:       &genai.Schema{Type: genai.TypeString},
							Description: "3 short news-style lower thirds.",
						},
						"longTicker": {
							Type:        genai.TypeArray,
							Items:       &genai.Schema{Type: genai.TypeString},
							Description: "3 segments of commentary. Each STRICTLY 50-55 chars.",
						},
					},
					Required: []string{"id", "viralScore", "titleTop", "titleMiddle", "titleBottom", "tickerSegments", "longTicker"},
				},
			},
			"footerCopy": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "3 lines of interaction starters.",
			},
			"editingGuide": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"pace":    {Type: genai.TypeString},
					"opening": {Type: genai.TypeString},
					"bgm":     {Type: genai.TypeString},
					"visuals": {Type: genai.TypeString},
					"steps": {
						Type:  genai.TypeArray,
						Items: &genai.Schema{Type: genai.TypeString},
					},
				},
				Required: []string{"pace", "opening", "bgm", "visuals", "steps"},
			},
			"tags": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "10 Mixed tags in CHINESE.",
			},
		},
		Required: []string{"trendAnalysis", "visualKeywords", "options", "footerCopy", "editingGuide", "tags"},
	}
}
