package model

// 归一化之后的生成结果。所有字段在归一化后必然存在且类型正确，
// 上游缺失或畸形的字段一律落到文档化的默认值，渲染层不需要做任何判空。

// TitleOption 一个候选方案：三行标题 + 短压屏条 + 长解说条
type TitleOption struct {
	ID             int      `json:"id"`
	ViralScore     string   `json:"viralScore"`
	TitleTop       string   `json:"titleTop"`    // 第一行：视觉钩子
	TitleMiddle    string   `json:"titleMiddle"` // 第二行：核心事实
	TitleBottom    string   `json:"titleBottom"` // 第三行：情绪锚点
	Description    string   `json:"description"`
	TickerSegments []string `json:"tickerSegments"` // 3 条新闻式短压屏条
	LongTicker     []string `json:"longTicker"`     // 3 段解说，每段约 50-55 字
}

// EditingGuide 剪辑指南
type EditingGuide struct {
	Pace    string   `json:"pace"`
	Opening string   `json:"opening"`
	BGM     string   `json:"bgm"`
	Visuals string   `json:"visuals"`
	Steps   []string `json:"steps"`
}

// GeneratedResult 一次生成的完整结果
type GeneratedResult struct {
	RawText        string        `json:"rawText"`
	TrendAnalysis  string        `json:"trendAnalysis"`
	VisualKeywords []string      `json:"visualKeywords"`
	Options        []TitleOption `json:"options"`
	FooterCopy     []string      `json:"footerCopy"`
	Tags           []string      `json:"tags"`
	EditingGuide   EditingGuide  `json:"editingGuide"`
}
