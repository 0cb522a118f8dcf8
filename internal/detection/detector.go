package detection

import "github.com/strayleigh/SIGMA/internal/models"

// 置信度常量
const (
	// FreshConfidence fresh匹配时的基础置信度
	FreshConfidence = 0.85
	// WarningFactor warning匹配时在基础置信度上的折减系数
	WarningFactor = 0.7
	// RottenConfidence 兜底rotten的固定置信度
	RottenConfidence = 0.8
)

// Detector 基于规则的新鲜度检测器
// 纯函数式：无I/O、无共享可变状态，同样输入永远得到同样输出
type Detector struct {
	rules RuleSet
}

// NewDetector 创建检测器
func NewDetector(rules RuleSet) *Detector {
	return &Detector{rules: rules}
}

// Detect 根据RGB值判定新鲜度，返回状态和置信度
// temperature当前不参与判定，保留为扩展点
func (d *Detector) Detect(fruitType string, r, g, b int, temperature *float64) (string, float64) {
	rules := d.rules.Lookup(fruitType)

	if rules.Fresh.Match(r, g, b) {
		return models.StatusFresh, FreshConfidence
	}

	if rules.Warning.Match(r, g, b) {
		return models.StatusWarning, FreshConfidence * WarningFactor
	}

	// fresh和warning都不匹配时判定为rotten
	return models.StatusRotten, RottenConfidence
}

// StatusColor 状态对应的展示颜色（十六进制）
func StatusColor(status string) string {
	switch status {
	case models.StatusFresh:
		return "#4ade80"
	case models.StatusWarning:
		return "#fb923c"
	case models.StatusRotten:
		return "#ef4444"
	default:
		return "#6b7280"
	}
}
