package detection

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Band 一组可选的RGB阈值约束
// 缺失的约束视为满足；全部缺失的Band永远不匹配（见Match）
type Band struct {
	RMin *int `json:"r_min,omitempty"`
	RMax *int `json:"r_max,omitempty"`
	GMin *int `json:"g_min,omitempty"`
	GMax *int `json:"g_max,omitempty"`
	BMin *int `json:"b_min,omitempty"`
	BMax *int `json:"b_max,omitempty"`
}

// Empty 是否没有任何约束
func (b Band) Empty() bool {
	return b.RMin == nil && b.RMax == nil &&
		b.GMin == nil && b.GMax == nil &&
		b.BMin == nil && b.BMax == nil
}

// Match 判断RGB值是否满足Band的全部约束
// 空Band返回false，避免规则配置缺失时把所有读数误判为匹配
func (b Band) Match(r, g, bl int) bool {
	if b.Empty() {
		return false
	}
	if b.RMin != nil && r < *b.RMin {
		return false
	}
	if b.RMax != nil && r > *b.RMax {
		return false
	}
	if b.GMin != nil && g < *b.GMin {
		return false
	}
	if b.GMax != nil && g > *b.GMax {
		return false
	}
	if b.BMin != nil && bl < *b.BMin {
		return false
	}
	if b.BMax != nil && bl > *b.BMax {
		return false
	}
	return true
}

// CategoryRules 单个品类的检测规则
// 按fresh、warning顺序评估，都不匹配视为rotten
type CategoryRules struct {
	Fresh   Band `json:"fresh"`
	Warning Band `json:"warning"`
}

// RuleSet 品类到检测规则的映射（小写键），启动时加载一次，之后只读
type RuleSet map[string]CategoryRules

// DefaultCategory 未识别品类的兜底规则键
const DefaultCategory = "default"

// Lookup 查找品类规则（不区分大小写），未识别品类回退到default
func (rs RuleSet) Lookup(category string) CategoryRules {
	if rules, ok := rs[strings.ToLower(category)]; ok {
		return rules
	}
	return rs[DefaultCategory]
}

// DefaultRuleSet 内置检测规则
func DefaultRuleSet() RuleSet {
	return RuleSet{
		"apple": {
			Fresh:   Band{RMin: intPtr(150), GMin: intPtr(50), GMax: intPtr(100), BMax: intPtr(60)},
			Warning: Band{RMin: intPtr(120), GMin: intPtr(40), BMax: intPtr(80)},
		},
		"banana": {
			Fresh:   Band{RMin: intPtr(200), GMin: intPtr(180), BMin: intPtr(50), BMax: intPtr(100)},
			Warning: Band{RMin: intPtr(150), GMin: intPtr(120), BMax: intPtr(80)},
		},
		"orange": {
			Fresh:   Band{RMin: intPtr(200), GMin: intPtr(100), GMax: intPtr(150), BMax: intPtr(60)},
			Warning: Band{RMin: intPtr(150), GMin: intPtr(70), BMax: intPtr(80)},
		},
		DefaultCategory: {
			Fresh:   Band{RMin: intPtr(150), GMin: intPtr(80), BMax: intPtr(100)},
			Warning: Band{RMin: intPtr(100), GMin: intPtr(50), BMax: intPtr(120)},
		},
	}
}

// LoadRuleSet 从JSON文件加载检测规则
// path为空时返回内置规则；文件必须包含default品类
func LoadRuleSet(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRuleSet(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var raw map[string]CategoryRules
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	rs := make(RuleSet, len(raw))
	for category, rules := range raw {
		rs[strings.ToLower(category)] = rules
	}

	if _, ok := rs[DefaultCategory]; !ok {
		return nil, fmt.Errorf("rules file missing %q category", DefaultCategory)
	}

	return rs, nil
}

func intPtr(v int) *int {
	return &v
}
