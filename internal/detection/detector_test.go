package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strayleigh/SIGMA/internal/models"
)

func TestDetect_AppleFresh(t *testing.T) {
	d := NewDetector(DefaultRuleSet())

	// apple fresh: r_min=150, g_min=50, g_max=100, b_max=60
	status, confidence := d.Detect("apple", 160, 70, 40, nil)

	assert.Equal(t, models.StatusFresh, status)
	assert.Equal(t, FreshConfidence, confidence)
}

func TestDetect_AppleWarning(t *testing.T) {
	d := NewDetector(DefaultRuleSet())

	// fresh不匹配（g超出g_max），warning匹配（r>=120, g>=40, b<=80）
	status, confidence := d.Detect("apple", 130, 110, 70, nil)

	assert.Equal(t, models.StatusWarning, status)
	assert.Equal(t, FreshConfidence*WarningFactor, confidence)
}

func TestDetect_RottenFallback(t *testing.T) {
	d := NewDetector(DefaultRuleSet())

	// 任何Band都不匹配时判定rotten，与品类无关
	for _, fruitType := range []string{"apple", "banana", "orange", "default", "kiwi"} {
		status, confidence := d.Detect(fruitType, 50, 50, 200, nil)

		assert.Equal(t, models.StatusRotten, status, "fruitType=%s", fruitType)
		assert.Equal(t, RottenConfidence, confidence, "fruitType=%s", fruitType)
	}
}

func TestDetect_CaseInsensitiveCategory(t *testing.T) {
	d := NewDetector(DefaultRuleSet())

	lowerStatus, lowerConf := d.Detect("apple", 160, 70, 40, nil)
	upperStatus, upperConf := d.Detect("Apple", 160, 70, 40, nil)

	assert.Equal(t, lowerStatus, upperStatus)
	assert.Equal(t, lowerConf, upperConf)
}

func TestDetect_UnknownCategoryFallsBackToDefault(t *testing.T) {
	d := NewDetector(DefaultRuleSet())

	kiwiStatus, kiwiConf := d.Detect("kiwi", 160, 90, 50, nil)
	defaultStatus, defaultConf := d.Detect("default", 160, 90, 50, nil)

	assert.Equal(t, defaultStatus, kiwiStatus)
	assert.Equal(t, defaultConf, kiwiConf)
	assert.Equal(t, models.StatusFresh, kiwiStatus)
}

func TestDetect_TemperatureIgnored(t *testing.T) {
	d := NewDetector(DefaultRuleSet())

	temp := 25.5
	withTemp, _ := d.Detect("apple", 160, 70, 40, &temp)
	withoutTemp, _ := d.Detect("apple", 160, 70, 40, nil)

	assert.Equal(t, withoutTemp, withTemp)
}

func TestBand_EmptyNeverMatches(t *testing.T) {
	empty := Band{}

	assert.True(t, empty.Empty())
	assert.False(t, empty.Match(0, 0, 0))
	assert.False(t, empty.Match(128, 128, 128))
	assert.False(t, empty.Match(255, 255, 255))
}

func TestBand_AbsentConstraintsVacuouslySatisfied(t *testing.T) {
	// 只约束r通道，g/b任意值都满足
	band := Band{RMin: intPtr(100)}

	assert.True(t, band.Match(100, 0, 255))
	assert.True(t, band.Match(200, 255, 0))
	assert.False(t, band.Match(99, 128, 128))
}

func TestDetect_EmptyFreshBandDoesNotMatchEverything(t *testing.T) {
	// 配置错误（fresh无任何约束）时不得把所有读数判为fresh
	rules := RuleSet{
		DefaultCategory: {
			Fresh:   Band{},
			Warning: Band{RMin: intPtr(100)},
		},
	}
	d := NewDetector(rules)

	status, _ := d.Detect("anything", 150, 150, 150, nil)
	assert.Equal(t, models.StatusWarning, status)

	status, confidence := d.Detect("anything", 50, 50, 50, nil)
	assert.Equal(t, models.StatusRotten, status)
	assert.Equal(t, RottenConfidence, confidence)
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, "#4ade80", StatusColor(models.StatusFresh))
	assert.Equal(t, "#fb923c", StatusColor(models.StatusWarning))
	assert.Equal(t, "#ef4444", StatusColor(models.StatusRotten))
	assert.Equal(t, "#6b7280", StatusColor("unknown"))
}
