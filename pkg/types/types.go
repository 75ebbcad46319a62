package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ActivityLevel is the ordinal activity class produced by the activity head.
// The ordinal is the classifier output index; do not reorder without retraining.
type ActivityLevel int

const (
	Low ActivityLevel = iota
	Moderate
	Active
	High
	Feeding
)

// NumActivityLevels is the width of the activity classifier output
const NumActivityLevels = 5

var activityLabels = [NumActivityLevels]string{"Low", "Moderate", "Active", "High", "Feeding"}

// ActivityLevels returns all levels in ordinal order
func ActivityLevels() []ActivityLevel {
	return []ActivityLevel{Low, Moderate, Active, High, Feeding}
}

// ActivityLevelFromClass maps a classifier index to its level
func ActivityLevelFromClass(class int) (ActivityLevel, error) {
	if class < 0 || class >= NumActivityLevels {
		return 0, fmt.Errorf("activity class %d out of range [0,%d]", class, NumActivityLevels-1)
	}
	return ActivityLevel(class), nil
}

// ParseActivityLevel parses a label such as "Feeding" (case-insensitive)
func ParseActivityLevel(s string) (ActivityLevel, error) {
	for i, label := range activityLabels {
		if strings.EqualFold(strings.TrimSpace(s), label) {
			return ActivityLevel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown activity level: %q", s)
}

func (a ActivityLevel) String() string {
	if a < 0 || int(a) >= NumActivityLevels {
		return fmt.Sprintf("ActivityLevel(%d)", int(a))
	}
	return activityLabels[a]
}

// MarshalJSON encodes the level as its label
func (a ActivityLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a label back into a level
func (a *ActivityLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, err := ParseActivityLevel(s)
	if err != nil {
		return err
	}
	*a = level
	return nil
}

// FeedingBehaviors are illustrative labels; they are not derived from model output.
var FeedingBehaviors = []string{
	"Surface feeding",
	"Bottom feeding",
	"Scattered feeding",
	"Aggressive feeding",
	"Calm feeding",
}

// WaterQualityImpacts are the illustrative water quality impact labels
var WaterQualityImpacts = []string{"Minimal", "Low", "Moderate"}

// FramePrediction is the model output for a single frame
type FramePrediction struct {
	ActivityClass int     `json:"activity_class"`
	Confidence    float64 `json:"confidence"`
	FeedAmount    float64 `json:"feed_amount"`
}

// AggregateResult is the per-request combination of frame predictions
type AggregateResult struct {
	ActivityLevel ActivityLevel `json:"activity_level"`
	Confidence    float64       `json:"confidence"`
	FeedAmount    float64       `json:"feed_amount"`
	FishCount     int           `json:"fish_count"`
}

// AnalysisResult is the final record returned for one analysed media file
type AnalysisResult struct {
	FarmID     string    `json:"farm_id"`
	AnalysisID string    `json:"analysis_id"`
	Timestamp  time.Time `json:"timestamp"`

	FishCount       int           `json:"fish_count"`
	ActivityLevel   ActivityLevel `json:"activity_level"`
	FeedingBehavior string        `json:"feeding_behavior"`

	RecommendedFeedAmount float64 `json:"recommended_feed_amount"`
	ConfidenceScore       float64 `json:"confidence_score"`

	EstimatedCostSavings float64 `json:"estimated_cost_savings"`
	EfficiencyScore      float64 `json:"efficiency_score"`

	SustainabilityScore float64 `json:"sustainability_score"`
	WaterQualityImpact  string  `json:"water_quality_impact"`

	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// FeedRecommendation is the reporting view of the current feed plan for a farm
type FeedRecommendation struct {
	FarmID    string    `json:"farm_id"`
	Timestamp time.Time `json:"timestamp"`

	CurrentFeedAmount     float64 `json:"current_feed_amount"`
	RecommendedFeedAmount float64 `json:"recommended_feed_amount"`
	AdjustmentPercentage  float64 `json:"adjustment_percentage"`

	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`

	CostPerKg      float64 `json:"cost_per_kg"`
	DailySavings   float64 `json:"daily_savings"`
	MonthlySavings float64 `json:"monthly_savings"`

	ExpectedGrowthRate  float64 `json:"expected_growth_rate"`
	FeedConversionRatio float64 `json:"feed_conversion_ratio"`

	NextFeedingTime     string `json:"next_feeding_time"`
	MonitoringFrequency string `json:"monitoring_frequency"`
}

// DailyMetrics is one row of historical analytics
type DailyMetrics struct {
	Date         string  `json:"date"`
	FeedAmount   float64 `json:"feed_amount"`
	GrowthRate   float64 `json:"growth_rate"`
	Cost         float64 `json:"cost"`
	Efficiency   float64 `json:"efficiency"`
	WaterQuality float64 `json:"water_quality"`
}

// HistoricalAnalytics summarises a farm over a period of days
type HistoricalAnalytics struct {
	FarmID      string    `json:"farm_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	TotalFeedUsed    float64 `json:"total_feed_used"`
	AverageDailyFeed float64 `json:"average_daily_feed"`
	FeedCostTotal    float64 `json:"feed_cost_total"`

	TotalGrowth              float64 `json:"total_growth"`
	AverageGrowthRate        float64 `json:"average_growth_rate"`
	FeedConversionEfficiency float64 `json:"feed_conversion_efficiency"`

	WaterQualityScore        float64 `json:"water_quality_score"`
	EnvironmentalImpactScore float64 `json:"environmental_impact_score"`

	DailyData []DailyMetrics `json:"daily_data"`
}

// ActivityOpinion is a second opinion on a frame returned by a vision model
type ActivityOpinion struct {
	ActivityLevel string  `json:"activity_level"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}
