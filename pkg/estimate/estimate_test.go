package estimate

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/menta2k/pond-analyzer/pkg/types"
)

func TestSeededSequencesRepeat(t *testing.T) {
	a, b := New(99), New(99)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float(), b.Float())
	}
}

func TestFishCountBounds(t *testing.T) {
	e := New(1)
	seen := map[int]bool{}
	for i := 0; i < 10000; i++ {
		n := e.FishCount()
		assert.GreaterOrEqual(t, n, MinFishCount)
		assert.Less(t, n, MaxFishCount)
		seen[n] = true
	}
	assert.Len(t, seen, MaxFishCount-MinFishCount)
}

func TestEconomicsBounds(t *testing.T) {
	e := New(2)
	for i := 0; i < 5000; i++ {
		econ := e.Economics()
		assert.GreaterOrEqual(t, econ.EstimatedCostSavings, 10.0)
		assert.LessOrEqual(t, econ.EstimatedCostSavings, 30.0)
		assert.GreaterOrEqual(t, econ.EfficiencyScore, 7.0)
		assert.LessOrEqual(t, econ.EfficiencyScore, 9.5)
		assert.GreaterOrEqual(t, econ.SustainabilityScore, 7.5)
		assert.LessOrEqual(t, econ.SustainabilityScore, 9.5)
		assert.Contains(t, types.WaterQualityImpacts, econ.WaterQualityImpact)
		assert.Equal(t, Round(econ.EfficiencyScore, 1), econ.EfficiencyScore)
	}
}

func TestChooseAndActivityLevel(t *testing.T) {
	e := New(3)
	assert.Equal(t, "", e.Choose(nil))
	for i := 0; i < 1000; i++ {
		assert.True(t, slices.Contains(types.FeedingBehaviors, e.FeedingBehavior()))
		level := e.ActivityLevel()
		assert.GreaterOrEqual(t, int(level), 0)
		assert.Less(t, int(level), types.NumActivityLevels)
	}
	assert.Equal(t, 7, e.IntRange(7, 7))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 12.35, Round(12.346, 2))
	assert.Equal(t, 8.1, Round(8.06, 1))
	assert.Equal(t, 3.0, Round(2.999, 2))
}

func TestConcurrentUse(t *testing.T) {
	e := NewRandom()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				_ = e.FishCount()
				_ = e.Economics()
			}
		}()
	}
	wg.Wait()
}
