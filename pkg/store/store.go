// Package store persists analysis results and feed recommendations in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/menta2k/pond-analyzer/pkg/types"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// timeLayout is fixed width so stored timestamps sort chronologically as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps the SQLite connection
type DB struct {
	*sql.DB
}

// MediaInfo describes the uploaded file an analysis was run on
type MediaInfo struct {
	Filename    string
	Size        int64
	ContentType string
}

// StoredAnalysis is an analysis result with its media metadata
type StoredAnalysis struct {
	types.AnalysisResult
	Media     MediaInfo
	CreatedAt time.Time
}

// Open opens (creating if needed) the database at path and migrates it
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single writer avoids SQLITE_BUSY with the pure-Go driver
	conn.SetMaxOpenConns(1)

	db := &DB{conn}
	if err := db.MigrateUp(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// SaveAnalysis stores r along with the media it was computed from
func (db *DB) SaveAnalysis(r *types.AnalysisResult, media MediaInfo) error {
	insights, err := json.Marshal(nonNil(r.Insights))
	if err != nil {
		return err
	}
	recommendations, err := json.Marshal(nonNil(r.Recommendations))
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO analyses (
			analysis_id, farm_id, filename, file_size, content_type,
			fish_count, activity_level, feeding_behavior,
			recommended_feed_amount, confidence_score,
			estimated_cost_savings, efficiency_score, sustainability_score, water_quality_impact,
			insights, recommendations, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.AnalysisID, r.FarmID, media.Filename, media.Size, media.ContentType,
		r.FishCount, r.ActivityLevel.String(), r.FeedingBehavior,
		r.RecommendedFeedAmount, r.ConfidenceScore,
		r.EstimatedCostSavings, r.EfficiencyScore, r.SustainabilityScore, r.WaterQualityImpact,
		string(insights), string(recommendations), r.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis %s: %w", r.AnalysisID, err)
	}
	return nil
}

const analysisColumns = `
	analysis_id, farm_id, filename, file_size, content_type,
	fish_count, activity_level, feeding_behavior,
	recommended_feed_amount, confidence_score,
	estimated_cost_savings, efficiency_score, sustainability_score, water_quality_impact,
	insights, recommendations, analyzed_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (*StoredAnalysis, error) {
	var (
		a                         StoredAnalysis
		level                     string
		insights, recommendations string
		analyzedAt                string
		createdAt                 sql.NullString
	)
	err := row.Scan(
		&a.AnalysisID, &a.FarmID, &a.Media.Filename, &a.Media.Size, &a.Media.ContentType,
		&a.FishCount, &level, &a.FeedingBehavior,
		&a.RecommendedFeedAmount, &a.ConfidenceScore,
		&a.EstimatedCostSavings, &a.EfficiencyScore, &a.SustainabilityScore, &a.WaterQualityImpact,
		&insights, &recommendations, &analyzedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if a.ActivityLevel, err = types.ParseActivityLevel(level); err != nil {
		return nil, err
	}
	if a.Timestamp, err = time.Parse(timeLayout, analyzedAt); err != nil {
		return nil, fmt.Errorf("invalid analyzed_at %q: %w", analyzedAt, err)
	}
	if err := json.Unmarshal([]byte(insights), &a.Insights); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(recommendations), &a.Recommendations); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		a.CreatedAt = parseCreatedAt(createdAt.String)
	}
	return &a, nil
}

// GetAnalysis returns the analysis with the given id
func (db *DB) GetAnalysis(analysisID string) (*StoredAnalysis, error) {
	row := db.QueryRow("SELECT"+analysisColumns+" FROM analyses WHERE analysis_id = ?", analysisID)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", analysisID, ErrNotFound)
	}
	return a, err
}

// ListAnalyses returns the most recent analyses for farmID, newest first
func (db *DB) ListAnalyses(farmID string, limit int) ([]StoredAnalysis, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query("SELECT"+analysisColumns+" FROM analyses WHERE farm_id = ? ORDER BY analyzed_at DESC LIMIT ?", farmID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveFeedRecommendation stores rec and returns its row id
func (db *DB) SaveFeedRecommendation(rec *types.FeedRecommendation) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO feed_recommendations (
			farm_id, current_feed_amount, recommended_feed_amount, adjustment_percentage,
			reasoning, confidence, cost_per_kg, daily_savings, monthly_savings, recommended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FarmID, rec.CurrentFeedAmount, rec.RecommendedFeedAmount, rec.AdjustmentPercentage,
		rec.Reasoning, rec.Confidence, rec.CostPerKg, rec.DailySavings, rec.MonthlySavings,
		rec.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert feed recommendation: %w", err)
	}
	return res.LastInsertId()
}

// CountFeedRecommendations returns the number of stored recommendations for farmID
func (db *DB) CountFeedRecommendations(farmID string) (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM feed_recommendations WHERE farm_id = ?", farmID).Scan(&n)
	return n, err
}

// parseCreatedAt accepts SQLite's CURRENT_TIMESTAMP text and the RFC 3339
// form the driver produces for TIMESTAMP columns
func parseCreatedAt(s string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
