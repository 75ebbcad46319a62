package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	pondanalyzer "github.com/menta2k/pond-analyzer"
	"github.com/menta2k/pond-analyzer/internal/config"
	"github.com/menta2k/pond-analyzer/internal/utils"
	"github.com/menta2k/pond-analyzer/pkg/analyzer"
	"github.com/menta2k/pond-analyzer/pkg/client"
	"github.com/menta2k/pond-analyzer/pkg/estimate"
	"github.com/menta2k/pond-analyzer/pkg/llamacpp"
	"github.com/menta2k/pond-analyzer/pkg/media"
	"github.com/menta2k/pond-analyzer/pkg/model"
	"github.com/menta2k/pond-analyzer/pkg/ollama"
	"github.com/menta2k/pond-analyzer/pkg/reporting"
	"github.com/menta2k/pond-analyzer/pkg/review"
	"github.com/menta2k/pond-analyzer/pkg/store"
	"github.com/menta2k/pond-analyzer/pkg/types"
)

const usage = `usage: %s <command> [flags]

commands:
  analyze       analyse a pond image or video
  recommend     print the feed recommendation for a farm
  analytics     print historical analytics for a farm
  history       list stored analyses for a farm
  init-weights  write randomly initialised model weights
  cleanup       remove old uploads
  version       print the version`

func main() {
	// .env is optional
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatalf(usage, filepath.Base(os.Args[0]))
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "analyze":
		err = runAnalyze(args)
	case "recommend":
		err = runRecommend(args)
	case "analytics":
		err = runAnalytics(args)
	case "history":
		err = runHistory(args)
	case "init-weights":
		err = runInitWeights(args)
	case "cleanup":
		err = runCleanup(args)
	case "version":
		fmt.Println(pondanalyzer.GetVersion())
	default:
		log.Fatalf(usage, filepath.Base(os.Args[0]))
	}
	if err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the config file (or defaults), then applies environment overrides
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			path = ""
		}
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newEstimator(cfg *config.Config) *estimate.IllustrativeEstimator {
	if cfg.Analysis.Seed != 0 {
		return estimate.New(cfg.Analysis.Seed)
	}
	return estimate.NewRandom()
}

func newPondAnalyzer(cfg *config.Config) *pondanalyzer.PondAnalyzer {
	logger := utils.GetLogger()
	sampler := media.NewWithConfig(media.Config{
		MaxFrames:       cfg.Sampler.MaxFrames,
		VideoExtensions: cfg.Sampler.VideoExtensions,
	}, media.NewFFmpegDecoder(cfg.Sampler.FFmpegPath, cfg.Sampler.FFprobePath))

	return pondanalyzer.NewWithOptions(analyzer.Options{
		Sampler:       sampler,
		Model:         model.Load(cfg.Model.WeightsPath, logger),
		Estimator:     newEstimator(cfg),
		MaxConcurrent: cfg.Analysis.MaxConcurrentAnalyses,
		Timeout:       time.Duration(cfg.Analysis.RequestTimeoutSeconds) * time.Second,
		Logger:        logger,
	}, cfg.Economics.DefaultFeedCost)
}

func newReporter(cfg *config.Config) *reporting.Reporter {
	return reporting.New(newEstimator(cfg), reporting.Config{FeedCost: cfg.Economics.DefaultFeedCost})
}

// newVisionClient creates the review client for backend, nil when review is disabled
func newVisionClient(backend, url string) (client.VisionClient, error) {
	switch backend {
	case "":
		return nil, nil
	case "ollama":
		if url == "" {
			url = "http://localhost:11434/api/chat"
		}
		return ollama.NewClient(url)
	case "llamacpp":
		if url == "" {
			url = llamacpp.DefaultURL
		}
		return llamacpp.NewClient(url)
	default:
		return nil, fmt.Errorf("unknown backend %q, use ollama or llamacpp", backend)
	}
}

func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type analyzeOutput struct {
	*types.AnalysisResult
	Review *review.Outcome `json:"review,omitempty"`
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var in, farm, cfgPath, weights, dbPath, out string
	var framesOut, framesFmt string
	var framesQ int
	var backend, url, reviewModel string
	var noStore, describe bool

	fs.StringVar(&in, "in", "", "input image or video path")
	fs.StringVar(&farm, "farm", "", "farm identifier")
	fs.StringVar(&cfgPath, "config", "", "config file (default ~/.config/pond-analyzer/config.json)")
	fs.StringVar(&weights, "weights", "", "model weights file (overrides config)")
	fs.StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	fs.BoolVar(&noStore, "no-store", false, "do not persist the result")
	fs.StringVar(&out, "out", "", "write the JSON result to this file instead of stdout")

	fs.StringVar(&framesOut, "frames-out", "", "directory for sampled frame snapshots")
	fs.StringVar(&framesFmt, "frames-fmt", "jpg", "snapshot format: jpg|png|webp")
	fs.IntVar(&framesQ, "frames-quality", 90, "snapshot quality for jpg/webp (1-100)")

	fs.StringVar(&backend, "backend", "", "second-opinion backend: ollama or llamacpp (overrides config)")
	fs.StringVar(&url, "url", "", "review server URL (defaults: ollama=http://localhost:11434/api/chat, llamacpp=http://localhost:8080)")
	fs.StringVar(&reviewModel, "model", "", "review model name (overrides config)")
	fs.BoolVar(&describe, "describe", false, "ask the review model to describe the frame when its opinion is unclear or fails")
	_ = fs.Parse(args)

	if in == "" || farm == "" {
		log.Fatalf("usage: %s analyze -in pond.mp4|pond.jpg -farm farm-id [-weights w.json] [-backend ollama|llamacpp] [-frames-out dir]", filepath.Base(os.Args[0]))
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if weights != "" {
		cfg.Model.WeightsPath = weights
	}
	if dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}
	if backend != "" {
		cfg.Review.Backend = backend
	}
	if url != "" {
		cfg.Review.URL = url
	}
	if reviewModel != "" {
		cfg.Review.Model = reviewModel
	}

	if err := utils.ValidateUpload(in, cfg.Storage.AllowedExtensions, cfg.Storage.MaxFileSize); err != nil {
		return err
	}
	stat, err := os.Stat(in)
	if err != nil {
		return err
	}

	pa := newPondAnalyzer(cfg)
	ctx := context.Background()

	log.Printf("Analyzing %s (%s) for farm %s", in, utils.FormatFileSize(stat.Size()), farm)
	result, frames, err := pa.AnalyzeMedia(ctx, in, farm)
	if err != nil {
		return err
	}
	if !pa.ModelLoaded() {
		log.Printf("No model loaded, result comes from the fallback predictor")
	}
	log.Printf("%s activity from %d frame(s), confidence %.2f", result.ActivityLevel, len(frames), result.ConfidenceScore)

	output := analyzeOutput{AnalysisResult: result}

	if review.ShouldReview(result, cfg.Analysis.MinConfidenceThreshold) && cfg.Review.Backend != "" {
		vc, err := newVisionClient(cfg.Review.Backend, cfg.Review.URL)
		if err != nil {
			return err
		}
		reviewer := review.NewReviewer(vc, cfg.Review.Model)
		outcome, err := reviewer.SecondOpinion(ctx, frames[0].Image, describe)
		if err != nil {
			log.Printf("Second opinion failed: %v", err)
		}
		if op := outcome.Opinion; op != nil {
			log.Printf("Second opinion: %s (%.2f), agrees=%v", op.ActivityLevel, op.Confidence, op.Agrees(result.ActivityLevel))
		}
		if outcome.Description != "" {
			log.Printf("Review model sees: %s", outcome.Description)
		}
		if outcome.Opinion != nil || outcome.Description != "" {
			output.Review = outcome
		}
	}

	if framesOut != "" {
		if err := saveFrames(frames, framesOut, result.AnalysisID, framesFmt, framesQ); err != nil {
			return err
		}
		log.Printf("Saved %d frame(s) to %s", len(frames), framesOut)
	}

	if !noStore {
		db, err := store.Open(cfg.Storage.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		err = db.SaveAnalysis(result, store.MediaInfo{
			Filename:    filepath.Base(in),
			Size:        stat.Size(),
			ContentType: mime.TypeByExtension(filepath.Ext(in)),
		})
		if err != nil {
			return err
		}
	}

	return writeJSON(output, out)
}

func saveFrames(frames []media.Frame, dir, analysisID, format string, quality int) error {
	if err := utils.EnsureDir(dir); err != nil {
		return err
	}
	for _, frame := range frames {
		name := fmt.Sprintf("%s_%05d.%s", analysisID, frame.Index, format)
		if err := media.SaveFrame(frame.Image, filepath.Join(dir, name), format, quality); err != nil {
			return fmt.Errorf("failed to save frame %d: %w", frame.Index, err)
		}
	}
	return nil
}

func runRecommend(args []string) error {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	var farm, cfgPath, dbPath string
	var save bool
	fs.StringVar(&farm, "farm", "", "farm identifier")
	fs.StringVar(&cfgPath, "config", "", "config file")
	fs.StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	fs.BoolVar(&save, "save", false, "store the recommendation")
	_ = fs.Parse(args)

	if farm == "" {
		log.Fatalf("usage: %s recommend -farm farm-id [-save]", filepath.Base(os.Args[0]))
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}

	rec := newReporter(cfg).FeedRecommendation(farm)
	if save {
		db, err := store.Open(cfg.Storage.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()
		if _, err := db.SaveFeedRecommendation(rec); err != nil {
			return err
		}
	}
	return writeJSON(rec, "")
}

func runAnalytics(args []string) error {
	fs := flag.NewFlagSet("analytics", flag.ExitOnError)
	var farm, cfgPath, chart string
	var days int
	fs.StringVar(&farm, "farm", "", "farm identifier")
	fs.StringVar(&cfgPath, "config", "", "config file")
	fs.IntVar(&days, "days", reporting.DefaultDays, "number of days")
	fs.StringVar(&chart, "chart", "", "also render an HTML chart to this file")
	_ = fs.Parse(args)

	if farm == "" {
		log.Fatalf("usage: %s analytics -farm farm-id [-days 7] [-chart out.html]", filepath.Base(os.Args[0]))
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	h, err := newReporter(cfg).HistoricalAnalytics(farm, days)
	if err != nil {
		return err
	}

	if chart != "" {
		f, err := os.Create(chart)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := reporting.RenderAnalyticsChart(f, h); err != nil {
			return err
		}
		log.Printf("Chart written to %s", chart)
	}
	return writeJSON(h, "")
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	var farm, cfgPath, dbPath, id string
	var limit int
	fs.StringVar(&farm, "farm", "", "farm identifier")
	fs.StringVar(&id, "id", "", "show a single analysis")
	fs.StringVar(&cfgPath, "config", "", "config file")
	fs.StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	fs.IntVar(&limit, "limit", 20, "maximum number of analyses")
	_ = fs.Parse(args)

	if farm == "" && id == "" {
		log.Fatalf("usage: %s history -farm farm-id [-limit 20] | -id analysis-id", filepath.Base(os.Args[0]))
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}

	db, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if id != "" {
		a, err := db.GetAnalysis(id)
		if err != nil {
			return err
		}
		return writeJSON(a, "")
	}

	analyses, err := db.ListAnalyses(farm, limit)
	if err != nil {
		return err
	}
	return writeJSON(analyses, "")
}

func runInitWeights(args []string) error {
	fs := flag.NewFlagSet("init-weights", flag.ExitOnError)
	var out string
	var seed uint64
	fs.StringVar(&out, "out", "weights.json", "output weights file")
	fs.Uint64Var(&seed, "seed", 1, "initialisation seed")
	_ = fs.Parse(args)

	if err := utils.EnsureDir(filepath.Dir(out)); err != nil {
		return err
	}
	if err := model.SaveWeights(model.RandomWeights(seed), out); err != nil {
		return err
	}
	log.Printf("Weights written to %s (untrained, seed %d)", out, seed)
	return nil
}

func runCleanup(args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	var cfgPath string
	fs.StringVar(&cfgPath, "config", "", "config file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	maxAge := time.Duration(cfg.Storage.CleanupIntervalHours) * time.Hour
	removed, err := utils.CleanupOldFiles(cfg.Storage.UploadDir, maxAge, time.Now())
	if err != nil {
		return err
	}
	log.Printf("Removed %d file(s) older than %s from %s", removed, maxAge, cfg.Storage.UploadDir)
	return nil
}
