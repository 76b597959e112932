package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"betadrift/internal/config"
	"betadrift/internal/dataset"
	"betadrift/internal/infrastructure"
	"betadrift/internal/regression"
	"betadrift/internal/report"
)

func main() {
	csvPath := flag.String("csv", "", "input CSV of dated prices (wide Date,X,Y or long Date,Symbol,...,Close)")
	xSymbol := flag.String("x", "", "regressor ticker symbol")
	ySymbol := flag.String("y", "", "response ticker symbol")
	outDir := flag.String("out", "", "output directory for report artifacts (defaults to output)")
	chains := flag.Int("chains", 0, "number of MCMC chains")
	draws := flag.Int("draws", 0, "kept posterior draws per chain")
	warmup := flag.Int("warmup", -1, "discarded warmup iterations per chain")
	thin := flag.Int("thin", 0, "keep every thin-th post-warmup iteration")
	seed := flag.Uint64("seed", 0, "random seed for the per-chain streams")
	cores := flag.Int("cores", 0, "max chains running at once (0 = all)")
	stride := flag.Int("stride", 0, "keep every stride-th observation before sampling")
	from := flag.String("from", "", "start of the date range (YYYY-MM-DD)")
	to := flag.String("to", "", "end of the date range (YYYY-MM-DD)")
	configPath := flag.String("config", "", "explicit YAML config file (defaults to discovery)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	applyFlagOverrides(cfg, flagOverrides{
		CSVPath: *csvPath,
		XSymbol: *xSymbol,
		YSymbol: *ySymbol,
		OutDir:  *outDir,
		Chains:  *chains,
		Draws:   *draws,
		Warmup:  *warmup,
		Thin:    *thin,
		Seed:    *seed,
		Cores:   *cores,
		Stride:  *stride,
		From:    *from,
		To:      *to,
	})

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	runID := infrastructure.GenerateRunID()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.WithRunID(ctx, runID)

	if err := run(ctx, cfg, logger, runID); err != nil {
		logger.ErrorContext(ctx, "Analysis failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// flagOverrides collects the command-line values that take precedence over
// the env/file config. Zero values mean the flag was left at its default
// and the config stands (warmup uses -1 because 0 is a valid warmup).
type flagOverrides struct {
	CSVPath string
	XSymbol string
	YSymbol string
	OutDir  string
	Chains  int
	Draws   int
	Warmup  int
	Thin    int
	Seed    uint64
	Cores   int
	Stride  int
	From    string
	To      string
}

func applyFlagOverrides(cfg *config.Config, f flagOverrides) {
	if f.CSVPath != "" {
		cfg.Data.CSVPath = f.CSVPath
	}
	if f.XSymbol != "" {
		cfg.Data.XSymbol = f.XSymbol
	}
	if f.YSymbol != "" {
		cfg.Data.YSymbol = f.YSymbol
	}
	if f.OutDir != "" {
		cfg.Output.Dir = f.OutDir
	}
	if f.Chains > 0 {
		cfg.Sampler.Chains = f.Chains
	}
	if f.Draws > 0 {
		cfg.Sampler.Draws = f.Draws
	}
	if f.Warmup >= 0 {
		cfg.Sampler.Warmup = &f.Warmup
	}
	if f.Thin > 0 {
		cfg.Sampler.Thin = f.Thin
	}
	if f.Seed > 0 {
		cfg.Sampler.Seed = &f.Seed
	}
	if f.Cores > 0 {
		cfg.Sampler.Cores = f.Cores
	}
	if f.Stride > 0 {
		cfg.Data.Stride = f.Stride
	}
	if f.From != "" {
		cfg.Data.From = f.From
	}
	if f.To != "" {
		cfg.Data.To = f.To
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, runID string) error {
	start := time.Now()
	logger.InfoContext(ctx, "Starting analysis",
		slog.String("csv", cfg.Data.CSVPath),
		slog.String("x_symbol", cfg.Data.XSymbol),
		slog.String("y_symbol", cfg.Data.YSymbol),
		slog.String("output_dir", cfg.Output.Dir))

	pair, scaleX, scaleY, err := prepareData(ctx, cfg, logger)
	if err != nil {
		return err
	}

	model, err := regression.NewModel(pair.XValues(), pair.YValues(), toPriors(cfg.Model))
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	sampler, err := regression.NewSampler(toSamplerConfig(cfg.Sampler), logger)
	if err != nil {
		return err
	}

	fmt.Printf("Sampling %d chains x %d draws over %d observations\n",
		cfg.Sampler.Chains, cfg.Sampler.Draws, pair.Len())

	posterior, err := sampler.Sample(ctx, model)
	if err != nil {
		return fmt.Errorf("sample posterior: %w", err)
	}

	diag := posterior.Diagnose(ctx, logger, cfg.Model.CredibleLevel)
	if !diag.Converged {
		fmt.Println("Warning: convergence diagnostics flagged this run, see the log")
	}

	pooled, err := regression.PooledOLS(pair.XValues(), pair.YValues())
	if err != nil {
		return fmt.Errorf("pooled OLS baseline: %w", err)
	}

	var rolling []regression.OLSFit
	if cfg.Output.RollingWindow <= pair.Len() {
		rolling, err = regression.RollingOLS(pair.XValues(), pair.YValues(), cfg.Output.RollingWindow)
		if err != nil {
			return fmt.Errorf("rolling OLS baseline: %w", err)
		}
	} else {
		logger.WarnContext(ctx, "Skipping rolling OLS baseline, series shorter than window",
			slog.Int("observations", pair.Len()),
			slog.Int("window", cfg.Output.RollingWindow))
	}

	rep := &report.Report{
		RunID:       runID,
		GeneratedAt: time.Now(),
		XSymbol:     cfg.Data.XSymbol,
		YSymbol:     cfg.Data.YSymbol,
		Pair:        pair,
		XScale:      scaleX,
		YScale:      scaleY,
		Level:       cfg.Model.CredibleLevel,
		Alpha:       posterior.AlphaSummary(cfg.Model.CredibleLevel),
		Beta:        posterior.BetaSummary(cfg.Model.CredibleLevel),
		Diagnostics: diag,
		Pooled:      pooled,
		Rolling:     rolling,
		Posterior:   posterior,
		Sampler:     sampler.Config(),
	}

	written, err := writeArtifacts(cfg, rep)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Analysis completed",
		slog.Int("observations", pair.Len()),
		slog.Int("total_draws", posterior.TotalDraws()),
		slog.Bool("converged", diag.Converged),
		slog.String("elapsed", time.Since(start).Round(time.Millisecond).String()))

	fmt.Printf("Analysis complete: %d observations, %d kept draws\n", pair.Len(), posterior.TotalDraws())
	for _, path := range written {
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

// prepareData loads the pair, applies the configured date range and
// stride, and standardizes both series
func prepareData(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dataset.Pair, dataset.Standardization, dataset.Standardization, error) {
	var none dataset.Standardization

	pair, err := dataset.LoadPair(ctx, dataset.LoadOptions{
		Path:    cfg.Data.CSVPath,
		XSymbol: cfg.Data.XSymbol,
		YSymbol: cfg.Data.YSymbol,
		Format:  dataset.Format(cfg.Data.Format),
		Logger:  logger,
	})
	if err != nil {
		return dataset.Pair{}, none, none, fmt.Errorf("load data: %w", err)
	}

	from, err := cfg.Data.FromTime()
	if err != nil {
		return dataset.Pair{}, none, none, err
	}
	to, err := cfg.Data.ToTime()
	if err != nil {
		return dataset.Pair{}, none, none, err
	}
	if !from.IsZero() || !to.IsZero() {
		pair, err = pair.Clip(from, to)
		if err != nil {
			return dataset.Pair{}, none, none, fmt.Errorf("clip date range: %w", err)
		}
	}

	if cfg.Data.Stride > 1 {
		pair, err = pair.Subsample(cfg.Data.Stride)
		if err != nil {
			return dataset.Pair{}, none, none, fmt.Errorf("subsample: %w", err)
		}
		logger.InfoContext(ctx, "Subsampled observations",
			slog.Int("stride", cfg.Data.Stride),
			slog.Int("remaining", pair.Len()))
	}

	standardized, scaleX, scaleY, err := pair.Standardize()
	if err != nil {
		return dataset.Pair{}, none, none, fmt.Errorf("standardize: %w", err)
	}
	return standardized, scaleX, scaleY, nil
}

// writeArtifacts persists the configured outputs and returns their paths
func writeArtifacts(cfg *config.Config, rep *report.Report) ([]string, error) {
	var written []string

	csvPath := filepath.Join(cfg.Output.Dir, "summary.csv")
	if err := report.WriteSummaryCSV(csvPath, rep); err != nil {
		return written, fmt.Errorf("write summary CSV: %w", err)
	}
	written = append(written, csvPath)

	if cfg.Output.WorkbookEnabled() {
		wbPath := filepath.Join(cfg.Output.Dir, "betadrift.xlsx")
		if err := report.WriteWorkbook(wbPath, rep); err != nil {
			return written, fmt.Errorf("write workbook: %w", err)
		}
		written = append(written, wbPath)
	}

	if cfg.Output.FiguresEnabled() {
		figures, err := report.WriteFigures(filepath.Join(cfg.Output.Dir, "figures"), rep, report.FigureOptions{
			SpaghettiPaths: cfg.Output.SpaghettiPaths,
			FitLines:       cfg.Output.FitLines,
		})
		written = append(written, figures...)
		if err != nil {
			return written, fmt.Errorf("write figures: %w", err)
		}
	}

	return written, nil
}

func toPriors(m config.ModelConfig) regression.Priors {
	return regression.Priors{
		InitVar: m.InitVar,
		WalkA:   regression.InverseGamma{Shape: m.WalkShape, Scale: m.WalkScale},
		WalkB:   regression.InverseGamma{Shape: m.WalkShape, Scale: m.WalkScale},
		Noise:   regression.InverseGamma{Shape: m.NoiseShape, Scale: m.NoiseScale},
	}
}

func toSamplerConfig(s config.SamplerConfig) regression.SamplerConfig {
	return regression.SamplerConfig{
		Chains: s.Chains,
		Draws:  s.Draws,
		Warmup: s.WarmupIters(),
		Thin:   s.Thin,
		Seed:   s.SeedValue(),
		Cores:  s.Cores,
	}
}
