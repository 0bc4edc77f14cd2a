package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/TFMV/dollargraph/canvas"
	"github.com/TFMV/dollargraph/config"
	"github.com/TFMV/dollargraph/ingest"
	"github.com/TFMV/dollargraph/models"
	"github.com/TFMV/dollargraph/observability"
	"github.com/TFMV/dollargraph/physics"
	"github.com/TFMV/dollargraph/render"
	"github.com/TFMV/dollargraph/server"
	"github.com/TFMV/dollargraph/session"
	"github.com/TFMV/dollargraph/store"
	"github.com/TFMV/dollargraph/tui"
	"go.uber.org/zap"
)

func main() {
	// Cancel on SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "dollargraph: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Log lines would tear the terminal canvas
	if cfg.Mode == "tui" {
		logger = zap.NewNop()
	}
	logger.Debug("configuration loaded",
		zap.String("mode", cfg.Mode),
		zap.String("file", cfg.File),
	)

	board, err := loadBoard(ctx, cfg, logger)
	if err != nil {
		return err
	}

	switch cfg.Mode {
	case "render":
		return renderBoard(ctx, cfg, board, logger)
	case "tui":
		sess, err := session.New(board, sessionOptions(cfg, logger, nil))
		if err != nil {
			return err
		}
		return tui.Run(ctx, sess, tui.Options{Layout: cfg.Layout})
	default:
		return serve(ctx, cfg, board, logger)
	}
}

func layoutOptions(cfg *config.Config) physics.Options {
	opts := physics.DefaultOptions()
	opts.MaxIterations = cfg.MaxIterations
	opts.Margin = cfg.VertexRadius + physics.DefaultMargin - canvas.DefaultRadius
	return opts
}

func sessionOptions(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) session.Options {
	return session.Options{
		Radius:  cfg.VertexRadius,
		Layout:  layoutOptions(cfg),
		Logger:  logger,
		Metrics: metrics,
	}
}

// loadBoard reads the data file, or starts an empty board of the configured
// size. Imported vertices without coordinates are laid out.
func loadBoard(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*models.Graph, error) {
	if cfg.DataFile == "" {
		board := models.NewGraph("untitled")
		board.SetDimensions(cfg.Width, cfg.Height)
		return board, nil
	}

	data, err := os.ReadFile(cfg.DataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	format := ingest.FormatFromPath(cfg.DataFile)
	board, err := ingest.Process(format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", cfg.DataFile, err)
	}

	if physics.Unplaced(board) {
		steps, err := physics.Arrange(ctx, board, cfg.Layout, layoutOptions(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to lay out board: %w", err)
		}
		logger.Debug("board laid out", zap.String("layout", cfg.Layout), zap.Int("steps", steps))
	}

	logger.Info("board loaded",
		zap.String("file", cfg.DataFile),
		zap.String("format", format),
		zap.Int("vertices", len(board.Vertices)),
		zap.Int("edges", len(board.Edges)),
	)
	return board, nil
}

func renderBoard(ctx context.Context, cfg *config.Config, board *models.Graph, logger *zap.Logger) error {
	opts := render.NewDefaultOptions(cfg.Format)
	opts.VertexRadius = cfg.VertexRadius
	opts.Palette = render.GetPalette(cfg.Palette)
	if cfg.Arrange {
		tuning := layoutOptions(cfg)
		opts.Layout = cfg.Layout
		opts.Physics = &tuning
	}

	output, err := render.Generate(ctx, board, opts)
	if err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}
	if err := os.WriteFile(cfg.OutputFile, output, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	logger.Info("board rendered", zap.String("format", cfg.Format), zap.String("output", cfg.OutputFile))
	return nil
}

func serve(ctx context.Context, cfg *config.Config, board *models.Graph, logger *zap.Logger) error {
	var metrics *observability.Metrics
	if cfg.EnableMetrics {
		metrics = observability.NewMetrics()
	}

	var boards models.GraphRepository
	if cfg.StorePath != "" {
		sqlite, err := store.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		boards = sqlite
		logger.Info("using sqlite board store", zap.String("path", cfg.StorePath))
	} else {
		boards = store.NewMemoryStore()
	}

	sess, err := session.New(board, sessionOptions(cfg, logger, metrics))
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics,
		Layout:         cfg.Layout,
		Format:         cfg.Format,
		Palette:        cfg.Palette,
	}, sess, boards, logger, metrics)
	return srv.Start(ctx)
}
