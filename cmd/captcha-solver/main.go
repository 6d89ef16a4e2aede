// Package main provides the captcha-solver command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ironsheep/captcha-solver/internal/bank"
	"github.com/ironsheep/captcha-solver/internal/captcha"
	"github.com/ironsheep/captcha-solver/internal/config"
	"github.com/ironsheep/captcha-solver/internal/imaging"
	"github.com/ironsheep/captcha-solver/internal/logging"
	"github.com/ironsheep/captcha-solver/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// CLI defines the command-line interface using Kong
type CLI struct {
	EnvFile   string `name:"env-file" help:"Environment file to load (default: .env when present)" type:"path"`
	BankPath  string `name:"bank" short:"b" help:"Template bank, overrides CAPTCHA_BANK_PATH" type:"path"`
	Threshold int    `name:"threshold" default:"-1" help:"Binarization threshold, overrides CAPTCHA_THRESHOLD when set"`
	DebugDir  string `name:"debug-dir" help:"Write glyph images of every solve here" type:"path"`
	LogLevel  string `name:"log-level" help:"debug, info, warn or error"`
	LogFormat string `name:"log-format" help:"text or json"`

	// Subcommands
	Solve   SolveCmd   `cmd:"" help:"Recognize a captcha and write its answer"`
	Segment SegmentCmd `cmd:"" help:"Show how a captcha is split into glyphs"`
	Bank    BankCmd    `cmd:"" help:"Inspect or convert template banks"`
	Serve   ServeCmd   `cmd:"" help:"Run the MCP server on stdin/stdout"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// app carries what every command needs once flags are parsed.
type app struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
}

// config applies command line overrides on top of the environment.
func (c *CLI) config() (*config.Config, error) {
	cfg, err := config.Load(c.EnvFile)
	if err != nil {
		return nil, err
	}
	if c.BankPath != "" {
		cfg.BankPath = c.BankPath
	}
	if c.Threshold >= 0 {
		cfg.Threshold = c.Threshold
	}
	if c.DebugDir != "" {
		cfg.DebugDir = c.DebugDir
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.LogFormat = c.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// solver loads the configured bank once and wraps it in a solver.
func (a *app) solver() (*captcha.Solver, error) {
	b, err := bank.Load(a.cfg.BankPath, a.cfg.GlyphRows, a.cfg.GlyphCols)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("template bank loaded",
		"path", b.Source(),
		"templates", b.Len(),
		"fingerprint", b.Fingerprint())
	return captcha.New(a.cfg, b, a.logger)
}

// SolveCmd recognizes one captcha
type SolveCmd struct {
	Input   string `arg:"" help:"Captcha raster (.txt, .jpg, .png, ...)" type:"path"`
	Out     string `name:"out" short:"o" default:"-" help:"Answer file, - for stdout"`
	Explain bool   `name:"explain" short:"e" help:"Print per-glyph scores to stderr"`
}

func (c *SolveCmd) Run(a *app) error {
	s, err := a.solver()
	if err != nil {
		return err
	}

	if !c.Explain {
		_, err := s.SolveFile(a.ctx, c.Input, c.Out)
		return err
	}

	r, err := imaging.LoadRaster(c.Input)
	if err != nil {
		return err
	}
	report, err := s.Explain(r)
	if err != nil {
		return err
	}
	if err := captcha.WriteAnswer(c.Out, report.Answer); err != nil {
		return err
	}
	printReport(os.Stderr, report)
	return nil
}

func printReport(w io.Writer, report *captcha.Report) {
	fmt.Fprintf(w, "answer %s, band rows %d-%d\n", report.Answer, report.Rows[0], report.Rows[1])
	for _, g := range report.Glyphs {
		fmt.Fprintf(w, "  glyph %d  columns %2d-%2d  %s %s", g.Index, g.Columns[0], g.Columns[1], g.Label, formatScore(g.Score))
		if g.RunnerUp != "" {
			fmt.Fprintf(w, "  runner-up %s %s", g.RunnerUp, formatScore(g.RunnerUpScore))
		}
		fmt.Fprintln(w)
	}
	if report.IgnoredRowRuns > 0 || report.IgnoredColumnRuns > 0 {
		fmt.Fprintf(w, "  ignored %d row runs, %d column runs\n", report.IgnoredRowRuns, report.IgnoredColumnRuns)
	}
}

func formatScore(v *float64) string {
	if v == nil {
		return "(undefined)"
	}
	return fmt.Sprintf("(%.4f)", *v)
}

// SegmentCmd prints the segmentation of a captcha
type SegmentCmd struct {
	Input string `arg:"" help:"Captcha raster" type:"path"`
}

func (c *SegmentCmd) Run(a *app) error {
	s, err := a.solver()
	if err != nil {
		return err
	}
	r, err := imaging.LoadRaster(c.Input)
	if err != nil {
		return err
	}
	layout, err := s.Segment(r)
	if err != nil {
		return err
	}

	seg := layout.Segmentation
	fmt.Fprintf(a.stdout, "raster %dx%d, band rows %d-%d (%d row runs, %d column runs)\n",
		r.Width(), r.Height(), seg.Row.Start, seg.Row.End, seg.RowRuns, seg.ColumnRuns)
	for i, g := range layout.Glyphs {
		fmt.Fprintf(a.stdout, "\nglyph %d, columns %d-%d\n", i, seg.Columns[i].Start, seg.Columns[i].End)
		for _, row := range g.RowStrings() {
			fmt.Fprintln(a.stdout, renderRow(row))
		}
	}
	return nil
}

// renderRow draws ink as '#' and background as '.'.
func renderRow(row string) string {
	return strings.NewReplacer("0", "#", "1", ".").Replace(row)
}

// BankCmd groups template bank commands
type BankCmd struct {
	Info    BankInfoCmd    `cmd:"" help:"Describe a template bank"`
	Convert BankConvertCmd `cmd:"" help:"Copy a bank to another format, keeping template order"`
}

// BankInfoCmd prints bank metadata as JSON
type BankInfoCmd struct {
	Path string `arg:"" optional:"" help:"Bank to describe (default: configured bank)" type:"path"`
}

func (c *BankInfoCmd) Run(a *app) error {
	path := c.Path
	if path == "" {
		path = a.cfg.BankPath
	}
	b, err := bank.Load(path, a.cfg.GlyphRows, a.cfg.GlyphCols)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(b.Info())
}

// BankConvertCmd rewrites a bank as YAML or SQLite
type BankConvertCmd struct {
	From string `arg:"" help:"Source bank" type:"path"`
	To   string `arg:"" help:"Destination (.yaml, .yml, .db, .sqlite)" type:"path"`
}

func (c *BankConvertCmd) Run(a *app) error {
	b, err := bank.Load(c.From, a.cfg.GlyphRows, a.cfg.GlyphCols)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(c.To)) {
	case ".yaml", ".yml":
		f, err := os.Create(c.To)
		if err != nil {
			return fmt.Errorf("failed to create bank: %w", err)
		}
		if err := bank.WriteYAML(f, b); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write bank: %w", err)
		}
	case ".db", ".sqlite":
		if err := bank.WriteSQLite(c.To, b); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported bank destination %q", c.To)
	}

	a.logger.Info("bank converted", "from", c.From, "to", c.To, "templates", b.Len(), "fingerprint", b.Fingerprint())
	return nil
}

// ServeCmd runs the MCP server
type ServeCmd struct{}

func (c *ServeCmd) Run(a *app) error {
	s, err := a.solver()
	if err != nil {
		return err
	}
	server.Version = Version
	a.logger.Info("captcha MCP server starting", "version", Version, "bank", a.cfg.BankPath)
	return server.New(s, a.logger).Run(a.ctx)
}

// VersionCmd prints version information
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	fmt.Fprintf(a.stdout, "captcha-solver %s\n", Version)
	fmt.Fprintf(a.stdout, "  Build time: %s\n", BuildTime)
	fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("captcha-solver"),
		kong.Description("Solve fixed-format 5-glyph captchas by template correlation"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	cfg, err := cli.config()
	if err != nil {
		fmt.Fprintf(os.Stderr, "captcha-solver: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr; stdout carries answers and the MCP protocol.
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&app{ctx: ctx, cfg: cfg, logger: logger, stdout: os.Stdout})
	if err != nil {
		logger.Error("command failed", "command", kctx.Command(), "error", err)
		stop()
		os.Exit(exitCode(err))
	}
}
