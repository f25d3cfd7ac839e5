// Package cli implements the p7dtool command-line dispatcher: decode a
// single P7D/PLOG dump, or batch-decode a directory of them, optionally
// caching summaries in Redis.
package cli

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/psoff-tools/p7dtrace/internal/batch"
	"github.com/psoff-tools/p7dtrace/internal/bytesource"
	"github.com/psoff-tools/p7dtrace/internal/config"
	"github.com/psoff-tools/p7dtrace/internal/decode"
	"github.com/psoff-tools/p7dtrace/internal/logger"
	"github.com/psoff-tools/p7dtrace/internal/resultcache"
)

// Execute dispatches CLI subcommands.
func Execute(args []string) int {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("[p7dtool] ")

	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "decode":
		return runDecode(args[1:])
	case "batch":
		return runBatch(args[1:])
	case "help", "-h", "--help":
		printUsage()
		return 0
	case "version", "--version", "-v":
		fmt.Println("p7dtool 0.1.0-dev")
		return 0
	default:
		log.Printf("Unknown subcommand: %s", args[0])
		printUsage()
		return 1
	}
}

func runDecode(args []string) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	var (
		configPath string
		format     string
		outPath    string
	)
	fs.StringVar(&configPath, "config", "", "Configuration file path (YAML), optional")
	fs.StringVar(&configPath, "c", "", "Configuration file path (YAML), optional")
	fs.StringVar(&format, "format", "", "Force \"p7d\" or \"plog\" (default: detect by extension)")
	fs.StringVar(&outPath, "out", "", "Write the summary JSON here instead of stdout")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		log.Printf("Failed to parse arguments: %v", err)
		return 1
	}
	if fs.NArg() != 1 {
		log.Println("decode requires exactly one dump path")
		fs.Usage()
		return 2
	}
	path := fs.Arg(0)

	cfg, err := loadOptionalConfig(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 2
	}
	if err := initLogger(cfg, "decode"); err != nil {
		log.Printf("Failed to initialize logging: %v", err)
		return 1
	}
	defer logger.Close()

	if format == "" {
		format = cfg.Decode.Format
	}

	cache, err := openCache(cfg)
	if err != nil {
		logger.Error("Failed to open result cache: %v", err)
		return 1
	}
	if cache != nil {
		defer cache.Close()
	}

	summary, cached, err := decodeOne(context.Background(), path, format, cache)
	if err != nil {
		logger.Error("Decode failed for %s: %v", path, err)
		return 1
	}
	if cached {
		logger.Console("Cache hit: %s", path)
	}

	if outPath == "" {
		os.Stdout.Write(summary)
		os.Stdout.Write([]byte("\n"))
		return 0
	}
	if err := os.WriteFile(outPath, summary, 0644); err != nil {
		logger.Error("Failed to write %s: %v", outPath, err)
		return 1
	}
	logger.Console("Summary written: %s", outPath)
	return 0
}

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	var (
		configPath  string
		dir         string
		outDir      string
		concurrency int
		qps         int
	)
	fs.StringVar(&configPath, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&configPath, "c", "", "Configuration file path (YAML)")
	fs.StringVar(&dir, "dir", "", "Directory of dumps to decode (non-recursive)")
	fs.StringVar(&outDir, "out-dir", "", "Directory to write one <name>.json per dump (default: stdout, one line per file)")
	fs.IntVar(&concurrency, "concurrency", 0, "Overrides config batch.concurrency")
	fs.IntVar(&qps, "qps", 0, "Overrides config batch.qps")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		log.Printf("Failed to parse arguments: %v", err)
		return 1
	}
	if dir == "" {
		log.Println("The --dir flag is required")
		fs.Usage()
		return 2
	}

	cfg, err := loadOptionalConfig(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 2
	}
	if concurrency > 0 {
		cfg.Batch.Concurrency = concurrency
	}
	if qps > 0 {
		cfg.Batch.QPS = qps
	}

	if err := initLogger(cfg, "batch"); err != nil {
		log.Printf("Failed to initialize logging: %v", err)
		return 1
	}
	defer logger.Close()

	paths, err := listDumps(dir)
	if err != nil {
		logger.Error("Failed to list %s: %v", dir, err)
		return 1
	}
	if len(paths) == 0 {
		logger.Warn("No dump files found under %s", dir)
		return 0
	}

	cache, err := openCache(cfg)
	if err != nil {
		logger.Error("Failed to open result cache: %v", err)
		return 1
	}
	if cache != nil {
		defer cache.Close()
	}

	logger.Console("Decoding %d dump(s) from %s, concurrency=%d qps=%d", len(paths), dir, cfg.Batch.Concurrency, cfg.Batch.QPS)

	runner := batch.NewRunner(cfg.Batch.Concurrency, cfg.Batch.QPS)
	results := runner.Run(context.Background(), paths, func(ctx context.Context, path string) ([]byte, error) {
		summary, _, err := decodeOne(ctx, path, cfg.Decode.Format, cache)
		return summary, err
	})

	failed := 0
	for i, r := range results {
		if r.Err != nil {
			logger.Error("%s: %v", r.Path, r.Err)
			failed++
			continue
		}
		if outDir != "" {
			name := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path)) + ".json"
			if err := os.WriteFile(filepath.Join(outDir, name), r.Summary, 0644); err != nil {
				logger.Error("Failed to write summary for %s: %v", r.Path, err)
				failed++
			}
			continue
		}
		logger.Console("[%d/%d] %s decoded", i+1, len(results), r.Path)
	}

	succeeded, failedCount := runner.Stats()
	logger.Console("Batch complete: %d succeeded, %d failed", succeeded, failedCount)
	if failed > 0 {
		return 1
	}
	return 0
}

// decodeOne detects the dump's format, checks cache, decodes on miss, and
// fills the cache on a successful decode.
func decodeOne(ctx context.Context, path, format string, cache *resultcache.Cache) (summary []byte, cached bool, err error) {
	src, err := bytesource.OpenCompressedFile(path)
	if err != nil {
		return nil, false, err
	}

	resolved := format
	if resolved == "" || resolved == "auto" {
		resolved = detectFormat(path)
	}

	var hash string
	if cache != nil {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, false, err
		}
		hash, err = resultcache.Hash(bytes.NewReader(raw))
		if err != nil {
			return nil, false, err
		}
		if sum, ok, err := cache.Get(ctx, hash); err == nil && ok {
			return sum, true, nil
		}
	}

	switch resolved {
	case "p7d":
		diag := func(format string, args ...any) { logger.Debug(format, args...) }
		summary, err = decode.P7D(src, diag)
	case "plog":
		text := make([]byte, src.Remaining())
		if readErr := src.Read(text); readErr != nil {
			return nil, false, readErr
		}
		summary, err = decode.PLOG(bytes.NewReader(text))
	default:
		return nil, false, fmt.Errorf("cli: cannot determine format for %s (pass --format p7d|plog)", path)
	}
	if err != nil {
		return nil, false, err
	}

	if cache != nil {
		if err := cache.Put(ctx, hash, summary); err != nil {
			logger.Warn("Failed to cache summary for %s: %v", path, err)
		}
	}
	return summary, false, nil
}

// detectFormat guesses p7d vs. plog from a file's base extension, stripping
// any whole-file compression suffix first.
func detectFormat(path string) string {
	base := path
	for _, ext := range []string{".zst", ".lz4", ".lzf"} {
		base = strings.TrimSuffix(base, ext)
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".p7d":
		return "p7d"
	case ".plog", ".log", ".txt":
		return "plog"
	default:
		return ""
	}
}

// listDumps returns the non-directory entries of dir, sorted by name.
func listDumps(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// loadOptionalConfig loads path if non-empty, otherwise returns a
// default-initialized, validated Config.
func loadOptionalConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := &config.Config{}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(path)
}

func openCache(cfg *config.Config) (*resultcache.Cache, error) {
	if !cfg.Cache.Enabled() {
		return nil, nil
	}
	return resultcache.Open(context.Background(), resultcache.Config{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		TTL:      cfg.Cache.TTL(),
	})
}

// initLogger configures the global logger for the given subcommand mode.
func initLogger(cfg *config.Config, mode string) error {
	level := parseLogLevel(cfg.Log.Level)
	logDir := cfg.Log.File
	if logDir == "" {
		logDir = "."
	} else {
		logDir = filepath.Dir(logDir)
	}
	prefix := fmt.Sprintf("p7dtrace-%s", mode)
	if err := logger.Init(logDir, level, prefix); err != nil {
		return fmt.Errorf("cli: initializing logger: %w", err)
	}
	log.SetOutput(logger.Writer())
	return nil
}

func parseLogLevel(levelStr string) logger.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return logger.DEBUG
	case "info":
		return logger.INFO
	case "warn", "warning":
		return logger.WARN
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

func printUsage() {
	binary := filepath.Base(os.Args[0])
	fmt.Printf(`p7dtool - P7D/PLOG trace dump decoder and heuristic analyzer

Usage:
  %[1]s <command> [options]

Available commands:
  decode   Decode a single dump or log and print its JSON summary
  batch    Decode every dump in a directory concurrently
  help     Show this help
  version  Show version info

Examples:
  %[1]s decode --format p7d dump.p7d
  %[1]s decode trace.plog > summary.json
  %[1]s batch --config p7dtool.yaml --dir ./dumps --out-dir ./summaries
`, binary)
}
