package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"framesight/internal/classifier"
	"framesight/internal/config"
	"framesight/internal/learning"
	"framesight/internal/logger"
	"framesight/internal/model"
	"framesight/internal/parser"
	"framesight/internal/service"
	"framesight/internal/tagger"
	"framesight/internal/validator"
)

type rootOptions struct {
	configPath string
	logLevel   string
	output     string // json or pretty
	serviceURL string
}

// app is the wired pipeline one command invocation works with.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	parser     *parser.Parser
	client     *service.MLClient
	tracker    *learning.Tracker
	classifier *classifier.Classifier
	tagger     *tagger.Tagger
	validator  *validator.Validator
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "framesight",
		Short: "Structural model ingestion, classification, and member tagging",
		Long: `framesight parses STAAD and SAP2000 structural model files, derives
building geometry, classifies the building type, and assigns a
structural role to every member. Classification prefers the remote
learned service; the geometric rule cascade is available with
--local-rules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.output, "format", "f", "pretty", "output format: pretty or json")
	pf.StringVar(&opts.serviceURL, "service-url", "", "base URL of the classification service")

	root.AddCommand(
		newParseCmd(opts),
		newClassifyCmd(opts),
		newTagCmd(opts),
		newValidateCmd(opts),
		newCorrectCmd(opts),
	)
	return root
}

func buildApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.serviceURL != "" {
		cfg.ML.BaseURL = opts.serviceURL
	}
	if opts.output != "pretty" && opts.output != "json" {
		return nil, fmt.Errorf("unknown output format %q", opts.output)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "framesight")
	if err != nil {
		return nil, err
	}

	p := parser.New(log)
	p.ImperialThreshold = cfg.Parser.ImperialThreshold

	client := service.NewMLClient(cfg.ML.BaseURL, service.RetryPolicy{
		MaxAttempts:       cfg.ML.MaxAttempts,
		RetryWait:         cfg.ML.RetryWait.Std(),
		RetryMaxWait:      cfg.ML.RetryMaxWait.Std(),
		PerAttemptTimeout: cfg.ML.PerAttemptTimeout.Std(),
	}, log)

	tracker := learning.NewTracker(client, cfg.Learning.RetrainEvery, log)

	return &app{
		cfg:        cfg,
		log:        log,
		parser:     p,
		client:     client,
		tracker:    tracker,
		classifier: classifier.New(client, tracker, log),
		tagger:     tagger.New(tracker, log),
		validator:  validator.New(log),
		output:     opts.output,
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

// parseFile reads and parses one model file.
func (a *app) parseFile(path string) (*model.Model, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return a.parser.Parse(content, path)
}
