package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/user"
	"strings"

	ap "github.com/admarple/apothecary"
	"github.com/admarple/apothecary/internal/awsenv"
	"github.com/admarple/apothecary/internal/config"
	"github.com/admarple/apothecary/internal/logging"
	"github.com/admarple/apothecary/model"
	"go.uber.org/zap"
)

// commonFlags are accepted by every command that touches storage.
type commonFlags struct {
	configPath string
	backend    string
	prefix     string
	userPrefix bool
	dataDir    string
	endpoint   string
	region     string
	logLevel   string
	logFile    string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", "", "config file (default: nearest "+config.FileName+")")
	fs.StringVar(&c.backend, "backend", "", "storage backend: dynamodb, memory or badger")
	fs.StringVar(&c.prefix, "prefix", "", "table name prefix")
	fs.BoolVar(&c.userPrefix, "user-prefix", false, `use "<os user>_" as the table name prefix`)
	fs.StringVar(&c.dataDir, "data-dir", "", "badger data directory")
	fs.StringVar(&c.endpoint, "endpoint", "", "DynamoDB endpoint override")
	fs.StringVar(&c.region, "region", "", "AWS region")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&c.logFile, "log-file", "", "log file (default: standard error)")
	return c
}

// resolve loads the config file and environment, then applies the flags that were set.
func (c *commonFlags) resolve(fs *flag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = c.backend
		case "prefix":
			cfg.TablePrefix = c.prefix
		case "data-dir":
			cfg.DataDir = c.dataDir
		case "endpoint":
			cfg.Endpoint = c.endpoint
		case "region":
			cfg.Region = c.region
		case "log-level":
			cfg.LogLevel = c.logLevel
		case "log-file":
			cfg.LogFile = c.logFile
		}
	})
	if c.userPrefix {
		prefix, err := userPrefix()
		if err != nil {
			return cfg, err
		}
		cfg.TablePrefix = prefix
	}
	return cfg, cfg.Validate()
}

func userPrefix() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("error resolving the current user: %w", err)
	}
	return strings.ToLower(u.Username) + "_", nil
}

// env is everything a command needs once flags are parsed.
type env struct {
	cfg      config.Config
	logger   *zap.Logger
	store    ap.Store
	registry ap.Registry
	closers  []func() error
}

func newEnv(ctx context.Context, cfg config.Config) (*env, error) {
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}
	e := &env{
		cfg:      cfg,
		logger:   logger,
		registry: model.Registry().WithPrefix(cfg.TablePrefix),
	}
	e.closers = append(e.closers, func() error {
		_ = logger.Sync()
		return nil
	})
	store, err := e.openStore(ctx)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.store = store
	logger.Debug("environment ready",
		zap.String("backend", cfg.Backend),
		zap.String("tablePrefix", cfg.TablePrefix),
		zap.String("config", cfg.Path))
	return e, nil
}

func (e *env) openStore(ctx context.Context) (ap.Store, error) {
	switch e.cfg.Backend {
	case config.BackendMemory:
		return ap.NewMemStore(), nil
	case config.BackendBadger:
		store, err := ap.OpenBadgerStore(ap.BadgerOptions{Dir: e.cfg.DataDir, Logger: e.logger})
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, store.Close)
		return store, nil
	default:
		awsCfg, err := awsenv.LoadConfig(ctx, awsenv.Options{Region: e.cfg.Region, Endpoint: e.cfg.Endpoint})
		if err != nil {
			return nil, err
		}
		return ap.NewDynamoStore(awsenv.NewDynamoDB(awsCfg, e.cfg.Endpoint), e.logger), nil
	}
}

func (e *env) site() (model.Site, error) {
	site, err := model.NewSite(e.store, e.registry, e.logger)
	if err != nil {
		return site, err
	}
	return site.WithPageSize(e.cfg.PageSize), nil
}

// Close releases the store and flushes the logger, in reverse order of acquisition.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	return errors.Join(errs...)
}
