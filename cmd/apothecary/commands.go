package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	ap "github.com/admarple/apothecary"
	"github.com/admarple/apothecary/internal/awsenv"
	"github.com/admarple/apothecary/model"
	"go.uber.org/zap"
)

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "apothecary %s - %s\n\nUsage:\n  apothecary %s [flags]\n\nFlags:\n", name, usage, name)
		fs.PrintDefaults()
	}
	return fs
}

func runSetup(args []string) error {
	fs := newFlagSet("setup", "create every table")
	common := addCommonFlags(fs)
	var (
		fresh = fs.Bool("fresh-tables", false, "delete existing tables first (destroys their data)")
		seed  = fs.String("seed", "", `content to load after setup: a YAML file, or "default" for the bundled content`)
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.resolve(fs)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	e, err := newEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()
	return setup(ctx, e, *fresh, *seed)
}

func setup(ctx context.Context, e *env, fresh bool, seedPath string) error {
	var (
		seed model.Seed
		err  error
	)
	if seedPath != "" {
		seed, err = loadSeed(seedPath)
		if err != nil {
			return err
		}
	}
	err = e.registry.Setup(ctx, e.store, ap.SetupOptions{FreshTables: fresh, Logger: e.logger})
	if err != nil {
		return err
	}
	if seedPath == "" {
		return nil
	}
	site, err := e.site()
	if err != nil {
		return err
	}
	return site.ApplySeed(ctx, seed)
}

func loadSeed(path string) (model.Seed, error) {
	if path == "default" {
		return model.DefaultSeed()
	}
	return model.LoadSeedFile(path)
}

func runDump(name string, args []string, mealOnly bool) error {
	usage := "write every RSVP as CSV"
	if mealOnly {
		usage = "write RSVPs with a meal preference as CSV"
	}
	fs := newFlagSet(name, usage)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.resolve(fs)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	e, err := newEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()
	return dump(ctx, e, os.Stdout, mealOnly)
}

func dump(ctx context.Context, e *env, w io.Writer, mealOnly bool) error {
	site, err := e.site()
	if err != nil {
		return err
	}
	n, err := site.DumpRSVPs(ctx, w, mealOnly)
	if err != nil {
		return err
	}
	e.logger.Info("rsvps dumped", zap.Int("rows", n), zap.Bool("mealOnly", mealOnly))
	return nil
}

func runTables(args []string) error {
	fs := newFlagSet("tables", "show the status of every table")
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.resolve(fs)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	e, err := newEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()
	return tables(ctx, e, os.Stdout)
}

func tables(ctx context.Context, e *env, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tTABLE\tSTATUS\tITEMS")
	for _, s := range e.registry.Schemas() {
		ref, err := e.store.DescribeTable(ctx, s.TableName)
		switch {
		case err == nil:
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.EntityType, ref.Name, ref.Status, ref.ItemCount)
		case errors.Is(err, ap.ErrTableNotFound):
			fmt.Fprintf(tw, "%s\t%s\t%s\t-\n", s.EntityType, s.TableName, "MISSING")
		default:
			return err
		}
	}
	return tw.Flush()
}

func runCheck(args []string) error {
	fs := newFlagSet("check", "show the AWS identity behind the current credentials")
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.resolve(fs)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	awsCfg, err := awsenv.LoadConfig(ctx, awsenv.Options{Region: cfg.Region, Endpoint: cfg.Endpoint})
	if err != nil {
		return err
	}
	id, err := awsenv.CallerIdentity(ctx, awsenv.NewSTS(awsCfg))
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}
