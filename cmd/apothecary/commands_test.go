package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ap "github.com/admarple/apothecary"
	"github.com/admarple/apothecary/internal/config"
	"github.com/admarple/apothecary/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var ctx = context.Background()

func newTestEnv(t *testing.T) *env {
	t.Helper()
	return &env{
		cfg:      config.Config{Backend: config.BackendMemory},
		logger:   zaptest.NewLogger(t),
		store:    ap.NewMemStore(),
		registry: model.Registry().WithPrefix("test_"),
	}
}

func newBadgerEnv(t *testing.T) *env {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store, err := ap.OpenBadgerStore(ap.BadgerOptions{Dir: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	e := &env{
		cfg:      config.Config{Backend: config.BackendBadger},
		logger:   logger,
		store:    store,
		registry: model.Registry().WithPrefix("test_"),
		closers:  []func() error{store.Close},
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestCommonFlags_Resolve(t *testing.T) {
	expect := assert.New(t)
	path := filepath.Join(t.TempDir(), "apothecary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: badger\ndataDir: ./data\ntablePrefix: dev_\n"), 0o644))
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	common := addCommonFlags(fs)
	expect.NoError(fs.Parse([]string{"--config", path, "--backend", "memory", "--log-level", "debug"}))
	cfg, err := common.resolve(fs)
	if expect.NoError(err) {
		expect.Equal(config.BackendMemory, cfg.Backend)
		expect.Equal("dev_", cfg.TablePrefix)
		expect.Equal("./data", cfg.DataDir)
		expect.Equal("debug", cfg.LogLevel)
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	common = addCommonFlags(fs)
	expect.NoError(fs.Parse([]string{"--config", path, "--data-dir", ""}))
	_, err = common.resolve(fs)
	expect.ErrorContains(err, "data directory")
}

func TestSetupAndDump(t *testing.T) {
	expect := assert.New(t)
	e := newTestEnv(t)
	require.NoError(t, setup(ctx, e, false, "default"))

	var out bytes.Buffer
	expect.NoError(tables(ctx, e, &out))
	expect.Contains(out.String(), "test_Section")
	expect.Contains(out.String(), "ACTIVE")
	expect.NotContains(out.String(), "MISSING")

	site, err := e.site()
	require.NoError(t, err)
	page, err := site.PageContext(ctx, "index")
	if expect.NoError(err) {
		expect.Equal("Tatiana & Alex", page.Title)
	}
	_, _, err = site.SubmitRSVP(ctx, model.RSVPForm{Name: "Jane Doe", MealPreference: "fish"})
	expect.NoError(err)
	_, _, err = site.SubmitRSVP(ctx, model.RSVPForm{Name: "John Roe"})
	expect.NoError(err)

	out.Reset()
	expect.NoError(dump(ctx, e, &out, true))
	expect.Equal(2, strings.Count(out.String(), "\n"))
	expect.Contains(out.String(), `"jane doe"`)

	out.Reset()
	expect.NoError(dump(ctx, e, &out, false))
	expect.Equal(3, strings.Count(out.String(), "\n"))

	// fresh tables drop the responses but keep the seed
	expect.NoError(setup(ctx, e, true, "default"))
	out.Reset()
	expect.NoError(dump(ctx, e, &out, false))
	expect.Empty(out.String())
	_, err = site.SectionGroup(ctx, "travel")
	expect.NoError(err)
}

func TestTables_Missing(t *testing.T) {
	expect := assert.New(t)
	e := newTestEnv(t)
	var out bytes.Buffer
	expect.NoError(tables(ctx, e, &out))
	expect.Equal(5, strings.Count(out.String(), "MISSING"))
}

func TestSetup_BadSeed(t *testing.T) {
	expect := assert.New(t)
	e := newTestEnv(t)
	expect.Error(setup(ctx, e, false, filepath.Join(t.TempDir(), "missing.yaml")))
	var out bytes.Buffer
	expect.NoError(tables(ctx, e, &out))
	expect.Equal(5, strings.Count(out.String(), "MISSING"))
}

func TestSetup_FreshBadger(t *testing.T) {
	expect := assert.New(t)
	e := newBadgerEnv(t)
	require.NoError(t, setup(ctx, e, false, "default"))
	site, err := e.site()
	require.NoError(t, err)
	_, _, err = site.SubmitRSVP(ctx, model.RSVPForm{Name: "Jane Doe", MealPreference: "fish"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, setup(ctx, e, true, "default"), "fresh setup %d", i)
	}
	var out bytes.Buffer
	expect.NoError(dump(ctx, e, &out, false))
	expect.Empty(out.String())
	page, err := site.PageContext(ctx, "travel")
	if expect.NoError(err) {
		expect.Equal("Tatiana & Alex", page.Title)
		expect.Len(page.HeaderNavs, 5)
	}

	out.Reset()
	expect.NoError(tables(ctx, e, &out))
	expect.Equal(5, strings.Count(out.String(), "ACTIVE"))
}
