package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad(t *testing.T) {
	expect := assert.New(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "backend: badger\ndataDir: ./data\ntablePrefix: dev_\npageSize: 25\n")
	t.Setenv("APOTHECARY_TABLE_PREFIX", "ci_")

	cfg, err := Load(path)
	if expect.NoError(err) {
		expect.Equal(BackendBadger, cfg.Backend)
		expect.Equal("./data", cfg.DataDir)
		expect.Equal("ci_", cfg.TablePrefix)
		expect.Equal(25, cfg.PageSize)
		expect.Equal("info", cfg.LogLevel)
		expect.Equal(path, cfg.Path)
		expect.NoError(cfg.Validate())
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	expect.ErrorIs(err, os.ErrNotExist)

	writeFile(t, path, "backend: memory\nport: 3070\n")
	_, err = Load(path)
	expect.ErrorContains(err, "port")
}

func TestFind(t *testing.T) {
	expect := assert.New(t)
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	expect.NoError(os.MkdirAll(nested, 0o755))
	expect.Equal("", findFrom(nested))

	writeFile(t, filepath.Join(root, FileName), "region: us-west-2\n")
	expect.Equal(filepath.Join(root, FileName), findFrom(nested))
	expect.Equal(filepath.Join(root, FileName), findFrom(root))
}

func TestConfig_ApplyEnv(t *testing.T) {
	expect := assert.New(t)
	env := map[string]string{
		"APOTHECARY_BACKEND":   "memory",
		"APOTHECARY_ENDPOINT":  "http://localhost:8000",
		"APOTHECARY_PAGE_SIZE": " 10 ",
		"OTHER_BACKEND":        "badger",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Default()
	if expect.NoError(cfg.ApplyEnv(lookup)) {
		expect.Equal(BackendMemory, cfg.Backend)
		expect.Equal("http://localhost:8000", cfg.Endpoint)
		expect.Equal(10, cfg.PageSize)
	}
	env["APOTHECARY_PAGE_SIZE"] = "ten"
	expect.ErrorContains(cfg.ApplyEnv(lookup), "APOTHECARY_PAGE_SIZE")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"default", Default(), ""},
		{"memory", Config{Backend: BackendMemory}, ""},
		{"badger without dir", Config{Backend: BackendBadger}, "data directory"},
		{"unknown backend", Config{Backend: "sqlite"}, `unknown backend "sqlite"`},
		{"negative page size", Config{Backend: BackendMemory, PageSize: -1}, "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.want)
			}
		})
	}
}
