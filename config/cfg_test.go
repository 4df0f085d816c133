package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mobiparse.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal("Unable to write configuration:", err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "catalog")
	path := writeConfig(t, "catalog: \""+filepath.ToSlash(catalog)+"\"\nthumbnails:\n  width: 100\n  height: 150\n  quality: 90\n")

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatal("Unable to load configuration:", err)
	}
	if st, err := os.Stat(cfg.CatalogPath); err != nil || !st.IsDir() {
		t.Errorf("Catalog directory was not created: %v", err)
	}
	if cfg.Thumbnails.Width != 100 || cfg.Thumbnails.Height != 150 || cfg.Thumbnails.Quality != 90 {
		t.Errorf("Thumbnails = %+v", cfg.Thumbnails)
	}
	// defaults from template survive
	if !cfg.Resources.Keep || cfg.Logging.Console.Level != "info" || cfg.Logging.File.Level != LevelNone {
		t.Errorf("Defaults lost: %+v %+v", cfg.Resources, cfg.Logging)
	}
	if !filepath.IsAbs(filepath.FromSlash(cfg.OutputPath)) {
		t.Errorf("Output path %q is not absolute", cfg.OutputPath)
	}
}

func TestLoadConfigurationErrors(t *testing.T) {
	catalog := filepath.ToSlash(filepath.Join(t.TempDir(), "catalog"))
	for name, body := range map[string]string{
		"unknown field":      "catalog: \"" + catalog + "\"\nsource: \"books\"\n",
		"bad quality":        "catalog: \"" + catalog + "\"\nthumbnails:\n  quality: 101\n",
		"bad level":          "catalog: \"" + catalog + "\"\nlogging:\n  console:\n    level: \"loud\"\n",
		"no log destination": "catalog: \"" + catalog + "\"\nlogging:\n  file:\n    level: \"debug\"\n",
		"not yaml":           "catalog: [\n",
	} {
		if _, err := LoadConfiguration(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestPrepareAndDump(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatal("Unable to prepare configuration:", err)
	}
	for _, section := range []string{"output:", "catalog:", "resources:", "thumbnails:", "logging:"} {
		if !strings.Contains(string(data), section) {
			t.Errorf("Default configuration has no %q section", section)
		}
	}

	cfg := &Config{OutputPath: "/books", CatalogPath: "/catalog", Logging: LoggingConfig{Console: LoggerConfig{Level: "warn"}}}
	data, err = Dump(cfg)
	if err != nil {
		t.Fatal("Unable to dump configuration:", err)
	}
	if !strings.Contains(string(data), "output: /books") || !strings.Contains(string(data), "level: warn") {
		t.Errorf("Unexpected dump:\n%s", data)
	}
}

func TestLoggingPrepare(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "mobiparse.log")
	conf := LoggingConfig{
		Console: LoggerConfig{Level: LevelNone},
		File:    LoggerConfig{Level: "info", Destination: dest, Mode: "overwrite"},
	}
	log, err := conf.Prepare(false)
	if err != nil {
		t.Fatal("Unable to prepare logger:", err)
	}
	log.Debug("hidden")
	log.Info("visible")
	_ = log.Sync()

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal("Unable to read log:", err)
	}
	if !strings.Contains(string(data), "visible") || strings.Contains(string(data), "hidden") {
		t.Errorf("Unexpected log content:\n%s", data)
	}

	conf = LoggingConfig{Console: LoggerConfig{Level: LevelNone}, File: LoggerConfig{Level: LevelNone}}
	if log, err := conf.Prepare(false); err != nil || log == nil {
		t.Errorf("Prepare with all cores disabled = %v, %v", log, err)
	}
	conf.File = LoggerConfig{Level: "info", Destination: filepath.Join(t.TempDir(), "no", "such", "dir", "x.log")}
	if _, err := conf.Prepare(false); err == nil {
		t.Error("Expected error for log file in missing directory")
	}
}
