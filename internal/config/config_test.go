package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.MaxUploadSize != 104857600 {
		t.Errorf("Expected default upload size, got %d", cfg.MaxUploadSize)
	}
	if cfg.PeakCount != 1000 {
		t.Errorf("Expected default peak count, got %d", cfg.PeakCount)
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	if _, err := Load("/nonexistent/choreo.yaml"); err != nil {
		t.Errorf("Missing config file must not fail: %v", err)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "choreo.yaml")
	content := "port: \"9000\"\ndb_path: /tmp/test.db\nautosave_sec: 5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Expected port 9000, got %s", cfg.Port)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("Expected db path from file, got %s", cfg.DBPath)
	}
	if cfg.AutosaveSec != 5 {
		t.Errorf("Expected autosave 5, got %d", cfg.AutosaveSec)
	}
	// Untouched keys keep their defaults.
	if cfg.AudioDir != "./audio" {
		t.Errorf("Expected default audio dir, got %s", cfg.AudioDir)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "choreo.yaml")
	if err := os.WriteFile(path, []byte("port: \"9000\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "7777")
	t.Setenv("DB_PATH", "/tmp/env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "7777" {
		t.Errorf("Expected env to win, got %s", cfg.Port)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("Expected env db path, got %s", cfg.DBPath)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("MAX_UPLOAD_SIZE", "not-a-number")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for invalid MAX_UPLOAD_SIZE")
	}
}
