package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Tape.DefaultDevice != "/dev/nst0" {
		t.Errorf("expected device /dev/nst0, got %s", cfg.Tape.DefaultDevice)
	}

	if cfg.Tape.BlockSize != 524288 {
		t.Errorf("expected block size 524288, got %d", cfg.Tape.BlockSize)
	}

	if cfg.Tape.DriveVariant != "standard" {
		t.Errorf("expected drive variant standard, got %s", cfg.Tape.DriveVariant)
	}

	if cfg.Tape.ExtraPartitionCount != 1 {
		t.Errorf("expected extra partition count 1, got %d", cfg.Tape.ExtraPartitionCount)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level info, got %s", cfg.Logging.Level)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/non/existent/path.json")
	if err != nil {
		t.Fatalf("expected no error for non-existent file, got %v", err)
	}

	if cfg.Tape.BlockSize != 524288 {
		t.Errorf("expected default block size 524288, got %d", cfg.Tape.BlockSize)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	cfg := DefaultConfig()
	cfg.Tape.DefaultDevice = "/dev/nst1"
	cfg.Tape.DriveVariant = "slr3"
	cfg.Tape.ExtraPartitionCount = 0

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if loaded.Tape.DefaultDevice != "/dev/nst1" {
		t.Errorf("expected device /dev/nst1, got %s", loaded.Tape.DefaultDevice)
	}
	if loaded.Tape.DriveVariant != "slr3" {
		t.Errorf("expected drive variant slr3, got %s", loaded.Tape.DriveVariant)
	}
	if loaded.Tape.ExtraPartitionCount != 0 {
		t.Errorf("expected extra partition count 0, got %d", loaded.Tape.ExtraPartitionCount)
	}
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.json")

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("failed to save config into nested directory: %v", err)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
}

func TestLoadPreservesDriveList(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	cfg := DefaultConfig()
	cfg.Tape.Drives = append(cfg.Tape.Drives, DriveConfig{
		DevicePath:  "/dev/nst1",
		DisplayName: "Secondary LTO Drive",
		Enabled:     false,
	})
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(loaded.Tape.Drives) != 2 {
		t.Fatalf("expected 2 drives, got %d", len(loaded.Tape.Drives))
	}
	if loaded.Tape.Drives[1].DevicePath != "/dev/nst1" || loaded.Tape.Drives[1].Enabled {
		t.Errorf("unexpected second drive entry: %+v", loaded.Tape.Drives[1])
	}
}
