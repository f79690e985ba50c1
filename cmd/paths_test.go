package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGetDataDir(t *testing.T) {
	t.Setenv(dataDirEnvVar, "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")

	dataDir, err := getDataDir()
	if err != nil {
		t.Fatalf("getDataDir() failed: %v", err)
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}
	if !strings.HasSuffix(dataDir, appDirName) {
		t.Errorf("Expected data directory to end with %q, got: %s", appDirName, dataDir)
	}

	switch runtime.GOOS {
	case "windows":
	case "darwin":
		if !strings.Contains(dataDir, "Library") {
			t.Errorf("macOS: Expected path to contain Library, got: %s", dataDir)
		}
	default:
		expected := filepath.Join(home, ".local", "share", appDirName)
		if dataDir != expected {
			t.Errorf("Linux: Expected %s, got: %s", expected, dataDir)
		}
	}
}

func TestGetDataDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG layout only applies on Linux/Unix")
	}
	t.Setenv(dataDirEnvVar, "")
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)

	dataDir, err := getDataDir()
	if err != nil {
		t.Fatalf("getDataDir() failed: %v", err)
	}
	if dataDir != filepath.Join(xdg, appDirName) {
		t.Errorf("expected XDG data dir, got %s", dataDir)
	}
}

func TestGetDataDir_EnvOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "custom")
	t.Setenv(dataDirEnvVar, dir)

	dataDir, err := getDataDir()
	if err != nil {
		t.Fatalf("getDataDir() failed: %v", err)
	}
	if dataDir != dir {
		t.Errorf("expected override %s, got %s", dir, dataDir)
	}
}

func TestResultsAndLogDirs(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	resultsDir, err := getResultsDir("")
	if err != nil {
		t.Fatalf("getResultsDir() failed: %v", err)
	}
	if resultsDir != filepath.Join(dataDir, "results") {
		t.Errorf("unexpected results dir %s", resultsDir)
	}

	configured := filepath.Join(t.TempDir(), "my-logs")
	logDir, err := getLogDir(configured)
	if err != nil {
		t.Fatalf("getLogDir() failed: %v", err)
	}
	if logDir != configured {
		t.Errorf("expected configured log dir %s, got %s", configured, logDir)
	}
	if info, err := os.Stat(logDir); err != nil || !info.IsDir() {
		t.Errorf("log dir was not created: %v", err)
	}
}
