package usercfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestConfigRoundTrip(t *testing.T) {
	tempDir := t.TempDir()

	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tempDir)

	config := Config{
		DefaultModel: "gpt-4o",
		Models:       []string{"gpt-4o", "o1-mini"},
		DataDir:      "/tmp/boards",
	}

	err := Save(config)
	if err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	configPath := filepath.Join(tempDir, ".config", "promptboard", "config.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel not preserved: got %s, want gpt-4o", loaded.DefaultModel)
	}
	if len(loaded.Models) != 2 || loaded.Models[0] != "gpt-4o" || loaded.Models[1] != "o1-mini" {
		t.Errorf("Models not preserved: got %v", loaded.Models)
	}
	if loaded.DataDir != "/tmp/boards" {
		t.Errorf("DataDir not preserved: got %s", loaded.DataDir)
	}
}

func TestConfigDefaults(t *testing.T) {
	tempDir := t.TempDir()

	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tempDir)

	config, err := Load()
	if err != ErrNotConfigured {
		t.Fatalf("Expected ErrNotConfigured when no config file, got: %v", err)
	}

	if config.DefaultModel != "gpt-4o-mini" {
		t.Errorf("Default model incorrect: got %s", config.DefaultModel)
	}
	if len(config.Models) == 0 {
		t.Error("Default model list should not be empty")
	}
	if config.DataDir != "" {
		t.Errorf("Default data dir should be empty: got %s", config.DataDir)
	}
}

func TestEnvVarOverlays(t *testing.T) {
	tempDir := t.TempDir()

	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tempDir)

	origModel := os.Getenv("PROMPTBOARD_MODEL")
	origModels := os.Getenv("PROMPTBOARD_MODELS")
	origDataDir := os.Getenv("PROMPTBOARD_DATA_DIR")
	defer func() {
		os.Setenv("PROMPTBOARD_MODEL", origModel)
		os.Setenv("PROMPTBOARD_MODELS", origModels)
		os.Setenv("PROMPTBOARD_DATA_DIR", origDataDir)
	}()

	os.Setenv("PROMPTBOARD_MODEL", "o1-preview")
	os.Setenv("PROMPTBOARD_MODELS", "o1-preview,o1-mini")
	os.Setenv("PROMPTBOARD_DATA_DIR", "/tmp/overlay-data")

	config := GetRuntimeConfig()

	if config.DefaultModel != "o1-preview" {
		t.Errorf("Expected model 'o1-preview' from env var, got %s", config.DefaultModel)
	}
	if len(config.Models) != 2 || config.Models[0] != "o1-preview" || config.Models[1] != "o1-mini" {
		t.Errorf("Expected model list from env var, got %v", config.Models)
	}
	if config.DataDir != "/tmp/overlay-data" {
		t.Errorf("Expected data dir from env var, got %s", config.DataDir)
	}
}

func TestEnvVarModelsWithSpaces(t *testing.T) {
	tempDir := t.TempDir()

	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tempDir)

	origModels := os.Getenv("PROMPTBOARD_MODELS")
	defer os.Setenv("PROMPTBOARD_MODELS", origModels)

	// Test with spaces around commas and empty segments
	os.Setenv("PROMPTBOARD_MODELS", " gpt-4o , , gpt-4o-mini  ")

	config := GetRuntimeConfig()

	expected := []string{"gpt-4o", "gpt-4o-mini"}
	if len(config.Models) != 2 {
		t.Fatalf("Expected 2 models, got %d: %v", len(config.Models), config.Models)
	}
	for i, want := range expected {
		if config.Models[i] != want {
			t.Errorf("Model %d: expected %s, got %s", i, want, config.Models[i])
		}
	}
}

func TestSchemaVersioning(t *testing.T) {
	tempDir := t.TempDir()

	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tempDir)

	newConfig := Config{
		DefaultModel: "gpt-4o",
	}

	err := Save(newConfig)
	if err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("New config should have current schema version %d, got %d", CurrentSchemaVersion, loaded.SchemaVersion)
	}
}

func TestMigrationFromV0(t *testing.T) {
	tempDir := t.TempDir()

	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tempDir)

	// Create a v0 config (no schema_version field)
	configPath := filepath.Join(tempDir, ".config", "promptboard", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	v0ConfigContent := `default_model = "gpt-4o"
models = ["gpt-4o", "gpt-4o-mini"]
`

	if err := os.WriteFile(configPath, []byte(v0ConfigContent), 0644); err != nil {
		t.Fatalf("Failed to write v0 config: %v", err)
	}

	// Load should migrate automatically
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Failed to load v0 config: %v", err)
	}

	if loaded.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("V0 config should be migrated to version %d, got %d", CurrentSchemaVersion, loaded.SchemaVersion)
	}

	if loaded.DefaultModel != "gpt-4o" {
		t.Errorf("Migration should preserve default model: got %s", loaded.DefaultModel)
	}
	if len(loaded.Models) != 2 {
		t.Errorf("Migration should preserve model list: got %v", loaded.Models)
	}
}

func TestMigrateAndSave(t *testing.T) {
	tempDir := t.TempDir()

	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tempDir)

	configPath := filepath.Join(tempDir, ".config", "promptboard", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	v0ConfigContent := `default_model = "o1-mini"
`

	if err := os.WriteFile(configPath, []byte(v0ConfigContent), 0644); err != nil {
		t.Fatalf("Failed to write v0 config: %v", err)
	}

	err := MigrateAndSave()
	if err != nil {
		t.Fatalf("MigrateAndSave failed: %v", err)
	}

	var migratedConfig Config
	if _, err := toml.DecodeFile(configPath, &migratedConfig); err != nil {
		t.Fatalf("Failed to decode migrated config: %v", err)
	}

	if migratedConfig.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("Migrated config should have schema version %d, got %d", CurrentSchemaVersion, migratedConfig.SchemaVersion)
	}

	if migratedConfig.DefaultModel != "o1-mini" {
		t.Errorf("Migration should preserve default model: got %s", migratedConfig.DefaultModel)
	}
}

func TestMigrateAlreadyCurrentVersion(t *testing.T) {
	tempDir := t.TempDir()

	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tempDir)

	currentConfig := Config{
		SchemaVersion: CurrentSchemaVersion,
		DefaultModel:  "gpt-4o",
	}

	err := Save(currentConfig)
	if err != nil {
		t.Fatalf("Failed to save current config: %v", err)
	}

	// Attempt migration - should fail
	err = MigrateAndSave()
	if err == nil {
		t.Errorf("MigrateAndSave should fail when config is already current version")
	}
}

func TestUIPrefsRoundTrip(t *testing.T) {
	tempDir := t.TempDir()

	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tempDir)

	origIgnore := os.Getenv("PROMPTBOARD_IGNORE_UI_PREFS")
	defer os.Setenv("PROMPTBOARD_IGNORE_UI_PREFS", origIgnore)
	os.Setenv("PROMPTBOARD_IGNORE_UI_PREFS", "")

	if err := Save(Config{DefaultModel: "gpt-4o"}); err != nil {
		t.Fatalf("Failed to save base config: %v", err)
	}

	prefs := UIPreferences{LastSelectedCol: 2, ShowCardModels: true}
	if err := SaveUIPrefs(prefs); err != nil {
		t.Fatalf("Failed to save UI prefs: %v", err)
	}

	loaded := GetUIPrefs()
	if loaded.LastSelectedCol != 2 || !loaded.ShowCardModels {
		t.Errorf("UI prefs not preserved: got %+v", loaded)
	}

	// Saving prefs must not clobber the rest of the config.
	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if config.DefaultModel != "gpt-4o" {
		t.Errorf("SaveUIPrefs should preserve default model: got %s", config.DefaultModel)
	}

	// The escape hatch suppresses stored prefs.
	os.Setenv("PROMPTBOARD_IGNORE_UI_PREFS", "1")
	if got := GetUIPrefs(); got.LastSelectedCol != 0 || got.ShowCardModels {
		t.Errorf("PROMPTBOARD_IGNORE_UI_PREFS should yield empty prefs, got %+v", got)
	}
}

func TestAvailableModels(t *testing.T) {
	models := AvailableModels()
	if len(models) == 0 {
		t.Fatal("Available models should not be empty")
	}
	seen := make(map[string]struct{})
	for _, m := range models {
		if m == "" {
			t.Error("Model names must be non-empty")
		}
		if _, dup := seen[m]; dup {
			t.Errorf("Duplicate model in list: %s", m)
		}
		seen[m] = struct{}{}
	}
	if _, ok := seen["gpt-4o-mini"]; !ok {
		t.Error("Default model should be offered in the list")
	}
}
