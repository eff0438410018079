package usercfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"promptboard/internal/errors"

	"github.com/BurntSushi/toml"
)

// ErrNotConfigured is returned when no config file exists.
var ErrNotConfigured = fmt.Errorf("promptboard is not configured; run: promptboard setup")

// IsConfigured returns true if a config file exists.
func IsConfigured() bool {
	configPath := Path()
	if configPath == "" {
		return false
	}
	_, err := os.Stat(configPath)
	return err == nil
}

type Config struct {
	SchemaVersion int           `toml:"schema_version,omitempty"`
	DefaultModel  string        `toml:"default_model"`
	Models        []string      `toml:"models,omitempty"`
	DataDir       string        `toml:"data_dir,omitempty"`
	UIPrefs       UIPreferences `toml:"ui_prefs,omitempty"`
}

type UIPreferences struct {
	LastSelectedCol int  `toml:"last_selected_col,omitempty"`
	ShowCardModels  bool `toml:"show_card_models,omitempty"`
}

const CurrentSchemaVersion = 1

func Path() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	// XDG-compliant path: ~/.config/promptboard/config.toml
	return filepath.Join(homeDir, ".config", "promptboard", "config.toml")
}

func Load() (Config, error) {
	configPath := Path()
	if configPath == "" {
		return getDefaults(), errors.NewConfigError("load", fmt.Errorf("unable to determine home directory"))
	}

	if _, err := os.Stat(configPath); err != nil {
		return getDefaults(), ErrNotConfigured
	}

	var config Config
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return getDefaults(), errors.NewConfigError("load", fmt.Errorf("failed to decode config file: %v", err))
	}

	// Apply migrations if needed
	migratedConfig := migrateConfig(config)

	return mergeWithDefaults(migratedConfig), nil
}

func Save(config Config) error {
	configPath := Path()
	if configPath == "" {
		return fmt.Errorf("unable to determine home directory")
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %v", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %v", err)
	}

	return nil
}

func GetRuntimeConfig() Config {
	config, err := Load()
	if err != nil && err != ErrNotConfigured {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		config = getDefaults()
	}
	if err == ErrNotConfigured {
		config = getDefaults()
	}

	// Apply environment variable overlays
	return applyEnvOverlays(config)
}

func mergeWithDefaults(config Config) Config {
	// Always ensure we have the current schema version
	config.SchemaVersion = CurrentSchemaVersion

	if config.DefaultModel == "" {
		config.DefaultModel = defaultModel
	}
	if len(config.Models) == 0 {
		config.Models = defaultModels()
	}

	return config
}

// applyEnvOverlays applies environment variable overlays to the config
func applyEnvOverlays(config Config) Config {
	// PROMPTBOARD_MODEL: override default model
	if envModel := os.Getenv("PROMPTBOARD_MODEL"); envModel != "" {
		config.DefaultModel = envModel
	}

	// PROMPTBOARD_MODELS: comma-separated model choice list
	if envModels := os.Getenv("PROMPTBOARD_MODELS"); envModels != "" {
		var cleaned []string
		for _, m := range strings.Split(envModels, ",") {
			m = strings.TrimSpace(m)
			if m != "" {
				cleaned = append(cleaned, m)
			}
		}
		if len(cleaned) > 0 {
			config.Models = cleaned
		}
	}

	// PROMPTBOARD_DATA_DIR: override board/credential storage location
	if envDir := os.Getenv("PROMPTBOARD_DATA_DIR"); envDir != "" {
		config.DataDir = envDir
	}

	return config
}

// migrateConfig performs in-memory migration of config from older schema versions
func migrateConfig(config Config) Config {
	originalVersion := config.SchemaVersion

	// Migration from version 0 (no schema_version field) to version 1
	if originalVersion == 0 {
		config.SchemaVersion = 1

		if config.DefaultModel != "" || len(config.Models) > 0 {
			fmt.Fprintf(os.Stderr, "Info: Migrated config from schema version 0 to %d\n", config.SchemaVersion)
		}
	}

	// Future migrations would go here:
	// if originalVersion < 2 { ... }

	return config
}

// MigrateAndSave loads the config, applies migrations, and saves it back to disk.
// This is used by the `promptboard config migrate` command.
func MigrateAndSave() error {
	configPath := Path()
	if configPath == "" {
		return fmt.Errorf("unable to determine home directory")
	}
	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("no config file found to migrate")
	}

	var rawConfig Config
	if _, err := toml.DecodeFile(configPath, &rawConfig); err != nil {
		return fmt.Errorf("failed to decode config file: %v", err)
	}

	originalVersion := rawConfig.SchemaVersion
	if originalVersion == CurrentSchemaVersion {
		return fmt.Errorf("config is already at current schema version %d", CurrentSchemaVersion)
	}

	config, err := Load()
	if err != nil {
		return fmt.Errorf("failed to load config for migration: %v", err)
	}

	if err := Save(config); err != nil {
		return fmt.Errorf("failed to save migrated config: %v", err)
	}

	fmt.Printf("Successfully migrated config from schema version %d to %d\n", originalVersion, config.SchemaVersion)
	return nil
}

// SaveUIPrefs saves only the UI preferences to the config file.
// This is lightweight and can be called frequently without impacting other config values.
func SaveUIPrefs(prefs UIPreferences) error {
	config, err := Load()
	if err != nil {
		config = Config{
			SchemaVersion: CurrentSchemaVersion,
			DefaultModel:  defaultModel,
		}
	}

	config.UIPrefs = prefs
	return Save(config)
}

// GetUIPrefs returns the current UI preferences from the runtime config
func GetUIPrefs() UIPreferences {
	// Allow ignoring UI prefs via env for troubleshooting
	if os.Getenv("PROMPTBOARD_IGNORE_UI_PREFS") == "1" {
		return UIPreferences{}
	}
	config := GetRuntimeConfig()
	return config.UIPrefs
}
