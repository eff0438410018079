package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"promptboard/internal/board"
	"promptboard/internal/errors"
	"promptboard/internal/logger"
	"promptboard/internal/openai"
	"promptboard/internal/storage"
	"promptboard/internal/usercfg"
	"promptboard/internal/version"

	"github.com/AlecAivazis/survey/v2"
	selfupdate "github.com/creativeprojects/go-selfupdate"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var updateCheckCh <-chan version.UpdateCheckResult

var rootCmd = &cobra.Command{
	Use:   "promptboard",
	Short: "A kanban board for authoring and running AI prompts",
	Long: `promptboard is a terminal kanban board for AI prompts.

Cards carry a title, a prompt, and a model identifier. They move across
three columns (To Do / In Progress / Done) as you reorder them or run them
against the OpenAI API; a successful run stores the returned text on the
card. The board persists across sessions.

Controls (board view):
  - Arrows / h j k l: Move selection
  - Tab / Shift+Tab: Switch column
  - H / L: Move card to previous/next column
  - J / K: Reorder card within its column
  - n: New card    r: Run card    p: Preview    d: Export markdown
  - x: Delete card    s: Settings (API key)    /: Filter    ?: Help
  - q: Quit`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)

		name := cmd.Name()
		if name != "update" && name != "version" {
			updateCheckCh = version.StartUpdateCheck()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if updateCheckCh == nil {
			return
		}
		select {
		case result := <-updateCheckCh:
			if result.NewVersion != "" {
				fmt.Fprintf(os.Stderr, "\n\033[33mA new version of promptboard is available: %s (current: %s)\033[0m\n", result.NewVersion, version.GetShortVersion())
				fmt.Fprintf(os.Stderr, "\033[33mRun 'promptboard update' to upgrade.\033[0m\n")
			}
		case <-time.After(500 * time.Millisecond):
		}
	},
	Run: runBoard,
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new prompt card in To Do",
	Long:  "Create a prompt card from flags, or interactively when flags are omitted.",
	Example: `  promptboard new --title "Release notes" --prompt "Summarize..." --model gpt-4o
  promptboard new           # interactive prompts`,
	Run: runNew,
}

var runCmd = &cobra.Command{
	Use:   "run [id-or-title]",
	Short: "Run a To Do card against the completion API",
	Long: `Run the identified To Do card headlessly: the card moves to In Progress,
the prompt is sent to the configured model, and on success the card lands in
Done with its result stored. On failure the card returns to To Do.

Without an argument the first To Do card is run.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the board to stdout",
	Run:   runList,
}

var exportCmd = &cobra.Command{
	Use:   "export [id-or-title]",
	Short: "Write a card's markdown file",
	Long: `Write the card's result (or, with --prompt, its templated prompt) to a
markdown file named after the card title.`,
	Args: cobra.ExactArgs(1),
	Run:  runExport,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure promptboard interactively",
	Long:  "Launch a setup wizard to store your OpenAI API key and pick a default model",
	Run:   runSetup,
}

// configCmd provides config management subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage promptboard configuration",
	Long:  "Commands for managing promptboard configuration files, migrations, and settings",
}

var configMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate config file to current schema version",
	Run:   runConfigMigrate,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the path to the configuration file",
	Run:   runConfigPath,
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the current configuration",
	Long:  "Display the current effective configuration, including defaults and environment variable overlays",
	Run:   runConfigPrint,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long:  "Retrieve and display a specific configuration value. Keys: default_model, models, data_dir, schema_version",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value and save to file. Keys: default_model, data_dir. Use 'promptboard setup' for the API key.",
	Args:  cobra.ExactArgs(2),
	Run:   runConfigSet,
}

var configDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration health",
	Long:  "Validate configuration and storage, check for common issues, and suggest fixes",
	Run:   runConfigDoctor,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   runVersion,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Self-update promptboard to the latest release",
	Long:  "Check GitHub Releases for a newer version of promptboard and replace the current binary.",
	Run:   runUpdate,
}

var verbose bool

// new command flags
var (
	newTitle  string
	newPrompt string
	newModel  string
)

// export command flags
var (
	exportDir        string
	exportOpen       bool
	exportPromptOnly bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)

	newCmd.Flags().StringVarP(&newTitle, "title", "t", "", "Card title")
	newCmd.Flags().StringVarP(&newPrompt, "prompt", "p", "", "Prompt text")
	newCmd.Flags().StringVarP(&newModel, "model", "m", "", "Model identifier (default: configured default_model)")

	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", ".", "Directory to write the markdown file into")
	exportCmd.Flags().BoolVar(&exportOpen, "open", false, "Open the exported file after writing")
	exportCmd.Flags().BoolVar(&exportPromptOnly, "prompt", false, "Export the templated prompt even when a result exists")

	configCmd.AddCommand(configMigrateCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configPrintCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configDoctorCmd)

	// Setup graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\n\033[93mOperation cancelled by user.\033[0m")
		os.Exit(0)
	}()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// openWorkspace wires the persistence adapter and the board store. The
// board hydrates from the stored snapshot when one exists, or starts from
// the empty default.
func openWorkspace() (*storage.Store, *board.Store) {
	cfg := usercfg.GetRuntimeConfig()
	dir := cfg.DataDir
	if dir == "" {
		dir = storage.DefaultDir()
	}
	st := storage.New(dir)

	b, ok := st.LoadBoard()
	if !ok {
		b = board.NewBoard()
	}
	return st, board.NewStore(b, st)
}

func newRunner(st *storage.Store, s *board.Store) *board.Runner {
	return board.NewRunner(s, openai.NewClient(), st)
}

// findCardByRef resolves a card by exact id or case-insensitive title.
func findCardByRef(b board.Board, ref string) (board.Card, board.Stage, bool) {
	for _, col := range b.Columns {
		for _, c := range col.Cards {
			if c.ID == ref || strings.EqualFold(c.Title, ref) {
				return c, col.ID, true
			}
		}
	}
	return board.Card{}, "", false
}

func runBoard(cmd *cobra.Command, args []string) {
	st, s := openWorkspace()
	if err := StartBoard(st, s, newRunner(st, s)); err != nil {
		log.Fatalf("Board failed: %v", err)
	}
}

func runNew(cmd *cobra.Command, args []string) {
	cfg := usercfg.GetRuntimeConfig()

	title := strings.TrimSpace(newTitle)
	prompt := strings.TrimSpace(newPrompt)
	model := strings.TrimSpace(newModel)

	if title == "" {
		if err := survey.AskOne(&survey.Input{Message: "Card title:"}, &title, survey.WithValidator(survey.Required)); err != nil {
			fmt.Println("Cancelled")
			return
		}
	}
	if prompt == "" {
		if err := survey.AskOne(&survey.Multiline{Message: "Prompt text:"}, &prompt, survey.WithValidator(survey.Required)); err != nil {
			fmt.Println("Cancelled")
			return
		}
	}
	if model == "" {
		if err := survey.AskOne(&survey.Select{
			Message: "Model:",
			Options: cfg.Models,
			Default: cfg.DefaultModel,
		}, &model); err != nil {
			fmt.Println("Cancelled")
			return
		}
	}

	card, err := board.NewCard(title, prompt, model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	_, s := openWorkspace()
	s.AddCard(board.StageTodo, card)
	fmt.Printf("\033[92mCreated card %s in To Do.\033[0m\n", card.ID)
}

func runRun(cmd *cobra.Command, args []string) {
	st, s := openWorkspace()

	var card board.Card
	if len(args) == 1 {
		found, stage, ok := findCardByRef(s.Board(), args[0])
		if !ok || stage != board.StageTodo {
			fmt.Fprintf(os.Stderr, "%v\n", errors.NewCardNotFoundError(args[0]))
			os.Exit(1)
		}
		card = found
	} else {
		b := s.Board()
		todo := board.FindColumn(&b, board.StageTodo)
		if len(todo.Cards) == 0 {
			fmt.Println("\033[93mNo cards in To Do.\033[0m")
			return
		}
		card = todo.Cards[0]
	}

	fmt.Printf("Running %q with model %s...\n", card.Title, card.Model)
	outcome := newRunner(st, s).Run(context.Background(), card.ID)
	if outcome.Err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", outcome.Err)
		os.Exit(1)
	}
	fmt.Printf("\033[92mDone.\033[0m\n\n%s\n", outcome.Result)
}

func runList(cmd *cobra.Command, args []string) {
	_, s := openWorkspace()
	b := s.Board()

	for _, col := range b.Columns {
		fmt.Printf("\033[1m%s\033[0m (%d)\n", col.Title, len(col.Cards))
		for _, c := range col.Cards {
			marker := " "
			if c.Result != "" {
				marker = "*"
			}
			fmt.Printf("  %s %s — %s  [%s]\n", marker, shortID(c.ID), c.Title, c.Model)
		}
		fmt.Println()
	}
	fmt.Println("(* = has result; use the full title or id with run/export)")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runExport(cmd *cobra.Command, args []string) {
	_, s := openWorkspace()

	card, _, ok := findCardByRef(s.Board(), args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "%v\n", errors.NewCardNotFoundError(args[0]))
		os.Exit(1)
	}

	path, err := exportCard(card, exportDir, exportPromptOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\033[92mWrote %s\033[0m\n", path)

	if exportOpen {
		if err := browser.OpenFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "Could not open %s: %v\n", path, err)
		}
	}
}

func runSetup(cmd *cobra.Command, args []string) {
	fmt.Println("promptboard Setup Wizard")
	fmt.Println("========================")

	currentConfig := usercfg.GetRuntimeConfig()
	newConfig := currentConfig
	st, _ := openWorkspace()
	isFirstRun := !usercfg.IsConfigured()

	if isFirstRun {
		fmt.Println("Welcome! Let's configure promptboard.")
		fmt.Println()
	} else {
		fmt.Printf("Existing config found at %s — modifying.\n\n", usercfg.Path())
		fmt.Printf("  Default model: %s\n", currentConfig.DefaultModel)
		fmt.Printf("  Models: %v\n", currentConfig.Models)
		fmt.Println()
	}

	// API key
	_, hasKey := st.LoadCredential()
	askKey := true
	if hasKey {
		if err := survey.AskOne(&survey.Confirm{
			Message: "An API key is already stored. Replace it?",
			Default: false,
		}, &askKey); err != nil {
			fmt.Println("Setup cancelled")
			return
		}
	}
	if askKey {
		var apiKey string
		if err := survey.AskOne(&survey.Password{
			Message: "OpenAI API key:",
		}, &apiKey, survey.WithValidator(survey.Required)); err != nil {
			fmt.Println("Setup cancelled")
			return
		}
		if err := st.SaveCredential(apiKey); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Println("  API key stored.")
	}

	// Default model
	var model string
	if err := survey.AskOne(&survey.Select{
		Message: "Default model for new cards:",
		Options: currentConfig.Models,
		Default: currentConfig.DefaultModel,
	}, &model); err != nil {
		fmt.Println("Setup cancelled")
		return
	}
	newConfig.DefaultModel = model

	if err := usercfg.Save(newConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("\033[92mSetup complete. Run 'promptboard' to open the board.\033[0m")
}

func runConfigMigrate(cmd *cobra.Command, args []string) {
	if err := usercfg.MigrateAndSave(); err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}
}

func runConfigPath(cmd *cobra.Command, args []string) {
	fmt.Println(usercfg.Path())
}

func runConfigPrint(cmd *cobra.Command, args []string) {
	config := usercfg.GetRuntimeConfig()
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = storage.DefaultDir()
	}

	fmt.Printf("Configuration (effective):\n")
	fmt.Printf("  Schema Version: %d\n", config.SchemaVersion)
	fmt.Printf("  Default Model: %s\n", config.DefaultModel)
	fmt.Printf("  Models: %v\n", config.Models)
	fmt.Printf("  Data Dir: %s\n", dataDir)
	fmt.Printf("  UI Preferences: %+v\n", config.UIPrefs)
	fmt.Printf("\nConfig file location: %s\n", usercfg.Path())
}

func runConfigGet(cmd *cobra.Command, args []string) {
	key := args[0]
	config := usercfg.GetRuntimeConfig()

	switch key {
	case "default_model":
		fmt.Println(config.DefaultModel)
	case "models":
		fmt.Println(strings.Join(config.Models, ","))
	case "data_dir":
		if config.DataDir != "" {
			fmt.Println(config.DataDir)
		} else {
			fmt.Println(storage.DefaultDir())
		}
	case "schema_version":
		fmt.Println(config.SchemaVersion)
	default:
		fmt.Printf("Unknown key: %s\n", key)
		fmt.Println("Available keys: default_model, models, data_dir, schema_version")
		os.Exit(1)
	}
}

func runConfigSet(cmd *cobra.Command, args []string) {
	key := args[0]
	value := args[1]

	// Load current config
	config, err := usercfg.Load()
	if err != nil && err != usercfg.ErrNotConfigured {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Validate and set the value
	switch key {
	case "default_model":
		if strings.TrimSpace(value) == "" {
			fmt.Println("default_model must not be empty")
			os.Exit(1)
		}
		config.DefaultModel = strings.TrimSpace(value)

	case "data_dir":
		config.DataDir = value

	case "models", "schema_version":
		fmt.Printf("Key '%s' cannot be set via 'config set'. Edit the config file directly.\n", key)
		os.Exit(1)

	default:
		fmt.Printf("Unknown key: %s\n", key)
		fmt.Println("Settable keys: default_model, data_dir")
		os.Exit(1)
	}

	// Save the updated config
	if err := usercfg.Save(config); err != nil {
		fmt.Printf("Failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

func runConfigDoctor(cmd *cobra.Command, args []string) {
	fmt.Println("🏥 promptboard Configuration Doctor")
	fmt.Println("===================================")

	issues := 0

	// Check if config file exists
	configPath := usercfg.Path()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Println("ℹ️  No config file found - using defaults")
		fmt.Printf("   Create one with: promptboard setup\n")
	} else {
		fmt.Println("✅ Config file found at XDG-compliant location")
	}

	config := usercfg.GetRuntimeConfig()

	// Check schema version
	if config.SchemaVersion < usercfg.CurrentSchemaVersion {
		fmt.Printf("⚠️  Config schema is outdated (v%d, current: v%d)\n", config.SchemaVersion, usercfg.CurrentSchemaVersion)
		fmt.Println("   Run: promptboard config migrate")
		issues++
	} else {
		fmt.Printf("✅ Config schema is current (v%d)\n", config.SchemaVersion)
	}

	// Check default model
	if config.DefaultModel == "" {
		fmt.Println("⚠️  No default model configured")
		fmt.Println("   Run: promptboard setup")
		issues++
	} else {
		fmt.Printf("✅ Default model: %s\n", config.DefaultModel)
	}

	// Check credential
	st, s := openWorkspace()
	if _, ok := st.Credential(); !ok {
		fmt.Println("⚠️  No API key found (stored or OPENAI_API_KEY)")
		fmt.Println("   Run: promptboard setup")
		issues++
	} else {
		fmt.Println("✅ API key is available")
	}

	// Check board storage
	if err := st.SaveBoard(s.Board()); err != nil {
		fmt.Printf("⚠️  Board storage is not writable: %v\n", err)
		issues++
	} else {
		fmt.Printf("✅ Board storage is writable (%s, %d cards)\n", st.Dir(), s.Board().CardCount())
	}

	fmt.Println()
	if issues == 0 {
		fmt.Println("🎉 No issues found! Configuration looks healthy.")
	} else {
		fmt.Printf("Found %d issue(s). See suggestions above.\n", issues)
		os.Exit(1)
	}
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Println(version.GetVersionString())

	// Check for available updates (synchronous since user is asking about version)
	ch := version.StartUpdateCheck()
	select {
	case result := <-ch:
		if result.NewVersion != "" {
			fmt.Printf("\n\033[33mUpdate available: %s (current: %s)\033[0m\n", result.NewVersion, version.GetShortVersion())
			fmt.Println("\033[33mRun 'promptboard update' to upgrade.\033[0m")
		}
	case <-time.After(5 * time.Second):
		// Don't block forever if GitHub is slow
	}
}

func runUpdate(cmd *cobra.Command, args []string) {
	current := version.GetShortVersion()
	if current == "dev" {
		fmt.Println("Cannot self-update a dev build. Install a released version first.")
		return
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		fmt.Printf("Failed to create update source: %v\n", err)
		return
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:    source,
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: "checksums.txt"},
	})
	if err != nil {
		fmt.Printf("Failed to create updater: %v\n", err)
		return
	}

	fmt.Printf("Current version: %s\nChecking for updates...\n", current)

	latest, found, err := updater.DetectLatest(context.Background(), selfupdate.ParseSlug(version.GitHubSlug))
	if err != nil {
		fmt.Printf("Update check failed: %v\n", err)
		return
	}
	if !found {
		fmt.Println("No release found for your OS/architecture.")
		return
	}

	if latest.LessOrEqual(current) {
		fmt.Println("Already up to date.")
		return
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		fmt.Printf("Could not locate executable: %v\n", err)
		return
	}

	if err := updater.UpdateTo(context.Background(), latest, exe); err != nil {
		fmt.Printf("Update failed: %v\n", err)
		return
	}

	fmt.Printf("Updated to %s\n", latest.Version())
}
