package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Chitius/aider/internal/agent"
	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/client"
	"github.com/Chitius/aider/internal/coder"
	"github.com/Chitius/aider/internal/config"
	"github.com/Chitius/aider/internal/gate"
	"github.com/Chitius/aider/internal/gitrepo"
	"github.com/Chitius/aider/internal/lint"
	"github.com/Chitius/aider/internal/logging"
	"github.com/Chitius/aider/internal/prompt"
	"github.com/Chitius/aider/internal/summary"
	"github.com/Chitius/aider/internal/ui"
	"github.com/Chitius/aider/internal/undo"
	"github.com/Chitius/aider/internal/watcher"
)

var (
	version = "0.1.0"

	cfgFile    string
	model      string
	editFormat string
	message    string
	assumeYes  bool
	dryRun     bool
	noCommits  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aider [files...]",
		Short: "AI pair programming in your terminal",
		Long: `Aider is a chat interface for editing code in your local git repository.
Add files to the chat, describe the change you want, and the model's
proposed edits are applied, linted, tested, and committed.`,
		RunE: runApp,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/aider/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model to use")
	rootCmd.PersistentFlags().StringVar(&editFormat, "edit-format", "", "edit format: whole, diff, or udiff")
	rootCmd.PersistentFlags().StringVar(&message, "message", "", "run one turn with this message and exit")
	rootCmd.PersistentFlags().BoolVar(&assumeYes, "yes", false, "answer every confirmation with yes")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "parse and gate edits but write nothing")
	rootCmd.PersistentFlags().BoolVar(&noCommits, "no-auto-commits", false, "do not commit applied edits")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aider version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Version = version
	applyFlags(cfg)

	if cfg.Logging.Enabled {
		if err := logging.EnableFileLogging(config.ConfigDir(), logging.Level(cfg.Logging.Level)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		}
		defer logging.Close()
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	ctx := context.Background()

	repo, err := gitrepo.Discover(workDir, cfg.Git.Attribute)
	if err != nil {
		return err
	}
	root := workDir
	if repo != nil {
		root = repo.Root()
	}

	format, err := coder.ParseFormat(cfg.Edit.Format)
	if err != nil {
		return err
	}

	ioOpts := []ui.Option{ui.WithHistoryFile(historyFile(cfg, root))}
	if cfg.Chat.AssumeYes {
		ioOpts = append(ioOpts, ui.WithAssumeYes())
	}
	console := ui.New(ioOpts...)

	modelClient, err := client.NewGeminiClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	files := chat.NewFileContext(root)

	w, err := watcher.New(root, func(rel string) {
		if files.Contains(rel) {
			console.ToolOutput(rel + " was modified outside the chat")
		}
	})
	if err == nil {
		defer w.Close()
		// watch follows chat membership, wherever adds and drops come from
		files.Notify(
			func(rel string) { w.Watch(files.AbsPath(rel)) },
			func(rel string) { w.Unwatch(files.AbsPath(rel)) },
		)
	}

	for _, rel := range args {
		abs := files.AbsPath(rel)
		if _, err := os.Stat(abs); err != nil {
			console.ToolError(fmt.Sprintf("Unable to add %s: %v", rel, err))
			continue
		}
		files.Add(rel)
		console.ToolOutput("Added " + rel + " to the chat")
	}

	tpl := prompt.TemplatesFor(format)

	var repoVCS agent.VCS
	var gateVCS gate.VCS
	var reverter undo.Reverter
	if repo != nil {
		repoVCS = repo
		gateVCS = repo
		reverter = repo
	}

	orch := agent.New(agent.Deps{
		Config:    cfg,
		Client:    modelClient,
		IO:        console,
		Files:     files,
		Engine:    coder.NewEngine(format),
		Assembler: prompt.NewAssembler(tpl, cfg.Model.ExamplesAsSystem, cfg.Model.ReminderAsSystem, cfg.Model.MaxInputTokens),
		Templates: tpl,
		Gate:      gate.New(files, gateVCS, console, cfg.Edit.DryRun, cfg.Git.DirtyCommits),
		Repo:      repoVCS,
		Checker:   lint.NewRunner(root),
		Summarizer: summary.New(modelClient, cfg.Chat.MaxHistoryTokens),
		Undo:       undo.NewStack(reverter),
	})

	if message != "" {
		orch.RunTurn(ctx, message)
		return nil
	}

	return agent.NewSession(orch, console).Run(ctx)
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFrom(cfgFile)
	}
	return config.Load()
}

func applyFlags(cfg *config.Config) {
	if model != "" {
		cfg.Model.Name = model
	}
	if editFormat != "" {
		cfg.Edit.Format = editFormat
	}
	if assumeYes {
		cfg.Chat.AssumeYes = true
	}
	if dryRun {
		cfg.Edit.DryRun = true
	}
	if noCommits {
		cfg.Git.AutoCommits = false
	}
}

func historyFile(cfg *config.Config, root string) string {
	if cfg.Chat.HistoryFile != "" {
		return cfg.Chat.HistoryFile
	}
	return filepath.Join(root, ".aider.chat.history.md")
}
