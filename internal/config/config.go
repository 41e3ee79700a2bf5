package config

// Config represents the main application configuration. It is constructed
// once per session and passed by reference; callers never mutate it.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Edit    EditConfig    `yaml:"edit"`
	Git     GitConfig     `yaml:"git"`
	Lint    LintConfig    `yaml:"lint"`
	Test    TestConfig    `yaml:"test"`
	Chat    ChatConfig    `yaml:"chat"`
	Logging LoggingConfig `yaml:"logging"`

	// Runtime version information
	Version string `yaml:"-"`
}

// ModelConfig holds model-related settings.
type ModelConfig struct {
	// Name of the model to send turns to.
	Name string `yaml:"name"`

	// APIKey for the transport. Falls back to GEMINI_API_KEY.
	APIKey string `yaml:"api_key,omitempty"`

	// MaxInputTokens bounds the assembled message sequence.
	MaxInputTokens int `yaml:"max_input_tokens"`

	// MaxOutputTokens bounds a single response.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// CanPrefill indicates the model can be primed with a partial
	// assistant message to continue a length-truncated response.
	CanPrefill bool `yaml:"can_prefill"`

	// ExamplesAsSystem folds example exchanges into the system message
	// instead of appending them as discrete turns.
	ExamplesAsSystem bool `yaml:"examples_as_system"`

	// ReminderAsSystem appends the format reminder as a trailing system
	// message instead of folding it into the last user message.
	ReminderAsSystem bool `yaml:"reminder_as_system"`
}

// EditConfig holds edit application settings.
type EditConfig struct {
	// Format selects the wire format for edits: whole, diff, or udiff.
	Format string `yaml:"format"`

	// DryRun parses and gates edits but writes nothing.
	DryRun bool `yaml:"dry_run"`
}

// GitConfig holds version-control settings.
type GitConfig struct {
	// AutoCommits commits applied edits after a clean turn.
	AutoCommits bool `yaml:"auto_commits"`

	// DirtyCommits commits externally modified in-chat files before
	// applying edits, preserving an undo point.
	DirtyCommits bool `yaml:"dirty_commits"`

	// Attribute appends an attribution trailer to commit messages.
	Attribute bool `yaml:"attribute"`
}

// LintConfig holds lint gate settings.
type LintConfig struct {
	// Auto runs the lint command over edited files after each turn.
	Auto bool `yaml:"auto"`

	// Command is the lint command; the edited file path is appended.
	Command string `yaml:"command"`
}

// TestConfig holds test gate settings.
type TestConfig struct {
	// Auto runs the test command after each turn that applied edits.
	Auto bool `yaml:"auto"`

	// Command is the full test command to run.
	Command string `yaml:"command"`
}

// ChatConfig holds conversation settings.
type ChatConfig struct {
	// MaxReflections bounds automatic follow-up turns per user input.
	MaxReflections int `yaml:"max_reflections"`

	// MaxHistoryTokens triggers background summarization when exceeded.
	MaxHistoryTokens int `yaml:"max_history_tokens"`

	// HistoryFile is the append-only markdown chat log.
	HistoryFile string `yaml:"history_file"`

	// AssumeYes answers every confirmation prompt affirmatively.
	AssumeYes bool `yaml:"assume_yes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Enabled bool   `yaml:"enabled"`
}
