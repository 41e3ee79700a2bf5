package config

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Name:             "gemini-2.5-pro",
			MaxInputTokens:   1048576,
			MaxOutputTokens:  8192,
			CanPrefill:       false,
			ExamplesAsSystem: false,
			ReminderAsSystem: true,
		},
		Edit: EditConfig{
			Format: "whole",
		},
		Git: GitConfig{
			AutoCommits:  true,
			DirtyCommits: true,
			Attribute:    true,
		},
		Lint: LintConfig{
			Auto: true,
		},
		Test: TestConfig{
			Auto: false,
		},
		Chat: ChatConfig{
			MaxReflections:   3,
			MaxHistoryTokens: 8192,
			HistoryFile:      ".aider.chat.history.md",
		},
		Logging: LoggingConfig{
			Level:   "warn",
			Enabled: false,
		},
	}
}
