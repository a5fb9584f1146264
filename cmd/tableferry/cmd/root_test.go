package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigFile(t *testing.T) {
	// Save original value and restore after test
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	tests := []struct {
		name     string
		cfgValue string
		want     string
	}{
		{
			name:     "default config file",
			cfgValue: "tableferry.yaml",
			want:     "tableferry.yaml",
		},
		{
			name:     "custom config file",
			cfgValue: "/path/to/custom.yaml",
			want:     "/path/to/custom.yaml",
		},
		{
			name:     "config file with spaces",
			cfgValue: "/path/to/my config.yaml",
			want:     "/path/to/my config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgFile = tt.cfgValue
			got := GetConfigFile()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetCLIOverrides(t *testing.T) {
	// Save original values and restore after test
	originalLogLevel := logLevel
	originalLogFormat := logFormat
	originalBatchSize := batchSize
	originalSkipVerify := skipVerify
	defer func() {
		logLevel = originalLogLevel
		logFormat = originalLogFormat
		batchSize = originalBatchSize
		skipVerify = originalSkipVerify
	}()

	tests := []struct {
		name       string
		logLevel   string
		logFormat  string
		batchSize  int
		skipVerify bool
		want       CLIOverrides
	}{
		{
			name: "empty overrides",
			want: CLIOverrides{},
		},
		{
			name:       "all overrides set",
			logLevel:   "debug",
			logFormat:  "text",
			batchSize:  500,
			skipVerify: true,
			want: CLIOverrides{
				LogLevel:   "debug",
				LogFormat:  "text",
				BatchSize:  500,
				SkipVerify: true,
			},
		},
		{
			name:      "partial overrides",
			logLevel:  "warn",
			batchSize: 1000,
			want: CLIOverrides{
				LogLevel:  "warn",
				BatchSize: 1000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logLevel = tt.logLevel
			logFormat = tt.logFormat
			batchSize = tt.batchSize
			skipVerify = tt.skipVerify

			got := GetCLIOverrides()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootCommandStructure(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "tableferry", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Equal(t, Version, rootCmd.Version)
}

func TestRootCommandPersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	// Test config flag
	configFlag, err := flags.GetString("config")
	assert.NoError(t, err)
	assert.Equal(t, "tableferry.yaml", configFlag)

	// Test log-level flag
	logLevelFlag, err := flags.GetString("log-level")
	assert.NoError(t, err)
	assert.Equal(t, "", logLevelFlag)

	// Test log-format flag
	logFormatFlag, err := flags.GetString("log-format")
	assert.NoError(t, err)
	assert.Equal(t, "", logFormatFlag)

	// Test batch-size flag
	batchSizeFlag, err := flags.GetInt("batch-size")
	assert.NoError(t, err)
	assert.Equal(t, 0, batchSizeFlag)

	// Test skip-verify flag
	skipVerifyFlag, err := flags.GetBool("skip-verify")
	assert.NoError(t, err)
	assert.Equal(t, false, skipVerifyFlag)
}

func TestRootCommandSubcommands(t *testing.T) {
	commands := rootCmd.Commands()
	commandNames := make([]string, len(commands))
	for i, cmd := range commands {
		commandNames[i] = cmd.Name()
	}

	expectedCommands := []string{
		"dry-run",
		"dump",
		"list-tables",
		"load",
		"plan",
		"validate",
		"version",
	}

	for _, expected := range expectedCommands {
		assert.Contains(t, commandNames, expected, "Expected command %s not found", expected)
	}
}
