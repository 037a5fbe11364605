package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	ModulePath      []string `mapstructure:"module_path"`
	OutputDir       string   `mapstructure:"output_dir"`
	Jobs            int      `mapstructure:"jobs"`
	Shell           string   `mapstructure:"shell"`
	LogLevel        string   `mapstructure:"log_level"`
	WatchDebounceMS int      `mapstructure:"watch_debounce_ms"`
}

// C is the global config instance
var C Config

// Init initializes configuration with viper
func Init() error {
	viper.SetDefault("module_path", []string{})
	viper.SetDefault("output_dir", "")
	viper.SetDefault("jobs", 1)
	viper.SetDefault("shell", getDefaultShell())
	viper.SetDefault("log_level", "info")
	viper.SetDefault("watch_debounce_ms", 500)

	viper.SetConfigName("kigen")
	viper.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "kigen"))
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("KIGEN")
	viper.AutomaticEnv()

	// Try to read config, but don't fail if not found or malformed
	_ = viper.ReadInConfig()

	return viper.Unmarshal(&C)
}

// GetModulePath returns the expansion module search directories with tilde expansion
func GetModulePath() []string {
	dirs := viper.GetStringSlice("module_path")
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, expandTilde(dir))
	}
	return out
}

// GetOutputDir returns the output directory with tilde expansion.
// Empty means rendered files overwrite the originals.
func GetOutputDir() string {
	return expandTilde(viper.GetString("output_dir"))
}

// GetJobs returns how many files are rendered concurrently
func GetJobs() int {
	return viper.GetInt("jobs")
}

// GetShell returns the shell used by the exec content provider
func GetShell() string {
	return viper.GetString("shell")
}

// GetLogLevel returns the log level name
func GetLogLevel() string {
	return viper.GetString("log_level")
}

// GetWatchDebounce returns the quiet period before watch mode re-renders
func GetWatchDebounce() time.Duration {
	return time.Duration(viper.GetInt("watch_debounce_ms")) * time.Millisecond
}

// expandTilde expands ~ to the user's home directory
func expandTilde(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func getDefaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/bash"
}
