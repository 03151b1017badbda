package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Timeline contains the segmentation parameters.
type Timeline struct {
	// ActiveWindowCapacity bounds how many participants are on stage at once.
	ActiveWindowCapacity int `toml:"active_window_capacity"`
	// MinSectionDurationMs is the smallest gap that closes a section.
	MinSectionDurationMs int64 `toml:"min_section_duration_ms"`
	// OutputFPS drives the frame quantization of section boundaries.
	OutputFPS int `toml:"output_fps"`
}

// Layout contains the output canvas geometry.
type Layout struct {
	CanvasWidth        int `toml:"canvas_width"`
	CanvasHeight       int `toml:"canvas_height"`
	MaxSmallTileHeight int `toml:"max_small_tile_height"`
}

// Render contains configuration for section dispatch.
type Render struct {
	Parallelism   int    `toml:"parallelism"`
	FailurePolicy string `toml:"failure_policy"`
	Command       string `toml:"command"`
	KeepWorkspace bool   `toml:"keep_workspace"`
}

// Ingest contains configuration for reading recorder metadata.
type Ingest struct {
	MetadataFile   string `toml:"metadata_file"`
	EndpointsFile  string `toml:"endpoints_file"`
	ProbeDurations bool   `toml:"probe_durations"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for recplan.
//
// Configuration sections by subsystem:
//   - Paths: input, workspace, output, log and state directories
//   - Timeline: window capacity, minimum section duration and output fps
//   - Layout: canvas size and small tile height cap
//   - Render: worker parallelism, failure policy and external command
//   - Ingest: metadata/endpoints file names and duration probing
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Timeline Timeline `toml:"timeline"`
	Layout   Layout   `toml:"layout"`
	Render   Render   `toml:"render"`
	Ingest   Ingest   `toml:"ingest"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recplan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a planning run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FrameDurationMillis returns the duration of one output frame in whole
// milliseconds.
func (c *Config) FrameDurationMillis() int64 {
	if c.Timeline.OutputFPS <= 0 {
		return 0
	}
	return int64(1000 / c.Timeline.OutputFPS)
}

// MetadataPath returns the recorder metadata file inside the input directory.
func (c *Config) MetadataPath() string {
	return c.inputFile(c.Ingest.MetadataFile)
}

// EndpointsPath returns the endpoints file inside the input directory, or an
// empty string when none is configured.
func (c *Config) EndpointsPath() string {
	return c.inputFile(c.Ingest.EndpointsFile)
}

func (c *Config) inputFile(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Paths.InputDir, name)
}

// StorePath returns the sqlite database location for run history.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.StateDir, "recplan.db")
}

// LockPath returns the lock file guarding the output directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.OutputDir, ".recplan.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
