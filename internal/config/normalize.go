package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeIngest()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
		def   string
	}{
		{"paths.input_dir", &c.Paths.InputDir, defaultInputDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.def
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.FailurePolicy = strings.ToLower(strings.TrimSpace(c.Render.FailurePolicy))
	if c.Render.FailurePolicy == "" {
		c.Render.FailurePolicy = defaultFailurePolicy
	}
	if value, ok := os.LookupEnv("RECPLAN_RENDER_COMMAND"); ok {
		c.Render.Command = value
	}
	c.Render.Command = strings.TrimSpace(c.Render.Command)
}

func (c *Config) normalizeIngest() {
	c.Ingest.MetadataFile = strings.TrimSpace(c.Ingest.MetadataFile)
	if c.Ingest.MetadataFile == "" {
		c.Ingest.MetadataFile = defaultMetadataFile
	}
	c.Ingest.EndpointsFile = strings.TrimSpace(c.Ingest.EndpointsFile)
	c.Ingest.FFprobeBinary = strings.TrimSpace(c.Ingest.FFprobeBinary)
	if c.Ingest.FFprobeBinary == "" {
		c.Ingest.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
