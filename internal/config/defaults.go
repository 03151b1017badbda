package config

const (
	defaultConfigPath           = "~/.config/recplan/config.toml"
	defaultInputDir             = "."
	defaultWorkDir              = "~/.local/share/recplan/work"
	defaultOutputDir            = "~/.local/share/recplan/output"
	defaultLogDir               = "~/.local/share/recplan/logs"
	defaultStateDir             = "~/.local/share/recplan"
	defaultLogRetentionDays     = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultWindowCapacity       = 7
	defaultMinSectionDurationMs = 50
	defaultOutputFPS            = 25
	defaultCanvasWidth          = 1280
	defaultCanvasHeight         = 720
	defaultMaxSmallTileHeight   = 97
	defaultRenderParallelism    = 3
	defaultFailurePolicy        = FailurePolicyContinue
	defaultMetadataFile         = "metadata.json"
	defaultEndpointsFile        = "endpoints.json"
	defaultFFprobeBinary        = "ffprobe"
)

// Failure policies accepted by render.failure_policy.
const (
	FailurePolicyContinue = "continue"
	FailurePolicyAbort    = "abort"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Timeline: Timeline{
			ActiveWindowCapacity: defaultWindowCapacity,
			MinSectionDurationMs: defaultMinSectionDurationMs,
			OutputFPS:            defaultOutputFPS,
		},
		Layout: Layout{
			CanvasWidth:        defaultCanvasWidth,
			CanvasHeight:       defaultCanvasHeight,
			MaxSmallTileHeight: defaultMaxSmallTileHeight,
		},
		Render: Render{
			Parallelism:   defaultRenderParallelism,
			FailurePolicy: defaultFailurePolicy,
		},
		Ingest: Ingest{
			MetadataFile:  defaultMetadataFile,
			EndpointsFile: defaultEndpointsFile,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
