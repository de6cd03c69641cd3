package config

// JobConfig holds configuration for one reconciliation run.
type JobConfig struct {
	// Stage1Glob matches the first-stage entry files to read.
	Stage1Glob string `mapstructure:"stage1_glob" default:""`
	// Stage2Glob matches the second-stage entry files to read.
	Stage2Glob string `mapstructure:"stage2_glob" default:""`
	// EquivalentGlob matches the equivalent-structure list files.
	EquivalentGlob string `mapstructure:"equivalent_glob" default:""`
	// TopologyCSV is the bond topology enumeration feed.
	TopologyCSV string `mapstructure:"topology_csv" default:""`
	// OutputDir is where run artifacts are written.
	OutputDir string `mapstructure:"output_dir" default:"out"`
	// Workers bounds concurrent group processing.
	Workers int `mapstructure:"workers" default:"4"`
	// SkipFailedGroups keeps the run going when a single id group fails,
	// reporting the failures at the end instead of aborting.
	SkipFailedGroups bool `mapstructure:"skip_failed_groups" default:"false"`
	// UploadArtifacts pushes the output directory to object storage after
	// the run.
	UploadArtifacts bool `mapstructure:"upload_artifacts" default:"false"`
	// PersistResults writes outcomes, summaries and stats to the database.
	PersistResults bool `mapstructure:"persist_results" default:"false"`
	// RunID names the run; it prefixes uploaded artifacts. Empty generates
	// a fresh id.
	RunID string `mapstructure:"run_id" default:""`
}
