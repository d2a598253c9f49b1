package config

// Config is the planner configuration, read from ~/.planner/config.yaml and
// then <project>/.planner/config.yaml.
type Config struct {
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Sync     SyncConfig     `yaml:"sync" mapstructure:"sync"`
	Features FeaturesConfig `yaml:"features" mapstructure:"features"`
	Web      WebConfig      `yaml:"web" mapstructure:"web"`
}

// StorageConfig selects the local store.
type StorageConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `yaml:"backend" mapstructure:"backend"`
	// Path defaults to .planner/tasks.csv or .planner/planner.db.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// SyncConfig lists remote stores. A remote is enabled once its address is set.
type SyncConfig struct {
	Sheet SheetConfig `yaml:"sheet" mapstructure:"sheet"`
	Blob  BlobConfig  `yaml:"blob" mapstructure:"blob"`
	Neo4j Neo4jConfig `yaml:"neo4j" mapstructure:"neo4j"`
}

type SheetConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

type BlobConfig struct {
	Account   string `yaml:"account" mapstructure:"account"`
	Container string `yaml:"container" mapstructure:"container"`
	Blob      string `yaml:"blob" mapstructure:"blob"`
	SASToken  string `yaml:"sas_token" mapstructure:"sas_token"`
	Local     bool   `yaml:"local" mapstructure:"local"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
}

func (b BlobConfig) Enabled() bool {
	return b.Account != "" || b.Local || b.BaseURL != ""
}

type Neo4jConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

type FeaturesConfig struct {
	// ExtendedFields writes the category and priority columns.
	ExtendedFields bool `yaml:"extended_fields" mapstructure:"extended_fields"`
}

type WebConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}
