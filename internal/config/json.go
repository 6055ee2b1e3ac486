package config

import (
	"encoding/json"
	"os"

	"github.com/castship/castship/internal/flagx"
)

// JsonConfig mirrors Config for JSON unmarshalling. It is an intermediate
// DTO used only for reading JSON configuration files; after unmarshalling,
// its fields are copied into the runtime Config.
type JsonConfig struct {
	DatabaseDSN string `json:"database_dsn"`
	MasterKey   string `json:"master_key"`
	KeyFile     string `json:"key_file"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. When no file is named, nothing
// is loaded. An unreadable or invalid file panics: a deploy engine must not
// start on a half-applied config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.MasterKey != "" {
		config.MasterKey = c.MasterKey
	}
	if c.KeyFile != "" {
		config.KeyFile = c.KeyFile
	}
}
