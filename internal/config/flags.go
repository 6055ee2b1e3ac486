package config

import (
	"flag"
	"os"

	"github.com/castship/castship/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-k string   base64 master key (overrides the key file)
//	-f string   path of the persisted master-key file
//
// os.Args is first filtered to only the flags handled here (flagx.FilterArgs),
// avoiding collisions with flags owned by other packages.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-k", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MasterKey, "k", config.MasterKey, "base64 master key")
	fs.StringVar(&config.KeyFile, "f", config.KeyFile, "master key file path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
