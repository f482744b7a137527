// Package cfg resolves the on-disk directory flowcore uses for persisted
// runtime configuration (graph definitions, table-size overrides).
package cfg

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/akitasoftware/flowcore/printer"
)

var (
	cfgDir string
)

func init() {
	initCfgDir()
}

func initCfgDir() {
	home, err := homedir.Dir()
	if err != nil {
		printer.Stderr.Warningf("Failed to find $HOME, defaulting to '.', error: %v", err)
		home = "."
	}
	cfgDir = filepath.Join(home, ".flowcore")

	if stat, err := os.Stat(cfgDir); os.IsNotExist(err) {
		// Create the directory if it doesn't exist.
		if err := os.Mkdir(cfgDir, 0700); err != nil {
			printer.Stderr.Warningf("Failed to create config directory %s, persistent config will not work, error: %v\n", cfgDir, err)
		}
	} else if err != nil {
		printer.Stderr.Errorf("Failed to stat %s: %v\n", cfgDir, err)
		os.Exit(1)
	} else if !stat.IsDir() {
		printer.Stderr.Errorf("%s is not a directory, please remove.\n", cfgDir)
		os.Exit(1)
	}
}

// Dir returns the resolved flowcore configuration directory.
func Dir() string {
	return cfgDir
}

// GraphPath returns the default path for a named graph definition file.
func GraphPath(name string) string {
	return filepath.Join(cfgDir, "graphs", name+".json")
}
