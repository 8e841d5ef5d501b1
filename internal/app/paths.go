package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths stores resolved runtime file locations for user config, session,
// logs, and the history database.
type Paths struct {
	RootDir     string
	ConfigFile  string
	SessionFile string
	DBFile      string
	LogFile     string
}

func ResolvePaths() (Paths, error) {
	cfgRoot, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve config dir: %w", err)
	}

	root := filepath.Join(cfgRoot, Name)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return Paths{}, fmt.Errorf("create app config dir: %w", err)
	}

	return Paths{
		RootDir:     root,
		ConfigFile:  filepath.Join(root, ConfigFilename),
		SessionFile: filepath.Join(root, SessionFilename),
		DBFile:      filepath.Join(root, DBFilename),
		LogFile:     filepath.Join(root, LogFilename),
	}, nil
}
