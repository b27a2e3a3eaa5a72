package rebase

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"cssrebase/config"
	"cssrebase/state"
)

// buildOutputPath returns output file path for stylesheet. "src" is path
// relative to the original source including file name. Source directory
// structure is kept unless NoDirs is requested.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	return filepath.Join(determineOutputDir(src, dst, env), config.CleanFileName(filepath.Base(src)))
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

// prepareOutput makes sure output file could be written: existing file is
// removed when overwrite is allowed, missing directories are created.
func prepareOutput(name string, overwrite bool, log *zap.Logger) error {
	_, err := os.Stat(name)
	switch {
	case err == nil:
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrDestinationExists, name)
		}
		log.Warn("Overwriting existing file", zap.String("file", name))
		return os.Remove(name)
	case !os.IsNotExist(err):
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}
