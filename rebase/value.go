package rebase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cssrebase/cssurl"
	"cssrebase/state"
)

// Value is the action of value command: every argument is treated as a
// declaration value and printed rewritten, one per line.
func Value(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("value")

	file := cmd.String("file")
	if len(file) == 0 {
		return errors.New("stylesheet location has not been specified")
	}
	if file, err = filepath.Abs(file); err != nil {
		return err
	}

	dir := cmd.String("dir")
	if len(dir) == 0 {
		dir = filepath.Dir(file)
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return err
	}

	if cmd.Args().Len() == 0 {
		return errors.New("no values to rewrite")
	}
	if err := applyFlags(cmd, &env.Cfg.Rewrite); err != nil {
		return err
	}

	log.Debug("Rewriting values", zap.String("file", file), zap.String("dir", dir), zap.Stringer("mode", env.Cfg.Rewrite.Mode))

	// same as rewrite: relative requests are computed from directory of the
	// stylesheet
	tr := cssurl.New(filepath.Dir(file), env.Cfg.Rewrite.Options(), primitives(&env.Cfg.Rewrite), cssurl.WithLogger(log))
	for _, value := range cmd.Args().Slice() {
		if _, err := fmt.Fprintln(cmd.Root().Writer, tr.Transform(value, dir)); err != nil {
			return err
		}
	}
	return nil
}
