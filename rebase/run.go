// Package rebase rewrites url() references of stylesheets so they stay valid
// after stylesheets are moved to a new location.
package rebase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cssrebase/config"
	"cssrebase/cssurl"
	"cssrebase/request"
	"cssrebase/state"
)

var (
	ErrNoSource          = errors.New("no input source has been specified")
	ErrDestinationExists = errors.New("output file already exists")
)

// Run is the action of rewrite command.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("rewrite")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return ErrNoSource
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if err := applyFlags(cmd, &env.Cfg.Rewrite); err != nil {
		return err
	}
	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")
	env.DryRun, env.Check = cmd.Bool("dry-run"), cmd.Bool("check")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if err := env.SetCodePage(cmd.String("force-zip-cp")); err != nil {
		log.Warn("Unknown character set specification. Ignoring...", zap.Error(err))
	} else if env.CodePage != nil {
		log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", env.CodePageName()))
	}

	r := newRebaser(env, log)

	log.Info("Processing starting",
		zap.String("source", src), zap.String("destination", dst),
		zap.Stringer("mode", env.Cfg.Rewrite.Mode), zap.Bool("dry-run", env.DryRun))
	defer func(start time.Time) {
		r.summary(time.Since(start))
	}(time.Now())

	return r.run(ctx, src, dst)
}

// applyFlags overwrites configuration with values explicitly set on command line.
func applyFlags(cmd *cli.Command, conf *config.RewriteConfig) error {
	if cmd.IsSet("mode") {
		mode, err := config.ParseRewriteMode(cmd.String("mode"))
		if err != nil {
			return fmt.Errorf("unable to use requested mode: %w", err)
		}
		conf.Mode = mode
	}
	if cmd.IsSet("keep-query") {
		conf.KeepQuery = cmd.Bool("keep-query")
	}
	if cmd.IsSet("root") {
		conf.Root = cmd.String("root")
	}
	if cmd.IsSet("root-dir") {
		dir, err := filepath.Abs(cmd.String("root-dir"))
		if err != nil {
			return err
		}
		conf.RootDir = dir
	}
	return nil
}

// primitives builds request primitives for configuration.
func primitives(conf *config.RewriteConfig) *request.Primitives {
	root := conf.Root
	if root == "" {
		root = cssurl.DefaultRoot
	}
	return request.NewPrimitives(root, conf.RootDir, conf.FallbackDirs...)
}
