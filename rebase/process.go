package rebase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cssrebase/archive"
	"cssrebase/css"
	"cssrebase/cssurl"
	"cssrebase/state"
)

type totals struct {
	files        atomic.Int64
	failed       atomic.Int64
	declarations atomic.Int64
	rewritten    atomic.Int64
}

// rebaser keeps everything necessary to process a single run.
type rebaser struct {
	env   *state.LocalEnv
	log   *zap.Logger
	prims cssurl.Primitives
	check *checker
	css   *css.Rewriter
	dst   string

	// output names already taken by other stylesheets of this run
	outputs sync.Map
	totals  totals
}

func newRebaser(env *state.LocalEnv, log *zap.Logger) *rebaser {
	r := &rebaser{
		env:   env,
		log:   log,
		prims: primitives(&env.Cfg.Rewrite),
		css:   css.NewRewriter(log),
	}
	if env.Check {
		r.check = newChecker(r.prims, log)
		r.prims = r.check
	}
	return r
}

// job is a single stylesheet to process. "name" is path relative to the
// original source (always including file name), "dir" is the directory
// references are resolved against.
type job struct {
	name string
	dir  string
	data []byte
	// origin is used for logging only
	origin []zap.Field
}

// run determines the input type (directory, archive, or single file) and
// processes it. Stylesheets are rewritten concurrently.
func (r *rebaser) run(ctx context.Context, src, dst string) error {
	r.dst = dst

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.env.Cfg.Rewrite.Workers())

	submit := func(j job) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.rewrite(j); err != nil {
				r.totals.failed.Add(1)
				r.log.Error("Unable to process stylesheet", append(j.origin, zap.Error(err))...)
			}
			return nil
		})
	}

	err := r.walk(gctx, src, submit)
	return errors.Join(err, g.Wait())
}

// walk finds stylesheets in src and submits them for processing.
func (r *rebaser) walk(ctx context.Context, src string, submit func(job)) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			return r.walkDir(ctx, head, submit)
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		arc, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if arc {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := r.walkArchive(ctx, head, filepath.ToSlash(tail), "", submit); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			return nil
		}

		if len(tail) == 0 && r.env.Cfg.Rewrite.Matches(head) {
			data, err := os.ReadFile(head)
			if err != nil {
				return fmt.Errorf("unable to read stylesheet: %w", err)
			}
			submit(job{
				name:   filepath.Base(head),
				dir:    filepath.Dir(head),
				data:   data,
				origin: []zap.Field{zap.String("file", head)},
			})
			return nil
		}
		return fmt.Errorf("input was not recognized as stylesheet (%s)", head)
	}
	return fmt.Errorf("input source was not found (%s)", src)
}

// walkDir walks directory tree finding stylesheets and archives.
func (r *rebaser) walkDir(ctx context.Context, dir string, submit func(job)) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			r.log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			r.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.IsDir() && path != dir && path == r.dst {
			// results of this run
			return filepath.SkipDir
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		if r.env.Cfg.Rewrite.Matches(path) {
			data, err := os.ReadFile(path)
			if err != nil {
				r.log.Error("Unable to read stylesheet", zap.String("file", path), zap.Error(err))
				return nil
			}
			count++
			submit(job{
				name:   rel,
				dir:    filepath.Dir(path),
				data:   data,
				origin: []zap.Field{zap.String("file", path)},
			})
			return nil
		}

		arc, err := isArchiveFile(path)
		if err != nil {
			r.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !arc {
			return nil
		}
		count++
		if err := r.walkArchive(ctx, path, "", filepath.Dir(rel), submit); err != nil {
			r.log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
}

// walkArchive finds stylesheets under "pathIn" inside archive. Archive content
// is treated as if it was unpacked into the directory holding the archive,
// "pathOut" is that directory relative to the original source.
func (r *rebaser) walkArchive(ctx context.Context, arc, pathIn, pathOut string, submit func(job)) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			r.log.Debug("Nothing to process", zap.String("archive", arc))
		}
	}()

	if r.env.CodePage != nil {
		r.log.Debug("Decoding non UTF-8 names", zap.String("archive", arc), zap.String("charset", r.env.CodePageName()))
	}

	opts := archive.Options{
		Prefix:   pathIn,
		Match:    r.env.Cfg.Rewrite.Matches,
		CodePage: r.env.CodePage,
	}
	return archive.Walk(arc, opts, func(arc string, entry archive.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := entry.ReadAll()
		if err != nil {
			r.log.Error("Unable to read stylesheet in archive",
				zap.String("archive", arc), zap.String("file", entry.Name), zap.Error(err))
			return nil
		}

		count++
		submit(job{
			name:   filepath.Join(pathOut, filepath.FromSlash(entry.Name)),
			dir:    filepath.Join(filepath.Dir(arc), filepath.FromSlash(path.Dir(entry.Name))),
			data:   data,
			origin: []zap.Field{zap.String("archive", arc), zap.String("file", entry.Name)},
		})
		return nil
	})
}

// rewrite processes single stylesheet and writes result under destination.
func (r *rebaser) rewrite(j job) error {
	outputName := buildOutputPath(j.name, r.dst, r.env)
	if other, taken := r.outputs.LoadOrStore(outputName, j.name); taken {
		return fmt.Errorf("output %s is already produced from %s", outputName, other)
	}
	outputDir := filepath.Dir(outputName)
	r.env.Rpt.StoreData("source/"+filepath.ToSlash(j.name), j.data)

	start := time.Now()
	tr := cssurl.New(outputDir, r.env.Cfg.Rewrite.Options(), r.prims, cssurl.WithLogger(r.log))

	var buf bytes.Buffer
	stats, err := r.css.Rewrite(&buf, bytes.NewReader(j.data), j.dir, tr.Transform)
	if err != nil {
		return err
	}

	r.totals.files.Add(1)
	r.totals.declarations.Add(int64(stats.Declarations))
	r.totals.rewritten.Add(int64(stats.Rewritten))

	fields := append(j.origin,
		zap.String("to", outputName),
		zap.Int("declarations", stats.Declarations),
		zap.Int("rewritten", stats.Rewritten),
		zap.Duration("elapsed", time.Since(start)))

	if r.env.DryRun {
		r.log.Info("Stylesheet processed, nothing written", fields...)
		return nil
	}

	if err := prepareOutput(outputName, r.env.Overwrite, r.log); err != nil {
		return err
	}
	if err := os.WriteFile(outputName, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	if rel, err := filepath.Rel(r.dst, outputName); err == nil {
		r.env.Rpt.Store("result/"+filepath.ToSlash(rel), outputName)
	}

	r.log.Info("Stylesheet rewritten", fields...)
	return nil
}

func (r *rebaser) summary(elapsed time.Duration) {
	fields := []zap.Field{
		zap.Int64("files", r.totals.files.Load()),
		zap.Int64("failed", r.totals.failed.Load()),
		zap.Int64("declarations", r.totals.declarations.Load()),
		zap.Int64("rewritten", r.totals.rewritten.Load()),
		zap.Duration("elapsed", elapsed),
	}
	if r.check != nil {
		fields = append(fields,
			zap.Int64("missing", r.check.missing.Load()),
			zap.Int64("mismatched", r.check.mismatched.Load()))
	}
	r.log.Info("Processing completed", fields...)
}
