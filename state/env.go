// Package state defines shared program state.
package state

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"cssrebase/config"
)

type envKey struct{}

// Switches are rewrite settings coming from command line only.
type Switches struct {
	NoDirs    bool
	Overwrite bool
	DryRun    bool
	Check     bool
	// CodePage decodes non UTF-8 names of archive entries, nil leaves them
	// as is
	CodePage encoding.Encoding
}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	Switches

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// SetCodePage looks up IANA character set name. Empty name resets code page.
// On error code page is left unset.
func (s *Switches) SetCodePage(name string) error {
	s.CodePage = nil
	if len(name) == 0 {
		return nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return fmt.Errorf("unknown character set %q: %w", name, err)
	}
	if enc == nil {
		return fmt.Errorf("character set %q is not supported", name)
	}
	s.CodePage = enc
	return nil
}

// CodePageName returns IANA name of the forced code page or empty string.
func (s *Switches) CodePageName() string {
	if s.CodePage == nil {
		return ""
	}
	name, err := ianaindex.IANA.Name(s.CodePage)
	if err != nil {
		return "unknown"
	}
	return name
}

// RedirectStdLog sends output of standard library logger to the program log.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log.Named("stdlog"))
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
		e.restoreStdLog = nil
	}
}
