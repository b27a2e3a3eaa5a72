package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"runtime"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"cssrebase/cssurl"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	RewriteConfig struct {
		Mode      RewriteMode `yaml:"mode" validate:"gte=0"`
		KeepQuery bool        `yaml:"keep_query"`
		// Root marks root relative urls, "~" when empty
		Root string `yaml:"root"`
		// RootDir is where root relative urls are resolved, directory of
		// the stylesheet when empty
		RootDir      string   `yaml:"root_dir"`
		FallbackDirs []string `yaml:"fallback_dirs" validate:"dive,required"`
		// Extensions of files processed when source is a directory or an archive
		Extensions  []string `yaml:"extensions" validate:"required,min=1,dive,required"`
		Concurrency int      `yaml:"concurrency" validate:"gte=0"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Rewrite   RewriteConfig  `yaml:"rewrite"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// Options converts configuration into transformer options.
func (conf *RewriteConfig) Options() cssurl.Options {
	return cssurl.Options{
		Root:      conf.Root,
		Absolute:  conf.Mode == RewriteModeAbsolute,
		KeepQuery: conf.KeepQuery,
	}
}

// Workers returns number of stylesheets processed at the same time.
func (conf *RewriteConfig) Workers() int {
	if conf.Concurrency > 0 {
		return conf.Concurrency
	}
	return runtime.NumCPU()
}

// Matches checks if file name has one of configured extensions.
func (conf *RewriteConfig) Matches(name string) bool {
	for _, ext := range conf.Extensions {
		if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
