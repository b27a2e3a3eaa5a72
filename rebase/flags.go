package rebase

import (
	"strings"

	cli "github.com/urfave/cli/v3"

	"cssrebase/config"
)

func resolutionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "mode",
			Usage: "how references are rewritten (" + strings.Join(config.RewriteModeNames(), ", ") + ")",
			Validator: func(s string) error {
				_, err := config.ParseRewriteMode(s)
				return err
			},
		},
		&cli.BoolFlag{Name: "keep-query", Usage: "keep ?query and #hash suffixes of rewritten references"},
		&cli.StringFlag{Name: "root", Usage: "marker of root relative references (default: ~)"},
		&cli.StringFlag{Name: "root-dir", Usage: "directory root relative references are resolved against", TakesFile: true},
	}
}

// RewriteFlags returns flags of rewrite command.
func RewriteFlags() []cli.Flag {
	return append(resolutionFlags(),
		&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exists, overwrite files"},
		&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "when producing output do not keep input directory structure"},
		&cli.StringFlag{Name: "force-zip-cp", Usage: "force `ENCODING` for ALL file names in archives (see IANA.org for character set names)"},
		&cli.BoolFlag{Name: "dry-run", Usage: "process stylesheets without writing results"},
		&cli.BoolFlag{Name: "check", Usage: "verify that referenced files exist and match their extensions"},
	)
}

// ValueFlags returns flags of value command.
func ValueFlags() []cli.Flag {
	return append(resolutionFlags(),
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "stylesheet `FILE` values will be written to", Required: true, TakesFile: true},
		&cli.StringFlag{Name: "dir", Usage: "`DIR` references are resolved against (default: directory of the stylesheet)", TakesFile: true},
	)
}
