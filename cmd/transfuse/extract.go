package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/mr-martian/transfuse/codec"
	"github.com/mr-martian/transfuse/project"
	"github.com/mr-martian/transfuse/state"
	"github.com/mr-martian/transfuse/tagpolicy"
)

var supportedExtractFormats = []string{"docx", "pptx", "odt", "html", "html-fragment", "text"}

var extractCommand = &cli.Command{
	Name:         "extract",
	Usage:        "Extracts translatable blocks from a source document into a project directory",
	OnUsageError: usageErrorHandler,
	Action:       runExtract,
	ArgsUsage:    "INPUT",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "html",
			Usage: "source format adapter: " + strings.Join(supportedExtractFormats, ", ")},
		&cli.StringFlag{Name: "stream", Aliases: []string{"s"}, Value: "apertium",
			Usage: "wire variant to emit: apertium (line markers) or command (VISL sentinels)"},
		&cli.StringFlag{Name: "project", Aliases: []string{"p"},
			Usage: "project directory to create; default creates a fresh one under the configured project root"},
	},
}

func runExtract(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	input := cmd.Args().Get(0)
	if input == "" {
		return fmt.Errorf("extract requires an INPUT file argument")
	}

	format := cmd.String("format")
	policy, ok := env.Cfg.Policy[format]
	if !ok || policy == nil {
		policy = &tagpolicy.Policy{}
		policy.Compile()
		env.Log.Warn("no configured policy for format, using an empty one", zap.String("format", format))
	}

	variant, err := streamVariant(cmd.String("stream"))
	if err != nil {
		return err
	}
	if variant == codec.Detect {
		variant = codec.Line
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input %s: %w", input, err)
	}
	defer f.Close()

	var p *project.Project
	if dir := cmd.String("project"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create project directory %s: %w", dir, err)
		}
		if p, err = project.Open(dir); err != nil {
			return err
		}
	} else {
		if p, err = project.New(env.Cfg.Project.Root, env.Rpt); err != nil {
			return err
		}
	}

	if err := p.Extract(ctx, env, f, filepath.Base(input), format, policy, variant, os.Stdout); err != nil {
		return fmt.Errorf("extract %s: %w", input, err)
	}

	env.Log.Info("extraction complete", zap.String("project", p.Dir), zap.String("format", format))
	return nil
}
