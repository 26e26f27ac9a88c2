package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/mr-martian/transfuse/codec"
	"github.com/mr-martian/transfuse/project"
	"github.com/mr-martian/transfuse/state"
	"github.com/mr-martian/transfuse/tagpolicy"
)

var injectCommand = &cli.Command{
	Name:         "inject",
	Usage:        "Splices a translated block stream back into its project and writes the reconstructed document",
	OnUsageError: usageErrorHandler,
	Action:       runInject,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "stream", Aliases: []string{"s"}, Value: "detect",
			Usage: "wire variant to parse: detect, apertium (line markers), or command (VISL sentinels)"},
		&cli.StringFlag{Name: "project", Aliases: []string{"p"},
			Usage: "project directory to inject into; default is read from the stream's own header"},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "html",
			Usage: "source format, used to look up the policy the stream was extracted with and to name the output file's extension"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"},
			Usage: "output file; default writes into the project directory as injected.<format>"},
	},
}

func runInject(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	variant, err := streamVariant(cmd.String("stream"))
	if err != nil {
		return err
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read translated stream: %w", err)
	}

	dir := cmd.String("project")
	if dir == "" {
		nl := bytes.IndexByte(data, '\n')
		header := string(data)
		if nl >= 0 {
			header = string(data[:nl])
		}
		found, ok := codec.GetTmpdir(header)
		if !ok {
			return fmt.Errorf("stream header does not carry a project directory; pass --project explicitly")
		}
		dir = found
	}

	p, err := project.Open(dir)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	policy, ok := env.Cfg.Policy[format]
	if !ok || policy == nil {
		policy = &tagpolicy.Policy{}
		policy.Compile()
		env.Log.Warn("no configured policy for format, using an empty one", zap.String("format", format))
	}

	doc, err := p.Inject(ctx, env, bytes.NewReader(data), variant, policy)
	if err != nil {
		return fmt.Errorf("inject into %s: %w", dir, err)
	}

	outPath := cmd.String("out")
	if outPath == "" {
		outPath = p.InjectedPath(format)
	}
	if err := doc.WriteToFile(outPath); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if env.Rpt != nil {
		env.Rpt.Store("injected."+format, outPath)
	}

	env.Log.Info("injection complete", zap.String("project", p.Dir), zap.String("output", outPath))

	if !env.Cfg.Project.Keep {
		if err := p.Remove(); err != nil {
			env.Log.Warn("failed to remove project directory", zap.String("project", p.Dir), zap.Error(err))
		}
	}
	return nil
}
