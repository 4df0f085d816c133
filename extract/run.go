package extract

import (
	"fmt"
	"os"

	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"mobiparse/book"
	"mobiparse/state"
)

// arguments returns book file and destination, which defaults to configured
// output directory.
func arguments(ctx *cli.Context, env *state.LocalEnv) (string, string, error) {
	if ctx.NArg() == 0 {
		return "", "", fmt.Errorf("book file is not specified")
	}
	if ctx.NArg() > 2 {
		env.Log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", ctx.Args().Slice()[2:]))
	}
	dst := ctx.Args().Get(1)
	if len(dst) == 0 {
		dst = env.Cfg.OutputPath
	}
	return ctx.Args().Get(0), dst, nil
}

func RunInfo(ctx *cli.Context) error {
	env := state.Get(ctx)

	if ctx.NArg() == 0 {
		return fmt.Errorf("book file is not specified")
	}
	path := ctx.Args().Get(0)

	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("unable to access book: %w", err)
	}
	b, err := book.OpenFile(path, book.WithLogger(env.Log))
	if err != nil {
		return fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer b.Destroy()

	data, err := yaml.Marshal(Describe(b, int(st.Size())))
	if err != nil {
		return fmt.Errorf("unable to marshal book information: %w", err)
	}
	_, err = ctx.App.Writer.Write(data)
	return err
}

func RunExtract(ctx *cli.Context) error {
	env := state.Get(ctx)

	path, dst, err := arguments(ctx, env)
	if err != nil {
		return err
	}
	res, err := Book(path, dst, env.Cfg, env.Log)
	if err != nil {
		return err
	}
	env.Log.Info("Book extracted", zap.String("destination", res.Dir), zap.Int("chapters", len(res.Chapters)), zap.Int64("catalog id", res.Entry.ID))
	return nil
}

func RunCover(ctx *cli.Context) error {
	env := state.Get(ctx)

	path, dst, err := arguments(ctx, env)
	if err != nil {
		return err
	}
	_, _, err = Cover(path, dst, env.Cfg, env.Log)
	return err
}
