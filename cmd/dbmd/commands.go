package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"dbmd/docbook"
	"dbmd/state"
	"dbmd/verify"
)

func verifyPages(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Logger("verify")

	dir := cmd.Args().Get(0)
	if len(dir) == 0 {
		return errors.New("no directory to verify has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	files, err := verify.Pages(dir)
	if err != nil {
		return fmt.Errorf("unable to list pages: %w", err)
	}
	problems, err := verify.Tree(dir, files)
	if err != nil {
		return fmt.Errorf("unable to verify pages: %w", err)
	}
	for _, p := range problems {
		log.Warn("Problem found", zap.String("page", p.File), zap.Int("line", p.Line), zap.String("problem", p.Message))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d problem(s) found in %d page(s)", len(problems), len(files))
	}
	log.Info("No problems found", zap.Int("pages", len(files)))
	return nil
}

func dumpEvents(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Logger("events")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input document has been specified")
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read document: %w", err)
	}

	// partial dump is still useful to locate the problem
	dump, derr := docbook.DumpEvents(data, env.Cfg.Conversion.Entities)
	dst := cmd.Args().Get(1)
	log.Info("Outputing events", zap.String("document", src), zap.String("file", destinationName(dst)))
	if err := writeDestination(dst, []byte(dump)); err != nil {
		return err
	}
	if derr != nil {
		return fmt.Errorf("%s: %w", src, derr)
	}
	return nil
}
