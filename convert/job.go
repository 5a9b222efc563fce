package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dbmd/config"
	"dbmd/docbook"
	"dbmd/state"
	"dbmd/verify"
)

// job converts set of documents into single mdBook source directory.
type job struct {
	env    *state.LocalEnv
	log    *zap.Logger
	outDir string
	single bool

	mu     sync.Mutex
	failed error
}

func newJob(env *state.LocalEnv, dst string, single bool, log *zap.Logger) *job {
	return &job{
		env:    env,
		log:    log,
		outDir: filepath.Join(dst, env.Cfg.Book.SourceDir),
		single: single,
	}
}

func (j *job) workers() int {
	if n := j.env.Cfg.Conversion.Workers; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func (j *job) options(d *document) docbook.Options {
	return docbook.Options{
		Width:    j.env.Cfg.Conversion.WrapWidth,
		Entities: j.env.Cfg.Conversion.Entities,
		Log:      j.log.With(zap.String("document", d.name)),
	}
}

// record applies error policy: with "stop" error is returned to cancel the
// rest of the work, with "continue" it is logged and kept for the end.
func (j *job) record(d *document, err error) error {
	if j.env.Cfg.Conversion.OnError == config.ErrorPolicyStop {
		return err
	}
	j.log.Error("Unable to process document", zap.String("document", d.origin), zap.Error(err))
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failed = multierr.Append(j.failed, err)
	return nil
}

func (j *job) run(ctx context.Context, docs []document) error {
	var (
		chapters []*document
		summary  *document
	)
	for i := range docs {
		d := &docs[i]
		switch d.role {
		case config.RoleChapter:
			chapters = append(chapters, d)
		case config.RoleSummary:
			summary = d
		case config.RoleIgnored:
			j.log.Debug("Skipping document", zap.String("document", d.origin))
		default:
			if err := j.record(d, fmt.Errorf("unknown document %q", d.name)); err != nil {
				return err
			}
		}
	}

	if err := os.MkdirAll(j.outDir, 0755); err != nil {
		return fmt.Errorf("unable to create destination directory: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers())
	for _, d := range chapters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := j.chapter(d); err != nil {
				return j.record(d, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	switch {
	case summary != nil:
		if err := j.summary(summary); err != nil {
			if err := j.record(summary, err); err != nil {
				return err
			}
		}
	case !j.single:
		j.log.Warn("Root document not found, summary was not generated", zap.String("document", j.env.Cfg.Book.RootDocument))
	}

	if j.env.Verify {
		if err := j.verify(); err != nil {
			return err
		}
	}

	if j.failed != nil {
		return fmt.Errorf("%d document(s) failed: %w", len(multierr.Errors(j.failed)), j.failed)
	}
	return nil
}

func (j *job) chapter(d *document) error {
	start := time.Now()

	data, err := d.load()
	if err != nil {
		return err
	}
	if data, err = toUTF8(data); err != nil {
		return fmt.Errorf("%s: %w", d.name, err)
	}

	out := filepath.Join(j.outDir, docbook.MarkdownName(config.CleanFileName(d.name)))
	err = writeAtomic(out, j.env.Overwrite, func(w io.Writer) error {
		return docbook.ConvertChapter(data, w, j.options(d))
	})
	if err != nil {
		j.report(d, data, err)
		return fmt.Errorf("%s: %w", d.name, err)
	}
	j.log.Info("Document converted", zap.String("document", d.origin), zap.String("output", out), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (j *job) summary(d *document) error {
	data, err := d.load()
	if err != nil {
		return err
	}
	if data, err = toUTF8(data); err != nil {
		return fmt.Errorf("%s: %w", d.name, err)
	}

	out := filepath.Join(j.outDir, config.CleanFileName(j.env.Cfg.Book.SummaryFile))
	err = writeAtomic(out, j.env.Overwrite, func(w io.Writer) error {
		return docbook.BuildSummary(data, w, j.options(d))
	})
	if err != nil {
		j.report(d, data, err)
		return fmt.Errorf("%s: %w", d.name, err)
	}
	j.log.Info("Summary generated", zap.String("document", d.origin), zap.String("output", out))
	return nil
}

// report keeps source and event dump of failed document in debug report.
func (j *job) report(d *document, data []byte, cause error) {
	if j.env.Rpt == nil {
		return
	}
	prefix := fmt.Sprintf("%s/%s", j.env.RunID, d.name)
	j.env.Rpt.StoreData(prefix+"/source.xml", data)

	dump, err := docbook.DumpEvents(data, j.env.Cfg.Conversion.Entities)
	if err != nil {
		dump += fmt.Sprintf("\n# stream error: %v\n", err)
	}
	dump += fmt.Sprintf("\n# conversion error: %v\n", cause)
	j.env.Rpt.StoreData(prefix+"/events.txt", []byte(dump))
}

// verify checks produced tree and logs every problem found.
func (j *job) verify() error {
	log := j.env.Logger("verify")

	files, err := verify.Pages(j.outDir)
	if err != nil {
		return fmt.Errorf("unable to list produced pages: %w", err)
	}
	problems, err := verify.Tree(j.outDir, files)
	if err != nil {
		return fmt.Errorf("unable to verify produced pages: %w", err)
	}
	for _, p := range problems {
		log.Warn("Problem found", zap.String("page", p.File), zap.Int("line", p.Line), zap.String("problem", p.Message))
	}
	log.Info("Verification completed", zap.Int("pages", len(files)), zap.Int("problems", len(problems)))
	return nil
}
