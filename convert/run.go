// Package convert drives conversion of the DocBook sources into mdBook tree.
package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"dbmd/archive"
	"dbmd/config"
	"dbmd/state"
)

// document is a single source file selected for processing.
type document struct {
	name   string // base name, decides role
	origin string // where document came from, for logs
	role   config.Role
	path   string // file on disk, empty when data is already loaded
	data   []byte
}

func (d *document) load() ([]byte, error) {
	if d.data != nil {
		return d.data, nil
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", d.origin, err)
	}
	return data, nil
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Logger("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
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

	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	env.Overwrite = cmd.Bool("overwrite")
	env.Verify = cmd.Bool("verify") || env.Cfg.Conversion.Verify

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, env, src, dst, log)
}

// process handles the core conversion logic independently of CLI framework.
func process(ctx context.Context, env *state.LocalEnv, src, dst string, log *zap.Logger) error {
	docs, single, err := collect(ctx, env, src, log)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		log.Warn("Nothing to process", zap.String("source", src))
		return nil
	}
	return newJob(env, dst, single, log).run(ctx, docs)
}

// collect determines the input type (directory, archive, or single file) and
// gathers documents in natural order of their names.
func collect(ctx context.Context, env *state.LocalEnv, src string, log *zap.Logger) (docs []document, single bool, err error) {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				return nil, false, fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			docs, err = collectDir(env, head, log)
			return docs, false, err
		}

		if !fi.Mode().IsRegular() {
			return nil, false, fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return nil, false, fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			inner := filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			return collectArchive(env, head, inner, log)
		}

		if isXMLFile(head) && len(tail) == 0 {
			name := filepath.Base(head)
			role := env.Cfg.Book.RoleOf(name)
			if role != config.RoleSummary {
				// explicitly requested document is always converted
				role = config.RoleChapter
			}
			return []document{{name: name, origin: head, role: role, path: head}}, true, nil
		}
		return nil, false, fmt.Errorf("input was not recognized as XML document or archive (%s)", head)
	}
	return nil, false, fmt.Errorf("input source was not found (%s)", src)
}

// collectDir takes XML documents directly in dir, nested directories keep
// images and other resources.
func collectDir(env *state.LocalEnv, dir string, log *zap.Logger) ([]document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read directory: %w", err)
	}

	var docs []document
	for _, e := range entries {
		if !e.Type().IsRegular() || !isXMLFile(e.Name()) {
			log.Debug("Skipping path, not XML document", zap.String("path", e.Name()))
			continue
		}
		p := filepath.Join(dir, e.Name())
		docs = append(docs, document{
			name:   e.Name(),
			origin: p,
			role:   env.Cfg.Book.RoleOf(e.Name()),
			path:   p,
		})
	}
	sortDocuments(docs)
	return docs, nil
}

// collectArchive reads documents from directory inner of the archive. When
// inner is empty directory holding root document is used. When inner names
// XML document only that document is taken.
func collectArchive(env *state.LocalEnv, arc, inner string, log *zap.Logger) ([]document, bool, error) {
	var (
		dir    = inner
		only   string
		single bool
	)
	switch {
	case isXMLFile(inner):
		dir, only, single = path.Dir(inner), path.Base(inner), true
		if dir == "." {
			dir = ""
		}
	case len(inner) == 0:
		located, found, err := archive.Locate(arc, env.Cfg.Book.RootDocument, env.CodePage)
		if err != nil {
			return nil, false, fmt.Errorf("unable to process archive: %w", err)
		}
		if found {
			dir = located
			log.Debug("Book located in archive", zap.String("archive", arc), zap.String("dir", dir))
		}
	}

	var docs []document
	err := archive.Walk(arc, dir, env.CodePage, func(name string, f *zip.File) error {
		base := path.Base(name)
		if !isXMLFile(base) || (single && base != only) {
			return nil
		}
		d := document{name: base, origin: arc + ":" + name, role: env.Cfg.Book.RoleOf(base)}
		if single && d.role != config.RoleSummary {
			d.role = config.RoleChapter
		}
		if d.role == config.RoleIgnored {
			docs = append(docs, d)
			return nil
		}
		data, err := archive.ReadFile(f)
		if err != nil {
			return fmt.Errorf("unable to read %s: %w", d.origin, err)
		}
		d.data = data
		docs = append(docs, d)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("unable to process archive: %w", err)
	}
	if single && len(docs) == 0 {
		return nil, false, fmt.Errorf("input source was not found (%s) => (%s)", arc, inner)
	}
	sortDocuments(docs)
	return docs, single, nil
}

func sortDocuments(docs []document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return natural.Less(docs[i].name, docs[j].name)
	})
}
