package convert

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/theGeekist/edgepress-sub001/archive"
	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/content"
	"github.com/theGeekist/edgepress-sub001/diagnostics"
	"github.com/theGeekist/edgepress-sub001/state"
)

// Run is the action of convert command.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src, dst, err := runPaths(cmd, log)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, env, log)

	log.Info("Processing starting",
		zap.String("source", src), zap.String("destination", dst), zap.Stringer("from", env.From), zap.Stringer("to", env.To))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// runPaths returns absolute source and destination, destination defaults to
// working directory.
func runPaths(cmd *cli.Command, log *zap.Logger) (src, dst string, err error) {
	args := cmd.Args()
	if args.Len() == 0 || len(args.Get(0)) == 0 {
		return "", "", errors.New("no input source has been specified")
	}
	if args.Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", args.Slice()[2:]))
	}
	if src, err = filepath.Abs(args.Get(0)); err != nil {
		return "", "", err
	}
	dst = args.Get(1)
	if len(dst) == 0 {
		dst = "."
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return "", "", fmt.Errorf("unable to resolve destination: %w", err)
	}
	return src, dst, nil
}

// applyRunFlags copies command flags to environment. Bad values are reported
// and replaced with defaults.
func applyRunFlags(cmd *cli.Command, env *state.LocalEnv, log *zap.Logger) {
	var err error
	if env.To, err = common.ParseOutputFmt(cmd.String("to")); err != nil {
		log.Warn("Unknown output format requested, switching to publish", zap.Error(err))
		env.To = common.OutputFmtPublish
	}
	if env.From, err = common.ParseInputFmt(cmd.String("from")); err != nil {
		log.Warn("Unknown input format requested, switching to blocks", zap.Error(err))
		env.From = common.InputFmtBlocks
	}
	env.NoDirs = cmd.Bool("nodirs")
	env.Overwrite = cmd.Bool("overwrite")

	env.CodePage = nil
	// zip does not record name encoding, old archives may need a code page
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		enc, err := ianaindex.IANA.Encoding(cp)
		if err != nil || enc == nil {
			log.Warn("Unknown character set specification, ignoring", zap.String("charset", cp), zap.Error(err))
			return
		}
		env.CodePage = enc
		n, _ := ianaindex.IANA.Name(enc)
		log.Debug("Non UTF-8 file names in archives will be decoded", zap.String("charset", n))
	}
}

// process figures out what source path points to: directory, archive (with
// optional path inside of it) or single document.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	// walk up until an existing path is found, the rest may be inside archive
	existing := src
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := os.Stat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return fmt.Errorf("input source was not found (%s)", src)
		}
		existing = parent
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(src, existing), string(filepath.Separator))

	fi, err := os.Stat(existing)
	if err != nil {
		return err
	}
	switch {
	case fi.IsDir():
		if len(rest) != 0 {
			return fmt.Errorf("input source was not found (%s) => (%s)", existing, rest)
		}
		if err := processDir(ctx, existing, dst, log); err != nil {
			return fmt.Errorf("unable to process directory: %w", err)
		}
		return nil
	case !fi.Mode().IsRegular():
		return fmt.Errorf("unexpected path mode for (%s) => (%s)", existing, rest)
	}

	arc, err := isArchiveFile(existing)
	if err != nil {
		return fmt.Errorf("unable to check archive type: %w", err)
	}
	if arc {
		if err := processArchive(ctx, existing, filepath.ToSlash(rest), "", dst, log); err != nil {
			return fmt.Errorf("unable to process archive: %w", err)
		}
		return nil
	}
	if len(rest) != 0 {
		return fmt.Errorf("input was not recognized as archive (%s)", existing)
	}

	doc, enc, err := isSourceFile(existing)
	if err != nil {
		return fmt.Errorf("unable to check file type: %w", err)
	}
	if !doc {
		return fmt.Errorf("input was not recognized as block document (%s)", existing)
	}
	if err := state.EnvFromContext(ctx).Rpt.StoreCopy("source/"+filepath.Base(existing), existing); err != nil {
		log.Warn("Unable to add source to report", zap.Error(err))
	}
	if err := processFile(ctx, existing, enc, filepath.Base(existing), dst, log); err != nil {
		log.Error("Unable to process file", zap.String("file", existing), zap.Error(err))
		return err
	}
	return nil
}

func processFile(ctx context.Context, path string, enc srcEncoding, src, dst string, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return processDoc(ctx, selectReader(f, enc), src, dst, log)
}

// processDir walks directory tree and processes every document and archive
// found. Per document failures are logged, walk continues.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) error {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case err != nil:
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		case d.IsDir():
			if path != dir && path == dst {
				// our own results
				return filepath.SkipDir
			}
			return nil
		case !d.Type().IsRegular():
			return nil
		}

		rel, _ := filepath.Rel(dir, path)

		arc, err := isArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if arc {
			if err := processArchive(ctx, path, "", filepath.Dir(rel), dst, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			return nil
		}

		doc, enc, err := isSourceFile(path)
		switch {
		case err != nil:
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
		case !doc:
			log.Debug("Skipping file, not recognized as document or archive", zap.String("file", path))
		default:
			count++
			if err := processFile(ctx, path, enc, rel, dst, log); err != nil {
				log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			}
		}
		return nil
	})
	if err == nil && count == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return err
}

// archiveName returns name of the file in archive, decoding it with forced
// code page when one is set.
func archiveName(f *zip.File, cp encoding.Encoding, log *zap.Logger) string {
	name := f.Name
	if cp == nil || !f.NonUTF8 {
		return name
	}
	decoded, err := cp.NewDecoder().String(name)
	if err != nil {
		n, _ := ianaindex.IANA.Name(cp)
		log.Warn("Unable to decode name in archive", zap.String("charset", n), zap.String("path", name), zap.Error(err))
		return name
	}
	return decoded
}

// processArchive processes documents stored in archive under pathIn. Output
// names are prefixed with pathOut.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) error {
	cp := state.EnvFromContext(ctx).CodePage
	count := 0
	err := archive.Walk(path, pathIn, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields := []zap.Field{zap.String("archive", arc), zap.String("file", f.Name)}

		doc, enc, err := isSourceInArchive(f)
		if err != nil {
			log.Warn("Skipping file in archive", append(fields, zap.Error(err))...)
			return nil
		}
		if !doc {
			log.Debug("Skipping file, not recognized as document", fields...)
			return nil
		}
		count++

		r, err := f.Open()
		if err != nil {
			log.Error("Unable to process file in archive", append(fields, zap.Error(err))...)
			return nil
		}
		defer r.Close()

		if err := processDoc(ctx, selectReader(r, enc), filepath.Join(pathOut, archiveName(f, cp, log)), dst, log); err != nil {
			log.Error("Unable to process file in archive", append(fields, zap.Error(err))...)
		}
		return nil
	})
	if err == nil && count == 0 {
		log.Debug("Nothing to process", zap.String("archive", path))
	}
	return err
}

// documentDiagnostics is written next to output when requested.
type documentDiagnostics struct {
	Source string              `json:"source"`
	RunID  string              `json:"runId"`
	Hash   string              `json:"hash"`
	Format string              `json:"format"`
	Import *diagnostics.Report `json:"import,omitempty"`
	Render *diagnostics.Report `json:"render,omitempty"`
}

func (d *documentDiagnostics) write(name string) error {
	buf, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode diagnostics: %w", err)
	}
	if err := os.WriteFile(name, buf, 0644); err != nil {
		return fmt.Errorf("unable to write diagnostics: %w", err)
	}
	return nil
}

// prepareOutput makes sure output file can be written: removes existing file
// when overwrite is allowed, creates missing directories.
func prepareOutput(name string, overwrite bool, log *zap.Logger) error {
	_, err := os.Stat(name)
	switch {
	case err == nil:
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		log.Warn("Overwriting existing file", zap.String("file", name))
		return os.Remove(name)
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			return fmt.Errorf("unable to create output directory: %w", err)
		}
		return nil
	default:
		return err
	}
}

// processDoc converts single document. "src" is source path relative to the
// original path (always including file name), "dst" is destination directory.
func processDoc(ctx context.Context, r io.Reader, src string, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var runID, outputName string

	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		// a misbehaving rule must not stop processing of other documents
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else if rerr == nil {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.String("run_id", runID))
		}
	}(time.Now())

	c, err := content.Prepare(ctx, r, src, env.From, log)
	if err != nil {
		return fmt.Errorf("unable to prepare source (%s): %w", src, err)
	}
	runID = c.RunID.String()

	outputName = buildOutputPath(c, src, dst, env)
	if err := prepareOutput(outputName, env.Overwrite, log); err != nil {
		return err
	}

	data, renderReport, err := generate(c, env)
	if err != nil {
		return fmt.Errorf("unable to generate output: %w", err)
	}
	if renderReport.Len() > 0 {
		log.Debug("Render diagnostics", zap.String("source", src), zap.Stringer("report", renderReport))
	}
	if err := os.WriteFile(outputName, data, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	if env.Cfg.Output.Diagnostics {
		diag := documentDiagnostics{
			Source: filepath.ToSlash(src),
			RunID:  runID,
			Hash:   c.Hash,
			Format: env.To.String(),
			Import: c.Import,
			Render: renderReport,
		}
		if err := diag.write(diagnosticsPath(outputName, env.To)); err != nil {
			return err
		}
		if err := env.Rpt.StoreJSON(fmt.Sprintf("diagnostics-%s.json", runID), diag); err != nil {
			log.Warn("Unable to add diagnostics to report", zap.Error(err))
		}
	}

	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result-%s%s", runID, env.To.Ext()), outputName)
	}
	return nil
}

// generate produces output bytes in requested format. Canonical output has
// no render report.
func generate(c *content.Content, env *state.LocalEnv) ([]byte, *diagnostics.Report, error) {
	target, ok := env.To.Target()
	if !ok {
		var (
			data []byte
			err  error
		)
		if env.Cfg.Output.Pretty {
			data, err = canonical.EncodeIndent(c.Nodes)
		} else {
			data, err = canonical.Encode(c.Nodes)
		}
		return data, nil, err
	}

	res, err := env.Pipeline.RenderTree(c.Nodes, target, env.RegistryContext(map[string]any{
		"source": c.SrcName,
		"runId":  c.RunID.String(),
	}))
	if err != nil {
		return nil, nil, err
	}

	if target.Markup() {
		return []byte(res.HTML()), res.Diagnostics, nil
	}

	var data []byte
	if env.Cfg.Output.Pretty {
		data, err = json.MarshalIndent(res.Output, "", "  ")
	} else {
		data, err = json.Marshal(res.Output)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("unable to encode editor view: %w", err)
	}
	return data, res.Diagnostics, nil
}
