package config

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/theGeekist/edgepress-sub001/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare opens report archive. When destination cannot be created report
// goes to temporary file instead.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{file: f, items: make(map[string]reportItem)}, nil
}

// reportItem is a single named thing in the report archive.
type reportItem interface {
	// describe returns MANIFEST line tail
	describe() string
	save(zw *zip.Writer, name string) error
}

// linked is file or directory on disk read when report is closed.
type linked struct {
	original, actual string
}

func (l linked) describe() string {
	return l.original + " : " + l.actual
}

func (l linked) save(zw *zip.Writer, name string) error {
	info, err := os.Stat(l.actual)
	if err != nil {
		// never created
		return nil
	}
	if !info.IsDir() {
		return addFile(zw, name, l.actual, info)
	}
	return filepath.WalkDir(l.actual, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.actual, path)
		if err != nil {
			return err
		}
		return addFile(zw, name+"/"+filepath.ToSlash(rel), path, fi)
	})
}

// blob is in-memory content.
type blob struct {
	data  []byte
	stamp time.Time
}

func (b blob) describe() string {
	return fmt.Sprintf("<%d bytes>", len(b.data))
}

func (b blob) save(zw *zip.Writer, name string) error {
	return addEntry(zw, name, b.stamp, bytes.NewReader(b.data))
}

// Report collects debug artifacts (logs, configuration, inputs, results) and
// writes them into a single zip archive on Close. All methods are safe on nil
// report.
type Report struct {
	mu    sync.Mutex
	file  *os.File
	items map[string]reportItem
	// temporary directories owned by report
	scratch []string
}

// Name returns absolute name of the report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	name := r.file.Name()
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	return name
}

// Store links file or directory, its content is read on Close. Linking
// different path under the same name is a programming error.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	actual := path
	if abs, err := filepath.Abs(path); err == nil {
		actual = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.items[name].(linked); ok && prev.original != path {
		panic(fmt.Sprintf("report entry [%s] is already linked to %s, refusing %s", name, prev.original, path))
	}
	r.items[name] = linked{original: path, actual: actual}
}

// StoreWorkDir links directory and takes ownership of it, directory is
// removed on Close.
func (r *Report) StoreWorkDir(name, dir string) {
	if r == nil {
		return
	}
	r.Store(name, dir)

	r.mu.Lock()
	r.scratch = append(r.scratch, dir)
	r.mu.Unlock()
}

// StoreData puts data into report. Name is versioned when already taken.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(name, blob{data: data, stamp: time.Now()})
}

// StoreJSON puts indented JSON of v into report.
func (r *Report) StoreJSON(name string, v any) error {
	if r == nil {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to store %s in report: %w", name, err)
	}
	r.StoreData(name, data)
	return nil
}

// StoreCopy snapshots file or directory now, later changes to path do not
// affect report.
func (r *Report) StoreCopy(name, path string) error {
	if r == nil {
		return nil
	}
	src, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", misc.GetAppName()+"-r-")
	if err != nil {
		return err
	}

	actual := dir
	if info.IsDir() {
		err = os.CopyFS(dir, os.DirFS(src))
	} else {
		actual = filepath.Join(dir, info.Name())
		err = copyFile(actual, src, info)
	}
	if err != nil {
		return multierr.Append(fmt.Errorf("unable to copy %s for report: %w", path, err), os.RemoveAll(dir))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.scratch = append(r.scratch, dir)
	r.add(name, linked{original: path, actual: actual})
	return nil
}

// add must be called with lock held.
func (r *Report) add(name string, it reportItem) {
	if _, taken := r.items[name]; taken {
		name = fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
	}
	r.items[name] = it
}

// Close writes archive and removes owned temporary directories. Second call
// does nothing.
func (r *Report) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}

	err := multierr.Append(r.write(), r.file.Close())
	for _, dir := range r.scratch {
		err = multierr.Append(err, os.RemoveAll(dir))
	}
	r.file, r.scratch = nil, nil
	return err
}

func (r *Report) write() (err error) {
	zw := zip.NewWriter(r.file)
	defer func() {
		err = multierr.Append(err, zw.Close())
	}()

	names := slices.Sorted(maps.Keys(r.items))
	stamp := time.Now()

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s\t%s\t%s\n", stamp.UTC().Format(time.UnixDate), name, r.items[name].describe())
	}
	if err := addEntry(zw, "MANIFEST", stamp, strings.NewReader(sb.String())); err != nil {
		return err
	}
	for _, name := range names {
		if err := r.items[name].save(zw, name); err != nil {
			return fmt.Errorf("unable to add %s to report: %w", name, err)
		}
	}
	return nil
}

func addEntry(zw *zip.Writer, name string, modified time.Time, src io.Reader) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func addFile(zw *zip.Writer, name, path string, info fs.FileInfo) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return addEntry(zw, name, info.ModTime(), f)
}

func copyFile(dst, src string, info fs.FileInfo) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0600); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
