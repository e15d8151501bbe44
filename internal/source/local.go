package source

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/gabriel-vasile/mimetype"

	"memorylens/internal/model"
)

// Local is a file on disk whose type is sniffed from its content.
type Local struct {
	path        string
	size        int64
	contentType string
}

func NewLocal(path string) (*Local, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect type of %s: %w", path, err)
	}
	return &Local{path: path, size: info.Size(), contentType: baseType(mt.String())}, nil
}

func (l *Local) Name() string                 { return filepath.Base(l.path) }
func (l *Local) Path() string                 { return l.path }
func (l *Local) Size() int64                  { return l.size }
func (l *Local) ContentType() string          { return l.contentType }
func (l *Local) Open() (io.ReadCloser, error) { return os.Open(l.path) }

// Paths expands files and directories in argument order. Directory entries are
// walked recursively in lexical order; hidden entries are skipped.
func Paths(paths []string) ([]model.File, error) {
	var files []model.File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			f, err := NewLocal(p)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != p && len(d.Name()) > 0 && d.Name()[0] == '.' {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
		sort.Strings(found)
		for _, path := range found {
			f, err := NewLocal(path)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return files, nil
}
