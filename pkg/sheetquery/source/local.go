package source

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
)

// LocalFile is a workbook on the local filesystem.
type LocalFile struct {
	Path string
}

// NewLocalFile returns a LocalFile for path.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{Path: path}
}

// ModTime returns the file's current modification time.
func (l *LocalFile) ModTime() (time.Time, error) {
	info, err := os.Stat(l.Path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", l.Path, err)
	}
	if info.IsDir() {
		return time.Time{}, fmt.Errorf("stat %s: is a directory", l.Path)
	}
	return info.ModTime(), nil
}

// Info returns diagnostics about the file. A missing file yields only the location.
func (l *LocalFile) Info() models.FileInfo {
	fi := models.FileInfo{
		Source:   models.SourceLocal,
		Location: l.Path,
		Filename: filepath.Base(l.Path),
	}
	info, err := os.Stat(l.Path)
	if err != nil {
		return fi
	}
	mtime := info.ModTime()
	size := info.Size()
	fi.ModifiedAt = &mtime
	fi.ContentLength = &size
	return fi
}
