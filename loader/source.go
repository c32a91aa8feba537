package loader

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
)

// Source names one readable metadata document. Build sources with
// FileSource or ReaderSource.
type Source struct {
	Name   string
	Format Format

	open func() (io.ReadCloser, error)
}

// FileSource reads a document from disk. The format is sniffed from the
// file extension; loading fails when the extension is not recognized.
func FileSource(path string) Source {
	return Source{
		Name:   path,
		Format: FormatForPath(path),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// ReaderSource wraps an in-memory or streamed document. The name is used
// in diagnostics only.
func ReaderSource(name string, r io.Reader, format Format) Source {
	return Source{
		Name:   name,
		Format: format,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	}
}

// FormatForPath maps a file extension to its Format, or "" when the
// extension is not one of .json, .xml, .yaml, .yml.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".xml":
		return FormatXML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}
