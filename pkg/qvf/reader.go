// Package qvf reads Qlik Sense application bundles (.qvf).
//
// A .qvf bundle is a ZIP container holding an application metadata document,
// the load script, and optional JSON documents for master items, sheets,
// variables, bookmarks, and theme. The Container gives raw entry access;
// Extract parses the entries into the normalized core.App model.
package qvf

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

// zipSignature is the local-file-header magic every ZIP archive starts with.
var zipSignature = []byte{'P', 'K', 0x03, 0x04}

// Container is an open application bundle. It is read-only; Close releases
// the underlying archive.
type Container struct {
	path   string
	rc     *zip.ReadCloser
	byName map[string]*zip.File
	names  []string
}

// Open opens the bundle at path. The first bytes classify the container:
// a ZIP signature proceeds, anything else fails with
// *ContainerFormatUnsupportedError describing the detected format. Open
// never attempts to parse a non-ZIP proprietary export.
func Open(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}

	sig := make([]byte, 4)
	n, err := io.ReadFull(f, sig)
	_ = f.Close()
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read bundle header: %w", err)
	}
	sig = sig[:n]

	if !bytes.HasPrefix(sig, zipSignature) {
		return nil, &ContainerFormatUnsupportedError{
			Path:      path,
			Signature: classifySignature(sig),
		}
	}

	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle archive: %w", err)
	}

	c := &Container{
		path:   path,
		rc:     rc,
		byName: make(map[string]*zip.File, len(rc.File)),
	}
	for _, zf := range rc.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		c.byName[strings.ToLower(zf.Name)] = zf
		c.names = append(c.names, zf.Name)
	}
	sort.Strings(c.names)

	return c, nil
}

// Close releases the archive reader.
func (c *Container) Close() error {
	if c.rc == nil {
		return nil
	}
	return c.rc.Close()
}

// Path returns the bundle path.
func (c *Container) Path() string {
	return c.path
}

// Names returns all entry names in the bundle, sorted.
func (c *Container) Names() []string {
	return c.names
}

// Entry returns the raw bytes of the named entry. Name matching is
// case-insensitive; a name without a directory component also matches an
// entry nested under any directory. Returns *EntryNotFoundError when the
// bundle has no such entry.
func (c *Container) Entry(name string) ([]byte, error) {
	if zf, ok := c.byName[strings.ToLower(name)]; ok {
		return readEntry(zf)
	}

	// Fall back to base-name match for entries stored under a directory.
	if !strings.Contains(name, "/") {
		lower := strings.ToLower(name)
		for stored, zf := range c.byName {
			if path.Base(stored) == lower {
				return readEntry(zf)
			}
		}
	}

	return nil, &EntryNotFoundError{Path: c.path, Name: name}
}

// Lookup tries each candidate name in order and returns the first present
// entry. A candidate starting with "." matches any entry with that
// extension. Returns ok=false when nothing matches; Lookup never errors on
// absence, so optional categories stay non-fatal.
func (c *Container) Lookup(candidates ...string) (name string, data []byte, ok bool) {
	for _, cand := range candidates {
		if strings.HasPrefix(cand, ".") {
			for _, stored := range c.names {
				if strings.HasSuffix(strings.ToLower(stored), cand) {
					data, err := c.Entry(stored)
					if err != nil {
						continue
					}
					return stored, data, true
				}
			}
			continue
		}
		if data, err := c.Entry(cand); err == nil {
			return cand, data, true
		}
	}
	return "", nil, false
}

func readEntry(zf *zip.File) ([]byte, error) {
	r, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", zf.Name, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", zf.Name, err)
	}
	return data, nil
}

// classifySignature names a non-ZIP leading signature for diagnostics.
func classifySignature(sig []byte) string {
	switch {
	case len(sig) >= 2 && sig[0] == 0x1f && sig[1] == 0x8b:
		return "gzip"
	case bytes.HasPrefix(sig, []byte("<?xm")):
		return "xml"
	case len(sig) == 0:
		return "empty file"
	default:
		return fmt.Sprintf("0x%x", sig)
	}
}
