// Package pbip writes a converted project to disk in the Power BI
// Project 4.0 layout: a .pbip pointer file, a SemanticModel folder with
// TMDL definitions, and a Report folder with PBIR page and visual
// definitions. The whole tree is built in a staging directory next to
// the target and renamed into place, so a failed write never leaves a
// half-built project behind and an existing target is replaced only on
// success.
package pbip

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/report"
	"github.com/fabriclift-labs/fabriclift/pkg/tabular"
)

// Schema markers stamped into the JSON sidecar files. Power BI Desktop
// (Developer Mode) and Fabric Git Integration key on these.
const (
	schemaPBIP     = "https://developer.microsoft.com/json-schemas/fabric/pbip/pbipProperties/1.0.0/schema.json"
	schemaPBISM    = "https://developer.microsoft.com/json-schemas/fabric/item/semanticModel/definitionProperties/1.0.0/schema.json"
	schemaPBIR     = "https://developer.microsoft.com/json-schemas/fabric/item/report/definitionProperties/2.0.0/schema.json"
	schemaPlatform = "https://developer.microsoft.com/json-schemas/fabric/gitIntegration/platformProperties/2.0.0/schema.json"
	schemaVersion  = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/versionMetadata/1.0.0/schema.json"
	schemaReport   = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/report/3.1.0/schema.json"
	schemaPages    = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/pagesMetadata/1.0.0/schema.json"
	schemaPage     = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/page/2.0.0/schema.json"
	schemaVisual   = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/visualContainer/2.5.0/schema.json"
)

// lineageNamespace seeds the content-addressed uuids stamped on model
// objects and .platform files. Tags derive from the project name and
// object path, so repeated runs produce byte-identical trees.
var lineageNamespace = uuid.MustParse("9f2d41a6-08c3-4e71-b25a-6f30c17d5e84")

// Project bundles everything the writer needs for one output tree.
type Project struct {
	// Name is the project display name. File and folder names use its
	// sanitized form.
	Name string

	// Model is the converted semantic model.
	Model *tabular.Model

	// Queries maps table names to their import partition M expressions.
	// A table with no entry is written without a partition.
	Queries map[string]string

	// Expressions are shared M expressions keyed by name, written to
	// expressions.tmdl when present.
	Expressions map[string]string

	// Report is the assembled report definition. When nil a single
	// empty page is written so the project still opens.
	Report *report.Report

	// Theme is the source palette, when the bundle carried one.
	Theme *core.Theme

	// Bookmarks are carried into report.json.
	Bookmarks []core.Bookmark
}

// Write builds the project tree under dir. The tree is staged in a
// temporary sibling directory and renamed into place; on failure the
// staging directory is removed and any existing target is left intact.
func Write(dir string, p *Project, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if p == nil || p.Name == "" {
		return errors.New("pbip: project name is empty")
	}
	if p.Model == nil {
		return errors.New("pbip: project has no model")
	}

	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	staging, err := os.MkdirTemp(parent, ".pbip-staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	w := &writer{project: p, safeName: sanitizeName(p.Name)}
	if err := w.writeTree(staging); err != nil {
		os.RemoveAll(staging)
		return err
	}

	// Move any existing target aside before the swap so a rename
	// failure can restore it.
	previous := staging + ".previous"
	replaced := false
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, previous); err != nil {
			os.RemoveAll(staging)
			return fmt.Errorf("failed to move aside existing project: %w", err)
		}
		replaced = true
	}
	if err := os.Rename(staging, dir); err != nil {
		if replaced {
			_ = os.Rename(previous, dir)
		}
		os.RemoveAll(staging)
		return fmt.Errorf("failed to move project into place: %w", err)
	}
	if replaced {
		os.RemoveAll(previous)
	}

	pages := 0
	if p.Report != nil {
		pages = len(p.Report.Pages)
	}
	logger.Info("project written",
		"dir", dir,
		"tables", len(p.Model.Tables),
		"pages", pages,
	)
	return nil
}

// writer holds per-write state shared by the semantic model and report
// emitters.
type writer struct {
	project  *Project
	safeName string
}

func (w *writer) writeTree(root string) error {
	if err := writeText(filepath.Join(root, ".gitignore"),
		"**/.pbi/localSettings.json\n**/.pbi/cache.abf\n"); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(root, w.safeName+".pbip"), pbipFile{
		Schema:  schemaPBIP,
		Version: "1.0",
		Artifacts: []pbipArtifact{
			{Report: pbipArtifactPath{Path: w.safeName + ".Report"}},
		},
		Settings: pbipSettings{EnableAutoRecovery: true},
	}); err != nil {
		return err
	}
	if err := w.writeSemanticModel(filepath.Join(root, w.safeName+".SemanticModel")); err != nil {
		return err
	}
	return w.writeReport(filepath.Join(root, w.safeName+".Report"))
}

// tag returns the stable lineage uuid for an object path.
func (w *writer) tag(parts ...string) string {
	key := w.project.Name + "/" + strings.Join(parts, "/")
	return uuid.NewSHA1(lineageNamespace, []byte(key)).String()
}

// platformFile is the Fabric Git Integration sidecar.
type platformFile struct {
	Schema   string           `json:"$schema"`
	Metadata platformMetadata `json:"metadata"`
	Config   platformConfig   `json:"config"`
}

type platformMetadata struct {
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
}

type platformConfig struct {
	Version   string `json:"version"`
	LogicalID string `json:"logicalId"`
}

func (w *writer) writePlatform(path, itemType string) error {
	return writeJSON(path, platformFile{
		Schema: schemaPlatform,
		Metadata: platformMetadata{
			Type:        itemType,
			DisplayName: w.project.Name,
		},
		Config: platformConfig{
			Version:   "2.0",
			LogicalID: w.tag("platform", itemType),
		},
	})
}

type pbipFile struct {
	Schema    string         `json:"$schema"`
	Version   string         `json:"version"`
	Artifacts []pbipArtifact `json:"artifacts"`
	Settings  pbipSettings   `json:"settings"`
}

type pbipArtifact struct {
	Report pbipArtifactPath `json:"report"`
}

type pbipArtifactPath struct {
	Path string `json:"path"`
}

type pbipSettings struct {
	EnableAutoRecovery bool `json:"enableAutoRecovery"`
}

// sanitizeName strips characters that are unsafe in file and folder
// names, keeping letters, digits, spaces, hyphens and underscores.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.TrimSpace(b.String())
	if s == "" {
		return "Project"
	}
	return s
}

// shortID derives a 20-character hex identifier, used for visual and
// bookmark names inside the report definition.
func shortID(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:20]
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeText(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
