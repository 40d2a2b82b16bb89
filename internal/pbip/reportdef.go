package pbip

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fabriclift-labs/fabriclift/pkg/report"
)

type pbirFile struct {
	Schema           string           `json:"$schema"`
	Version          string           `json:"version"`
	DatasetReference datasetReference `json:"datasetReference"`
}

type datasetReference struct {
	ByPath datasetPath `json:"byPath"`
}

type datasetPath struct {
	Path string `json:"path"`
}

type versionFile struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
}

type reportFile struct {
	Schema          string           `json:"$schema"`
	ThemeCollection themeCollection  `json:"themeCollection"`
	Settings        reportSettings   `json:"settings"`
	Bookmarks       []reportBookmark `json:"bookmarks,omitempty"`
}

type themeCollection struct {
	BaseTheme baseTheme `json:"baseTheme"`
}

type baseTheme struct {
	Name                  string        `json:"name"`
	ReportVersionAtImport reportVersion `json:"reportVersionAtImport"`
	Type                  string        `json:"type"`
}

type reportVersion struct {
	Visual string `json:"visual"`
	Report string `json:"report"`
	Page   string `json:"page"`
}

type reportSettings struct {
	HideVisualContainerHeader        bool `json:"hideVisualContainerHeader"`
	UseStylableVisualContainerHeader bool `json:"useStylableVisualContainerHeader"`
	DefaultDrillFilterOtherVisuals   bool `json:"defaultDrillFilterOtherVisuals"`
	AllowChangeFilterTypes           bool `json:"allowChangeFilterTypes"`
	UseEnhancedTooltips              bool `json:"useEnhancedTooltips"`
	UseCrossReportDrillthrough       bool `json:"useCrossReportDrillthrough"`
	IsPersistentUserStateDisabled    bool `json:"isPersistentUserStateDisabled"`
}

type reportBookmark struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName"`
	ExplorationState struct{} `json:"explorationState"`
}

type pagesFile struct {
	Schema         string   `json:"$schema"`
	PageOrder      []string `json:"pageOrder"`
	ActivePageName string   `json:"activePageName"`
}

type pageFile struct {
	Schema        string `json:"$schema"`
	Name          string `json:"name"`
	DisplayName   string `json:"displayName"`
	DisplayOption string `json:"displayOption"`
	Height        int    `json:"height"`
	Width         int    `json:"width"`
	PageType      string `json:"pageType,omitempty"`
}

type themeFile struct {
	Name        string   `json:"name"`
	DataColors  []string `json:"dataColors,omitempty"`
	Background  string   `json:"background,omitempty"`
	Foreground  string   `json:"foreground,omitempty"`
	TableAccent string   `json:"tableAccent,omitempty"`
}

func (w *writer) writeReport(dir string) error {
	defDir := filepath.Join(dir, "definition")
	pagesDir := filepath.Join(defDir, "pages")
	if err := os.MkdirAll(pagesDir, 0750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	if err := w.writePlatform(filepath.Join(dir, ".platform"), "Report"); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "definition.pbir"), pbirFile{
		Schema:  schemaPBIR,
		Version: "4.0",
		DatasetReference: datasetReference{
			ByPath: datasetPath{Path: "../" + w.safeName + ".SemanticModel"},
		},
	}); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(defDir, "version.json"), versionFile{
		Schema:  schemaVersion,
		Version: "2.0.0",
	}); err != nil {
		return err
	}

	rf := reportFile{
		Schema: schemaReport,
		ThemeCollection: themeCollection{
			BaseTheme: baseTheme{
				Name: "CY24SU06",
				ReportVersionAtImport: reportVersion{
					Visual: "1.8.50",
					Report: "2.0.50",
					Page:   "1.3.50",
				},
				Type: "SharedResources",
			},
		},
		Settings: reportSettings{
			HideVisualContainerHeader:        true,
			UseStylableVisualContainerHeader: true,
			DefaultDrillFilterOtherVisuals:   true,
			AllowChangeFilterTypes:           true,
			UseEnhancedTooltips:              true,
		},
	}
	for _, bm := range w.project.Bookmarks {
		key := bm.ID
		if key == "" {
			key = bm.Title
		}
		rf.Bookmarks = append(rf.Bookmarks, reportBookmark{
			Name:        shortID("bookmark/" + key),
			DisplayName: bm.Title,
		})
	}
	if err := writeJSON(filepath.Join(defDir, "report.json"), rf); err != nil {
		return err
	}

	if w.project.Theme != nil {
		if err := w.writeTheme(defDir); err != nil {
			return err
		}
	}

	pages := w.pages()
	order := make([]string, len(pages))
	for i, pg := range pages {
		order[i] = pg.Name
	}
	active := order[0]
	if w.project.Report != nil && w.project.Report.ActivePage != "" {
		active = w.project.Report.ActivePage
	}
	if err := writeJSON(filepath.Join(pagesDir, "pages.json"), pagesFile{
		Schema:         schemaPages,
		PageOrder:      order,
		ActivePageName: active,
	}); err != nil {
		return err
	}

	for _, pg := range pages {
		if err := w.writePage(filepath.Join(pagesDir, pg.Name), pg); err != nil {
			return err
		}
	}
	return nil
}

// pages returns the assembled pages, or a single empty page when no
// report was assembled so the project still opens in Desktop.
func (w *writer) pages() []report.Page {
	if w.project.Report != nil && len(w.project.Report.Pages) > 0 {
		return w.project.Report.Pages
	}
	return []report.Page{{
		Name:        "ReportSection",
		DisplayName: "Page 1",
		Width:       report.PageWidth,
		Height:      report.PageHeight,
	}}
}

func (w *writer) writePage(dir string, pg report.Page) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create page directory: %w", err)
	}

	pf := pageFile{
		Schema:        schemaPage,
		Name:          pg.Name,
		DisplayName:   pg.DisplayName,
		DisplayOption: "FitToPage",
		Height:        pg.Height,
		Width:         pg.Width,
	}
	switch pg.Type {
	case report.PageTypeTooltip:
		pf.PageType = "Tooltip"
	case report.PageTypeDrillthrough:
		pf.PageType = "DrillThrough"
	}
	if err := writeJSON(filepath.Join(dir, "page.json"), pf); err != nil {
		return err
	}

	for i, v := range pg.Visuals {
		id := shortID(fmt.Sprintf("visual/%s/%s/%d", pg.Name, v.ID, i))
		vDir := filepath.Join(dir, "visuals", id)
		if err := os.MkdirAll(vDir, 0750); err != nil {
			return fmt.Errorf("failed to create visual directory: %w", err)
		}
		if err := writeJSON(filepath.Join(vDir, "visual.json"), visualFileFor(id, v)); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) writeTheme(defDir string) error {
	theme := w.project.Theme
	name := sanitizeName(theme.Name)
	if name == "" || name == "Project" {
		name = "MigratedTheme"
	}
	themesDir := filepath.Join(defDir, "StaticResources", "SharedResources", "BaseThemes")
	if err := os.MkdirAll(themesDir, 0750); err != nil {
		return fmt.Errorf("failed to create theme directory: %w", err)
	}
	return writeJSON(filepath.Join(themesDir, name+".json"), themeFile{
		Name:        name,
		DataColors:  theme.DataColors,
		Background:  theme.Background,
		Foreground:  theme.Foreground,
		TableAccent: theme.TableAccent,
	})
}
