// Package store persists the extracted application model as one JSON
// document per category. A directory written by Save is loadable in a
// later process run, which is what resume-from-extracted-state execution
// builds on: conversion never needs the source bundle once the store is
// on disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

// Category document names inside an extraction directory.
const (
	MetadataFile     = "app_metadata.json"
	VariablesFile    = "variables.json"
	DimensionsFile   = "dimensions.json"
	MeasuresFile     = "measures.json"
	TablesFile       = "tables.json"
	AssociationsFile = "associations.json"
	SheetsFile       = "sheets.json"
	BookmarksFile    = "bookmarks.json"
	ThemeFile        = "theme.json"
	LoadScriptFile   = "loadscript.json"
)

// metadata is the scalar slice of the application model.
type metadata struct {
	Title       string `json:"title"`
	AppID       string `json:"app_id,omitempty"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	ModifiedAt  string `json:"modified_at,omitempty"`
}

// loadScriptDoc wraps the raw script so the category file is a JSON
// document like the others.
type loadScriptDoc struct {
	Script string `json:"script"`
}

// Save writes app into dir, one JSON document per category, creating dir
// as needed. Every category is written even when empty so a saved
// directory always carries the complete set.
func Save(dir string, app *core.App, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	docs := []struct {
		file  string
		value any
	}{
		{MetadataFile, metadata{
			Title:       app.Title,
			AppID:       app.AppID,
			Description: app.Description,
			Author:      app.Author,
			CreatedAt:   app.CreatedAt,
			ModifiedAt:  app.ModifiedAt,
		}},
		{VariablesFile, app.Variables},
		{DimensionsFile, app.Dimensions},
		{MeasuresFile, app.Measures},
		{TablesFile, app.Tables},
		{AssociationsFile, app.Associations},
		{SheetsFile, app.Sheets},
		{BookmarksFile, app.Bookmarks},
		{ThemeFile, app.Theme},
		{LoadScriptFile, loadScriptDoc{Script: app.LoadScript}},
	}
	for _, doc := range docs {
		if err := writeJSON(filepath.Join(dir, doc.file), doc.value); err != nil {
			return err
		}
	}

	logger.Debug("extraction state saved", "dir", dir, "documents", len(docs))
	return nil
}

// Load reads an extraction directory back into an application model.
// Missing category documents become empty sequences, never errors, so a
// partially written or trimmed directory still loads.
func Load(dir string, logger *slog.Logger) (*core.App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to open extraction directory: %w", err)
	}

	app := &core.App{}

	var meta metadata
	if _, err := readJSON(filepath.Join(dir, MetadataFile), &meta); err != nil {
		return nil, err
	}
	app.Title = meta.Title
	app.AppID = meta.AppID
	app.Description = meta.Description
	app.Author = meta.Author
	app.CreatedAt = meta.CreatedAt
	app.ModifiedAt = meta.ModifiedAt

	docs := []struct {
		file  string
		value any
	}{
		{VariablesFile, &app.Variables},
		{DimensionsFile, &app.Dimensions},
		{MeasuresFile, &app.Measures},
		{TablesFile, &app.Tables},
		{AssociationsFile, &app.Associations},
		{SheetsFile, &app.Sheets},
		{BookmarksFile, &app.Bookmarks},
		{ThemeFile, &app.Theme},
	}
	for _, doc := range docs {
		if _, err := readJSON(filepath.Join(dir, doc.file), doc.value); err != nil {
			return nil, err
		}
	}

	var script loadScriptDoc
	if _, err := readJSON(filepath.Join(dir, LoadScriptFile), &script); err != nil {
		return nil, err
	}
	app.LoadScript = script.Script

	logger.Debug("extraction state loaded", "dir", dir, "title", app.Title)
	return app, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON reads path into v. A missing file is not an error; ok reports
// whether the document was present.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
