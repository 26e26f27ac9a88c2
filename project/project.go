// Package project owns the on-disk project directory (spec §6.2): the
// fixed set of files one extract/inject run produces (original,
// content.xml, styled.xml, state.sqlite3, injected.xml/injected.<ext>),
// debug-report registration for each, and the top-level Extract/Inject
// entry points that sequence the core pipeline packages against that
// layout.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mr-martian/transfuse/config"
	"github.com/mr-martian/transfuse/misc"
)

const (
	fileOriginal    = "original"
	fileContentXML  = "content.xml"
	fileStyledXML   = "styled.xml"
	fileStateSqlite = "state.sqlite3"
	fileInjectedXML = "injected.xml"
)

// Project is the working directory for one extract/inject run.
type Project struct {
	Dir string
}

// New creates a fresh project directory under root ("" uses the OS default
// temp location) and, when rpt is non-nil, registers it under a
// version-7-UUID-qualified name for inclusion in a debug report bundle.
func New(root string, rpt *config.Report) (*Project, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("create project root %s: %w", root, err)
		}
	}
	dir, err := os.MkdirTemp(root, misc.GetAppName()+"-")
	if err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	p := &Project{Dir: dir}
	if rpt != nil {
		name := misc.GetAppName()
		if id, err := uuid.NewV7(); err == nil {
			name = fmt.Sprintf("%s-%s", name, id.String())
		}
		rpt.Store(name, dir)
	}
	return p, nil
}

// Open returns a handle to an existing project directory, e.g. one an
// earlier extract run left behind and inject is resuming.
func Open(dir string) (*Project, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open project directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path %s is not a directory", dir)
	}
	return &Project{Dir: dir}, nil
}

func (p *Project) path(name string) string { return filepath.Join(p.Dir, name) }

// OriginalPath is the verbatim source document.
func (p *Project) OriginalPath() string { return p.path(fileOriginal) }

// ContentXMLPath is the interim form produced by extraction, the input to
// Inject.
func (p *Project) ContentXMLPath() string { return p.path(fileContentXML) }

// StyledXMLPath is the debug snapshot of the tree after the Styler stage,
// before block extraction.
func (p *Project) StyledXMLPath() string { return p.path(fileStyledXML) }

// StateSqlitePath is the Style Store database.
func (p *Project) StateSqlitePath() string { return p.path(fileStateSqlite) }

// InjectedXMLPath is the reconstructed interim tree, after injection and
// whitespace restore, before format-specific serialization.
func (p *Project) InjectedXMLPath() string { return p.path(fileInjectedXML) }

// InjectedPath is the final target-format output, named for ext (with or
// without a leading dot, e.g. "html" or ".html").
func (p *Project) InjectedPath(ext string) string {
	return p.path("injected." + strings.TrimPrefix(ext, "."))
}

// Remove deletes the project directory and everything under it. Config's
// project.keep setting governs whether callers invoke this; it is never
// called automatically by Extract or Inject.
func (p *Project) Remove() error {
	return os.RemoveAll(p.Dir)
}
