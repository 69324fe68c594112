// Package nupkg reads package archives: a zip file with one root-level
// .nuspec manifest.
package nupkg

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pkgvet/pkgvet/internal/models"
)

// MaxManifestSize bounds the manifest read from an archive
const MaxManifestSize = 4 * 1024 * 1024

// signatureEntry marks a signed package
const signatureEntry = ".signature.p7s"

var (
	// ErrNoManifest archive has no root-level .nuspec
	ErrNoManifest = errors.New("no .nuspec manifest at archive root")
	// ErrMultipleManifests archive has more than one root-level .nuspec
	ErrMultipleManifests = errors.New("multiple .nuspec manifests at archive root")
)

// ParseError reports an unreadable or corrupt archive
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse package: " + e.Reason
	}
	return fmt.Sprintf("parse package: %s: %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse extracts the declared metadata of a package archive.
// It is a pure function of its input.
func Parse(data []byte) (*models.Metadata, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Reason: "not a zip archive", Err: err}
	}

	var manifest *zip.File
	signed := false
	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, "/")
		if strings.Contains(name, "/") {
			continue
		}
		if strings.EqualFold(name, signatureEntry) {
			signed = true
			continue
		}
		if strings.EqualFold(path.Ext(name), ".nuspec") {
			if manifest != nil {
				return nil, &ParseError{Reason: "invalid archive", Err: ErrMultipleManifests}
			}
			manifest = f
		}
	}
	if manifest == nil {
		return nil, &ParseError{Reason: "invalid archive", Err: ErrNoManifest}
	}

	raw, err := readEntry(manifest)
	if err != nil {
		return nil, &ParseError{Reason: "unreadable manifest " + manifest.Name, Err: err}
	}

	md, err := parseManifest(raw)
	if err != nil {
		return nil, &ParseError{Reason: "corrupt manifest " + manifest.Name, Err: err}
	}
	md.Signed = signed

	return md, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxManifestSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxManifestSize {
		return nil, fmt.Errorf("manifest exceeds %d bytes", MaxManifestSize)
	}
	return data, nil
}

// parseManifest decodes the nuspec xml
func parseManifest(raw []byte) (*models.Metadata, error) {
	var spec nuspec
	if err := xml.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}

	m := spec.Metadata
	if strings.TrimSpace(m.ID) == "" {
		return nil, errors.New("manifest has no id")
	}

	md := &models.Metadata{
		ID:          strings.TrimSpace(m.ID),
		Version:     strings.TrimSpace(m.Version),
		Authors:     splitList(m.Authors, ","),
		Owners:      splitList(m.Owners, ","),
		Copyright:   strings.TrimSpace(m.Copyright),
		LicenseURL:  strings.TrimSpace(m.LicenseURL),
		ProjectURL:  strings.TrimSpace(m.ProjectURL),
		Description: strings.TrimSpace(m.Description),
		Tags:        strings.Fields(m.Tags),
	}

	if m.License != nil {
		md.License = strings.TrimSpace(m.License.Value)
		md.LicenseType = strings.TrimSpace(m.License.Type)
	}

	if m.Repository != nil {
		md.Repository = &models.Repository{
			Type:   m.Repository.Type,
			URL:    m.Repository.URL,
			Commit: m.Repository.Commit,
			Branch: m.Repository.Branch,
		}
	}

	if m.Dependencies != nil {
		md.DependencyGroups = dependencyGroups(m.Dependencies)
	}

	md.Extra = extraFields(m.Other)

	return md, nil
}

// extraFields keys element text by local name. Elements with no text, such
// as containers, are skipped; a repeated name keeps its first value.
func extraFields(elems []nuspecElement) map[string]string {
	var extra map[string]string
	for _, e := range elems {
		v := strings.TrimSpace(e.Value)
		if v == "" {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		if _, seen := extra[e.XMLName.Local]; !seen {
			extra[e.XMLName.Local] = v
		}
	}
	return extra
}

func dependencyGroups(deps *nuspecDependencies) []models.DependencyGroup {
	var groups []models.DependencyGroup

	// flat list is the framework-agnostic group
	if len(deps.Dependencies) > 0 {
		groups = append(groups, models.DependencyGroup{Dependencies: convertDeps(deps.Dependencies)})
	}
	for _, g := range deps.Groups {
		groups = append(groups, models.DependencyGroup{
			TargetFramework: g.TargetFramework,
			Dependencies:    convertDeps(g.Dependencies),
		})
	}
	return groups
}

func convertDeps(in []nuspecDependency) []models.Dependency {
	out := make([]models.Dependency, 0, len(in))
	for _, d := range in {
		out = append(out, models.Dependency{ID: d.ID, Version: d.Version})
	}
	return out
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
