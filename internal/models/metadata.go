package models

// Metadata declared by one package archive
type Metadata struct {
	ID               string            `json:"id"`
	Version          string            `json:"version"`
	Authors          []string          `json:"authors,omitempty"`
	Owners           []string          `json:"owners,omitempty"`
	Copyright        string            `json:"copyright,omitempty"`
	LicenseURL       string            `json:"licenseUrl,omitempty"`
	License          string            `json:"license,omitempty"`
	LicenseType      string            `json:"licenseType,omitempty"`
	ProjectURL       string            `json:"projectUrl,omitempty"`
	Description      string            `json:"description,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	Repository       *Repository       `json:"repository,omitempty"`
	Signed           bool              `json:"signed,omitempty"`
	DependencyGroups []DependencyGroup `json:"dependencyGroups,omitempty"`
	// Extra holds any other manifest field, keyed by element name.
	Extra map[string]string `json:"extra,omitempty"`
}

// Repository source control info
type Repository struct {
	Type   string `json:"type,omitempty"`
	URL    string `json:"url,omitempty"`
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// DependencyGroup per target framework ("" = any)
type DependencyGroup struct {
	TargetFramework string       `json:"targetFramework,omitempty"`
	Dependencies    []Dependency `json:"dependencies"`
}

// Dependency id + version range
type Dependency struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
}
