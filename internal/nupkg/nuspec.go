package nupkg

import "encoding/xml"

// nuspec manifest; element names match any xml namespace
type nuspec struct {
	XMLName  xml.Name       `xml:"package"`
	Metadata nuspecMetadata `xml:"metadata"`
}

type nuspecMetadata struct {
	ID           string              `xml:"id"`
	Version      string              `xml:"version"`
	Authors      string              `xml:"authors"`
	Owners       string              `xml:"owners"`
	Copyright    string              `xml:"copyright"`
	LicenseURL   string              `xml:"licenseUrl"`
	License      *nuspecLicense      `xml:"license"`
	ProjectURL   string              `xml:"projectUrl"`
	Description  string              `xml:"description"`
	Tags         string              `xml:"tags"`
	Repository   *nuspecRepository   `xml:"repository"`
	Dependencies *nuspecDependencies `xml:"dependencies"`
	// every other child of <metadata>
	Other []nuspecElement `xml:",any"`
}

// nuspecElement is an element without a dedicated field; only its text is kept
type nuspecElement struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type nuspecLicense struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type nuspecRepository struct {
	Type   string `xml:"type,attr"`
	URL    string `xml:"url,attr"`
	Commit string `xml:"commit,attr"`
	Branch string `xml:"branch,attr"`
}

// dependencies are either flat or grouped by target framework
type nuspecDependencies struct {
	Groups       []nuspecDependencyGroup `xml:"group"`
	Dependencies []nuspecDependency      `xml:"dependency"`
}

type nuspecDependencyGroup struct {
	TargetFramework string             `xml:"targetFramework,attr"`
	Dependencies    []nuspecDependency `xml:"dependency"`
}

type nuspecDependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}
