package policy

import (
	"strings"

	"github.com/pkgvet/pkgvet/internal/models"
)

// Field identifiers understood for package metadata. Any other identifier is
// looked up in Metadata.Extra.
const (
	FieldID               = "id"
	FieldVersion          = "version"
	FieldAuthors          = "authors"
	FieldOwners           = "owners"
	FieldCopyright        = "copyright"
	FieldLicenseURL       = "licenseUrl"
	FieldLicense          = "license"
	FieldLicenseType      = "licenseType"
	FieldProjectURL       = "projectUrl"
	FieldDescription      = "description"
	FieldTags             = "tags"
	FieldRepositoryType   = "repository.type"
	FieldRepositoryURL    = "repository.url"
	FieldRepositoryCommit = "repository.commit"
	FieldRepositoryBranch = "repository.branch"
	FieldSigned           = "signed"
	FieldDependencies     = "dependencies"
)

// FieldValues extracts the non-empty observed values of a field.
// An empty result means the field is absent.
func FieldValues(md *models.Metadata, field string) []string {
	if md == nil {
		return nil
	}

	switch field {
	case FieldID:
		return single(md.ID)
	case FieldVersion:
		return single(md.Version)
	case FieldAuthors:
		return nonEmpty(md.Authors)
	case FieldOwners:
		return nonEmpty(md.Owners)
	case FieldCopyright:
		return single(md.Copyright)
	case FieldLicenseURL:
		return single(md.LicenseURL)
	case FieldLicense:
		return single(md.License)
	case FieldLicenseType:
		return single(md.LicenseType)
	case FieldProjectURL:
		return single(md.ProjectURL)
	case FieldDescription:
		return single(md.Description)
	case FieldTags:
		return nonEmpty(md.Tags)
	case FieldRepositoryType, FieldRepositoryURL, FieldRepositoryCommit, FieldRepositoryBranch:
		return repositoryValue(md.Repository, field)
	case FieldSigned:
		if md.Signed {
			return []string{"true"}
		}
		return nil
	case FieldDependencies:
		var ids []string
		for _, g := range md.DependencyGroups {
			for _, d := range g.Dependencies {
				ids = append(ids, d.ID)
			}
		}
		return nonEmpty(ids)
	default:
		if md.Extra == nil {
			return nil
		}
		return single(md.Extra[field])
	}
}

func repositoryValue(repo *models.Repository, field string) []string {
	if repo == nil {
		return nil
	}
	switch field {
	case FieldRepositoryType:
		return single(repo.Type)
	case FieldRepositoryURL:
		return single(repo.URL)
	case FieldRepositoryCommit:
		return single(repo.Commit)
	default:
		return single(repo.Branch)
	}
}

func single(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return []string{v}
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// metadataToMap converts for CEL
func metadataToMap(md *models.Metadata) map[string]interface{} {
	if md == nil {
		return map[string]interface{}{}
	}

	deps := make([]interface{}, 0)
	for _, g := range md.DependencyGroups {
		for _, d := range g.Dependencies {
			deps = append(deps, map[string]interface{}{
				"group":   g.TargetFramework,
				"id":      d.ID,
				"version": d.Version,
			})
		}
	}

	repo := map[string]interface{}{
		"type":   "",
		"url":    "",
		"commit": "",
		"branch": "",
	}
	if md.Repository != nil {
		repo["type"] = md.Repository.Type
		repo["url"] = md.Repository.URL
		repo["commit"] = md.Repository.Commit
		repo["branch"] = md.Repository.Branch
	}

	extra := make(map[string]interface{}, len(md.Extra))
	for k, v := range md.Extra {
		extra[k] = v
	}

	return map[string]interface{}{
		FieldID:           md.ID,
		FieldVersion:      md.Version,
		FieldAuthors:      stringSliceToInterface(md.Authors),
		FieldOwners:       stringSliceToInterface(md.Owners),
		FieldCopyright:    md.Copyright,
		FieldLicenseURL:   md.LicenseURL,
		FieldLicense:      md.License,
		FieldLicenseType:  md.LicenseType,
		FieldProjectURL:   md.ProjectURL,
		FieldDescription:  md.Description,
		FieldTags:         stringSliceToInterface(md.Tags),
		"repository":      repo,
		FieldSigned:       md.Signed,
		FieldDependencies: deps,
		"extra":           extra,
	}
}

// stringSliceToInterface
func stringSliceToInterface(s []string) []interface{} {
	result := make([]interface{}, len(s))
	for i, v := range s {
		result[i] = v
	}
	return result
}
