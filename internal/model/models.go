// internal/model/models.go
package model

import "time"

// Visibility is the access level reported by the upstream provider.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
	VisibilityPublic   Visibility = "public"
)

// Valid reports whether v is one of the known visibility levels.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityInternal, VisibilityPublic:
		return true
	}
	return false
}

// Repository is a mirrored repository together with its commits and branches.
// Optional upstream fields stay nil when the provider does not report them.
type Repository struct {
	ID             int64
	Name           string
	Description    *string
	Author         *string
	LastActivityAt *time.Time
	Visibility     Visibility
	Topics         []string
	DefaultBranch  *string
	LicenseName    *string
	AvatarURL      *string
	ReadmeURL      *string
	Commits        []Commit
	Branches       []Branch
}

// FreshAt reports whether the repository's last activity is at or after marker.
// A nil marker is always satisfied; a missing activity timestamp never satisfies a marker.
func (r *Repository) FreshAt(marker *time.Time) bool {
	if marker == nil {
		return true
	}
	if r.LastActivityAt == nil {
		return false
	}
	return !r.LastActivityAt.Before(*marker)
}

type Commit struct {
	ID           string
	RepositoryID int64
	Message      string
	Author       string
	Date         *time.Time
}

// Branch is identified by its name within a repository; CommitID is its current head.
type Branch struct {
	Name         string
	RepositoryID int64
	CommitID     string
}

// RepositorySummary is a list entry returned by the upstream provider.
type RepositorySummary struct {
	ID             int64
	Name           string
	Author         *string
	Description    *string
	LastActivityAt *time.Time
	AvatarURL      *string
}

// ListOptions controls paging and filtering of upstream repository listings.
type ListOptions struct {
	Limit  int
	Page   int
	Search string
}

// RepositoryUpdate carries the validated subset of fields a client may change.
type RepositoryUpdate struct {
	Name        *string
	Description *string
	Visibility  *Visibility
}
