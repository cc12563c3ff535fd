// internal/api/views.go
package api

import (
	"time"

	"repo-mirror/internal/model"
)

const (
	unknownAuthor = "Unknown"
	notAvailable  = "N/A"
)

type repositoryView struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Author         string       `json:"author"`
	LastActivityAt *time.Time   `json:"last_activity_at"`
	Visibility     string       `json:"visibility"`
	Topics         []string     `json:"topics"`
	DefaultBranch  string       `json:"default_branch"`
	LicenseName    string       `json:"license_name"`
	AvatarURL      string       `json:"avatar_url"`
	ReadmeURL      string       `json:"readme_url"`
	Commits        []commitView `json:"commits"`
	Branches       []branchView `json:"branches"`
}

type commitView struct {
	ID      string     `json:"id"`
	Message string     `json:"message"`
	Author  string     `json:"author"`
	Date    *time.Time `json:"date"`
}

type branchView struct {
	Name     string `json:"name"`
	CommitID string `json:"commit_id"`
}

type summaryView struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Author         string     `json:"author"`
	Description    string     `json:"description"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	AvatarURL      string     `json:"avatar_url"`
}

type tokenView struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
	RedirectURL string    `json:"redirect_url"`
}

func toRepositoryView(r *model.Repository) repositoryView {
	v := repositoryView{
		ID:             r.ID,
		Name:           r.Name,
		Description:    orDefault(r.Description, notAvailable),
		Author:         orDefault(r.Author, unknownAuthor),
		LastActivityAt: r.LastActivityAt,
		Visibility:     string(r.Visibility),
		Topics:         r.Topics,
		DefaultBranch:  orDefault(r.DefaultBranch, notAvailable),
		LicenseName:    orDefault(r.LicenseName, notAvailable),
		AvatarURL:      orDefault(r.AvatarURL, notAvailable),
		ReadmeURL:      orDefault(r.ReadmeURL, notAvailable),
		Commits:        make([]commitView, 0, len(r.Commits)),
		Branches:       make([]branchView, 0, len(r.Branches)),
	}
	if v.Topics == nil {
		v.Topics = []string{}
	}
	for _, c := range r.Commits {
		v.Commits = append(v.Commits, commitView{ID: c.ID, Message: c.Message, Author: c.Author, Date: c.Date})
	}
	for _, b := range r.Branches {
		v.Branches = append(v.Branches, branchView{Name: b.Name, CommitID: b.CommitID})
	}
	return v
}

func toSummaryView(s model.RepositorySummary) summaryView {
	return summaryView{
		ID:             s.ID,
		Name:           s.Name,
		Author:         orDefault(s.Author, unknownAuthor),
		Description:    orDefault(s.Description, notAvailable),
		LastActivityAt: s.LastActivityAt,
		AvatarURL:      orDefault(s.AvatarURL, notAvailable),
	}
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
