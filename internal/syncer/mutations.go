// internal/syncer/mutations.go
package syncer

import (
	"context"
	"fmt"
	"maps"
	"slices"

	custom_errors "repo-mirror/internal/errors"
	"repo-mirror/internal/model"
)

// updatableFields is the allow-list of client-editable fields and their JSON type.
var updatableFields = map[string]string{
	"name":        "string",
	"description": "string",
	"visibility":  "string",
}

// UpdateRepository validates fields against the allow-list, writes them and drops
// the cached snapshot. Nothing is written when validation fails.
func (s *Syncer) UpdateRepository(ctx context.Context, id int64, fields map[string]any) (*model.Repository, error) {
	upd, err := validateUpdate(fields)
	if err != nil {
		return nil, err
	}

	repo, err := s.store.UpdateRepository(ctx, id, upd)
	s.cache.Clear(id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Repository updated", "repo_id", id, "fields", slices.Sorted(maps.Keys(fields)))
	return repo, nil
}

// DeleteRepository removes the repository with its commits and branches.
func (s *Syncer) DeleteRepository(ctx context.Context, id int64) error {
	err := s.store.DeleteRepository(ctx, id)
	s.cache.Clear(id)
	return err
}

// DeleteCommit removes one commit of a repository.
func (s *Syncer) DeleteCommit(ctx context.Context, repoID int64, commitID string) error {
	err := s.store.DeleteCommit(ctx, repoID, commitID)
	s.cache.Clear(repoID)
	return err
}

// DeleteBranch removes one branch of a repository.
func (s *Syncer) DeleteBranch(ctx context.Context, repoID int64, name string) error {
	err := s.store.DeleteBranch(ctx, repoID, name)
	s.cache.Clear(repoID)
	return err
}

func validateUpdate(fields map[string]any) (model.RepositoryUpdate, error) {
	var upd model.RepositoryUpdate
	if len(fields) == 0 {
		return upd, &custom_errors.ValidationError{Message: "no fields to update"}
	}

	for _, key := range slices.Sorted(maps.Keys(fields)) {
		want, ok := updatableFields[key]
		if !ok {
			return upd, &custom_errors.ValidationError{Field: key, Message: "field is not updatable"}
		}
		if got := jsonType(fields[key]); got != want {
			return upd, &custom_errors.ValidationError{Field: key, Message: fmt.Sprintf("expected %s, got %s", want, got)}
		}
	}

	if v, ok := fields["name"].(string); ok {
		if v == "" {
			return upd, &custom_errors.ValidationError{Field: "name", Message: "must not be empty"}
		}
		upd.Name = &v
	}
	if v, ok := fields["description"].(string); ok {
		upd.Description = &v
	}
	if v, ok := fields["visibility"].(string); ok {
		vis := model.Visibility(v)
		if !vis.Valid() {
			return upd, &custom_errors.ValidationError{Field: "visibility", Message: "must be one of private, internal, public"}
		}
		upd.Visibility = &vis
	}
	return upd, nil
}

// jsonType names the JSON type of a value decoded by encoding/json.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
