// internal/assistant/assistant.go
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	custom_errors "repo-mirror/internal/errors"
	"repo-mirror/internal/model"
)

const (
	defaultMaxTokens   = 200
	defaultTemperature = 0.7
)

const systemPrompt = "You are an assistant with knowledge of this repository's details."

// RepositoryLoader returns a locally mirrored repository without contacting upstream.
type RepositoryLoader interface {
	LoadRepository(ctx context.Context, id int64) (*model.Repository, error)
}

// Config configures the chat completion backend.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	// Temperature defaults to 0.7 when nil. Zero is honoured.
	Temperature *float32
}

// Assistant answers free-text questions about a mirrored repository.
type Assistant struct {
	client *openai.Client
	repos  RepositoryLoader
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, repos RepositoryLoader, logger *slog.Logger) *Assistant {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == nil {
		t := float32(defaultTemperature)
		cfg.Temperature = &t
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Assistant{
		client: openai.NewClientWithConfig(clientCfg),
		repos:  repos,
		cfg:    cfg,
		logger: logger,
	}
}

// Ask answers question using only the stored snapshot of repository repoID.
func (a *Assistant) Ask(ctx context.Context, repoID int64, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &custom_errors.ValidationError{Field: "question", Message: "is required"}
	}
	if repoID <= 0 {
		return "", &custom_errors.ValidationError{Field: "repoId", Message: "is required"}
	}

	repo, err := a.repos.LoadRepository(ctx, repoID)
	if err != nil {
		return "", err
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(repo, question),
			},
		},
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: requestTemperature(*a.cfg.Temperature),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			a.logger.Error("Chat completion rejected", "repo_id", repoID, "status", apiErr.HTTPStatusCode, "error", apiErr.Message)
		}
		return "", &custom_errors.UpstreamError{Op: "chat completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &custom_errors.UpstreamError{Op: "chat completion", Err: errors.New("no answer generated")}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildPrompt renders the repository snapshot as plain text followed by the question.
func buildPrompt(repo *model.Repository, question string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Repository Name: %s\n", orNA(&repo.Name))
	fmt.Fprintf(&b, "Description: %s\n", orNA(repo.Description))
	fmt.Fprintf(&b, "Author: %s\n", orNA(repo.Author))
	lastActivity := "N/A"
	if repo.LastActivityAt != nil {
		lastActivity = repo.LastActivityAt.Format(time.RFC3339)
	}
	fmt.Fprintf(&b, "Last Activity Date: %s\n", lastActivity)
	fmt.Fprintf(&b, "Visibility: %s\n\n", orNA((*string)(&repo.Visibility)))

	b.WriteString("Commits:\n")
	if len(repo.Commits) == 0 {
		b.WriteString("No commits available\n")
	}
	for _, c := range repo.Commits {
		date := "N/A"
		if c.Date != nil {
			date = c.Date.Format(time.RFC3339)
		}
		fmt.Fprintf(&b, "- %s (Author: %s, Date: %s)\n", c.Message, c.Author, date)
	}

	b.WriteString("\nBranches:\n")
	if len(repo.Branches) == 0 {
		b.WriteString("No branches available\n")
	} else {
		names := make([]string, len(repo.Branches))
		for i, br := range repo.Branches {
			names[i] = br.Name
		}
		b.WriteString(strings.Join(names, ", ") + "\n")
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n\n", question)
	b.WriteString("Answer the question using only the information provided about the repository in a concise manner.")
	return b.String()
}

// requestTemperature maps zero to the smallest positive value; go-openai omits a
// zero temperature from the request, which the API reads as its default of 1.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}
