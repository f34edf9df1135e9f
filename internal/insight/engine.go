package insight

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"text/template"
	"time"

	"github.com/phrazzld/sprint-insights/internal/domain"
	"github.com/phrazzld/sprint-insights/internal/generation"
	"github.com/phrazzld/sprint-insights/internal/store"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptFiles = map[domain.InsightCategory]string{
	domain.CategoryBacklog:       "prompts/backlog.tmpl",
	domain.CategoryContributions: "prompts/contributions.tmpl",
	domain.CategoryAgileCeremony: "prompts/agile_ceremonies.tmpl",
}

// promptData is the template input for every category prompt.
type promptData struct {
	ProjectID int64
	SprintID  int64
	User      string
	Category  domain.InsightCategory
}

// Engine produces and persists the insights of one sprint.
type Engine struct {
	generator generation.TextGenerator
	store     store.InsightStore
	templates map[domain.InsightCategory]*template.Template
	logger    *slog.Logger
}

// NewEngine parses the embedded prompt templates and returns an Engine.
func NewEngine(generator generation.TextGenerator, insightStore store.InsightStore, logger *slog.Logger) (*Engine, error) {
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if insightStore == nil {
		return nil, errors.New("insight store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	templates := make(map[domain.InsightCategory]*template.Template, len(promptFiles))
	for category, file := range promptFiles {
		tmpl, err := template.New(string(category)).Option("missingkey=error").ParseFS(promptFS, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt template %s: %w", file, err)
		}
		templates[category] = tmpl
	}

	return &Engine{
		generator: generator,
		store:     insightStore,
		templates: templates,
		logger:    logger.With("component", "insight_engine"),
	}, nil
}

// Generate computes every category for task and stores them together.
// Nothing is stored when any category fails.
func (e *Engine) Generate(ctx context.Context, task domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	start := time.Now()
	log := e.logger.With("task", task.String(), "task_key", task.Key().String())

	categories := domain.AllCategories()
	insights := make([]*domain.SprintInsight, 0, len(categories))

	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("insight generation interrupted before %s: %w", category, err)
		}

		prompt, err := e.renderPrompt(task, category)
		if err != nil {
			return err
		}

		text, err := e.generator.GenerateText(ctx, prompt)
		if err != nil {
			log.ErrorContext(ctx, "failed to generate insight category",
				"category", string(category),
				"error", err)
			return fmt.Errorf("failed to generate %s insight: %w", category, err)
		}

		insight, err := domain.NewSprintInsight(task.SprintID, category, text)
		if err != nil {
			return fmt.Errorf("failed to build %s insight: %w", category, err)
		}
		insights = append(insights, insight)

		log.DebugContext(ctx, "generated insight category",
			"category", string(category),
			"content_length", len(text))
	}

	if err := e.store.UpsertAll(ctx, insights); err != nil {
		return fmt.Errorf("failed to store insights for sprint %d: %w", task.SprintID, err)
	}

	log.InfoContext(ctx, "sprint insights generated",
		"categories", len(insights),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (e *Engine) renderPrompt(task domain.Task, category domain.InsightCategory) (string, error) {
	tmpl, ok := e.templates[category]
	if !ok {
		return "", fmt.Errorf("no prompt template for category %q", category)
	}

	data := promptData{
		ProjectID: task.ProjectID,
		SprintID:  task.SprintID,
		User:      task.User,
		Category:  category,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, path.Base(promptFiles[category]), data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", category, err)
	}
	return buf.String(), nil
}
