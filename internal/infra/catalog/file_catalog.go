// Package catalog serves read-only content definitions to the entitlement
// and scoring use cases.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/adapter"
)

var _ adapter.Catalog = (*FileCatalog)(nil)

// Document is the on-disk catalog layout.
type Document struct {
	Articles []*model.Article `yaml:"articles"`
	Quizzes  []*model.Quiz    `yaml:"quizzes"`
}

// FileCatalog holds a validated, slug-indexed snapshot of a YAML document.
type FileCatalog struct {
	articles map[string]*model.Article
	quizzes  map[string]*model.Quiz
}

func LoadFile(path string, logger *zerolog.Logger) (*FileCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	c, err := New(doc)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	logger.Info().
		Str("path", path).
		Int("articles", len(c.articles)).
		Int("quizzes", len(c.quizzes)).
		Msg("catalog loaded")
	return c, nil
}

// New indexes doc. Slugs must be unique per kind and every quiz must validate.
func New(doc Document) (*FileCatalog, error) {
	c := &FileCatalog{
		articles: make(map[string]*model.Article, len(doc.Articles)),
		quizzes:  make(map[string]*model.Quiz, len(doc.Quizzes)),
	}
	for _, a := range doc.Articles {
		if a == nil || strings.TrimSpace(a.Slug) == "" {
			return nil, fmt.Errorf("%w: article without slug", domain.ErrInvalidArgument)
		}
		if a.BasePrice < 0 {
			return nil, fmt.Errorf("%w: article %q has a negative price", domain.ErrInvalidArgument, a.Slug)
		}
		if _, dup := c.articles[a.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate article %q", domain.ErrAlreadyExists, a.Slug)
		}
		c.articles[a.Slug] = a
	}
	for _, q := range doc.Quizzes {
		if q == nil || strings.TrimSpace(q.Slug) == "" {
			return nil, fmt.Errorf("%w: quiz without slug", domain.ErrInvalidArgument)
		}
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.quizzes[q.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate quiz %q", domain.ErrAlreadyExists, q.Slug)
		}
		c.quizzes[q.Slug] = q
	}
	return c, nil
}

func (c *FileCatalog) Item(_ context.Context, kind model.ItemKind, slug string) (model.ContentItem, error) {
	switch kind {
	case model.ItemKindArticle:
		if a, ok := c.articles[slug]; ok {
			return a, nil
		}
	case model.ItemKindQuiz:
		if q, ok := c.quizzes[slug]; ok {
			return q, nil
		}
	default:
		return nil, domain.ErrInvalidArgument
	}
	return nil, domain.ErrNotFound
}

func (c *FileCatalog) Quiz(_ context.Context, slug string) (*model.Quiz, error) {
	q, ok := c.quizzes[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return q, nil
}
