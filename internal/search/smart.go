// Package search resolves free-text queries and category selections to
// recipe lists.
package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"culinary/internal/logging"
	"culinary/internal/recipe"
)

// Strategy records which lookup produced a result.
type Strategy string

const (
	StrategyName       Strategy = "name"
	StrategyIngredient Strategy = "ingredient"
	// StrategyNone marks a query that neither lookup matched.
	StrategyNone     Strategy = "none"
	StrategyCategory Strategy = "category"
	StrategyDefault  Strategy = "default"
)

// DefaultQuery is listed when neither a query nor a category is given.
const DefaultQuery = "chicken"

// Source is the subset of the recipe service the searcher needs.
type Source interface {
	SearchByName(ctx context.Context, query string) ([]recipe.Recipe, error)
	SearchByIngredient(ctx context.Context, ingredient string) ([]recipe.Recipe, error)
	FilterByCategory(ctx context.Context, category string) ([]recipe.Recipe, error)
}

// Result is a recipe list and the strategy that produced it.
type Result struct {
	Recipes  []recipe.Recipe `json:"recipes"`
	Strategy Strategy        `json:"strategy"`
}

// Searcher runs searches against a Source.
type Searcher struct {
	source Source
	logger *zap.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(source Source, logger *zap.Logger) *Searcher {
	return &Searcher{source: source, logger: logging.OrNop(logger)}
}

// Search looks query up by recipe name and, if that finds nothing, by
// ingredient. Lookup errors count as no results, so Search never fails.
func (s *Searcher) Search(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Recipes: []recipe.Recipe{}, Strategy: StrategyNone}
	}

	byName, err := s.source.SearchByName(ctx, query)
	if err != nil {
		s.logger.Warn("name search failed", zap.String("query", query), zap.Error(err))
	}
	if len(byName) > 0 {
		return Result{Recipes: byName, Strategy: StrategyName}
	}

	byIngredient, err := s.source.SearchByIngredient(ctx, query)
	if err != nil {
		s.logger.Warn("ingredient search failed", zap.String("query", query), zap.Error(err))
	}
	if len(byIngredient) > 0 {
		return Result{Recipes: byIngredient, Strategy: StrategyIngredient}
	}

	return Result{Recipes: []recipe.Recipe{}, Strategy: StrategyNone}
}

// FilterCategory lists the recipes of category whose name contains query,
// ignoring case. An empty query keeps the whole category.
func (s *Searcher) FilterCategory(ctx context.Context, category, query string) ([]recipe.Recipe, error) {
	recipes, err := s.source.FilterByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return recipes, nil
	}
	filtered := make([]recipe.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if r.NameContains(query) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Browse picks what the results page shows: the category filter when a
// category is selected, the smart search when only a query is given, and
// the default listing otherwise.
func (s *Searcher) Browse(ctx context.Context, category, query string) (Result, error) {
	category = strings.TrimSpace(category)
	query = strings.TrimSpace(query)

	switch {
	case category != "":
		recipes, err := s.FilterCategory(ctx, category, query)
		if err != nil {
			return Result{}, err
		}
		return Result{Recipes: recipes, Strategy: StrategyCategory}, nil
	case query != "":
		return s.Search(ctx, query), nil
	default:
		recipes, err := s.source.SearchByName(ctx, DefaultQuery)
		if err != nil {
			return Result{}, err
		}
		return Result{Recipes: recipes, Strategy: StrategyDefault}, nil
	}
}
