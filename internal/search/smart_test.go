package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"culinary/internal/recipe"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockSource is a mock of the recipe service.
type mockSource struct {
	byName       []recipe.Recipe
	byIngredient []recipe.Recipe
	byCategory   []recipe.Recipe
	nameErr      error
	ingredErr    error
	categoryErr  error

	nameCalls       []string
	ingredientCalls []string
	categoryCalls   []string
}

func (m *mockSource) SearchByName(ctx context.Context, query string) ([]recipe.Recipe, error) {
	m.nameCalls = append(m.nameCalls, query)
	if m.nameErr != nil {
		return nil, m.nameErr
	}
	return m.byName, nil
}

func (m *mockSource) SearchByIngredient(ctx context.Context, ingredient string) ([]recipe.Recipe, error) {
	m.ingredientCalls = append(m.ingredientCalls, ingredient)
	if m.ingredErr != nil {
		return nil, m.ingredErr
	}
	return m.byIngredient, nil
}

func (m *mockSource) FilterByCategory(ctx context.Context, category string) ([]recipe.Recipe, error) {
	m.categoryCalls = append(m.categoryCalls, category)
	if m.categoryErr != nil {
		return nil, m.categoryErr
	}
	return m.byCategory, nil
}

func recipes(names ...string) []recipe.Recipe {
	out := make([]recipe.Recipe, len(names))
	for i, name := range names {
		out[i] = recipe.Recipe{ID: name, Name: name}
	}
	return out
}

func TestSearchByNameWins(t *testing.T) {
	source := &mockSource{
		byName:       recipes("Chicken Handi", "Chicken Congee", "Chicken Karaage"),
		byIngredient: recipes("should not be used"),
	}
	result := NewSearcher(source, nil).Search(context.Background(), "chicken")

	assert.Equal(t, StrategyName, result.Strategy)
	assert.Len(t, result.Recipes, 3)
	assert.Empty(t, source.ingredientCalls, "ingredient search must not run")
}

func TestSearchFallsBackToIngredient(t *testing.T) {
	source := &mockSource{byIngredient: recipes("Pesto Pasta", "Caprese")}
	result := NewSearcher(source, nil).Search(context.Background(), "basil")

	assert.Equal(t, StrategyIngredient, result.Strategy)
	assert.Len(t, result.Recipes, 2)
	assert.Equal(t, []string{"basil"}, source.nameCalls)
	assert.Equal(t, []string{"basil"}, source.ingredientCalls)
}

func TestSearchTotalMiss(t *testing.T) {
	source := &mockSource{}
	result := NewSearcher(source, nil).Search(context.Background(), "xyzzy")

	assert.Equal(t, StrategyNone, result.Strategy)
	assert.NotNil(t, result.Recipes)
	assert.Empty(t, result.Recipes)
}

func TestSearchDegradesOnErrors(t *testing.T) {
	t.Run("NameFailsIngredientHits", func(t *testing.T) {
		source := &mockSource{nameErr: errors.New("boom"), byIngredient: recipes("Pesto Pasta")}
		result := NewSearcher(source, nil).Search(context.Background(), "basil")
		assert.Equal(t, StrategyIngredient, result.Strategy)
		assert.Len(t, result.Recipes, 1)
	})

	t.Run("BothFail", func(t *testing.T) {
		source := &mockSource{nameErr: errors.New("boom"), ingredErr: errors.New("boom")}
		result := NewSearcher(source, nil).Search(context.Background(), "basil")
		assert.Equal(t, StrategyNone, result.Strategy)
		assert.Empty(t, result.Recipes)
	})
}

func TestSearchBlankQuery(t *testing.T) {
	source := &mockSource{byName: recipes("anything")}
	result := NewSearcher(source, nil).Search(context.Background(), "   ")

	assert.Equal(t, StrategyNone, result.Strategy)
	assert.Empty(t, result.Recipes)
	assert.Empty(t, source.nameCalls)
}

func TestFilterCategory(t *testing.T) {
	source := &mockSource{byCategory: recipes("Baked salmon with fennel", "Honey Teriyaki SALMON", "Fish pie", "Kedgeree")}
	searcher := NewSearcher(source, nil)

	t.Run("Query", func(t *testing.T) {
		got, err := searcher.FilterCategory(context.Background(), "Seafood", "salmon")
		require.NoError(t, err)
		assert.Equal(t, recipes("Baked salmon with fennel", "Honey Teriyaki SALMON"), got)
		assert.Equal(t, "Seafood", source.categoryCalls[len(source.categoryCalls)-1])
	})

	t.Run("EmptyQuery", func(t *testing.T) {
		got, err := searcher.FilterCategory(context.Background(), "Seafood", "")
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("NoMatch", func(t *testing.T) {
		got, err := searcher.FilterCategory(context.Background(), "Seafood", "beef")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Error", func(t *testing.T) {
		failing := &mockSource{categoryErr: errors.New("unreachable")}
		_, err := NewSearcher(failing, nil).FilterCategory(context.Background(), "Seafood", "salmon")
		assert.Error(t, err)
	})
}

func TestBrowse(t *testing.T) {
	t.Run("Category", func(t *testing.T) {
		source := &mockSource{byCategory: recipes("Salmon Avocado Salad", "Fish pie")}
		result, err := NewSearcher(source, nil).Browse(context.Background(), "Seafood", "salmon")
		require.NoError(t, err)
		assert.Equal(t, StrategyCategory, result.Strategy)
		assert.Len(t, result.Recipes, 1)
		assert.Empty(t, source.nameCalls)
	})

	t.Run("Query", func(t *testing.T) {
		source := &mockSource{byName: recipes("Beef Wellington")}
		result, err := NewSearcher(source, nil).Browse(context.Background(), "", "beef")
		require.NoError(t, err)
		assert.Equal(t, StrategyName, result.Strategy)
	})

	t.Run("Default", func(t *testing.T) {
		source := &mockSource{byName: recipes("Chicken Handi")}
		result, err := NewSearcher(source, nil).Browse(context.Background(), "", "")
		require.NoError(t, err)
		assert.Equal(t, StrategyDefault, result.Strategy)
		assert.Equal(t, []string{DefaultQuery}, source.nameCalls)
	})

	t.Run("DefaultError", func(t *testing.T) {
		source := &mockSource{nameErr: errors.New("unreachable")}
		_, err := NewSearcher(source, nil).Browse(context.Background(), "", "")
		assert.Error(t, err)
	})
}

func TestLatestSupersedes(t *testing.T) {
	latest := NewLatest()

	firstCtx, first := latest.Begin(context.Background(), "client-a")
	secondCtx, second := latest.Begin(context.Background(), "client-a")
	_, other := latest.Begin(context.Background(), "client-b")

	assert.ErrorIs(t, firstCtx.Err(), context.Canceled)
	assert.NoError(t, secondCtx.Err())
	assert.Equal(t, 2, latest.Len())

	assert.False(t, latest.Done(first))
	assert.True(t, latest.Done(second))
	assert.True(t, latest.Done(other))
	assert.Equal(t, 0, latest.Len())
	assert.ErrorIs(t, secondCtx.Err(), context.Canceled, "Done releases the context")
}

func TestLatestSlowSearchIsDropped(t *testing.T) {
	latest := NewLatest()
	started := make(chan struct{})
	var wg sync.WaitGroup
	var slowCurrent bool

	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, tok := latest.Begin(context.Background(), "client")
		close(started)
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		slowCurrent = latest.Done(tok)
	}()

	<-started
	_, fast := latest.Begin(context.Background(), "client")
	assert.True(t, latest.Done(fast))

	wg.Wait()
	assert.False(t, slowCurrent)
}
