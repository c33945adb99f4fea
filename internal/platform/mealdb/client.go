package mealdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"culinary/internal/recipe"
)

// DefaultBaseURL is the public TheMealDB v1 endpoint with the shared test key.
const DefaultBaseURL = "https://www.themealdb.com/api/json/v1/1"

// ErrUnavailable is returned when the recipe service cannot be reached or
// answers with a non-success status.
var ErrUnavailable = errors.New("recipe service unavailable")

// ErrBadResponse is returned when the recipe service answers with a body that
// cannot be decoded.
var ErrBadResponse = errors.New("unexpected response from recipe service")

// Client is a client for the TheMealDB JSON API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// mealsResponse is the envelope of every meal endpoint. "meals" is null when nothing matched.
type mealsResponse[T any] struct {
	Meals []T `json:"meals"`
}

type categoriesResponse struct {
	Categories []recipe.Category `json:"categories"`
}

// SearchByName returns recipes whose name matches query.
func (c *Client) SearchByName(ctx context.Context, query string) ([]recipe.Recipe, error) {
	return c.recipes(ctx, "search.php", url.Values{"s": {query}})
}

// SearchByIngredient returns recipes using the given main ingredient.
func (c *Client) SearchByIngredient(ctx context.Context, ingredient string) ([]recipe.Recipe, error) {
	return c.recipes(ctx, "filter.php", url.Values{"i": {ingredient}})
}

// FilterByCategory returns all recipes in a category.
func (c *Client) FilterByCategory(ctx context.Context, category string) ([]recipe.Recipe, error) {
	return c.recipes(ctx, "filter.php", url.Values{"c": {category}})
}

// LookupByID returns the detail record for id, or nil if there is none.
func (c *Client) LookupByID(ctx context.Context, id string) (*recipe.RecipeDetail, error) {
	return c.detail(ctx, "lookup.php", url.Values{"i": {id}})
}

// Random returns a random detail record, or nil if the service returned none.
func (c *Client) Random(ctx context.Context) (*recipe.RecipeDetail, error) {
	return c.detail(ctx, "random.php", nil)
}

// Categories lists all recipe categories.
func (c *Client) Categories(ctx context.Context) ([]recipe.Category, error) {
	var resp categoriesResponse
	if err := c.get(ctx, "categories.php", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Categories == nil {
		return []recipe.Category{}, nil
	}
	return resp.Categories, nil
}

func (c *Client) recipes(ctx context.Context, endpoint string, params url.Values) ([]recipe.Recipe, error) {
	var resp mealsResponse[recipe.Recipe]
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if resp.Meals == nil {
		return []recipe.Recipe{}, nil
	}
	return resp.Meals, nil
}

func (c *Client) detail(ctx context.Context, endpoint string, params url.Values) (*recipe.RecipeDetail, error) {
	var resp mealsResponse[recipe.RecipeDetail]
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Meals) == 0 {
		return nil, nil // Not found
	}
	return &resp.Meals[0], nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrUnavailable, endpoint, ctxErr)
		}
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: status %d", ErrUnavailable, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadResponse, endpoint, err)
	}
	return nil
}
