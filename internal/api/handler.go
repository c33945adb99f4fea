package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"culinary/internal/platform/mealdb"
	"culinary/internal/recipe"
	"culinary/internal/search"
	"culinary/internal/thumbnail"
)

const (
	// ConnectivityMessage is shown whenever the recipe service cannot be reached.
	ConnectivityMessage = "Failed to reach the recipe service. Please check your internet connection."

	homeCategories = 8
	homeFeatured   = 6
)

// RecipeService defines the interface for looking up recipes in the remote catalogue.
type RecipeService interface {
	SearchByName(ctx context.Context, query string) ([]recipe.Recipe, error)
	LookupByID(ctx context.Context, id string) (*recipe.RecipeDetail, error)
	Random(ctx context.Context) (*recipe.RecipeDetail, error)
	Categories(ctx context.Context) ([]recipe.Category, error)
}

// Searcher defines the interface for the results page search.
type Searcher interface {
	Browse(ctx context.Context, category, query string) (search.Result, error)
}

// FavoritesStore defines the interface for the favorites set.
type FavoritesStore interface {
	Favorites() []recipe.Recipe
	Ready() bool
	IsFavorite(id string) bool
	Add(ctx context.Context, r recipe.Recipe) bool
	Remove(ctx context.Context, id string) bool
	Toggle(ctx context.Context, r recipe.Recipe) bool
}

// Thumbnails defines the interface for resized recipe images.
type Thumbnails interface {
	Get(ctx context.Context, id string, width uint) ([]byte, error)
}

// Handler handles HTTP requests.
type Handler struct {
	Recipes    RecipeService
	Searcher   Searcher
	Favorites  FavoritesStore
	Thumbnails Thumbnails
	Latest     *search.Latest
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(recipes RecipeService, searcher Searcher, favorites FavoritesStore, thumbnails Thumbnails, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Recipes:    recipes,
		Searcher:   searcher,
		Favorites:  favorites,
		Thumbnails: thumbnails,
		Latest:     search.NewLatest(),
		Timeout:    15 * time.Second,
		Logger:     logger,
	}
}

// DetailResponse is a recipe detail plus the derived lists the detail page shows.
type DetailResponse struct {
	recipe.RecipeDetail
	IngredientList []recipe.IngredientSlot
	Steps          []string
	TagList        []string
	Favorite       bool
}

// MarshalJSON merges the flat detail record with the derived fields.
func (d DetailResponse) MarshalJSON() ([]byte, error) {
	return marshalMerged(d.RecipeDetail, map[string]any{
		"ingredients": nonNil(d.IngredientList),
		"steps":       nonNil(d.Steps),
		"tags":        nonNil(d.TagList),
		"favorite":    d.Favorite,
	})
}

// HomeResponse is the landing page payload.
type HomeResponse struct {
	Categories []recipe.Category `json:"categories"`
	Featured   []recipe.Recipe   `json:"featured"`
}

// FavoriteStatus reports the membership of one recipe.
type FavoriteStatus struct {
	ID       string `json:"id"`
	Favorite bool   `json:"favorite"`
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.Timeout)
}

// fail writes the response for an error returned by the recipe service.
func (h *Handler) fail(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "The recipe service took too long to respond."})
	case errors.Is(err, mealdb.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": ConnectivityMessage})
	case errors.Is(err, mealdb.ErrBadResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": "The recipe service returned an unexpected response."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
	}
	h.Logger.Error(op+" failed", zap.Error(err), zap.String("request_id", c.GetString(requestIDKey)))
}

// Health answers liveness probes.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Search handles the results page: category filter, smart search or the default listing.
// Requests carrying X-Client-ID cancel that client's previous search.
func (h *Handler) Search(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var tok *search.Token
	if client := c.GetHeader("X-Client-ID"); client != "" {
		ctx, tok = h.Latest.Begin(ctx, client)
	}

	result, err := h.Searcher.Browse(ctx, c.Query("category"), c.Query("q"))

	if tok != nil && !h.Latest.Done(tok) {
		c.JSON(http.StatusConflict, gin.H{"error": "superseded"})
		return
	}
	if err != nil {
		h.fail(c, err, "search")
		return
	}
	if result.Recipes == nil {
		result.Recipes = []recipe.Recipe{}
	}
	c.JSON(http.StatusOK, result)
}

// GetRecipe handles requests to retrieve a single recipe by id.
func (h *Handler) GetRecipe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	detail, err := h.Recipes.LookupByID(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "lookup")
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}
	c.JSON(http.StatusOK, h.detailResponse(detail))
}

// Random returns a random recipe.
func (h *Handler) Random(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	detail, err := h.Recipes.Random(ctx)
	if err != nil {
		h.fail(c, err, "random")
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}
	c.JSON(http.StatusOK, h.detailResponse(detail))
}

// Categories lists all categories.
func (h *Handler) Categories(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	categories, err := h.Recipes.Categories(ctx)
	if err != nil {
		h.fail(c, err, "categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Home returns the first categories and featured recipes, fetched concurrently.
func (h *Handler) Home(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var home HomeResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		categories, err := h.Recipes.Categories(gctx)
		if err != nil {
			return err
		}
		home.Categories = head(categories, homeCategories)
		return nil
	})
	g.Go(func() error {
		featured, err := h.Recipes.SearchByName(gctx, search.DefaultQuery)
		if err != nil {
			return err
		}
		home.Featured = head(featured, homeFeatured)
		return nil
	})
	if err := g.Wait(); err != nil {
		h.fail(c, err, "home")
		return
	}
	c.JSON(http.StatusOK, home)
}

// ListFavorites returns the saved recipes in the order they were added.
func (h *Handler) ListFavorites(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"favorites": h.Favorites.Favorites(),
		"ready":     h.Favorites.Ready(),
	})
}

// GetFavorite reports whether a recipe is saved.
func (h *Handler) GetFavorite(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, FavoriteStatus{ID: id, Favorite: h.Favorites.IsFavorite(id)})
}

// AddFavorite saves the recipe in the body.
func (h *Handler) AddFavorite(c *gin.Context) {
	r, ok := bindRecipe(c)
	if !ok {
		return
	}
	status := http.StatusOK
	if h.Favorites.Add(c.Request.Context(), r) {
		status = http.StatusCreated
	}
	c.JSON(status, FavoriteStatus{ID: r.ID, Favorite: true})
}

// RemoveFavorite deletes a saved recipe. Removing an unsaved recipe is not an error.
func (h *Handler) RemoveFavorite(c *gin.Context) {
	h.Favorites.Remove(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

// ToggleFavorite flips the membership of the recipe in the body.
func (h *Handler) ToggleFavorite(c *gin.Context) {
	r, ok := bindRecipe(c)
	if !ok {
		return
	}
	favorite := h.Favorites.Toggle(c.Request.Context(), r)
	c.JSON(http.StatusOK, FavoriteStatus{ID: r.ID, Favorite: favorite})
}

// Thumbnail serves a resized JPEG of the recipe image.
func (h *Handler) Thumbnail(c *gin.Context) {
	var width uint64
	if w := c.Query("width"); w != "" {
		var err error
		width, err = strconv.ParseUint(w, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "width must be a positive integer"})
			return
		}
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	data, err := h.Thumbnails.Get(ctx, c.Param("id"), uint(width))
	if err != nil {
		if errors.Is(err, thumbnail.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Thumbnail not found"})
			return
		}
		if errors.Is(err, thumbnail.ErrInvalidID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe id"})
			return
		}
		h.fail(c, err, "thumbnail")
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/jpeg", data)
}

func (h *Handler) detailResponse(detail *recipe.RecipeDetail) DetailResponse {
	return DetailResponse{
		RecipeDetail:   *detail,
		IngredientList: detail.IngredientList(),
		Steps:          detail.InstructionSteps(),
		TagList:        detail.TagList(),
		Favorite:       h.Favorites.IsFavorite(detail.ID),
	}
}

func bindRecipe(c *gin.Context) (recipe.Recipe, bool) {
	var r recipe.Recipe
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe: " + err.Error()})
		return r, false
	}
	if r.ID == "" || r.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipe idMeal and strMeal are required"})
		return r, false
	}
	return r, true
}

// marshalMerged encodes v as a JSON object with extra keys added.
func marshalMerged(v any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, val := range extra {
		fields[k] = val
	}
	return json.Marshal(fields)
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	if items == nil {
		return []T{}
	}
	return items
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
