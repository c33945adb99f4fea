package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"culinary/internal/logging"
	"culinary/internal/platform/mealdb"
	"culinary/internal/recipe"
)

const (
	DefaultWidth uint = 300
	MinWidth     uint = 50
	MaxWidth     uint = 1200
)

// ErrNotFound is returned when the recipe does not exist or has no thumbnail.
var ErrNotFound = errors.New("thumbnail not found")

// ErrInvalidID is returned for ids that cannot name a recipe.
var ErrInvalidID = errors.New("invalid recipe id")

// Lookup resolves a recipe id to its detail record.
type Lookup interface {
	LookupByID(ctx context.Context, id string) (*recipe.RecipeDetail, error)
}

// Service downloads recipe thumbnails, resizes them and caches the result on disk.
type Service struct {
	lookup       Lookup
	httpClient   *http.Client
	cacheDir     string
	defaultWidth uint
	logger       *zap.Logger
}

// NewService creates a Service caching into cacheDir.
func NewService(lookup Lookup, cacheDir string, defaultWidth uint, logger *zap.Logger) *Service {
	if defaultWidth == 0 {
		defaultWidth = DefaultWidth
	}
	return &Service{
		lookup:       lookup,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		cacheDir:     cacheDir,
		defaultWidth: defaultWidth,
		logger:       logging.OrNop(logger),
	}
}

// ClampWidth maps a requested width into the supported range. Zero selects the default.
func (s *Service) ClampWidth(width uint) uint {
	switch {
	case width == 0:
		return s.defaultWidth
	case width < MinWidth:
		return MinWidth
	case width > MaxWidth:
		return MaxWidth
	default:
		return width
	}
}

// Get returns the JPEG thumbnail of recipe id scaled to width, keeping the aspect ratio.
func (s *Service) Get(ctx context.Context, id string, width uint) ([]byte, error) {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return nil, fmt.Errorf("%w %q", ErrInvalidID, id)
	}
	width = s.ClampWidth(width)
	cachePath := filepath.Join(s.cacheDir, fmt.Sprintf("%s_%d.jpg", id, width))

	if data, err := os.ReadFile(cachePath); err == nil {
		return data, nil
	}

	detail, err := s.lookup.LookupByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail == nil || detail.Thumbnail == "" {
		return nil, ErrNotFound
	}

	original, err := s.download(ctx, detail.Thumbnail)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	img = resize.Resize(width, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	if err := s.save(cachePath, buf.Bytes()); err != nil {
		s.logger.Warn("failed to cache thumbnail", zap.String("path", cachePath), zap.Error(err))
	}
	return buf.Bytes(), nil
}

func (s *Service) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: thumbnail download: %w", mealdb.ErrUnavailable, ctxErr)
		}
		return nil, fmt.Errorf("%w: thumbnail download: %w", mealdb.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: thumbnail download: status %d", mealdb.ErrUnavailable, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail download: %w", mealdb.ErrUnavailable, err)
	}
	return data, nil
}

func (s *Service) save(path string, data []byte) error {
	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	// Written under a temp name and renamed so readers never see a partial file.
	tmp, err := os.CreateTemp(s.cacheDir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
