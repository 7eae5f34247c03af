package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-resty/resty/v2"
	"github.com/openai/openai-go"

	"diningguide/internal/logger"
	"diningguide/pkg/diningtypes"
)

// ImageFilename derives the generated image name for a food:
// lower-cased name and hall with every non-alphanumeric rune replaced by '_'.
func ImageFilename(name, hall string) string {
	return sanitizeImagePart(name) + "_" + sanitizeImagePart(hall) + ".png"
}

func sanitizeImagePart(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, strings.ToLower(s))
}

// ImagePrompt is the text sent to the image model for a food.
func ImagePrompt(name string) string {
	return fmt.Sprintf("A delicious, appetizing photo of %s", name)
}

// ImageReport summarizes a batch generation run.
type ImageReport struct {
	Total     int
	Generated int
	Skipped   int
	Errors    int
}

// ImageProgress is called after each item of a batch run.
type ImageProgress func(index int, item diningtypes.FoodItem, outcome string, err error)

// ImageService generates food photos with the OpenAI Images API and stores them in the images directory.
type ImageService struct {
	initialized bool
	imagesDir   string
	openai      *OpenAIClient
	download    *resty.Client
}

// NewImageService creates a new ImageService instance.
func NewImageService() *ImageService {
	return &ImageService{}
}

// Name returns the service name "image" for registration.
func (s *ImageService) Name() string {
	return "image"
}

// Initialize reads DINING_IMAGES_DIR and the OpenAI key unless they were set explicitly.
func (s *ImageService) Initialize() error {
	if s.initialized {
		return nil
	}

	if config, err := LookupService[*ConfigurationService]("configuration"); err == nil {
		if s.imagesDir == "" {
			s.imagesDir = config.GetString("DINING_IMAGES_DIR", "images")
		}
		if s.openai == nil {
			apiKey, _ := config.GetAPIKey("openai")
			s.openai = NewOpenAIClient(apiKey, CompletionOptions{})
		}
	}
	if s.imagesDir == "" {
		s.imagesDir = "images"
	}
	if s.openai == nil {
		s.openai = NewOpenAIClient("", CompletionOptions{})
	}
	if s.download == nil {
		s.download = NewHTTPClient("", DefaultHTTPClientOptions)
	}

	s.initialized = true
	return nil
}

// Configure sets the images directory, the OpenAI client and the download client.
func (s *ImageService) Configure(imagesDir string, client *OpenAIClient, download *resty.Client) {
	s.imagesDir = imagesDir
	s.openai = client
	s.download = download
}

// ImagesDir returns the directory images are written to.
func (s *ImageService) ImagesDir() string {
	return s.imagesDir
}

// HasImage reports whether the generated image for a food already exists.
func (s *ImageService) HasImage(name, hall string) bool {
	return fileExists(filepath.Join(s.imagesDir, ImageFilename(name, hall)))
}

// CanGenerate reports whether an OpenAI key is available.
func (s *ImageService) CanGenerate() bool {
	return s.openai != nil && s.openai.IsConfigured()
}

// GenerateImage creates the image for one food and returns its filename.
// Existing images are kept.
func (s *ImageService) GenerateImage(ctx context.Context, name, hall string) (string, error) {
	if !s.initialized {
		return "", fmt.Errorf("image service not initialized")
	}

	filename := ImageFilename(name, hall)
	path := filepath.Join(s.imagesDir, filename)
	if fileExists(path) {
		return filename, nil
	}

	client, err := s.openai.initializeClientIfNeeded()
	if err != nil {
		return "", err
	}

	logger.Debug("Generating image", "food", name, "hall", hall)
	resp, err := client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:  openai.ImageModelDallE2,
		Prompt: ImagePrompt(name),
		Size:   openai.ImageGenerateParamsSize256x256,
		N:      openai.Int(1),
	})
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("image generation returned no URL")
	}

	download, err := s.download.R().SetContext(ctx).Get(resp.Data[0].URL)
	if err != nil {
		return "", fmt.Errorf("image download failed: %w", err)
	}
	if download.IsError() {
		return "", fmt.Errorf("image download failed: %s", download.Status())
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}
	if err := os.WriteFile(path, download.Body(), 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	logger.Info("Generated image", "path", path)
	return filename, nil
}

// GenerateAll creates missing images for every item.
// Items that already have an image count as skipped; without an API key every
// missing image counts as an error, matching a run that could not generate it.
func (s *ImageService) GenerateAll(ctx context.Context, items []diningtypes.FoodItem, progress ImageProgress) (ImageReport, error) {
	report := ImageReport{Total: len(items)}
	if !s.initialized {
		return report, fmt.Errorf("image service not initialized")
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if s.HasImage(item.Name, item.DiningHall) {
			report.Skipped++
			if progress != nil {
				progress(i, item, "skipped", nil)
			}
			continue
		}

		_, err := s.GenerateImage(ctx, item.Name, item.DiningHall)
		if err != nil {
			report.Errors++
			logger.Warn("Image generation failed", "food", item.Name, "error", err)
		} else {
			report.Generated++
		}
		if progress != nil {
			outcome := "generated"
			if err != nil {
				outcome = "error"
			}
			progress(i, item, outcome, err)
		}
	}

	return report, nil
}
