package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	productsDir   = "products"
	PublicPrefix  = "/uploads/products/"
	maxUploadSize = 10 << 20
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store writes admin product photos to UPLOAD_DIR/products.
type Store struct {
	root string
	now  func() time.Time
	log  *logrus.Logger
}

type SavedImage struct {
	Filename   string
	PublicPath string
	Size       int
}

func NewStore(root string, logger *logrus.Logger) *Store {
	return &Store{root: root, now: time.Now, log: logger}
}

// Save stores an image payload and returns its public /uploads path.
func (s *Store) Save(ctx context.Context, m domain.Media) (*SavedImage, error) {
	if !m.IsImage() {
		return nil, fmt.Errorf("%w: only image files are supported for product uploads", domain.ErrValidation)
	}
	if len(m.Data) == 0 {
		return nil, fmt.Errorf("%w: image payload is empty", domain.ErrValidation)
	}
	if len(m.Data) > maxUploadSize {
		return nil, fmt.Errorf("%w: image is larger than %d MB", domain.ErrValidation, maxUploadSize>>20)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, productsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create upload directory: %w", err)
	}

	name := fmt.Sprintf("product-%d-%s%s", s.now().UnixMilli(), uuid.NewString()[:8], extensionFor(m))
	if err := os.WriteFile(filepath.Join(dir, name), m.Data, 0o644); err != nil {
		s.log.Errorf("Media: Failed to write upload %s: %v", name, err)
		return nil, fmt.Errorf("could not save image: %w", err)
	}
	s.log.Infof("Media: Saved product image %s (%d bytes)", name, len(m.Data))
	return &SavedImage{Filename: name, PublicPath: PublicPrefix + name, Size: len(m.Data)}, nil
}

func extensionFor(m domain.Media) string {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(m.MimeType, ";", 2)[0]))
	if ext, ok := extensions[mt]; ok {
		return ext
	}
	if ext := strings.ToLower(filepath.Ext(m.Filename)); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".jpg"
}

var captionIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)product\s*(?:id)?\s*(?:is|:|#)?\s*(\d+)`),
	regexp.MustCompile(`(?i)id\s*(?:is|:)?\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:product|image)`),
}

// ProductIDFromCaption reads a product id from phrases like "product 12",
// "id: 12" or "12 image".
func ProductIDFromCaption(caption string) (int, bool) {
	for _, re := range captionIDPatterns {
		if m := re.FindStringSubmatch(caption); m != nil {
			if id, err := strconv.Atoi(m[1]); err == nil && id > 0 {
				return id, true
			}
		}
	}
	return 0, false
}
