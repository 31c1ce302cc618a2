package imagestore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glowface/pointgate/internal/clock"
	"github.com/glowface/pointgate/internal/config"
	"github.com/google/uuid"
	"go.uber.org/fx"
)

var ErrInvalidDataURL = errors.New("invalid_data_url")

var extByMime = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Store persists generated images under a public directory and hands back
// the URL clients fetch them from.
type Store struct {
	dir     string
	baseURL string
	clock   clock.Clock
}

type StoreParam struct {
	fx.In

	Config config.Config
	Clock  clock.Clock
}

func New(p StoreParam) (*Store, error) {
	if err := os.MkdirAll(p.Config.ImagesDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		dir:     p.Config.ImagesDir,
		baseURL: p.Config.PublicBaseURL,
		clock:   p.Clock,
	}, nil
}

// Save decodes a data URL and writes it as
// <device>-<unixms>-<uuid>.<ext>, returning the public URL.
func (s *Store) Save(deviceID, dataURL string) (string, error) {
	mime, payload, err := splitDataURL(dataURL)
	if err != nil {
		return "", err
	}
	ext, ok := extByMime[mime]
	if !ok {
		ext = "png"
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidDataURL
	}

	name := fmt.Sprintf("%s-%d-%s.%s",
		sanitize(deviceID),
		s.clock.Now().UnixMilli(),
		uuid.NewString(),
		ext,
	)
	if err := os.WriteFile(filepath.Join(s.dir, name), raw, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + "/images/" + name, nil
}

// Dir is the directory served statically at /images.
func (s *Store) Dir() string { return s.dir }

func splitDataURL(dataURL string) (mime, payload string, err error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", "", ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(dataURL[len("data:"):], ",")
	if !ok || payload == "" {
		return "", "", ErrInvalidDataURL
	}
	mime, _, _ = strings.Cut(meta, ";")
	return mime, payload, nil
}

// sanitize keeps file names safe when device ids carry path characters.
func sanitize(deviceID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, deviceID)
}
