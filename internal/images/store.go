package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrBadImage = errors.New("image must be a data URL or base64 payload")

// Image is a decoded upload ready to be stored.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Decode accepts "data:image/png;base64,...." or bare base64.
func Decode(raw string) (Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Image{}, ErrBadImage
	}

	payload := raw
	if strings.HasPrefix(raw, "data:") {
		meta, data, ok := strings.Cut(raw, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return Image{}, ErrBadImage
		}
		payload = data
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if len(data) == 0 {
		return Image{}, ErrBadImage
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return Image{}, fmt.Errorf("%w: got %s", ErrBadImage, ct)
	}
	return Image{Data: data, ContentType: ct, Ext: extFor(ct)}, nil
}

func extFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// NewKey returns an object key under products/.
func NewKey(img Image) string {
	return "products/" + uuid.NewString() + img.Ext
}

// Memory keeps objects in a map. Used when no object storage is configured and in tests.
type Memory struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]Image
}

func NewMemory(baseURL string) *Memory {
	return &Memory{baseURL: strings.TrimRight(baseURL, "/"), objects: map[string]Image{}}
}

func (m *Memory) Upload(_ context.Context, key string, img Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = img
	return m.baseURL + "/" + key, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
