// Package media stores the photos, videos and voice notes attached to
// reports and emergencies.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/civicdesk/api/internal/model"
	"github.com/google/uuid"
)

// ErrInvalidFile wraps every rejection of an uploaded file.
var ErrInvalidFile = errors.New("invalid media file")

type Kind string

const (
	KindImage Kind = "images"
	KindVideo Kind = "videos"
	KindAudio Kind = "audio"
)

var allowedTypes = map[string]Kind{
	"image/jpeg":      KindImage,
	"image/png":       KindImage,
	"image/webp":      KindImage,
	"image/gif":       KindImage,
	"image/heic":      KindImage,
	"video/mp4":       KindVideo,
	"video/quicktime": KindVideo,
	"video/webm":      KindVideo,
	"audio/mpeg":      KindAudio,
	"audio/mp4":       KindAudio,
	"audio/aac":       KindAudio,
	"audio/wav":       KindAudio,
	"audio/x-wav":     KindAudio,
	"audio/ogg":       KindAudio,
	"audio/webm":      KindAudio,
}

// Store persists uploaded objects and returns their public URL.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Driver() string
}

// Classify maps a content type to a media kind.
func Classify(contentType string) (Kind, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	kind, ok := allowedTypes[strings.ToLower(mediaType)]
	return kind, ok
}

type Uploader struct {
	store    Store
	maxBytes int64
	maxFiles int
	now      func() time.Time
}

func NewUploader(store Store, maxBytes int64, maxFiles int) *Uploader {
	return &Uploader{store: store, maxBytes: maxBytes, maxFiles: maxFiles, now: time.Now}
}

func (u *Uploader) Driver() string {
	return u.store.Driver()
}

// Upload is the result of a successful Save.
type Upload struct {
	Media model.Media
	Keys  []string
}

// Save validates and stores files uploaded by userID under scope (for
// example "reports"). Either every file is stored or none is.
func (u *Uploader) Save(ctx context.Context, scope string, userID int64, files []*multipart.FileHeader) (Upload, error) {
	var out Upload
	if len(files) == 0 {
		return out, nil
	}
	if len(files) > u.maxFiles {
		return out, fmt.Errorf("%w: at most %d files per upload", ErrInvalidFile, u.maxFiles)
	}

	for _, fh := range files {
		url, key, kind, err := u.saveOne(ctx, scope, userID, fh)
		if err != nil {
			u.Discard(ctx, out)
			return Upload{}, err
		}
		out.Keys = append(out.Keys, key)
		switch kind {
		case KindImage:
			out.Media.Images = append(out.Media.Images, url)
		case KindVideo:
			out.Media.Videos = append(out.Media.Videos, url)
		case KindAudio:
			out.Media.Audio = append(out.Media.Audio, url)
		}
	}
	return out, nil
}

// Discard removes every stored object of up. Failures are logged only.
func (u *Uploader) Discard(ctx context.Context, up Upload) {
	for _, key := range up.Keys {
		if err := u.store.Delete(context.WithoutCancel(ctx), key); err != nil {
			log.Printf("Warning: failed to remove orphaned upload %s: %v", key, err)
		}
	}
}

func (u *Uploader) saveOne(ctx context.Context, scope string, userID int64, fh *multipart.FileHeader) (string, string, Kind, error) {
	if fh.Size > u.maxBytes {
		return "", "", "", fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidFile, fh.Filename, u.maxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return "", "", "", err
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	kind, ok := Classify(contentType)
	if !ok {
		// browsers send application/octet-stream for unknown extensions
		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		contentType = http.DetectContentType(head[:n])
		if kind, ok = Classify(contentType); !ok {
			return "", "", "", fmt.Errorf("%w: %s has unsupported type %s", ErrInvalidFile, fh.Filename, contentType)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", "", "", err
		}
	}

	key := u.Key(scope, kind, userID, fh.Filename)
	url, err := u.store.Put(ctx, key, f, fh.Size, contentType)
	if err != nil {
		return "", "", "", fmt.Errorf("store %s: %w", fh.Filename, err)
	}
	return url, key, kind, nil
}

// Key builds the object key {scope}/{kind}/{userID}/{unix}_{uuid}{ext}.
func (u *Uploader) Key(scope string, kind Kind, userID int64, filename string) string {
	return fmt.Sprintf("%s/%s/%d/%d_%s%s", scope, kind, userID, u.now().Unix(), uuid.New().String(), cleanExt(filename))
}

func cleanExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
