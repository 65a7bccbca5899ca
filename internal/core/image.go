package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"
)

// ImageIngestor stores image binaries and registers them in the media
// library.
type ImageIngestor struct {
	media   MediaRepository
	blobs   BlobStore
	prefix  string
	allowed ExtensionSet
	logger  *slog.Logger
}

// NewImageIngestor returns an ingestor writing blobs under prefix
// (e.g. "media"). Only DefaultImageExtensions are ever accepted.
func NewImageIngestor(media MediaRepository, blobs BlobStore, prefix string, logger *slog.Logger) *ImageIngestor {
	return &ImageIngestor{
		media:   media,
		blobs:   blobs,
		prefix:  prefix,
		allowed: NewExtensionSet(DefaultImageExtensions...),
		logger:  logger,
	}
}

// Ingest stores the image at imagePath and returns its reference.
//
// The path must be non-empty and its extension must appear in both allowed
// and DefaultImageExtensions, otherwise ErrImageRejected is returned. The
// binary is written under prefix/<original filename>; an existing blob with
// the same name is overwritten.
func (g *ImageIngestor) Ingest(ctx context.Context, imagePath string, allowed ExtensionSet) (ImageRef, error) {
	if imagePath == "" {
		return ImageRef{}, fmt.Errorf("%w: empty image path", ErrImageRejected)
	}

	ext := imageExtension(imagePath)
	if !g.allowed.Has(ext) || !allowed.Has(ext) {
		return ImageRef{}, fmt.Errorf("%w: extension %q", ErrImageRejected, ext)
	}

	src, err := os.Open(imagePath)
	if err != nil {
		return ImageRef{}, fmt.Errorf("open image: %w", err)
	}
	defer src.Close()

	fileName := baseName(imagePath)
	key := path.Join(g.prefix, fileName)

	if err := g.blobs.Put(ctx, key, src); err != nil {
		return ImageRef{}, fmt.Errorf("store image %s: %w", key, err)
	}

	m := &Media{
		Name:      fileName,
		TypeAlias: MediaTypeImage,
		Path:      "/" + key,
		CreatedAt: time.Now(),
	}
	if err := g.media.CreateMedia(ctx, m); err != nil {
		// The blob is already written; it stays until overwritten.
		return ImageRef{}, fmt.Errorf("create media %s: %w", fileName, err)
	}

	g.logger.Debug("image stored", "media_id", m.ID, "key", key)

	return ImageRef{MediaID: m.ID, Key: key, Path: m.Path}, nil
}

// Confirm checks that the media entry behind ref exists.
func (g *ImageIngestor) Confirm(ctx context.Context, ref ImageRef) error {
	if ref.MediaID == "" {
		return ErrMediaNotFound
	}
	_, err := g.media.GetByID(ctx, ref.MediaID)
	return err
}

// Discard removes a stored image: the media entry and its blob.
func (g *ImageIngestor) Discard(ctx context.Context, ref ImageRef) error {
	var errs []error
	if ref.MediaID != "" {
		if err := g.media.DeleteMedia(ctx, ref.MediaID); err != nil && !errors.Is(err, ErrMediaNotFound) {
			errs = append(errs, fmt.Errorf("delete media: %w", err))
		}
	}
	if ref.Key != "" {
		if err := g.blobs.Delete(ctx, ref.Key); err != nil {
			errs = append(errs, fmt.Errorf("delete blob: %w", err))
		}
	}
	return errors.Join(errs...)
}
