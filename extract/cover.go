package extract

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"mobiparse/book"
	"mobiparse/common"
	"mobiparse/config"
	"mobiparse/container"
	"mobiparse/files"
	"mobiparse/thumbs"
)

const thumbnailName = "thumbnail.jpg"

// Cover saves book cover and produced thumbnail into book directory under
// root. Full size cover is removed afterwards unless configuration asks to
// keep resources, in that case its path is returned too.
func Cover(path, root string, cfg *config.Config, log *zap.Logger) (cover, thumb string, err error) {
	log = log.Named("cover")

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("unable to read book: %w", err)
	}
	f, err := container.Open(data, log)
	if err != nil {
		return "", "", fmt.Errorf("unable to open '%s': %w", path, err)
	}

	sink, err := files.New(bookDir(root, path, f), cfg.Resources.Keep, cfg.Resources.SlugNames, log)
	if err != nil {
		return "", "", err
	}
	b, err := book.Open(data, book.WithFileName(filepath.Base(path)), book.WithSink(sink), book.WithLogger(log))
	if err != nil {
		return "", "", fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer b.Destroy()

	location, err := b.Cover()
	if err != nil {
		return "", "", err
	}
	if len(location) == 0 {
		return "", "", fmt.Errorf("'%s': %w", path, common.ErrNoCover)
	}

	jpeg, err := thumbs.Make(f, &cfg.Thumbnails, log)
	if err != nil {
		return "", "", fmt.Errorf("unable to produce thumbnail: %w", err)
	}
	if thumb, err = sink.Write(thumbnailName, jpeg); err != nil {
		return "", "", err
	}
	if cfg.Resources.Keep {
		cover = filepath.Join(sink.Dir(), location)
	}
	log.Info("Cover saved", zap.String("file", path), zap.String("cover", cover), zap.String("thumbnail", thumb))
	return cover, thumb, nil
}
