// Package thumbs produces JPEG thumbnails out of book covers.
package thumbs

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"mobiparse/common"
	"mobiparse/container"
)

// Make produces thumbnail for the book. Embedded thumbnail is used when it
// is bigger than requested size, otherwise thumbnail is recreated from the
// cover image.
func Make(f *container.File, params *ThumbnailsConfig, log *zap.Logger) ([]byte, error) {
	l := log.Named("thumbs")
	l.Debug("Thumbnail starting", zap.Int("width", params.Width), zap.Int("height", params.Height))
	defer func(start time.Time) {
		l.Debug("Thumbnail finished", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	var buf = new(bytes.Buffer)
	if res, err := f.Thumbnail(); err == nil {
		img, err := imaging.Decode(bytes.NewReader(res.Data))
		if err != nil {
			return nil, fmt.Errorf("unable to decode embedded thumbnail: %w", err)
		}
		if b := img.Bounds(); b.Dx() > params.Width && b.Dy() > params.Height {
			// big enough, use it as is but always convert to JPEG
			if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(params.Quality)); err != nil {
				return nil, fmt.Errorf("unable to encode embedded thumbnail: %w", err)
			}
			return SetJpegDPI(buf.Bytes(), DpiPxPerInch, 300, 300), nil
		}
	} else if !errors.Is(err, common.ErrNoCover) {
		l.Debug("Unable to load embedded thumbnail", zap.Error(err))
	}

	res, err := f.Cover()
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(res.Data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode cover: %w", err)
	}
	thumb := imaging.Thumbnail(img, params.Width, params.Height, imaging.Lanczos)
	if thumb == nil {
		return nil, errors.New("unable to resize cover")
	}
	if err := imaging.Encode(buf, thumb, imaging.JPEG, imaging.JPEGQuality(params.Quality)); err != nil {
		return nil, fmt.Errorf("unable to encode produced thumbnail: %w", err)
	}
	return SetJpegDPI(buf.Bytes(), DpiPxPerInch, 300, 300), nil
}
