package images

import (
	"bytes"
	"context"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/samber/oops"
)

// Options bound the compression loop
type Options struct {
	// MaxBytes is the byte-size ceiling for the re-encoded image
	MaxBytes int
	// MaxDimension caps the long edge in pixels
	MaxDimension int
	// MaxIterations guards termination when the ceiling is unreachable
	MaxIterations int
	// InitialQuality is the JPEG quality the loop starts from
	InitialQuality int
}

// DefaultOptions mirrors the upload pipeline defaults: 150KB ceiling,
// 1920px long edge, at most 10 re-encode attempts
func DefaultOptions() Options {
	return Options{
		MaxBytes:       150 * 1024,
		MaxDimension:   1920,
		MaxIterations:  10,
		InitialQuality: 85,
	}
}

const (
	qualityStep  = 15
	qualityFloor = 20
	shrinkFactor = 0.8
)

// Compress decodes a raw photographic image, downscales it to the
// dimension cap and re-encodes it as JPEG, iteratively lowering quality
// (and, once quality bottoms out, dimensions) until the result fits the
// byte ceiling. If the ceiling is unreachable within the iteration
// bound the smallest achieved encoding is returned rather than an
// error. Undecodable input is an error.
func Compress(data []byte, opts Options) ([]byte, error) {
	if opts.MaxBytes <= 0 || opts.MaxDimension <= 0 || opts.MaxIterations <= 0 {
		def := DefaultOptions()
		if opts.MaxBytes <= 0 {
			opts.MaxBytes = def.MaxBytes
		}
		if opts.MaxDimension <= 0 {
			opts.MaxDimension = def.MaxDimension
		}
		if opts.MaxIterations <= 0 {
			opts.MaxIterations = def.MaxIterations
		}
	}
	if opts.InitialQuality <= 0 {
		opts.InitialQuality = DefaultOptions().InitialQuality
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, oops.With("context", "decoding image").Wrap(err)
	}

	img := fitToDimension(src, opts.MaxDimension)

	quality := opts.InitialQuality
	var best []byte

	for i := 0; i < opts.MaxIterations; i++ {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, oops.With("quality", quality, "context", "encoding image").Wrap(err)
		}

		encoded := buf.Bytes()
		if best == nil || len(encoded) < len(best) {
			best = encoded
		}
		if len(encoded) <= opts.MaxBytes {
			return encoded, nil
		}

		if quality > qualityFloor {
			quality -= qualityStep
			if quality < qualityFloor {
				quality = qualityFloor
			}
			continue
		}

		// Quality bottomed out, shrink the canvas instead
		b := img.Bounds()
		w := int(float64(b.Dx()) * shrinkFactor)
		h := int(float64(b.Dy()) * shrinkFactor)
		if w < 1 || h < 1 {
			break
		}
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	return best, nil
}

// CompressAll compresses independent images in parallel and joins the
// results in input order. Any single failure fails the whole batch: a
// partially illustrated ad is not a supported state.
func CompressAll(ctx context.Context, items [][]byte, opts Options) ([][]byte, error) {
	results := make([][]byte, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item []byte) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = Compress(item, opts)
		}(i, item)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, oops.With("image_index", i).Wrap(err)
		}
	}
	return results, nil
}

func fitToDimension(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return src
	}
	return imaging.Fit(src, maxDim, maxDim, imaging.Lanczos)
}
