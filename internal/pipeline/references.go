package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/matchcut/internal/detector"
)

// reference image extensions (reference dirs only; batch inputs accept more)
var referenceExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ResolveReferencePaths expands a reference specification into image paths.
// The spec is a directory of images, a single image path, or a
// comma-separated list of image paths; entries that are not existing files
// are dropped.
func ResolveReferencePaths(spec string) ([]string, error) {
	info, err := os.Stat(spec)
	if err == nil && info.IsDir() {
		entries, err := os.ReadDir(spec)
		if err != nil {
			return nil, fmt.Errorf("read reference directory: %w", err)
		}
		var paths []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if referenceExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				paths = append(paths, filepath.Join(spec, e.Name()))
			}
		}
		sort.Strings(paths)
		return paths, nil
	}

	var paths []string
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if info, err := os.Stat(part); err == nil && !info.IsDir() {
			paths = append(paths, part)
		}
	}
	return paths, nil
}

// LoadReferences builds the reference embedding set from a reference
// specification. Each reference image contributes the embedding of its
// first detected face; images where detection or encoding fails are warned
// about and skipped. An empty result is legal; matching then falls back to
// the first detected face per input image.
func LoadReferences(spec string, deps Deps) ([]detector.Embedding, error) {
	paths, err := ResolveReferencePaths(spec)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		logrus.Warnf("no valid image files found for reference path %s", spec)
	}

	var embeddings []detector.Embedding
	for _, path := range paths {
		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			logrus.Warnf("could not load reference image %s", path)
			continue
		}

		faces, err := deps.Detector.Detect(img)
		if err != nil || len(faces) == 0 {
			logrus.Warnf("no face found in reference image %s", path)
			img.Close()
			continue
		}

		emb, err := deps.Encoder.Extract(img, &faces[0])
		img.Close()
		if err != nil {
			logrus.WithError(err).Warnf("could not encode reference face from %s", path)
			continue
		}

		embeddings = append(embeddings, *emb)
		logrus.Infof("loaded reference face from %s", filepath.Base(path))
	}

	if len(embeddings) == 0 {
		logrus.Warn("no reference embeddings loaded; will fall back to the first detected face, which may hurt match-cut consistency")
	}
	return embeddings, nil
}
