package pipeline

import (
	"math"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/matchcut/internal/detector"
)

// findMatchingFace detects candidate faces and selects the one closest by
// embedding distance to any reference, within the configured tolerance.
// With no references loaded it falls back to the first detected face, which
// reduces match-cut consistency. Equally distant references tie-break by
// encounter order: the first global minimum wins.
func (p *Pipeline) findMatchingFace(img gocv.Mat) (*detector.Face, Status, error) {
	faces, err := p.deps.Detector.Detect(img)
	if err != nil {
		return nil, StatusNoFace, err
	}
	if len(faces) == 0 {
		return nil, StatusNoFace, nil
	}

	var selected *detector.Face

	if len(p.references) == 0 {
		logrus.Debug("no reference embeddings loaded, using the first detected face")
		selected = &faces[0]
	} else {
		bestDistance := math.MaxFloat64
		for i := range faces {
			emb, err := p.deps.Encoder.Extract(img, &faces[i])
			if err != nil {
				logrus.WithError(err).Debug("embedding extraction failed for candidate face")
				continue
			}
			faces[i].Embedding = emb

			for _, ref := range p.references {
				d := float64(emb.Distance(&ref))
				if d < bestDistance && d <= p.cfg.MatchTolerance {
					bestDistance = d
					selected = &faces[i]
				}
			}
		}
		if selected == nil {
			return nil, StatusNoMatch, nil
		}
	}

	if err := p.deps.Landmarker.Detect(img, selected); err != nil {
		return nil, StatusNoLandmarks, err
	}
	if !selected.HasAlignmentGroups() {
		return nil, StatusNoLandmarks, nil
	}

	return selected, StatusSuccess, nil
}
