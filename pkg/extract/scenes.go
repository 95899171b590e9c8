package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/user/framesift/pkg/analysis"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
)

// Scenes detects cuts in the primary video stream. A threshold of zero or
// less uses analysis.DefaultSceneThreshold.
func (m *MediaFile) Scenes(ctx context.Context, threshold float64) ([]analysis.SceneChange, error) {
	start := time.Now()
	defer m.opts.Metrics.ObserveCall("scenes", start)

	sd, ok := m.source.(ports.SceneDetector)
	if !ok {
		return nil, fmt.Errorf("scene detection: %w", mediaerr.ErrUnsupported)
	}
	if threshold <= 0 {
		threshold = analysis.DefaultSceneThreshold
	}
	cuts, err := sd.DetectScenes(ctx, threshold)
	if err != nil {
		return nil, err
	}
	scenes, err := analysis.SceneChanges(cuts, m.info)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Detected %d scene changes in %s", len(scenes), time.Since(start).Round(time.Millisecond))
	return scenes, nil
}

// Validate reports structural problems of the file.
func (m *MediaFile) Validate() analysis.ValidationReport {
	return analysis.Validate(m.info, m.Tracks())
}
