package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framesift/pkg/analysis"
	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/mocks"
	"github.com/user/framesift/pkg/ports"
)

func TestScenes(t *testing.T) {
	m, _ := openMedia(t, 300, func(s *mocks.Media) {
		s.Cuts = []ports.SceneCut{
			{Timestamp: 5 * time.Second, Score: 40},
			{Timestamp: 2 * time.Second, Score: 5},
			{Timestamp: time.Second, Score: 18},
		}
	})

	scenes, err := m.Scenes(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []analysis.SceneChange{
		{Timestamp: time.Second, FrameNumber: 30, Score: 18},
		{Timestamp: 5 * time.Second, FrameNumber: 150, Score: 40},
	}, scenes)

	scenes, err = m.Scenes(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.EqualValues(t, 150, scenes[0].FrameNumber)
}

func TestScenesErrors(t *testing.T) {
	plain, _ := openStream(t, 30, nil)
	_, err := plain.Scenes(context.Background(), 0)
	assert.ErrorIs(t, err, mediaerr.ErrUnsupported)

	boom := errors.New("boom")
	m, _ := openMedia(t, 30, func(s *mocks.Media) { s.SceneErr = boom })
	_, err = m.Scenes(context.Background(), 0)
	assert.ErrorIs(t, err, boom)
}

func TestValidate(t *testing.T) {
	m, _ := openMedia(t, 300, nil)
	rep := m.Validate()
	assert.True(t, rep.IsValid())
	assert.Zero(t, rep.IssueCount())
	assert.Contains(t, rep.Info, "Audio: aac 48000Hz 2ch")

	plain, _ := openStream(t, 300, nil)
	rep = plain.Validate()
	assert.True(t, rep.IsValid())
	assert.Contains(t, rep.Info, "No audio stream found")
}
