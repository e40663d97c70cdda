package gate

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func goodCaption() string {
	tags := make([]string, 14)
	for i := range tags {
		tags[i] = fmt.Sprintf("#강아지간식%d", i)
	}
	return `🟢 블루베리, 강아지에게 안전해요!

"하루 몇 알이면 충분한 건강 간식"

• 항산화 성분이 풍부해요
• 저칼로리 간식으로 좋아요
• 깨끗이 씻어서 급여하세요

소형견: 5알 / 중형견: 10알 / 대형견: 15알

저장해두고 필요할 때 꺼내보세요!
※ 이 콘텐츠는 AI 생성 이미지를 포함합니다.

` + strings.Join(tags, " ")
}

func buildItem(t *testing.T, slides int, badSlide int) models.ReviewItem {
	t.Helper()
	dir := t.TempDir()
	item := models.ReviewItem{
		Topic:     "blueberry",
		Tier:      models.TierSafe,
		ImagesDir: dir,
		Captions:  map[models.Platform]string{models.PlatformInstagram: goodCaption()},
	}
	for i := 0; i < slides; i++ {
		path := filepath.Join(dir, fmt.Sprintf("blueberry_%02d_content.png", i+1))
		w := 1080
		if i == badSlide {
			w = 1079
		}
		writePNG(t, path, w, 1080)
		item.Slides = append(item.Slides, models.Slide{Index: i, Path: path, Category: "content"})
	}
	return item
}

func TestTechnicalReviewer_AllPass(t *testing.T) {
	r, err := NewTechnicalReviewer(DefaultTechConfig())
	require.NoError(t, err)

	v := r.Review(buildItem(t, 7, -1))

	assert.Equal(t, models.PhaseTechnical, v.Phase)
	assert.Equal(t, 100.0, v.Score)
	assert.Equal(t, models.VerdictPass, v.Verdict)
	assert.Equal(t, "A+", v.Grade)
	assert.Empty(t, v.Feedback)
	assert.Empty(t, v.ProblemSlides)
	// file count + 3 per slide + 8 caption points
	assert.Len(t, v.Checks, 1+7*3+8)
}

func TestTechnicalReviewer_SkippedTextPositionCarriesNoPoints(t *testing.T) {
	r, err := NewTechnicalReviewer(DefaultTechConfig())
	require.NoError(t, err)

	v := r.Review(buildItem(t, 7, -1))

	max := 0
	for _, c := range v.Checks {
		max += c.MaxScore
	}
	// file count + resolution and naming per slide + 8 caption points
	assert.Equal(t, 1+7*2+8, max)
}

func TestTechnicalReviewer_OnePixelOff(t *testing.T) {
	r, err := NewTechnicalReviewer(DefaultTechConfig())
	require.NoError(t, err)

	v := r.Review(buildItem(t, 7, 2))

	assert.InDelta(t, 22.0/23.0*100, v.Score, 0.001)
	assert.Equal(t, models.VerdictFail, v.Verdict, "resolution is zero tolerance")
	assert.Equal(t, []int{2}, v.ProblemSlides)
	assert.Contains(t, v.Feedback, "ResolutionMismatch")
}

func TestTechnicalReviewer_ForbiddenWithoutProhibitionFails(t *testing.T) {
	r, err := NewTechnicalReviewer(DefaultTechConfig())
	require.NoError(t, err)

	item := buildItem(t, 7, -1)
	item.Tier = models.TierForbidden
	v := r.Review(item)

	assert.Greater(t, v.Score, 90.0)
	assert.Equal(t, models.VerdictFail, v.Verdict)
	assert.False(t, v.Verdict.MayProceed())
	assert.Contains(t, v.Feedback, "절대 금지")
}

func TestTechnicalReviewer_NonMandatoryFailureKeepsBands(t *testing.T) {
	cfg := DefaultTechConfig()
	cfg.Mandatory = nil
	r, err := NewTechnicalReviewer(cfg)
	require.NoError(t, err)

	v := r.Review(buildItem(t, 7, 2))

	assert.Equal(t, models.VerdictPass, v.Verdict)
}

func TestTechnicalReviewer_MissingCaptionFails(t *testing.T) {
	r, err := NewTechnicalReviewer(DefaultTechConfig())
	require.NoError(t, err)

	item := buildItem(t, 7, -1)
	item.Captions = nil
	v := r.Review(item)

	// 15 of 23 points: every caption sub-check fails.
	assert.InDelta(t, 15.0/23.0*100, v.Score, 0.001)
	assert.Equal(t, models.VerdictFail, v.Verdict)
	assert.Empty(t, v.ProblemSlides, "caption failures are not slide-level")
	assert.Equal(t, 8, strings.Count(v.Feedback, "[instagram]"))
}

func TestTechnicalReviewer_MissingFiles(t *testing.T) {
	r, err := NewTechnicalReviewer(DefaultTechConfig())
	require.NoError(t, err)

	item := buildItem(t, 7, -1)
	for _, s := range item.Slides[:2] {
		require.NoError(t, os.Remove(s.Path))
	}
	v := r.Review(item)

	assert.Equal(t, []int{0, 1}, v.ProblemSlides)
	assert.Contains(t, v.Feedback, "FileNotFound")
}

func TestNewTechnicalReviewer_InvalidConfig(t *testing.T) {
	cfg := DefaultTechConfig()
	cfg.NamingPattern = "(["
	_, err := NewTechnicalReviewer(cfg)
	assert.Error(t, err)

	cfg = DefaultTechConfig()
	cfg.MinSlides = 20
	_, err = NewTechnicalReviewer(cfg)
	assert.Error(t, err)
}
