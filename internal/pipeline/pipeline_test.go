package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/plate-redact/internal/detection"
	"github.com/ironsheep/plate-redact/internal/geometry"
	"github.com/ironsheep/plate-redact/internal/imaging"
	"github.com/ironsheep/plate-redact/internal/metrics"
	"github.com/ironsheep/plate-redact/internal/ocr"
	"github.com/ironsheep/plate-redact/internal/plate"
)

func grayPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 128}), image.Point{}, draw.Src)
	return encode(t, img)
}

func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return encode(t, img)
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// words returns a recognizer that reads the same words on every pass.
func words(dets ...plate.TextDetection) ocr.Recognizer {
	return ocr.RecognizerFunc(func(context.Context, image.Image) ([]plate.TextDetection, error) {
		return dets, nil
	})
}

func word(text string, b geometry.Box, conf float64) plate.TextDetection {
	return plate.TextDetection{Quad: plate.QuadOf(b), Text: text, Confidence: conf}
}

// fakeStage is a detector with canned output.
type fakeStage struct {
	name  plate.Source
	cands []plate.Candidate
	err   error
	panic bool
	calls int
}

func (f *fakeStage) Name() plate.Source { return f.name }

func (f *fakeStage) Detect(context.Context, *imaging.Source) ([]plate.Candidate, error) {
	f.calls++
	if f.panic {
		panic("fake stage exploded")
	}
	return f.cands, f.err
}

func hostedConfig() Config {
	return Config{Mode: ModeHosted, Enabled: true, ExpandRatio: -1}
}

func TestRedact_TextPlate(t *testing.T) {
	data := grayPNG(t, 640, 480)
	rec := words(word("AB1234", geometry.Box{X1: 260, Y1: 360, X2: 380, Y2: 390}, 0.9))
	m := metrics.New()

	p := New(DefaultConfig(), Deps{Recognizer: rec, Logger: zap.NewNop(), Metrics: m})
	out, rep := p.Redact(context.Background(), data, ".png")

	assert.Equal(t, plate.StatusBlurred, rep.Status)
	assert.Equal(t, 1, rep.Applied)
	assert.Equal(t, 1, rep.Found)
	assert.Equal(t, plate.SourceText, rep.Stage)
	assert.Equal(t, detection.PassOriginal, rep.OCRPass)
	assert.Equal(t, "strict", rep.Variant)
	assert.False(t, rep.Failsafe)
	assert.Equal(t, "png", rep.OutputFormat)
	assert.NotEmpty(t, rep.RequestID)
	require.Len(t, rep.Stages, 1)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(640, 480), decoded.Bounds().Size())

	n, err := testutil.GatherAndCount(m.Registry(), "plate_redact_stage_hits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedact_BadgeOnlyLegacyUsesFailsafe(t *testing.T) {
	data := grayPNG(t, 640, 480)
	rec := words(word("TOYOTA", geometry.Box{X1: 260, Y1: 200, X2: 380, Y2: 230}, 0.95))

	p := New(DefaultConfig(), Deps{Recognizer: rec, Logger: zap.NewNop()})
	out, rep := p.Redact(context.Background(), data, ".png")

	assert.Equal(t, plate.StatusBlurred, rep.Status)
	assert.Equal(t, 1, rep.Applied)
	assert.True(t, rep.Failsafe)
	assert.Equal(t, plate.SourceFailsafe, rep.Stage)
	assert.Zero(t, rep.Found)

	stages := make([]plate.Source, 0, len(rep.Stages))
	for _, s := range rep.Stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []plate.Source{
		plate.SourceText, plate.SourceEdge, plate.SourceColor, plate.SourceLocal, plate.SourceFailsafe,
	}, stages)
	assert.Contains(t, rep.Stages[3].Error, "unavailable")

	_, err := png.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestRedact_BadgeOnlyHostedLeavesInput(t *testing.T) {
	data := grayPNG(t, 640, 480)
	hosted := &fakeStage{name: plate.SourceHosted}
	core, logs := observer.New(zapcore.WarnLevel)

	p := New(hostedConfig(), Deps{
		Recognizer: words(word("TOYOTA", geometry.Box{X1: 260, Y1: 200, X2: 380, Y2: 230}, 0.95)),
		Hosted:     hosted,
		Logger:     zap.New(core),
	})
	out, rep := p.Redact(context.Background(), data, ".png")

	assert.Equal(t, plate.StatusNoPlates, rep.Status)
	assert.Zero(t, rep.Applied)
	assert.True(t, rep.PolicyGap)
	assert.False(t, rep.Failsafe)
	assert.Equal(t, data, out)
	assert.Equal(t, 1, hosted.calls)
	assert.Equal(t, 1, logs.Len())
}

func TestRedact_HostedFailsafeOption(t *testing.T) {
	cfg := hostedConfig()
	cfg.HostedFailsafe = true
	p := New(cfg, Deps{Hosted: &fakeStage{name: plate.SourceHosted}, Logger: zap.NewNop()})

	_, rep := p.Redact(context.Background(), grayPNG(t, 200, 100), ".png")
	assert.Equal(t, plate.StatusBlurred, rep.Status)
	assert.True(t, rep.Failsafe)
	assert.False(t, rep.PolicyGap)
}

func TestRedact_HostedPlate(t *testing.T) {
	hosted := &fakeStage{name: plate.SourceHosted, cands: []plate.Candidate{
		{Box: geometry.Box{X1: 100, Y1: 300, X2: 220, Y2: 340}, Confidence: 0.8, HasConfidence: true, Source: plate.SourceHosted},
	}}
	p := New(hostedConfig(), Deps{Hosted: hosted, Logger: zap.NewNop()})

	out, rep := p.Redact(context.Background(), grayPNG(t, 640, 480), "jpg")
	assert.Equal(t, plate.StatusBlurred, rep.Status)
	assert.Equal(t, plate.SourceHosted, rep.Stage)
	assert.Equal(t, "jpeg", rep.OutputFormat)
	assert.Equal(t, []byte{0xFF, 0xD8}, out[:2])
}

func TestRedact_MalformedInput(t *testing.T) {
	data := []byte("definitely not an image")
	p := New(DefaultConfig(), Deps{Logger: zap.NewNop()})

	out, rep := p.Redact(context.Background(), data, ".jpg")
	assert.Equal(t, plate.StatusDecodeFailed, rep.Status)
	assert.Equal(t, data, out)
	assert.Zero(t, rep.Applied)
	assert.NotEmpty(t, rep.Error)
}

func TestRedact_NoiseAlwaysRedactedByLegacy(t *testing.T) {
	p := New(DefaultConfig(), Deps{Logger: zap.NewNop()})
	for _, size := range []image.Point{{320, 240}, {64, 64}, {7, 5}} {
		_, rep := p.Redact(context.Background(), noisePNG(t, size.X, size.Y), ".png")
		assert.Equal(t, plate.StatusBlurred, rep.Status, "size %v", size)
		assert.GreaterOrEqual(t, rep.Applied, 1, "size %v", size)
	}
}

func TestRedact_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	data := grayPNG(t, 32, 32)

	out, rep := New(cfg, Deps{Logger: zap.NewNop()}).Redact(context.Background(), data, ".png")
	assert.Equal(t, plate.StatusNoPlates, rep.Status)
	assert.True(t, rep.Disabled)
	assert.Equal(t, data, out)
}

func TestRedact_HostedRequestError(t *testing.T) {
	hosted := &fakeStage{name: plate.SourceHosted, err: &detection.RequestError{StatusCode: 401, Message: "api_key=*** rejected"}}
	data := grayPNG(t, 64, 48)

	out, rep := New(hostedConfig(), Deps{Hosted: hosted, Logger: zap.NewNop()}).Redact(context.Background(), data, ".png")
	assert.Equal(t, plate.StatusDetectFailed, rep.Status)
	assert.Contains(t, rep.Error, "HTTP 401")
	assert.Equal(t, data, out)
}

func TestRedact_NoValidROIs(t *testing.T) {
	hosted := &fakeStage{name: plate.SourceHosted, cands: []plate.Candidate{
		{Box: geometry.Box{X1: 10, Y1: 10, X2: 13, Y2: 13}, Source: plate.SourceHosted},
	}}
	data := grayPNG(t, 64, 48)

	out, rep := New(hostedConfig(), Deps{Hosted: hosted, Logger: zap.NewNop()}).Redact(context.Background(), data, ".png")
	assert.Equal(t, plate.StatusNoValidROIs, rep.Status)
	assert.Equal(t, 1, rep.Found)
	assert.Zero(t, rep.Applied)
	assert.True(t, rep.PolicyGap)
	assert.Equal(t, data, out)
}

func TestRedact_AllStagesUnavailable(t *testing.T) {
	p := New(DefaultConfig(), Deps{Logger: zap.NewNop()})
	opts := p.DefaultOptions()
	opts.Stages = []plate.Source{plate.SourceText, plate.SourceLocal}
	opts.Failsafe = false

	data := grayPNG(t, 64, 48)
	out, rep := p.RedactWith(context.Background(), data, ".png", opts)
	assert.Equal(t, plate.StatusOpenCVMissing, rep.Status)
	assert.Len(t, rep.Stages, 2)
	assert.Equal(t, data, out)

	_, rep = New(hostedConfig(), Deps{Logger: zap.NewNop()}).Redact(context.Background(), data, ".png")
	assert.Equal(t, plate.StatusOpenCVMissing, rep.Status)
}

func TestRedact_StagePanicIsContained(t *testing.T) {
	broken := &fakeStage{name: plate.SourceHosted, panic: true}

	_, rep := New(DefaultConfig(), Deps{Hosted: broken, Logger: zap.NewNop()}).
		Redact(context.Background(), grayPNG(t, 64, 48), ".png")
	assert.Equal(t, plate.StatusBlurred, rep.Status, "failsafe still runs")
	assert.True(t, rep.Failsafe)

	data := grayPNG(t, 64, 48)
	out, rep := New(hostedConfig(), Deps{Hosted: broken, Logger: zap.NewNop()}).
		Redact(context.Background(), data, ".png")
	assert.Equal(t, plate.StatusError, rep.Status)
	assert.Contains(t, rep.Error, "panicked")
	assert.Equal(t, data, out)
}

func TestRedact_StopsAtFirstApplyingStage(t *testing.T) {
	hosted := &fakeStage{name: plate.SourceHosted}
	rec := words(word("AB1234", geometry.Box{X1: 260, Y1: 360, X2: 380, Y2: 390}, 0.9))

	_, rep := New(DefaultConfig(), Deps{Recognizer: rec, Hosted: hosted, Logger: zap.NewNop()}).
		Redact(context.Background(), grayPNG(t, 640, 480), ".png")
	assert.Equal(t, plate.SourceText, rep.Stage)
	assert.Zero(t, hosted.calls)
}

func TestRedact_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := grayPNG(t, 64, 48)

	out, rep := New(DefaultConfig(), Deps{Logger: zap.NewNop()}).Redact(ctx, data, ".png")
	assert.Equal(t, plate.StatusError, rep.Status)
	assert.Equal(t, data, out)
}

func TestRedact_Metrics(t *testing.T) {
	m := metrics.New()
	p := New(DefaultConfig(), Deps{Logger: zap.NewNop(), Metrics: m})

	p.Redact(context.Background(), grayPNG(t, 64, 48), ".png")
	p.Redact(context.Background(), []byte("junk"), ".png")

	n, err := testutil.GatherAndCount(m.Registry(), "plate_redact_results_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRenderOptions(t *testing.T) {
	legacy := New(DefaultConfig(), Deps{Logger: zap.NewNop()})
	assert.InDelta(t, 0.12, legacy.renderOptions(legacy.DefaultOptions()).ExpandRatio, 1e-9)

	hosted := New(hostedConfig(), Deps{Logger: zap.NewNop()})
	assert.Zero(t, hosted.renderOptions(hosted.DefaultOptions()).ExpandRatio)

	cfg := hostedConfig()
	cfg.ExpandRatio = 0.05
	tuned := New(cfg, Deps{Logger: zap.NewNop()})
	assert.InDelta(t, 0.05, tuned.renderOptions(tuned.DefaultOptions()).ExpandRatio, 1e-9)

	opts := tuned.DefaultOptions()
	opts.ExpandRatio = 0.3
	assert.InDelta(t, 0.3, tuned.renderOptions(opts).ExpandRatio, 1e-9)
}
