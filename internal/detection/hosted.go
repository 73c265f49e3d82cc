package detection

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/plate-redact/internal/geometry"
	rimaging "github.com/ironsheep/plate-redact/internal/imaging"
	"github.com/ironsheep/plate-redact/internal/plate"
)

// DefaultHostedURL is the public inference endpoint the hosted client talks to.
const DefaultHostedURL = "https://detect.roboflow.com"

// HostedConfig holds the hosted-service endpoint and credentials.
type HostedConfig struct {
	APIURL  string
	APIKey  string
	Project string
	Version string

	// Confidence and Overlap are fractions in [0,1].
	Confidence float64
	Overlap    float64

	Timeout time.Duration
}

// Configured reports whether the credentials and model identifiers are set.
func (c HostedConfig) Configured() bool {
	return c.APIKey != "" && c.Project != "" && c.Version != ""
}

// RequestError is a hosted-detection failure. Its message never contains the
// API key.
type RequestError struct {
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("hosted detection failed: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return "hosted detection failed: " + e.Message
}

// IsRequestError reports whether err is, or wraps, a *RequestError.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

var apiKeyParam = regexp.MustCompile(`(?i)(api_key=)[^&\s"']+`)

// RedactSecret removes the api_key query value and any literal occurrence of
// key from s.
func RedactSecret(s, key string) string {
	s = apiKeyParam.ReplaceAllString(s, "${1}***")
	if key != "" {
		s = strings.ReplaceAll(s, key, "***")
	}
	return s
}

// hostedResponse is the JSON body the service answers with.
type hostedResponse struct {
	Predictions []hostedPrediction `json:"predictions"`
	Image       struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"image"`
}

type hostedPrediction struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class"`
}

// HostedDetector calls a remote object-detection service. The resty client
// is created once and shared by every call.
type HostedDetector struct {
	cfg    HostedConfig
	client *resty.Client
	log    *zap.Logger
}

// NewHostedDetector builds the client with the configured timeout. Retries
// stay disabled: a failed call is reported, never repeated.
func NewHostedDetector(cfg HostedConfig, log *zap.Logger) *HostedDetector {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultHostedURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "plate-redact")
	return &HostedDetector{cfg: cfg, client: client, log: orDefault(log)}
}

// Name implements Detector.
func (d *HostedDetector) Name() plate.Source { return plate.SourceHosted }

// Detect uploads the upright image and converts each center/size prediction
// into a clamped pixel box.
//
// src.Image has already been rotated according to its EXIF orientation, so
// the service sees the pixels as displayed and its boxes line up with them.
func (d *HostedDetector) Detect(ctx context.Context, src *rimaging.Source) ([]plate.Candidate, error) {
	if !d.cfg.Configured() {
		return nil, &RequestError{Message: "hosted detection is not configured"}
	}

	body, _, err := rimaging.Encode(src.Image, imaging.JPEG)
	if err != nil {
		return nil, err
	}

	var out hostedResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":    d.cfg.APIKey,
			"confidence": percent(d.cfg.Confidence),
			"overlap":    percent(d.cfg.Overlap),
		}).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(base64.StdEncoding.EncodeToString(body)).
		SetResult(&out).
		Post(d.endpoint())
	if err != nil {
		rerr := &RequestError{Message: RedactSecret(err.Error(), d.cfg.APIKey)}
		d.log.Warn("hosted detection request failed", zap.Error(rerr))
		return nil, rerr
	}
	if resp.IsError() {
		rerr := &RequestError{
			StatusCode: resp.StatusCode(),
			Message:    RedactSecret(truncate(resp.String(), 200), d.cfg.APIKey),
		}
		d.log.Warn("hosted detection rejected", zap.Error(rerr))
		return nil, rerr
	}

	return d.convert(out, src.Width, src.Height), nil
}

func (d *HostedDetector) endpoint() string {
	return strings.TrimRight(d.cfg.APIURL, "/") + "/" + d.cfg.Project + "/" + d.cfg.Version
}

// convert maps predictions to candidates. When the service reports the size
// of the image it analyzed, coordinates are rescaled to the source size.
func (d *HostedDetector) convert(resp hostedResponse, w, h int) []plate.Candidate {
	sx, sy := 1.0, 1.0
	if resp.Image.Width > 0 && resp.Image.Height > 0 {
		sx = float64(w) / resp.Image.Width
		sy = float64(h) / resp.Image.Height
	}

	out := make([]plate.Candidate, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		box := geometry.FromCenter(p.X*sx, p.Y*sy, p.Width*sx, p.Height*sy).Clamp(w, h)
		if box.Empty() {
			continue
		}
		out = append(out, plate.Candidate{
			Box:           box,
			Confidence:    p.Confidence,
			HasConfidence: true,
			Source:        plate.SourceHosted,
			Label:         p.Class,
		})
	}
	d.log.Debug("hosted predictions", zap.Int("predictions", len(resp.Predictions)), zap.Int("kept", len(out)))
	return out
}

// percent renders a [0,1] fraction as the integer percentage the service
// expects.
func percent(f float64) string {
	return strconv.Itoa(int(math.Round(f * 100)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
