package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/disintegration/imaging"

	"framecoach/internal/ai"
	"framecoach/internal/model"
	"framecoach/internal/quality"
)

var (
	ErrOriginalUnavailable = errors.New("original photo is not stored")
	ErrUnsupportedImage    = errors.New("image cannot be decoded")
	ErrNoRevisions         = errors.New("no revision could be produced")
)

// Local enhancement strengths, expressed the way imaging's Adjust* functions
// take them (percentages / sigma).
const (
	brightnessBoostPct = 10
	saturationBoostPct = 20
	sharpenSigma       = 1.0
)

type ImageEditor interface {
	EditImage(ctx context.Context, imageData []byte, imageMIMEType, instruction, systemInstruction string) (*ai.EditResult, error)
}

type EditStore interface {
	Create(edit *model.Edit) error
	ListByHash(contentHash string) ([]model.Edit, error)
	DeleteByHash(contentHash string) error
}

type RevisionStore interface {
	SaveRevision(contentHash, title string, data []byte) (string, error)
	Read(path string) ([]byte, error)
}

// EditService produces improved revisions of an analyzed photo: one
// generative edit driven by the critique text, plus deterministic local
// enhancement variants, each scored against the original.
type EditService struct {
	analyses AnalysisStore
	edits    EditStore
	editor   ImageEditor
	files    RevisionStore
}

type RevisionResult struct {
	Title       string         `json:"title"`
	OutputPath  string         `json:"output_path"`
	Description string         `json:"description,omitempty"`
	Metrics     quality.Report `json:"metrics"`
}

type EditPhotoResult struct {
	ContentHash string           `json:"content_hash"`
	Revisions   []RevisionResult `json:"revisions"`
}

func NewEditService(analyses AnalysisStore, edits EditStore, editor ImageEditor, files RevisionStore) *EditService {
	return &EditService{
		analyses: analyses,
		edits:    edits,
		editor:   editor,
		files:    files,
	}
}

// EditPhoto runs the full pipeline for a previously analyzed photo. A failed
// generative edit degrades to local variants only; a run that produces
// nothing at all is an error.
func (s *EditService) EditPhoto(ctx context.Context, contentHash string) (*EditPhotoResult, error) {
	if contentHash == "" {
		return nil, ErrInvalidInput
	}

	analysis, err := s.analyses.GetByHash(contentHash)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, ErrAnalysisNotFound
	}
	if analysis.ImagePath == "" {
		return nil, ErrOriginalUnavailable
	}

	data, err := s.files.Read(analysis.ImagePath)
	if err != nil {
		return nil, ErrOriginalUnavailable
	}
	original, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnsupportedImage
	}

	logger := log.WithField("content_hash", contentHash)

	var revisions []RevisionResult

	if s.editor != nil {
		revision, err := s.generativeRevision(ctx, analysis, data, original)
		if err != nil {
			logger.WithError(err).Warn("generative edit failed")
		} else {
			revisions = append(revisions, *revision)
		}
	}

	for _, variant := range []struct {
		title string
		apply func(image.Image) *image.NRGBA
	}{
		{"Brightness Boost", func(img image.Image) *image.NRGBA {
			return imaging.AdjustBrightness(img, brightnessBoostPct)
		}},
		{"Saturation Boost", func(img image.Image) *image.NRGBA {
			return imaging.AdjustSaturation(img, saturationBoostPct)
		}},
		{"Sharpened", func(img image.Image) *image.NRGBA {
			return imaging.Sharpen(img, sharpenSigma)
		}},
	} {
		revision, err := s.localRevision(contentHash, variant.title, original, variant.apply(original))
		if err != nil {
			logger.WithField("title", variant.title).WithError(err).Warn("local revision failed")
			continue
		}
		revisions = append(revisions, *revision)
	}

	if len(revisions) == 0 {
		return nil, ErrNoRevisions
	}

	if err := s.edits.DeleteByHash(contentHash); err != nil {
		logger.WithError(err).Warn("clear prior edits failed")
	}
	for _, revision := range revisions {
		metricsJSON, _ := json.Marshal(revision.Metrics)
		err := s.edits.Create(&model.Edit{
			ContentHash: contentHash,
			Title:       revision.Title,
			OutputPath:  revision.OutputPath,
			Description: revision.Description,
			MetricsJSON: string(metricsJSON),
			CreatedAt:   time.Now(),
		})
		if err != nil {
			logger.WithField("title", revision.Title).WithError(err).Warn("persist edit failed")
		}
	}

	return &EditPhotoResult{ContentHash: contentHash, Revisions: revisions}, nil
}

// EditHistory returns prior revisions for a hash with their stored metrics.
func (s *EditService) EditHistory(contentHash string) ([]RevisionResult, error) {
	if contentHash == "" {
		return nil, ErrInvalidInput
	}
	edits, err := s.edits.ListByHash(contentHash)
	if err != nil {
		return nil, err
	}

	results := make([]RevisionResult, 0, len(edits))
	for _, edit := range edits {
		result := RevisionResult{
			Title:       edit.Title,
			OutputPath:  edit.OutputPath,
			Description: edit.Description,
		}
		if edit.MetricsJSON != "" {
			_ = json.Unmarshal([]byte(edit.MetricsJSON), &result.Metrics)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *EditService) generativeRevision(
	ctx context.Context,
	analysis *model.Analysis,
	data []byte,
	original image.Image,
) (*RevisionResult, error) {
	edited, err := s.editor.EditImage(
		ctx,
		data,
		pathMIME(analysis.ImagePath),
		buildEditInstruction(analysis.Critique),
		editSystemPrompt,
	)
	if err != nil {
		return nil, err
	}

	editedImg, err := imaging.Decode(bytes.NewReader(edited.ImageData))
	if err != nil {
		return nil, ErrUnsupportedImage
	}

	return s.storeRevision(analysis.ContentHash, "AI Enhanced", edited.Text, original, editedImg)
}

func (s *EditService) localRevision(
	contentHash, title string,
	original image.Image,
	variant image.Image,
) (*RevisionResult, error) {
	return s.storeRevision(contentHash, title, "", original, variant)
}

func (s *EditService) storeRevision(
	contentHash, title, description string,
	original, revised image.Image,
) (*RevisionResult, error) {
	encoded, err := encodeJPEG(revised)
	if err != nil {
		return nil, err
	}
	path, err := s.files.SaveRevision(contentHash, title, encoded)
	if err != nil {
		return nil, err
	}

	return &RevisionResult{
		Title:       title,
		OutputPath:  path,
		Description: description,
		Metrics:     quality.Compare(original, revised),
	}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pathMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "image/jpeg"
	}
}
