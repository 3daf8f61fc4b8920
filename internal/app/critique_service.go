package app

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math/bits"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"framecoach/internal/ai"
	"framecoach/internal/cache"
	"framecoach/internal/exif"
	"framecoach/internal/model"
)

var (
	ErrEmptyUpload      = errors.New("upload is empty")
	ErrUploadTooLarge   = errors.New("upload exceeds size limit")
	ErrEmptyCritique    = errors.New("model returned an empty critique")
	ErrLLMConfig        = errors.New("llm config is invalid")
	ErrAnalysisEnqueue  = errors.New("analysis enqueue failed")
	ErrAnalysisNotFound = errors.New("analysis not found")
)

// perceptualDistanceMax is the highest difference-hash Hamming distance at
// which two photos are still treated as the same image.
const perceptualDistanceMax = 10

type AnalysisPublisher interface {
	Publish(ctx context.Context, analysis model.Analysis) error
}

type AnalysisStore interface {
	GetByHash(contentHash string) (*model.Analysis, error)
	ListByRequester(requesterKey string, limit int) ([]model.Analysis, error)
	ListRecentHashed(limit int) ([]model.Analysis, error)
	DeleteByIDAndRequester(id uint, requesterKey string) (bool, error)
}

type CritiqueHotCache interface {
	Get(ctx context.Context, contentHash string) (*cache.CachedCritique, bool, error)
	Set(ctx context.Context, entry cache.CachedCritique) error
	Delete(ctx context.Context, contentHash string) error
}

type VisionLLM interface {
	StreamComplete(
		ctx context.Context,
		cfg ai.GenerateConfig,
		systemPrompt, userPrompt string,
		images []ai.ImagePart,
		onChunk func(chunk string) error,
	) (string, error)
}

type OriginalSaver interface {
	SaveOriginal(contentHash, ext string, data []byte) (string, error)
}

type CritiqueService struct {
	analyses  AnalysisStore
	publisher AnalysisPublisher
	hotCache  CritiqueHotCache
	llm       VisionLLM
	files     OriginalSaver
	llmCfg    ai.GenerateConfig
	maxBytes  int64
}

type AnalyzePhotoInput struct {
	RequesterKey string
	Filename     string
	MIMEType     string
	Data         []byte
}

// AnalyzeResult is what the handler relays. Cached results carry the full
// critique at once; fresh ones were already streamed through onChunk.
type AnalyzeResult struct {
	ContentHash string            `json:"content_hash"`
	Critique    string            `json:"critique"`
	Cached      bool              `json:"cached"`
	Exif        map[string]string `json:"exif,omitempty"`
}

func NewCritiqueService(
	analyses AnalysisStore,
	publisher AnalysisPublisher,
	hotCache CritiqueHotCache,
	llm VisionLLM,
	files OriginalSaver,
	llmCfg ai.GenerateConfig,
	maxBytes int64,
) *CritiqueService {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &CritiqueService{
		analyses:  analyses,
		publisher: publisher,
		hotCache:  hotCache,
		llm:       llm,
		files:     files,
		llmCfg:    llmCfg,
		maxBytes:  maxBytes,
	}
}

// ContentHash is the cache key and dedup identity for an upload.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AnalyzePhoto runs the full critique flow: hash, cache lookup, perceptual
// fallback, EXIF extraction, streamed LLM call, async persist. onChunk
// receives critique text as it arrives from the model; it is not called for
// cache hits.
func (s *CritiqueService) AnalyzePhoto(
	ctx context.Context,
	input AnalyzePhotoInput,
	onChunk func(chunk string) error,
) (*AnalyzeResult, error) {
	if input.RequesterKey == "" {
		return nil, ErrInvalidInput
	}
	if len(input.Data) == 0 {
		return nil, ErrEmptyUpload
	}
	if int64(len(input.Data)) > s.maxBytes {
		return nil, ErrUploadTooLarge
	}
	if s.llmCfg.BaseURL == "" || s.llmCfg.APIKey == "" || s.llmCfg.Model == "" {
		return nil, ErrLLMConfig
	}

	contentHash := ContentHash(input.Data)
	logger := log.WithField("content_hash", contentHash)

	// Hot cache first, then the durable table. Cache failures only cost us
	// the shortcut.
	if s.hotCache != nil {
		if cached, hit, err := s.hotCache.Get(ctx, contentHash); err != nil {
			logger.WithError(err).Warn("critique cache lookup failed")
		} else if hit {
			return &AnalyzeResult{
				ContentHash: contentHash,
				Critique:    cached.Critique,
				Cached:      true,
				Exif:        decodeExifJSON(cached.ExifJSON),
			}, nil
		}
	}

	if prior, err := s.analyses.GetByHash(contentHash); err != nil {
		return nil, err
	} else if prior != nil {
		s.fillHotCache(ctx, *prior)
		return &AnalyzeResult{
			ContentHash: contentHash,
			Critique:    prior.Critique,
			Cached:      true,
			Exif:        prior.ExifFields(),
		}, nil
	}

	perceptualHash := ""
	if img, err := imaging.Decode(bytes.NewReader(input.Data)); err == nil {
		perceptualHash = differenceHashHex(img)
		if prior := s.findPerceptualMatch(perceptualHash); prior != nil {
			logger.WithField("matched_hash", prior.ContentHash).Info("perceptual duplicate")
			return &AnalyzeResult{
				ContentHash: contentHash,
				Critique:    prior.Critique,
				Cached:      true,
				Exif:        prior.ExifFields(),
			}, nil
		}
	} else {
		logger.WithError(err).Warn("decode for perceptual hash failed")
	}

	exifData := exif.Extract(input.Data)

	imagePath := ""
	if s.files != nil {
		path, err := s.files.SaveOriginal(contentHash, mimeExt(input.MIMEType), input.Data)
		if err != nil {
			// The critique can still run; only the edit pipeline needs the
			// stored original.
			logger.WithError(err).Warn("store original failed")
		} else {
			imagePath = path
		}
	}

	critique, err := s.llm.StreamComplete(
		ctx,
		s.llmCfg,
		critiqueSystemPrompt,
		buildCritiqueUserPrompt(exifData.PromptContext()),
		[]ai.ImagePart{{MIMEType: input.MIMEType, Data: input.Data}},
		onChunk,
	)
	if err != nil {
		return nil, err
	}
	critique = strings.TrimSpace(critique)
	if critique == "" {
		return nil, ErrEmptyCritique
	}

	analysis := model.Analysis{
		RequesterKey:   input.RequesterKey,
		Filename:       strings.TrimSpace(input.Filename),
		ContentHash:    contentHash,
		PerceptualHash: perceptualHash,
		Critique:       critique,
		ImagePath:      imagePath,
		CreatedAt:      time.Now(),
	}
	analysis.SetExifFields(exifData.Flatten())

	if s.publisher == nil {
		return nil, ErrAnalysisEnqueue
	}
	if err := s.publisher.Publish(ctx, analysis); err != nil {
		logger.WithError(err).Error("publish analysis failed")
		return nil, ErrAnalysisEnqueue
	}

	s.fillHotCache(ctx, analysis)

	return &AnalyzeResult{
		ContentHash: contentHash,
		Critique:    critique,
		Cached:      false,
		Exif:        exifData.Flatten(),
	}, nil
}

func (s *CritiqueService) History(requesterKey string, limit int) ([]model.Analysis, error) {
	if requesterKey == "" {
		return nil, ErrInvalidInput
	}
	return s.analyses.ListByRequester(requesterKey, limit)
}

func (s *CritiqueService) GetByHash(contentHash string) (*model.Analysis, error) {
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
	return analysis, nil
}

func (s *CritiqueService) Delete(requesterKey string, id uint) error {
	if requesterKey == "" || id == 0 {
		return ErrInvalidInput
	}
	deleted, err := s.analyses.DeleteByIDAndRequester(id, requesterKey)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAnalysisNotFound
	}
	return nil
}

func (s *CritiqueService) fillHotCache(ctx context.Context, analysis model.Analysis) {
	if s.hotCache == nil {
		return
	}
	err := s.hotCache.Set(ctx, cache.CachedCritique{
		ContentHash: analysis.ContentHash,
		Filename:    analysis.Filename,
		Critique:    analysis.Critique,
		ExifJSON:    analysis.ExifJSON,
	})
	if err != nil {
		log.WithField("content_hash", analysis.ContentHash).WithError(err).Warn("fill critique cache failed")
	}
}

// findPerceptualMatch scans recent analyses for a difference hash within
// perceptualDistanceMax. Any failure means no match; exact hashing already
// missed, so this is purely best effort.
func (s *CritiqueService) findPerceptualMatch(perceptualHash string) *model.Analysis {
	if perceptualHash == "" {
		return nil
	}
	target, err := strconv.ParseUint(perceptualHash, 16, 64)
	if err != nil {
		return nil
	}

	recent, err := s.analyses.ListRecentHashed(0)
	if err != nil {
		log.WithError(err).Warn("perceptual scan failed")
		return nil
	}
	for i := range recent {
		candidate, err := strconv.ParseUint(recent[i].PerceptualHash, 16, 64)
		if err != nil {
			continue
		}
		if bits.OnesCount64(target^candidate) < perceptualDistanceMax {
			return &recent[i]
		}
	}
	return nil
}

// differenceHashHex renders the 64-bit difference hash as hex for storage.
func differenceHashHex(img image.Image) string {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", hash.GetHash())
}

func decodeExifJSON(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil
	}
	return fields
}

func mimeExt(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/tiff":
		return ".tif"
	default:
		return ".jpg"
	}
}
