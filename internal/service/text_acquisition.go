package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exampilot-api/internal/observability"
	"github.com/noah-isme/exampilot-api/pkg/ai"
	"github.com/noah-isme/exampilot-api/pkg/document"
)

// textStrategy produces text for the documents it applies to.
type textStrategy interface {
	name() string
	applies(doc *documentSource) bool
	acquire(ctx context.Context, doc *documentSource) (string, error)
	// cacheable strategies spend an OCR call and may be served from the cache.
	cacheable() bool
}

type passthroughStrategy struct{}

func (passthroughStrategy) name() string { return "passthrough" }

func (passthroughStrategy) applies(doc *documentSource) bool {
	return strings.TrimSpace(doc.Text) != ""
}

func (passthroughStrategy) acquire(_ context.Context, doc *documentSource) (string, error) {
	return doc.Text, nil
}

func (passthroughStrategy) cacheable() bool { return false }

type pageImageOCRStrategy struct {
	extractor ai.TextExtractor
}

func (pageImageOCRStrategy) name() string { return "page_image_ocr" }

func (pageImageOCRStrategy) applies(doc *documentSource) bool {
	return len(doc.Images) > 0
}

func (s pageImageOCRStrategy) acquire(ctx context.Context, doc *documentSource) (string, error) {
	return s.extractor.ExtractText(ctx, ai.OCRRequest{Instruction: doc.Role.ocrInstruction(), Images: doc.Images})
}

func (pageImageOCRStrategy) cacheable() bool { return true }

type rawImageOCRStrategy struct {
	extractor ai.TextExtractor
}

func (rawImageOCRStrategy) name() string { return "raw_image_ocr" }

func (rawImageOCRStrategy) applies(doc *documentSource) bool {
	return len(doc.Raw) > 0 && !document.IsPDF(doc.MIME)
}

func (s rawImageOCRStrategy) acquire(ctx context.Context, doc *documentSource) (string, error) {
	return s.extractor.ExtractText(ctx, ai.OCRRequest{
		Instruction: doc.Role.ocrInstruction(),
		Images:      []string{document.DataURI(doc.MIME, doc.Raw)},
	})
}

func (rawImageOCRStrategy) cacheable() bool { return true }

// pdfTextLayerStrategy reads the embedded text layer of typed PDFs without calling the model.
type pdfTextLayerStrategy struct{}

func (pdfTextLayerStrategy) name() string { return "pdf_text_layer" }

func (pdfTextLayerStrategy) applies(doc *documentSource) bool {
	return len(doc.Raw) > 0 && document.IsPDF(doc.MIME)
}

func (pdfTextLayerStrategy) acquire(_ context.Context, doc *documentSource) (string, error) {
	text, err := document.PDFText(doc.Raw)
	if errors.Is(err, document.ErrNoTextLayer) {
		return "", fmt.Errorf("%w: %v", ErrPDFRequiresRendering, err)
	}
	return text, err
}

func (pdfTextLayerStrategy) cacheable() bool { return false }

// pdfRejectStrategy terminates acquisition for raw PDFs; they are never sent to OCR.
type pdfRejectStrategy struct{}

func (pdfRejectStrategy) name() string { return "pdf_reject" }

func (pdfRejectStrategy) applies(doc *documentSource) bool {
	return len(doc.Raw) > 0 && document.IsPDF(doc.MIME)
}

func (pdfRejectStrategy) acquire(context.Context, *documentSource) (string, error) {
	return "", ErrPDFRequiresRendering
}

func (pdfRejectStrategy) cacheable() bool { return false }

// textAcquirer runs the first applicable strategy of its priority list.
type textAcquirer struct {
	strategies []textStrategy
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

func newTextAcquirer(extractor ai.TextExtractor, cache *redis.Client, cfg PipelineConfig, logger zerolog.Logger) *textAcquirer {
	strategies := []textStrategy{
		passthroughStrategy{},
		pageImageOCRStrategy{extractor: extractor},
		rawImageOCRStrategy{extractor: extractor},
	}
	if cfg.PDFTextLayer {
		strategies = append(strategies, pdfTextLayerStrategy{})
	}
	strategies = append(strategies, pdfRejectStrategy{})

	return &textAcquirer{
		strategies: strategies,
		cache:      cache,
		cacheTTL:   cfg.OCRCacheTTL,
		logger:     logger.With().Str("component", "text_acquisition").Logger(),
	}
}

// Acquire returns the text for doc together with the strategy that produced it.
func (a *textAcquirer) Acquire(ctx context.Context, doc *documentSource) (string, string, error) {
	for _, strategy := range a.strategies {
		if !strategy.applies(doc) {
			continue
		}

		logger := a.logger.With().
			Str("submission_id", doc.SubmissionID).
			Str("role", string(doc.Role)).
			Str("strategy", strategy.name()).
			Logger()

		cacheKey := ""
		if strategy.cacheable() && a.cacheEnabled() {
			cacheKey = ocrCacheKey(doc)
			if cached, ok := a.lookup(ctx, cacheKey, logger); ok {
				return cached, strategy.name(), nil
			}
		}

		text, err := strategy.acquire(ctx, doc)
		if err != nil {
			logger.Warn().Err(err).Msg("text acquisition failed")
			return "", strategy.name(), err
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn().Msg("text acquisition returned no text")
			return "", strategy.name(), ErrEmptyExtraction
		}

		observability.TextAcquisitions().WithLabelValues(string(doc.Role), strategy.name()).Inc()
		logger.Info().Int("characters", len(text)).Msg("text acquired")

		if cacheKey != "" {
			a.store(ctx, cacheKey, text, logger)
		}
		return text, strategy.name(), nil
	}

	return "", "", ErrNoAcquisitionStrategy
}

func (a *textAcquirer) cacheEnabled() bool {
	return a.cache != nil && a.cacheTTL > 0
}

func (a *textAcquirer) lookup(ctx context.Context, key string, logger zerolog.Logger) (string, bool) {
	cached, err := a.cache.Get(ctx, key).Result()
	switch {
	case err == nil && strings.TrimSpace(cached) != "":
		observability.OCRCache().WithLabelValues("hit").Inc()
		logger.Debug().Msg("ocr cache hit")
		return cached, true
	case err != nil && !errors.Is(err, redis.Nil):
		logger.Warn().Err(err).Msg("failed to read ocr cache")
	}
	observability.OCRCache().WithLabelValues("miss").Inc()
	return "", false
}

func (a *textAcquirer) store(ctx context.Context, key, text string, logger zerolog.Logger) {
	if err := a.cache.Set(ctx, key, text, a.cacheTTL).Err(); err != nil {
		logger.Warn().Err(err).Msg("failed to store ocr cache")
	}
}

// ocrCacheKey scopes cached text to the submission, the document role and the exact input content.
func ocrCacheKey(doc *documentSource) string {
	hash := sha256.New()
	if len(doc.Raw) > 0 {
		hash.Write(doc.Raw)
	}
	for _, image := range doc.Images {
		hash.Write([]byte(image))
		hash.Write([]byte{0})
	}
	return fmt.Sprintf("exampilot:ocr:%s:%s:%s", doc.SubmissionID, doc.Role, hex.EncodeToString(hash.Sum(nil)))
}
