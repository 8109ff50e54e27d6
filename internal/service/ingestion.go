package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/exampilot-api/pkg/ai"
	"github.com/noah-isme/exampilot-api/pkg/document"
	"github.com/noah-isme/exampilot-api/pkg/storage"
)

type documentRole string

const (
	roleAnswerSheet documentRole = "answer_sheet"
	roleAnswerKey   documentRole = "answer_key"
)

func (r documentRole) bucket() string {
	if r == roleAnswerKey {
		return storage.BucketAnswerKeys
	}
	return storage.BucketAnswerSheets
}

func (r documentRole) ocrInstruction() string {
	if r == roleAnswerKey {
		return ai.AnswerKeyOCRInstruction
	}
	return ai.AnswerSheetOCRInstruction
}

// documentSource is the resolved input for one document. Exactly one of Text, Images or Raw is set.
type documentSource struct {
	SubmissionID string
	Role         documentRole
	Path         string
	Text         string
	Images       []string
	Raw          []byte
	MIME         string
}

// resolveDocument picks caller text, then caller page images, then the stored file.
// An empty path with no caller content yields a nil source.
func (s *answerSheetEvaluationService) resolveDocument(ctx context.Context, submissionID string, role documentRole, text string, images []string, path string) (*documentSource, error) {
	source := &documentSource{SubmissionID: submissionID, Role: role, Path: path}

	if strings.TrimSpace(text) != "" {
		source.Text = text
		return source, nil
	}

	if pages := capPages(images, s.config.MaxPageImages); len(pages) > 0 {
		source.Images = pages
		return source, nil
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	data, err := s.storage.Download(ctx, role.bucket(), storage.NormalizeKey(role.bucket(), path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAnswerSheetUnavailable, role, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrAnswerSheetUnavailable, role)
	}

	source.Raw = data
	source.MIME = document.MIMEForPath(path, data)
	return source, nil
}

func capPages(images []string, limit int) []string {
	pages := make([]string, 0, len(images))
	for _, image := range images {
		if strings.TrimSpace(image) == "" {
			continue
		}
		pages = append(pages, image)
		if limit > 0 && len(pages) == limit {
			break
		}
	}
	return pages
}
