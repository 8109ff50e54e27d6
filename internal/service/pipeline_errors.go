package service

import "errors"

var (
	// ErrSubmissionIDRequired indicates the evaluation request carried no submission identifier.
	ErrSubmissionIDRequired = errors.New("submission id is required")
	// ErrSubmissionNotFound indicates the submission cannot be located.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionForbidden indicates the caller does not own the submission.
	ErrSubmissionForbidden = errors.New("forbidden")
	// ErrAnswerSheetUnavailable indicates the stored answer sheet could not be read.
	ErrAnswerSheetUnavailable = errors.New("answer sheet could not be downloaded")
	// ErrPDFRequiresRendering indicates a raw PDF reached text acquisition without text or page images.
	ErrPDFRequiresRendering = errors.New("pdf answer sheets must be supplied as extracted text or page images")
	// ErrEmptyExtraction indicates text acquisition produced only whitespace.
	ErrEmptyExtraction = errors.New("no text could be extracted from the document")
	// ErrNoAcquisitionStrategy indicates no text acquisition strategy applies to the document.
	ErrNoAcquisitionStrategy = errors.New("no text acquisition strategy applies")
	// ErrEvaluationPersistence indicates the evaluation was computed but could not be stored.
	ErrEvaluationPersistence = errors.New("failed to store evaluation results")
	// ErrPipelineAborted indicates the pipeline stopped on an unexpected runtime fault.
	ErrPipelineAborted = errors.New("evaluation pipeline aborted")
)

// IsAcquisitionError reports whether err belongs to the text acquisition failure class.
func IsAcquisitionError(err error) bool {
	return errors.Is(err, ErrAnswerSheetUnavailable) ||
		errors.Is(err, ErrPDFRequiresRendering) ||
		errors.Is(err, ErrEmptyExtraction) ||
		errors.Is(err, ErrNoAcquisitionStrategy)
}
