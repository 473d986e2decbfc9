package core

import "context"

// HomeworkExtract is the structured result of analysing a photographed
// homework note: the transcription meant for parents plus a short
// summary of what was worked on during the lesson.
type HomeworkExtract struct {
	HomeworkText string `json:"homeworkText"`
	Summary      string `json:"summary"`
}

// ExtractionService is any service that can turn a captured image into
// a HomeworkExtract. A single attempt either succeeds or fails with an
// *ExtractionError; no retry is performed at this level.
type ExtractionService interface {
	Extract(ctx context.Context, image []byte, mimeType string) (HomeworkExtract, error)
}
