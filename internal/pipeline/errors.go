package pipeline

import (
	"errors"
	"fmt"

	"tubescribe/internal/extract"
	"tubescribe/internal/transcribe"
)

// ValidationError rejects input before any external call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}

// DownloadError wraps a failure from the audio extraction step.
type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string {
	return "audio download failed: " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error { return e.Err }

// TranscriptionError wraps a failure from the transcription step. It is
// a distinct type from DownloadError so callers can tell the two apart.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return "transcription failed: " + e.Err.Error()
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// UserMessage converts a pipeline error into the message shown on the
// result page. Raw errors never reach the user.
func UserMessage(err error) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Reason
	}

	var download *DownloadError
	if errors.As(err, &download) {
		switch {
		case errors.Is(err, extract.ErrUnavailable):
			return "This video is unavailable. It may have been removed or blocked in the service's region."
		case errors.Is(err, extract.ErrRestricted):
			return "This video is restricted and cannot be downloaded without signing in."
		default:
			return fmt.Sprintf("Could not download audio from the video: %v", download.Err)
		}
	}

	var transcription *TranscriptionError
	if errors.As(err, &transcription) {
		switch {
		case errors.Is(err, transcribe.ErrPollTimeout):
			return "Transcription took too long and the request gave up waiting. Try a shorter video."
		case errors.Is(err, transcribe.ErrJobFailed):
			return fmt.Sprintf("The transcription service could not process this audio: %v", transcription.Err)
		default:
			return fmt.Sprintf("Transcription failed: %v", transcription.Err)
		}
	}

	return "Something went wrong while processing the video. Please try again."
}
