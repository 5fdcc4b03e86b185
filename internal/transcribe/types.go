package transcribe

// Job states reported by the transcript endpoint. A job moves
// queued → processing → completed/error; only the last two are terminal.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Job mirrors the transcript resource fields the service reads.
type Job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Terminal reports whether the job has reached a final state.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusError
}
