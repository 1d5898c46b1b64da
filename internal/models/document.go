package models

// Document is the extracted plain text of one uploaded or saved file.
type Document struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UploadStatus tells the presenter what happened to one uploaded file.
type UploadStatus string

const (
	UploadAccepted    UploadStatus = "accepted"
	UploadUnsupported UploadStatus = "unsupported"
	UploadEmpty       UploadStatus = "empty"
	UploadFailed      UploadStatus = "failed"
)

type UploadResult struct {
	Name   string       `json:"name"`
	Format string       `json:"format"`
	Status UploadStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

type PromptResponse struct {
	Query     string
	Prompt    string
	Content   string
	Truncated bool
}

// Contents returns the content of every document, in order.
func Contents(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}
