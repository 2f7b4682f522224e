package domain

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry of a session's conversation. Messages are never
// mutated once appended.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
	Image     string    `json:"image,omitempty"`
}

// AnalysisResult is the outcome of one scan, handed from the scan view to the
// chat view exactly once.
type AnalysisResult struct {
	ImageRef     string
	AnalysisText string
}

// Questionnaire carries optional self-reported answers that enrich the scan
// prompt.
type Questionnaire struct {
	AgeRange       string `json:"ageRange"`
	SkinType       string `json:"skinType"`
	Concerns       string `json:"concerns"`
	CurrentRoutine string `json:"currentRoutine"`
	Lifestyle      string `json:"lifestyle"`
}

type Scan struct {
	ID         int64     `json:"id"`
	StorageKey string    `json:"storageKey"`
	MimeType   string    `json:"mimeType"`
	Analysis   string    `json:"analysis"`
	CreatedAt  time.Time `json:"createdAt"`
}
