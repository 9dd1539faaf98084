// Package api provides the HTTP client and wire types for the speaker
// identification backend.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ID is an opaque backend identifier. The backend emits ids as JSON strings
// or integers depending on the table; both decode to the same string form.
type ID string

// UnmarshalJSON accepts a string, a number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as a plain string.
func (id ID) String() string { return string(id) }

// Timestamp decodes the backend's ISO-8601 timestamps, which may lack a zone.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON parses a quoted timestamp; null and empty strings yield the zero time.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	if s == "" {
		ts.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("decode timestamp: unrecognized format %q", s)
}

// MarshalJSON writes RFC 3339, or null for the zero time.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}

// Speaker is a roster entry returned by GET /api/speakers.
type Speaker struct {
	ID                  ID     `json:"id"`
	Name                string `json:"name"`
	PineconeSpeakerName string `json:"pinecone_speaker_name,omitempty"`
	UtteranceCount      int    `json:"utterance_count"`
	TotalDuration       int64  `json:"total_duration"` // milliseconds
	ConversationCount   int    `json:"conversation_count"`
}

// Utterance is one transcribed segment inside a conversation.
type Utterance struct {
	ID                 ID     `json:"id"`
	SpeakerID          ID     `json:"speaker_id"`
	SpeakerName        string `json:"speaker_name"`
	Text               string `json:"text"`
	StartMS            int64  `json:"start_ms"`
	EndMS              int64  `json:"end_ms"`
	IncludedInPinecone bool   `json:"included_in_pinecone"`
	AudioURL           string `json:"audio_url,omitempty"`
}

// Conversation is the full detail returned by GET /api/conversations/{id}.
type Conversation struct {
	ID             ID          `json:"id"`
	ConversationID string      `json:"conversation_id"`
	DisplayName    string      `json:"display_name"`
	CreatedAt      Timestamp   `json:"created_at"`
	Duration       float64     `json:"duration"` // seconds
	AudioURL       string      `json:"audio_url,omitempty"`
	Utterances     []Utterance `json:"utterances"`
}

// ConversationSummary is one row of GET /api/conversations.
type ConversationSummary struct {
	ID             ID        `json:"id"`
	ConversationID string    `json:"conversation_id"`
	DisplayName    string    `json:"display_name"`
	CreatedAt      Timestamp `json:"created_at"`
	Duration       float64   `json:"duration"`
	SpeakerCount   int       `json:"speaker_count"`
	UtteranceCount int       `json:"utterance_count"`
	Speakers       []string  `json:"speakers"`
}

// Title returns the display name, or a fallback derived from the id.
func (c ConversationSummary) Title() string {
	return ConversationTitle(c.ID, c.DisplayName)
}

// Title returns the display name, or a fallback derived from the id.
func (c Conversation) Title() string {
	return ConversationTitle(c.ID, c.DisplayName)
}

// ConversationTitle is the title shown for a conversation without a display name.
func ConversationTitle(id ID, displayName string) string {
	if displayName != "" {
		return displayName
	}
	s := string(id)
	if len(s) > 8 {
		s = s[len(s)-8:]
	}
	return "Conversation " + s
}

// UtteranceUpdate is the JSON body of PUT /api/utterances/{id}.
// Exactly one of SpeakerID or Text is set.
type UtteranceUpdate struct {
	SpeakerID *ID     `json:"speaker_id,omitempty"`
	Text      *string `json:"text,omitempty"`
}

// UtteranceResult is returned by PUT /api/utterances/{id}.
type UtteranceResult struct {
	ID             ID     `json:"id"`
	SpeakerID      ID     `json:"speaker_id"`
	Text           string `json:"text"`
	ConversationID ID     `json:"conversation_id"`
}

// BatchReassign is the JSON body of PUT /api/conversations/{id}/speakers/{old}.
type BatchReassign struct {
	NewSpeakerID ID `json:"new_speaker_id"`
}

// BatchResult is returned by the batch reassignment endpoints.
type BatchResult struct {
	FromSpeakerID ID  `json:"from_speaker_id,omitempty"`
	ToSpeakerID   ID  `json:"to_speaker_id,omitempty"`
	UpdatedCount  int `json:"updated_count"`
}

// ConversationResult is returned by PUT /api/conversations/{id}.
type ConversationResult struct {
	ID          ID     `json:"id"`
	DisplayName string `json:"display_name"`
}

// DeleteResult is returned by delete endpoints.
type DeleteResult struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// UploadResult is returned by POST /api/conversations/upload.
type UploadResult struct {
	Success        bool   `json:"success"`
	ConversationID ID     `json:"conversation_id"`
	Message        string `json:"message"`
}

// VectorEmbedding is one stored voice sample in the vector index.
type VectorEmbedding struct {
	ID string `json:"id"`
}

// VectorSpeaker groups the vector index samples by speaker name.
type VectorSpeaker struct {
	Name       string            `json:"name"`
	Embeddings []VectorEmbedding `json:"embeddings"`
}

// VectorSpeakers is returned by GET /api/pinecone/speakers.
type VectorSpeakers struct {
	Speakers []VectorSpeaker `json:"speakers"`
}

// EmbeddingResult is returned when a speaker or sample is added to the index.
type EmbeddingResult struct {
	Success     bool   `json:"success"`
	SpeakerName string `json:"speaker_name"`
	EmbeddingID string `json:"embedding_id"`
}

// VectorDeleteResult is returned when a speaker or sample is removed from the index.
type VectorDeleteResult struct {
	Success           bool   `json:"success"`
	SpeakerName       string `json:"speaker_name"`
	EmbeddingsDeleted int    `json:"embeddings_deleted,omitempty"`
	EmbeddingID       string `json:"embedding_id,omitempty"`
}

// Health is returned by GET /health.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// IDPtr returns a pointer to an ID. Convenience for building updates.
func IDPtr(id ID) *ID { return &id }

// StringPtr returns a pointer to a string. Convenience for building updates.
func StringPtr(s string) *string { return &s }
