package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/docchat"
)

// transcript is the v1 export format of a conversation.
type transcript struct {
	Version   int          `json:"version"`
	ID        string       `json:"id"`
	Document  string       `json:"document,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Messages  []messageDTO `json:"messages"`
}

type messageDTO struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Pending   bool      `json:"pending,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalTranscript serializes a conversation about document.
func MarshalTranscript(c *docchat.Conversation, document string) ([]byte, error) {
	msgs := c.Messages()
	t := transcript{
		Version:   1,
		ID:        c.ID,
		Document:  document,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]messageDTO, len(msgs)),
	}
	for i, m := range msgs {
		t.Messages[i] = messageDTO{
			Sender:    string(m.Sender),
			Text:      m.Text,
			Pending:   m.Pending(),
			Failed:    m.Failed,
			Timestamp: m.Timestamp,
		}
	}
	return json.MarshalIndent(t, "", "  ")
}

// SaveTranscript writes a transcript file, creating parent directories as
// needed. The file is replaced atomically.
func SaveTranscript(path string, c *docchat.Conversation, document string) error {
	data, err := MarshalTranscript(c, document)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
