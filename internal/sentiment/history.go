package sentiment

import (
	"sync"
	"time"
)

// PreviewRunes is how much of the analysed text a Record keeps.
const PreviewRunes = 50

// Examples are the sample texts offered next to the input box.
var Examples = []string{
	"I love this product! It's amazing and works perfectly.",
	"I'm not happy with the service; it was slow and unhelpful.",
	"It's an okay experience, nothing special.",
}

// Record is one analysed text as shown in the history table.
type Record struct {
	Text         string    `json:"text"`
	Sentiment    string    `json:"sentiment"`
	Polarity     float64   `json:"polarity"`
	Subjectivity float64   `json:"subjectivity"`
	At           time.Time `json:"at"`
}

// NewRecord builds the history entry for text. Text longer than
// PreviewRunes is cut and suffixed with "...".
func NewRecord(text string, s Score) Record {
	label := s.Label()
	return Record{
		Text:         preview(text),
		Sentiment:    Emoji(label) + " " + label,
		Polarity:     s.Polarity,
		Subjectivity: s.Subjectivity,
		At:           time.Now().UTC(),
	}
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= PreviewRunes {
		return text
	}
	return string(r[:PreviewRunes]) + "..."
}

// History is an append-only list of records, safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	records []Record
}

// Append adds r at the end.
func (h *History) Append(r Record) {
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
}

// Records returns a copy of the history, oldest first.
func (h *History) Records() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Record(nil), h.records...)
}

// Len returns the number of records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
