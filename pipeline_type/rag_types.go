package pipeline_type

import "time"

// Document is an uploaded source file plus the artifacts ingestion derives
// from it. TextContent, Summary and AudioPath stay nil until their stage
// commits, and are never reset.
type Document struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	Content     []byte    `json:"-"`
	TextContent *string   `json:"text_content"`
	Summary     *string   `json:"summary"`
	AudioPath   *string   `json:"audio_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// TextReady reports whether extraction has committed the document text.
func (d *Document) TextReady() bool {
	return d.TextContent != nil
}

// Interaction is one answered question. Interactions are append-only.
type Interaction struct {
	ID            int64     `json:"id"`
	DocumentID    int64     `json:"document_id"`
	Query         string    `json:"query"`
	Answer        string    `json:"answer"`
	Quotes        []string  `json:"quotes"`
	HighlightPath *string   `json:"highlight_path"`
	Timestamp     time.Time `json:"timestamp"`
}

// ChatHistoryEntry is the read-only projection of a prior interaction fed
// back to the answer stage.
type ChatHistoryEntry struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// HistoryFromInteractions projects interactions, already in chronological
// order, onto chat history entries.
func HistoryFromInteractions(interactions []*Interaction) []ChatHistoryEntry {
	history := make([]ChatHistoryEntry, 0, len(interactions))
	for _, i := range interactions {
		history = append(history, ChatHistoryEntry{Query: i.Query, Answer: i.Answer})
	}
	return history
}

type AnswerKind int

const (
	// AnswerParsed means the model output decoded into answer and quotes.
	AnswerParsed AnswerKind = iota
	// AnswerUnparsed means the raw model output is used as the answer.
	AnswerUnparsed
)

func (k AnswerKind) String() string {
	if k == AnswerParsed {
		return "parsed"
	}
	return "unparsed"
}

// QAResult is the outcome of a grounded answer. For AnswerUnparsed, Answer
// holds the raw output and Quotes is empty.
type QAResult struct {
	Kind   AnswerKind
	Answer string
	Quotes []string
}

func Parsed(answer string, quotes []string) QAResult {
	if quotes == nil {
		quotes = []string{}
	}
	return QAResult{Kind: AnswerParsed, Answer: answer, Quotes: quotes}
}

func Unparsed(raw string) QAResult {
	return QAResult{Kind: AnswerUnparsed, Answer: raw, Quotes: []string{}}
}
