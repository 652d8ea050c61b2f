package pipeline_type

import "context"

// DocumentWriter commits ingestion results onto the stored document, one
// field per call.
type DocumentWriter interface {
	UpdateText(ctx context.Context, id int64, text string) error
	UpdateSummary(ctx context.Context, id int64, summary string) error
	UpdateAudioPath(ctx context.Context, id int64, audioPath string) error
}

// Context carries the fields of one pipeline run. Stages fill it in order;
// later stages read what earlier ones wrote. It is never persisted as a
// whole.
type Context struct {
	DocumentID    int64
	PDFBytes      []byte
	TextContent   string
	Metadata      map[string]string
	Summary       string
	AudioPath     *string
	Query         string
	ChatHistory   []ChatHistoryEntry
	Answer        string
	AnswerKind    AnswerKind
	Quotes        []string
	HighlightPath *string

	// Documents is the run's own store session. Ingestion stages write
	// through it as soon as they produce a field.
	Documents DocumentWriter

	// CompletedSteps lists the stage ids that returned without error.
	CompletedSteps []string
}

func NewContext() *Context {
	return &Context{
		Metadata:       make(map[string]string),
		ChatHistory:    make([]ChatHistoryEntry, 0),
		Quotes:         make([]string, 0),
		CompletedSteps: make([]string, 0),
	}
}

// NewIngestionContext seeds a context for the ingestion pipeline.
func NewIngestionContext(documentID int64, content []byte, documents DocumentWriter) *Context {
	c := NewContext()
	c.DocumentID = documentID
	c.PDFBytes = content
	c.Documents = documents
	return c
}

// NewQueryContext seeds a context for the query pipeline from a document
// whose text is ready and a snapshot of its history.
func NewQueryContext(doc *Document, query string, history []ChatHistoryEntry) *Context {
	c := NewContext()
	c.DocumentID = doc.ID
	c.PDFBytes = doc.Content
	if doc.TextContent != nil {
		c.TextContent = *doc.TextContent
	}
	c.Query = query
	if history != nil {
		c.ChatHistory = history
	}
	return c
}

func (c *Context) MarkCompleted(stepID string) {
	c.CompletedSteps = append(c.CompletedSteps, stepID)
}
