package pipeline_type

// Stage ids and types.
const (
	StepExtract         = "extract"
	StepSummarize       = "summarize"
	StepSynthesizeAudio = "synthesize_audio"
	StepAnswer          = "answer"
	StepHighlight       = "highlight"
)

// IngestionDefinition is the fixed stage list run once per uploaded
// document.
func IngestionDefinition() PipelineDefinition {
	return PipelineDefinition{
		ID:    IngestionPipeline,
		Label: "Document ingestion",
		Steps: []PipelineStep{
			{ID: StepExtract, Type: StepExtract, StepDescription: "Extract text and metadata from the document"},
			{ID: StepSummarize, Type: StepSummarize, StepDescription: "Summarize the extracted text"},
			{ID: StepSynthesizeAudio, Type: StepSynthesizeAudio, StepDescription: "Narrate the summary as audio"},
		},
	}
}

// QueryDefinition is the fixed stage list run for every question.
func QueryDefinition() PipelineDefinition {
	return PipelineDefinition{
		ID:    QueryPipeline,
		Label: "Conversational query",
		Steps: []PipelineStep{
			{ID: StepAnswer, Type: StepAnswer, StepDescription: "Answer from the document text with supporting quotes"},
			{ID: StepHighlight, Type: StepHighlight, StepDescription: "Highlight the quotes in the original PDF"},
		},
	}
}
