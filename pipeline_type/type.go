package pipeline_type

// Pipeline kinds. Each one has a fixed stage list built at startup.
const (
	IngestionPipeline = "ingestion"
	QueryPipeline     = "query"
)

// PipelineStep describes one stage of a pipeline definition.
type PipelineStep struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	StepDescription string `json:"step_description"`
}

// PipelineDefinition is the ordered stage list of a pipeline kind.
type PipelineDefinition struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	Steps []PipelineStep `json:"steps"`
}
