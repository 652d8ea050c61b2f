package step

import (
	"context"

	"github.com/serisow/docqa/pipeline_type"
)

// Step is one stage of a pipeline. Execute reads and writes fields of the
// shared context; a returned error aborts the run.
type Step interface {
	Execute(ctx context.Context, pipelineContext *pipeline_type.Context) error

	GetType() string
}
