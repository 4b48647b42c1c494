package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeTaskRunPipeline = "task:run_pipeline"
)

// RunPipelinePayload names the identifiers for one run. When IDs is empty
// the identifiers are read from InputPath on the worker.
type RunPipelinePayload struct {
	IDs       []string `json:"imdb_ids,omitempty"`
	InputPath string   `json:"input_path,omitempty"`
}

// NewRunPipelineTask creates a run task. Runs are never retried by the
// queue; the ledger already records the failure.
func NewRunPipelineTask(ids []string, inputPath string) (*asynq.Task, error) {
	payload := RunPipelinePayload{
		IDs:       ids,
		InputPath: inputPath,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeTaskRunPipeline, payloadBytes, asynq.MaxRetry(0)), nil
}
