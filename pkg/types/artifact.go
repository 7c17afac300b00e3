package types

import (
	"time"

	"github.com/opencontainers/go-digest"
)

// IngestionArtifact captures where the ingestion stage put its outputs.
type IngestionArtifact struct {
	RawFilepath         string `json:"rawFilepath,omitempty"`
	IngestedFilepath    string `json:"ingestedFilepath,omitempty"`
	DVCRawFilepath      string `json:"dvcRawFilepath,omitempty"`
	DVCIngestedFilepath string `json:"dvcIngestedFilepath,omitempty"`

	RawURI      string `json:"rawURI,omitempty"`
	IngestedURI string `json:"ingestedURI,omitempty"`

	RawDigest      digest.Digest `json:"rawDigest,omitempty"`
	IngestedDigest digest.Digest `json:"ingestedDigest,omitempty"`
	RawSize        int64         `json:"rawSize,omitempty"`
	Rows           int           `json:"rows,omitempty"`
}

// TransformationArtifact captures the split datasets produced by the
// transformation stage.
type TransformationArtifact struct {
	TrainFilepath        string `json:"trainFilepath,omitempty"`
	ValFilepath          string `json:"valFilepath,omitempty"`
	TestFilepath         string `json:"testFilepath,omitempty"`
	PreprocessorFilepath string `json:"preprocessorFilepath,omitempty"`

	TrainURI string `json:"trainURI,omitempty"`
	ValURI   string `json:"valURI,omitempty"`
	TestURI  string `json:"testURI,omitempty"`

	TrainRows int `json:"trainRows"`
	ValRows   int `json:"valRows"`
	TestRows  int `json:"testRows"`
}

const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// RunRecord is one pipeline run as stored in the run ledger.
type RunRecord struct {
	Timestamp  string    `json:"timestamp"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`

	Ingestion      *IngestionArtifact      `json:"ingestion,omitempty"`
	Transformation *TransformationArtifact `json:"transformation,omitempty"`
	PlanFilepath   string                  `json:"planFilepath,omitempty"`
}
