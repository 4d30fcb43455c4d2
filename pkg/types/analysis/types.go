// Package analysis defines the request and result DTOs for every analysis
// the platform runs over a results table.  These types are shared by the CLI,
// the dashboard API, and the Kafka job queue; no algorithm logic lives here.
package analysis

import (
	"time"

	"github.com/molprop/platform/pkg/types/common"
)

// Kind names an analysis the platform can execute.
type Kind string

const (
	KindVisualize   Kind = "visualize"
	KindPareto      Kind = "pareto"
	KindMMP         Kind = "mmp"
	KindSAR         Kind = "sar"
	KindLookup      Kind = "lookup"
	KindBioisostere Kind = "bioisostere"
	KindPipeline    Kind = "pipeline"
)

// IsValid reports whether k names a known analysis.
func (k Kind) IsValid() bool {
	switch k {
	case KindVisualize, KindPareto, KindMMP, KindSAR, KindLookup, KindBioisostere, KindPipeline:
		return true
	default:
		return false
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Visualization
// ─────────────────────────────────────────────────────────────────────────────

// ProjectionMethod selects the dimensionality-reduction algorithm.
type ProjectionMethod string

const (
	MethodPCA  ProjectionMethod = "pca"
	MethodUMAP ProjectionMethod = "umap"
)

// VisualizeRequest asks for a 2-D projection of a table's numeric columns.
type VisualizeRequest struct {
	TablePath string           `json:"table_path"`
	OutDir    string           `json:"out_dir"`
	Method    ProjectionMethod `json:"method"`
	IDColumn  string           `json:"id_column"`
	ColorBy   string           `json:"color_by,omitempty"`
	Columns   []string         `json:"columns,omitempty"` // empty = all numeric
	Seed      int64            `json:"seed"`
}

// VisualizeResult reports where the projection artifacts were written.
type VisualizeResult struct {
	Method            ProjectionMethod `json:"method"`
	ProjectionCSV     string           `json:"projection_csv"`
	ProjectionHTML    string           `json:"projection_html"`
	NumPoints         int              `json:"num_points"`
	ColumnsUsed       []string         `json:"columns_used"`
	ExplainedVariance []float64        `json:"explained_variance,omitempty"` // PCA only
}

// ─────────────────────────────────────────────────────────────────────────────
// Pareto
// ─────────────────────────────────────────────────────────────────────────────

// Direction states whether an objective column should be minimized or maximized.
type Direction string

const (
	Minimize Direction = "min"
	Maximize Direction = "max"
)

// Objective pairs a numeric column with an optimization direction.
type Objective struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// ParetoRequest asks for Pareto-front extraction over the given objectives.
type ParetoRequest struct {
	TablePath  string      `json:"table_path"`
	OutPath    string      `json:"out_path,omitempty"`
	IDColumn   string      `json:"id_column"`
	Objectives []Objective `json:"objectives"`
	MaxRank    int         `json:"max_rank"` // 0 = annotate all ranks
}

// ParetoPoint is one row with its computed front rank (rank 1 = non-dominated).
type ParetoPoint struct {
	ID     string    `json:"id"`
	Rank   int       `json:"rank"`
	Values []float64 `json:"values"`
}

// ParetoResult carries the ranked points and front sizes.
type ParetoResult struct {
	Objectives []Objective   `json:"objectives"`
	Points     []ParetoPoint `json:"points"`
	FrontSizes []int         `json:"front_sizes"`
	OutPath    string        `json:"out_path,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Matched molecular pairs
// ─────────────────────────────────────────────────────────────────────────────

// MMPRequest asks for matched-molecular-pair discovery over a table.
type MMPRequest struct {
	TablePath    string `json:"table_path"`
	OutPath      string `json:"out_path,omitempty"`
	IDColumn     string `json:"id_column"`
	SMILESColumn string `json:"smiles_column"`
	Property     string `json:"property"`
	MinPairs     int    `json:"min_pairs"` // minimum pair support per transform
}

// MMPPair is a single matched pair sharing a common core.
type MMPPair struct {
	LeftID    string  `json:"left_id"`
	RightID   string  `json:"right_id"`
	Core      string  `json:"core"`
	LeftFrag  string  `json:"left_frag"`
	RightFrag string  `json:"right_frag"`
	Delta     float64 `json:"delta"` // property(right) − property(left)
}

// MMPTransform aggregates all pairs with the same fragment substitution.
type MMPTransform struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Count       int     `json:"count"`
	MeanDelta   float64 `json:"mean_delta"`
	MedianDelta float64 `json:"median_delta"`
}

// MMPResult carries discovered pairs and aggregated transforms.
type MMPResult struct {
	Property    string         `json:"property"`
	Pairs       []MMPPair      `json:"pairs"`
	Transforms  []MMPTransform `json:"transforms"`
	NumSkipped  int            `json:"num_skipped"` // rows with unusable SMILES/values
	OutPath     string         `json:"out_path,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// SAR
// ─────────────────────────────────────────────────────────────────────────────

// SARRequest asks for a structure-activity summary of a table.
type SARRequest struct {
	TablePath       string  `json:"table_path"`
	OutPath         string  `json:"out_path,omitempty"`
	IDColumn        string  `json:"id_column"`
	SMILESColumn    string  `json:"smiles_column"`
	ActivityColumn  string  `json:"activity_column"`
	CliffSimilarity float64 `json:"cliff_similarity"` // Tanimoto threshold
	CliffDelta      float64 `json:"cliff_delta"`      // |Δactivity| threshold
}

// ScaffoldSummary aggregates activity statistics for one scaffold group.
type ScaffoldSummary struct {
	Scaffold string   `json:"scaffold"`
	Members  []string `json:"members"`
	N        int      `json:"n"`
	Mean     float64  `json:"mean"`
	StdDev   float64  `json:"std_dev"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
}

// ActivityCliff is a highly similar pair with a large activity difference.
type ActivityCliff struct {
	LeftID     string  `json:"left_id"`
	RightID    string  `json:"right_id"`
	Similarity float64 `json:"similarity"`
	Delta      float64 `json:"delta"`
}

// SARResult carries the scaffold summaries and detected cliffs.
type SARResult struct {
	ActivityColumn string            `json:"activity_column"`
	Scaffolds      []ScaffoldSummary `json:"scaffolds"`
	Cliffs         []ActivityCliff   `json:"cliffs"`
	NumSkipped     int               `json:"num_skipped"`
	OutPath        string            `json:"out_path,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookup
// ─────────────────────────────────────────────────────────────────────────────

// LookupMode selects how a lookup query is matched.
type LookupMode string

const (
	LookupByID         LookupMode = "id"
	LookupBySMILES     LookupMode = "smiles"     // exact or substring
	LookupBySimilarity LookupMode = "similarity" // fingerprint Tanimoto
)

// LookupRequest asks for rows matching a query against an indexed table.
type LookupRequest struct {
	TablePath    string     `json:"table_path"`
	IDColumn     string     `json:"id_column"`
	SMILESColumn string     `json:"smiles_column"`
	Mode         LookupMode `json:"mode"`
	Query        string     `json:"query"`
	Threshold    float64    `json:"threshold"`  // similarity mode only
	MaxResults   int        `json:"max_results"`
}

// LookupHit is one matching row.
type LookupHit struct {
	ID         string            `json:"id"`
	SMILES     string            `json:"smiles,omitempty"`
	Similarity float64           `json:"similarity,omitempty"`
	Row        map[string]string `json:"row,omitempty"`
}

// LookupResult carries the hits for a lookup query.
type LookupResult struct {
	Mode LookupMode  `json:"mode"`
	Hits []LookupHit `json:"hits"`
}

// LookupIndexRequest registers a table's compounds for similarity lookup.
type LookupIndexRequest struct {
	TablePath    string `json:"table_path"`
	IDColumn     string `json:"id_column"`
	SMILESColumn string `json:"smiles_column"`
}

// LookupIndexResult summarizes an indexing pass.
type LookupIndexResult struct {
	TablePath  string `json:"table_path"`
	NumIndexed int    `json:"num_indexed"`
	NumSkipped int    `json:"num_skipped"` // unparseable structures
}

// ─────────────────────────────────────────────────────────────────────────────
// Bioisostere
// ─────────────────────────────────────────────────────────────────────────────

// BioisostereRequest asks for replacement suggestions for a query structure.
type BioisostereRequest struct {
	SMILES     string `json:"smiles"`
	RulesPath  string `json:"rules_path,omitempty"` // optional user rules CSV
	MaxResults int    `json:"max_results"`
}

// BioisostereSuggestion is one proposed replacement product.
type BioisostereSuggestion struct {
	Product  string `json:"product"`
	From     string `json:"from"`
	To       string `json:"to"`
	Rationale string `json:"rationale,omitempty"`
	Support  int    `json:"support"`
}

// BioisostereResult carries ranked suggestions for a query SMILES.
type BioisostereResult struct {
	Query       string                  `json:"query"`
	Suggestions []BioisostereSuggestion `json:"suggestions"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Async jobs (dashboard → worker)
// ─────────────────────────────────────────────────────────────────────────────

// JobStatus is the lifecycle state of a queued analysis job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is the envelope published to the analysis-jobs topic.  Exactly one of
// the request fields matching Kind is populated.
type Job struct {
	ID          common.ID          `json:"id"`
	RunID       string             `json:"run_id"`
	Kind        Kind               `json:"kind"`
	SubmittedAt time.Time          `json:"submitted_at"`
	Visualize   *VisualizeRequest  `json:"visualize,omitempty"`
	Pareto      *ParetoRequest     `json:"pareto,omitempty"`
	MMP         *MMPRequest        `json:"mmp,omitempty"`
	SAR         *SARRequest        `json:"sar,omitempty"`
	Pipeline    *PipelineRequest   `json:"pipeline,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Toolkit pipeline (SMILES → table → artifacts)
// ─────────────────────────────────────────────────────────────────────────────

// PipelineRequest orchestrates the external toolkit console commands over an
// uploaded SMILES file, mirroring the dashboard's Generate workflow.
type PipelineRequest struct {
	InputPath    string `json:"input_path"`
	OutFormat    string `json:"out_format"` // "csv" | "parquet"
	RunReport    bool   `json:"run_report"`
	RunPicklists bool   `json:"run_picklists"`
	RunVisualize bool   `json:"run_visualize"`
}

// PipelineStep records one executed (or skipped) toolkit step.
type PipelineStep struct {
	Name       string `json:"name"`
	Command    string `json:"command,omitempty"`
	ReturnCode int    `json:"return_code"`
	Skipped    bool   `json:"skipped,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// PipelineResult summarizes a pipeline execution.
type PipelineResult struct {
	ResultsTable string         `json:"results_table,omitempty"`
	Steps        []PipelineStep `json:"steps"`
	LogTails     map[string]string `json:"log_tails,omitempty"`
}
