package runerrors

import "time"

// Stage tags where in the pipeline a run went wrong.
type Stage string

const (
	StageEvaluate Stage = "evaluate"
	StageParse    Stage = "parse"
	StageRender   Stage = "render"
	StageMail     Stage = "mail"
	StageUpload   Stage = "upload"
	StagePanic    Stage = "panic"
)

// RunError represents a persisted pipeline failure or degraded reply
type RunError struct {
	ID           int64     `json:"id"`
	ReportID     string    `json:"report_id"`
	MeetingTitle string    `json:"meeting_title,omitempty"`
	Stage        Stage     `json:"stage"`
	Message      string    `json:"message"`
	DetailsJSON  string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt    time.Time `json:"created_at"`
}
