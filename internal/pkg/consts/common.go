package consts

const (
	StageIngest     = "ingest"
	StageScore      = "score"
	StageGenerate   = "generate"
	StageGuardrails = "guardrails"
	StageSchedule   = "schedule"
	StagePublish    = "publish"
	StageAnalytics  = "analytics"
	StageFeedback   = "feedback"
)

const (
	JobStatusOK       = "ok"
	JobStatusDisabled = "disabled"
	JobStatusBusy     = "busy"
	JobStatusError    = "error"
)
