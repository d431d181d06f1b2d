package types

// EditRequestBody is the JSON payload accepted by POST /edit.
type EditRequestBody struct {
	// Base64-encoded source image (PNG or JPEG).
	Image string `json:"image"`
	// Free-form user text. May be empty in casual mode.
	// example: make it vintage
	Prompt string `json:"prompt"`
	// Pipeline mode: casual or professional. Defaults to casual.
	// example: casual
	Mode string `json:"mode"`
}

// RefineRequestBody is the JSON payload accepted by POST /refine. The
// source image is implicit: the most recent session result.
type RefineRequestBody struct {
	// example: now add subtle film grain
	Prompt string `json:"prompt"`
	// example: professional
	Mode string `json:"mode"`
}

// EditResponse is the JSON payload returned by POST /edit and POST /refine.
type EditResponse struct {
	// Identifier of the persisted result record.
	// example: 7f9c4b1e-2d53-4a8a-9c1f-1f2f3a4b5c6d
	ResultID string `json:"result_id"`
	// Base64-encoded PNG of the edited image.
	Image string `json:"image"`
	// The original user prompt.
	// example: make it vintage
	UserBrief string `json:"user_brief"`
	// Directives produced by translation (casual mode only).
	// example: ["apply warm sepia color grade","reduce saturation slightly"]
	TranslationInsight []string `json:"translation_insight,omitempty"`
	// The exact text sent to the edit stage.
	// example: apply warm sepia color grade, reduce saturation slightly
	AppliedPrompt string `json:"applied_prompt"`
	// Per-step progress summaries.
	Steps []StepResult `json:"steps"`
	// Wall-clock duration of the pipeline run in seconds.
	// example: 23.4
	DurationSeconds float64 `json:"duration_seconds"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: prompt is required
	Error string `json:"error" example:"prompt is required"`
	// Pipeline stage the failure is tagged to, when known.
	// example: edit
	Stage string `json:"stage,omitempty" example:"edit"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HandleStatus summarizes one stage model handle for /status.
type HandleStatus struct {
	// Stage this handle serves.
	// example: translation
	Stage string `json:"stage" example:"translation"`
	// Model snapshot id backing the handle.
	// example: joycaption-beta-one
	ModelID string `json:"model_id" example:"joycaption-beta-one"`
	// Current handle state (unloaded, loading, resident, offloaded, failed).
	// example: resident
	State string `json:"state" example:"resident"`
	// Last time the handle served an acquire (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Estimated accelerator-resident footprint in MB right now.
	// example: 1200
	ResidentMB int `json:"resident_mb" example:"1200"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Per-stage handle states.
	Handles []HandleStatus `json:"handles"`
	// Accelerator memory budget in MB.
	// example: 8192
	BudgetMB int `json:"budget_mb" example:"8192"`
	// Estimated used accelerator memory in MB.
	// example: 2048
	UsedMB int `json:"used_est_mb" example:"2048"`
	// Reserved margin in MB kept free under the budget.
	// example: 512
	MarginMB int `json:"margin_mb" example:"512"`
	// Last error observed by the lifecycle manager (if any).
	LastError string `json:"last_error,omitempty"`
	// Total model loads since start.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Total offload transitions since start.
	// example: 7
	OffloadsTotal uint64 `json:"offloads_total" example:"7"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// HistoryEntryView is one session history entry as exposed over HTTP.
type HistoryEntryView struct {
	// Creation time in unix seconds.
	// example: 1700000000
	CreatedAt int64 `json:"created_at_unix"`
	// The user prompt of the originating request.
	// example: add thin silver-rimmed glasses
	UserBrief string `json:"user_brief"`
	// Pipeline mode of the originating request.
	// example: professional
	Mode string `json:"mode"`
	// The exact text sent to the edit stage.
	AppliedPrompt string `json:"applied_prompt"`
	// Base64-encoded PNG of the entry's output image.
	Image string `json:"image,omitempty"`
}

// HistoryResponse wraps session history for GET /history.
type HistoryResponse struct {
	// Newest-first entries, at most the session capacity.
	Entries []HistoryEntryView `json:"entries"`
}
