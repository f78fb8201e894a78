package schemas

// CreatePredictionRequest runs one prediction to completion
type CreatePredictionRequest struct {
	Version        string         `json:"version" minLength:"1" doc:"Version id"`
	Input          map[string]any `json:"input" doc:"Prediction input"`
	Webhook        string         `json:"webhook,omitempty" doc:"Webhook URL for remote notifications"`
	TimeoutSeconds int            `json:"timeoutSeconds,omitempty" minimum:"0" doc:"Wait budget; default from server config"`
}

// PredictionResponse is a finished (or timed out) prediction
type PredictionResponse struct {
	ID          string `json:"id" doc:"Prediction id"`
	Version     string `json:"version,omitempty" doc:"Version id"`
	Status      string `json:"status" doc:"starting, processing, succeeded, failed or canceled"`
	Output      any    `json:"output,omitempty" doc:"Raw output"`
	Error       string `json:"error,omitempty" doc:"Remote error text"`
	Logs        string `json:"logs,omitempty" doc:"Remote logs"`
	CreatedAt   string `json:"createdAt,omitempty" doc:"Creation timestamp"`
	CompletedAt string `json:"completedAt,omitempty" doc:"Completion timestamp"`
}
