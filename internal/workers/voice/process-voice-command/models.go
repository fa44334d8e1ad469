package processvoicecommand

import "crop-assist/internal/models"

type Input struct {
	Text         string          `json:"text"`
	AudioURL     string          `json:"audioUrl"`
	Language     models.Language `json:"language"`
	Latitude     *float64        `json:"latitude,omitempty"`
	Longitude    *float64        `json:"longitude,omitempty"`
	CropType     string          `json:"cropType"`
	AreaHectares float64         `json:"areaHectares"`
}

// Output is the process-variable summary of a pipeline run.
type Output struct {
	RunID         string          `json:"runId"`
	Transcription string          `json:"transcription"`
	Language      models.Language `json:"language"`
	Action        models.Action   `json:"action"`
	Executed      bool            `json:"executed"`
	Assessed      bool            `json:"assessed"`
	Eligible      bool            `json:"eligible"`
	PredictedLoss float64         `json:"predictedLoss"`
	RiskLevel     string          `json:"riskLevel,omitempty"`
	Narrative     string          `json:"narrative,omitempty"`
	DurationMS    float64         `json:"durationMs"`
}
