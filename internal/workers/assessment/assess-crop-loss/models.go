package assesscroploss

import "crop-assist/internal/models"

type Input struct {
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	CropType     string          `json:"cropType"`
	Language     models.Language `json:"language"`
	AreaHectares float64         `json:"areaHectares"`
	NDVIBefore   *float64        `json:"ndviBefore,omitempty"`
	NDVICurrent  *float64        `json:"ndviCurrent,omitempty"`
	RainfallMM   *float64        `json:"rainfall,omitempty"`
}

type Output struct {
	Eligible      bool            `json:"eligible"`
	PredictedLoss float64         `json:"predictedLoss"`
	Threshold     float64         `json:"threshold"`
	Confidence    float64         `json:"confidence"`
	RiskLevel     string          `json:"riskLevel"`
	DamageCause   string          `json:"damageCause"`
	District      string          `json:"district,omitempty"`
	Language      models.Language `json:"language"`
	Narrative     string          `json:"narrative"`
	AssessedAt    string          `json:"assessedAt"`
}
