package notifyfarmer

import "crop-assist/internal/models"

const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"

	ChannelSMS = "sms"
)

type Input struct {
	FarmerID      string          `json:"farmerId"`
	Language      models.Language `json:"language"`
	Narrative     string          `json:"narrative"`
	Eligible      *bool           `json:"eligible,omitempty"`
	PredictedLoss float64         `json:"predictedLoss"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	MessageID      string `json:"messageId,omitempty"`
	Channel        string `json:"channel"`
	Status         string `json:"status"`
	SentAt         string `json:"sentAt"`
}

// Farmer is the contact row read from the farmers table.
type Farmer struct {
	ID       string
	Phone    string
	Language models.Language
}
