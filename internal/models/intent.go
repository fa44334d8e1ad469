package models

import "time"

// Action identifies what a recognized utterance asks for.
type Action string

const (
	ActionEligibilityCheck  Action = "eligibility_check"
	ActionExplainDecision   Action = "explain_decision"
	ActionCropHealth        Action = "crop_health"
	ActionWeatherForecast   Action = "weather_forecast"
	ActionIrrigationControl Action = "irrigation_control"
	ActionLightsControl     Action = "lights_control"
	ActionFanControl        Action = "fan_control"
	ActionSetReminder       Action = "set_reminder"
	ActionPlayMusic         Action = "play_music"
	ActionUnknown           Action = "unknown"
)

// Actions lists the classifiable actions in precedence order.
var Actions = []Action{
	ActionEligibilityCheck,
	ActionExplainDecision,
	ActionCropHealth,
	ActionWeatherForecast,
	ActionIrrigationControl,
	ActionLightsControl,
	ActionFanControl,
	ActionSetReminder,
	ActionPlayMusic,
}

var executableActions = map[Action]bool{
	ActionIrrigationControl: true,
	ActionLightsControl:     true,
	ActionFanControl:        true,
	ActionSetReminder:       true,
	ActionPlayMusic:         true,
}

var geoActions = map[Action]bool{
	ActionEligibilityCheck: true,
	ActionCropHealth:       true,
	ActionExplainDecision:  true,
	ActionWeatherForecast:  true,
}

func (a Action) Known() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// RequiresExecution reports whether the action is handed to a command executor.
func (a Action) RequiresExecution() bool {
	return executableActions[a]
}

// GeoBearing reports whether the action needs a geo lookup and a decision.
func (a Action) GeoBearing() bool {
	return geoActions[a]
}

// Parameter names produced by the extractors.
const (
	ParamLatitude    = "latitude"
	ParamLongitude   = "longitude"
	ParamFieldNumber = "fieldNumber"
	ParamCropType    = "cropType"
	ParamTime        = "time"
	ParamAction      = "action"
	ParamLocation    = "location"
	ParamGenre       = "genre"
)

type RecognizedIntent struct {
	Action            Action                 `json:"action"`
	Parameters        map[string]interface{} `json:"parameters"`
	Confidence        float64                `json:"confidence"`
	RequiresExecution bool                   `json:"requiresExecution"`
	Language          Language               `json:"language"`
	Text              string                 `json:"text"`
}

// Coordinates returns the latitude/longitude pair extracted from the utterance.
func (i RecognizedIntent) Coordinates() (lat, lon float64, ok bool) {
	lat, okLat := i.Parameters[ParamLatitude].(float64)
	lon, okLon := i.Parameters[ParamLongitude].(float64)
	return lat, lon, okLat && okLon
}

func (i RecognizedIntent) StringParam(name string) string {
	s, _ := i.Parameters[name].(string)
	return s
}

// UtteranceRecord is one voice or text event entering the pipeline.
type UtteranceRecord struct {
	Text       string    `json:"text"`
	Language   Language  `json:"language"`
	ReceivedAt time.Time `json:"receivedAt"`
	Final      bool      `json:"final"`
}
