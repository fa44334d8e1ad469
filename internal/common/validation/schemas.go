package validation

const draft07 = "http://json-schema.org/draft-07/schema#"

func f64(v float64) *float64 { return &v }
func intp(v int) *int { return &v }
func boolp(v bool) *bool { return &v }

var languageProperty = Property{Type: "string", Enum: []string{"en", "hi", "te"}}

var (
	latitudeProperty  = Property{Type: "number", Minimum: f64(-90), Maximum: f64(90)}
	longitudeProperty = Property{Type: "number", Minimum: f64(-180), Maximum: f64(180)}
	cropTypeProperty  = Property{Type: "string", MinLength: intp(1), MaxLength: intp(32), Pattern: `^[A-Za-z ]+$`}
	ndviProperty      = Property{Type: "number", Minimum: f64(-1), Maximum: f64(1)}
)

// AnalysisRequestSchema covers POST /api/v1/analysis and the assess-crop-loss job.
func AnalysisRequestSchema() JSONSchema {
	return JSONSchema{
		Schema: draft07,
		Type:   "object",
		Properties: map[string]Property{
			"latitude":     latitudeProperty,
			"longitude":    longitudeProperty,
			"cropType":     cropTypeProperty,
			"language":     languageProperty,
			"areaHectares": {Type: "number", Minimum: f64(0)},
			"ndviBefore":   ndviProperty,
			"ndviCurrent":  ndviProperty,
			"rainfall":     {Type: "number", Minimum: f64(0)},
			"temperature":  {Type: "number", Minimum: f64(-50), Maximum: f64(60)},
		},
		Required: []string{"latitude", "longitude", "cropType"},
	}
}

// VoiceCommandSchema covers POST /api/v1/voice/commands and the
// process-voice-command job. Either text or audioUrl must be present.
func VoiceCommandSchema() JSONSchema {
	return JSONSchema{
		Schema: draft07,
		Type:   "object",
		Properties: map[string]Property{
			"text":         {Type: "string", MaxLength: intp(1000)},
			"audioUrl":     {Type: "string", MinLength: intp(1)},
			"language":     languageProperty,
			"latitude":     latitudeProperty,
			"longitude":    longitudeProperty,
			"cropType":     cropTypeProperty,
			"areaHectares": {Type: "number", Minimum: f64(0)},
		},
		AnyOf: []Requirement{
			{Required: []string{"text"}, Properties: map[string]Property{"text": {MinLength: intp(1)}}},
			{Required: []string{"audioUrl"}},
		},
	}
}

// NotifyFarmerSchema covers the notify-farmer job.
func NotifyFarmerSchema() JSONSchema {
	return JSONSchema{
		Schema: draft07,
		Type:   "object",
		Properties: map[string]Property{
			"farmerId":      {Type: "string", MinLength: intp(1)},
			"language":      languageProperty,
			"narrative":     {Type: "string", MinLength: intp(1), MaxLength: intp(1600)},
			"eligible":      {Type: "boolean"},
			"predictedLoss": {Type: "number", Minimum: f64(0), Maximum: f64(100)},
		},
		Required:             []string{"farmerId", "narrative"},
		AdditionalProperties: boolp(true),
	}
}
