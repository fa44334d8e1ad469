package intent

import (
	"sync"
	"testing"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Classification
// ==========================

func TestClassifier_Classify(t *testing.T) {
	c := MustDefault()

	tests := []struct {
		name       string
		text       string
		lang       models.Language
		wantAction models.Action
		wantParams map[string]interface{}
		wantExec   bool
	}{
		{
			name:       "lights off in bedroom",
			text:       "turn off the bedroom lights",
			lang:       models.LanguageEnglish,
			wantAction: models.ActionLightsControl,
			wantParams: map[string]interface{}{"action": "off", "location": "bedroom"},
			wantExec:   true,
		},
		{
			name:       "english crop health transcript",
			text:       "Check my crop health at field 5",
			lang:       models.LanguageEnglish,
			wantAction: models.ActionCropHealth,
			wantParams: map[string]interface{}{"fieldNumber": 5},
		},
		{
			name:       "hindi crop health transcript",
			text:       "मेरी फसल की जांच करें खेत 5 पर",
			lang:       models.LanguageHindi,
			wantAction: models.ActionCropHealth,
			wantParams: map[string]interface{}{"fieldNumber": 5},
		},
		{
			name:       "telugu crop health transcript",
			text:       "నా పంట ఆరోగ్యం చూడండి పొలం 5లో",
			lang:       models.LanguageTelugu,
			wantAction: models.ActionCropHealth,
			wantParams: map[string]interface{}{"fieldNumber": 5},
		},
		{
			name:       "eligibility with coordinates and crop",
			text:       "Am I eligible for insurance at 17.385, 78.4867 for my paddy?",
			lang:       models.LanguageEnglish,
			wantAction: models.ActionEligibilityCheck,
			wantParams: map[string]interface{}{"latitude": 17.385, "longitude": 78.4867, "cropType": "rice"},
		},
		{
			name:       "out of range coordinates are dropped",
			text:       "weather at 95.5 200.1",
			lang:       models.LanguageEnglish,
			wantAction: models.ActionWeatherForecast,
			wantParams: map[string]interface{}{},
		},
		{
			name:       "explain beats crop health",
			text:       "why is my crop health bad",
			lang:       models.LanguageEnglish,
			wantAction: models.ActionExplainDecision,
			wantParams: map[string]interface{}{},
		},
		{
			name:       "irrigation on with field",
			text:       "start irrigation in field 3",
			lang:       models.LanguageEnglish,
			wantAction: models.ActionIrrigationControl,
			wantParams: map[string]interface{}{"action": "on", "fieldNumber": 3, "location": "field"},
			wantExec:   true,
		},
		{
			name:       "fan in multi word location",
			text:       "turn on the fan in the living room",
			lang:       models.LanguageEnglish,
			wantAction: models.ActionFanControl,
			wantParams: map[string]interface{}{"action": "on", "location": "living room"},
			wantExec:   true,
		},
		{
			name:       "hindi lights off",
			text:       "रसोई की बत्ती बंद करो",
			lang:       models.LanguageHindi,
			wantAction: models.ActionLightsControl,
			wantParams: map[string]interface{}{"action": "off", "location": "kitchen"},
			wantExec:   true,
		},
		{
			name:       "play devotional music",
			text:       "play some devotional songs",
			lang:       models.LanguageEnglish,
			wantAction: models.ActionPlayMusic,
			wantParams: map[string]interface{}{"genre": "devotional"},
			wantExec:   true,
		},
		{
			name:       "misrecognized words corrected",
			text:       "wether forcast",
			lang:       models.LanguageEnglish,
			wantAction: models.ActionWeatherForecast,
			wantParams: map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.text, tt.lang)
			require.NoError(t, err)

			assert.Equal(t, tt.wantAction, got.Action)
			assert.Equal(t, tt.wantParams, got.Parameters)
			assert.Equal(t, tt.wantExec, got.RequiresExecution)
			assert.Equal(t, MatchConfidence, got.Confidence)
			assert.Equal(t, tt.lang, got.Language)
		})
	}
}

func TestClassifier_ReminderTimes(t *testing.T) {
	c := MustDefault()

	tests := []struct {
		text string
		lang models.Language
		want string
	}{
		{"set an alarm for 6:45 am", models.LanguageEnglish, "06:45"},
		{"remind me at 7 pm", models.LanguageEnglish, "19:00"},
		{"remind me at 12 am", models.LanguageEnglish, "00:00"},
		{"remind me at 9.15", models.LanguageEnglish, "09:15"},
		{"शाम 6 बजे याद दिलाना", models.LanguageHindi, "18:00"},
		{"सुबह 6 बजे याद दिलाना", models.LanguageHindi, "06:00"},
		{"సాయంత్రం 5 గంటలకు గుర్తు చేయండి", models.LanguageTelugu, "17:00"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := c.Classify(tt.text, tt.lang)
			require.NoError(t, err)
			assert.Equal(t, models.ActionSetReminder, got.Action)
			assert.Equal(t, tt.want, got.Parameters[models.ParamTime])
		})
	}
}

func TestClassifier_Unknown(t *testing.T) {
	c := MustDefault()

	for _, text := range []string{"what is the price of onions", "", "   "} {
		got, err := c.Classify(text, models.LanguageEnglish)
		require.NoError(t, err)
		assert.Equal(t, models.ActionUnknown, got.Action)
		assert.Empty(t, got.Parameters)
		assert.Zero(t, got.Confidence)
		assert.False(t, got.RequiresExecution)
	}
}

func TestClassifier_UnsupportedLanguage(t *testing.T) {
	c := MustDefault()

	_, err := c.Classify("turn off the lights", "fr")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnsupportedLanguage, apperrors.CodeOf(err))
}

func TestClassifier_ConcurrentUse(t *testing.T) {
	c := MustDefault()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Classify("turn off the bedroom lights", models.LanguageEnglish)
			assert.NoError(t, err)
			assert.Equal(t, models.ActionLightsControl, got.Action)
		}()
	}
	wg.Wait()
}

// ==========================
// Rule validation
// ==========================

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func([]RuleSet) []RuleSet
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(s []RuleSet) []RuleSet { return s },
		},
		{
			name:    "missing language",
			mutate:  func(s []RuleSet) []RuleSet { return s[:2] },
			wantErr: "missing rule set for te",
		},
		{
			name: "unknown action",
			mutate: func(s []RuleSet) []RuleSet {
				s[0].Rules = append(s[0].Rules, Rule{Action: "open_gate", Patterns: []string{"gate"}})
				return s
			},
			wantErr: "unknown action",
		},
		{
			name: "empty patterns",
			mutate: func(s []RuleSet) []RuleSet {
				s[1].Rules[0].Patterns = nil
				return s
			},
			wantErr: "has no patterns",
		},
		{
			name: "duplicate language",
			mutate: func(s []RuleSet) []RuleSet {
				return append(s, englishRules())
			},
			wantErr: "duplicate rule set",
		},
		{
			name: "unsupported language",
			mutate: func(s []RuleSet) []RuleSet {
				s[2].Language = "ta"
				return s
			},
			wantErr: "ta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRules(tt.mutate(DefaultRules()))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewClassifier_BadPattern(t *testing.T) {
	sets := DefaultRules()
	sets[0].Rules[0].Patterns = []string{`(unclosed`}

	_, err := NewClassifier(sets)
	assert.ErrorContains(t, err, "compile en rules")
}
