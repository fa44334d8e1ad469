package intent

import "crop-assist/internal/models"

// Rule maps one action to its ordered match patterns.
type Rule struct {
	Action   models.Action
	Patterns []string
}

// Keyword maps a spoken keyword to the canonical parameter value.
type Keyword struct {
	Word  string
	Value string
}

// RuleSet is the complete configuration for one language. Rules are tried in
// slice order and the first rule with a matching pattern wins.
type RuleSet struct {
	Language models.Language
	Rules    []Rule

	// WordBoundaries selects whole-word keyword matching. Devanagari and Telugu
	// attach case markers to the noun ("పొలం 5లో"), so those languages match
	// keywords as substrings instead.
	WordBoundaries bool

	FieldPattern string
	TimePattern  string
	Crops        []Keyword
	Locations    []Keyword
	Genres       []Keyword
	OnWords      []string
	OffWords     []string
	// EveningWords shift an hour below 12 into the afternoon ("शाम 6 बजे").
	EveningWords []string
	Vocabulary   []string
}

// coordinatePattern captures a signed decimal latitude/longitude pair.
const coordinatePattern = `(?:lat(?:itude)?\s*)?(-?\d{1,2}\.\d+)\s*(?:,|\s)\s*(?:lon(?:gitude)?\s*)?(-?\d{1,3}\.\d+)`

// clockPattern captures HH:MM with an optional meridiem, in any language.
const clockPattern = `(\d{1,2})[:.](\d{2})\s*(am|pm)?`

// DefaultRules returns the built-in rule sets for every supported language.
func DefaultRules() []RuleSet {
	return []RuleSet{englishRules(), hindiRules(), teluguRules()}
}

func englishRules() RuleSet {
	return RuleSet{
		Language:       models.LanguageEnglish,
		WordBoundaries: true,
		Rules: []Rule{
			{Action: models.ActionEligibilityCheck, Patterns: []string{
				`\beligib\w*`, `\bpmfby\b`, `\binsurance\b`, `\bcompensation\b`, `\bclaim\w*`,
			}},
			{Action: models.ActionExplainDecision, Patterns: []string{
				`\bwhy\b`, `\bexplain\w*`, `\breason\w*`,
			}},
			{Action: models.ActionCropHealth, Patterns: []string{
				`\bcrops? health\b`, `\bhealth of (?:my |the )?crops?\b`, `\bcheck (?:my |the )?(?:crops?|fields?)\b`,
				`\bcrops? (?:status|condition)\b`, `\bndvi\b`,
			}},
			{Action: models.ActionWeatherForecast, Patterns: []string{
				`\bweather\b`, `\bforecast\b`, `\brain(?:fall)?\b`, `\btemperature\b`,
			}},
			{Action: models.ActionIrrigationControl, Patterns: []string{
				`\birrigat\w*`, `\bsprinklers?\b`, `\bwater(?:ing)? (?:the )?(?:fields?|crops?|plants?)\b`, `\bpump\b`, `\bmotor\b`,
			}},
			{Action: models.ActionLightsControl, Patterns: []string{
				`\blights?\b`, `\blamps?\b`, `\bbulbs?\b`,
			}},
			{Action: models.ActionFanControl, Patterns: []string{
				`\bfans?\b`,
			}},
			{Action: models.ActionSetReminder, Patterns: []string{
				`\bremind\w*`, `\balarm\b`,
			}},
			{Action: models.ActionPlayMusic, Patterns: []string{
				`\bplay\b`, `\bmusic\b`, `\bsongs?\b`,
			}},
		},
		FieldPattern: `\bfield\s*(?:no|number)?\s*(\d+)\b`,
		TimePattern:  `\b(\d{1,2})\s*(am|pm|o'clock)\b`,
		Crops: []Keyword{
			{"rice", "rice"}, {"paddy", "rice"}, {"wheat", "wheat"}, {"cotton", "cotton"},
			{"sugarcane", "sugarcane"}, {"maize", "maize"}, {"corn", "maize"}, {"soybean", "soybean"},
			{"groundnut", "groundnut"}, {"peanut", "groundnut"}, {"pulses", "pulses"},
		},
		Locations: []Keyword{
			{"living room", "living room"}, {"bedroom", "bedroom"}, {"kitchen", "kitchen"}, {"hall", "hall"},
			{"bathroom", "bathroom"}, {"garden", "garden"}, {"greenhouse", "greenhouse"}, {"barn", "barn"},
			{"shed", "shed"}, {"field", "field"},
		},
		Genres: []Keyword{
			{"classical", "classical"}, {"devotional", "devotional"}, {"bhajan", "devotional"}, {"folk", "folk"},
			{"bollywood", "bollywood"}, {"pop", "pop"}, {"rock", "rock"}, {"jazz", "jazz"},
		},
		OnWords:  []string{"on", "start", "enable", "open"},
		OffWords: []string{"off", "stop", "disable", "close", "shut"},
		Vocabulary: []string{
			"eligible", "eligibility", "insurance", "compensation", "explain", "reason", "health", "crop",
			"weather", "forecast", "rainfall", "temperature", "irrigation", "irrigate", "sprinkler", "lights",
			"remind", "reminder", "music", "check", "field",
		},
	}
}

func hindiRules() RuleSet {
	return RuleSet{
		Language: models.LanguageHindi,
		Rules: []Rule{
			{Action: models.ActionEligibilityCheck, Patterns: []string{
				`पात्र`, `योग्य`, `बीमा`, `मुआवजा`, `क्लेम`, `pmfby`,
			}},
			{Action: models.ActionExplainDecision, Patterns: []string{
				`क्यों`, `समझाओ`, `समझाएं`, `कारण`, `वजह`,
			}},
			{Action: models.ActionCropHealth, Patterns: []string{
				`फसल (?:की|का) (?:जांच|जाँच|स्थिति|सेहत|हाल)`, `फसल स्वास्थ्य`, `फसल.*(?:जांच|जाँच)`, `ndvi`,
			}},
			{Action: models.ActionWeatherForecast, Patterns: []string{
				`मौसम`, `बारिश`, `वर्षा`, `तापमान`,
			}},
			{Action: models.ActionIrrigationControl, Patterns: []string{
				`सिंचाई`, `पानी`, `पंप`, `मोटर`,
			}},
			{Action: models.ActionLightsControl, Patterns: []string{
				`बत्ती`, `बत्तियां`, `लाइट`, `रोशनी`, `बल्ब`,
			}},
			{Action: models.ActionFanControl, Patterns: []string{
				`पंखा`, `पंखे`, `फैन`,
			}},
			{Action: models.ActionSetReminder, Patterns: []string{
				`याद दिला`, `रिमाइंडर`, `अलार्म`,
			}},
			{Action: models.ActionPlayMusic, Patterns: []string{
				`गाना`, `गाने`, `संगीत`, `बजाओ`, `बजाएं`,
			}},
		},
		FieldPattern: `खेत\s*(?:नंबर|संख्या)?\s*(\d+)`,
		TimePattern:  `(\d{1,2})\s*(बजे)`,
		Crops: []Keyword{
			{"धान", "rice"}, {"चावल", "rice"}, {"गेहूं", "wheat"}, {"गेहूँ", "wheat"}, {"कपास", "cotton"},
			{"गन्ना", "sugarcane"}, {"मक्का", "maize"}, {"सोयाबीन", "soybean"}, {"मूंगफली", "groundnut"},
			{"दाल", "pulses"},
		},
		Locations: []Keyword{
			{"बेडरूम", "bedroom"}, {"शयनकक्ष", "bedroom"}, {"रसोई", "kitchen"}, {"हॉल", "hall"},
			{"बगीचा", "garden"}, {"बगीचे", "garden"}, {"खेत", "field"}, {"गोदाम", "shed"},
		},
		Genres: []Keyword{
			{"भजन", "devotional"}, {"भक्ति", "devotional"}, {"लोक", "folk"}, {"शास्त्रीय", "classical"},
			{"फिल्मी", "bollywood"},
		},
		OnWords:      []string{"चालू", "चलाओ", "जलाओ", "ऑन", "शुरू"},
		OffWords:     []string{"बंद", "बुझाओ", "ऑफ", "रोको"},
		EveningWords: []string{"शाम", "रात", "दोपहर"},
		Vocabulary: []string{
			"पात्रता", "बीमा", "मुआवजा", "मौसम", "बारिश", "सिंचाई", "फसल", "जांच",
		},
	}
}

func teluguRules() RuleSet {
	return RuleSet{
		Language: models.LanguageTelugu,
		Rules: []Rule{
			{Action: models.ActionEligibilityCheck, Patterns: []string{
				`అర్హత`, `బీమా`, `పరిహారం`, `క్లెయిమ్`, `pmfby`,
			}},
			{Action: models.ActionExplainDecision, Patterns: []string{
				`ఎందుకు`, `వివరించ`, `కారణం`,
			}},
			{Action: models.ActionCropHealth, Patterns: []string{
				`పంట ఆరోగ్యం`, `పంట పరిస్థితి`, `పంట.*(?:చూడండి|తనిఖీ)`, `ndvi`,
			}},
			{Action: models.ActionWeatherForecast, Patterns: []string{
				`వాతావరణం`, `వర్షం`, `ఉష్ణోగ్రత`,
			}},
			{Action: models.ActionIrrigationControl, Patterns: []string{
				`నీటిపారుదల`, `నీరు`, `పంపు`, `మోటార్`,
			}},
			{Action: models.ActionLightsControl, Patterns: []string{
				`లైట్`, `దీపం`, `దీపాలు`, `బల్బు`,
			}},
			{Action: models.ActionFanControl, Patterns: []string{
				`ఫ్యాన్`, `పంకా`,
			}},
			{Action: models.ActionSetReminder, Patterns: []string{
				`గుర్తు చేయ`, `రిమైండర్`, `అలారం`,
			}},
			{Action: models.ActionPlayMusic, Patterns: []string{
				`పాట`, `సంగీతం`, `ప్లే`,
			}},
		},
		FieldPattern: `పొలం\s*(?:సంఖ్య)?\s*(\d+)`,
		TimePattern:  `(\d{1,2})\s*(గంటలకు)`,
		Crops: []Keyword{
			{"వరి", "rice"}, {"గోధుమ", "wheat"}, {"పత్తి", "cotton"}, {"చెరకు", "sugarcane"},
			{"మొక్కజొన్న", "maize"}, {"సోయాబీన్", "soybean"}, {"వేరుశెనగ", "groundnut"}, {"పప్పు", "pulses"},
		},
		Locations: []Keyword{
			{"పడకగది", "bedroom"}, {"వంటగది", "kitchen"}, {"హాల్", "hall"}, {"తోట", "garden"},
			{"పొలం", "field"}, {"గోడౌన్", "shed"},
		},
		Genres: []Keyword{
			{"భక్తి", "devotional"}, {"జానపద", "folk"}, {"శాస్త్రీయ", "classical"}, {"సినిమా", "bollywood"},
		},
		OnWords:      []string{"ఆన్", "ప్రారంభించు", "వెలిగించు"},
		OffWords:     []string{"ఆఫ్", "ఆపు", "ఆపండి", "బంద్"},
		EveningWords: []string{"సాయంత్రం", "రాత్రి", "మధ్యాహ్నం"},
		Vocabulary: []string{
			"అర్హత", "బీమా", "పరిహారం", "వాతావరణం", "వర్షం", "నీటిపారుదల", "పంట", "ఆరోగ్యం",
		},
	}
}
