package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"crop-assist/internal/models"
	"crop-assist/internal/voice/matcher"
)

type extractor struct {
	wordBoundaries bool
	coordinates    *regexp.Regexp
	field          *regexp.Regexp
	clock          *regexp.Regexp
	time           *regexp.Regexp
	crops          []Keyword
	locations      []Keyword
	genres         []Keyword
	onWords        []string
	offWords       []string
	eveningWords   []string
}

func newExtractor(set RuleSet) (*extractor, error) {
	ex := &extractor{
		wordBoundaries: set.WordBoundaries,
		crops:          normalizeKeywords(set.Crops),
		locations:      normalizeKeywords(set.Locations),
		genres:         normalizeKeywords(set.Genres),
		onWords:        normalizeWords(set.OnWords),
		offWords:       normalizeWords(set.OffWords),
		eveningWords:   normalizeWords(set.EveningWords),
	}

	var err error
	if ex.coordinates, err = compilePattern(coordinatePattern); err != nil {
		return nil, err
	}
	if ex.clock, err = compilePattern(clockPattern); err != nil {
		return nil, err
	}
	if set.FieldPattern != "" {
		if ex.field, err = compilePattern(set.FieldPattern); err != nil {
			return nil, fmt.Errorf("field pattern: %w", err)
		}
	}
	if set.TimePattern != "" {
		if ex.time, err = compilePattern(set.TimePattern); err != nil {
			return nil, fmt.Errorf("time pattern: %w", err)
		}
	}
	return ex, nil
}

func normalizeKeywords(in []Keyword) []Keyword {
	out := make([]Keyword, 0, len(in))
	for _, kw := range in {
		out = append(out, Keyword{Word: matcher.Normalize(kw.Word), Value: kw.Value})
	}
	return out
}

func normalizeWords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, w := range in {
		out = append(out, matcher.Normalize(w))
	}
	return out
}

// extract runs the parameter extractors registered for the action.
func (e *extractor) extract(action models.Action, text string) map[string]interface{} {
	params := make(map[string]interface{})

	switch action {
	case models.ActionEligibilityCheck, models.ActionCropHealth, models.ActionExplainDecision, models.ActionWeatherForecast:
		e.extractCoordinates(text, params)
		e.extractField(text, params)
		e.extractKeyword(text, e.crops, models.ParamCropType, params)
	case models.ActionIrrigationControl:
		e.extractSwitch(text, params)
		e.extractField(text, params)
		e.extractKeyword(text, e.locations, models.ParamLocation, params)
	case models.ActionLightsControl, models.ActionFanControl:
		e.extractSwitch(text, params)
		e.extractKeyword(text, e.locations, models.ParamLocation, params)
	case models.ActionSetReminder:
		e.extractTime(text, params)
	case models.ActionPlayMusic:
		e.extractKeyword(text, e.genres, models.ParamGenre, params)
	}
	return params
}

func (e *extractor) extractCoordinates(text string, params map[string]interface{}) {
	m := e.coordinates.FindStringSubmatch(text)
	if m == nil {
		return
	}
	lat, errLat := strconv.ParseFloat(m[1], 64)
	lon, errLon := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return
	}
	params[models.ParamLatitude] = lat
	params[models.ParamLongitude] = lon
}

func (e *extractor) extractField(text string, params map[string]interface{}) {
	if e.field == nil {
		return
	}
	if m := e.field.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			params[models.ParamFieldNumber] = n
		}
	}
}

func (e *extractor) extractKeyword(text string, keywords []Keyword, param string, params map[string]interface{}) {
	for _, kw := range keywords {
		if e.contains(text, kw.Word) {
			params[param] = kw.Value
			return
		}
	}
}

// extractSwitch checks off-words first so "turn off" never reads as "on".
func (e *extractor) extractSwitch(text string, params map[string]interface{}) {
	for _, w := range e.offWords {
		if e.contains(text, w) {
			params[models.ParamAction] = "off"
			return
		}
	}
	for _, w := range e.onWords {
		if e.contains(text, w) {
			params[models.ParamAction] = "on"
			return
		}
	}
}

func (e *extractor) extractTime(text string, params map[string]interface{}) {
	var hour, minute int
	var marker string

	if m := e.clock.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		marker = m[3]
	} else if e.time != nil {
		m := e.time.FindStringSubmatch(text)
		if m == nil {
			return
		}
		hour, _ = strconv.Atoi(m[1])
		marker = m[2]
	} else {
		return
	}

	switch {
	case marker == "pm" && hour < 12:
		hour += 12
	case marker == "am" && hour == 12:
		hour = 0
	case marker != "am" && marker != "pm" && hour < 12 && e.anyWord(text, e.eveningWords):
		hour += 12
	}

	if hour > 23 || minute > 59 {
		return
	}
	params[models.ParamTime] = fmt.Sprintf("%02d:%02d", hour, minute)
}

func (e *extractor) anyWord(text string, words []string) bool {
	for _, w := range words {
		if e.contains(text, w) {
			return true
		}
	}
	return false
}

func (e *extractor) contains(text, word string) bool {
	if word == "" {
		return false
	}
	if e.wordBoundaries {
		return strings.Contains(" "+text+" ", " "+word+" ")
	}
	return strings.Contains(text, word)
}
