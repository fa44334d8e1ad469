package explain

import "crop-assist/internal/models"

var featureNames = map[string]map[models.Language]string{
	FeatureLossPercentage: {
		models.LanguageEnglish: "the overall level of crop damage",
		models.LanguageHindi:   "फसल नुकसान का कुल स्तर",
		models.LanguageTelugu:  "మొత్తం పంట నష్టం స్థాయి",
	},
	FeatureNDVITrend: {
		models.LanguageEnglish: "the decline in crop greenness",
		models.LanguageHindi:   "फसल की हरियाली में गिरावट",
		models.LanguageTelugu:  "పంట పచ్చదనం తగ్గుదల",
	},
	FeatureCurrentNDVI: {
		models.LanguageEnglish: "current crop health",
		models.LanguageHindi:   "फसल की वर्तमान स्थिति",
		models.LanguageTelugu:  "పంట ప్రస్తుత ఆరోగ్యం",
	},
	FeatureRainfall: {
		models.LanguageEnglish: "rainfall",
		models.LanguageHindi:   "वर्षा",
		models.LanguageTelugu:  "వర్షపాతం",
	},
	FeatureTemperature: {
		models.LanguageEnglish: "temperature",
		models.LanguageHindi:   "तापमान",
		models.LanguageTelugu:  "ఉష్ణోగ్రత",
	},
}

// Each template takes the localized feature name and the formatted value.
var impactTemplates = map[models.Language]map[string]string{
	models.LanguageEnglish: {
		ImpactIncreases: "%s (%s) raised the assessed loss",
		ImpactDecreases: "%s (%s) lowered the assessed loss",
		ImpactNeutral:   "%s (%s) had little effect",
	},
	models.LanguageHindi: {
		ImpactIncreases: "%s (%s) ने नुकसान का आकलन बढ़ाया",
		ImpactDecreases: "%s (%s) ने नुकसान का आकलन घटाया",
		ImpactNeutral:   "%s (%s) का असर कम रहा",
	},
	models.LanguageTelugu: {
		ImpactIncreases: "%s (%s) నష్ట అంచనాను పెంచింది",
		ImpactDecreases: "%s (%s) నష్ట అంచనాను తగ్గించింది",
		ImpactNeutral:   "%s (%s) ప్రభావం తక్కువ",
	},
}

// Narrative templates take the loss percentage and the top feature name.
var narrativeTemplates = map[models.Language]map[bool]string{
	models.LanguageEnglish: {
		true:  "Estimated crop loss is %.1f%%, mainly driven by %s. This meets the PMFBY threshold, so you are eligible for compensation.",
		false: "Estimated crop loss is %.1f%%, mainly driven by %s. This is below the PMFBY threshold, so you are not eligible for compensation right now.",
	},
	models.LanguageHindi: {
		true:  "अनुमानित फसल नुकसान %.1f%% है, जिसका मुख्य कारण %s है। यह PMFBY सीमा तक पहुंचता है, इसलिए आप मुआवजे के पात्र हैं।",
		false: "अनुमानित फसल नुकसान %.1f%% है, जिसका मुख्य कारण %s है। यह PMFBY सीमा से कम है, इसलिए अभी आप मुआवजे के पात्र नहीं हैं।",
	},
	models.LanguageTelugu: {
		true:  "అంచనా పంట నష్టం %.1f%%, దీనికి ప్రధాన కారణం %s. ఇది PMFBY పరిమితిని చేరుకుంది, కాబట్టి మీరు పరిహారానికి అర్హులు.",
		false: "అంచనా పంట నష్టం %.1f%%, దీనికి ప్రధాన కారణం %s. ఇది PMFBY పరిమితి కంటే తక్కువ, కాబట్టి ప్రస్తుతం మీరు పరిహారానికి అర్హులు కాదు.",
	},
}

var recommendations = map[models.Language]map[bool][]string{
	models.LanguageEnglish: {
		true: {
			"File your PMFBY claim within 72 hours of noticing the damage.",
			"Keep photos of the damaged field and your sowing records.",
			"Contact your bank branch or the nearest agriculture office for claim support.",
		},
		false: {
			"Continue monitoring crop health every week.",
			"Follow the recommended irrigation and fertilizer schedule.",
			"Consult the local agriculture officer if the damage increases.",
		},
	},
	models.LanguageHindi: {
		true: {
			"नुकसान दिखने के 72 घंटे के भीतर PMFBY दावा दर्ज करें।",
			"खराब हुए खेत की तस्वीरें और बुवाई के रिकॉर्ड संभाल कर रखें।",
			"दावे में मदद के लिए अपनी बैंक शाखा या नजदीकी कृषि कार्यालय से संपर्क करें।",
		},
		false: {
			"हर सप्ताह फसल की स्थिति की निगरानी करते रहें।",
			"सिंचाई और उर्वरक की अनुशंसित समय-सारणी का पालन करें।",
			"नुकसान बढ़ने पर स्थानीय कृषि अधिकारी से सलाह लें।",
		},
	},
	models.LanguageTelugu: {
		true: {
			"నష్టం గమనించిన 72 గంటల్లోపు PMFBY క్లెయిమ్ దాఖలు చేయండి.",
			"దెబ్బతిన్న పొలం ఫోటోలు మరియు విత్తన రికార్డులు భద్రపరచండి.",
			"క్లెయిమ్ సహాయం కోసం మీ బ్యాంకు శాఖ లేదా సమీప వ్యవసాయ కార్యాలయాన్ని సంప్రదించండి.",
		},
		false: {
			"ప్రతి వారం పంట ఆరోగ్యాన్ని పర్యవేక్షించండి.",
			"సిఫార్సు చేసిన నీటిపారుదల మరియు ఎరువుల షెడ్యూల్ పాటించండి.",
			"నష్టం పెరిగితే స్థానిక వ్యవసాయ అధికారిని సంప్రదించండి.",
		},
	},
}

// weatherRecommendations are appended when rainfall or temperature ranks first.
var weatherRecommendations = map[string]map[models.Language]string{
	FeatureRainfall: {
		models.LanguageEnglish: "Check water availability and field drainage before the next irrigation.",
		models.LanguageHindi:   "अगली सिंचाई से पहले पानी की उपलब्धता और खेत की जल निकासी जांचें।",
		models.LanguageTelugu:  "తదుపరి నీటిపారుదలకు ముందు నీటి లభ్యత మరియు పొలం మురుగు పారుదల తనిఖీ చేయండి.",
	},
	FeatureTemperature: {
		models.LanguageEnglish: "Irrigate in the early morning or evening to reduce heat stress.",
		models.LanguageHindi:   "गर्मी का तनाव कम करने के लिए सुबह जल्दी या शाम को सिंचाई करें।",
		models.LanguageTelugu:  "వేడి ఒత్తిడి తగ్గించడానికి ఉదయాన్నే లేదా సాయంత్రం నీరు పెట్టండి.",
	},
}

// summaryTiers are ordered by the exclusive upper loss bound; the last tier has none.
var summaryTiers = []struct {
	below float64
	text  map[models.Language]string
}{
	{10, map[models.Language]string{
		models.LanguageEnglish: "Your crops are in good condition with minimal loss detected.",
		models.LanguageHindi:   "आपकी फसल अच्छी स्थिति में है, बहुत कम नुकसान मिला है।",
		models.LanguageTelugu:  "మీ పంట మంచి స్థితిలో ఉంది, నష్టం చాలా తక్కువ.",
	}},
	{25, map[models.Language]string{
		models.LanguageEnglish: "Your crops show moderate stress with some damage.",
		models.LanguageHindi:   "आपकी फसल में मध्यम तनाव और कुछ नुकसान दिख रहा है।",
		models.LanguageTelugu:  "మీ పంటలో మధ్యస్థ ఒత్తిడి మరియు కొంత నష్టం ఉంది.",
	}},
	{50, map[models.Language]string{
		models.LanguageEnglish: "Your crops have significant damage.",
		models.LanguageHindi:   "आपकी फसल को काफी नुकसान हुआ है।",
		models.LanguageTelugu:  "మీ పంటకు గణనీయమైన నష్టం జరిగింది.",
	}},
	{101, map[models.Language]string{
		models.LanguageEnglish: "Your crops have severe damage.",
		models.LanguageHindi:   "आपकी फसल को गंभीर नुकसान हुआ है।",
		models.LanguageTelugu:  "మీ పంటకు తీవ్రమైన నష్టం జరిగింది.",
	}},
}

// PMFBY statements take the crop name, the threshold and the loss percentage.
var pmfbyTemplates = map[models.Language]map[bool]string{
	models.LanguageEnglish: {
		true:  "For %s, PMFBY compensation requires at least %.0f%% loss. Your assessed loss of %.1f%% meets this threshold.",
		false: "For %s, PMFBY compensation requires at least %.0f%% loss. Your assessed loss of %.1f%% is below this threshold.",
	},
	models.LanguageHindi: {
		true:  "%s के लिए PMFBY मुआवजे हेतु कम से कम %.0f%% नुकसान जरूरी है। आपका आकलित नुकसान %.1f%% इस सीमा तक पहुंचता है।",
		false: "%s के लिए PMFBY मुआवजे हेतु कम से कम %.0f%% नुकसान जरूरी है। आपका आकलित नुकसान %.1f%% इस सीमा से कम है।",
	},
	models.LanguageTelugu: {
		true:  "%s పంటకు PMFBY పరిహారం కోసం కనీసం %.0f%% నష్టం అవసరం. మీ అంచనా నష్టం %.1f%% ఈ పరిమితిని చేరుకుంది.",
		false: "%s పంటకు PMFBY పరిహారం కోసం కనీసం %.0f%% నష్టం అవసరం. మీ అంచనా నష్టం %.1f%% ఈ పరిమితి కంటే తక్కువ.",
	},
}

var cropNames = map[string]map[models.Language]string{
	"rice":      {models.LanguageHindi: "धान", models.LanguageTelugu: "వరి"},
	"wheat":     {models.LanguageHindi: "गेहूं", models.LanguageTelugu: "గోధుమ"},
	"cotton":    {models.LanguageHindi: "कपास", models.LanguageTelugu: "పత్తి"},
	"sugarcane": {models.LanguageHindi: "गन्ना", models.LanguageTelugu: "చెరకు"},
	"maize":     {models.LanguageHindi: "मक्का", models.LanguageTelugu: "మొక్కజొన్న"},
	"soybean":   {models.LanguageHindi: "सोयाबीन", models.LanguageTelugu: "సోయాబీన్"},
	"groundnut": {models.LanguageHindi: "मूंगफली", models.LanguageTelugu: "వేరుశెనగ"},
	"pulses":    {models.LanguageHindi: "दाल", models.LanguageTelugu: "పప్పు ధాన్యాలు"},
}

func cropName(crop string, lang models.Language) string {
	if names, ok := cropNames[crop]; ok {
		if name, ok := names[lang]; ok {
			return name
		}
	}
	return crop
}
