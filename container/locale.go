package container

// Undetermined is a language tag used when book does not declare one.
const Undetermined = "und"

// locales maps MOBI locale language code to language tags, MOBI region code
// shifted right by 2 selects regional variant. Empty slots have no variant.
var locales = map[uint32][]string{
	1: {"ar", "ar-SA", "ar-IQ", "ar-EG", "ar-LY", "ar-DZ", "ar-MA", "ar-TN", "ar-OM", "ar-YE", "ar-SY", "ar-JO", "ar-LB", "ar-KW", "ar-AE", "ar-BH", "ar-QA"},
	2: {"bg"},
	3: {"ca"},
	4: {"zh", "zh-TW", "zh-CN", "zh-HK", "zh-SG"},
	5: {"cs"},
	6: {"da"},
	7: {"de", "de-DE", "de-CH", "de-AT", "de-LU", "de-LI"},
	8: {"el"},
	9: {"en", "en-US", "en-GB", "en-AU", "en-CA", "en-NZ", "en-IE", "en-ZA", "en-JM", "", "en-BZ", "en-TT", "en-ZW", "en-PH"},
	10: {"es", "es-ES", "es-MX", "", "es-GT", "es-CR", "es-PA", "es-DO", "es-VE", "es-CO", "es-PE", "es-AR", "es-EC", "es-CL", "es-UY", "es-PY", "es-BO", "es-SV", "es-HN", "es-NI", "es-PR"},
	11: {"fi"},
	12: {"fr", "fr-FR", "fr-BE", "fr-CA", "fr-CH", "fr-LU", "fr-MC"},
	13: {"he"},
	14: {"hu"},
	15: {"is"},
	16: {"it", "it-IT", "it-CH"},
	17: {"ja"},
	18: {"ko"},
	19: {"nl", "nl-NL", "nl-BE"},
	20: {"no", "nb", "nn"},
	21: {"pl"},
	22: {"pt", "pt-BR", "pt-PT"},
	23: {"rm"},
	24: {"ro"},
	25: {"ru"},
	26: {"hr", "", "sr"},
	27: {"sk"},
	28: {"sq"},
	29: {"sv", "sv-SE", "sv-FI"},
	30: {"th"},
	31: {"tr"},
	32: {"ur"},
	33: {"id"},
	34: {"uk"},
	35: {"be"},
	36: {"sl"},
	37: {"et"},
	38: {"lv"},
	39: {"lt"},
	41: {"fa"},
	42: {"vi"},
	43: {"hy"},
	44: {"az"},
	45: {"eu"},
	46: {"hsb"},
	47: {"mk"},
	48: {"st"},
	49: {"ts"},
	50: {"tn"},
	52: {"xh"},
	53: {"zu"},
	54: {"af"},
	55: {"ka"},
	56: {"fo"},
	57: {"hi"},
	58: {"mt"},
	59: {"se"},
	62: {"ms"},
	63: {"kk"},
	65: {"sw"},
	67: {"uz", "", "uz-UZ"},
	68: {"tt"},
	69: {"bn"},
	70: {"pa"},
	71: {"gu"},
	72: {"or"},
	73: {"ta"},
	74: {"te"},
	75: {"kn"},
	76: {"ml"},
	77: {"as"},
	78: {"mr"},
	79: {"sa"},
	82: {"cy", "cy-GB"},
	83: {"gl", "gl-ES"},
	87: {"kok"},
	97: {"ne"},
	98: {"fy"},
}

// LocaleLanguage returns language tag for MOBI locale, falling back to base
// language for unknown regions and to Undetermined for unknown languages.
func LocaleLanguage(language, region uint32) string {
	tags, ok := locales[language]
	if !ok || len(tags) == 0 {
		return Undetermined
	}
	if i := int(region >> 2); i < len(tags) && tags[i] != "" {
		return tags[i]
	}
	return tags[0]
}
