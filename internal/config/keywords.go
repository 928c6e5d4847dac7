package config

// Default lexical tables. These mirror the curated production lists for the
// Russian banking news domain; a config file extends rather than replaces them
// only when the corresponding section is left empty.

func defaultPhraseSynonyms() map[string][]string {
	return map[string][]string{
		"ставка цб":       {"ключевая ставка", "ставка цб", "ставка центробанка", "ставка банка россии"},
		"ключевая ставка": {"ключевая ставка", "ставка цб", "ставка центробанка"},
		"курс рубля":      {"курс рубля", "курс доллара", "рубль доллар", "валютный курс"},
		"курс доллара":    {"курс доллара", "курс рубля", "доллар рубль", "валютный курс"},
	}
}

func defaultSynonyms() map[string][]string {
	return map[string][]string{
		"лукойл":   {"лукойл", "lukoil"},
		"роснефть": {"роснефть", "rosneft"},
		"газпром":  {"газпром", "gazprom"},
		"сбербанк": {"сбербанк", "sberbank", "сбер"},
		"втб":      {"втб", "vtb"},
		"санкции":  {"санкции", "ограничения"},
		"цб":       {"цб", "центробанк", "банк россии"},
		"рубль":    {"рубль", "рубля", "руб"},
		"доллар":   {"доллар", "usd"},
		"евро":     {"евро", "eur"},
	}
}

func defaultStopWords() []string {
	return []string{
		// Prepositions and conjunctions
		"про", "о", "об", "в", "на", "с", "по", "для", "к", "у", "из", "от",
		"и", "или", "а", "но", "за", "перед", "между", "под", "над",
		// Imperative query noise
		"покажи", "найди", "дай", "ищи", "смотри",
	}
}

func defaultHighAuthority() []string {
	return []string{"РБК", "Коммерсантъ", "Ведомости", "Интерфакс", "ТАСС"}
}

func defaultMediumAuthority() []string {
	return []string{"Известия", "Российская газета", "Banki.ru"}
}

func defaultCriticalKeywords() []string {
	return []string{
		"сбербанк", "сбер", "центробанк", "цб", "банк россии",
		"ключевая ставка", "ставка цб",
	}
}

func defaultHighKeywords() []string {
	return []string{
		"банк", "кредит", "вклад", "депозит", "ипотека",
		"рубль", "валюта", "инфляция", "финанс",
	}
}

func defaultExcludeKeywords() []string {
	return []string{
		"спорт", "футбол", "хоккей", "погода", "гороскоп", "шоу-бизнес",
	}
}

func defaultBankingKeywords() []string {
	return []string{
		"банк", "bank", "сбер", "втб", "альфа", "тинькофф",
		"газпромбанк", "россельхозбанк", "уралсиб", "открытие",
		"цб", "центробанк", "центральный банк", "фрс", "ecb",
	}
}

func defaultMorphForms() map[string][]string {
	return map[string][]string{
		"ставка":   {"ставка", "ставки", "ставку", "ставке", "ставкой", "ставок", "ставкам", "ставками"},
		"банк":     {"банк", "банка", "банку", "банком", "банке", "банки", "банков", "банкам", "банками"},
		"кредит":   {"кредит", "кредита", "кредиту", "кредитом", "кредите", "кредиты", "кредитов", "кредитам"},
		"вклад":    {"вклад", "вклада", "вкладу", "вкладом", "вкладе", "вклады", "вкладов", "вкладам"},
		"ипотека":  {"ипотека", "ипотеки", "ипотеку", "ипотеке", "ипотекой", "ипотек"},
		"рубль":    {"рубль", "рубля", "рублю", "рублем", "рублём", "рубле", "рубли", "рублей", "рублям", "рублями"},
		"доллар":   {"доллар", "доллара", "доллару", "долларом", "долларе", "доллары", "долларов", "долларам"},
		"евро":     {"евро"},
		"валюта":   {"валюта", "валюты", "валюту", "валюте", "валютой", "валют", "валютам"},
		"инфляция": {"инфляция", "инфляции", "инфляцию", "инфляцией"},
		"санкция":  {"санкция", "санкции", "санкцию", "санкцией", "санкций", "санкциям", "санкциями"},
		"акция":    {"акция", "акции", "акцию", "акцией", "акций", "акциям", "акциями"},
		"прибыль":  {"прибыль", "прибыли", "прибылью", "прибылей", "прибылям"},
		"курс":     {"курс", "курса", "курсу", "курсом", "курсе", "курсы", "курсов", "курсам"},
		"налог":    {"налог", "налога", "налогу", "налогом", "налоге", "налоги", "налогов", "налогам"},
	}
}

func defaultEntities() []EntityLexeme {
	return []EntityLexeme{
		{Canonical: "Сбербанк", Type: "organization", Aliases: []string{"сбербанк", "сбербанка", "сбербанку", "сбербанком", "сбер", "sberbank"}},
		{Canonical: "ВТБ", Type: "organization", Aliases: []string{"втб", "vtb"}},
		{Canonical: "Газпром", Type: "organization", Aliases: []string{"газпром", "газпрома", "газпрому", "газпромом", "gazprom"}},
		{Canonical: "ЦБ", Type: "organization", Aliases: []string{"цб", "центробанк", "центробанка", "банк россии", "банка россии"}},
		{Canonical: "Москва", Type: "location", Aliases: []string{"москва", "москве", "москвы", "москву", "москвой"}},
		{Canonical: "Россия", Type: "location", Aliases: []string{"россия", "россии", "россию", "россией", "рф"}},
	}
}

func (k *KeywordsConfig) applyDefaults() {
	if len(k.PhraseSynonyms) == 0 {
		k.PhraseSynonyms = defaultPhraseSynonyms()
	}
	if len(k.Synonyms) == 0 {
		k.Synonyms = defaultSynonyms()
	}
	if len(k.StopWords) == 0 {
		k.StopWords = defaultStopWords()
	}
	if len(k.HighAuthority) == 0 {
		k.HighAuthority = defaultHighAuthority()
	}
	if len(k.MediumAuthority) == 0 {
		k.MediumAuthority = defaultMediumAuthority()
	}
	if len(k.Critical) == 0 {
		k.Critical = defaultCriticalKeywords()
	}
	if len(k.High) == 0 {
		k.High = defaultHighKeywords()
	}
	if len(k.Exclude) == 0 {
		k.Exclude = defaultExcludeKeywords()
	}
	if len(k.Banking) == 0 {
		k.Banking = defaultBankingKeywords()
	}
	if len(k.Entities) == 0 {
		k.Entities = defaultEntities()
	}
	if len(k.MorphForms) == 0 {
		k.MorphForms = defaultMorphForms()
	}
}
