// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classifier

import "regexp"

// Lexicons are matched against folded text: Unicode-normalized,
// diacritics stripped, lowercased. Entries here must already be in that
// folded form ("ngày mai" appears as "ngay mai").

// weatherLexicon covers en/vi/fr/es/de plus the handful of CJK terms that
// show up in mixed-language claims.
var weatherLexicon = []string{
	// English
	"weather", "rain", "rainy", "snow", "snowing", "storm", "typhoon",
	"hurricane", "temperature", "forecast", "sunny", "cloudy", "humidity",
	"heatwave", "degrees", "celsius", "windy", "drizzle", "thunder",
	// Vietnamese (folded)
	"thoi tiet", "mua", "mua rao", "mua to", "nang", "nang nong", "bao",
	"ap thap", "nhiet do", "du bao", "am uot", "do am", "tuyet", "gio manh",
	"ret", "lanh", "nong buc", "suong mu", "giong",
	// French / Spanish / German
	"meteo", "pluie", "neige", "orage", "tempete", "canicule",
	"clima", "lluvia", "nieve", "tormenta", "pronostico", "calor",
	"wetter", "regen", "schnee", "sturm", "gewitter", "hitzewelle",
	// CJK
	"天气", "天氣", "下雨", "台风", "天気", "날씨",
}

// commonCities is the fast path for city extraction. Folded form.
var commonCities = []string{
	"hanoi", "ha noi", "ho chi minh", "ho chi minh city", "saigon", "sai gon",
	"da nang", "hai phong", "can tho", "hue", "nha trang", "da lat", "vung tau",
	"bangkok", "singapore", "kuala lumpur", "jakarta", "manila", "phnom penh",
	"vientiane", "yangon", "tokyo", "osaka", "seoul", "beijing", "shanghai",
	"hong kong", "taipei", "new york", "los angeles", "chicago", "london",
	"paris", "berlin", "madrid", "rome", "moscow", "sydney", "melbourne",
	"toronto", "dubai", "mumbai", "new delhi", "delhi", "cairo",
}

// timeStopwords are words that pattern-based city extraction must never
// return as a city candidate. Folded form.
var timeStopwords = map[string]bool{
	"today": true, "tomorrow": true, "yesterday": true, "tonight": true,
	"morning": true, "afternoon": true, "evening": true, "night": true,
	"week": true, "month": true, "year": true, "weekend": true,
	"hom nay": true, "ngay mai": true, "hom qua": true, "toi nay": true,
	"sang": true, "chieu": true, "toi": true, "dem": true,
	"tuan": true, "thang": true, "nam": true, "mai": true,
	"now": true, "later": true, "soon": true,
}

// cityPatterns extract a place name following a locative affix. Applied to
// folded text; the capture group is the candidate.
var cityPatterns = []*regexp.Regexp{
	// English / romance prepositions
	regexp.MustCompile(`\b(?:in|at|near)\s+([a-z][a-z .'-]{2,40}?)(?:\s+(?:today|tomorrow|yesterday|this|next|last|on|will|is|was|city|province)\b|[,.?!]|$)`),
	// Vietnamese: ở / tại / thành phố X (folded: o / tai / thanh pho)
	regexp.MustCompile(`\b(?:o|tai)\s+([a-z][a-z .'-]{2,40}?)(?:\s+(?:hom|ngay|tuan|thang|nam|se|dang|co|vao)\b|[,.?!]|$)`),
	regexp.MustCompile(`\bthanh pho\s+([a-z][a-z .'-]{2,40}?)(?:[,.?!]|\s+(?:hom|ngay|se|co)\b|$)`),
	// French / Spanish / German
	regexp.MustCompile(`\b(?:a|en|dans|bei|im)\s+([a-z][a-z .'-]{2,40}?)(?:[,.?!]|$)`),
	// "X city" / "X province" suffixes
	regexp.MustCompile(`\b([a-z][a-z .'-]{2,40}?)\s+(?:city|province|tinh)\b`),
}

// titleCaseNGram matches runs of two or more capitalized Unicode words in
// the original (unfolded) text. Used as the last-resort city extractor.
var titleCaseNGram = regexp.MustCompile(`\p{Lu}[\p{L}']+(?:\s+\p{Lu}[\p{L}']+)+`)

// relative-time patterns, applied to folded text.
var (
	inNDaysPattern   = regexp.MustCompile(`\b(?:in\s+(\d{1,2})\s+days?|(\d{1,2})\s+ngay\s+(?:nua|toi))\b`)
	tomorrowPattern  = regexp.MustCompile(`\b(?:tomorrow|ngay mai|sang mai|chieu mai|toi mai|mai)\b`)
	todayPattern     = regexp.MustCompile(`\b(?:today|tonight|hom nay|toi nay|right now|bay gio)\b`)
	nextWeekPattern  = regexp.MustCompile(`\b(?:next week|tuan toi|tuan sau)\b`)
	yesterdayPattern = regexp.MustCompile(`\b(?:yesterday|hom qua|toi qua|dem qua)\b`)
	historicalPhrase = regexp.MustCompile(`\b(?:last year|nam ngoai|nam truoc|(\d{1,3})\s+years?\s+ago|(\d{1,3})\s+nam\s+truoc|thang truoc|last month|in\s+(19|20)\d{2}\b)`)
)

// part-of-day keywords, folded.
var partOfDayKeywords = []struct {
	part string
	re   *regexp.Regexp
}{
	{"morning", regexp.MustCompile(`\b(?:morning|buoi sang|sang som|sang mai|sang nay|\bsang\b)`)},
	{"afternoon", regexp.MustCompile(`\b(?:afternoon|buoi chieu|chieu nay|chieu mai|\bchieu\b)`)},
	{"evening", regexp.MustCompile(`\b(?:evening|tonight|buoi toi|toi nay|toi mai|\btoi\b|\bdem\b)`)},
}

// commonKnowledge is the registry of universally settled statements.
// Each entry carries the regex (folded text) and whether the canonical
// statement is true; the classifier only needs the match, but the truth
// flag keeps the registry self-describing.
var commonKnowledge = []struct {
	re   *regexp.Regexp
	true bool
}{
	{regexp.MustCompile(`sun rises? in the east|mat troi moc (?:o |dang )?(?:phia |huong )?dong`), true},
	{regexp.MustCompile(`sun sets? in the west|mat troi lan (?:o |dang )?(?:phia |huong )?tay`), true},
	{regexp.MustCompile(`earth (?:is round|orbits the sun)|trai dat (?:hinh cau|quay quanh mat troi)`), true},
	{regexp.MustCompile(`water boils at 100|nuoc soi o 100`), true},
	{regexp.MustCompile(`\b2\s*\+\s*2\s*=\s*4\b`), true},
	{regexp.MustCompile(`\b1\s*\+\s*1\s*=\s*2\b`), true},
	{regexp.MustCompile(`paris is the capital of france|paris la thu do (?:cua )?(?:nuoc )?phap`), true},
	{regexp.MustCompile(`hanoi is the capital of vietnam|ha noi la thu do (?:cua )?(?:nuoc )?viet nam`), true},
	{regexp.MustCompile(`tokyo is the capital of japan|tokyo la thu do (?:cua )?(?:nuoc )?nhat ban`), true},
	{regexp.MustCompile(`london is the capital of (?:england|the uk|the united kingdom)`), true},
	{regexp.MustCompile(`there are (?:seven|7) continents|co (?:bay|7) chau luc`), true},
	{regexp.MustCompile(`a week has (?:seven|7) days|mot tuan co (?:bay|7) ngay`), true},
}

// historicalClaimTypes are planner claim-type strings that force low
// volatility regardless of other signals.
var historicalClaimTypes = map[string]bool{
	"historical": true,
	"history":    true,
	"historic":   true,
}
