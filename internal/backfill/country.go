package backfill

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var countryAliases = map[string]string{
	"united states":            "US",
	"united states of america": "US",
	"usa":                      "US",
	"netherlands":              "NL",
	"the netherlands":          "NL",
	"holland":                  "NL",
	"vietnam":                  "VN",
	"viet nam":                 "VN",
	"south korea":              "KR",
	"korea":                    "KR",
	"republic of korea":        "KR",
	"uk":                       "GB",
	"great britain":            "GB",
	"england":                  "GB",
	"turkey":                   "TR",
	"czech republic":           "CZ",
	"russia":                   "RU",
}

var countryNames = sync.OnceValue(func() map[string]string {
	names := make(map[string]string)
	namer := display.English.Regions()

	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			code := string([]rune{a, b})
			region, err := language.ParseRegion(code)
			// Устаревшие коды (UK, FX, ZR) делят название с действующими.
			if err != nil || !region.IsCountry() || region.Canonicalize() != region {
				continue
			}
			name := strings.ToLower(namer.Name(region))
			if _, ok := names[name]; ok || name == "" {
				continue
			}
			names[name] = region.String()
		}
	}
	return names
})

// NormalizeCountry переводит название или код страны в код ISO 3166-1 alpha-2.
// Возвращает пустую строку, если страну определить не удалось.
func NormalizeCountry(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if code, ok := countryAliases[key]; ok {
		return code
	}

	if len(s) == 2 {
		region, err := language.ParseRegion(strings.ToUpper(s))
		if err == nil && region.IsCountry() {
			return region.Canonicalize().String()
		}
		return ""
	}

	return countryNames()[key]
}
