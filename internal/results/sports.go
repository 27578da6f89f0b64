package results

import "strings"

// Tabela fixa de normalização de chaves de esporte pro formato do
// provedor (ex: "mlb" -> "baseball_mlb"). Chaves já canônicas passam
// direto; chave desconhecida volta inalterada com ok=false — o
// orquestrador reporta esse caso separadamente de "esporte conhecido
// sem resultados".
var sportAliases = map[string]string{
	"mlb":      "baseball_mlb",
	"nfl":      "americanfootball_nfl",
	"ncaaf":    "americanfootball_ncaaf",
	"nba":      "basketball_nba",
	"ncaab":    "basketball_ncaab",
	"nhl":      "icehockey_nhl",
	"mls":      "soccer_usa_mls",
	"epl":      "soccer_epl",
	"baseball": "baseball_mlb",
}

var canonicalSports = map[string]bool{
	"baseball_mlb":           true,
	"americanfootball_nfl":   true,
	"americanfootball_ncaaf": true,
	"basketball_nba":         true,
	"basketball_ncaab":       true,
	"icehockey_nhl":          true,
	"soccer_usa_mls":         true,
	"soccer_epl":             true,
}

// NormalizeSportKey resolve a chave de esporte de uma aposta pra chave
// canônica do provedor.
func NormalizeSportKey(sport string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(sport))
	if key == "" {
		return sport, false
	}
	if canonical, ok := sportAliases[key]; ok {
		return canonical, true
	}
	if canonicalSports[key] {
		return key, true
	}
	return key, false
}
