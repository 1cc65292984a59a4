package prediction

import (
	"regexp"
	"strconv"
	"strings"

	"aibets/predictor/internal/models"
)

// Result is the typed form of a model reply
type Result struct {
	ChainOfThought  string
	FinalPrediction string
	ValueBets       []models.ValueBet
}

var (
	chainHeader = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(HeaderChainOfThought))
	finalHeader = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(HeaderFinalPrediction))
	betsHeader  = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(HeaderValueBets))

	blockSeparator = regexp.MustCompile(`\n\s*\n`)

	// Labels stay on their own line; '*' covers markdown bold around the label
	marketLabel     = regexp.MustCompile(`(?i)Market:[ \t]*(.+)`)
	oddsLabel       = regexp.MustCompile(`(?i)Odds:[ \t*]*(\d+(?:\.\d+)?)`)
	confidenceLabel = regexp.MustCompile(`(?i)Confidence:[ \t*]*(\d+)[ \t]*%`)
)

// ParseResponse extracts the three sections of a model reply.
// It never fails: missing sections come back empty and malformed bets are dropped.
//
// Grammar, headers matched case-insensitively:
//
//	CHAIN OF THOUGHT: <text up to FINAL PREDICTION: or end>
//	FINAL PREDICTION: <text up to VALUE BETS: or end>
//	VALUE BETS:       <blank-line separated Market/Odds/Confidence blocks to end>
func ParseResponse(text string) Result {
	return Result{
		ChainOfThought:  section(text, chainHeader, finalHeader),
		FinalPrediction: section(text, finalHeader, betsHeader),
		ValueBets:       parseValueBets(section(text, betsHeader, nil)),
	}
}

// section returns the trimmed text after start and before the next end match
func section(text string, start, end *regexp.Regexp) string {
	loc := start.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	rest := text[loc[1]:]
	if end != nil {
		if e := end.FindStringIndex(rest); e != nil {
			rest = rest[:e[0]]
		}
	}

	return strings.Trim(rest, " \t\r\n*")
}

func parseValueBets(segment string) []models.ValueBet {
	bets := []models.ValueBet{}
	if segment == "" {
		return bets
	}

	for _, block := range blockSeparator.Split(segment, -1) {
		if bet, ok := parseBlock(block); ok {
			bets = append(bets, bet)
		}
	}
	return bets
}

// parseBlock reads one Market/Odds/Confidence group. ok is false if any label is missing or invalid.
func parseBlock(block string) (models.ValueBet, bool) {
	m := marketLabel.FindStringSubmatch(block)
	o := oddsLabel.FindStringSubmatch(block)
	c := confidenceLabel.FindStringSubmatch(block)
	if m == nil || o == nil || c == nil {
		return models.ValueBet{}, false
	}

	market := strings.Trim(m[1], " \t\r*")
	if market == "" {
		return models.ValueBet{}, false
	}

	odds, err := strconv.ParseFloat(o[1], 64)
	if err != nil || odds < 1.0 {
		return models.ValueBet{}, false
	}

	confidence, err := strconv.Atoi(c[1])
	if err != nil || confidence > 100 {
		return models.ValueBet{}, false
	}

	return models.ValueBet{Market: market, Odds: odds, Confidence: confidence}, true
}
