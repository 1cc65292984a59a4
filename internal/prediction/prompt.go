package prediction

import (
	"fmt"
	"strings"

	"aibets/predictor/internal/models"
)

// Section headers the model must reproduce and the parser anchors on
const (
	HeaderChainOfThought  = "CHAIN OF THOUGHT:"
	HeaderFinalPrediction = "FINAL PREDICTION:"
	HeaderValueBets       = "VALUE BETS:"
)

const (
	oddsUnavailable        = "Odds not available"
	predictionsUnavailable = "Predictions not available"
	kickoffLayout          = "2006-01-02 15:04 UTC"
)

// oddsSections lists the summarised markets and their headings, in prompt order
var oddsSections = []struct {
	market  string
	heading string
}{
	{models.MarketMatchWinner, "Match outcome"},
	{models.MarketGoalsOverUnder, "Totals"},
	{models.MarketBothTeamsScore, "Both teams to score"},
}

// BuildPrompt renders the analysis request for one fixture.
// odds may be empty and stats may be nil; both degrade to placeholder sections.
func BuildPrompt(fixture *models.FixtureResponse, odds []models.OddsResponse, stats *models.PredictionResponse) string {
	home := fixture.Teams.Home.Name
	away := fixture.Teams.Away.Name

	var b strings.Builder

	b.WriteString("You are an experienced football analyst and betting expert. ")
	b.WriteString("Your task is to analyze the upcoming match and provide in-depth analysis with specific betting recommendations.\n\n")

	b.WriteString("Match information:\n")
	fmt.Fprintf(&b, "- Match: %s vs %s\n", home, away)
	fmt.Fprintf(&b, "- League: %s\n", fixture.League.Name)
	fmt.Fprintf(&b, "- Date and time: %s\n\n", formatKickoff(fixture))

	b.WriteString(oddsSummary(odds))
	b.WriteString("\n\n")

	b.WriteString(statsSummary(home, away, stats))
	b.WriteString("\n\n")

	b.WriteString(`Based on this data:
1. First, provide a detailed analysis (Chain of Thought), considering:
   - Current form of both teams
   - Head-to-head history
   - Injuries and suspensions (if information is available)
   - Tactical analysis
   - Key factors influencing the outcome
   - League specifics and match conditions
2. Then provide a short final prediction (Final Prediction) in 2-3 sentences.
3. Finally, list TOP-3 value bets in the following format:
   Market: [market name]
   Odds: [number]
   Confidence: [number]%

`)

	b.WriteString("Your answer should be structured as follows:\n\n")
	b.WriteString(HeaderChainOfThought + "\n[Your detailed analysis]\n\n")
	b.WriteString(HeaderFinalPrediction + "\n[Brief final prediction]\n\n")
	b.WriteString(HeaderValueBets + "\n")
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, "Market: [market name %d]\nOdds: [number]\nConfidence: [number]%%\n", i)
		if i < 3 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func formatKickoff(fixture *models.FixtureResponse) string {
	kickoff := fixture.Kickoff()
	if kickoff.IsZero() {
		return "TBD"
	}
	return kickoff.Format(kickoffLayout)
}

// oddsSummary lists the known markets of the first bookmaker
func oddsSummary(odds []models.OddsResponse) string {
	bookmaker := models.FirstBookmaker(odds)
	if bookmaker == nil {
		return oddsUnavailable
	}

	var b strings.Builder
	for _, section := range oddsSections {
		market := bookmaker.Market(section.market)
		if market == nil || len(market.Values) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n", section.heading)
		for _, v := range market.Values {
			fmt.Fprintf(&b, "- %s: %s\n", v.Value, v.Odd)
		}
	}

	if b.Len() == 0 {
		return oddsUnavailable
	}
	return "Odds (" + bookmaker.Name + "):\n" + strings.TrimRight(b.String(), "\n")
}

// statsSummary renders the provider's own prediction and team form
func statsSummary(home, away string, stats *models.PredictionResponse) string {
	if stats == nil || !stats.HasPrediction() {
		return predictionsUnavailable
	}

	var b strings.Builder
	p := stats.Predictions

	b.WriteString("API Predictions:\n")
	fmt.Fprintf(&b, "- %s win: %s\n", home, percent(p.Percent.Home))
	fmt.Fprintf(&b, "- Draw: %s\n", percent(p.Percent.Draw))
	fmt.Fprintf(&b, "- %s win: %s\n", away, percent(p.Percent.Away))

	if p.Advice != "" {
		fmt.Fprintf(&b, "\nAPI Advice: %s\n", p.Advice)
	}

	h, a := stats.Teams.Home.League, stats.Teams.Away.League
	fmt.Fprintf(&b, "\n%s form: %s\n", home, orNA(h.Form))
	fmt.Fprintf(&b, "%s form: %s\n\n", away, orNA(a.Form))
	fmt.Fprintf(&b, "Average goals scored (%s): %s\n", home, orNA(h.Goals.For.Average.Total))
	fmt.Fprintf(&b, "Average goals conceded (%s): %s\n", home, orNA(h.Goals.Against.Average.Total))
	fmt.Fprintf(&b, "Average goals scored (%s): %s\n", away, orNA(a.Goals.For.Average.Total))
	fmt.Fprintf(&b, "Average goals conceded (%s): %s", away, orNA(a.Goals.Against.Average.Total))

	return b.String()
}

// percent normalises "45%" and "45" to "45%" and leaves placeholders alone
func percent(v string) string {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
	if v == "" || v == models.NotAvailable {
		return models.NotAvailable
	}
	return v + "%"
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return models.NotAvailable
	}
	return v
}
