package prediction

import (
	"strings"
	"testing"

	"aibets/predictor/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_FullData(t *testing.T) {
	stats := testStats()
	prompt := BuildPrompt(testFixture(1), testOdds(), &stats[0])

	assert.Contains(t, prompt, "- Match: Liverpool vs Arsenal")
	assert.Contains(t, prompt, "- League: Premier League")
	assert.Contains(t, prompt, "- Date and time: 2025-03-15 15:00 UTC")

	assert.Contains(t, prompt, "Odds (Bet365):")
	assert.Contains(t, prompt, "Match outcome:\n- Home: 2.10\n- Draw: 3.40\n- Away: 3.25")
	assert.Contains(t, prompt, "Totals:\n- Over 2.5: 1.72")
	assert.Contains(t, prompt, "Both teams to score:\n- Yes: 1.62")
	assert.NotContains(t, prompt, "Exact Score")

	assert.Contains(t, prompt, "- Liverpool win: 45%\n")
	assert.Contains(t, prompt, "- Draw: 30%\n")
	assert.Contains(t, prompt, "- Arsenal win: 25%\n")
	assert.Contains(t, prompt, "API Advice: Double chance : Liverpool or draw")
	assert.Contains(t, prompt, "Liverpool form: WWDLW")
	assert.Contains(t, prompt, "Average goals conceded (Arsenal): 1.0")

	assert.NotContains(t, prompt, oddsUnavailable)
	assert.NotContains(t, prompt, predictionsUnavailable)
}

func TestBuildPrompt_SectionOrder(t *testing.T) {
	stats := testStats()
	prompt := BuildPrompt(testFixture(1), testOdds(), &stats[0])

	markers := []string{
		"Match information:",
		"Odds (Bet365):",
		"API Predictions:",
		"Based on this data:",
		"Your answer should be structured as follows:",
		HeaderChainOfThought,
		HeaderFinalPrediction,
		HeaderValueBets,
	}

	last := -1
	for _, m := range markers {
		idx := strings.Index(prompt, m)
		if assert.GreaterOrEqual(t, idx, 0, "missing %q", m) {
			assert.Greater(t, idx, last, "%q out of order", m)
			last = idx
		}
	}

	// Output template: three market/odds/confidence blocks separated by blank lines
	template := prompt[strings.LastIndex(prompt, HeaderValueBets):]
	assert.Equal(t, 3, strings.Count(template, "Market: [market name"))
	assert.Equal(t, 3, strings.Count(template, "Confidence: [number]%"))
	assert.Equal(t, 2, strings.Count(template, "%\n\nMarket:"))
}

func TestBuildPrompt_Placeholders(t *testing.T) {
	prompt := BuildPrompt(testFixture(1), nil, nil)
	assert.Contains(t, prompt, oddsUnavailable)
	assert.Contains(t, prompt, predictionsUnavailable)

	// Bookmaker present but none of the summarised markets
	odds := []models.OddsResponse{{Bookmakers: []models.Bookmaker{{Name: "X", Bets: []models.BetMarket{{Name: "Corners"}}}}}}
	prompt = BuildPrompt(testFixture(1), odds, nil)
	assert.Contains(t, prompt, oddsUnavailable)
}

func TestBuildPrompt_FallbackStats(t *testing.T) {
	prompt := BuildPrompt(testFixture(1), nil, models.FallbackStats())

	assert.Contains(t, prompt, "- Liverpool win: N/A\n")
	assert.Contains(t, prompt, "Liverpool form: N/A")
	assert.Contains(t, prompt, "API Advice: No prediction available")
	assert.NotContains(t, prompt, "N/A%")
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	stats := testStats()
	a := BuildPrompt(testFixture(1), testOdds(), &stats[0])
	b := BuildPrompt(testFixture(1), testOdds(), &stats[0])
	assert.Equal(t, a, b)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "45%", percent("45%"))
	assert.Equal(t, "45%", percent("45"))
	assert.Equal(t, "N/A", percent("N/A"))
	assert.Equal(t, "N/A", percent(""))
}
