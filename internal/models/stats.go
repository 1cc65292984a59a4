package models

// NotAvailable is the placeholder used when a statistic is missing
const NotAvailable = "N/A"

// PredictionResponse is one element of the API-Football /predictions response.
// It carries the provider's own win percentages, advice and team form.
type PredictionResponse struct {
	Predictions ProviderPrediction `json:"predictions"`
	League      LeagueInfo         `json:"league"`
	Teams       TeamStatsPair      `json:"teams"`
	Comparison  Comparison         `json:"comparison"`
}

// ProviderPrediction is the predictions block
type ProviderPrediction struct {
	Winner    PredictedWinner `json:"winner"`
	WinOrDraw *bool           `json:"win_or_draw"`
	UnderOver *string         `json:"under_over"`
	Goals     struct {
		Home string `json:"home"`
		Away string `json:"away"`
	} `json:"goals"`
	Advice  string         `json:"advice"`
	Percent OutcomePercent `json:"percent"`
}

// PredictedWinner names the provider's favourite
type PredictedWinner struct {
	ID      *int   `json:"id"`
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

// OutcomePercent holds 1X2 probabilities as strings such as "45%"
type OutcomePercent struct {
	Home string `json:"home"`
	Draw string `json:"draw"`
	Away string `json:"away"`
}

// TeamStatsPair holds home and away team statistics
type TeamStatsPair struct {
	Home TeamStats `json:"home"`
	Away TeamStats `json:"away"`
}

// TeamStats is a team's recent and league form
type TeamStats struct {
	ID     int         `json:"id"`
	Name   string      `json:"name"`
	Last5  Last5Stats  `json:"last_5"`
	League LeagueStats `json:"league"`
}

// Last5Stats summarises the last five matches
type Last5Stats struct {
	Form string `json:"form"`
	Att  string `json:"att"`
	Def  string `json:"def"`
}

// LeagueStats is the league-wide form and goal averages
type LeagueStats struct {
	Form  string `json:"form"`
	Goals struct {
		For     GoalAverages `json:"for"`
		Against GoalAverages `json:"against"`
	} `json:"goals"`
}

// GoalAverages holds average goals per match
type GoalAverages struct {
	Average struct {
		Home  string `json:"home"`
		Away  string `json:"away"`
		Total string `json:"total"`
	} `json:"average"`
}

// Comparison is the provider's head-to-head percentage comparison
type Comparison struct {
	Form  ComparisonPair `json:"form"`
	Att   ComparisonPair `json:"att"`
	Def   ComparisonPair `json:"def"`
	H2H   ComparisonPair `json:"h2h"`
	Goals ComparisonPair `json:"goals"`
	Total ComparisonPair `json:"total"`
}

// ComparisonPair is a home/away percentage pair
type ComparisonPair struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

// HasPrediction reports whether the payload carries usable provider percentages
func (p *PredictionResponse) HasPrediction() bool {
	pct := p.Predictions.Percent
	return pct.Home != "" || pct.Draw != "" || pct.Away != ""
}

// FallbackStats returns the payload used when provider statistics cannot be fetched.
// Every field is set to "N/A" so the prompt still has a complete statistics section.
func FallbackStats() *PredictionResponse {
	stats := &PredictionResponse{}
	stats.Predictions.Percent = OutcomePercent{Home: NotAvailable, Draw: NotAvailable, Away: NotAvailable}
	stats.Predictions.Advice = "No prediction available"

	for _, team := range []*TeamStats{&stats.Teams.Home, &stats.Teams.Away} {
		team.League.Form = NotAvailable
		team.League.Goals.For.Average.Total = NotAvailable
		team.League.Goals.Against.Average.Total = NotAvailable
	}

	return stats
}
