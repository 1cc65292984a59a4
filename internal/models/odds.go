package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Markets the prompt builder summarises, by API-Football bet name
const (
	MarketMatchWinner    = "Match Winner"
	MarketGoalsOverUnder = "Goals Over/Under"
	MarketBothTeamsScore = "Both Teams Score"
)

// OddsResponse is one bookmaker grouping from the API-Football /odds response
type OddsResponse struct {
	League     LeagueInfo  `json:"league"`
	Fixture    OddsFixture `json:"fixture"`
	Update     string      `json:"update"`
	Bookmakers []Bookmaker `json:"bookmakers"`
}

// OddsFixture is the reduced fixture block carried by odds responses
type OddsFixture struct {
	ID        int    `json:"id"`
	Timezone  string `json:"timezone"`
	Date      string `json:"date"`
	Timestamp int64  `json:"timestamp"`
}

// Bookmaker holds all markets priced by one bookmaker
type Bookmaker struct {
	ID   int         `json:"id"`
	Name string      `json:"name"`
	Bets []BetMarket `json:"bets"`
}

// BetMarket is a single market (e.g. "Match Winner") with its outcomes
type BetMarket struct {
	ID     int        `json:"id"`
	Name   string     `json:"name"`
	Values []OddValue `json:"values"`
}

// OddValue is one outcome of a market and its decimal price
type OddValue struct {
	Value FlexString `json:"value"`
	Odd   FlexString `json:"odd"`
}

// Market returns the named market, or nil when the bookmaker does not price it
func (b *Bookmaker) Market(name string) *BetMarket {
	for i := range b.Bets {
		if b.Bets[i].Name == name {
			return &b.Bets[i]
		}
	}
	return nil
}

// FirstBookmaker returns the first bookmaker of the first grouping that has one
func FirstBookmaker(groupings []OddsResponse) *Bookmaker {
	for i := range groupings {
		if len(groupings[i].Bookmakers) > 0 {
			return &groupings[i].Bookmakers[0]
		}
	}
	return nil
}

// FlexString accepts a JSON string or number and keeps its text form.
// API-Football is not consistent about quoting outcome labels and prices.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the raw text
func (f FlexString) String() string {
	return string(f)
}

// Float parses the value as a float
func (f FlexString) Float() (float64, bool) {
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
