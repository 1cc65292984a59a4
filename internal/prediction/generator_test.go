package prediction

import (
	"context"
	"errors"
	"testing"
	"time"

	"aibets/predictor/internal/client"
	"aibets/predictor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Success(t *testing.T) {
	sports := &fakeSports{fixture: testFixture(7), odds: testOdds(), stats: testStats()}
	llm := &fakeLLM{reply: wellFormedReply}
	store := &fakeStore{}

	id, err := newTestGenerator(sports, llm, store).Generate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	assert.Equal(t, []string{"fixture", "odds", "predictions"}, sports.calls)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Liverpool vs Arsenal")

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, 7, row.FixtureID)
	assert.Equal(t, models.PredictionTypePreMatch, row.Type)
	assert.Equal(t, "Liverpool are strong at home.", row.ChainOfThought)
	assert.Equal(t, "Liverpool edge it 2-1.", row.FinalPrediction)
	assert.Equal(t, "o4-mini", row.ModelVersion)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC), row.GeneratedAt)

	bets, err := row.ValueBets()
	require.NoError(t, err)
	assert.Equal(t, []models.ValueBet{
		{Market: "Home Win", Odds: 2.10, Confidence: 60},
		{Market: "Both Teams To Score - Yes", Odds: 1.62, Confidence: 70},
	}, bets)
}

func TestGenerate_FixtureMissingIsFatal(t *testing.T) {
	sports := &fakeSports{fixtureErr: client.ErrNotFound}
	llm := &fakeLLM{reply: wellFormedReply}
	store := &fakeStore{}

	id, err := newTestGenerator(sports, llm, store).Generate(context.Background(), 7)
	assert.Zero(t, id)
	assert.True(t, errors.Is(err, client.ErrNotFound))
	assert.Empty(t, llm.prompts)
	assert.Empty(t, store.rows)
	assert.Equal(t, []string{"fixture"}, sports.calls)
}

func TestGenerate_OddsFailureIsNotFatal(t *testing.T) {
	sports := &fakeSports{fixture: testFixture(7), oddsErr: errors.New("timeout"), stats: testStats()}
	llm := &fakeLLM{reply: wellFormedReply}
	store := &fakeStore{}

	id, err := newTestGenerator(sports, llm, store).Generate(context.Background(), 7)
	require.NoError(t, err)
	assert.NotZero(t, id)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], oddsUnavailable)
}

func TestGenerate_StatsFailureUsesFallback(t *testing.T) {
	for name, sports := range map[string]*fakeSports{
		"error": {fixture: testFixture(7), odds: testOdds(), statsErr: errors.New("quota")},
		"empty": {fixture: testFixture(7), odds: testOdds()},
	} {
		t.Run(name, func(t *testing.T) {
			llm := &fakeLLM{reply: wellFormedReply}
			store := &fakeStore{}

			id, err := newTestGenerator(sports, llm, store).Generate(context.Background(), 7)
			require.NoError(t, err)
			assert.NotZero(t, id)
			require.Len(t, llm.prompts, 1)
			assert.Contains(t, llm.prompts[0], "- Liverpool win: N/A")
		})
	}
}

func TestGenerate_LLMFailureIsFatal(t *testing.T) {
	sports := &fakeSports{fixture: testFixture(7)}
	llm := &fakeLLM{err: errors.New("chat completion failed (status 500)")}
	store := &fakeStore{}

	id, err := newTestGenerator(sports, llm, store).Generate(context.Background(), 7)
	assert.Zero(t, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Empty(t, store.rows)
}

func TestGenerate_StoreFailureIsFatal(t *testing.T) {
	sports := &fakeSports{fixture: testFixture(7)}
	llm := &fakeLLM{reply: wellFormedReply}

	id, err := newTestGenerator(sports, llm, &fakeStore{err: errors.New("connection reset")}).Generate(context.Background(), 7)
	assert.Zero(t, id)
	assert.Error(t, err)

	id, err = newTestGenerator(sports, llm, &fakeStore{zeroID: true}).Generate(context.Background(), 7)
	assert.Zero(t, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no identifier")
}

func TestGenerate_UnstructuredReplyGetsFallbacks(t *testing.T) {
	sports := &fakeSports{fixture: testFixture(7)}
	llm := &fakeLLM{reply: "I cannot help with that."}
	store := &fakeStore{}

	id, err := newTestGenerator(sports, llm, store).Generate(context.Background(), 7)
	require.NoError(t, err)
	assert.NotZero(t, id)

	row := store.rows[0]
	assert.Equal(t, "Analysis for Liverpool vs Arsenal could not be generated. Please check the fixture details and try again.", row.ChainOfThought)
	assert.Equal(t, "Prediction for Liverpool vs Arsenal could not be generated.", row.FinalPrediction)

	bets, err := row.ValueBets()
	require.NoError(t, err)
	assert.Equal(t, []models.ValueBet{models.NoValueBet}, bets)
}

func TestGenerate_PartialReplyKeepsParsedText(t *testing.T) {
	sports := &fakeSports{fixture: testFixture(7)}
	llm := &fakeLLM{reply: "CHAIN OF THOUGHT:\nClose game.\nFINAL PREDICTION:\nDraw."}
	store := &fakeStore{}

	_, err := newTestGenerator(sports, llm, store).Generate(context.Background(), 7)
	require.NoError(t, err)

	row := store.rows[0]
	assert.Equal(t, "Close game.", row.ChainOfThought)
	assert.Equal(t, "Draw.", row.FinalPrediction)
	bets, err := row.ValueBets()
	require.NoError(t, err)
	assert.Equal(t, []models.ValueBet{models.NoValueBet}, bets)
}

func TestGenerate_RecoversPanic(t *testing.T) {
	sports := &fakeSports{fixture: testFixture(7)}
	store := &fakeStore{}

	var (
		id  int64
		err error
	)
	assert.NotPanics(t, func() {
		id, err = newTestGenerator(sports, &fakeLLM{panics: true}, store).Generate(context.Background(), 7)
	})
	assert.Zero(t, id)
	assert.Error(t, err)
	assert.Empty(t, store.rows)
}

func TestEnsurePrediction_ReturnsExisting(t *testing.T) {
	existing := &models.Prediction{ID: 99, FixtureID: 7, Type: models.PredictionTypePreMatch}
	sports := &fakeSports{fixture: testFixture(7)}
	llm := &fakeLLM{reply: wellFormedReply}
	store := &fakeStore{latest: map[int]*models.Prediction{7: existing}}

	pred, created, err := newTestGenerator(sports, llm, store).EnsurePrediction(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(99), pred.ID)
	assert.Empty(t, llm.prompts)
	assert.Empty(t, sports.calls)
}

func TestEnsurePrediction_GeneratesWhenMissing(t *testing.T) {
	sports := &fakeSports{fixture: testFixture(7)}
	llm := &fakeLLM{reply: wellFormedReply}
	store := &fakeStore{}

	pred, created, err := newTestGenerator(sports, llm, store).EnsurePrediction(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), pred.ID)
	assert.Len(t, store.rows, 1)
}

func TestEnsurePrediction_LookupFailure(t *testing.T) {
	sports := &fakeSports{fixture: testFixture(7)}
	llm := &fakeLLM{reply: wellFormedReply}
	store := &fakeStore{getErr: errors.New("db down")}

	_, _, err := newTestGenerator(sports, llm, store).EnsurePrediction(context.Background(), 7)
	assert.Error(t, err)
	assert.Empty(t, llm.prompts)
}
