package results

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripeness/internal/model"
)

func predictions(confidences ...float64) []model.Prediction {
	out := make([]model.Prediction, 0, len(confidences))
	for i, c := range confidences {
		out = append(out, model.Prediction{
			X: float64(100 + i), Y: 50.5, Width: 20.4, Height: 30.6,
			Class: "ripe", Confidence: c,
		})
	}
	return out
}

func TestTable_ThresholdScenario(t *testing.T) {
	table := Table(predictions(0.9, 0.3, 0.1), 0.25)

	require.Len(t, table.Rows, 2)
	assert.InDelta(t, 0.9, table.Rows[0].Score, 1e-9)
	assert.InDelta(t, 0.3, table.Rows[1].Score, 1e-9)
	assert.Equal(t, 1, table.Rows[0].Rank)
	assert.Equal(t, 2, table.Rows[1].Rank)
	assert.Equal(t, "2 found", table.Count)
	assert.Empty(t, table.Placeholder)
}

func TestRank_DescendingAndThresholdInclusive(t *testing.T) {
	ranked := Rank(predictions(0.2, 0.5, 0.25, 0.99, 0.1, 0.5), 0.25)

	require.Len(t, ranked, 4)
	for i := 0; i+1 < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i].Confidence, ranked[i+1].Confidence)
	}
	assert.InDelta(t, 0.25, ranked[len(ranked)-1].Confidence, 1e-9)
}

func TestFilter_PartitionsByThreshold(t *testing.T) {
	all := predictions(0.05, 0.4, 0.6, 0.39999, 1)
	threshold := 0.4

	kept := Filter(all, threshold)

	for _, p := range kept {
		assert.GreaterOrEqual(t, p.Confidence, threshold)
	}
	dropped := 0
	for _, p := range all {
		if p.Confidence < threshold {
			dropped++
		}
	}
	assert.Equal(t, len(all), len(kept)+dropped)
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	all := predictions(0.1, 0.9)
	_ = Rank(all, 0)
	assert.InDelta(t, 0.1, all[0].Confidence, 1e-9)
}

func TestTable_RowFormatting(t *testing.T) {
	table := Table([]model.Prediction{
		{X: 120.5, Y: 80.49, Width: 40.5, Height: 99.5, Class: "Overripe", Confidence: 0.934},
	}, 0)

	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.Equal(t, "Overripe", row.Class)
	assert.Equal(t, BadgeDestructive, row.Badge)
	assert.Equal(t, "93.4%", row.Confidence)
	assert.Equal(t, "(121, 80)", row.Position)
	assert.Equal(t, "41 × 100", row.Size)
	assert.Equal(t, "1 found", table.Count)
}

func TestTable_EmptyShowsPlaceholder(t *testing.T) {
	table := Table(predictions(0.1, 0.2), 0.25)

	assert.Empty(t, table.Rows)
	assert.Equal(t, "No predictions above the confidence threshold (25%)", table.Placeholder)
	assert.Empty(t, table.Count)
}

func TestBadge(t *testing.T) {
	assert.Equal(t, BadgeDefault, Badge("RIPE"))
	assert.Equal(t, BadgeSecondary, Badge("unripe"))
	assert.Equal(t, BadgeDestructive, Badge("overripe"))
	assert.Equal(t, BadgeOutline, Badge("banana"))
}

func TestPercentAndRound(t *testing.T) {
	assert.Equal(t, "90.0%", Percent(0.9, 1))
	assert.Equal(t, "12.5%", Percent(0.125, 1))
	assert.Equal(t, "0%", Percent(0, 0))
	assert.Equal(t, "100%", Percent(1, 0))

	assert.Equal(t, 3, Round(2.5))
	assert.Equal(t, -2, Round(-2.5))
	assert.Equal(t, 2, Round(2.49))
}

func TestFormatRaw_RoundTrip(t *testing.T) {
	raw := []byte(`{"predictions":[{"x":1.5,"y":2,"width":3,"height":4,"class":"ripe","confidence":0.8}],"time":0.12,"image":{"width":640,"height":480}}`)

	text, err := FormatRaw(raw)
	require.NoError(t, err)
	assert.Contains(t, text, "\n  \"predictions\": [")

	var stored, shown interface{}
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.NoError(t, json.Unmarshal([]byte(text), &shown))
	assert.Equal(t, stored, shown)
}

func TestFormatRaw_Invalid(t *testing.T) {
	_, err := FormatRaw([]byte("oops"))
	assert.Error(t, err)
}
