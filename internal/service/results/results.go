// Package results filters, ranks and formats predictions for the results
// table and the raw JSON panel.
package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"ripeness/internal/dto"
	"ripeness/internal/model"
)

// Badge variants for the class column.
const (
	BadgeDefault     = "default"
	BadgeDestructive = "destructive"
	BadgeSecondary   = "secondary"
	BadgeOutline     = "outline"
)

// Filter keeps predictions with confidence >= threshold, preserving order.
func Filter(predictions []model.Prediction, threshold float64) []model.Prediction {
	kept := make([]model.Prediction, 0, len(predictions))
	for _, p := range predictions {
		if p.Confidence >= threshold {
			kept = append(kept, p)
		}
	}
	return kept
}

// Rank filters by threshold and orders the survivors by descending confidence.
func Rank(predictions []model.Prediction, threshold float64) []model.Prediction {
	ranked := Filter(predictions, threshold)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked
}

// Table builds the results table for predictions at threshold.
func Table(predictions []model.Prediction, threshold float64) dto.TableData {
	ranked := Rank(predictions, threshold)
	data := dto.TableData{
		Threshold: threshold,
		Rows:      make([]dto.TableRow, 0, len(ranked)),
	}

	if len(ranked) == 0 {
		data.Placeholder = Placeholder(threshold)
		return data
	}

	for i, p := range ranked {
		data.Rows = append(data.Rows, dto.TableRow{
			Rank:       i + 1,
			Class:      p.Class,
			Badge:      Badge(p.Class),
			Confidence: Percent(p.Confidence, 1),
			Position:   fmt.Sprintf("(%d, %d)", Round(p.X), Round(p.Y)),
			Size:       fmt.Sprintf("%d × %d", Round(p.Width), Round(p.Height)),
			Score:      p.Confidence,
		})
	}
	data.Count = fmt.Sprintf("%d found", len(ranked))
	return data
}

// Placeholder is shown when no prediction clears the threshold.
func Placeholder(threshold float64) string {
	return fmt.Sprintf("No predictions above the confidence threshold (%s)", Percent(threshold, 0))
}

// Badge picks the badge variant used to render a class name.
func Badge(class string) string {
	switch strings.ToLower(class) {
	case "ripe":
		return BadgeDefault
	case "overripe":
		return BadgeDestructive
	case "unripe":
		return BadgeSecondary
	default:
		return BadgeOutline
	}
}

// Percent renders a [0,1] score as a percentage with the given decimals,
// e.g. Percent(0.934, 1) == "93.4%". Halves round up.
func Percent(v float64, digits int) string {
	return toFixed(v*100, digits) + "%"
}

// Round rounds half up, so 2.5 -> 3 and -2.5 -> -2.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func toFixed(v float64, digits int) string {
	pow := math.Pow10(digits)
	return strconv.FormatFloat(math.Floor(v*pow+0.5)/pow, 'f', digits, 64)
}

// FormatRaw pretty-prints a raw JSON document with two-space indentation.
// Parsing the output yields the same value as parsing raw.
func FormatRaw(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("format raw response: %w", err)
	}
	return buf.String(), nil
}
