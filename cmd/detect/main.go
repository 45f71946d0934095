// Command detect sends one image through the detection proxy and prints the
// ranked results, optionally writing the annotated overlay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"ripeness/internal/config"
	"ripeness/internal/dto"
	"ripeness/internal/logger"
	"ripeness/internal/model"
	"ripeness/internal/service/inference"
	"ripeness/internal/service/overlay"
	"ripeness/internal/service/render"
	"ripeness/internal/service/results"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("1"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func main() {
	if err := run(); err != nil {
		var failure *inference.Failure
		if errors.As(err, &failure) {
			msg := titleStyle.Render(failure.Title) + "\n" + failure.Message
			if failure.Details != "" {
				msg += "\n" + dimStyle.Render(failure.Details)
			}
			fmt.Fprintln(os.Stderr, errorStyle.Render(msg))
		} else {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		}
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env", ".env", "Path to a .env file")
	imagePath := flag.String("image", "", "Image to analyze")
	modelID := flag.String("model", "", "Roboflow model ID (default from DEFAULT_MODEL_ID)")
	threshold := flag.Float64("threshold", -1, "Confidence threshold in [0,1] (default from DEFAULT_CONFIDENCE)")
	proxyURL := flag.String("proxy", "", "Proxy endpoint (default from PROXY_URL)")
	overlayPath := flag.String("overlay", "", "Write the annotated image here (.png or .jpg)")
	showRaw := flag.Bool("raw", false, "Print the raw proxy response")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	cfg := config.Load()

	settings := model.Settings{ModelID: cfg.DefaultModelID, ConfidenceThreshold: cfg.DefaultConfidence}
	if *modelID != "" {
		settings.ModelID = *modelID
	}
	if *threshold >= 0 {
		settings.ConfidenceThreshold = *threshold
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if *proxyURL != "" {
		cfg.ProxyURL = *proxyURL
	}

	var data []byte
	if *imagePath != "" {
		var err error
		if data, err = os.ReadFile(*imagePath); err != nil {
			return fmt.Errorf("read image: %w", err)
		}
	}

	palette, err := config.LoadPalette(cfg.PaletteFile)
	if err != nil {
		return err
	}
	colors, err := overlay.NewPalette(palette)
	if err != nil {
		return fmt.Errorf("palette: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := inference.NewClient(cfg.ProxyURL, nil)
	result, err := client.Infer(ctx, data, settings.ModelID)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s · %s", filepath.Base(*imagePath), settings.ModelID)))
	fmt.Println(renderTable(results.Table(result.Predictions, settings.ConfidenceThreshold), colors))

	if *showRaw {
		raw, err := results.FormatRaw(result.Raw)
		if err != nil {
			return err
		}
		fmt.Print(renderMarkdown("```json\n" + raw + "\n```\n"))
	}

	if *overlayPath != "" {
		format := render.FormatPNG
		if ext := strings.ToLower(filepath.Ext(*overlayPath)); ext == ".jpg" || ext == ".jpeg" {
			format = render.FormatJPEG
		}

		renderer := render.NewRendererService(overlay.Options{
			ContainerWidth: cfg.ContainerWidth,
			MaxHeight:      cfg.MaxHeight,
		}, colors, logger.NewWriterLogger(os.Stderr))

		img, err := renderer.Render(data, result.Predictions, settings.ConfidenceThreshold, format)
		if err != nil {
			return fmt.Errorf("render overlay: %w", err)
		}
		if err := os.WriteFile(*overlayPath, img, 0644); err != nil {
			return fmt.Errorf("write overlay: %w", err)
		}
		fmt.Println(dimStyle.Render("overlay written to " + *overlayPath))
	}

	return nil
}

// renderTable lays out the results table with each class name in its box color.
func renderTable(data dto.TableData, colors overlay.Palette) string {
	if len(data.Rows) == 0 {
		return dimStyle.Render(data.Placeholder)
	}

	rows := make([][]string, 0, len(data.Rows))
	for _, row := range data.Rows {
		rows = append(rows, []string{
			fmt.Sprintf("%d", row.Rank),
			row.Class,
			row.Confidence,
			row.Position,
			row.Size,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Class", "Confidence", "Position", "Size").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 {
				return cellStyle.Foreground(lipgloss.Color(colors.Hex(data.Rows[row].Class)))
			}
			return cellStyle
		})

	return t.Render() + "\n" + dimStyle.Render(data.Count)
}

// renderMarkdown falls back to the plain text when the renderer is unavailable.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
