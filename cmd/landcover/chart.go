package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robert-malhotra/landcover/internal/scene"
)

const barWidth = 40

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	labelStyle  = lipgloss.NewStyle().Width(12)

	bucketColors = map[string]lipgloss.Color{
		scene.BucketDarkBright: lipgloss.Color("#A6ADC8"),
		scene.BucketVegetation: lipgloss.Color("#A6E3A1"),
		scene.BucketBareSoil:   lipgloss.Color("#D9A066"),
		scene.BucketWater:      lipgloss.Color("#89B4FA"),
		scene.BucketNoData:     lipgloss.Color("#45475A"),
	}
)

// renderSummary draws one horizontal bar per bucket, scaled to the largest.
func renderSummary(date string, s scene.Summary) string {
	buckets := s.Buckets()

	largest := 0
	for _, b := range buckets {
		largest = max(largest, b.Count)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Land cover " + date))
	sb.WriteString("\n")

	for _, b := range buckets {
		n := 0
		if largest > 0 {
			n = b.Count * barWidth / largest
		}
		if n == 0 && b.Count > 0 {
			n = 1
		}
		bar := lipgloss.NewStyle().Foreground(bucketColors[b.Name]).Render(strings.Repeat("█", n))
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(b.Name),
			bar,
			fmt.Sprintf(" %d", b.Count),
		))
		sb.WriteString("\n")
	}

	footer := fmt.Sprintf("%d pixels, %d no-data (%s)", s.Total, s.NoData, s.Policy)
	if s.Unknown > 0 {
		footer += fmt.Sprintf(", %d unknown codes", s.Unknown)
	}
	sb.WriteString(mutedStyle.Render(footer))
	sb.WriteString("\n")

	return sb.String()
}
