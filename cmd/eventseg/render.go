package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/eventseg/internal/segment"
	"github.com/abelbrown/eventseg/internal/store"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	boundaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)

	typePalette = []lipgloss.Color{"39", "42", "214", "171", "50", "226", "99", "160"}
)

func typeStyle(k int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(typePalette[k%len(typePalette)])
}

// typeGlyph maps event types to single characters: digits, then letters.
func typeGlyph(k int) string {
	const glyphs = "0123456789abcdefghijklmnopqrstuvwxyz"
	if k < len(glyphs) {
		return string(glyphs[k])
	}
	return "+"
}

// timeline renders one character per step: the event type glyph, with
// boundaries marked by a styled pipe.
func timeline(types []int, boundaryProb []float64) string {
	var b strings.Builder
	for i, k := range types {
		if i < len(boundaryProb) && boundaryProb[i] > 0.5 {
			b.WriteString(boundaryStyle.Render("|"))
		}
		b.WriteString(typeStyle(k).Render(typeGlyph(k)))
	}
	return b.String()
}

func renderStreamSummary(alpha, lambda float64, model string, res *segment.Results) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Streaming segmentation"))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("alpha=%.2f lambda=%.2f model=%s steps=%d types=%d",
		alpha, lambda, model, len(res.BestType), typesDiscovered(res))))
	b.WriteString("\n\n")

	b.WriteString(timeline(res.BestType, res.BoundaryProb))
	b.WriteString("\n\n")

	counts := map[int]int{}
	for _, k := range res.BestType {
		counts[k]++
	}
	for k := 0; k < typesDiscovered(res); k++ {
		b.WriteString(fmt.Sprintf("  %s %4d steps\n", typeStyle(k).Render("type "+typeGlyph(k)), counts[k]))
	}

	b.WriteString(fmt.Sprintf("\n  boundaries:     %d\n", boundaryCount(res.BoundaryProb)))
	if len(res.PredErr) > 0 {
		b.WriteString(fmt.Sprintf("  mean pred err:  %.4f\n", mean(res.PredErr)))
	}
	b.WriteString(fmt.Sprintf("  mean surprise:  %.4f\n", mean(res.Surprise)))
	return b.String()
}

func renderTokenSummary(alpha, lambda float64, model string, spans [][][]float64, res *segment.Results) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Token segmentation"))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("alpha=%.2f lambda=%.2f model=%s tokens=%d types=%d",
		alpha, lambda, model, len(res.BestType), typesDiscovered(res))))
	b.WriteString("\n\n")

	for i, k := range res.BestType {
		scenes := 0
		if i < len(spans) {
			scenes = len(spans[i])
		}
		conf := 0.0
		if i < len(res.Post) && k < len(res.Post[i]) {
			conf = res.Post[i][k]
		}
		b.WriteString(fmt.Sprintf("  token %3d  %s  %3d scenes  p=%.3f\n",
			i, typeStyle(k).Render("type "+typeGlyph(k)), scenes, conf))
	}
	return b.String()
}

func renderStoredRun(run store.Run, steps []store.Step) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Run " + run.ID))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("%s mode=%s alpha=%.2f lambda=%.2f model=%s steps=%d types=%d",
		run.Created.Format("2006-01-02 15:04:05"), run.Mode, run.Alpha, run.Lambda, run.Model, run.Steps, run.Types)))
	b.WriteString("\n\n")

	types := make([]int, len(steps))
	probs := make([]float64, len(steps))
	for i, st := range steps {
		types[i] = st.BestType
		probs[i] = st.BoundaryProb
	}
	b.WriteString(timeline(types, probs))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%5s  %5s  %9s  %9s  %9s\n", "STEP", "TYPE", "BOUNDARY", "SURPRISE", "PREDERR"))
	for _, st := range steps {
		b.WriteString(fmt.Sprintf("%5d  %5d  %9.3f  %9.3f  %9.3f\n",
			st.Idx, st.BestType, st.BoundaryProb, st.Surprise, st.PredErr))
	}
	return b.String()
}

func boundaryCount(probs []float64) int {
	n := 0
	for _, p := range probs {
		if p > 0.5 {
			n++
		}
	}
	return n
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}
