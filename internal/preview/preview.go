// Package preview prints a run's configuration summary and round metrics to a terminal.
package preview

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/explog-analyzer/explog/internal/models"
	"github.com/explog-analyzer/explog/internal/pyliteral"
)

const (
	configTitle      = "--- Experiment Configuration Summary ---"
	roundsTitle      = "--- Round Metrics Preview ---"
	simpleTitle      = "--- Round Metrics Preview (Simple) ---"
	noRoundsMessage  = "No round data to preview."
	parameterHeading = "Parameter"
	valueHeading     = "Value"
)

// Printer renders previews to Out. Grid tables are used when Out is a terminal or Styled
// is set; otherwise a plain pipe-delimited form is printed.
type Printer struct {
	Out io.Writer
	// Styled forces grid tables even when Out is not a terminal.
	Styled bool
	// ConfigKeys orders the configuration table; keys not listed follow in sorted order.
	ConfigKeys []string
}

// NewPrinter creates a printer for out.
func NewPrinter(out io.Writer, configKeys []string) *Printer {
	return &Printer{Out: out, ConfigKeys: configKeys}
}

// Print writes the configuration table followed by the round table.
func (p *Printer) Print(records []models.RoundRecord, summary models.ConfigSummary) error {
	if p.useGrid() {
		return p.printGrid(records, summary)
	}
	return p.printPlain(records, summary)
}

func (p *Printer) useGrid() bool {
	if p.Styled {
		return true
	}
	f, ok := p.Out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) printGrid(records []models.RoundRecord, summary models.ConfigSummary) error {
	r := lipgloss.NewRenderer(p.Out)
	headerStyle := r.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := r.NewStyle().Padding(0, 1)
	numberStyle := cellStyle.Align(lipgloss.Right)
	borderStyle := r.NewStyle().Foreground(lipgloss.Color("238"))

	var b strings.Builder
	if len(summary) > 0 {
		rows := make([][]string, 0, len(summary))
		for _, k := range p.summaryKeys(summary) {
			rows = append(rows, []string{k, summary[k].String()})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(borderStyle).
			BorderRow(true).
			Headers(parameterHeading, valueHeading).
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		fmt.Fprintf(&b, "\n%s\n%s\n", configTitle, t.String())
	}

	if len(records) == 0 {
		fmt.Fprintf(&b, "\n%s\n", noRoundsMessage)
		_, err := io.WriteString(p.Out, b.String())
		return err
	}

	headers := models.ObservedKeys(records)
	rows := make([][]string, 0, len(records))
	numeric := make(map[int]bool, len(headers))
	for _, rec := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			v, ok := rec[h]
			if !ok {
				row[i] = models.NotAvailableText
				continue
			}
			row[i] = pyliteral.Format(v)
			if isNumber(v) {
				numeric[i] = true
			}
		}
		rows = append(rows, row)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		BorderRow(true).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case numeric[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})
	fmt.Fprintf(&b, "\n%s\n%s\n", roundsTitle, t.String())

	_, err := io.WriteString(p.Out, b.String())
	return err
}

// printPlain writes "key: value" lines and a pipe-delimited round table whose columns come
// from the first record.
func (p *Printer) printPlain(records []models.RoundRecord, summary models.ConfigSummary) error {
	var b strings.Builder
	if len(summary) > 0 {
		fmt.Fprintf(&b, "\n%s\n", configTitle)
		for _, k := range p.summaryKeys(summary) {
			fmt.Fprintf(&b, "%s: %s\n", k, summary[k].String())
		}
	}

	if len(records) == 0 {
		fmt.Fprintf(&b, "\n%s\n", noRoundsMessage)
	} else {
		fmt.Fprintf(&b, "\n%s\n", simpleTitle)
		headers := records[0].Keys()
		b.WriteString(strings.Join(headers, " | "))
		b.WriteByte('\n')
		cells := make([]string, len(headers))
		for _, rec := range records {
			for i, h := range headers {
				if v, ok := rec[h]; ok {
					cells[i] = pyliteral.Format(v)
				} else {
					cells[i] = models.NotAvailableText
				}
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(p.Out, b.String())
	return err
}

func (p *Printer) summaryKeys(summary models.ConfigSummary) []string {
	keys := make([]string, 0, len(summary))
	listed := make(map[string]struct{}, len(p.ConfigKeys))
	for _, k := range p.ConfigKeys {
		if _, ok := summary[k]; !ok {
			continue
		}
		if _, dup := listed[k]; dup {
			continue
		}
		listed[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, k := range summary.Keys() {
		if _, ok := listed[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, float64:
		return true
	}
	return false
}
