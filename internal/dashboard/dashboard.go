// Package dashboard renders the most recent scored days as a plain-text
// table for terminals and the HTTP API.
package dashboard

import (
	"fmt"
	"io"
	"strings"

	"github.com/aristath/liquidity-sentinel/internal/risk"
)

// recentDays is how many scored days the dashboard shows.
const recentDays = 5

const columnWidth = 12

// Renderer formats recent liquidity trends as fixed-width text.
type Renderer struct {
	repo       *risk.Repository
	securities []string
}

// NewRenderer creates a dashboard renderer for the given security pair.
func NewRenderer(repo *risk.Repository, securities []string) *Renderer {
	return &Renderer{
		repo:       repo,
		securities: securities,
	}
}

// Render writes the dashboard to w: the last five scored days, newest
// first, with per-security liquidity ratios and the risk probability.
func (r *Renderer) Render(w io.Writer) error {
	rows, err := r.repo.History(recentDays)
	if err != nil {
		return fmt.Errorf("failed to load recent scores: %w", err)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No scored data yet. Run the pipeline first.")
		return err
	}

	// Newest first
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	fmt.Fprintln(w, "Recent liquidity trends:")
	fmt.Fprintln(w)

	headers := make([]string, 0, len(r.securities)+2)
	headers = append(headers, "Date")
	for _, sym := range r.securities {
		headers = append(headers, columnLabel(sym)+" Ratio")
	}
	headers = append(headers, "Risk Prob")
	writeRow(w, headers)
	fmt.Fprintln(w, strings.Repeat("-", 50))

	for _, row := range rows {
		cells := make([]string, 0, len(r.securities)+2)
		cells = append(cells, row.Date)
		for _, sym := range r.securities {
			cells = append(cells, fmt.Sprintf("%.2f", row.Securities[sym].LiquidityRatio))
		}
		cells = append(cells, fmt.Sprintf("%.2f%%", row.RiskScore*100))
		writeRow(w, cells)
	}
	return nil
}

// Summary returns the rendered dashboard as a string.
func (r *Renderer) Summary() (string, error) {
	var sb strings.Builder
	if err := r.Render(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeRow(w io.Writer, cells []string) {
	for _, cell := range cells {
		fmt.Fprintf(w, "%-*s ", columnWidth, cell)
	}
	fmt.Fprintln(w)
}

// columnLabel shortens an exchange-suffixed symbol for the header, e.g.
// "TSCO.L" -> "TSCO".
func columnLabel(symbol string) string {
	if i := strings.Index(symbol, "."); i > 0 {
		return symbol[:i]
	}
	return symbol
}
