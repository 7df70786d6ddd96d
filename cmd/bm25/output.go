package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/searcher/ranker"
)

const snippetWidth = 72

type printer struct {
	w      io.Writer
	asJSON bool

	header lipgloss.Style
	label  lipgloss.Style
	score  lipgloss.Style
	dim    lipgloss.Style
}

// newPrinter styles output only when w is a terminal, so piped output stays
// plain text.
func newPrinter(w io.Writer, asJSON bool) *printer {
	p := &printer{
		w:      w,
		asJSON: asJSON,
		header: lipgloss.NewStyle(),
		label:  lipgloss.NewStyle(),
		score:  lipgloss.NewStyle(),
		dim:    lipgloss.NewStyle(),
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.header = p.header.Bold(true).Underline(true)
		p.label = p.label.Foreground(lipgloss.Color("12"))
		p.score = p.score.Bold(true).Foreground(lipgloss.Color("10"))
		p.dim = p.dim.Foreground(lipgloss.Color("8"))
	}
	return p
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type searchOutput struct {
	Query   string           `json:"query"`
	Terms   []string         `json:"terms"`
	Results []searchOutputHit `json:"results"`
}

type searchOutputHit struct {
	Rank     int     `json:"rank"`
	DocID    int     `json:"doc_id"`
	Score    float64 `json:"score"`
	Document string  `json:"document"`
}

func (p *printer) results(engine *indexer.Engine, query string, results []ranker.ScoredDoc) error {
	out := searchOutput{
		Query:   query,
		Terms:   engine.Terms(query),
		Results: make([]searchOutputHit, 0, len(results)),
	}
	for i, r := range results {
		doc, _ := engine.Document(r.DocID)
		out.Results = append(out.Results, searchOutputHit{Rank: i + 1, DocID: r.DocID, Score: r.Score, Document: doc})
	}
	if p.asJSON {
		return p.json(out)
	}

	fmt.Fprintf(p.w, "%s %s\n", p.header.Render("query"), query)
	fmt.Fprintf(p.w, "%s\n", p.dim.Render(fmt.Sprintf("terms: %s | %s documents",
		strings.Join(out.Terms, " "), humanize.Comma(int64(engine.DocCount())))))
	if len(out.Results) == 0 {
		fmt.Fprintln(p.w, "no results")
		return nil
	}
	for _, hit := range out.Results {
		fmt.Fprintf(p.w, "%3d. %s %s  %s\n",
			hit.Rank,
			p.label.Render(fmt.Sprintf("[doc %d]", hit.DocID)),
			p.score.Render(fmt.Sprintf("%.4f", hit.Score)),
			truncate(hit.Document, snippetWidth),
		)
	}
	return nil
}

func (p *printer) explanation(exp *indexer.Explanation) error {
	if p.asJSON {
		return p.json(exp)
	}
	fmt.Fprintf(p.w, "%s doc %d, length %d (avgdl %.2f)\n", p.header.Render("explain"), exp.DocID, exp.DocLength, exp.AvgDocLength)
	fmt.Fprintf(p.w, "%s\n", p.dim.Render(fmt.Sprintf("%s k1=%g b=%g | %s", exp.Formula, exp.K1, exp.B, exp.Document)))
	fmt.Fprintf(p.w, "%-16s %5s %5s %9s %9s %12s\n", "term", "qtf", "tf", "idf", "tf_part", "contribution")
	for _, row := range exp.Terms {
		fmt.Fprintf(p.w, "%-16s %5d %5d %9.4f %9.4f %12.4f\n",
			row.Term, row.Occurrences, row.Frequency, row.Rarity, row.FrequencyWeight, row.Contribution)
	}
	fmt.Fprintf(p.w, "%-16s %s\n", "total", p.score.Render(fmt.Sprintf("%.4f", exp.TotalScore)))
	return nil
}

func (p *printer) term(info *indexer.TermInfo) error {
	if p.asJSON {
		return p.json(info)
	}
	fmt.Fprintf(p.w, "%s %s\n", p.header.Render("term"), info.Term)
	fmt.Fprintf(p.w, "documents %s, idf %.4f\n", humanize.Comma(int64(info.DocumentFrequency)), info.RarityWeight)
	for _, posting := range info.Postings {
		fmt.Fprintf(p.w, "  %s tf=%d\n", p.label.Render(fmt.Sprintf("[doc %d]", posting.DocID)), posting.Frequency)
	}
	return nil
}

func (p *printer) stats(s indexer.Stats) error {
	if p.asJSON {
		return p.json(s)
	}
	fmt.Fprintf(p.w, "%s\n", p.header.Render("corpus"))
	fmt.Fprintf(p.w, "documents    %s\n", humanize.Comma(int64(s.Documents)))
	fmt.Fprintf(p.w, "terms        %s\n", humanize.Comma(int64(s.Terms)))
	fmt.Fprintf(p.w, "tokens       %s\n", humanize.Comma(s.TotalTokens))
	fmt.Fprintf(p.w, "avgdl        %.2f\n", s.AvgDocLength)
	fmt.Fprintf(p.w, "ranking      %s k1=%g b=%g analyzer=%s\n", s.Formula, s.K1, s.B, s.Analyzer)
	fmt.Fprintf(p.w, "fingerprint  %s\n", p.dim.Render(s.Fingerprint))
	return nil
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
