package cli

import (
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"
)

const progressTemplate = `{{ cycle . "⠋" "⠙" "⠹" "⠸" "⠼" "⠴" "⠦" "⠧" "⠇" "⠏" }} {{ counters . }} {{ bar . "[" "=" ">" " " "]" }} {{ string . "table" }}`

// tableProgress draws a bar advancing once per compared table
type tableProgress struct {
	writer io.Writer
	bar    *pb.ProgressBar
}

func newTableProgress(w io.Writer) *tableProgress {
	return &tableProgress{writer: w}
}

// Update matches sqlitediff.ProgressFunc. The bar starts on the first
// call, once the number of tables is known.
func (p *tableProgress) Update(table string, done, total int) {
	if p.bar == nil {
		p.bar = pb.ProgressBarTemplate(progressTemplate).New(total)
		p.bar.SetWriter(p.writer)
		p.bar.Start()
	}

	p.bar.Set("table", table)
	p.bar.SetCurrent(int64(done))
}

// Finish stops the bar if it was started
func (p *tableProgress) Finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
