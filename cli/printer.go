package cli

import (
	"fmt"
	"io"
	"os"
)

// Printer writes user-facing messages. It's shared by a [CommandSet] and its commands.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a [Printer] writing to out, or to STDERR if out is nil.
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stderr
	}
	return &Printer{out: out}
}

func (p *Printer) Redirect(writer io.Writer) {
	if writer != nil {
		p.out = writer
	}
}

func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) Print(msg ...any) {
	_, _ = fmt.Fprint(p.out, msg...)
}

func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) Println(msg ...any) {
	_, _ = fmt.Fprintln(p.out, msg...)
}
