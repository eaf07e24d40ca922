package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/fatih/color"
)

// Printer writes human output to out and problems to errOut. JSON mode
// suppresses everything except explicit JSON documents; quiet mode keeps
// only errors.
type Printer struct {
	out     io.Writer
	errOut  io.Writer
	json    bool
	quiet   bool
	noColor bool
}

type Option func(*Printer)

func WithJSON(json bool) Option {
	return func(p *Printer) {
		p.json = json
	}
}

func WithQuiet(quiet bool) Option {
	return func(p *Printer) {
		p.quiet = quiet
	}
}

func WithNoColor(noColor bool) Option {
	return func(p *Printer) {
		p.noColor = noColor
	}
}

func WithOutput(out io.Writer) Option {
	return func(p *Printer) {
		p.out = out
	}
}

func WithErrOutput(errOut io.Writer) Option {
	return func(p *Printer) {
		p.errOut = errOut
	}
}

func New(opts ...Option) *Printer {
	p := &Printer{
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.noColor {
		color.NoColor = true
	}
	return p
}

var (
	successIcon = color.GreenString("✓")
	errorIcon   = color.RedString("✗")
	warnIcon    = color.YellowString("!")
	infoIcon    = color.CyanString("→")
	indentIcon  = color.HiBlackString("└─")
)

func (p *Printer) Out() io.Writer {
	return p.out
}

func (p *Printer) silent() bool {
	return p.quiet || p.json
}

func (p *Printer) Printf(format string, args ...any) {
	if p.silent() {
		return
	}
	fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) Println(args ...any) {
	if p.silent() {
		return
	}
	fmt.Fprintln(p.out, args...)
}

func (p *Printer) Success(format string, args ...any) {
	if p.silent() {
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", successIcon, fmt.Sprintf(format, args...))
}

func (p *Printer) Error(format string, args ...any) {
	if p.json {
		return
	}
	fmt.Fprintf(p.errOut, "%s %s\n", errorIcon, fmt.Sprintf(format, args...))
}

func (p *Printer) Warn(format string, args ...any) {
	if p.silent() {
		return
	}
	fmt.Fprintf(p.errOut, "%s %s\n", warnIcon, fmt.Sprintf(format, args...))
}

func (p *Printer) Info(format string, args ...any) {
	if p.silent() {
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", infoIcon, fmt.Sprintf(format, args...))
}

func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Result prints v as JSON in JSON mode and otherwise calls human.
func (p *Printer) Result(v any, human func()) error {
	if p.json {
		return p.JSON(v)
	}
	if !p.quiet {
		human()
	}
	return nil
}

func (p *Printer) Section(title string) {
	if p.silent() {
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", color.New(color.Bold, color.FgCyan).Sprint(title))
}

func (p *Printer) KeyValue(key, value string) {
	if p.silent() {
		return
	}
	fmt.Fprintf(p.out, "  %s: %s\n", color.HiBlackString(key), value)
}

func (p *Printer) Summary(succeeded, failed, canceled int, elapsed time.Duration) {
	if p.silent() {
		return
	}
	fmt.Fprintln(p.out)
	total := succeeded + failed + canceled
	switch {
	case failed == 0 && canceled == 0:
		fmt.Fprintln(p.out, color.GreenString("%d/%d processed in %s", succeeded, total, elapsed.Round(time.Millisecond)))
	case canceled > 0:
		fmt.Fprintln(p.out, color.YellowString("%d/%d processed (%d failed, %d canceled)", succeeded, total, failed, canceled))
	default:
		fmt.Fprintln(p.out, color.YellowString("%d/%d processed (%d failed)", succeeded, total, failed))
	}
}

func (p *Printer) FileProcessed(input string, res *processor.Result) {
	if p.silent() {
		return
	}
	fmt.Fprintf(p.out, "%s %s %s %s\n", successIcon, input, infoIcon, res.Path)
	m := res.Metadata
	fmt.Fprintf(p.out, "  %s %dx%d %s", indentIcon, m.Width, m.Height, m.Format)
	if m.Rotated {
		fmt.Fprint(p.out, ", rotated")
	}
	if !m.KeptExif {
		fmt.Fprint(p.out, ", metadata stripped")
	}
	fmt.Fprintln(p.out)
}

func (p *Printer) FileFailed(filename string, err error) {
	if p.json {
		return
	}
	fmt.Fprintf(p.errOut, "%s %s: %v\n", errorIcon, filename, err)
}
