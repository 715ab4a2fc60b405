// Package console renders progress and failures for a human operator and asks for retry decisions.
package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"ytmp3/internal/consts"
	"ytmp3/internal/entity"
	"ytmp3/internal/errs"
	"ytmp3/pkg/calc"
)

// Presenter writes classified, optionally coloured messages.
// Quiet suppresses info lines only; errors, warnings and the retry prompt are always shown.
type Presenter struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	tty   bool

	red    *color.Color
	yellow *color.Color
	blue   *color.Color
	cyan   *color.Color
	green  *color.Color
}

// NewPresenter creates a presenter writing to out. Colour is enabled only when out is a terminal.
func NewPresenter(out io.Writer, quiet bool) *Presenter {
	p := &Presenter{
		out:    out,
		quiet:  quiet,
		tty:    IsTerminal(out),
		red:    color.New(color.Bold, color.FgRed),
		yellow: color.New(color.Bold, color.FgYellow),
		blue:   color.New(color.Bold, color.FgBlue),
		cyan:   color.New(color.Bold, color.FgCyan),
		green:  color.New(color.Bold, color.FgGreen),
	}

	for _, c := range []*color.Color{p.red, p.yellow, p.blue, p.cyan, p.green} {
		if p.tty {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

// Info prints an info line unless quiet.
func (p *Presenter) Info(msg string) {
	if p.quiet {
		return
	}

	p.println(p.blue, "Info: ", msg)
}

// Warning prints a warning with optional arguments.
func (p *Presenter) Warning(msg string, args ...string) {
	p.println(p.yellow, "Warning: ", withArgs(msg, args))
}

// Error prints an error with optional arguments.
func (p *Presenter) Error(msg string, args ...string) {
	p.println(p.red, "Error: ", withArgs(msg, args))
}

// Downloading announces the start of a conversion along with batch progress.
func (p *Presenter) Downloading(item entity.Item, done, total int) {
	p.Info(fmt.Sprintf("%s <%s> with id <%s> [%d/%d %d%%]",
		consts.MsgDownloading, item.Title, item.ID, done, total, calc.Progress(done, total)))
}

// Retrying reports an inline retry.
func (p *Presenter) Retrying(item entity.Item, _ int, _ error) {
	if p.quiet {
		return
	}

	p.println(p.cyan, "Info: ", consts.MsgRequestError+" "+item.Title)
}

// Malformed reports a skipped catalog record.
func (p *Presenter) Malformed(err error) {
	p.Warning(consts.MsgMalformed, err.Error())
}

// Failed prints the classified message for one failure.
func (p *Presenter) Failed(rec entity.FailureRecord) {
	switch rec.Reason {
	case entity.ReasonMoveFailed:
		if rec.Err == nil {
			p.Error(consts.MsgFailMove, rec.Item.Title)

			return
		}

		p.Error(consts.MsgFailMove, rec.Err.Error())
	default:
		p.Error(consts.MsgFailDownload, rec.Item.Title, rec.Item.ID)
	}
}

// FailedItems lists the failures pending a retry decision.
func (p *Presenter) FailedItems(records []entity.FailureRecord) {
	p.Error(consts.MsgFailedSongs)

	p.mu.Lock()
	defer p.mu.Unlock()

	table := tablewriter.NewWriter(p.out)
	table.SetHeader([]string{"", "Title", "ID", "Reason"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetRowLine(false)

	if p.tty {
		table.SetColumnColor(tablewriter.Colors{},
			tablewriter.Colors{tablewriter.Bold, tablewriter.FgGreenColor},
			tablewriter.Colors{tablewriter.Bold, tablewriter.FgGreenColor},
			tablewriter.Colors{tablewriter.FgRedColor})
	}

	for i, rec := range records {
		table.Append([]string{strconv.Itoa(i + 1), rec.Item.Title, rec.Item.ID, string(rec.Reason)})
	}

	table.Render()
}

// Prompt prints the retry question without a trailing newline.
func (p *Presenter) Prompt(question string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(p.out, question+" ")
}

// Summary prints the final counts. Remaining failures are always shown.
func (p *Presenter) Summary(succeeded, failed int) {
	if failed == 0 {
		p.Info(fmt.Sprintf("%s %d succeeded.", consts.MsgDone, succeeded))

		return
	}

	p.Error(fmt.Sprintf("%d of %d items failed.", failed, succeeded+failed))
}

// Fatal prints the classified message for an error that ends the run.
func (p *Presenter) Fatal(err error) {
	msg := err.Error()
	if errors.Is(err, errs.ErrConfiguration) {
		msg = strings.TrimPrefix(msg, errs.ErrConfiguration.Error()+": ")
	}

	p.Error(msg)
}

func (p *Presenter) println(c *color.Color, label, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.out, c.Sprint(label)+msg)
}

func withArgs(msg string, args []string) string {
	if len(args) == 0 {
		return msg
	}

	return msg + " <" + strings.Join(args, ", ") + ">"
}
