package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"ytmp3/internal/consts"
	"ytmp3/internal/entity"
)

type line struct {
	text string
	err  error
}

// PromptDecider asks the operator on each retry round whether to retry the failures.
type PromptDecider struct {
	presenter *Presenter
	lines     chan line
}

// NewPromptDecider reads answers from in. End of input is read as "no".
func NewPromptDecider(in io.Reader, presenter *Presenter) *PromptDecider {
	d := &PromptDecider{
		presenter: presenter,
		lines:     make(chan line),
	}

	go d.scan(in)

	return d
}

// scan feeds lines to AskRetry so a blocked read never outlives a cancelled context.
func (d *PromptDecider) scan(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		d.lines <- line{text: scanner.Text()}
	}

	if err := scanner.Err(); err != nil {
		d.lines <- line{err: err}
	}

	close(d.lines)
}

// AskRetry lists the failures and prompts until the answer is "y" or "n".
func (d *PromptDecider) AskRetry(ctx context.Context, failures []entity.FailureRecord) (bool, error) {
	d.presenter.FailedItems(failures)

	for {
		d.presenter.Prompt(consts.MsgRetryDownload)

		select {
		case <-ctx.Done():
			return false, ctx.Err() //nolint:wrapcheck
		case l, ok := <-d.lines:
			if !ok {
				return false, nil
			}

			if l.err != nil {
				return false, fmt.Errorf("read answer: %w", l.err)
			}

			switch strings.ToLower(strings.TrimSpace(l.text)) {
			case "y":
				return true, nil
			case "n":
				return false, nil
			}

			d.presenter.Error(consts.MsgYouCanDoIt)
		}
	}
}
