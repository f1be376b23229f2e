package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// Help lists the commands understood by RunCommands.
const Help = "commands: p play/pause, n next, b previous, s SECONDS seek, x stop, q quit"

// ErrQuit is returned by Dispatch for the quit command.
var ErrQuit = errors.New("quit requested")

// RunCommands reads one command per line from r and dispatches it to p
// until r is exhausted, a quit command is read or ctx ends.
// Unknown commands are reported on out.
//
// When ctx ends first, the reading goroutine stays blocked in r until r
// returns a line, EOF or an error. Pass a reader that is closed or exhausted
// when the caller is done (os.Stdin at process exit, a strings.Reader in tests).
func RunCommands(ctx context.Context, p *Presenter, r io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := Dispatch(ctx, p, line)
			switch {
			case errors.Is(err, ErrQuit):
				return nil
			case err != nil:
				_, _ = fmt.Fprintln(out, err)
			}
		}
	}
}

// Dispatch runs a single command line against p.
func Dispatch(ctx context.Context, p *Presenter, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "p", "pause", "play":
		return p.TogglePlay(ctx)
	case "n", "next":
		return resultErr(p.Next(ctx))
	case "b", "back", "prev":
		return resultErr(p.Previous(ctx))
	case "s", "seek":
		if len(fields) != 2 {
			return errors.New("usage: s SECONDS")
		}
		secs, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("invalid seconds %q: %w", fields[1], err)
		}
		return p.SeekTo(ctx, secs)
	case "x", "stop":
		return p.Stop(ctx)
	case "q", "quit", "exit":
		return ErrQuit
	case "h", "help", "?":
		return errors.New(Help)
	default:
		return fmt.Errorf("unknown command %q (%s)", fields[0], Help)
	}
}

func resultErr(res domain.LoadResult) error {
	if res.Err == nil {
		return nil
	}
	return res.Err
}
