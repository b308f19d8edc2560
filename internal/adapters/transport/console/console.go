// Package console is a line-oriented transport for local runs and tests.
//
// Input lines are "<id> <text>", optionally followed by " | <display name>",
// or "<id> !removed". Output lines are "-> <id>: <text>".
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
)

const removedMarker = "!removed"

var ErrMalformedLine = errors.New("malformed console line")

type Notifier struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.Notifier = (*Notifier)(nil)

func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out}
}

func (n *Notifier) Send(ctx context.Context, to domain.UserID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintf(n.out, "-> %s: %s\n", to, strings.ReplaceAll(text, "\n", "\n   "))
	return err
}

type Source struct {
	in     io.Reader
	logger *log.Logger
}

var _ ports.InboundSource = (*Source)(nil)

func NewSource(in io.Reader, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Source{in: in, logger: logger}
}

// Run returns nil at end of input.
func (s *Source) Run(ctx context.Context, handle ports.InboundHandler) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return ctx.Err()
				}
			}

			event, skip, err := ParseLine(line)
			if err != nil {
				s.logger.Printf("Console: %v", err)
				continue
			}
			if !skip {
				handle(ctx, event)
			}
		}
	}
}

// ParseLine reports skip for blank lines and "#" comments.
func ParseLine(line string) (event ports.Inbound, skip bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ports.Inbound{}, true, nil
	}

	rawID, rest, _ := strings.Cut(line, " ")
	id, err := domain.ParseUserID(rawID)
	if err != nil {
		return ports.Inbound{}, false, fmt.Errorf("%w: %q: %w", ErrMalformedLine, line, err)
	}

	rest = strings.TrimSpace(rest)
	if rest == removedMarker {
		return ports.Inbound{Sender: id, Removed: true}, false, nil
	}

	text, name, _ := strings.Cut(rest, "|")
	text = strings.TrimSpace(text)
	if text == "" {
		return ports.Inbound{}, false, fmt.Errorf("%w: %q: no text", ErrMalformedLine, line)
	}

	return ports.Inbound{
		Sender:      id,
		Text:        text,
		DisplayName: strings.TrimSpace(name),
	}, false, nil
}
