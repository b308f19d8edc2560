package application

import (
	"fmt"
	"strings"

	"github.com/bnema/lonewatch/internal/domain"
)

// Command is the closed set of inbound commands; the dispatcher switches
// over every variant.
type Command interface {
	command()
}

type StartCommand struct{}

type HelpCommand struct{}

type BeginCommand struct{}

type EndCommand struct{}

type OkayCommand struct{}

// SuperviseCommand registers the sender. With a Target it also joins that
// owner's session.
type SuperviseCommand struct {
	Target *domain.UserID
}

// UnsuperviseCommand leaves one session when Target is set, otherwise every
// session and the registry.
type UnsuperviseCommand struct {
	Target *domain.UserID
}

type HandleCommand struct {
	Target domain.UserID
}

type SessionsCommand struct{}

type UsersCommand struct{}

// ShorthandSuperviseCommand is "/<id>": add supervisor id to the sender's session.
type ShorthandSuperviseCommand struct {
	Supervisor domain.UserID
}

type UnknownCommand struct {
	Text string
}

type MalformedCommand struct {
	Text string
	Err  error
}

func (StartCommand) command()              {}
func (HelpCommand) command()               {}
func (BeginCommand) command()              {}
func (EndCommand) command()                {}
func (OkayCommand) command()               {}
func (SuperviseCommand) command()          {}
func (UnsuperviseCommand) command()        {}
func (HandleCommand) command()             {}
func (SessionsCommand) command()           {}
func (UsersCommand) command()              {}
func (ShorthandSuperviseCommand) command() {}
func (UnknownCommand) command()            {}
func (MalformedCommand) command()          {}

const (
	superviseCommand   = "/supervise"
	unsuperviseCommand = "/unsupervise"
	handleCommand      = "/handle"
)

// ParseCommand matches case-sensitively. A trailing "@botname" on the command
// word, as sent in group chats, is ignored.
func ParseCommand(text string) Command {
	word := strings.TrimSpace(text)
	if fields := strings.Fields(word); len(fields) > 0 {
		word = fields[0]
	}
	if at := strings.IndexByte(word, '@'); at > 0 {
		word = word[:at]
	}

	switch word {
	case "/start":
		return StartCommand{}
	case "/help":
		return HelpCommand{}
	case "/begin":
		return BeginCommand{}
	case "/end":
		return EndCommand{}
	case "/okay":
		return OkayCommand{}
	case superviseCommand:
		return SuperviseCommand{}
	case unsuperviseCommand:
		return UnsuperviseCommand{}
	case "/sessions":
		return SessionsCommand{}
	case "/users":
		return UsersCommand{}
	case handleCommand:
		return MalformedCommand{Text: text, Err: fmt.Errorf("%s needs a user id: %w", handleCommand, domain.ErrMalformedCommand)}
	}

	if raw, ok := strings.CutPrefix(word, superviseCommand+"_"); ok {
		target, err := parseTarget(raw)
		if err != nil {
			return MalformedCommand{Text: text, Err: err}
		}
		return SuperviseCommand{Target: &target}
	}
	if raw, ok := strings.CutPrefix(word, unsuperviseCommand+"_"); ok {
		target, err := parseTarget(raw)
		if err != nil {
			return MalformedCommand{Text: text, Err: err}
		}
		return UnsuperviseCommand{Target: &target}
	}
	if raw, ok := strings.CutPrefix(word, handleCommand+"_"); ok {
		target, err := parseTarget(raw)
		if err != nil {
			return MalformedCommand{Text: text, Err: err}
		}
		return HandleCommand{Target: target}
	}
	if raw, ok := strings.CutPrefix(word, "/"); ok && raw != "" {
		if id, err := domain.ParseUserID(raw); err == nil {
			return ShorthandSuperviseCommand{Supervisor: id}
		}
	}

	return UnknownCommand{Text: text}
}

func parseTarget(raw string) (domain.UserID, error) {
	id, err := domain.ParseUserID(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrMalformedCommand, err)
	}

	return id, nil
}

func superviseLink(owner domain.UserID) string {
	return fmt.Sprintf("%s_%s", superviseCommand, owner)
}

func unsuperviseLink(owner domain.UserID) string {
	return fmt.Sprintf("%s_%s", unsuperviseCommand, owner)
}

func handleLink(owner domain.UserID) string {
	return fmt.Sprintf("%s_%s", handleCommand, owner)
}
