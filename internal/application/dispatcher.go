package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
)

const helpText = `Lone working monitor commands:
/begin - start a monitored session
/okay - confirm you are safe
/end - stop being monitored
/supervise - register as a supervisor
/unsupervise - stop supervising everyone
/sessions - list active sessions
/users - list known users`

// Dispatcher turns inbound chat events into state changes and replies.
type Dispatcher struct {
	coord    *Coordinator
	notifier ports.Notifier
	clock    ports.Clock
	settings Settings
	logger   *log.Logger
}

func NewDispatcher(coord *Coordinator, notifier ports.Notifier, clock ports.Clock, settings Settings, logger *log.Logger) *Dispatcher {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Dispatcher{
		coord:    coord,
		notifier: notifier,
		clock:    clock,
		settings: settings,
		logger:   logger,
	}
}

// Handle applies one inbound event. Command failures are logged and answered
// with a best-effort reply; the returned error joins the command failure with
// any transport failures so callers can react to the latter.
func (d *Dispatcher) Handle(ctx context.Context, event ports.Inbound) error {
	var (
		out    outbox
		cmdErr error
	)

	d.coord.Update(func(state *domain.State) bool {
		if event.Removed {
			return d.remove(state, event.Sender, &out)
		}

		_, changed := state.Directory.EnsureUser(event.Sender)
		cmd := ParseCommand(event.Text)
		if event.DisplayName != "" {
			_, isStart := cmd.(StartCommand)
			if user, _ := state.Directory.User(event.Sender); isStart || user.DisplayName == "" {
				renamed, _ := state.Directory.SetName(event.Sender, event.DisplayName)
				changed = changed || renamed
			}
		}

		mutated, err := d.dispatch(state, event.Sender, cmd, &out)
		cmdErr = err
		return changed || mutated
	})

	if cmdErr != nil {
		d.logger.Printf("Command %q from %s failed: %v", event.Text, event.Sender, cmdErr)
	}

	sendErr := deliver(ctx, d.notifier, d.settings.SendTimeout, out.messages)
	if sendErr != nil {
		d.logger.Printf("Delivering replies for %s: %v", event.Sender, sendErr)
	}

	return errors.Join(cmdErr, sendErr)
}

func (d *Dispatcher) dispatch(state *domain.State, sender domain.UserID, cmd Command, out *outbox) (bool, error) {
	switch cmd := cmd.(type) {
	case StartCommand:
		d.logger.Printf("Adding user %s: %s", sender, state.Directory.Label(sender))
		out.send(sender, "Welcome %s.\n%s", state.Directory.Label(sender), helpText)
		return false, nil
	case HelpCommand:
		out.send(sender, "%s", helpText)
		return false, nil
	case BeginCommand:
		return d.begin(state, sender, out)
	case EndCommand:
		return d.end(state, sender, out)
	case OkayCommand:
		return d.okay(state, sender, out)
	case SuperviseCommand:
		return d.supervise(state, sender, cmd.Target, out)
	case UnsuperviseCommand:
		if cmd.Target != nil {
			return d.unsuperviseOne(state, sender, *cmd.Target, out)
		}
		return d.unsuperviseAll(state, sender, out)
	case HandleCommand:
		return false, d.handle(state, sender, cmd.Target, out)
	case SessionsCommand:
		d.listSessions(state, sender, out)
		return false, nil
	case UsersCommand:
		d.listUsers(state, sender, out)
		return false, nil
	case ShorthandSuperviseCommand:
		return d.chooseSupervisor(state, sender, cmd.Supervisor, out)
	case MalformedCommand:
		out.send(sender, "Could not read the user id in %q.", cmd.Text)
		return false, cmd.Err
	case UnknownCommand:
		out.send(sender, "Unknown command. Send /help for the list of commands.")
		return false, nil
	default:
		return false, fmt.Errorf("unhandled command %T", cmd)
	}
}

func (d *Dispatcher) begin(state *domain.State, sender domain.UserID, out *outbox) (bool, error) {
	if _, err := state.Sessions.Begin(sender, d.clock.Now()); err != nil {
		out.send(sender, "You already have an active monitoring session. Send /end to stop it.")
		return false, err
	}

	d.logger.Printf("Starting monitoring session for user %s", state.Directory.Label(sender))

	supervisors := state.Registry.IDs()
	if len(supervisors) == 0 {
		out.send(sender, "💚 Monitoring session started. No supervisors are registered yet.")
		return true, nil
	}

	lines := make([]string, 0, len(supervisors))
	for _, id := range supervisors {
		lines = append(lines, fmt.Sprintf("%s: /%s", state.Directory.Label(id), id))
	}
	out.send(sender, "💚 Monitoring session started. Choose supervisors:\n%s", strings.Join(lines, "\n"))
	return true, nil
}

func (d *Dispatcher) end(state *domain.State, sender domain.UserID, out *outbox) (bool, error) {
	supervisors, err := state.Sessions.End(sender)
	if err != nil {
		out.send(sender, "You have no active monitoring session.")
		return false, err
	}

	name := state.Directory.Label(sender)
	out.broadcast(supervisors, sender, "🩶 %s has ended monitoring session", name)
	out.send(sender, "🩶 Your session has ended. You are no longer monitored.")
	d.logger.Printf("Ending monitoring session for user %s", name)
	return true, nil
}

func (d *Dispatcher) okay(state *domain.State, sender domain.UserID, out *outbox) (bool, error) {
	previous, err := state.Sessions.Acknowledge(sender, d.clock.Now())
	if err != nil {
		out.send(sender, "You have no active monitoring session. Send /begin to start one.")
		return false, err
	}

	if previous > d.settings.AlertThreshold {
		name := state.Directory.Label(sender)
		session, _ := state.Sessions.Get(sender)
		out.broadcast(session.Supervisors.IDs(), sender, "💚 %s has responded", name)
		d.logger.Printf("Alert for %s cleared", name)
	}
	out.send(sender, "💚 Thanks. Next check in %s.", formatMinutes(d.settings.NotifyInterval.Minutes()))
	return true, nil
}

func (d *Dispatcher) supervise(state *domain.State, sender domain.UserID, target *domain.UserID, out *outbox) (bool, error) {
	already, err := state.Register(sender)
	if err != nil {
		return false, err
	}

	changed := !already
	if !already {
		d.logger.Printf("Adding supervisor %s", state.Directory.Label(sender))
		out.send(sender, "You are now registered as a supervisor.")
	} else if target == nil {
		out.send(sender, "You are already registered as a supervisor.")
	}

	if target == nil {
		return changed, nil
	}

	owner := *target
	ownerName := state.Directory.Label(owner)
	added, err := state.AddSupervisor(owner, sender)
	if err != nil {
		out.send(sender, "%s has no active monitoring session.", ownerName)
		return changed, err
	}
	if !added {
		out.send(sender, "You are already supervising %s.", ownerName)
		return changed, nil
	}

	d.announceJoin(state, owner, sender, out)
	return true, nil
}

func (d *Dispatcher) chooseSupervisor(state *domain.State, sender, supervisor domain.UserID, out *outbox) (bool, error) {
	if !state.Registry.IsSupervisor(supervisor) {
		out.send(sender, "Unknown command. Send /help for the list of commands.")
		return false, nil
	}
	if !state.Sessions.Has(sender) {
		out.send(sender, "Start a monitoring session with /begin before choosing supervisors.")
		return false, nil
	}

	added, err := state.AddSupervisor(sender, supervisor)
	if err != nil {
		return false, err
	}
	if !added {
		out.send(sender, "%s is already supervising you.", state.Directory.Label(supervisor))
		return false, nil
	}

	d.announceJoin(state, sender, supervisor, out)
	return true, nil
}

// announceJoin tells the owner, the new supervisor and the existing
// supervisors that supervisor joined owner's session.
func (d *Dispatcher) announceJoin(state *domain.State, owner, supervisor domain.UserID, out *outbox) {
	ownerName := state.Directory.Label(owner)
	supervisorName := state.Directory.Label(supervisor)
	names, _ := state.SupervisorNames(owner)
	session, _ := state.Sessions.Get(owner)

	out.send(owner, "💚 Monitoring session with supervisors: %s", strings.Join(names, ", "))
	out.send(supervisor, "You are now supervising %s", ownerName)
	for _, id := range session.Supervisors.IDs() {
		if id == supervisor || id == owner {
			continue
		}
		out.send(id, "%s has started supervising %s", supervisorName, ownerName)
	}
	d.logger.Printf("%s is supervising %s", supervisorName, ownerName)
}

func (d *Dispatcher) unsuperviseOne(state *domain.State, sender, owner domain.UserID, out *outbox) (bool, error) {
	ownerName := state.Directory.Label(owner)
	removed, err := state.Sessions.RemoveSupervisor(owner, sender)
	if err != nil {
		out.send(sender, "%s has no active monitoring session.", ownerName)
		return false, err
	}
	if !removed {
		out.send(sender, "You are not supervising %s.", ownerName)
		return false, nil
	}

	unsupervised := d.announceLeave(state, owner, sender, out)
	if unsupervised {
		out.send(sender, "⚠️ You are no longer supervising %s. %s is unsupervised!", ownerName, ownerName)
	} else {
		out.send(sender, "You are no longer supervising %s.", ownerName)
	}
	return true, nil
}

func (d *Dispatcher) unsuperviseAll(state *domain.State, sender domain.UserID, out *outbox) (bool, error) {
	result, err := state.Unregister(sender)
	if err != nil {
		out.send(sender, "You are not registered as a supervisor.")
		return false, err
	}

	for _, owner := range result.Affected {
		d.announceLeave(state, owner, sender, out)
	}
	if len(result.Unsupervised) > 0 {
		names := state.Directory.Labels(result.Unsupervised)
		out.send(sender, "⚠️ You have unregistered as a supervisor. %s unsupervised!", strings.Join(names, ", "))
	} else {
		out.send(sender, "You have unregistered as a supervisor.")
	}
	d.logger.Printf("Removing supervisor %s", state.Directory.Label(sender))
	return true, nil
}

// announceLeave tells owner that supervisor left and reports whether the
// session is now unsupervised.
func (d *Dispatcher) announceLeave(state *domain.State, owner, supervisor domain.UserID, out *outbox) bool {
	name := state.Directory.Label(supervisor)
	remaining, _ := state.SupervisorNames(owner)
	if len(remaining) == 0 {
		out.send(owner, "⚠️ %s has stopped supervising. No one supervising!", name)
		return true
	}

	out.send(owner, "%s has stopped supervising. Remaining supervisors: %s", name, strings.Join(remaining, ", "))
	return false
}

func (d *Dispatcher) handle(state *domain.State, sender, owner domain.UserID, out *outbox) error {
	ownerName := state.Directory.Label(owner)
	session, err := state.Sessions.Get(owner)
	if err != nil {
		out.send(sender, "%s has no active monitoring session.", ownerName)
		return err
	}
	if !session.Supervisors.Contains(sender) {
		out.send(sender, "You are not supervising %s.", ownerName)
		return nil
	}

	name := state.Directory.Label(sender)
	out.broadcast(session.Supervisors.IDs(), sender, "🛟 %s is handling the alert for %s", name, ownerName)
	out.send(owner, "🛟 %s is responding to your alert.", name)
	out.send(sender, "You are handling the alert for %s. The other supervisors have been told.", ownerName)
	d.logger.Printf("%s is handling the alert for %s", name, ownerName)
	return nil
}

func (d *Dispatcher) listSessions(state *domain.State, sender domain.UserID, out *outbox) {
	sessions := state.Sessions.Sessions()
	if len(sessions) == 0 {
		out.send(sender, "No active monitoring sessions.")
		return
	}

	lines := make([]string, 0, len(sessions)+1)
	lines = append(lines, "Active sessions:")
	for _, session := range sessions {
		supervisors := "no supervisors"
		if names := state.Directory.Labels(session.Supervisors.IDs()); len(names) > 0 {
			supervisors = strings.Join(names, ", ")
		}

		link := superviseLink(session.Owner)
		if session.Supervisors.Contains(sender) {
			link = unsuperviseLink(session.Owner)
		}
		lines = append(lines, fmt.Sprintf("%s (%s) %s", state.Directory.Label(session.Owner), supervisors, link))
	}

	out.send(sender, "%s", strings.Join(lines, "\n"))
}

func (d *Dispatcher) listUsers(state *domain.State, sender domain.UserID, out *outbox) {
	users := state.Directory.Users()
	lines := make([]string, 0, len(users)+1)
	lines = append(lines, "Users:")
	for _, user := range users {
		line := fmt.Sprintf("%s (%s)", user.Label(), user.ID)
		if state.Registry.IsSupervisor(user.ID) {
			line += " [supervisor]"
		}
		lines = append(lines, line)
	}

	out.send(sender, "%s", strings.Join(lines, "\n"))
}

// remove handles a sender who blocked the bot or left; nothing is sent back
// to them.
func (d *Dispatcher) remove(state *domain.State, sender domain.UserID, out *outbox) bool {
	if !state.Directory.Has(sender) {
		return false
	}

	removal := state.RemoveUser(sender)
	name := removal.User.Label()
	d.logger.Printf("User %s removed / blocked bot", name)

	if removal.EndedSession {
		out.broadcast(removal.EndedSupervisors, sender, "🩶 %s has ended monitoring session", name)
	}
	for _, owner := range removal.Unregistered.Affected {
		remaining, _ := state.SupervisorNames(owner)
		if len(remaining) == 0 {
			out.send(owner, "⚠️ %s has stopped supervising. No one supervising!", name)
			continue
		}
		out.send(owner, "%s has stopped supervising. Remaining supervisors: %s", name, strings.Join(remaining, ", "))
	}

	return true
}

func formatMinutes(minutes float64) string {
	if minutes == 1 {
		return "1 minute"
	}
	if minutes == float64(int64(minutes)) {
		return fmt.Sprintf("%d minutes", int64(minutes))
	}

	return fmt.Sprintf("%.1f minutes", minutes)
}
