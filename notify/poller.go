package notify

import (
	"errors"
	"strconv"
	"strings"

	"auto_traider_go/logs"
	"auto_traider_go/state"
)

// CommandChannel is the inbound/outbound capability the poller needs.
// *TelegramClient implements it.
type CommandChannel interface {
	Send(text string) error
	GetUpdates(offset int64) ([]Update, error)
	ChatID() string
}

// CommandPoller drains the inbound command backlog. The cursor advances
// monotonically and is persisted after every processed update; a
// conflict from the channel resets it to zero.
type CommandPoller struct {
	channel  CommandChannel
	state    state.StateManagerInterface
	handlers map[string]func() string
}

func NewCommandPoller(channel CommandChannel, st state.StateManagerInterface) *CommandPoller {
	return &CommandPoller{
		channel:  channel,
		state:    st,
		handlers: make(map[string]func() string),
	}
}

// Handle registers a command. fn returns the report text to send back.
func (p *CommandPoller) Handle(command string, fn func() string) {
	p.handlers[command] = fn
}

// Poll fetches pending updates and actions recognized commands. Channel
// failures are logged and swallowed; they never reach the decision path.
func (p *CommandPoller) Poll() {
	updates, err := p.channel.GetUpdates(p.state.TelegramOffset())
	if errors.Is(err, ErrConflict) {
		logs.Warn("[Poller] conflicting consumer detected, resetting command cursor.")
		if err := p.state.SetTelegramOffset(0); err != nil {
			logs.Errorf("[Poller] failed to persist cursor reset: %v", err)
		}
		return
	}
	if err != nil {
		logs.Debugf("[Poller] poll failed: %v", err)
		return
	}

	for _, u := range updates {
		if err := p.state.SetTelegramOffset(u.UpdateID + 1); err != nil {
			logs.Errorf("[Poller] failed to persist command cursor: %v", err)
		}
		if u.Message == nil {
			continue
		}
		if strconv.FormatInt(u.Message.Chat.ID, 10) != p.channel.ChatID() {
			continue
		}
		cmd := strings.TrimSpace(u.Message.Text)
		fn, ok := p.handlers[cmd]
		if !ok {
			continue
		}
		logs.Infof("[Poller] handling command %s", cmd)
		if err := p.channel.Send(fn()); err != nil {
			logs.Errorf("[Poller] failed to send %s report: %v", cmd, err)
		}
	}
}
