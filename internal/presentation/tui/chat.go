package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/greenoffice/leadchat/pkg/conversation"
	"github.com/greenoffice/leadchat/pkg/domain"
)

// AskCommand prefixes a free-text question typed at any prompt.
const AskCommand = "/ask"

// Chat drives one conversation over a line-oriented terminal.
type Chat struct {
	svc    *conversation.Service
	in     *bufio.Scanner
	out    io.Writer
	render Renderer
}

// NewChat creates a chat reading answers from in and writing rendered replies to out.
func NewChat(svc *conversation.Service, in io.Reader, out io.Writer, render Renderer) *Chat {
	if render == nil {
		render = Plain
	}
	return &Chat{svc: svc, in: bufio.NewScanner(in), out: out, render: render}
}

// Run starts or resumes sessionID and loops until the conversation closes, input
// ends, or the user types quit. It returns the last reply shown.
func (c *Chat) Run(ctx context.Context, sessionID string) (conversation.Reply, error) {
	reply, err := c.svc.Start(ctx, sessionID)
	if err != nil {
		return reply, err
	}
	if reply.Resumed {
		c.print("_Welcome back! Let's pick up where we left off._\n")
	}
	c.show(reply)

	for !closed(reply) {
		if err := ctx.Err(); err != nil {
			return reply, err
		}
		fmt.Fprint(c.out, "> ")
		if !c.in.Scan() {
			return reply, c.in.Err()
		}
		line := strings.TrimSpace(c.in.Text())

		var next conversation.Reply
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			c.print(fmt.Sprintf("_Your session id is %s. Run chat again with it to continue._\n", reply.SessionID))
			return reply, nil
		case strings.HasPrefix(line, AskCommand) || reply.Mode == domain.ModeDetour:
			next, err = c.svc.Ask(ctx, reply.SessionID, strings.TrimSpace(strings.TrimPrefix(line, AskCommand)))
		default:
			next, err = c.svc.Answer(ctx, reply.SessionID, ChoiceInput(reply.Prompt, line))
		}

		var verr *domain.ValidationError
		switch {
		case err == nil, errors.As(err, &verr):
		case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, context.Canceled):
			return reply, err
		default:
			c.print(fmt.Sprintf("_%s_\n", err))
			continue
		}
		reply = next
		c.show(reply)
	}
	return reply, nil
}

func closed(r conversation.Reply) bool {
	return r.Mode == domain.ModeClosed || (r.Status != "" && r.Status != domain.StatusActive)
}

func (c *Chat) show(r conversation.Reply) {
	c.print(Markdown(r))
}

func (c *Chat) print(markdown string) {
	out, err := c.render(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Fprint(c.out, out)
}
