package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/workout/internal/client/api"
)

// report prints err the way the user needs to see it and returns it.
func (a *App) report(err error) error {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		a.printf("Not authorized (%v). Use 'token' to set a fresh ID token.\n", err)
	case errors.Is(err, api.ErrNotFound):
		a.printf("Message not found\n")
	default:
		a.printf("Error: %v\n", err)
	}
	return err
}

func (a *App) requireToken() bool {
	if !a.isLoggedIn() {
		a.printf("No token set. Use 'token' first.\n")
		return false
	}
	return true
}

// Token prompts for an ID token and checks it against /auth/me.
func (a *App) Token(ctx context.Context) error {
	tok, err := GetSecret(a.reader, "Paste ID token", a.out)
	if err != nil {
		return a.report(err)
	}
	if tok == "" {
		a.printf("Token unchanged\n")
		return nil
	}

	a.api.SetToken(tok)
	u, err := a.api.Me(ctx)
	if err != nil {
		a.api.SetToken("")
		return a.report(err)
	}
	a.printf("Signed in as %s\n", describeUser(u))
	return nil
}

func (a *App) Me(ctx context.Context) error {
	if !a.requireToken() {
		return nil
	}
	u, err := a.api.Me(ctx)
	if err != nil {
		return a.report(err)
	}
	a.printf("id=%d sub=%s email=%s\n", u.ID, u.CognitoSub, emailOf(u))
	return nil
}

func (a *App) List(ctx context.Context) error {
	if !a.requireToken() {
		return nil
	}
	msgs, err := a.api.ListMessages(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(msgs) == 0 {
		a.printf("No messages\n")
		return nil
	}
	for _, m := range msgs {
		a.printf("%6d  %s  %s\n", m.ID, m.CreatedAt.Local().Format(time.DateTime), m.Text)
	}
	return nil
}

// Post sends text, or prompts for it when text is empty.
func (a *App) Post(ctx context.Context, text string) error {
	if !a.requireToken() {
		return nil
	}
	if text == "" {
		var err error
		text, err = GetSimpleText(a.reader, "Message", a.out)
		if err != nil {
			return a.report(err)
		}
	}

	m, err := a.api.CreateMessage(ctx, text)
	if err != nil {
		return a.report(err)
	}
	a.printf("Created message %d\n", m.ID)
	return nil
}

func (a *App) Delete(ctx context.Context, arg string) error {
	if !a.requireToken() {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		a.printf("Usage: delete <id>\n")
		return nil
	}
	if err := a.api.DeleteMessage(ctx, id); err != nil {
		return a.report(err)
	}
	a.printf("Deleted message %d\n", id)
	return nil
}

func describeUser(u *api.User) string {
	if u.Email != nil {
		return *u.Email
	}
	return u.CognitoSub
}

func emailOf(u *api.User) string {
	if u.Email == nil {
		return "-"
	}
	return *u.Email
}
