package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/tripmate/internal/client/client"
	"github.com/dmitrijs2005/tripmate/internal/client/models"
	"github.com/dmitrijs2005/tripmate/internal/common"
)

// Test seams for interactive input.
var (
	readLine   = ReadLine
	readSecret = ReadSecret
)

var errNotLoggedIn = errors.New("not logged in")

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		printlnFn("Please log in first.")
		return errNotLoggedIn
	}
	return nil
}

// describe turns an API failure into a line for the user.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, common.ErrSessionExpired):
		return "session expired, please log in again"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return err.Error()
}

func (a *App) Login(ctx context.Context) error {
	if s := a.session.State(); s.LoggedIn() {
		printlnFn(fmt.Sprintf("Already logged in as %s.", s.User.Email))
		return nil
	}

	email, err := readLine(a.reader, a.out, "Email")
	if err != nil {
		return err
	}

	password, err := readSecret(a.reader, a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	profile, err := a.session.SignIn(ctx, email, password)
	if err != nil {
		printlnFn("Login failed:", describe(err))
		return err
	}

	printlnFn(fmt.Sprintf("Logged in as %s <%s>.", profile.Name, profile.Email))
	return nil
}

type oauthRequest struct {
	Email string `json:"email"`
}

// OAuth runs the provider login. The development backend's provider
// endpoint sets the refresh cookie, which is then exchanged for an access
// credential.
func (a *App) OAuth(ctx context.Context) error {
	if s := a.session.State(); s.LoggedIn() {
		printlnFn(fmt.Sprintf("Already logged in as %s.", s.User.Email))
		return nil
	}

	email, err := readLine(a.reader, a.out, "Provider account email")
	if err != nil {
		return err
	}

	if err := a.api.Do(ctx, http.MethodPost, common.PathDevOAuth, oauthRequest{Email: email}, nil); err != nil {
		printlnFn("Provider login failed:", describe(err))
		return err
	}

	profile, err := a.session.SignInOAuth(ctx)
	if err != nil {
		printlnFn("Login failed:", describe(err))
		return err
	}

	printlnFn(fmt.Sprintf("Logged in as %s <%s>.", profile.Name, profile.Email))
	return nil
}

func (a *App) Me(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	p, err := a.api.Me(ctx)
	if err != nil {
		printlnFn("Could not load profile:", describe(err))
		return err
	}

	printlnFn(fmt.Sprintf("#%d %s <%s> role=%s", p.ID, p.Name, p.Email, p.Role))
	return nil
}

func (a *App) Status(ctx context.Context) error {
	s := a.session.State()
	if !s.LoggedIn() {
		printlnFn("Session:", s.Status.String())
		return nil
	}

	printlnFn("Session:", s.Status.String(), "as", s.User.Email)
	printlnFn("Unread notifications:", a.notes.UnreadCount())
	printlnFn("Live updates:", a.notes.ChannelState().String())
	if at, ok := a.tokens.SavedAt(ctx); ok {
		printlnFn("Credential saved:", at.Format(time.DateTime))
	}
	if a.idle.Armed() {
		printlnFn("Idle logout in:", a.idle.TimeRemaining().Round(time.Second).String())
	}
	return nil
}

func formatNotification(n models.Notification) string {
	mark := "*"
	if n.IsRead {
		mark = " "
	}
	line := fmt.Sprintf("%s #%d [%s] %s", mark, n.ID, n.Type, n.Title)
	if n.Content != "" {
		line += ": " + n.Content
	}
	return line
}

func (a *App) Notifications(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	list := a.notes.Notifications()
	if len(list) == 0 {
		printlnFn("No notifications.")
		return nil
	}
	for _, n := range list {
		printlnFn(formatNotification(n))
	}
	printlnFn(fmt.Sprintf("%d unread", a.notes.UnreadCount()))
	return nil
}

func (a *App) Read(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) == 0 {
		printlnFn("Usage: read <id>")
		return errors.New("missing notification id")
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		printlnFn("Notification id must be a number.")
		return err
	}

	if err := a.notes.MarkAsRead(ctx, id); err != nil {
		printlnFn("Server did not confirm:", describe(err))
		return err
	}
	printlnFn(fmt.Sprintf("Marked #%d as read.", id))
	return nil
}

func (a *App) ReadAll(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	if err := a.notes.MarkAllAsRead(ctx); err != nil {
		printlnFn("Server did not confirm:", describe(err))
		return err
	}
	printlnFn("All notifications marked as read.")
	return nil
}

// Stats prints the client counters kept in the local registry.
func (a *App) Stats(ctx context.Context) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(families))
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				total += c.GetValue()
			}
		}
		name := strings.TrimPrefix(mf.GetName(), "tripmate_")
		lines = append(lines, fmt.Sprintf("%-36s %g", name, total))
	}
	sort.Strings(lines)

	for _, l := range lines {
		printlnFn(l)
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	a.session.Logout()
	printlnFn("Logged out.")
	return nil
}
