package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/marketly/marketly/internal/domain"
	"github.com/marketly/marketly/internal/identity"
)

// credentials prompts for whatever the flags did not supply
func (a *App) credentials(email string) (string, string, error) {
	if email == "" {
		fmt.Fprint(a.Err, "Email: ")
		line, err := a.readLine()
		if err != nil {
			return "", "", fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	fmt.Fprint(a.Err, "Password: ")
	var password string
	var err error
	if a.ReadPassword != nil {
		password, err = a.ReadPassword()
		fmt.Fprintln(a.Err) // newline after hidden input
	} else {
		password, err = a.readLine()
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}
	return email, password, nil
}

// readLine reads one line from a.In without its line ending
func (a *App) readLine() (string, error) {
	if a.in == nil {
		a.in = bufio.NewReader(a.In)
	}
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *App) runLogin(ctx context.Context, args []string) error {
	if a.Auth == nil {
		return domain.ErrNoAuthProvider
	}
	fs := a.flags("login")
	emailFlag := fs.String("e", "", "account email")
	if err := parse(fs, args); err != nil {
		return err
	}
	email, password, err := a.credentials(*emailFlag)
	if err != nil {
		return err
	}

	session, err := a.Auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	who := email
	if session != nil && session.User != nil && session.User.Email != "" {
		who = session.User.Email
	}
	fmt.Fprintf(a.Out, "Signed in as %s\n", who)
	return nil
}

func (a *App) runSignUp(ctx context.Context, args []string) error {
	if a.Auth == nil {
		return domain.ErrNoAuthProvider
	}
	fs := a.flags("signup")
	emailFlag := fs.String("e", "", "account email")
	if err := parse(fs, args); err != nil {
		return err
	}
	email, password, err := a.credentials(*emailFlag)
	if err != nil {
		return err
	}

	if err := a.Auth.SignUp(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Signed up! Now sign in.")
	return nil
}

// runLogout always reports success. The local session is cleared even when
// the remote revoke fails.
func (a *App) runLogout(ctx context.Context, args []string) error {
	fs := a.flags("logout")
	if err := parse(fs, args); err != nil {
		return err
	}
	if a.Auth != nil {
		if err := a.Auth.SignOut(ctx); err != nil {
			a.logger().Warn("remote sign-out failed", "error", err)
		}
	}
	fmt.Fprintln(a.Out, "Signed out.")
	return nil
}

// whoami is the printable form of the current session
type whoami struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (a *App) runWhoAmI(ctx context.Context, args []string) error {
	if a.Auth == nil {
		return domain.ErrNoAuthProvider
	}
	fs := a.flags("whoami")
	out := outputFlag(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	format, err := ParseFormat(*out)
	if err != nil {
		return err
	}

	session, err := a.Auth.GetSession(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return domain.ErrNotSignedIn
	}

	var me whoami
	if claims, err := identity.ParseClaims(session.AccessToken); err == nil {
		me = whoami{ID: claims.Subject, Email: claims.Email, Role: claims.Role, ExpiresAt: claims.ExpiresAt}
	}
	if u := session.User; u != nil {
		if u.ID != "" {
			me.ID = u.ID
		}
		if u.Email != "" {
			me.Email = u.Email
		}
		if u.Role != "" {
			me.Role = u.Role
		}
	}
	if !session.ExpiresAt.IsZero() {
		me.ExpiresAt = session.ExpiresAt
	}

	return write(a.Out, format, me, func(w io.Writer) error {
		fmt.Fprintf(w, "Signed in as %s\n", me.Email)
		if me.ID != "" {
			fmt.Fprintf(w, "User ID: %s\n", me.ID)
		}
		if !me.ExpiresAt.IsZero() {
			fmt.Fprintf(w, "Token expires: %s\n", me.ExpiresAt.Local().Format(time.RFC1123))
		}
		return nil
	})
}
