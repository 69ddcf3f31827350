package command

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rentnest/nestchat/internal/db"
	"github.com/rentnest/nestchat/internal/session"
	"github.com/rentnest/nestchat/internal/types"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the access token used for every request",
		Long:  "Store the access token issued by the RentNest web app. Without --token the token is read from the terminal (hidden) or stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetConfigContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				token, err = readToken(cmd)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return writeCommandError(cmd, fmt.Errorf("token cannot be empty"))
			}

			userID, _ := cmd.Flags().GetString("user-id")
			name, _ := cmd.Flags().GetString("name")
			sess := session.Session{Token: token, UserID: types.ID(strings.TrimSpace(userID)), UserName: strings.TrimSpace(name)}
			identity := sess.Identity()
			if identity.Anonymous {
				return writeCommandError(cmd, fmt.Errorf("token carries no user id; pass --user-id"))
			}
			if identity.Expired(time.Now()) {
				return writeCommandError(cmd, fmt.Errorf("token expired at %s", identity.ExpiresAt.Format(time.RFC3339)))
			}
			if err := session.Save(ctx.Config.SessionPath(), sess); err != nil {
				return writeCommandError(cmd, err)
			}
			ctx.Logger.Infow("logged in", "user", identity.UserID)

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(identityJSON(identity))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", displayName(identity), identity.UserID)
			return nil
		},
	}

	cmd.Flags().String("token", "", "access token (JWT)")
	cmd.Flags().String("user-id", "", "override the user id from the token")
	cmd.Flags().String("name", "", "override the display name from the token")
	return cmd
}

func readToken(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Token: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return line, nil
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session and clear the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetConfigContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := session.Clear(ctx.Config.SessionPath()); err != nil {
				return writeCommandError(cmd, err)
			}
			if _, statErr := os.Stat(ctx.Config.CachePath()); statErr == nil {
				conn, err := db.OpenDatabase(ctx.Config.CachePath())
				if err != nil {
					return writeCommandError(cmd, err)
				}
				resetErr := db.Reset(conn)
				_ = conn.Close()
				if resetErr != nil {
					return writeCommandError(cmd, resetErr)
				}
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"logged_out": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
	return cmd
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetConfigContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			sess, err := session.Load(ctx.Config.SessionPath())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			identity := sess.Identity()

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(identityJSON(identity))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", displayName(identity), identity.UserID)
			fmt.Fprintf(out, "  role: %s\n", identity.Role)
			if identity.ExpiresAt != nil {
				status := "valid until"
				if identity.Expired(time.Now()) {
					status = "expired"
				}
				fmt.Fprintf(out, "  token: %s %s\n", status, identity.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
	return cmd
}

func identityJSON(identity session.Identity) map[string]any {
	out := map[string]any{
		"user_id":   identity.UserID,
		"name":      identity.Name,
		"role":      identity.Role,
		"anonymous": identity.Anonymous,
	}
	if identity.ExpiresAt != nil {
		out["expires_at"] = identity.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return out
}

func displayName(identity session.Identity) string {
	if identity.Name != "" {
		return identity.Name
	}
	return string(identity.UserID)
}
