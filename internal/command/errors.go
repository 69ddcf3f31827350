package command

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/rentnest/nestchat/internal/api"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	switch {
	case api.StatusCode(err) == http.StatusUnauthorized:
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: your session may have expired. Try: nestchat login")
	case api.IsBlocked(err):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: messaging is blocked for this conversation.")
	}

	return err
}
