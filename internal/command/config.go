package command

import (
	"github.com/spf13/cobra"

	"github.com/rentnest/nestchat/internal/core"
)

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"api-url":    "api_url",
	"socket-url": "socket_url",
	"debug":      "debug",
}

// loadConfig resolves the config from defaults, file, environment and flags,
// in increasing precedence.
func loadConfig(cmd *cobra.Command) (*core.Config, error) {
	v := core.NewViper()
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	path, _ := cmd.Flags().GetString("config")
	return core.LoadConfig(v, path)
}
