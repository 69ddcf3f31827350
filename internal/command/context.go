package command

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rentnest/nestchat/internal/api"
	"github.com/rentnest/nestchat/internal/convo"
	"github.com/rentnest/nestchat/internal/core"
	"github.com/rentnest/nestchat/internal/db"
	"github.com/rentnest/nestchat/internal/session"
	"github.com/rentnest/nestchat/internal/transport"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	Config   *core.Config
	Logger   *zap.SugaredLogger
	JSONMode bool

	Session  *session.Session
	Identity session.Identity
	Client   *api.Client

	DB    *sql.DB
	Cache *db.Cache
}

// GetConfigContext resolves config and logging only; used by commands that
// work without a stored login.
func GetConfigContext(cmd *cobra.Command) (*CommandContext, error) {
	jsonMode, _ := cmd.Flags().GetBool("json")
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := core.NewLogger(cfg.Debug, cfg.LogPath())
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return &CommandContext{Config: cfg, Logger: logger, JSONMode: jsonMode}, nil
}

// GetContext resolves config, the stored session, the API client and the
// local cache. A cache that cannot be opened is logged and skipped.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx, err := GetConfigContext(cmd)
	if err != nil {
		return nil, err
	}
	sess, err := session.Load(ctx.Config.SessionPath())
	if err != nil {
		return nil, err
	}
	identity := sess.Identity()
	if identity.Anonymous {
		return nil, fmt.Errorf("stored session has no user identity: run 'nestchat login'")
	}
	if identity.Expired(time.Now()) {
		return nil, fmt.Errorf("session expired: run 'nestchat login'")
	}
	client, err := api.NewClient(ctx.Config.APIURL, sess.Token, ctx.Config.RequestTimeout)
	if err != nil {
		return nil, err
	}
	ctx.Session = sess
	ctx.Identity = identity
	ctx.Client = client

	conn, err := db.OpenDatabase(ctx.Config.CachePath())
	if err != nil {
		ctx.Logger.Warnw("local cache unavailable", "path", ctx.Config.CachePath(), "error", err)
		return ctx, nil
	}
	ctx.DB = conn
	ctx.Cache = &db.Cache{DB: conn, Limit: ctx.Config.HistoryLimit}
	return ctx, nil
}

// Close releases the cache and flushes the logger.
func (c *CommandContext) Close() {
	if c.DB != nil {
		_ = c.DB.Close()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

// Dial connects the realtime channel as the session user.
func (c *CommandContext) Dial(ctx context.Context) (*transport.Socket, error) {
	return transport.Dial(ctx, transport.Options{
		URL:            c.Config.SocketURL,
		UserID:         c.Identity.UserID,
		Token:          c.Session.Token,
		ReconnectDelay: c.Config.ReconnectDelay,
		Logger:         c.Logger,
	})
}

// NewController builds a conversation controller over the context's client,
// transport and cache.
func (c *CommandContext) NewController(t transport.Transport) *convo.Controller {
	opts := convo.Options{
		Self:      c.Identity.UserID,
		SelfName:  c.Identity.Name,
		API:       c.Client,
		Transport: t,
		Logger:    c.Logger,
	}
	if c.Cache != nil {
		opts.Cache = c.Cache
	}
	return convo.New(opts)
}
