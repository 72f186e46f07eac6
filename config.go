/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bank     string
	bind     string
	database string
	port     int
	prefix   string
	profile  bool
	tlsCert  string
	tlsKey   string
	verbose  bool
	version  bool

	// play and new
	promptTimeout time.Duration
	prompts       string
	qr            bool
	role          string
	room          string
	server        string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	return nil
}

func (c *Config) validateClient() error {
	u, err := url.Parse(c.server)
	if err != nil {
		return fmt.Errorf("invalid --server: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("invalid --server (scheme must be http, https, ws or wss): %s", c.server)
	}
	return nil
}

func (c *Config) validatePlay() error {
	if err := c.validateClient(); err != nil {
		return err
	}
	if c.promptTimeout <= 0 {
		return fmt.Errorf("invalid --prompt-timeout (must be positive): %s", c.promptTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// httpBase is the --server address with a web scheme and no trailing slash.
func (c *Config) httpBase() string {
	base := strings.TrimSuffix(c.server, "/")
	switch {
	case strings.HasPrefix(base, "ws://"):
		return "http://" + strings.TrimPrefix(base, "ws://")
	case strings.HasPrefix(base, "wss://"):
		return "https://" + strings.TrimPrefix(base, "wss://")
	}
	return base
}

func (c *Config) promptsURL() string {
	if c.prompts != "" {
		return c.prompts
	}
	return c.httpBase() + "/prompts"
}

func (c *Config) roomURL(key string) string {
	return c.httpBase() + "/rooms/" + url.PathEscape(key)
}

// bindEnv lets every flag in fs be set from REVEAL_<FLAG>.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("REVEAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func addClientFlags(cfg *Config, fs *pflag.FlagSet) {
	fs.StringVarP(&cfg.server, "server", "s", "http://localhost:8080", "address of the reveal server (env: REVEAL_SERVER)")
	fs.BoolVar(&cfg.qr, "qr", false, "print a QR code of the room link (env: REVEAL_QR)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: REVEAL_VERBOSE)")
}

func newCmd(cfg *Config) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:           "reveal",
		Short:         "A two-player question game. Roll, answer, and reveal together.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.StringVar(&cfg.bank, "bank", "", "question bank file (yaml, json or toml) served at /prompts (env: REVEAL_BANK)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: REVEAL_BIND)")
	fs.StringVar(&cfg.database, "db", "", "sqlite file to persist rooms in; rooms are kept in memory only if unset (env: REVEAL_DB)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: REVEAL_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: REVEAL_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: REVEAL_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: REVEAL_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: REVEAL_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: REVEAL_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: REVEAL_VERSION)")

	bindEnv(v, fs)

	cmd.AddCommand(newPlayCmd(cfg), newRoomCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("reveal v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newPlayCmd(cfg *Config) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a room as Partner A or Partner B",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validatePlay(); err != nil {
				return err
			}
			return Play(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()

	addClientFlags(cfg, fs)
	fs.DurationVar(&cfg.promptTimeout, "prompt-timeout", 10*time.Second, "time to wait for the question bank before falling back (env: REVEAL_PROMPT_TIMEOUT)")
	fs.StringVar(&cfg.prompts, "prompts", "", "question bank url; defaults to <server>/prompts (env: REVEAL_PROMPTS)")
	fs.StringVarP(&cfg.role, "role", "r", "", "play as partner A or B; asked interactively if unset (env: REVEAL_ROLE)")
	fs.StringVarP(&cfg.room, "room", "c", "", "room code to join; a new room is created if unset (env: REVEAL_ROOM)")

	bindEnv(v, fs)

	return cmd
}

func newRoomCmd(cfg *Config) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Print a fresh room code to share with your partner",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateClient(); err != nil {
				return err
			}
			return printNewRoom(cfg, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()

	addClientFlags(cfg, fs)

	bindEnv(v, fs)

	return cmd
}
