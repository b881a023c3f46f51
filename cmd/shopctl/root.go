package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/storeclient"
)

// offline marks commands that never talk to the API.
const offline = "offline"

type options struct {
	Server     string        `mapstructure:"server"`
	CookieFile string        `mapstructure:"cookie_file"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Verbose    bool          `mapstructure:"verbose"`
}

// app is the state shared by one shopctl invocation.
type app struct {
	cfgFile string
	opts    options
	log     *slog.Logger

	http    *authclient.HTTPTransport
	session *authclient.Manager
	api     *storeclient.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "shopctl",
		Short: "Storefront API client",
		Long: `shopctl talks to a storefront API server. The session is kept in a cookie
file between runs and refreshed automatically when the access token expires.

Example usage:
  shopctl login --email ann@example.com --password secret1
  shopctl products featured
  shopctl cart add <product-id> --qty 2
  shopctl checkout --coupon GIFT1A2B3C --confirm`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			if cmd.Annotations[offline] != "" {
				return nil
			}
			return a.connect()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.shopctl/config.yaml)")
	pf.String("server", "http://localhost:8080", "storefront API base URL")
	pf.String("cookie-file", "", "session cookie file (default is $HOME/.shopctl/cookies.json)")
	pf.Duration("timeout", 10*time.Second, "per request timeout")
	pf.BoolP("verbose", "v", false, "log session activity to stderr")

	root.AddCommand(
		newSignupCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProductsCmd(a),
		newCartCmd(a),
		newCouponCmd(a),
		newCheckoutCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	v := viper.New()
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.shopctl")
	}
	v.SetEnvPrefix("SHOPCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	pf := cmd.Root().PersistentFlags()
	_ = v.BindPFlag("server", pf.Lookup("server"))
	_ = v.BindPFlag("cookie_file", pf.Lookup("cookie-file"))
	_ = v.BindPFlag("timeout", pf.Lookup("timeout"))
	_ = v.BindPFlag("verbose", pf.Lookup("verbose"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	if err := v.Unmarshal(&a.opts); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}

	if a.opts.CookieFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("locate home directory: %w", err)
		}
		a.opts.CookieFile = filepath.Join(home, ".shopctl", "cookies.json")
	}

	level := "warn"
	if a.opts.Verbose {
		level = "debug"
	}
	a.log = logging.NewText(cmd.ErrOrStderr(), level)
	return nil
}

func (a *app) connect() error {
	t, err := authclient.NewHTTPTransport(a.opts.Server, authclient.WithTimeout(a.opts.Timeout))
	if err != nil {
		return err
	}
	if err := a.loadCookies(t); err != nil {
		return err
	}
	a.http = t
	a.session = authclient.NewManager(t, authclient.WithLogger(a.log))
	a.api = storeclient.New(a.session.Transport())
	return nil
}

func (a *app) loadCookies(t *authclient.HTTPTransport) error {
	f, err := os.Open(a.opts.CookieFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open cookie file: %w", err)
	}
	defer f.Close()
	if err := t.LoadCookies(f); err != nil {
		a.log.Warn("cookie_file_ignored", "path", a.opts.CookieFile, "error", err)
	}
	return nil
}

func (a *app) saveCookies() error {
	if err := os.MkdirAll(filepath.Dir(a.opts.CookieFile), 0o700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}
	f, err := os.OpenFile(a.opts.CookieFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	if err := a.http.SaveCookies(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type runFunc func(ctx context.Context, cmd *cobra.Command, args []string) error

// online wraps a command that talks to the API. Cookies are written back even
// when fn fails, since a refresh may already have rotated them.
func (a *app) online(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			a.session.Close()
			if serr := a.saveCookies(); serr != nil && err == nil {
				err = serr
			}
		}()
		return fn(withContext(cmd), cmd, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func withContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
