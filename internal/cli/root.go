// Package cli is the portdesk command tree. Without a subcommand it runs the
// terminal dashboard; the subcommands cover the same operations for scripts.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sadopc/portdesk/internal/api"
	"github.com/sadopc/portdesk/internal/config"
	"github.com/sadopc/portdesk/internal/logging"
	"github.com/sadopc/portdesk/internal/nav"
	"github.com/sadopc/portdesk/internal/resource"
	"github.com/sadopc/portdesk/internal/session"
	"github.com/sadopc/portdesk/internal/store"
	"github.com/sadopc/portdesk/internal/tui"
)

// ErrNoSession is returned by commands that need a signed-in user.
var ErrNoSession = errors.New("no hay sesión activa: ejecute 'portdesk login'")

type options struct {
	configPath string
	apiURL     string
	verbose    bool
	envFiles   []string
}

// runtime is the wiring shared by every command of one invocation.
type runtime struct {
	cfg     config.Config
	logger  *logrus.Logger
	logFile *os.File
	store   *store.Store
	session *session.Manager
	client  *api.Client
}

func (rt *runtime) open(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configPath, opts.envFiles)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if opts.apiURL != "" {
		cfg.APIURL = opts.apiURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	f, logger, err := logging.FileLogger(cfg.LogrusLogLevel(), cfg.LogPath)
	if err != nil {
		return err
	}
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
		if cmd != cmd.Root() {
			logger.SetOutput(io.MultiWriter(f, cmd.ErrOrStderr()))
		}
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		f.Close()
		return errors.Wrap(err, "open local store")
	}

	mgr := session.New(st,
		session.WithTTL(cfg.SessionTTL),
		session.WithLogger(logger),
		session.WithAPIURL(cfg.APIURL),
	)
	client := api.New(cfg.APIURL,
		api.WithTokenSource(mgr),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger),
		api.WithRequestIDHeader(cfg.RequestIDHeader),
	)
	mgr.Bind(client)

	rt.cfg, rt.logger, rt.logFile = cfg, logger, f
	rt.store, rt.session, rt.client = st, mgr, client
	logger.WithFields(logrus.Fields{"command": cmd.CommandPath(), "api": cfg.APIURL}).Debug("started")
	return nil
}

// close is safe to call more than once.
func (rt *runtime) close() {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil && rt.logger != nil {
			rt.logger.WithError(err).Warn("close store")
		}
		rt.store = nil
	}
	if rt.logFile != nil {
		rt.logFile.Close()
		rt.logFile = nil
	}
}

// signedIn restores the saved session.
func (rt *runtime) signedIn(ctx context.Context) (session.Session, error) {
	sess, err := rt.session.Restore(ctx)
	if errors.Is(err, session.ErrNotAuthenticated) || errors.Is(err, session.ErrExpired) {
		return session.Session{}, ErrNoSession
	}
	return sess, err
}

// definition resolves a resource name the current role may open.
func (rt *runtime) definition(name string) (resource.Definition, error) {
	def, ok := resource.Lookup(name)
	if !ok {
		var names []string
		for _, d := range resource.Catalog() {
			names = append(names, d.Name)
		}
		return resource.Definition{}, errors.Errorf("recurso desconocido %q (disponibles: %s)", name, strings.Join(names, ", "))
	}
	visible := nav.Filter(nav.Sidebar(), rt.session.Role())
	if !slices.ContainsFunc(visible, func(it nav.Item) bool { return it.Path == def.Path }) {
		return resource.Definition{}, errors.Wrapf(resource.ErrForbidden, "%s", def.Label)
	}
	return def, nil
}

func newRootCmd() (*cobra.Command, *runtime) {
	opts := &options{envFiles: []string{".env", ".env.local"}}
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:   "portdesk",
		Short: "Panel de gestión portuaria y logística para la terminal",
		Long: `portdesk es el cliente de terminal del backend de gestión portuaria.

Sin subcomandos abre el panel interactivo. Los subcomandos permiten iniciar
sesión, listar recursos, consultar estadísticas y exportar datos.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.open(cmd, opts)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			rt.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(rt)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultFile(), "archivo de configuración YAML")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", "", "URL base del backend (por defecto PORTDESK_API_URL)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "registro detallado")

	cmd.AddCommand(
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newWhoamiCmd(rt),
		newListCmd(rt),
		newStatsCmd(rt),
		newExportCmd(rt),
	)
	return cmd, rt
}

func runDashboard(rt *runtime) error {
	app := tui.NewApp(tui.Deps{
		Config:  rt.cfg,
		Backend: rt.client,
		Session: rt.session,
		Store:   rt.store,
		Logger:  rt.logger,
	})
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return errors.Wrap(err, "run dashboard")
	}
	return nil
}

// Run executes the command line args and returns the exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	cmd, rt := newRootCmd()
	defer rt.close()

	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}
