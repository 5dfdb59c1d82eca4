package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmintegration/cmclient/internal/backend"
	"github.com/cmintegration/cmclient/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries the state of one CLI invocation. Nothing is shared between
// invocations; every command builds its own client.
type app struct {
	v        *viper.Viper
	cfgFile  string
	logger   *zap.Logger
	registry *prometheus.Registry
}

// viper key → persistent flag name.
var flagKeys = map[string]string{
	"endpoint":        "endpoint",
	"user":            "user",
	"password":        "password",
	"backend":         "backend",
	"format":          "format",
	"log_level":       "log-level",
	"strict_literals": "strict-literals",
	"timeout":         "timeout",
	"rate_limit":      "rate-limit",
	"insecure":        "insecure",
	"metrics_file":    "metrics-file",
}

func newRootCmd() *cobra.Command {
	a := &app{
		v:        viper.New(),
		logger:   zap.NewNop(),
		registry: prometheus.NewRegistry(),
	}

	root := &cobra.Command{
		Use:   "cmclient",
		Short: "SAP Change Management CLI",
		Long: `cmclient talks to the SAP Change Management OData service.

It checks change status, lists, creates and releases transports, and
uploads build artifacts into transports. Connection settings come from
flags, CMCLIENT_* environment variables or ~/.cmclient/config.yaml.`,
		Version:      version,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ~/.cmclient/config.yaml)")
	pf.StringP("endpoint", "e", "", "OData service URL, e.g. https://host/sap/opu/odata/SAP/AI_CRM_GW_CM_CI_SRV")
	pf.StringP("user", "u", "", "Service user")
	pf.StringP("password", "p", "", "Service password; '-' reads it from stdin")
	pf.String("backend", string(backend.SOLMAN), "Backend type: SOLMAN or ABAP")
	pf.String("format", "text", "Output format: text, json or yaml")
	pf.String("log-level", "warn", "Log level: debug, info, warn or error")
	pf.Bool("strict-literals", false, "Escape quotes and query delimiters in OData string literals")
	pf.Duration("timeout", 60*time.Second, "Per-request timeout")
	pf.Float64("rate-limit", 0, "Maximum requests per second; 0 disables pacing")
	pf.Bool("insecure", false, "Skip TLS certificate verification (development only)")
	pf.String("metrics-file", "", "Write request metrics in Prometheus text format to this file")

	for key, name := range flagKeys {
		_ = a.v.BindPFlag(key, pf.Lookup(name))
	}

	root.AddCommand(
		newIsChangeInDevelopmentCmd(a),
		newGetChangeTransportsCmd(a),
		newTransportFieldCmd(a, "get-transport-owner", "Print the owner of a transport", backend.FieldOwner),
		newTransportFieldCmd(a, "get-transport-description", "Print the description of a transport", backend.FieldDescription),
		newTransportFieldCmd(a, "get-transport-modifiable", "Print whether a transport is modifiable", backend.FieldModifiable),
		newCreateTransportCmd(a),
		newReleaseTransportCmd(a),
		newUploadFileCmd(a),
		newCheckConnectionCmd(a),
		newVersionCmd(),
	)
	return root
}

// init loads configuration and builds the logger. An explicit --config must
// exist; the default location is optional.
func (a *app) init(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, ".cmclient"))
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}
	a.v.SetEnvPrefix("CMCLIENT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	switch f := a.v.GetString("format"); f {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", f)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), a.v.GetString("log_level"))
	if err != nil {
		return err
	}
	a.logger = logger
	a.logger.Debug("configuration loaded",
		zap.String("config", a.v.ConfigFileUsed()),
		zap.String("endpoint", a.v.GetString("endpoint")),
		zap.String("backend", a.v.GetString("backend")),
	)
	return nil
}

func newLogger(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// run wraps a command body so that metrics are written and the logger is
// flushed whether or not the command succeeds.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if merr := a.writeMetrics(); merr != nil && err == nil {
			err = merr
		}
		_ = a.logger.Sync()
		return err
	}
}

func (a *app) writeMetrics() error {
	path := a.v.GetString("metrics_file")
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// ── client construction ─────────────────────────────────────────────────────

func (a *app) newClient(cmd *cobra.Command) (*client.Client, error) {
	endpoint := a.v.GetString("endpoint")
	if endpoint == "" {
		return nil, errors.New("no service endpoint configured (use --endpoint or CMCLIENT_ENDPOINT)")
	}
	user := a.v.GetString("user")
	if user == "" {
		return nil, errors.New("no service user configured (use --user or CMCLIENT_USER)")
	}
	password, err := resolvePassword(a.v.GetString("password"), cmd.InOrStdin())
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithLogger(a.logger),
		client.WithMetrics(a.registry),
		client.WithTimeout(a.v.GetDuration("timeout")),
	}
	if a.v.GetBool("insecure") {
		opts = append(opts, client.WithInsecureSkipVerify())
	}
	if a.v.GetBool("strict_literals") {
		opts = append(opts, client.WithStrictLiterals())
	}
	if rps := a.v.GetFloat64("rate_limit"); rps > 0 {
		opts = append(opts, client.WithRateLimit(rps, 1))
	}
	return client.New(endpoint, user, password, opts...)
}

func (a *app) newService(cmd *cobra.Command) (*backend.Service, error) {
	b, err := backend.ParseType(a.v.GetString("backend"))
	if err != nil {
		return nil, err
	}
	c, err := a.newClient(cmd)
	if err != nil {
		return nil, err
	}
	return backend.New(b, c, a.logger), nil
}

// resolvePassword returns password, or the first line of stdin when it is
// "-".
func resolvePassword(password string, stdin io.Reader) (string, error) {
	if password != "-" {
		if password == "" {
			return "", errors.New("no service password configured (use --password or CMCLIENT_PASSWORD)")
		}
		return password, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password read from stdin")
	}
	return line, nil
}

// ── check-connection ────────────────────────────────────────────────────────

func newCheckConnectionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-connection",
		Short: "Verify that the service is reachable with the configured credentials",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			c, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			if err := c.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("check connection to %s: %w", c.ServiceURL(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		}),
	}
}

// ── version ─────────────────────────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cmclient version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cmclient %s (SAP Change Management CLI)\n", version)
		},
	}
}
