package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	f "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/dynvar"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filtering"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/schema"
)

const envPrefix = "FILTERCTL"

// Config keys, shared by flags, FILTERCTL_* variables and the config file.
const (
	keySchema     = "schema"
	keyCollection = "collection"
	keyLogLevel   = "log-level"
	keyMode       = "mode"
	keyPatterns   = "patterns"
	keyNow        = "now"
	keyUser       = "user"
	keyRole       = "role"
	keyRoles      = "roles"
	keyPolicies   = "policies"
)

func Execute() int {
	rootCmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type app struct {
	v      *viper.Viper
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger zerolog.Logger
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: zerolog.Nop(),
	}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "filterctl",
		Short:         "Parse, merge, compile and validate collection filters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				a.v.SetConfigFile(configFile)
				if err := a.v.ReadInConfig(); err != nil {
					return errors.Wrap(err, "read config")
				}
			}
			level, err := zerolog.ParseLevel(a.v.GetString(keyLogLevel))
			if err != nil {
				return errors.Wrap(err, "log level")
			}
			a.logger = zerolog.New(zerolog.ConsoleWriter{Out: a.stderr, TimeFormat: time.RFC3339}).
				Level(level).
				With().Timestamp().Str("command", cmd.Name()).
				Logger()
			return nil
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.String(keySchema, "", "schema snapshot (yaml)")
	flags.StringP(keyCollection, "c", "", "collection the filter applies to")
	flags.String(keyLogLevel, "warn", "log level")
	flags.String(keyMode, f.ResolveDeferred.String(), "dynamic variable resolution: deferred or immediate")
	flags.Bool(keyPatterns, false, "check field patterns when validating")
	flags.String(keyNow, "", "current time for $NOW (RFC 3339), defaults to the clock")
	flags.String(keyUser, "", "value of $CURRENT_USER")
	flags.String(keyRole, "", "value of $CURRENT_ROLE")
	flags.StringSlice(keyRoles, nil, "values of $CURRENT_ROLES")
	flags.StringSlice(keyPolicies, nil, "values of $CURRENT_POLICIES")
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	rootCmd.AddCommand(
		newOperatorsCmd(a),
		newParseCmd(a),
		newMergeCmd(a),
		newSQLCmd(a),
		newValidateCmd(a),
	)
	return rootCmd
}

func (a *app) service() (*filtering.Service, error) {
	path := a.v.GetString(keySchema)
	if path == "" {
		return nil, errors.New("no schema given, use --schema or FILTERCTL_SCHEMA")
	}
	snapshot, err := schema.LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("schema", path).Strs("collections", snapshot.Collections()).Msg("schema loaded")

	opts := []filtering.Option{filtering.WithLogger(a.logger)}
	if a.v.GetBool(keyPatterns) {
		opts = append(opts, filtering.WithPatterns())
	}
	return filtering.NewService(operators.NewDefaultRegistry(), schema.NewSource(snapshot), opts...), nil
}

func (a *app) collection() (string, error) {
	collection := a.v.GetString(keyCollection)
	if collection == "" {
		return "", errors.New("no collection given, use --collection")
	}
	return collection, nil
}

func (a *app) mode() (f.Mode, error) {
	switch mode := a.v.GetString(keyMode); mode {
	case f.ResolveDeferred.String():
		return f.ResolveDeferred, nil
	case f.ResolveImmediate.String():
		return f.ResolveImmediate, nil
	default:
		return 0, errors.Errorf("unknown mode %q", mode)
	}
}

func (a *app) variables() (dynvar.Context, error) {
	ctx := dynvar.Context{}
	if now := a.v.GetString(keyNow); now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			return ctx, errors.Wrap(err, "now")
		}
		ctx.Now = func() time.Time { return t }
	}
	accountability := &dynvar.Accountability{
		User:     a.v.GetString(keyUser),
		Role:     a.v.GetString(keyRole),
		Roles:    a.v.GetStringSlice(keyRoles),
		Policies: a.v.GetStringSlice(keyPolicies),
	}
	if accountability.User != "" || accountability.Role != "" || len(accountability.Roles) > 0 || len(accountability.Policies) > 0 {
		ctx.Accountability = accountability
	}
	return ctx, nil
}
