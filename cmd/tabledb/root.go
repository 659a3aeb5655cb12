package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	TableDB "github.com/nickyhof/TableDB"
	"github.com/nickyhof/TableDB/auth"
	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/db"
	"github.com/nickyhof/TableDB/ps"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

type configKey struct{}

var setupLogger = SetupLogger

// NewRootCmd creates the tabledb command tree. The returned func flushes the
// logger the command opened; call it after Execute whether or not it failed.
func NewRootCmd() (*cobra.Command, func()) {
	var cfgFile string
	var closeLogger func()
	flush := func() {
		if closeLogger != nil {
			closeLogger()
			closeLogger = nil
		}
	}

	rootCmd := &cobra.Command{
		Use:   "tabledb",
		Short: "TableDB - JSON document table store",
		Long: `TableDB stores each table as one JSON document holding its columns and rows.

Every command checks the configured credentials before touching storage.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, configFileUsed, err := LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger, closeFn, err := setupLogger(cfg.Log, cfg.Verbose, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			closeLogger = closeFn

			if configFileUsed != "" {
				logger.Debug("using config file", "path", configFileUsed)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, configKey{}, cfg)
			ctx = withLogger(ctx, logger)
			cmd.SetContext(ctx)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./tabledb.yaml)")
	flags.String("database", "", "Database name")
	flags.String("root", "", "Storage root directory")
	flags.String("backend", "", "Storage backend (file|memory|git|s3)")
	flags.StringP("user", "u", "", "User name")
	flags.StringP("password", "p", "", "Password or token")
	flags.StringP("output", "o", "", "Output format (table|json)")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.String("log-format", "", "Log format (text|json)")
	flags.String("seq-url", "", "Seq server URL to ship logs to")
	flags.BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("backend", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"file", "memory", "git", "s3"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{db.FormatTable, db.FormatJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		newCreateCommand(),
		newInsertCommand(),
		newSelectCommand(),
		newUpdateCommand(),
		newDeleteCommand(),
		newTablesCommand(),
		newDescribeCommand(),
		newHistoryCommand(),
		newRestoreCommand(),
		newTokenCommand(),
		newVersionCommand(),
	)

	return rootCmd, flush
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}

func newBackend(ctx context.Context, cfg *Config) (ps.Backend, error) {
	identity := core.Identity{Name: cfg.Git.Name, Email: cfg.Git.Email}

	switch cfg.Backend {
	case "memory":
		return ps.NewMemoryBackend(), nil
	case "git":
		return ps.NewGitBackend(cfg.Root, identity)
	case "s3":
		return ps.NewS3Backend(ctx, cfg.S3)
	default:
		return ps.NewFileBackend(cfg.Root)
	}
}

func newAuthenticator(cfg AuthConfig) auth.Authenticator {
	static := auth.Static{Username: cfg.Username, Password: cfg.Password}
	token := &auth.Token{
		Secret:   []byte(cfg.Secret),
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
	}

	switch cfg.Mode {
	case "token":
		return token
	case "any":
		return auth.AnyOf(static, token)
	default:
		return static
	}
}

// session is an engine opened for one command invocation.
type session struct {
	engine      *db.Engine
	credentials core.Credentials
	output      string
	logger      *slog.Logger
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg := GetConfig(cmd.Context())
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	logger := GetLogger(cmd.Context())

	backend, err := newBackend(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err)
	}

	store := ps.NewStore(backend, ps.WithLogger(logger))
	instance := TableDB.Open(cfg.Database, store, newAuthenticator(cfg.Auth))

	logger.Debug("opened database",
		"database", cfg.Database,
		"backend", cfg.Backend,
		"location", backend.Location(""))

	return &session{
		engine:      instance.Engine(),
		credentials: core.Credentials{Username: cfg.User, Password: cfg.Password},
		output:      cfg.Output,
		logger:      logger,
	}, nil
}

func (s *session) render(cmd *cobra.Command, result db.Result) error {
	return result.Render(cmd.OutOrStdout(), s.output)
}

func newCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <table> <column>...",
		Short: "Create a table with the given columns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			result, err := s.engine.CreateTable(s.credentials, args[0], args[1:])
			if err != nil {
				return err
			}
			s.logger.Info("table created", "table", args[0], "columns", len(args)-1)
			return s.render(cmd, result)
		},
	}
}

func newInsertCommand() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "insert <table> --set col=value ...",
		Short: "Insert a row",
		Long: `Insert a row. Values are parsed as JSON and fall back to plain strings,
so --set age=30 stores a number and --set name=Alice a string.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseAssignments(sets)
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			result, err := s.engine.Insert(s.credentials, args[0], row)
			if err != nil {
				return err
			}
			s.logger.Info("row inserted", "table", args[0])
			return s.render(cmd, result)
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "column=value (repeatable)")

	return cmd
}

func newSelectCommand() *cobra.Command {
	var wheres []string

	cmd := &cobra.Command{
		Use:   "select <table> [--where cond ...]",
		Short: "Select matching rows",
		Long: `Select the rows matching every --where condition, in table order.

Conditions: col=v, col!=v, col>v, col>=v, col<v, col<=v. col=null matches
missing or null values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			predicate, err := parseConditions(wheres)
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			result, err := s.engine.Select(s.credentials, args[0], predicate)
			if err != nil {
				return err
			}
			return s.render(cmd, result)
		},
	}
	cmd.Flags().StringArrayVarP(&wheres, "where", "w", nil, "condition (repeatable, ANDed)")

	return cmd
}

func newUpdateCommand() *cobra.Command {
	var wheres, sets []string

	cmd := &cobra.Command{
		Use:   "update <table> --where cond ... --set col=value ...",
		Short: "Set values on matching rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			predicate, err := parseConditions(wheres)
			if err != nil {
				return err
			}
			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			result, err := s.engine.Update(s.credentials, args[0], predicate, values)
			if err != nil {
				return err
			}
			s.logger.Info("rows updated", "table", args[0], "count", result.RecordsUpdated)
			return s.render(cmd, result)
		},
	}
	cmd.Flags().StringArrayVarP(&wheres, "where", "w", nil, "condition (repeatable, ANDed)")
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "column=value (repeatable)")

	return cmd
}

func newDeleteCommand() *cobra.Command {
	var wheres []string

	cmd := &cobra.Command{
		Use:   "delete <table> [--where cond ...]",
		Short: "Delete matching rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			predicate, err := parseConditions(wheres)
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			result, err := s.engine.Delete(s.credentials, args[0], predicate)
			if err != nil {
				return err
			}
			s.logger.Info("rows deleted", "table", args[0], "count", result.RecordsDeleted)
			return s.render(cmd, result)
		},
	}
	cmd.Flags().StringArrayVarP(&wheres, "where", "w", nil, "condition (repeatable, ANDed)")

	return cmd
}

func newTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			tables, err := s.engine.Tables(s.credentials)
			if err != nil {
				return err
			}

			rows := make([]core.Row, len(tables))
			for i, table := range tables {
				rows[i] = core.Row{"table": table}
			}
			return s.render(cmd, db.QueryResult{Columns: []string{"table"}, Rows: rows, RecordsRead: len(rows)})
		},
	}
}

func newDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			schema, err := s.engine.Describe(s.credentials, args[0])
			if err != nil {
				return err
			}

			rows := make([]core.Row, len(schema))
			for i, column := range schema {
				rows[i] = core.Row{"column": column}
			}
			return s.render(cmd, db.QueryResult{Columns: []string{"column"}, Rows: rows, RecordsRead: len(rows)})
		},
	}
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <table>",
		Short: "List the revisions of a table (git backend)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			transactions, err := s.engine.History(s.credentials, args[0])
			if err != nil {
				return err
			}

			rows := make([]core.Row, len(transactions))
			for i, txn := range transactions {
				rows[i] = core.Row{
					"id":      txn.Id,
					"when":    txn.When.Format(time.RFC3339),
					"author":  txn.Author,
					"message": txn.Message,
				}
			}
			return s.render(cmd, db.QueryResult{
				Columns:     []string{"id", "when", "author", "message"},
				Rows:        rows,
				RecordsRead: len(rows),
			})
		},
	}
}

func newRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <table> <transaction>",
		Short: "Restore a table to an earlier revision (git backend)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}

			result, err := s.engine.Restore(s.credentials, args[0], args[1])
			if err != nil {
				return err
			}
			s.logger.Info("table restored", "table", args[0], "transaction", args[1])
			return s.render(cmd, result)
		},
	}
}

func newTokenCommand() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a JWT for --user signed with auth.secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			if cfg == nil {
				return fmt.Errorf("configuration not loaded")
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret is not configured")
			}

			token, err := auth.IssueToken([]byte(cfg.Auth.Secret), cfg.User, cfg.Auth.Issuer, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime (0 for no expiry)")

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "TableDB v%s\n", Version)
		},
	}
}
