package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlekbai/query_forge/internal/compiler"
	"github.com/atlekbai/query_forge/internal/config"
	"github.com/atlekbai/query_forge/internal/dynval"
	"github.com/atlekbai/query_forge/internal/edition"
	"github.com/atlekbai/query_forge/internal/fragment"
	"github.com/atlekbai/query_forge/internal/handler"
	"github.com/atlekbai/query_forge/internal/hostenv"
	"github.com/atlekbai/query_forge/internal/logging"
	"github.com/atlekbai/query_forge/internal/schema"
	"github.com/atlekbai/query_forge/internal/source"
	"github.com/atlekbai/query_forge/internal/store"
)

type options struct {
	pro     bool
	page    int
	preview bool
	viewer  int64
	record  int64
}

func (o *options) request(env dynval.Env) compiler.Request {
	return compiler.Request{Page: o.page, Preview: o.preview, Env: env}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "qfc",
		Short:        "Compile and run query forge schema documents",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.pro, "pro", false, "enable full edition features")
	root.PersistentFlags().IntVar(&opts.page, "page", 1, "page to compile or fetch")
	root.PersistentFlags().BoolVar(&opts.preview, "preview", false, "show records in every status")
	root.PersistentFlags().Int64Var(&opts.viewer, "viewer", 0, "viewer ID for dynamic values")
	root.PersistentFlags().Int64Var(&opts.record, "record", 0, "current record ID for dynamic values")

	root.AddCommand(newCompileCmd(opts), newRunCmd(opts))
	return root
}

func readDocument(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func newCompileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compile [file]",
		Short: "Print the SQL a record schema compiles to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readDocument(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			decoder, err := schema.NewDecoder(1)
			if err != nil {
				return err
			}
			comp := compiler.New(compiler.Deps{
				Decoder:  decoder,
				Registry: fragment.NewRegistry(cfg.TablePrefix),
				Gate:     edition.Static(opts.pro),
			})
			env := dynval.StaticEnv{Viewer: opts.viewer, Record: opts.record}
			sql, sqlArgs, err := comp.RecordSQL(raw, opts.request(env))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sql)
			for i, a := range sqlArgs {
				fmt.Fprintf(out, "$%d = %v\n", i+1, a)
			}
			return nil
		},
	}
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run [file]",
		Short: "Execute a schema against the configured database and print the page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readDocument(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			catalog := schema.NewCatalog()
			if err := catalog.Load(ctx, schema.PoolLoader(pool)); err != nil {
				logger.Warn("catalog load failed", zap.Error(err))
			}
			decoder, err := schema.NewDecoder(1)
			if err != nil {
				return err
			}

			gate := edition.Static(opts.pro)
			st := store.New(pool, cfg.TablePrefix)
			remote := source.NewRemoteClient(source.WithTimeout(cfg.RemoteTimeout), source.WithLogger(logger))
			comp := compiler.New(compiler.Deps{
				Decoder:  decoder,
				Registry: fragment.NewRegistry(cfg.TablePrefix),
				Router:   source.NewRouter(source.StoreBackends(st), remote, gate, logger),
				Gate:     gate,
				Log:      logger,
			})

			env := hostenv.New(ctx, st, catalog, hostenv.Request{ViewerID: opts.viewer, RecordID: opts.record}, logger)
			w := comp.GetQuery(ctx, raw, opts.request(env))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(handler.PageResponse{
				Items:     w.Items(),
				Total:     w.Total(),
				PerPage:   w.PerPage(),
				PageCount: w.PageCount(),
				Page:      opts.page,
				HasMore:   w.HasMore(opts.page),
			})
		},
	}
}
