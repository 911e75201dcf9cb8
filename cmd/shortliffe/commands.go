package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/shortliffe/internal/server"
	"github.com/cognicore/shortliffe/pkg/shortliffe"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and web page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.withSystem(ctx, "", func(sys *shortliffe.System) error {
				srv, err := server.New(sys, a.cfg.Server, a.logger)
				if err != nil {
					return err
				}
				a.logger.Info("starting server",
					zap.String("addr", a.cfg.Server.Addr),
					zap.String("store", a.cfg.Store.Backend))
				return srv.ListenAndServe(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func newInferCmd(a *app) *cobra.Command {
	var (
		kbName  string
		save    bool
		asJSON  bool
		explain string
	)
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Run forward chaining over a stored knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withSystem(ctx, kbName, func(sys *shortliffe.System) error {
				res := sys.Infer()
				out := cmd.OutOrStdout()
				if asJSON {
					if err := writeJSON(out, res); err != nil {
						return err
					}
				} else {
					printResult(out, res)
				}
				if explain != "" && !asJSON {
					io.WriteString(out, res.Explain(explain))
				}
				if save {
					_, err := sys.SaveKnowledgeBase(ctx, kbName, nil)
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&kbName, "kb", "k", "", "Knowledge base name (required)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the derived facts back into the knowledge base")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().StringVar(&explain, "explain", "", "Print the inference chain for this fact")
	_ = cmd.MarkFlagRequired("kb")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		kbName string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "query TEXT...",
		Short: "Match free text against the rules of a stored knowledge base",
		Example: `  shortliffe query --kb medical "cough, fever"
  shortliffe query --kb medical "runny nose and not fever"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSystem(cmd.Context(), kbName, func(sys *shortliffe.System) error {
				rep := sys.Query(strings.Join(args, " "))
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), rep)
				}
				printReport(cmd.OutOrStdout(), rep)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&kbName, "kb", "k", "", "Knowledge base name (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("kb")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
