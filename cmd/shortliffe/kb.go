package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cognicore/shortliffe/pkg/shortliffe"
	"github.com/cognicore/shortliffe/pkg/shortliffe/store"
)

func newKBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kb",
		Aliases: []string{"knowledge-base"},
		Short:   "Manage stored knowledge bases",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored knowledge bases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSystem(cmd.Context(), "", func(sys *shortliffe.System) error {
				names, err := sys.ListKnowledgeBases(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show NAME",
		Short: "Print a stored knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSystem(cmd.Context(), args[0], func(sys *shortliffe.System) error {
				snap := sys.State()
				switch format {
				case "text":
					printSnapshot(cmd.OutOrStdout(), snap)
					return nil
				case "json", "yaml":
					data, err := store.Encode("out."+format, snap)
					if err != nil {
						return err
					}
					_, err = cmd.OutOrStdout().Write(data)
					return err
				default:
					return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
				}
			})
		},
	}
	show.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSystem(cmd.Context(), "", func(sys *shortliffe.System) error {
				return sys.DeleteKnowledgeBase(cmd.Context(), args[0])
			})
		},
	}

	var as string
	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a JSON or YAML snapshot file and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			snap, err := store.Decode(args[0], data)
			if err != nil {
				return err
			}
			name := as
			if name == "" {
				name = filepath.Base(args[0])
			}
			return a.withSystem(cmd.Context(), "", func(sys *shortliffe.System) error {
				stored, err := sys.SaveKnowledgeBase(cmd.Context(), name, &snap)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d facts, %d rules)\n",
					stored, len(snap.Facts), len(snap.Rules))
				return nil
			})
		},
	}
	imp.Flags().StringVar(&as, "as", "", "Store under this name (default: the file name)")

	cmd.AddCommand(list, show, del, imp)
	return cmd
}
