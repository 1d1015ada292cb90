package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/martinemde/yoauditor/unifiedllm"
)

func newModelsCmd(stdout io.Writer) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models with known context windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models := unifiedllm.ListModels(provider)
			if len(models) == 0 {
				return fmt.Errorf("no known models for provider %q", provider)
			}
			printModels(stdout, models)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "only list models of this provider")
	return cmd
}

func printModels(w io.Writer, models []unifiedllm.ModelInfo) {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true)
	dim := r.NewStyle().Faint(true)

	fmt.Fprintln(w, header.Render(fmt.Sprintf("%-24s %-10s %8s  %s", "MODEL", "PROVIDER", "CONTEXT", "TOOLS")))
	for _, m := range models {
		tools := "yes"
		if !m.SupportsTools {
			tools = "no"
		}
		fmt.Fprintf(w, "%-24s %-10s %8d  %s", m.ID, m.Provider, m.ContextWindow, tools)
		if len(m.Aliases) > 0 {
			fmt.Fprint(w, dim.Render(fmt.Sprintf("  (%s)", strings.Join(m.Aliases, ", "))))
		}
		fmt.Fprintln(w)
	}
}
