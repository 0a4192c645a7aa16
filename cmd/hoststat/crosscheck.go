// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/antimetal/hoststat/pkg/crosscheck"
)

var statusStyles = map[crosscheck.ValidationStatus]lipgloss.Style{
	crosscheck.StatusValid:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true).Padding(0, 1), // Green
	crosscheck.StatusSuspect:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true).Padding(0, 1), // Yellow
	crosscheck.StatusConflict: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Padding(0, 1),  // Red
}

func newCrossCheckCommand(o *options) *cobra.Command {
	var suspect, conflict float64

	cmd := &cobra.Command{
		Use:   "crosscheck",
		Short: "Compare procfs readings against gopsutil",
		Long: "Compare memory total, logical core count, uptime and volume sizes read from procfs " +
			"against gopsutil. gopsutil finds procfs through HOST_PROC, so set it together with --proc-path.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if suspect <= 0 || conflict < suspect {
				return fmt.Errorf("thresholds must satisfy 0 < suspect <= conflict, got %v and %v", suspect, conflict)
			}
			s, err := o.session(cmd)
			if err != nil {
				return err
			}

			validator := &crosscheck.Validator{SuspectThreshold: suspect, ConflictThreshold: conflict}
			results := crosscheck.NewChecker(o.logger, s, crosscheck.Gopsutil{}, validator).Run(cmd.Context())
			summary := crosscheck.Summary(results)

			if o.output == formatJSON {
				return o.printer(cmd).print(struct {
					Results []crosscheck.ValidationResult       `json:"results"`
					Summary map[crosscheck.ValidationStatus]int `json:"summary"`
				}{results, summary})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render("Cross-check against gopsutil"))

			rows := make([][]string, len(results))
			for i, r := range results {
				sources := make([]string, len(r.Sources))
				for j, src := range r.Sources {
					sources[j] = fmt.Sprintf("%s=%s", src.Name, strconv.FormatFloat(src.Value, 'f', -1, 64))
				}
				rows[i] = []string{
					r.Metric,
					strconv.FormatFloat(r.Consensus, 'f', -1, 64),
					strconv.FormatFloat(r.MaxDeviation, 'f', 2, 64) + "%",
					strings.ToUpper(string(r.Status)),
					strings.Join(sources, " "),
				}
			}
			fmt.Fprintln(w, renderTable(
				[]string{"metric", "consensus", "max dev", "status", "sources"},
				rows,
				func(row, col int) (lipgloss.Style, bool) {
					if col != 3 || row < 0 || row >= len(results) {
						return lipgloss.Style{}, false
					}
					style, ok := statusStyles[results[row].Status]
					return style, ok
				},
			))

			fmt.Fprintf(w, "%s, %s, %s\n",
				statusStyles[crosscheck.StatusValid].Render(fmt.Sprintf("%d valid", summary[crosscheck.StatusValid])),
				statusStyles[crosscheck.StatusSuspect].Render(fmt.Sprintf("%d suspect", summary[crosscheck.StatusSuspect])),
				statusStyles[crosscheck.StatusConflict].Render(fmt.Sprintf("%d conflict", summary[crosscheck.StatusConflict])),
			)
			return nil
		},
	}

	cmd.Flags().Float64Var(&suspect, "suspect", crosscheck.DefaultSuspectThreshold, "Deviation percent marking a metric suspect")
	cmd.Flags().Float64Var(&conflict, "conflict", crosscheck.DefaultConflictThreshold, "Deviation percent marking a metric in conflict")
	return cmd
}
