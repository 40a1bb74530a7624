package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notecast/internal/deps"
	"notecast/internal/preflight"
)

type doctorReport struct {
	Dependencies []doctorDependency `json:"dependencies"`
	Checks       []doctorCheck      `json:"checks"`
	Healthy      bool               `json:"healthy"`
}

type doctorDependency struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

type doctorCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories, and remote services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cfg)
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Network: !offline})
			report := buildDoctorReport(statuses, results)

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printDoctorReport(cmd, report)
			}
			if !report.Healthy {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip translation and LLM reachability checks")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")
	return cmd
}

func buildDoctorReport(statuses []deps.Status, results []preflight.Result) doctorReport {
	report := doctorReport{Healthy: len(deps.MissingRequired(statuses)) == 0 && len(preflight.Failed(results)) == 0}
	for _, s := range statuses {
		report.Dependencies = append(report.Dependencies, doctorDependency{
			Name:      s.Name,
			Command:   s.Command,
			Optional:  s.Optional,
			Available: s.Available,
			Detail:    s.Detail,
		})
	}
	for _, r := range results {
		report.Checks = append(report.Checks, doctorCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return report
}

func printDoctorReport(cmd *cobra.Command, report doctorReport) {
	out := cmd.OutOrStdout()
	color := shouldColorize(out)

	depRows := make([][]string, 0, len(report.Dependencies))
	for _, d := range report.Dependencies {
		state := "ok"
		switch {
		case !d.Available && d.Optional:
			state = "missing (optional)"
		case !d.Available:
			state = "missing"
		}
		depRows = append(depRows, []string{d.Name, d.Command, state, d.Detail})
	}
	fmt.Fprintln(out, heading("Dependencies", color))
	fmt.Fprintln(out, renderTable([]string{"Name", "Command", "Status", "Detail"}, depRows, nil))

	checkRows := make([][]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		state := "ok"
		if !c.Passed {
			state = "fail"
		}
		checkRows = append(checkRows, []string{c.Name, state, c.Detail})
	}
	fmt.Fprintln(out, heading("Checks", color))
	fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, checkRows, nil))
}
