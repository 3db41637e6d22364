package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgcheck/internal/cli/config"
	"github.com/leapstack-labs/pgcheck/internal/cli/output"
	starctx "github.com/leapstack-labs/pgcheck/internal/starlark"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, markdown, json
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor [paths...]",
		Short: "Check the pgcheck setup of a project",
		Long: `Check that pgcheck is set up correctly for your project.

The doctor command reports:
- Which configuration file is used and where the project root is
- Custom rules that failed to load
- How many rules are enabled per group
- Migrations that do not parse or carry malformed suppression comments

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Check the setup
  pgcheck doctor

  # Output as JSON
  pgcheck doctor --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary      ProjectSummary `json:"summary"`
	HealthChecks []HealthCheck  `json:"health_checks"`
	IssueCount   int            `json:"issue_count"`
}

// ProjectSummary contains project-level statistics.
type ProjectSummary struct {
	ConfigFile   string         `json:"config_file,omitempty"`
	ProjectRoot  string         `json:"project_root"`
	Files        int            `json:"files"`
	Rules        int            `json:"rules"`
	EnabledRules int            `json:"enabled_rules"`
	CustomRules  int            `json:"custom_rules"`
	EnabledBy    map[string]int `json:"enabled_by_group"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Details []string `json:"details,omitempty"`
}

// Health check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

func runDoctor(cmd *cobra.Command, args []string, opts *DoctorOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cmdCtx.WithFormat(cmd, opts.Format)
	r := cmdCtx.Renderer
	cfg := cmdCtx.Cfg

	ws, err := cmdCtx.Workspace(nil)
	if err != nil {
		return err
	}

	summary := ProjectSummary{
		ConfigFile:  config.GetConfigFileUsed(),
		ProjectRoot: cfg.ProjectRoot,
		EnabledBy:   make(map[string]int),
	}
	reg, plan := ws.Registry(), ws.Plan()
	for _, key := range reg.Rules() {
		summary.Rules++
		group := key.Group().Name()
		if group == starctx.Group {
			summary.CustomRules++
		}
		if plan.Enabled(key) {
			summary.EnabledRules++
			summary.EnabledBy[group]++
		}
	}

	checks := []HealthCheck{configCheck(summary.ConfigFile), rulesDirCheck(cfg.CustomRulesDir)}
	checks = append(checks, diagnosticCheck("custom-rules", "Custom rules load", statusError, ws.ConfigDiagnostics()))

	if len(args) == 0 {
		args = []string{"."}
	}
	files, err := expandPaths(args, cfg.Exclude)
	if err != nil {
		return err
	}
	summary.Files = len(files)
	reports, err := analyzeFiles(cmd.Context(), ws, files, 0)
	if err != nil {
		return err
	}
	var syntax, suppressions []lint.Diagnostic
	for _, rep := range reports {
		for _, d := range rep.Diagnostics {
			d.Message = fmt.Sprintf("%s:%d: %s", rep.Path, d.Pos.Line, d.Message)
			switch d.Category {
			case lint.CategorySyntax:
				syntax = append(syntax, d)
			case lint.CategorySuppressions:
				suppressions = append(suppressions, d)
			}
		}
	}
	checks = append(checks,
		diagnosticCheck("syntax", "Migrations parse", statusError, syntax),
		diagnosticCheck("suppressions", "Suppression comments", statusWarn, suppressions),
	)

	out := &DoctorOutput{Summary: summary, HealthChecks: checks}
	for _, c := range checks {
		if c.Status != statusPass {
			out.IssueCount++
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	return nil
}

func configCheck(file string) HealthCheck {
	c := HealthCheck{ID: "config", Name: "Configuration file", Status: statusPass}
	if file == "" {
		c.Status = statusWarn
		c.Details = []string{"No pgcheck.yaml found; defaults are used. Run 'pgcheck init' to create one."}
	}
	return c
}

func rulesDirCheck(dir string) HealthCheck {
	c := HealthCheck{ID: "rules-dir", Name: "Custom rules directory", Status: statusPass}
	if dir == "" {
		return c
	}
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		c.Details = []string{fmt.Sprintf("%s does not exist; no custom rules are loaded.", dir)}
	case err != nil:
		c.Status = statusError
		c.Details = []string{err.Error()}
	case !info.IsDir():
		c.Status = statusError
		c.Details = []string{fmt.Sprintf("%s is not a directory.", dir)}
	}
	return c
}

func diagnosticCheck(id, name, failStatus string, diags []lint.Diagnostic) HealthCheck {
	c := HealthCheck{ID: id, Name: name, Status: statusPass}
	if len(diags) == 0 {
		return c
	}
	c.Status = failStatus
	for _, d := range diags {
		c.Details = append(c.Details, d.Message)
	}
	return c
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("pgcheck Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	s := out.Summary
	r.Println(styles.Header2.Render("Project Summary"))
	configFile := s.ConfigFile
	if configFile == "" {
		configFile = "(defaults)"
	}
	r.Printf("   Config: %s | Root: %s\n", configFile, s.ProjectRoot)
	r.Printf("   Files: %d | Rules: %d (%d enabled, %d custom)\n", s.Files, s.Rules, s.EnabledRules, s.CustomRules)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	for _, check := range out.HealthChecks {
		icon := styles.Success.Render("✓")
		switch check.Status {
		case statusWarn:
			icon = styles.Warning.Render("!")
		case statusError:
			icon = styles.Error.Render("✗")
		}
		r.Printf("   %s %s\n", icon, check.Name)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# pgcheck Health Report")
	r.Println("")

	s := out.Summary
	r.Println("## Project Summary")
	r.Println("")
	if s.ConfigFile != "" {
		r.Printf("- **Config**: %s\n", s.ConfigFile)
	} else {
		r.Println("- **Config**: defaults")
	}
	r.Printf("- **Project Root**: %s\n", s.ProjectRoot)
	r.Printf("- **Files**: %d\n", s.Files)
	r.Printf("- **Rules**: %d (%d enabled, %d custom)\n", s.Rules, s.EnabledRules, s.CustomRules)
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")
	for _, check := range out.HealthChecks {
		r.Printf("- **[%s]** %s\n", strings.ToUpper(check.Status), check.Name)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")
}
