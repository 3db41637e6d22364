package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgcheck/internal/cli/output"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Group   string // Filter by group
	Enabled bool   // Only rules the configuration enables
	Verbose bool   // Show full documentation
	Format  string // Output format
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule]",
		Short: "List available lint rules",
		Long: `List all available lint rules with their documentation.

Rules are organized by group. Custom rules loaded from the custom rules
directory are listed in the "custom" group. Use --verbose to see full
documentation including examples and fix guidance.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all rules
  pgcheck rules

  # Show details for a specific rule
  pgcheck rules banDropColumn

  # List rules in the safety group
  pgcheck rules --group safety

  # Show full documentation
  pgcheck rules -V

  # Output as JSON
  pgcheck rules --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0], opts)
			}
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Filter by group")
	cmd.Flags().BoolVar(&opts.Enabled, "enabled", false, "Only list enabled rules")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Show full documentation")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

// ruleCatalog is the registry and plan of the current project.
type ruleCatalog struct {
	reg  *lint.Registry
	plan *lint.Plan
}

func loadCatalog(cmdCtx *CommandContext) (*ruleCatalog, error) {
	ws, err := cmdCtx.Workspace(nil)
	if err != nil {
		return nil, err
	}
	return &ruleCatalog{reg: ws.Registry(), plan: ws.Plan()}, nil
}

func (c *ruleCatalog) info(key lint.RuleKey) output.RuleInfo {
	meta, _ := c.reg.Metadata(key)
	sev := meta.Severity
	if s, ok := c.plan.Severity(key); ok {
		sev = s
	}
	return output.RuleInfo{
		Key:         key.String(),
		Name:        meta.Name,
		Group:       meta.Group,
		Description: meta.Description,
		Severity:    sev.String(),
		Recommended: meta.Recommended,
		Enabled:     c.plan.Enabled(key),
		Sources:     meta.Sources,
		ConfigKeys:  meta.ConfigKeys,
		Rationale:   meta.Rationale,
		BadExample:  meta.BadExample,
		GoodExample: meta.GoodExample,
		Fix:         meta.Fix,
		URL:         lint.BuildDocURL(key),
	}
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cmdCtx.WithFormat(cmd, opts.Format)
	r := cmdCtx.Renderer

	catalog, err := loadCatalog(cmdCtx)
	if err != nil {
		return err
	}

	var rules []output.RuleInfo
	for _, key := range catalog.reg.Rules() {
		if opts.Group != "" && !strings.EqualFold(key.Group().Name(), opts.Group) {
			continue
		}
		if opts.Enabled && !catalog.plan.Enabled(key) {
			continue
		}
		rules = append(rules, catalog.info(key))
	}
	if opts.Group != "" && len(rules) == 0 {
		return fmt.Errorf("group %q not found", opts.Group)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return listRulesJSON(r, rules)
	case output.ModeMarkdown:
		listRulesMarkdown(r, catalog, rules, opts.Verbose)
	default:
		listRulesText(r, catalog, rules, opts.Verbose)
	}
	return nil
}

// groupDescription returns the description registered for a group.
func (c *ruleCatalog) groupDescription(name string) string {
	for _, g := range c.reg.Groups() {
		if g.Name() == name {
			if group, ok := c.reg.Group(g); ok {
				return group.Description
			}
		}
	}
	return ""
}

// listRulesText outputs rules in styled text format.
func listRulesText(r *output.Renderer, catalog *ruleCatalog, rules []output.RuleInfo, verbose bool) {
	styles := r.Styles()

	enabled := 0
	for _, rule := range rules {
		if rule.Enabled {
			enabled++
		}
	}

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("Lint Rules (%d, %d enabled)", len(rules), enabled)))
	r.Println("")

	currentGroup := ""
	for _, rule := range rules {
		if rule.Group != currentGroup {
			currentGroup = rule.Group
			r.Println(styles.Header2.Render(titleCase.String(currentGroup)))
			if desc := catalog.groupDescription(currentGroup); desc != "" {
				r.Println(styles.Muted.Render("  " + desc))
			}
			r.Println("")
		}

		mark := styles.Success.Render("●")
		if !rule.Enabled {
			mark = styles.Muted.Render("○")
		}
		r.Printf("  %s %s - %s\n",
			mark,
			styles.Bold.Render(rule.Name),
			severityStyle(styles, mustSeverity(rule.Severity)).Render(rule.Severity),
		)
		r.Println(styles.Muted.Render("      " + rule.Description))

		if verbose {
			if rule.Rationale != "" {
				r.Println(styles.Muted.Render("      Why: " + truncateOneLine(rule.Rationale, 80)))
			}
			r.Println("")
		}
	}

	r.Println("")
	r.Println(styles.Muted.Render("● enabled  ○ disabled. Use 'pgcheck rules <rule>' for detailed documentation"))
	r.Println("")
}

// listRulesMarkdown outputs rules in markdown format.
func listRulesMarkdown(r *output.Renderer, catalog *ruleCatalog, rules []output.RuleInfo, verbose bool) {
	r.Println("# Lint Rules")
	r.Println("")

	currentGroup := ""
	for _, rule := range rules {
		if rule.Group != currentGroup {
			currentGroup = rule.Group
			r.Println("## " + titleCase.String(currentGroup))
			r.Println("")
			if desc := catalog.groupDescription(currentGroup); desc != "" {
				r.Println(desc)
				r.Println("")
			}
		}

		check := "[ ]"
		if rule.Enabled {
			check = "[x]"
		}
		r.Printf("- %s **%s** - %s (`%s`)\n", check, rule.Name, rule.Description, rule.Severity)
		if verbose && rule.Rationale != "" {
			r.Println("  > " + rule.Rationale)
		}
	}

	r.Println("")
}

// listRulesJSON outputs rules in JSON format.
func listRulesJSON(r *output.Renderer, rules []output.RuleInfo) error {
	out := output.RulesOutput{Rules: rules}
	if out.Rules == nil {
		out.Rules = []output.RuleInfo{}
	}
	for _, rule := range rules {
		if rule.Enabled {
			out.Count.Enabled++
		}
	}
	out.Count.Total = len(rules)
	return r.JSON(out)
}

func showRule(cmd *cobra.Command, selector string, opts *RulesOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cmdCtx.WithFormat(cmd, opts.Format)
	r := cmdCtx.Renderer

	catalog, err := loadCatalog(cmdCtx)
	if err != nil {
		return err
	}

	keys, err := catalog.reg.Lookup(selector)
	switch {
	case errors.Is(err, lint.ErrAmbiguous):
		return err
	case err != nil, len(keys) == 0:
		return fmt.Errorf("rule %q not found", selector)
	case len(keys) > 1 || isGroupSelector(catalog.reg, selector):
		opts.Group = keys[0].Group().Name()
		return listRules(cmd, opts)
	}
	rule := catalog.info(keys[0])

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(rule)
	case output.ModeMarkdown:
		showRuleMarkdown(r, rule)
	default:
		showRuleText(r, rule)
	}
	return nil
}

// showRuleText displays detailed rule info in text format.
func showRuleText(r *output.Renderer, rule output.RuleInfo) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(rule.Key))
	r.Println("")

	r.Printf("  %s: %s\n", styles.Bold.Render("Group"), rule.Group)
	r.Printf("  %s: %s\n", styles.Bold.Render("Severity"), rule.Severity)
	r.Printf("  %s: %s\n", styles.Bold.Render("Recommended"), yesNo(rule.Recommended))
	r.Printf("  %s: %s\n", styles.Bold.Render("Enabled"), yesNo(rule.Enabled))
	if len(rule.Sources) > 0 {
		r.Printf("  %s: %s\n", styles.Bold.Render("Sources"), strings.Join(rule.Sources, ", "))
	}
	r.Println("")

	r.Println(styles.Bold.Render("Description"))
	r.Println("  " + rule.Description)
	r.Println("")

	if rule.Rationale != "" {
		r.Println(styles.Bold.Render("Why This Matters"))
		r.Println("  " + rule.Rationale)
		r.Println("")
	}

	if rule.BadExample != "" {
		r.Println(styles.Bold.Render("Bad Example"))
		for _, line := range strings.Split(rule.BadExample, "\n") {
			r.Println(styles.Muted.Render("  " + line))
		}
		r.Println("")
	}

	if rule.GoodExample != "" {
		r.Println(styles.Bold.Render("Good Example"))
		for _, line := range strings.Split(rule.GoodExample, "\n") {
			r.Println(styles.Success.Render("  " + line))
		}
		r.Println("")
	}

	if rule.Fix != "" {
		r.Println(styles.Bold.Render("How to Fix"))
		r.Println("  " + rule.Fix)
		r.Println("")
	}

	if len(rule.ConfigKeys) > 0 {
		r.Println(styles.Bold.Render("Configuration"))
		r.Printf("  Options: %s\n", strings.Join(rule.ConfigKeys, ", "))
		r.Println("")
	}

	if rule.URL != "" {
		r.Println(styles.Muted.Render(rule.URL))
	}
}

// showRuleMarkdown displays detailed rule info in markdown format.
func showRuleMarkdown(r *output.Renderer, rule output.RuleInfo) {
	r.Printf("# %s\n\n", rule.Name)
	r.Printf("**Group:** %s | **Severity:** `%s` | **Recommended:** %s | **Enabled:** %s\n\n",
		rule.Group, rule.Severity, yesNo(rule.Recommended), yesNo(rule.Enabled))
	r.Println(rule.Description)
	r.Println("")

	if rule.Rationale != "" {
		r.Println("## Why This Matters")
		r.Println("")
		r.Println(rule.Rationale)
		r.Println("")
	}

	if rule.BadExample != "" {
		r.Println("## Bad Example")
		r.Println("")
		r.Println("```sql")
		r.Println(rule.BadExample)
		r.Println("```")
		r.Println("")
	}

	if rule.GoodExample != "" {
		r.Println("## Good Example")
		r.Println("")
		r.Println("```sql")
		r.Println(rule.GoodExample)
		r.Println("```")
		r.Println("")
	}

	if rule.Fix != "" {
		r.Println("## How to Fix")
		r.Println("")
		r.Println(rule.Fix)
		r.Println("")
	}

	if len(rule.ConfigKeys) > 0 {
		r.Println("## Configuration")
		r.Println("")
		r.Printf("Options: `%s`\n", strings.Join(rule.ConfigKeys, "`, `"))
		r.Println("")
	}
}

// isGroupSelector reports whether selector names a group rather than a
// rule.
func isGroupSelector(reg *lint.Registry, selector string) bool {
	sel := strings.TrimSpace(selector)
	if i := strings.LastIndexByte(sel, '/'); i >= 0 {
		sel = sel[i+1:]
	}
	for _, g := range reg.Groups() {
		if strings.EqualFold(g.Name(), sel) {
			return true
		}
	}
	return false
}

// Helper functions

func mustSeverity(s string) lint.Severity {
	sev, _ := lint.ParseSeverity(s)
	return sev
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncateOneLine(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
