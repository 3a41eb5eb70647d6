package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/regit-contracts/regit/internal/policy"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Suite is a YAML collection of expected decisions
type Suite struct {
	Cases []Case `yaml:"cases"`
}

// Case is one expected decision. A missing principal is an anonymous caller
// and a missing resource means no record was loaded.
type Case struct {
	Name      string         `yaml:"name"`
	Principal *CasePrincipal `yaml:"principal"`
	Operation string         `yaml:"operation"`
	Resource  *CaseResource  `yaml:"resource"`
	Expect    string         `yaml:"expect"`
}

// CasePrincipal describes the acting identity of a case
type CasePrincipal struct {
	ID     string   `yaml:"id"`
	Roles  []string `yaml:"roles"`
	Groups []string `yaml:"groups"`
}

// CaseResource describes the contract of a case
type CaseResource struct {
	Owner  string `yaml:"owner"`
	Status string `yaml:"status"`
}

// roleMapping loads the --roles file set on the authz command
func roleMapping(cmd *cli.Command) (*policy.RoleMapping, error) {
	return policy.LoadRoleMapping(cmd.String("roles"))
}

func executeCheck(ctx context.Context, cmd *cli.Command) error {
	roles, err := roleMapping(cmd)
	if err != nil {
		return err
	}

	principal := roles.Principal(cmd.String("principal"), cmd.StringSlice("group"))
	var resource *policy.Resource
	if !cmd.Bool("no-resource") {
		resource = &policy.Resource{
			OwnerID: cmd.String("owner"),
			Status:  policy.Status(strings.ToLower(cmd.String("status"))),
		}
	}

	trace := policy.NewDefaultEngine().Explain(principal, policy.ParseOperation(cmd.String("operation")), resource)
	printTrace(cmd.Root().Writer, trace)
	return nil
}

func printTrace(w io.Writer, trace policy.Trace) {
	if !trace.Operation.Valid() {
		fmt.Fprintf(w, "operation %q is not recognized\n", trace.Operation.String())
	}
	for _, step := range trace.Steps {
		fmt.Fprintf(w, "  %-24s %s\n", step.Rule, step.Verdict)
	}
	fmt.Fprintf(w, "decision: %s\n", trace.Decision)
}

func executeSuite(ctx context.Context, cmd *cli.Command) error {
	suite, err := loadSuite(cmd.String("input"))
	if err != nil {
		return fmt.Errorf("failed to load suite: %w", err)
	}
	if len(suite.Cases) == 0 {
		return fmt.Errorf("no cases found in suite")
	}

	cases := filterCases(suite.Cases, cmd.StringSlice("case"))
	if len(cases) == 0 {
		return fmt.Errorf("no cases match the specified patterns")
	}

	roles, err := roleMapping(cmd)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	engine := policy.NewDefaultEngine()
	failed := 0
	for _, tc := range cases {
		got, err := runCase(engine, roles, tc)
		switch {
		case err != nil:
			fmt.Fprintf(w, "%s: ERROR (%v)\n", tc.Name, err)
			failed++
		case got.String() != strings.ToLower(strings.TrimSpace(tc.Expect)):
			fmt.Fprintf(w, "%s: FAIL (expected %s, got %s)\n", tc.Name, tc.Expect, got)
			failed++
		default:
			fmt.Fprintf(w, "%s: PASS\n", tc.Name)
		}
	}

	fmt.Fprintf(w, "\n%d/%d cases passed\n", len(cases)-failed, len(cases))
	if failed > 0 {
		return fmt.Errorf("%d case(s) failed", failed)
	}
	return nil
}

func runCase(engine *policy.Engine, roles *policy.RoleMapping, tc Case) (policy.Decision, error) {
	switch strings.ToLower(strings.TrimSpace(tc.Expect)) {
	case policy.Authorized.String(), policy.Forbidden.String():
	default:
		return policy.Forbidden, fmt.Errorf("expect must be %q or %q", policy.Authorized, policy.Forbidden)
	}

	var principal *policy.Principal
	if tc.Principal != nil {
		principal = roles.Principal(tc.Principal.ID, tc.Principal.Groups)
		if principal != nil {
			extra := make([]policy.Role, 0, len(tc.Principal.Roles))
			for _, r := range tc.Principal.Roles {
				extra = append(extra, policy.Role(r))
			}
			principal = policy.NewPrincipal(principal.ID, append(principal.Roles(), extra...)...)
		}
	}

	var resource *policy.Resource
	if tc.Resource != nil {
		status := policy.Status(strings.ToLower(tc.Resource.Status))
		if status == "" {
			status = policy.StatusSubmitted
		}
		if !status.Valid() {
			return policy.Forbidden, fmt.Errorf("unknown status %q", tc.Resource.Status)
		}
		resource = &policy.Resource{OwnerID: tc.Resource.Owner, Status: status}
	}

	return engine.Evaluate(principal, policy.ParseOperation(tc.Operation), resource), nil
}

func loadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}
	return &suite, nil
}

// filterCases keeps the cases whose name matches any glob in patterns.
// No patterns keeps everything.
func filterCases(cases []Case, patterns []string) []Case {
	if len(patterns) == 0 {
		return cases
	}

	var filtered []Case
	for _, tc := range cases {
		for _, pattern := range patterns {
			matched, err := filepath.Match(pattern, tc.Name)
			if (err == nil && matched) || (err != nil && pattern == tc.Name) {
				filtered = append(filtered, tc)
				break
			}
		}
	}
	return filtered
}
