package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoleMapping translates identity-provider group names into roles.
type RoleMapping struct {
	groups map[string]Role
}

type roleMappingFile struct {
	Roles []struct {
		Name   string   `yaml:"name"`
		Groups []string `yaml:"groups"`
	} `yaml:"roles"`
}

// DefaultRoleMapping maps the conventional group names to the built-in roles.
func DefaultRoleMapping() *RoleMapping {
	return &RoleMapping{groups: map[string]Role{
		"admin":          RoleAdministrator,
		"administrators": RoleAdministrator,
		"manager":        RoleManager,
		"managers":       RoleManager,
	}}
}

// LoadRoleMapping reads a YAML role mapping file:
//
//	roles:
//	  - name: Administrators
//	    groups: [admin, it-admins]
//
// An empty path returns DefaultRoleMapping.
func LoadRoleMapping(path string) (*RoleMapping, error) {
	if path == "" {
		return DefaultRoleMapping(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read role mapping: %w", err)
	}
	return ParseRoleMapping(data)
}

// ParseRoleMapping parses a YAML role mapping document.
func ParseRoleMapping(data []byte) (*RoleMapping, error) {
	var file roleMappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse role mapping: %w", err)
	}

	m := &RoleMapping{groups: make(map[string]Role)}
	for i, entry := range file.Roles {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("role mapping entry %d: name is required", i)
		}
		// A role always matches its own name.
		m.groups[strings.ToLower(name)] = Role(name)
		for _, g := range entry.Groups {
			key := strings.ToLower(strings.TrimSpace(g))
			if key == "" {
				continue
			}
			if existing, ok := m.groups[key]; ok && existing != Role(name) {
				return nil, fmt.Errorf("group %q mapped to both %s and %s", g, existing, name)
			}
			m.groups[key] = Role(name)
		}
	}
	return m, nil
}

// Resolve returns the role for a group. Unmapped groups pass through unchanged.
func (m *RoleMapping) Resolve(group string) Role {
	group = strings.TrimSpace(group)
	if m != nil {
		if r, ok := m.groups[strings.ToLower(group)]; ok {
			return r
		}
	}
	return Role(group)
}

// Principal builds a principal from a subject and its group claims.
// An empty subject yields nil (anonymous).
func (m *RoleMapping) Principal(subject string, groups []string) *Principal {
	if strings.TrimSpace(subject) == "" {
		return nil
	}
	roles := make([]Role, 0, len(groups))
	for _, g := range groups {
		roles = append(roles, m.Resolve(g))
	}
	return NewPrincipal(subject, roles...)
}
