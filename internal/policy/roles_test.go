package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoleMapping(t *testing.T) {
	m := DefaultRoleMapping()
	assert.Equal(t, RoleAdministrator, m.Resolve("Admin"))
	assert.Equal(t, RoleManager, m.Resolve("managers"))
	assert.Equal(t, Role("Legal"), m.Resolve("Legal"))
}

func TestParseRoleMapping(t *testing.T) {
	doc := `
roles:
  - name: Administrators
    groups: [it-admins, root]
  - name: Managers
    groups:
      - contract-approvers
  - name: Auditors
`
	m, err := ParseRoleMapping([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, RoleAdministrator, m.Resolve("IT-Admins"))
	assert.Equal(t, RoleManager, m.Resolve("contract-approvers"))
	assert.Equal(t, Role("Auditors"), m.Resolve("auditors"))
	assert.Equal(t, RoleAdministrator, m.Resolve("administrators"))
	assert.Equal(t, Role("sales"), m.Resolve("sales"))

	t.Run("duplicate group rejected", func(t *testing.T) {
		_, err := ParseRoleMapping([]byte("roles:\n  - name: A\n    groups: [x]\n  - name: B\n    groups: [X]\n"))
		assert.Error(t, err)
	})

	t.Run("missing name rejected", func(t *testing.T) {
		_, err := ParseRoleMapping([]byte("roles:\n  - groups: [x]\n"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseRoleMapping([]byte("roles: ["))
		assert.Error(t, err)
	})
}

func TestLoadRoleMapping(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		m, err := LoadRoleMapping("")
		require.NoError(t, err)
		assert.Equal(t, RoleManager, m.Resolve("manager"))
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "roles.yaml")
		require.NoError(t, os.WriteFile(path, []byte("roles:\n  - name: Managers\n    groups: [approvers]\n"), 0o600))

		m, err := LoadRoleMapping(path)
		require.NoError(t, err)
		assert.Equal(t, RoleManager, m.Resolve("approvers"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRoleMapping(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestRoleMapping_Principal(t *testing.T) {
	m := DefaultRoleMapping()

	assert.Nil(t, m.Principal("", []string{"admin"}))

	p := m.Principal("u4", []string{"managers", "legal"})
	require.NotNil(t, p)
	assert.Equal(t, "u4", p.ID)
	assert.True(t, p.HasRole(RoleManager))
	assert.True(t, p.HasRole(Role("legal")))
	assert.False(t, p.HasRole(RoleAdministrator))
}
