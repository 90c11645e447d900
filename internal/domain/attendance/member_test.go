package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemberUpdateApply(t *testing.T) {
	base := Member{
		ID:            "m1",
		Name:          "Asha",
		Role:          RoleSenior,
		PrefectNumber: "P001",
	}

	t.Run("nil fields keep their value", func(t *testing.T) {
		got := MemberUpdate{}.Apply(base)
		assert.Equal(t, base, got)
	})

	t.Run("set fields overwrite", func(t *testing.T) {
		name := "Asha M."
		role := RoleHead
		number := "P002"
		got := MemberUpdate{Name: &name, Role: &role, PrefectNumber: &number}.Apply(base)

		assert.Equal(t, "Asha M.", got.Name)
		assert.Equal(t, RoleHead, got.Role)
		assert.Equal(t, "P002", got.PrefectNumber)
		assert.Equal(t, "m1", got.ID)
	})

	t.Run("name can be cleared with an empty string", func(t *testing.T) {
		empty := ""
		got := MemberUpdate{Name: &empty}.Apply(base)
		assert.Empty(t, got.Name)
	})
}
