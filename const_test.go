package duplex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/duplexdb/duplex"
)

func TestIsWriteMethod(t *testing.T) {
	writes := []Method{
		MethodCreate, MethodUpdate, MethodDelete, MethodUpsert,
		MethodCreateMany, MethodUpdateMany, MethodDeleteMany,
	}
	for _, method := range writes {
		if !IsWriteMethod(method) {
			t.Errorf("IsWriteMethod(%q) = false, want true", method)
		}
	}

	reads := []Method{
		MethodFindMany, MethodFindUnique, MethodFindFirst, MethodCount,
		Method("aggregate"), Method("groupBy"), Method("queryRaw"),
		Method(""), Method("CREATE"), Method("createmany"),
	}
	for _, method := range reads {
		if IsWriteMethod(method) {
			t.Errorf("IsWriteMethod(%q) = true, want false", method)
		}
	}
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "main", RoleMain.String())
	assert.Equal(t, "primary", RolePrimary.String())
	assert.Equal(t, "unknown", Role(42).String())
}
