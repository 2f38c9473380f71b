package duplex

// Method is the name of an operation forwarded to an underlying connection.
type Method string

// Mutating methods. Any method outside this group is treated as a read.
const (
	MethodCreate     Method = "create"
	MethodUpdate     Method = "update"
	MethodDelete     Method = "delete"
	MethodUpsert     Method = "upsert"
	MethodCreateMany Method = "createMany"
	MethodUpdateMany Method = "updateMany"
	MethodDeleteMany Method = "deleteMany"
)

// Common read methods. The read set is open-ended: drivers may accept
// additional method names through NewFindRequest.
const (
	MethodFindMany   Method = "findMany"
	MethodFindUnique Method = "findUnique"
	MethodFindFirst  Method = "findFirst"
	MethodCount      Method = "count"
	MethodAggregate  Method = "aggregate"
)

/*
Routing table:

	  Method       Connection
	------------ -----------------
	| create     | main or primary |
	| update     | main or primary |
	| delete     | main or primary |
	| upsert     | main or primary |
	| createMany | main or primary |
	| updateMany | main or primary |
	| deleteMany | main or primary |
	| (reads)    | main only       |

Writes go to primary only when the caller asks for it; reads never do.
*/
type Role uint32

const (
	// RoleMain is the connection serving reads and default writes.
	RoleMain Role = iota
	// RolePrimary is the authoritative write target, used only on request.
	RolePrimary
)

func (r Role) String() string {
	switch r {
	case RoleMain:
		return "main"
	case RolePrimary:
		return "primary"
	default:
		return "unknown"
	}
}

// writeMethods is fixed at process start and never mutated afterwards.
var writeMethods = map[Method]struct{}{
	MethodCreate:     {},
	MethodUpdate:     {},
	MethodDelete:     {},
	MethodUpsert:     {},
	MethodCreateMany: {},
	MethodUpdateMany: {},
	MethodDeleteMany: {},
}

// IsWriteMethod reports whether name belongs to the fixed set of mutating
// methods. It is a pure predicate with no side effects.
func IsWriteMethod(name Method) bool {
	_, ok := writeMethods[name]
	return ok
}

// RoutingKey is the legacy argument-bag key requesting primary routing.
// The facade strips it before an argument bag reaches a connection.
const RoutingKey = "writeToPrimary"
