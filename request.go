package duplex

import "github.com/google/uuid"

// Args is the argument bag of one operation invocation. Its shape is owned
// by the underlying connection; the facade only inspects routing keys.
type Args map[string]interface{}

// Request is a single operation addressed to one entity. Requests are built
// once, dispatched once, and never reused concurrently.
type Request interface {
	Entity() string
	Method() Method
	Args() Args
	// RequestID identifies the invocation in diagnostics.
	RequestID() string
	// RoutesToPrimary reports whether the builder requested primary routing.
	RoutesToPrimary() bool
}

type baseRequest struct {
	entity  string
	method  Method
	args    Args
	id      string
	primary bool
}

func newBaseRequest(entity string, method Method) baseRequest {
	return baseRequest{entity: entity, method: method, id: uuid.NewString()}
}

func (req *baseRequest) Entity() string {
	return req.entity
}

func (req *baseRequest) Method() Method {
	return req.method
}

func (req *baseRequest) Args() Args {
	return req.args
}

func (req *baseRequest) RequestID() string {
	return req.id
}

func (req *baseRequest) RoutesToPrimary() bool {
	return req.primary
}

// CreateRequest helps you to create a create request object for execution
// by the facade.
type CreateRequest struct {
	baseRequest
}

// NewCreateRequest returns a new CreateRequest for the given entity.
func NewCreateRequest(entity string) *CreateRequest {
	req := &CreateRequest{}
	req.baseRequest = newBaseRequest(entity, MethodCreate)
	return req
}

// Data sets the argument bag for the request.
func (req *CreateRequest) Data(args Args) *CreateRequest {
	req.args = args
	return req
}

// WriteToPrimary routes the request to the primary connection.
func (req *CreateRequest) WriteToPrimary() *CreateRequest {
	req.primary = true
	return req
}

// UpdateRequest helps you to create an update request object for execution
// by the facade.
type UpdateRequest struct {
	baseRequest
}

// NewUpdateRequest returns a new UpdateRequest for the given entity.
func NewUpdateRequest(entity string) *UpdateRequest {
	req := &UpdateRequest{}
	req.baseRequest = newBaseRequest(entity, MethodUpdate)
	return req
}

// Data sets the argument bag for the request.
func (req *UpdateRequest) Data(args Args) *UpdateRequest {
	req.args = args
	return req
}

// WriteToPrimary routes the request to the primary connection.
func (req *UpdateRequest) WriteToPrimary() *UpdateRequest {
	req.primary = true
	return req
}

// DeleteRequest helps you to create a delete request object for execution
// by the facade.
type DeleteRequest struct {
	baseRequest
}

// NewDeleteRequest returns a new DeleteRequest for the given entity.
func NewDeleteRequest(entity string) *DeleteRequest {
	req := &DeleteRequest{}
	req.baseRequest = newBaseRequest(entity, MethodDelete)
	return req
}

// Data sets the argument bag for the request.
func (req *DeleteRequest) Data(args Args) *DeleteRequest {
	req.args = args
	return req
}

// WriteToPrimary routes the request to the primary connection.
func (req *DeleteRequest) WriteToPrimary() *DeleteRequest {
	req.primary = true
	return req
}

// UpsertRequest helps you to create an upsert request object for execution
// by the facade.
type UpsertRequest struct {
	baseRequest
}

// NewUpsertRequest returns a new UpsertRequest for the given entity.
func NewUpsertRequest(entity string) *UpsertRequest {
	req := &UpsertRequest{}
	req.baseRequest = newBaseRequest(entity, MethodUpsert)
	return req
}

// Data sets the argument bag for the request.
func (req *UpsertRequest) Data(args Args) *UpsertRequest {
	req.args = args
	return req
}

// WriteToPrimary routes the request to the primary connection.
func (req *UpsertRequest) WriteToPrimary() *UpsertRequest {
	req.primary = true
	return req
}

// CreateManyRequest helps you to create a createMany request object for
// execution by the facade.
type CreateManyRequest struct {
	baseRequest
}

// NewCreateManyRequest returns a new CreateManyRequest for the given entity.
func NewCreateManyRequest(entity string) *CreateManyRequest {
	req := &CreateManyRequest{}
	req.baseRequest = newBaseRequest(entity, MethodCreateMany)
	return req
}

// Data sets the argument bag for the request.
func (req *CreateManyRequest) Data(args Args) *CreateManyRequest {
	req.args = args
	return req
}

// WriteToPrimary routes the request to the primary connection.
func (req *CreateManyRequest) WriteToPrimary() *CreateManyRequest {
	req.primary = true
	return req
}

// UpdateManyRequest helps you to create an updateMany request object for
// execution by the facade.
type UpdateManyRequest struct {
	baseRequest
}

// NewUpdateManyRequest returns a new UpdateManyRequest for the given entity.
func NewUpdateManyRequest(entity string) *UpdateManyRequest {
	req := &UpdateManyRequest{}
	req.baseRequest = newBaseRequest(entity, MethodUpdateMany)
	return req
}

// Data sets the argument bag for the request.
func (req *UpdateManyRequest) Data(args Args) *UpdateManyRequest {
	req.args = args
	return req
}

// WriteToPrimary routes the request to the primary connection.
func (req *UpdateManyRequest) WriteToPrimary() *UpdateManyRequest {
	req.primary = true
	return req
}

// DeleteManyRequest helps you to create a deleteMany request object for
// execution by the facade.
type DeleteManyRequest struct {
	baseRequest
}

// NewDeleteManyRequest returns a new DeleteManyRequest for the given entity.
func NewDeleteManyRequest(entity string) *DeleteManyRequest {
	req := &DeleteManyRequest{}
	req.baseRequest = newBaseRequest(entity, MethodDeleteMany)
	return req
}

// Data sets the argument bag for the request.
func (req *DeleteManyRequest) Data(args Args) *DeleteManyRequest {
	req.args = args
	return req
}

// WriteToPrimary routes the request to the primary connection.
func (req *DeleteManyRequest) WriteToPrimary() *DeleteManyRequest {
	req.primary = true
	return req
}

// FindRequest helps you to create a read request object for execution by
// the facade. The method name is open-ended: any method outside the write
// set is forwarded to the main connection as-is.
type FindRequest struct {
	baseRequest
}

// NewFindRequest returns a new FindRequest for the given entity and read
// method, e.g. MethodFindMany.
func NewFindRequest(entity string, method Method) *FindRequest {
	req := &FindRequest{}
	req.baseRequest = newBaseRequest(entity, method)
	return req
}

// Filter sets the argument bag for the request.
func (req *FindRequest) Filter(args Args) *FindRequest {
	req.args = args
	return req
}

// forwarded substitutes a cleaned argument bag on an existing request.
type forwarded struct {
	Request
	args Args
}

func (req forwarded) Args() Args {
	return req.args
}
