package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/codingspiderfox/ledgersync/backend/internal/criteria"
	"github.com/codingspiderfox/ledgersync/backend/internal/mirror"
	"github.com/codingspiderfox/ledgersync/backend/internal/models"
	"github.com/codingspiderfox/ledgersync/backend/internal/services"
	"github.com/codingspiderfox/ledgersync/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	contentTypeJSON       = "application/json"
	contentTypeMergePatch = "application/merge-patch+json"
)

// ResourceHandler serves the REST endpoints of one entity.
type ResourceHandler[T any, PT interface {
	*T
	models.Entity[ID]
}, ID comparable] struct {
	sync     *services.Synchronizer[T, PT, ID]
	pageSize int
}

func NewResourceHandler[T any, PT interface {
	*T
	models.Entity[ID]
}, ID comparable](sync *services.Synchronizer[T, PT, ID], pageSize int) *ResourceHandler[T, PT, ID] {
	if pageSize <= 0 {
		pageSize = mirror.DefaultPageSize
	}
	return &ResourceHandler[T, PT, ID]{sync: sync, pageSize: pageSize}
}

// RegisterResource mounts the entity's routes on api and its search route
// on search.
func RegisterResource[T any, PT interface {
	*T
	models.Entity[ID]
}, ID comparable](api, search *gin.RouterGroup, sync *services.Synchronizer[T, PT, ID], pageSize int) {
	h := NewResourceHandler(sync, pageSize)
	base := "/" + sync.Path()

	api.POST(base, h.Create)
	api.GET(base, h.List)
	api.PUT(base, methodNotAllowed)
	api.PATCH(base, methodNotAllowed)
	api.GET(base+"/count", h.Count)
	api.GET(base+"/:id", h.Get)
	api.PUT(base+"/:id", h.Update)
	api.PATCH(base+"/:id", h.PartialUpdate)
	api.DELETE(base+"/:id", h.Delete)

	search.GET(base, h.Search)
}

func methodNotAllowed(c *gin.Context) {
	response.MethodNotAllowed(c)
}

// Create POST /api/{x}
func (h *ResourceHandler[T, PT, ID]) Create(c *gin.Context) {
	entity, ok := h.bindEntity(c)
	if !ok {
		return
	}

	saved, err := h.sync.Create(c.Request.Context(), entity)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Created(c, fmt.Sprintf("/api/%s/%v", h.sync.Path(), saved.GetID()), saved)
}

// Update PUT /api/{x}/:id
func (h *ResourceHandler[T, PT, ID]) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	entity, ok := h.bindEntity(c)
	if !ok {
		return
	}

	saved, err := h.sync.Update(c.Request.Context(), id, entity)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, saved)
}

// PartialUpdate PATCH /api/{x}/:id
func (h *ResourceHandler[T, PT, ID]) PartialUpdate(c *gin.Context) {
	if ct := c.ContentType(); ct != "" && ct != contentTypeJSON && ct != contentTypeMergePatch {
		response.Error(c, &response.AppError{
			HTTPStatus: http.StatusUnsupportedMediaType,
			Code:       415,
			Message:    "unsupported content type " + ct,
		})
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	patch, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	saved, err := h.sync.PartialUpdate(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, saved)
}

// List GET /api/{x}
func (h *ResourceHandler[T, PT, ID]) List(c *gin.Context) {
	values := c.Request.URL.Query()
	schema := h.sync.Schema()

	filters, err := schema.Parse(values)
	if err != nil {
		h.fail(c, err)
		return
	}
	orders, err := schema.ParseSort(values["sort"])
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := criteria.ParsePage(values, h.pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}

	items, total, err := h.sync.List(c.Request.Context(), filters, orders, page)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.List(c, items, total)
}

// Count GET /api/{x}/count
func (h *ResourceHandler[T, PT, ID]) Count(c *gin.Context) {
	filters, err := h.sync.Schema().Parse(c.Request.URL.Query())
	if err != nil {
		h.fail(c, err)
		return
	}

	n, err := h.sync.Count(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Count(c, n)
}

// Get GET /api/{x}/:id
func (h *ResourceHandler[T, PT, ID]) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	entity, err := h.sync.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, entity)
}

// Delete DELETE /api/{x}/:id
func (h *ResourceHandler[T, PT, ID]) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.sync.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}

	response.NoContent(c)
}

// Search GET /api/_search/{x}?query=
func (h *ResourceHandler[T, PT, ID]) Search(c *gin.Context) {
	page := mirror.Page{Size: h.pageSize}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, "page must be a non-negative integer")
			return
		}
		page.Number = n
	}
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(c, "size must be a positive integer")
			return
		}
		page.Size = n
	}

	items, total, err := h.sync.Search(c.Request.Context(), c.Query("query"), page)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.List(c, items, total)
}

func (h *ResourceHandler[T, PT, ID]) pathID(c *gin.Context) (ID, bool) {
	id, err := h.sync.ParseID(c.Param("id"))
	if err != nil {
		response.Error(c, response.NewBadRequestAlert("invalid id "+strconv.Quote(c.Param("id")), h.sync.Name(), "idinvalid"))
		return id, false
	}
	return id, true
}

func (h *ResourceHandler[T, PT, ID]) bindEntity(c *gin.Context) (PT, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, err.Error())
		return nil, false
	}
	var entity PT = new(T)
	if err := jsonUnmarshal(raw, entity); err != nil {
		response.Error(c, response.NewBadRequestAlert("malformed body: "+err.Error(), h.sync.Name(), "validation"))
		return nil, false
	}
	return entity, true
}

// fail translates service errors into the shared error body.
func (h *ResourceHandler[T, PT, ID]) fail(c *gin.Context, err error) {
	name := h.sync.Name()
	switch {
	case errors.Is(err, services.ErrIDExists):
		response.Error(c, response.NewBadRequestAlert("A new "+name+" cannot already have an ID", name, "idexists"))
	case errors.Is(err, services.ErrIDNull):
		response.Error(c, response.NewBadRequestAlert("Invalid id", name, "idnull"))
	case errors.Is(err, services.ErrIDInvalid):
		response.Error(c, response.NewBadRequestAlert("Invalid ID", name, "idinvalid"))
	case errors.Is(err, services.ErrIDNotFound):
		response.Error(c, response.NewBadRequestAlert("Entity not found", name, "idnotfound"))
	case errors.Is(err, services.ErrReference):
		response.Error(c, response.NewBadRequestAlert(err.Error(), name, "reference"))
	case errors.Is(err, services.ErrValidation):
		response.Error(c, response.NewBadRequestAlert(err.Error(), name, "validation"))
	case errors.Is(err, criteria.ErrInvalidFilter):
		response.Error(c, response.NewBadRequestAlert(err.Error(), name, "invalidfilter"))
	case errors.Is(err, services.ErrNotFound):
		response.NotFound(c, name+" not found")
	default:
		response.ServerError(c, err.Error())
	}
}

// RegisterResources mounts every entity of res.
func RegisterResources(api, search *gin.RouterGroup, res *services.Resources, pageSize int) {
	RegisterResource(api, search, res.Projects, pageSize)
	RegisterResource(api, search, res.ProjectSettings, pageSize)
	RegisterResource(api, search, res.ProjectMembers, pageSize)
	RegisterResource(api, search, res.ProjectMemberPermissions, pageSize)
	RegisterResource(api, search, res.ProjectMemberRoles, pageSize)
	RegisterResource(api, search, res.ProjectMemberPermissionAssignments, pageSize)
	RegisterResource(api, search, res.ProjectMemberRoleAssignments, pageSize)
	RegisterResource(api, search, res.FinanceAccounts, pageSize)
	RegisterResource(api, search, res.FinanceTransactions, pageSize)
	RegisterResource(api, search, res.Products, pageSize)
	RegisterResource(api, search, res.Stocks, pageSize)
	RegisterResource(api, search, res.Bills, pageSize)
	RegisterResource(api, search, res.BillPositions, pageSize)
}
