package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/medledger/internal/domain/doctor"
	"github.com/ehr/medledger/internal/platform/apperr"
	"github.com/ehr/medledger/pkg/pagination"
)

type Handler struct {
	registry  *Registry
	directory doctor.Directory
}

func NewHandler(registry *Registry, directory doctor.Directory) *Handler {
	return &Handler{registry: registry, directory: directory}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.GET("/doctors", h.ListDoctors)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var f Fields
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.registry.Create(c.Request().Context(), f, h.directory)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

// ListPatients supports ?q= for a case-insensitive name search and
// ?sort=age|name on top of limit/offset pagination.
func (h *Handler) ListPatients(c echo.Context) error {
	var patients []*Patient
	if q := c.QueryParam("q"); q != "" {
		patients = h.registry.FindByNameSubstring(q)
	} else {
		patients = h.registry.All()
	}

	switch c.QueryParam("sort") {
	case "":
	case "age":
		patients = SortByAge(patients)
	case "name":
		patients = SortByName(patients)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "sort must be age or name")
	}

	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(
		pagination.Page(patients, pg), len(patients), pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListDoctors returns the directory grouped by department, or the doctors of
// one department with ?department=.
func (h *Handler) ListDoctors(c echo.Context) error {
	if dept := c.QueryParam("department"); dept != "" {
		refs := h.directory.InDepartment(dept)
		if len(refs) == 0 {
			return echo.NewHTTPError(http.StatusNotFound, "department not found")
		}
		return c.JSON(http.StatusOK, refs)
	}
	out := make(map[string][]doctor.Ref, len(h.directory))
	for _, dept := range h.directory.Departments() {
		out[dept] = h.directory.InDepartment(dept)
	}
	return c.JSON(http.StatusOK, out)
}

// httpError keeps err as the internal cause so middleware can still see a
// context deadline through the response error.
func httpError(err error) *echo.HTTPError {
	return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error()).SetInternal(err)
}
