package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jferreira/maitrenotifie/core/roster"
)

type rosterApi struct {
	service *roster.Service
}

func RegisterRosterAPI(g *echo.Group, svc *roster.Service) {
	api := rosterApi{service: svc}

	cg := g.Group("/classes")
	cg.GET("", api.classQuery)
	cg.POST("", api.classCreate)
	cg.DELETE("/:id", api.classDestroy)
	cg.POST("/:id/students", api.studentCreate)
	cg.DELETE("/:id/students/:sid", api.studentDestroy)

	g.POST("/import", api.rosterImport)
}

// Handlers

func (api *rosterApi) classQuery(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.service.Classes())
}

func (api *rosterApi) classCreate(ctx echo.Context) error {
	data := new(roster.NewClass)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.service.AddClass(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *rosterApi) classDestroy(ctx echo.Context) error {
	if err := api.service.DeleteClass(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *rosterApi) studentCreate(ctx echo.Context) error {
	data := new(roster.NewStudent)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.service.AddStudent(ctx.Request().Context(), ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *rosterApi) studentDestroy(ctx echo.Context) error {
	cls, err := api.service.DeleteStudent(ctx.Request().Context(), ctx.Param("id"), ctx.Param("sid"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

// rosterImport accepts a roster spreadsheet (xlsx, xls or csv) as the
// "file" form field and merges its classes into the roster.
func (api *rosterApi) rosterImport(ctx echo.Context) error {
	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing 'file' form field")
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	count, err := api.service.ImportFile(ctx.Request().Context(), file, fileHdr.Filename)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"classesProcessed": count})
}
