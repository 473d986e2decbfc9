package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jferreira/maitrenotifie/core/homework"
)

type workflowApi struct {
	ctrl *homework.Controller
}

func RegisterWorkflowAPI(g *echo.Group, ctrl *homework.Controller) {
	api := workflowApi{ctrl: ctrl}

	g.GET("/state", api.state)

	wg := g.Group("/workflow")
	wg.POST("/classes/:id/select", api.selectClass)
	wg.POST("/back", api.back)
	wg.POST("/scan", api.startScan)
	wg.POST("/capture", api.capture)
	wg.POST("/scan/cancel", api.cancelScan)
	wg.PUT("/draft", api.editDraft)
	wg.POST("/confirm", api.confirm)
	wg.POST("/cancel", api.cancelValidation)
}

type confirmResponse struct {
	homework.SendResult
	State homework.State `json:"state"`
}

// Handlers

func (api *workflowApi) state(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.ctrl.State())
}

func (api *workflowApi) selectClass(ctx echo.Context) error {
	st, err := api.ctrl.SelectClass(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *workflowApi) back(ctx echo.Context) error {
	st, err := api.ctrl.Back()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *workflowApi) startScan(ctx echo.Context) error {
	st, err := api.ctrl.StartScan()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

// capture accepts the photographed note as the "image" form field and
// runs it through the extraction gateway.
func (api *workflowApi) capture(ctx echo.Context) error {
	fileHdr, err := ctx.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing 'image' form field")
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded image")
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		return errors.Wrap(err, "reading uploaded image")
	}

	st, err := api.ctrl.Capture(ctx.Request().Context(), image, fileHdr.Header.Get("Content-Type"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *workflowApi) cancelScan(ctx echo.Context) error {
	st, err := api.ctrl.CancelScan()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *workflowApi) editDraft(ctx echo.Context) error {
	data := new(homework.DraftEdit)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	st, err := api.ctrl.EditDraft(data.HomeworkText)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *workflowApi) confirm(ctx echo.Context) error {
	res, st, err := api.ctrl.Confirm(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, confirmResponse{SendResult: res, State: st})
}

func (api *workflowApi) cancelValidation(ctx echo.Context) error {
	st, err := api.ctrl.CancelValidation()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}
