package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cyberlab/core/lab"
)

type labApi struct {
	svc      lab.ServiceInterface
	validate *validator.Validate
}

func registerLabAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc lab.ServiceInterface, validate *validator.Validate) {
	api := labApi{
		svc:      svc,
		validate: validate,
	}

	ag := g.Group("", jwt)
	ag.GET("/device-types", api.queryDeviceTypes)

	// labs
	ag.GET("/labs", api.query)
	ag.POST("/labs", api.create, adminMiddleware())
	ag.GET("/labs/:labId", api.retrieve)
	ag.PUT("/labs/:labId", api.update, adminMiddleware())
	ag.DELETE("/labs/:labId", api.destroy, adminMiddleware())
	ag.GET("/labs/:labId/topology", api.topology)

	// devices
	ag.POST("/labs/:labId/devices", api.createDevice, adminMiddleware())
	ag.PUT("/devices/:id", api.updateDevice, adminMiddleware())
	ag.PATCH("/devices/:id/position", api.moveDevice)
	ag.DELETE("/devices/:id", api.destroyDevice, adminMiddleware())
	ag.POST("/devices/:id/connect", api.connectDevice)

	// connections
	ag.POST("/labs/:labId/connections", api.createConnection(lab.StatusDisconnected), adminMiddleware())
	ag.POST("/labs/:labId/diagram/connections", api.createConnection(lab.StatusConnected))
	ag.PATCH("/connections/:id/toggle", api.toggleConnection)
	ag.DELETE("/connections/:id", api.destroyConnection, adminMiddleware())

	// sessions
	ag.GET("/labs/:labId/session", api.retrieveSession)
	ag.POST("/labs/:labId/session", api.startSession)
	ag.DELETE("/labs/:labId/session", api.stopSession)
}

// Labs

func (api *labApi) query(ctx echo.Context) error {
	filter := new(lab.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []lab.Lab{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	labs, err := api.svc.QueryLabs(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying labs")
	}
	if labs == nil {
		labs = []lab.Lab{}
	}
	return ctx.JSON(http.StatusOK, labs)
}

func (api *labApi) create(ctx echo.Context) error {
	var data lab.NewLab
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLab")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lb, err := api.svc.CreateLab(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lab")
	}
	return ctx.JSON(http.StatusCreated, lb)
}

func (api *labApi) retrieve(ctx echo.Context) error {
	lb, err := api.svc.GetLab(ctx.Request().Context(), ctx.Param("labId"))
	if err != nil {
		return errors.Wrap(err, "finding lab")
	}
	return ctx.JSON(http.StatusOK, lb)
}

func (api *labApi) update(ctx echo.Context) error {
	var data lab.UpdateLab
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLab")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lb, err := api.svc.UpdateLab(ctx.Request().Context(), ctx.Param("labId"), data)
	if err != nil {
		return errors.Wrap(err, "updating lab")
	}
	return ctx.JSON(http.StatusOK, lb)
}

func (api *labApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteLab(ctx.Request().Context(), ctx.Param("labId")); err != nil {
		return errors.Wrap(err, "deleting lab")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *labApi) topology(ctx echo.Context) error {
	topo, err := api.svc.GetTopology(ctx.Request().Context(), ctx.Param("labId"))
	if err != nil {
		return errors.Wrap(err, "loading topology")
	}
	return ctx.JSON(http.StatusOK, topo)
}

func (api *labApi) queryDeviceTypes(ctx echo.Context) error {
	types := make([]DeviceTypeResponse, 0, len(lab.DeviceTypes))
	for _, dt := range lab.DeviceTypes {
		types = append(types, DeviceTypeResponse{Type: dt, DeviceStyle: dt.Style()})
	}
	return ctx.JSON(http.StatusOK, types)
}

// Devices

func (api *labApi) createDevice(ctx echo.Context) error {
	var data lab.NewDevice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDevice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dev, err := api.svc.CreateDevice(ctx.Request().Context(), ctx.Param("labId"), data)
	if err != nil {
		return errors.Wrap(err, "creating device")
	}
	return ctx.JSON(http.StatusCreated, dev)
}

func (api *labApi) updateDevice(ctx echo.Context) error {
	var data lab.UpdateDevice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDevice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dev, err := api.svc.UpdateDevice(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating device")
	}
	return ctx.JSON(http.StatusOK, dev)
}

func (api *labApi) moveDevice(ctx echo.Context) error {
	var data lab.MoveDevice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MoveDevice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dev, err := api.svc.MoveDevice(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "moving device")
	}
	return ctx.JSON(http.StatusOK, dev)
}

func (api *labApi) destroyDevice(ctx echo.Context) error {
	if err := api.svc.DeleteDevice(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting device")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *labApi) connectDevice(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	target, err := api.svc.ConnectToDevice(ctx.Request().Context(), userID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "connecting to device")
	}
	return ctx.JSON(http.StatusOK, target)
}

// Connections

// createConnection serves both the admin editor (links start disconnected)
// and the student diagram (links start connected).
func (api *labApi) createConnection(initial lab.ConnectionStatus) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data lab.NewConnection
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewConnection")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		conn, err := api.svc.AddConnection(ctx.Request().Context(), ctx.Param("labId"), data, initial)
		if err != nil {
			return errors.Wrap(err, "adding connection")
		}
		return ctx.JSON(http.StatusCreated, conn)
	}
}

func (api *labApi) toggleConnection(ctx echo.Context) error {
	conn, err := api.svc.ToggleConnectionStatus(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling connection")
	}
	return ctx.JSON(http.StatusOK, conn)
}

func (api *labApi) destroyConnection(ctx echo.Context) error {
	if err := api.svc.DeleteConnection(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting connection")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Sessions

func (api *labApi) retrieveSession(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	sess, err := api.svc.GetSession(ctx.Request().Context(), userID, ctx.Param("labId"))
	if err != nil {
		return errors.Wrap(err, "finding session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *labApi) startSession(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	sess, err := api.svc.StartSession(ctx.Request().Context(), userID, ctx.Param("labId"))
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *labApi) stopSession(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	sess, err := api.svc.StopSession(ctx.Request().Context(), userID, ctx.Param("labId"))
	if err != nil {
		return errors.Wrap(err, "stopping session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

type DeviceTypeResponse struct {
	Type lab.DeviceType `json:"type"`
	lab.DeviceStyle
}
