package event

import (
	"fmt"
	"net/http"

	"events_api/internal/apperr"
	"events_api/internal/pagination"
	"events_api/internal/utils"

	"github.com/gin-gonic/gin"
)

const basePath = "/events"

type Controller struct {
	service ServiceInterface
}

func NewController(service ServiceInterface) *Controller {
	return &Controller{
		service: service,
	}
}

// SetupRoutes mounts the event endpoints under /events.
func (ctl *Controller) SetupRoutes(r gin.IRouter, middleware ...gin.HandlerFunc) {
	api := r.Group(basePath, middleware...)
	{
		api.POST("/", ctl.Create)
		api.GET("/", ctl.List)
		api.GET("/status/:task_id", ctl.Status)
		api.GET("/:id/", ctl.Get)
		api.PUT("/:id/", ctl.Update)
		api.DELETE("/:id/", ctl.Delete)
	}
}

type createQuery struct {
	IsAsync bool `form:"is_async"`
}

// Create stores the event immediately, or with is_async=true
// registers a deferred creation and answers 202 with a status URL.
func (ctl *Controller) Create(c *gin.Context) {
	var query createQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		apperr.RespondValidation(c, err)
		return
	}

	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.RespondValidation(c, err)
		return
	}

	if query.IsAsync {
		t, err := ctl.service.CreateAsync(c.Request.Context(), &in)
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		statusURL := fmt.Sprintf("%s/status/%s", basePath, t.ID)
		c.Header("Location", statusURL)
		c.JSON(http.StatusAccepted, gin.H{
			"task_id":    t.ID,
			"status":     t.Status,
			"status_url": statusURL,
		})
		return
	}

	e, err := ctl.service.Create(c.Request.Context(), &in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	location := fmt.Sprintf("%s/%d/", basePath, e.ID)
	c.Header("Location", location)
	c.Header("Link", fmt.Sprintf(`<%s>; rel="self"`, location))
	c.JSON(http.StatusCreated, gin.H{
		"id":     e.ID,
		"status": "Created",
	})
}

func (ctl *Controller) Status(c *gin.Context) {
	t, err := ctl.service.TaskStatus(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	body := gin.H{"status": t.Status}
	if t.ResultID != nil {
		body["event_id"] = *t.ResultID
	}
	if t.Error != nil {
		body["error"] = *t.Error
	}
	c.JSON(http.StatusOK, body)
}

func (ctl *Controller) List(c *gin.Context) {
	var params pagination.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		apperr.RespondValidation(c, err)
		return
	}

	var filter Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		apperr.RespondValidation(c, err)
		return
	}

	page, err := ctl.service.List(c.Request.Context(), filter, params)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (ctl *Controller) Get(c *gin.Context) {
	id, err := utils.ParamInt(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	e, err := ctl.service.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (ctl *Controller) Update(c *gin.Context) {
	id, err := utils.ParamInt(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.RespondValidation(c, err)
		return
	}

	e, err := ctl.service.Update(c.Request.Context(), id, &in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (ctl *Controller) Delete(c *gin.Context) {
	id, err := utils.ParamInt(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	e, err := ctl.service.Delete(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
