package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/logging"
	"github.com/dmitrijs2005/taskhub/internal/server/services"
)

// maxUploadSize caps task attachments at 10 MiB.
const maxUploadSize = 10 << 20

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	AssignedTo  string `json:"assigned_to"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	AssignedTo  *string `json:"assigned_to"`
}

// parseDueDate accepts a date or an RFC 3339 timestamp.
func parseDueDate(s string) (*time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return nil, common.NewValidationError("due_date", "must be a valid date")
}

func listTasksHandler(logger logging.Logger, tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		out, err := tasks.List(c.Request().Context(), actorFrom(c),
			c.QueryParam("filter"), c.QueryParam("sort"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"data": newTaskCollection(out)})
	}
}

func createTaskHandler(logger logging.Logger, tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(createTaskRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body."})
		}

		v := newValidator()
		v.checkTitle(req.Title)
		if v.hasErrors() {
			return writeError(c, logger, v.toError())
		}

		params := services.CreateTaskParams{
			Title:       req.Title,
			Description: req.Description,
			AssignedTo:  req.AssignedTo,
		}
		if req.DueDate != "" {
			due, err := parseDueDate(req.DueDate)
			if err != nil {
				return writeError(c, logger, err)
			}
			params.DueDate = due
		}

		task, err := tasks.Create(c.Request().Context(), actorFrom(c), params)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, echo.Map{"data": newTaskResource(task)})
	}
}

func getTaskHandler(logger logging.Logger, tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := tasks.Get(c.Request().Context(), actorFrom(c), c.Param("id"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"data": newTaskResource(task)})
	}
}

func updateTaskHandler(logger logging.Logger, tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(updateTaskRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body."})
		}

		v := newValidator()
		if req.Title != nil {
			v.checkTitle(*req.Title)
		}
		if v.hasErrors() {
			return writeError(c, logger, v.toError())
		}

		params := services.UpdateTaskParams{
			Title:       req.Title,
			Description: req.Description,
			AssignedTo:  req.AssignedTo,
		}
		if req.DueDate != nil && *req.DueDate != "" {
			due, err := parseDueDate(*req.DueDate)
			if err != nil {
				return writeError(c, logger, err)
			}
			params.DueDate = due
		}

		task, err := tasks.Update(c.Request().Context(), actorFrom(c), c.Param("id"), params)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"data": newTaskResource(task)})
	}
}

func completeTaskHandler(logger logging.Logger, tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := tasks.Complete(c.Request().Context(), actorFrom(c), c.Param("id"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"data": newTaskResource(task)})
	}
}

func deleteTaskHandler(logger logging.Logger, tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := tasks.Delete(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Task deleted successfully."})
	}
}

func uploadTaskFileHandler(logger logging.Logger, tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return writeError(c, logger, common.NewValidationError("file", "must be provided"))
		}
		if fileHeader.Size > maxUploadSize {
			return writeError(c, logger, common.NewValidationError("file", "must be atmost 10 MB"))
		}

		f, err := fileHeader.Open()
		if err != nil {
			return writeError(c, logger, err)
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
		if err != nil {
			return writeError(c, logger, err)
		}
		if len(data) > maxUploadSize {
			return writeError(c, logger, common.NewValidationError("file", "must be atmost 10 MB"))
		}

		task, err := tasks.UploadFile(c.Request().Context(), actorFrom(c), c.Param("id"), data)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"data": newTaskResource(task)})
	}
}

func downloadTaskFileHandler(logger logging.Logger, tasks TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		url, err := tasks.DownloadFile(c.Request().Context(), actorFrom(c), c.Param("id"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"url": url})
	}
}

func registerTaskRoutes(g *echo.Group, logger logging.Logger, tasks TaskService) {
	t := g.Group("/tasks")

	t.GET("", listTasksHandler(logger, tasks))
	t.POST("", createTaskHandler(logger, tasks))
	t.GET("/:id", getTaskHandler(logger, tasks))
	t.PUT("/:id", updateTaskHandler(logger, tasks))
	t.DELETE("/:id", deleteTaskHandler(logger, tasks))
	t.PUT("/:id/complete", completeTaskHandler(logger, tasks))
	t.GET("/:id/file", downloadTaskFileHandler(logger, tasks))
	t.POST("/:id/file", uploadTaskFileHandler(logger, tasks))
}
