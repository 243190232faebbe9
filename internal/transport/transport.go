// Package transport provides the filter-node server (by ginext) with handlers to serve endpoints
package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/UnendingLoop/URLFilter/internal/config"
	"github.com/UnendingLoop/URLFilter/internal/filter"
	"github.com/UnendingLoop/URLFilter/internal/model"
	"github.com/docker/distribution/uuid"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
)

type TaskProcessor interface {
	ProcessTask(ctx context.Context, task *model.FilterTask) (*model.FilterResult, error)
}

type handler struct {
	proc       TaskProcessor
	maxRecords int
}

func NewFilterServer(cfg *config.ServerConfig, proc TaskProcessor) *http.Server {
	h := &handler{proc: proc, maxRecords: cfg.MaxRecords}

	engine := ginext.New(cfg.GinMode)
	engine.GET("/ping", h.HealthCheck)
	engine.POST("/filter", h.ReceiveTask)

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
	}
}

func (h *handler) HealthCheck(ctx *ginext.Context) {
	ctx.Status(http.StatusOK)
}

func (h *handler) ReceiveTask(ctx *ginext.Context) {
	var req model.FilterRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to parse task from body: %v", err)})
		return
	}

	if h.maxRecords > 0 && len(req.Records) > h.maxRecords {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("too many records: %d, limit is %d", len(req.Records), h.maxRecords)})
		return
	}

	task := model.FilterTask{
		TaskID:  uuid.Generate().String(),
		Term:    req.Term,
		Records: req.Records,
	}
	log.Printf("Received task %q: %d records, term %q", task.TaskID, len(task.Records), task.Term)

	res, err := h.proc.ProcessTask(ctx.Request.Context(), &task)
	if err != nil {
		switch {
		case errors.Is(err, filter.ErrInvalidArgument):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("Failed to process task %q: %q", task.TaskID, err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task"})
		}
		return
	}

	log.Printf("Task %q done: %d of %d records matched", task.TaskID, len(res.Output), len(task.Records))
	ctx.Header("ETag", fmt.Sprintf("%q", fmt.Sprintf("%016x", res.HashSumm)))
	ctx.JSON(http.StatusOK, res)
}
