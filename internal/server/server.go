package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/logging"
)

type JobDefaults struct {
	Intermediates int
	OutputVideo   string
	Upscale       bool
}

type Options struct {
	BindAddress string
	Port        int32
	Workers     int
	Defaults    JobDefaults
}

type Server struct {
	logger *logrus.Entry
	opts   Options
	store  *Sqlite
	queue  *Queue
	hub    *Hub
	pool   *PoolWorker
}

// New reloads the pending jobs of store and prepares the worker pool.
// Nothing runs until Run is called.
func New(ctx context.Context, opts Options, store *Sqlite, process Processor) (*Server, error) {
	jobs, err := store.GetJobs()
	if err != nil {
		return nil, fmt.Errorf("loading pending jobs: %w", err)
	}

	hub := NewHub()
	queue := NewQueue(jobs, hub)
	s := &Server{
		logger: logging.CreateLogger("server"),
		opts:   opts,
		store:  store,
		queue:  queue,
		hub:    hub,
		pool:   NewPoolWorker(ctx, queue, store, hub, process, opts.Workers),
	}

	s.logger.WithField("pending", len(jobs)).Info("Job queue loaded")
	return s, nil
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(LoggerMiddleware())
	r.GET("/ping", ping)
	r.GET("/queue", s.listJobQueue)
	r.POST("/queue", s.addJobToQueue)
	r.DELETE("/queue/:id", s.delJobFromQueue)
	r.GET("/failed", s.listFailedJobs)
	r.GET("/workers", s.listWorkers)
	r.GET("/ws", s.hub.HandleConnections)
	return r
}

// Run serves HTTP and processes jobs until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		s.pool.RunDispatcher()
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.opts.BindAddress, s.opts.Port),
		Handler: s.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", srv.Addr).Info("Listening")
		errChan <- srv.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		s.logger.Warn("Shutdown: ", shutdownErr)
	}

	<-dispatcherDone
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "ping",
	})
}

type jobRequest struct {
	Folder        string `json:"folder" binding:"required"`
	Intermediates *int   `json:"intermediates"`
	OutputVideo   string `json:"outputVideo"`
	Upscale       *bool  `json:"upscale"`
}

func (s *Server) listJobQueue(c *gin.Context) {
	c.JSON(http.StatusOK, s.queue.GetJobs())
}

func (s *Server) addJobToQueue(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	info, err := os.Stat(req.Folder)
	if err != nil || !info.IsDir() {
		c.String(http.StatusBadRequest, "folder does not exist or is not a directory")
		return
	}

	job := Job{
		Folder:        req.Folder,
		Intermediates: s.opts.Defaults.Intermediates,
		OutputVideo:   s.opts.Defaults.OutputVideo,
		Upscale:       s.opts.Defaults.Upscale,
	}
	if req.Intermediates != nil {
		job.Intermediates = *req.Intermediates
	}
	if req.OutputVideo != "" {
		job.OutputVideo = req.OutputVideo
	}
	if req.Upscale != nil {
		job.Upscale = *req.Upscale
	}

	if job.Intermediates < 0 {
		c.String(http.StatusBadRequest, "intermediates cannot be negative")
		return
	}

	if _, err := s.store.InsertJob(&job); err != nil {
		s.logger.Error("Failed to insert job: ", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.WithFields(logging.StructFields(job)).Debug("Job queued")
	s.queue.Enqueue(job)
	c.JSON(http.StatusCreated, job)
}

func (s *Server) delJobFromQueue(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	if _, ok := s.queue.RemoveByID(id); !ok {
		c.String(http.StatusNotFound, "job not in queue")
		return
	}

	if err := s.store.DeleteJobByID(nil, id); err != nil {
		s.logger.WithField("id", id).Error("Failed to delete job: ", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.WithField("id", id).Debug("Job removed")
	c.Status(http.StatusNoContent)
}

func (s *Server) listFailedJobs(c *gin.Context) {
	jobs, err := s.store.GetFailedJobs()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, jobs)
}

func (s *Server) listWorkers(c *gin.Context) {
	c.JSON(http.StatusOK, s.pool.GetWorkersInfo())
}
