package server

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/logging"
)

type Worker struct {
	logger     *logrus.Entry
	poolWorker *PoolWorker
	hub        Broadcaster
	sync.RWMutex

	workerInfo WorkerInfo
}

type WorkerInfo struct {
	ID       int     `json:"id"`
	Active   bool    `json:"active"`
	Step     string  `json:"step"`
	Progress float64 `json:"progress"`
	Job      *Job    `json:"job"`
}

func NewWorker(id int, logger *logrus.Entry, poolWorker *PoolWorker, hub Broadcaster) *Worker {
	w := &Worker{
		logger:     logger,
		poolWorker: poolWorker,
		hub:        hub,
	}
	w.workerInfo.ID = id
	return w
}

func (w *Worker) start() {
	for job := range w.poolWorker.workChannel {
		w.Lock()
		w.workerInfo.Active = true
		current := job
		w.workerInfo.Job = &current
		w.Unlock()
		w.sendUpdate()

		err := w.doWork(&job)

		w.Lock()
		w.workerInfo.Active = false
		w.workerInfo.Job = nil
		w.workerInfo.Step = ""
		w.workerInfo.Progress = 0
		w.Unlock()

		if w.poolWorker.ctx.Err() != nil {
			w.logger.Debug("Ctx error is: ", w.poolWorker.ctx.Err())
			if errors.Is(w.poolWorker.ctx.Err(), context.Canceled) {
				w.logger.Debug("Ctx was canceled")
				return
			}
		}

		if err != nil {
			w.logger.Warn(err)
		}

		w.sendUpdate()
	}
}

func (w *Worker) doWork(job *Job) error {
	w.logger.WithFields(logging.StructFields(job)).Info("Processing job")
	output, err := w.poolWorker.process(w.poolWorker.ctx, *job, w.updateProgress)
	if w.poolWorker.ctx.Err() != nil {
		// The context is cancelled, just return
		// it's handled in start
		return nil
	}

	if err != nil {
		w.handleProcessError(job, output, err)
		// Error was handled already
		return nil
	}

	if err := w.poolWorker.store.MarkJobAsDone(job); err != nil {
		w.logger.Error("Failed to mark job as done: ", err)
		return err
	}

	w.logger.Info("Finished processing job")
	return nil
}

func (w *Worker) handleProcessError(job *Job, output string, processErr error) {
	w.logger.WithFields(logging.StructFields(job)).Error("Error processing job: ", processErr)
	if output != "" {
		w.logger.Debug("Process output: ", output)
	}

	retries, err := w.poolWorker.store.GetJobRetries(job)
	if err != nil {
		w.logger.WithFields(logging.StructFields(job)).Error("Failed to get retries: ", err)
		return
	}

	if retries >= retryLimit {
		_ = w.failJob(job, output, processErr)
		return
	}

	retries++
	err = w.poolWorker.store.UpdateJobRetries(job, retries)
	if err != nil {
		w.logger.WithFields(logging.StructFields(job)).Error("Failed to update job retries: ", err)
		return
	}

	w.poolWorker.queue.Enqueue(*job)
	w.logger.WithFields(logging.StructFields(job)).Info("Requeue job (back of the queue and retrying)")
}

func (w *Worker) failJob(job *Job, output string, failError error) error {
	w.logger.WithFields(logging.StructFields(job)).Info("Job failed, removing it from queue")
	err := w.poolWorker.store.FailJob(job, output, failError.Error())
	if err != nil {
		w.logger.WithFields(logging.StructFields(job)).Error("Failed to fail the job: ", err)
		return err
	}

	return nil
}

func (w *Worker) updateProgress(step string, percent float64) {
	w.Lock()
	w.workerInfo.Step = step
	w.workerInfo.Progress = percent
	w.Unlock()
	w.sendUpdate()
}

func (w *Worker) sendUpdate() {
	if w.hub == nil {
		return
	}

	packet := WsWorkerProgress{
		WsBaseMessage: WsBaseMessage{
			Type: "worker_progress",
		},
		WorkerInfo: w.GetInfo(),
	}

	w.hub.BroadcastMessage(packet)
}

func (w *Worker) GetInfo() WorkerInfo {
	w.RLock() // Shared lock for reading
	defer w.RUnlock()

	info := w.workerInfo
	if info.Job != nil {
		job := *info.Job
		info.Job = &job
	}
	return info
}
