package server

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/logging"
)

const retryLimit = 5

// Processor runs one job. progress reports the current step and its
// completion in percent. The returned output is kept with the failure.
type Processor func(ctx context.Context, job Job, progress func(step string, percent float64)) (output string, err error)

// Store is the persistence the workers need.
type Store interface {
	MarkJobAsDone(job *Job) error
	GetJobRetries(job *Job) (int, error)
	UpdateJobRetries(job *Job, retries int) error
	FailJob(job *Job, output string, jobErr string) error
}

type PoolWorker struct {
	ctx         context.Context
	logger      *logrus.Entry
	queue       *Queue
	store       Store
	hub         Broadcaster
	process     Processor
	workChannel chan Job
	waitGroup   sync.WaitGroup
	workers     []*Worker
	pollEvery   time.Duration
}

func NewPoolWorker(ctx context.Context, queue *Queue, store Store, hub Broadcaster, process Processor, workers int) *PoolWorker {
	if workers < 1 {
		workers = 1
	}

	p := &PoolWorker{
		ctx:         ctx,
		logger:      logging.CreateLogger("pool"),
		queue:       queue,
		store:       store,
		hub:         hub,
		process:     process,
		workChannel: make(chan Job),
		pollEvery:   100 * time.Millisecond,
	}

	for i := 0; i < workers; i++ {
		logger := logging.CreateLogger("worker").WithField("worker", i)
		p.workers = append(p.workers, NewWorker(i, logger, p, hub))
	}

	return p
}

// RunDispatcher feeds queued jobs to the workers until the context is
// cancelled, then waits for the running jobs to return.
func (p *PoolWorker) RunDispatcher() {
	for _, w := range p.workers {
		p.waitGroup.Add(1)
		go func(w *Worker) {
			defer p.waitGroup.Done()
			w.start()
		}(w)
	}

	defer func() {
		close(p.workChannel)
		p.waitGroup.Wait()
		p.logger.Debug("All workers stopped")
	}()

	for {
		if p.ctx.Err() != nil {
			return
		}

		job, ok := p.queue.Dequeue()
		if !ok {
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(p.pollEvery):
			}
			continue
		}

		select {
		case p.workChannel <- job:
		case <-p.ctx.Done():
			// still pending in the database, it is reloaded on restart
			p.queue.Enqueue(job)
			return
		}
	}
}

func (p *PoolWorker) GetWorkersInfo() []WorkerInfo {
	infos := make([]WorkerInfo, 0, len(p.workers))
	for _, w := range p.workers {
		infos = append(infos, w.GetInfo())
	}

	return infos
}
