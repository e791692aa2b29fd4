package delivery

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/robfig/cron/v3"

	"formrelay/adapters"
	"formrelay/config"
	"formrelay/models"
	"formrelay/resolver"
	"formrelay/services"
)

// TaskWrapper decorates a named background task, typically with panic
// recovery and error alerting. middleware.ErrorAlertMiddleware's
// WrapBackgroundTask satisfies it.
type TaskWrapper func(taskName string, task func() error) func() error

// DeliveryUseCase is the engine between form submissions and channel
// delivery. It resolves effective integrations, fans submissions out to one
// durable job per channel and runs the per-queue worker pools that drain
// them. Queues are isolated from each other: a slow or failing channel never
// stalls the rest.
type DeliveryUseCase struct {
	integrationsService services.IntegrationsService
	jobsService         services.JobsService
	txManager           services.TransactionManager
	adapterRegistry     map[models.IntegrationType]adapters.Adapter
	retryPolicy         *RetryPolicy
	wrapTask            TaskWrapper
	cfg                 config.DeliveryConfig

	pools  map[string]*workerpool.WorkerPool
	wake   map[string]chan struct{}
	sweep  *cron.Cron
	stopCh chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewDeliveryUseCase(
	integrationsService services.IntegrationsService,
	jobsService services.JobsService,
	txManager services.TransactionManager,
	adapterList []adapters.Adapter,
	taskWrapper TaskWrapper,
	cfg config.DeliveryConfig,
) *DeliveryUseCase {
	registry := make(map[models.IntegrationType]adapters.Adapter, len(adapterList))
	for _, adapter := range adapterList {
		registry[adapter.Type()] = adapter
	}

	if taskWrapper == nil {
		taskWrapper = func(taskName string, task func() error) func() error { return task }
	}

	pools := make(map[string]*workerpool.WorkerPool, len(models.QueueNames()))
	wake := make(map[string]chan struct{}, len(models.QueueNames()))
	for _, queue := range models.QueueNames() {
		pools[queue] = workerpool.New(cfg.WorkersPerQueue)
		wake[queue] = make(chan struct{}, 1)
	}

	return &DeliveryUseCase{
		integrationsService: integrationsService,
		jobsService:         jobsService,
		txManager:           txManager,
		adapterRegistry:     registry,
		retryPolicy:         NewRetryPolicy(cfg),
		wrapTask:            taskWrapper,
		cfg:                 cfg,
		pools:               pools,
		wake:                wake,
		stopCh:              make(chan struct{}),
	}
}

// DispatchSubmission resolves the form's effective integrations and enqueues
// one delivery job per deliverable channel, atomically. Returns the enqueued
// jobs; an empty slice means the submission was accepted but nothing is
// configured to receive it.
func (u *DeliveryUseCase) DispatchSubmission(
	ctx context.Context,
	form *models.Form,
	fields map[string]any,
) ([]*models.DeliveryJob, error) {
	log.Printf("📋 Starting to dispatch submission for form: %s", form.ID)

	// Personal forms have no organization and therefore no integrations
	if form.OrgID == nil {
		log.Printf("📋 Form %s has no organization, nothing to deliver", form.ID)
		return []*models.DeliveryJob{}, nil
	}

	formIntegrations, err := u.integrationsService.GetFormIntegrations(ctx, form.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get form integrations: %w", err)
	}
	orgIntegrations, err := u.integrationsService.GetOrganizationIntegrations(ctx, *form.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization integrations: %w", err)
	}

	effective := resolver.Resolve(form, formIntegrations, orgIntegrations)
	deliverable := resolver.Deliverable(effective)
	if len(deliverable) == 0 {
		log.Printf("📋 No deliverable integrations for form: %s", form.ID)
		return []*models.DeliveryJob{}, nil
	}

	payload := models.SubmissionPayload{
		FormID:     form.ID,
		FormName:   form.Name,
		ReceivedAt: time.Now().UTC(),
		Fields:     fields,
	}

	jobs := make([]*models.DeliveryJob, 0, len(deliverable))
	err = u.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, eff := range deliverable {
			job, err := u.jobsService.EnqueueJob(txCtx, services.EnqueueJobParams{
				OrgID:       *form.OrgID,
				FormID:      form.ID,
				Integration: eff.Integration,
				Payload:     payload,
			})
			if err != nil {
				return fmt.Errorf("failed to enqueue job for integration %s: %w", eff.Integration.ID, err)
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch submission: %w", err)
	}

	for _, job := range jobs {
		u.WakeQueue(job.Queue)
	}

	log.Printf("✅ Completed successfully - dispatched %d delivery job(s) for form: %s", len(jobs), form.ID)
	return jobs, nil
}

// Start launches one feeder goroutine per queue plus the cron sweep that
// periodically wakes queues so RETRY jobs get picked up when due. Every
// background task runs under the task wrapper so panics and errors in them
// get alerted like HTTP handler failures do.
func (u *DeliveryUseCase) Start() {
	u.startOnce.Do(func() {
		for _, queue := range models.QueueNames() {
			queue := queue
			feed := u.wrapTask("DeliveryQueueFeeder:"+queue, func() error {
				u.runQueue(queue)
				return nil
			})
			u.wg.Add(1)
			go func() {
				defer u.wg.Done()
				_ = feed()
			}()
		}

		sweepTask := u.wrapTask("DeliveryRetrySweep", func() error {
			u.wakeAllQueues()
			return nil
		})
		u.sweep = cron.New()
		schedule := fmt.Sprintf("@every %s", u.cfg.SweepInterval)
		if _, err := u.sweep.AddFunc(schedule, func() { _ = sweepTask() }); err != nil {
			log.Printf("❌ Failed to schedule delivery sweep: %v", err)
		}
		u.sweep.Start()

		log.Printf("🚀 Delivery engine started: %d queues, %d workers each",
			len(u.pools), u.cfg.WorkersPerQueue)
	})
}

// Stop shuts the engine down: feeders exit, in-flight jobs run to completion.
func (u *DeliveryUseCase) Stop() {
	u.stopOnce.Do(func() {
		log.Printf("🛑 Stopping delivery engine...")
		close(u.stopCh)
		if u.sweep != nil {
			<-u.sweep.Stop().Done()
		}
		u.wg.Wait()
		for _, pool := range u.pools {
			pool.StopWait()
		}
		log.Printf("🛑 Delivery engine stopped")
	})
}

// WakeQueue nudges a queue's feeder. Non-blocking; a pending wakeup is enough.
func (u *DeliveryUseCase) WakeQueue(queue string) {
	ch, ok := u.wake[queue]
	if !ok {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (u *DeliveryUseCase) wakeAllQueues() {
	for _, queue := range models.QueueNames() {
		u.WakeQueue(queue)
	}
}

// runQueue is the feeder loop for one queue: on every wakeup it claims ready
// jobs in FIFO order and hands them to the queue's worker pool. The semaphore
// bounds claimed-but-unstarted work to the pool size so jobs are not held
// ACTIVE while waiting for a worker.
func (u *DeliveryUseCase) runQueue(queue string) {
	pool := u.pools[queue]
	sem := make(chan struct{}, u.cfg.WorkersPerQueue)

	for {
		select {
		case <-u.stopCh:
			return
		case <-u.wake[queue]:
		}

		for {
			select {
			case <-u.stopCh:
				return
			case sem <- struct{}{}:
			}

			maybeJob, err := u.jobsService.ClaimNextJob(context.Background(), queue)
			if err != nil {
				<-sem
				log.Printf("❌ Failed to claim job from queue %s: %v", queue, err)
				break
			}
			job, ok := maybeJob.Get()
			if !ok {
				<-sem
				break
			}

			pool.Submit(func() {
				defer func() { <-sem }()
				u.processJob(job)
			})
		}
	}
}

// processJob runs one delivery attempt and records its outcome. A panicking
// adapter only fails its own job, never the worker.
func (u *DeliveryUseCase) processJob(job *models.DeliveryJob) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic while delivering job %s: %v", job.ID, r)
			if err := u.jobsService.FailJob(ctx, job.ID, fmt.Sprintf("panic during delivery: %v", r), false); err != nil {
				log.Printf("❌ Failed to record panic failure for job %s: %v", job.ID, err)
			}
		}
	}()

	adapter, ok := u.adapterRegistry[job.IntegrationType]
	if !ok {
		u.recordFailure(ctx, job, fmt.Sprintf("no adapter registered for type %s", job.IntegrationType), false)
		return
	}

	deliverCtx, cancel := context.WithTimeout(ctx, u.cfg.DeliveryTimeout)
	defer cancel()

	detail, err := adapter.Deliver(deliverCtx, job.Config, job.Payload)
	if err == nil {
		if completeErr := u.jobsService.CompleteJob(ctx, job.ID, detail); completeErr != nil {
			log.Printf("❌ Failed to complete job %s: %v", job.ID, completeErr)
		}
		return
	}

	if adapters.IsRecoverable(err) && job.RetryCount+1 < u.cfg.MaxRetries {
		delay := u.retryPolicy.NextInterval(job.RetryCount)
		if retryErr := u.jobsService.ScheduleRetry(ctx, job.ID, err.Error(), delay); retryErr != nil {
			log.Printf("❌ Failed to schedule retry for job %s: %v", job.ID, retryErr)
		}
		return
	}

	u.recordFailure(ctx, job, err.Error(), adapters.IsRecoverable(err))
}

func (u *DeliveryUseCase) recordFailure(ctx context.Context, job *models.DeliveryJob, output string, countAttempt bool) {
	if err := u.jobsService.FailJob(ctx, job.ID, output, countAttempt); err != nil {
		log.Printf("❌ Failed to record failure for job %s: %v", job.ID, err)
	}
}
