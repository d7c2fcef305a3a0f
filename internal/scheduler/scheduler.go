package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"invoicepilot/internal/logger"
	"invoicepilot/internal/repository"
	"invoicepilot/internal/service"
)

// FleetScheduler runs the invoice batch for every eligible user on a fixed
// cadence (02:00 UTC by default). Users are processed one at a time; a
// failure for one user never halts the rest of the fleet.
type FleetScheduler struct {
	invoiceService service.InvoiceService
	userRepo       repository.UserRepository
	logger         *logger.Logger
	cronSpec       string
	cron           *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

func NewFleetScheduler(
	invoiceService service.InvoiceService,
	userRepo repository.UserRepository,
	logger *logger.Logger,
	cronSpec string,
) *FleetScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &FleetScheduler{
		invoiceService: invoiceService,
		userRepo:       userRepo,
		logger:         logger,
		cronSpec:       cronSpec,
		cron:           cron.New(cron.WithLocation(time.UTC)),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start registers the recurring job and begins the timer. It does not block.
func (s *FleetScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cronSpec, func() {
		s.RunFleet(s.ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Fleet scheduler started with cadence:", s.cronSpec)
	return nil
}

// Stop cancels any in-flight run and waits for the timer to shut down.
func (s *FleetScheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Fleet scheduler stopped")
}

// RunFleet executes one pass over every user with a stored refresh token.
// Exported so the scheduled path and tests share the same entry point.
func (s *FleetScheduler) RunFleet(ctx context.Context) {
	s.logger.Info("--- Kicking off invoice processing run for the fleet ---")

	users, err := s.userRepo.FindAllWithRefreshToken(ctx)
	if err != nil {
		s.logger.Error("Failed to get users for fleet run:", err)
		return
	}

	if len(users) == 0 {
		s.logger.Info("No users to process. Run finished.")
		return
	}

	s.logger.Info("Found", len(users), "user(s) for automated invoice processing")

	for _, user := range users {
		if ctx.Err() != nil {
			s.logger.Warn("Fleet run cancelled; remaining users skipped")
			return
		}

		s.logger.Info("Starting invoice batch for user:", user.Email)

		result, err := s.invoiceService.ProcessEmails(ctx, user.ID, "", "")
		if err != nil {
			if errors.Is(err, service.ErrSyncInProgress) {
				s.logger.Warn("Skipping user", user.Email, "- a batch is already running")
				continue
			}
			batchErr := &service.UserBatchError{UserID: user.ID, Err: err}
			s.logger.Error("Batch failed for user", user.Email, ":", batchErr)
			continue
		}

		s.logger.Info("Processed", result.InvoicesSaved, "new invoices from",
			result.EmailsSeen, "emails for user", user.Email)
	}

	s.logger.Info("--- Fleet invoice processing run finished ---")
}
