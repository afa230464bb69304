// Package scheduler runs periodic jobs: reminders for tomorrow's bookings.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	"github.com/campusmarket/service-booking/internal/notification"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	reminderTTL = 48 * time.Hour
	runTimeout  = 5 * time.Minute
)

// ReminderKey is the dedupe key marking a booking as already reminded.
func ReminderKey(bookingID uuid.UUID) string {
	return "booking:reminder:" + bookingID.String()
}

// BookingFinder is the slice of the booking repository the job reads.
type BookingFinder interface {
	FindByStatusAndDate(ctx context.Context, status bookingDomain.BookingStatus, date time.Time) ([]*bookingDomain.Booking, error)
}

// Deduper claims a key for ttl. Claim returns false when the key is already held.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDeduper claims keys with SETNX so replicas share one view.
type RedisDeduper struct {
	client redis.UniversalClient
}

// NewRedisDeduper creates a RedisDeduper.
func NewRedisDeduper(client redis.UniversalClient) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}

// LocalDeduper is a process-local Deduper for single-replica deployments
// without Redis.
type LocalDeduper struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewLocalDeduper creates a LocalDeduper.
func NewLocalDeduper() *LocalDeduper {
	return &LocalDeduper{expires: map[string]time.Time{}, now: time.Now}
}

func (d *LocalDeduper) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if exp, ok := d.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.expires[key] = now.Add(ttl)
	for k, exp := range d.expires {
		if !now.Before(exp) {
			delete(d.expires, k)
		}
	}
	return true, nil
}

// ReminderJob notifies both parties of every confirmed booking scheduled for
// tomorrow, once per booking.
type ReminderJob struct {
	finder     BookingFinder
	dispatcher notification.Dispatcher
	deduper    Deduper
	logger     *zap.Logger
	now        func() time.Time
}

// NewReminderJob creates a ReminderJob.
func NewReminderJob(finder BookingFinder, dispatcher notification.Dispatcher, deduper Deduper, logger *zap.Logger) *ReminderJob {
	return &ReminderJob{
		finder:     finder,
		dispatcher: dispatcher,
		deduper:    deduper,
		logger:     logger.Named("reminders"),
		now:        time.Now,
	}
}

// Run sends the reminders due now and returns how many bookings were reminded.
func (j *ReminderJob) Run(ctx context.Context) (int, error) {
	tomorrow := bookingDomain.NormalizeDate(j.now().UTC().AddDate(0, 0, 1))
	bookings, err := j.finder.FindByStatusAndDate(ctx, bookingDomain.StatusConfirmed, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("failed to find bookings to remind: %w", err)
	}

	sent := 0
	for _, bk := range bookings {
		claimed, err := j.deduper.Claim(ctx, ReminderKey(bk.ID()), reminderTTL)
		if err != nil {
			j.logger.Error("failed to claim reminder", zap.String("booking_id", bk.ID().String()), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		for _, recipient := range []uuid.UUID{bk.CustomerID(), bk.ProviderID()} {
			n := reminderFor(bk, recipient, j.now().UTC())
			if err := j.dispatcher.Notify(ctx, n); err != nil {
				j.logger.Error("failed to send reminder",
					zap.String("booking_id", bk.ID().String()),
					zap.String("recipient_id", recipient.String()),
					zap.Error(err),
				)
			}
		}
		sent++
	}

	j.logger.Info("reminder run finished",
		zap.String("date", tomorrow.Format(bookingDomain.DateLayout)),
		zap.Int("due", len(bookings)),
		zap.Int("sent", sent),
	)
	return sent, nil
}

// Start schedules the job on a UTC cron spec. Stop the returned scheduler on
// shutdown.
func (j *ReminderJob) Start(spec string) (*cron.Cron, error) {
	logger := cronLogger{j.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := j.Run(ctx); err != nil {
			j.logger.Error("reminder run failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}

func reminderFor(bk *bookingDomain.Booking, recipient uuid.UUID, now time.Time) notification.Notification {
	s := bk.Schedule()
	when := s.Date.Format(bookingDomain.DateLayout)
	if s.StartTime != nil {
		when += " at " + *s.StartTime
	}
	return notification.Notification{
		RecipientID: recipient,
		Type:        notification.TypeBookingReminder,
		BookingID:   bk.ID(),
		Title:       "Booking tomorrow",
		Message:     "Reminder: your booking is scheduled for " + when,
		Data:        map[string]string{"service_id": bk.ServiceID().String()},
		CreatedAt:   now,
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
