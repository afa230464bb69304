//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/campusmarket/service-booking/internal/application"
	bookingDomain "github.com/campusmarket/service-booking/internal/domain/booking"
	listingDomain "github.com/campusmarket/service-booking/internal/domain/listing"
	bookingEvents "github.com/campusmarket/service-booking/internal/events"
	"github.com/campusmarket/service-booking/internal/notification"
	"github.com/campusmarket/service-booking/internal/repository"
	"github.com/campusmarket/service-booking/pkg/config"
	"github.com/campusmarket/service-booking/pkg/database"
	"github.com/campusmarket/service-booking/pkg/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// setupPostgres starts a PostgreSQL container, applies the SQL migrations and
// returns a connected GORM DB.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_booking",
		SSLMode:  "disable",
	}
	logger := zap.NewNop()

	// Poll until the database accepts connections.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), "migrations", logger))
	return db
}

// setupKafka starts a Kafka container and pre-creates the service's topics.
func setupKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	// confluent-local supports KRaft natively.
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, bookingEvents.TopicBookingEvents, bookingEvents.TopicUserEvents)
	return brokers
}

// bookingStack holds wired-up booking service components.
type bookingStack struct {
	Bookings *repository.GormBookingRepository
	Listings *repository.GormListingRepository
	Reviews  *repository.GormReviewRepository
	Service  *application.BookingService
	Consumer *bookingEvents.UserEventConsumer
}

// setupBookingStack wires the booking service against db and, when brokers
// are given, Kafka.
func setupBookingStack(t *testing.T, db *gorm.DB, brokers []string) *bookingStack {
	t.Helper()
	logger := zap.NewNop()

	stack := &bookingStack{
		Bookings: repository.NewGormBookingRepository(db),
		Listings: repository.NewGormListingRepository(db),
		Reviews:  repository.NewGormReviewRepository(db),
	}

	var publisher application.EventPublisher = discardPublisher{}
	if len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, logger)
		t.Cleanup(func() { _ = producer.Close() })
		publisher = producer
	}

	stack.Service = application.NewBookingService(stack.Bookings, stack.Listings,
		notification.NewLogDispatcher(logger), publisher, logger)
	t.Cleanup(stack.Service.Wait)

	if len(brokers) > 0 {
		groupID := fmt.Sprintf("test-booking-%s", uuid.New().String()[:8])
		stack.Consumer = bookingEvents.NewUserEventConsumer(brokers, groupID, stack.Service, logger)
		t.Cleanup(func() { _ = stack.Consumer.Close() })
	}
	return stack
}

type discardPublisher struct{}

func (discardPublisher) PublishEvent(context.Context, string, kafka.CloudEvent) error { return nil }

// seedListing stores an active listing owned by provider.
func seedListing(t *testing.T, stack *bookingStack, provider uuid.UUID) *listingDomain.Listing {
	t.Helper()
	l, err := listingDomain.NewListing(provider, "Laundry pickup", listingDomain.CategoryLaundry, "Wash and fold", 30000, "KES", "Block C")
	require.NoError(t, err)
	require.NoError(t, stack.Listings.Save(context.Background(), l))
	return l
}

// seedBooking stores a booking for the listing in the given status.
func seedBooking(t *testing.T, stack *bookingStack, l *listingDomain.Listing, customer uuid.UUID, status bookingDomain.BookingStatus) *bookingDomain.Booking {
	t.Helper()
	now := time.Now().UTC()
	start := "09:00"
	bk := bookingDomain.ReconstructBooking(uuid.New(), customer, l.ProviderID(), l.ID(), status,
		bookingDomain.Schedule{Date: bookingDomain.NormalizeDate(now.AddDate(0, 0, 3)), StartTime: &start},
		l.PriceCents(), l.Currency(), "", 1, now, now)
	require.NoError(t, stack.Bookings.Save(context.Background(), bk))
	return bk
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	producer := kafka.NewProducer(brokers, zap.NewNop())
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForBookingStatus polls the bookings table until the status matches.
func waitForBookingStatus(t *testing.T, db *gorm.DB, bookingID uuid.UUID, expectedStatus string, timeout time.Duration) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		if err := db.Where("id = ?", bookingID).First(&model).Error; err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking did not transition to %s", expectedStatus)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the
// expected type about subject.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType, subject string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType && ce.Subject == subject {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
