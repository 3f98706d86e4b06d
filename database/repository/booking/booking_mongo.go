package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtside/config"
	"courtside/database"
	"courtside/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nonTerminalStatuses are the statuses that still hold a court slot.
var nonTerminalStatuses = []models.BookingStatus{
	models.StatusPendingPayment,
	models.StatusPaymentUploaded,
	models.StatusConfirmed,
}

// MongoBookingRepo implements BookingStore on MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo creates a repository over the configured database.
func NewMongoBookingRepo() *MongoBookingRepo {
	coll := database.MongoClient.Database(config.AppConfig.DatabaseName).Collection("bookings")
	return &MongoBookingRepo{coll: coll}
}

// Insert persists the booking inside a session transaction: the overlap check
// and the insert must be a single unit or two concurrent creates for the same
// court could both pass the check.
func (r *MongoBookingRepo) Insert(ctx context.Context, b *models.Booking) error {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		filter := bson.M{
			"court_id":   b.CourtID,
			"status":     bson.M{"$in": nonTerminalStatuses},
			"start_time": bson.M{"$lt": b.EndTime},
			"end_time":   bson.M{"$gt": b.StartTime},
		}
		n, err := r.coll.CountDocuments(sc, filter)
		if err != nil {
			return fmt.Errorf("overlap check failed: %w", err)
		}
		if n > 0 {
			return ErrSlotConflict
		}
		if _, err := r.coll.InsertOne(sc, b); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if errors.Is(err, ErrSlotConflict) {
			return ErrSlotConflict
		}
		return fmt.Errorf("booking insert transaction failed: %w", err)
	}

	return nil
}

func (r *MongoBookingRepo) Get(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return &b, nil
}

// CompareAndSwap replaces the record keyed by (id, expectedVersion). A miss is
// disambiguated with a follow-up read: unknown id means NotFound, otherwise a
// concurrent writer bumped the version first.
func (r *MongoBookingRepo) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, updated *models.Booking) (*models.Booking, error) {
	filter := bson.M{"id": id, "version": expectedVersion}
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)

	var stored models.Booking
	err := r.coll.FindOneAndReplace(ctx, filter, updated, opts).Decode(&stored)
	if err == nil {
		return &stored, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("compare-and-swap booking %s: %w", id, err)
	}

	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrVersionConflict
}

func (r *MongoBookingRepo) ListPending(ctx context.Context, before time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"status":    models.StatusPendingPayment,
		"expire_at": bson.M{"$lt": before},
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list pending bookings: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Booking
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode pending bookings: %w", err)
	}
	return out, nil
}

func (r *MongoBookingRepo) ListByPayer(ctx context.Context, payerID string) ([]models.Booking, error) {
	return r.list(ctx, bson.M{"payer_id": payerID})
}

func (r *MongoBookingRepo) ListByVenue(ctx context.Context, venueID string) ([]models.Booking, error) {
	return r.list(ctx, bson.M{"venue_id": venueID})
}

func (r *MongoBookingRepo) list(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Booking
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	return out, nil
}
