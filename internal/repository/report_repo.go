package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gHajnal/OppaTalent/internal/model"
)

// ReportRepo handles MongoDB operations for graded session reports
type ReportRepo interface {
	Save(ctx context.Context, report *model.Report) error
	GetBySessionID(ctx context.Context, sessionID string) (*model.Report, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Report, error)
}

type reportRepo struct {
	reports *mongo.Collection
}

// NewReportRepo creates a new report repository
func NewReportRepo(db *mongo.Database) ReportRepo {
	return &reportRepo{
		reports: db.Collection("quiz_reports"),
	}
}

func (r *reportRepo) Save(ctx context.Context, report *model.Report) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.reports.ReplaceOne(ctx, bson.M{"_id": report.SessionID}, report, opts)
	return err
}

func (r *reportRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Report, error) {
	var report model.Report
	err := r.reports.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Report, error) {
	if limit <= 0 {
		limit = 10
	}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetLimit(int64(limit))

	cur, err := r.reports.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reports []*model.Report
	for cur.Next(ctx) {
		var rep model.Report
		if err := cur.Decode(&rep); err != nil {
			continue
		}
		reports = append(reports, &rep)
	}
	return reports, cur.Err()
}
