package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/task-service/internal/domain"
)

// Every task filter includes user_id, so a foreign task is
// indistinguishable from a missing one.
func taskFilter(id primitive.ObjectID, ownerID string) bson.M {
	return bson.M{"_id": id, "user_id": ownerID}
}

func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.tasks.list")
	defer sp.Finish()

	cur, err := s.colTasks.Find(ctx,
		bson.M{"user_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	defer cur.Close(ctx)

	tasks := []domain.Task{}
	if err := cur.All(ctx, &tasks); err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id primitive.ObjectID, ownerID string) (*domain.Task, error) {
	var t domain.Task
	err := s.colTasks.FindOne(ctx, taskFilter(id, ownerID)).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateTask(ctx context.Context, t *domain.Task) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.tasks.insert",
		tracer.Tag("priority", t.Priority),
	)
	defer sp.Finish()

	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.Completed = false
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	_, err := s.colTasks.InsertOne(ctx, t)
	if err != nil {
		sp.SetTag("error", err)
	}
	return err
}

// UpdateTask is fetch-check-merge-write: the ownership check and the
// merge happen on the read copy, then the whole merged record is
// written back. Concurrent updates race by design (last write wins).
func (s *Store) UpdateTask(ctx context.Context, id primitive.ObjectID, ownerID string, patch domain.TaskPatch) (*domain.Task, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.tasks.update")
	defer sp.Finish()

	existing, err := s.GetTask(ctx, id, ownerID)
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	merged := applyPatch(*existing, patch)
	merged.UpdatedAt = time.Now().UTC()
	if _, err := s.colTasks.ReplaceOne(ctx, taskFilter(id, ownerID), merged); err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &merged, nil
}

// DeleteTask reports whether a task was actually removed; false means
// not found (or not owned, which must look the same).
func (s *Store) DeleteTask(ctx context.Context, id primitive.ObjectID, ownerID string) (bool, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.tasks.delete")
	defer sp.Finish()

	res, err := s.colTasks.DeleteOne(ctx, taskFilter(id, ownerID))
	if err != nil {
		sp.SetTag("error", err)
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func applyPatch(t domain.Task, p domain.TaskPatch) domain.Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	return t
}
