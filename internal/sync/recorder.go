package syncx

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	"github.com/mind-engage/mindengage-ielts/internal/exam"
)

// Recorder is an exam.Store that appends a feed event after every
// successful write. A failed append is logged and does not fail the write.
type Recorder struct {
	exam.Store
	events *EventRepo
}

func Record(s exam.Store, events *EventRepo) *Recorder {
	return &Recorder{Store: s, events: events}
}

func (r *Recorder) PutTest(ctx context.Context, t exam.Test) (exam.Test, error) {
	saved, err := r.Store.PutTest(ctx, t)
	if err == nil {
		r.emit(ctx, TestPut, saved.ID, map[string]any{
			"type": saved.Type, "name": saved.Name, "updatedAt": saved.UpdatedAt,
		})
	}
	return saved, err
}

func (r *Recorder) DeleteTest(ctx context.Context, id string) error {
	err := r.Store.DeleteTest(ctx, id)
	if err == nil {
		r.emit(ctx, TestDeleted, id, nil)
	}
	return err
}

func (r *Recorder) CreateResult(ctx context.Context, res exam.Result) (exam.Result, error) {
	saved, err := r.Store.CreateResult(ctx, res)
	if err == nil {
		r.emit(ctx, ResultCreated, saved.ID, map[string]any{
			"userId": saved.UserID, "testId": saved.TestID, "bandScore": saved.BandScore,
		})
	}
	return saved, err
}

func (r *Recorder) emit(ctx context.Context, typ, id string, data map[string]any) {
	e := Event{Type: typ, EntityID: id}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			glog.Errorf("encode %s event for %s: %v", typ, id, err)
			return
		}
		e.Data = b
	}
	if err := r.events.Append(ctx, e); err != nil {
		glog.Errorf("%v", err)
	}
}
