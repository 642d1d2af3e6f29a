package worker

import (
	"context"
	"errors"
	"testing"

	pubmodels "brint/internal/api/publication/models"
	"brint/internal/jobqueue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeScheduledSource struct {
	due     []pubmodels.Publication
	dueErr  error
	patches map[string]map[string]interface{} // publicationId → patch
}

func (f *fakeScheduledSource) ListScheduledReady(ctx context.Context, limit int64) ([]pubmodels.Publication, error) {
	return f.due, f.dueErr
}

func (f *fakeScheduledSource) UpdateStatus(ctx context.Context, id primitive.ObjectID, patch map[string]interface{}) (pubmodels.Publication, error) {
	if f.patches == nil {
		f.patches = map[string]map[string]interface{}{}
	}
	f.patches[id.Hex()] = patch
	return pubmodels.Publication{}, nil
}

type fakeEnqueuer struct {
	enqueued []string // queue names
	err      error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, queueName string, publicationID, workspaceID, brandID primitive.ObjectID) (jobqueue.PublishJob, error) {
	if f.err != nil {
		return jobqueue.PublishJob{}, f.err
	}
	f.enqueued = append(f.enqueued, queueName)
	return jobqueue.PublishJob{JobID: "job-" + publicationID.Hex()}, nil
}

func newScheduledPublication(platform string) pubmodels.Publication {
	return pubmodels.Publication{
		ID:          primitive.NewObjectID(),
		WorkspaceID: primitive.NewObjectID(),
		BrandID:     primitive.NewObjectID(),
		Platform:    platform,
		Status:      pubmodels.PublicationStatusScheduled,
	}
}

func TestRequeueDue_EnqueuesAndLinksJobID(t *testing.T) {
	first := newScheduledPublication(pubmodels.PlatformFacebook)
	second := newScheduledPublication(pubmodels.PlatformFacebook)
	source := &fakeScheduledSource{due: []pubmodels.Publication{first, second}}
	queue := &fakeEnqueuer{}

	s := NewScheduler(source, queue)
	count := s.RequeueDue(context.Background())

	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"publish:facebook", "publish:facebook"}, queue.enqueued)

	// Mỗi publication được gắn jobId để lần quét sau không enqueue lại
	require.Contains(t, source.patches, first.ID.Hex())
	assert.Equal(t, "job-"+first.ID.Hex(), source.patches[first.ID.Hex()]["jobId"])
}

func TestRequeueDue_EnqueueFailureSkipsPublication(t *testing.T) {
	source := &fakeScheduledSource{due: []pubmodels.Publication{
		newScheduledPublication(pubmodels.PlatformFacebook),
	}}
	queue := &fakeEnqueuer{err: errors.New("mongo down")}

	s := NewScheduler(source, queue)
	count := s.RequeueDue(context.Background())

	assert.Equal(t, 0, count)
	assert.Empty(t, source.patches)
}

func TestRequeueDue_NoDuePublications(t *testing.T) {
	s := NewScheduler(&fakeScheduledSource{}, &fakeEnqueuer{})
	assert.Equal(t, 0, s.RequeueDue(context.Background()))
}
