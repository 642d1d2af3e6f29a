package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	activitymodels "brint/internal/api/activity/models"
	pubmodels "brint/internal/api/publication/models"
	pubsvc "brint/internal/api/publication/service"
	socialmodels "brint/internal/api/social/models"
	"brint/internal/common"
	"brint/internal/jobqueue"
	"brint/internal/platform/facebook"
	"brint/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakePubStore struct {
	mu      sync.Mutex
	rel     *pubsvc.PublicationWithRelations
	relErr  error
	patches []map[string]interface{}
}

func (f *fakePubStore) GetWithRelations(ctx context.Context, id primitive.ObjectID) (*pubsvc.PublicationWithRelations, error) {
	if f.relErr != nil {
		return nil, f.relErr
	}
	return f.rel, nil
}

func (f *fakePubStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, patch map[string]interface{}) (pubmodels.Publication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	return f.rel.Publication, nil
}

type fakeEnsurer struct {
	result token.EnsureResult
	err    error
}

func (f *fakeEnsurer) EnsureValid(ctx context.Context, accountID primitive.ObjectID) (token.EnsureResult, error) {
	return f.result, f.err
}

type fakePublisher struct {
	result *facebook.PublishResult
	err    error
	calls  int
}

func (f *fakePublisher) Publish(ctx context.Context, pageID, accessToken string, payload pubmodels.Payload) (*facebook.PublishResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type activityEvent struct {
	eventType string
	metadata  map[string]interface{}
}

type fakeActivity struct {
	mu     sync.Mutex
	events []activityEvent
}

func (f *fakeActivity) LogActivity(ctx context.Context, workspaceID, brandID, publicationID primitive.ObjectID, eventType string, metadata map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, activityEvent{eventType: eventType, metadata: metadata})
}

func (f *fakeActivity) byType(eventType string) []activityEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []activityEvent
	for _, e := range f.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newPhotoRelations(t *testing.T, status string) *pubsvc.PublicationWithRelations {
	t.Helper()

	payload, err := pubmodels.EncodePayload(&pubmodels.PhotoPayload{
		ImageURL: "https://cdn.example.com/banner.jpg",
		Caption:  "Ra mắt sản phẩm mới",
	})
	require.NoError(t, err)

	accountID := primitive.NewObjectID()
	return &pubsvc.PublicationWithRelations{
		Publication: pubmodels.Publication{
			ID:              primitive.NewObjectID(),
			WorkspaceID:     primitive.NewObjectID(),
			BrandID:         primitive.NewObjectID(),
			SocialAccountID: &accountID,
			Platform:        pubmodels.PlatformFacebook,
			ContentType:     pubmodels.ContentTypePhoto,
			Payload:         payload,
			Status:          status,
		},
		SocialAccount: &socialmodels.SocialAccount{
			ID:                accountID,
			Platform:          pubmodels.PlatformFacebook,
			ExternalAccountID: "page-1",
			Status:            socialmodels.SocialAccountStatusActive,
		},
	}
}

func newJobFor(rel *pubsvc.PublicationWithRelations) jobqueue.PublishJob {
	return jobqueue.PublishJob{
		ID:            primitive.NewObjectID(),
		JobID:         "job-1",
		Queue:         jobqueue.QueueName(pubmodels.PlatformFacebook),
		PublicationID: rel.Publication.ID,
		WorkspaceID:   rel.Publication.WorkspaceID,
		BrandID:       rel.Publication.BrandID,
		MaxAttempts:   3,
	}
}

func TestProcess_PublishesPhotoEndToEnd(t *testing.T) {
	rel := newPhotoRelations(t, pubmodels.PublicationStatusScheduled)
	store := &fakePubStore{rel: rel}
	publisher := &fakePublisher{result: &facebook.PublishResult{
		ExternalPostID: "123",
		Permalink:      "https://facebook.com/123",
		Raw:            map[string]interface{}{"post_id": "123"},
	}}
	activity := &fakeActivity{}

	w := NewPublishWorker(store, &fakeEnsurer{result: token.EnsureResult{Token: "page-token"}}, publisher, activity)
	err := w.Process(context.Background(), newJobFor(rel))
	require.NoError(t, err)

	require.Len(t, store.patches, 2)
	assert.Equal(t, pubmodels.PublicationStatusPublishing, store.patches[0]["status"])
	assert.Equal(t, "job-1", store.patches[0]["jobId"])
	assert.Equal(t, pubmodels.PublicationStatusPublished, store.patches[1]["status"])
	assert.Equal(t, "123", store.patches[1]["externalPostId"])
	assert.Equal(t, "https://facebook.com/123", store.patches[1]["permalink"])
	assert.NotZero(t, store.patches[1]["publishedAt"])

	// Đúng một event published, không có event failed
	published := activity.byType(activitymodels.EventPublicationPublished)
	require.Len(t, published, 1)
	assert.Equal(t, "123", published[0].metadata["externalPostId"])
	assert.Empty(t, activity.byType(activitymodels.EventPublicationFailed))
}

func TestProcess_HardTerminalPublicationIsNoOp(t *testing.T) {
	rel := newPhotoRelations(t, pubmodels.PublicationStatusPublished)
	store := &fakePubStore{rel: rel}
	publisher := &fakePublisher{}
	activity := &fakeActivity{}

	w := NewPublishWorker(store, &fakeEnsurer{}, publisher, activity)
	err := w.Process(context.Background(), newJobFor(rel))
	require.NoError(t, err)

	assert.Empty(t, store.patches)
	assert.Equal(t, 0, publisher.calls)
	assert.Empty(t, activity.events)
}

func TestProcess_MissingPublicationCompletesJob(t *testing.T) {
	store := &fakePubStore{relErr: common.ErrPipeNotFound}
	publisher := &fakePublisher{}

	w := NewPublishWorker(store, &fakeEnsurer{}, publisher, &fakeActivity{})
	err := w.Process(context.Background(), jobqueue.PublishJob{
		JobID:         "job-1",
		PublicationID: primitive.NewObjectID(),
	})

	require.NoError(t, err)
	assert.Equal(t, 0, publisher.calls)
}

func TestProcess_TransientReadErrorIsRetriedNotCompleted(t *testing.T) {
	// Lỗi kết nối khi reload publication không có nghĩa publication đã bị
	// xóa: job phải được trả lại cho dispatcher retry, không được complete
	store := &fakePubStore{relErr: common.ErrConnection}
	publisher := &fakePublisher{}
	activity := &fakeActivity{}

	w := NewPublishWorker(store, &fakeEnsurer{}, publisher, activity)
	err := w.Process(context.Background(), jobqueue.PublishJob{
		JobID:         "job-1",
		PublicationID: primitive.NewObjectID(),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConnection))
	assert.Equal(t, 0, publisher.calls)
	assert.Empty(t, store.patches)
	assert.Empty(t, activity.events)
}

func TestProcess_ContentTypeMismatchFailsWithoutPublishing(t *testing.T) {
	rel := newPhotoRelations(t, pubmodels.PublicationStatusScheduled)
	rel.Publication.ContentType = pubmodels.ContentTypeVideo
	store := &fakePubStore{rel: rel}
	publisher := &fakePublisher{}
	activity := &fakeActivity{}

	w := NewPublishWorker(store, &fakeEnsurer{result: token.EnsureResult{Token: "page-token"}}, publisher, activity)
	err := w.Process(context.Background(), newJobFor(rel))

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPipeValidation))
	assert.Equal(t, 0, publisher.calls)

	// Lần thử fail được ghi lại: publication failed + event retryable=false
	last := store.patches[len(store.patches)-1]
	assert.Equal(t, pubmodels.PublicationStatusFailed, last["status"])
	assert.NotEmpty(t, last["errorMessage"])

	failed := activity.byType(activitymodels.EventPublicationFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, false, failed[0].metadata["retryable"])
}

func TestProcess_ProviderErrorRecordsDiagnostics(t *testing.T) {
	rel := newPhotoRelations(t, pubmodels.PublicationStatusScheduled)
	store := &fakePubStore{rel: rel}
	providerErr := common.NewProviderError(190, 460, "Error validating access token")
	activity := &fakeActivity{}

	w := NewPublishWorker(store, &fakeEnsurer{result: token.EnsureResult{Token: "page-token"}},
		&fakePublisher{err: providerErr}, activity)
	err := w.Process(context.Background(), newJobFor(rel))

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPipeProvider))

	last := store.patches[len(store.patches)-1]
	assert.Equal(t, pubmodels.PublicationStatusFailed, last["status"])
	require.NotNil(t, last["providerResponse"])
	response := last["providerResponse"].(map[string]interface{})
	assert.Equal(t, 190, response["providerCode"])

	failed := activity.byType(activitymodels.EventPublicationFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, true, failed[0].metadata["retryable"])
}

func TestProcess_ReauthRequiredPropagates(t *testing.T) {
	rel := newPhotoRelations(t, pubmodels.PublicationStatusScheduled)
	store := &fakePubStore{rel: rel}
	publisher := &fakePublisher{}

	w := NewPublishWorker(store, &fakeEnsurer{err: common.ErrPipeReauthRequired}, publisher, &fakeActivity{})
	err := w.Process(context.Background(), newJobFor(rel))

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPipeReauthRequired))
	assert.Equal(t, 0, publisher.calls)
}

func TestProcess_MissingSocialAccountIsTerminal(t *testing.T) {
	rel := newPhotoRelations(t, pubmodels.PublicationStatusScheduled)
	rel.SocialAccount = nil
	store := &fakePubStore{rel: rel}

	w := NewPublishWorker(store, &fakeEnsurer{}, &fakePublisher{}, &fakeActivity{})
	err := w.Process(context.Background(), newJobFor(rel))

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPipeNotFound))
	assert.False(t, common.IsRetryable(err))
}

func TestHandleFinalFailure_EmitsFinalFailureEvent(t *testing.T) {
	rel := newPhotoRelations(t, pubmodels.PublicationStatusScheduled)
	activity := &fakeActivity{}

	w := NewPublishWorker(&fakePubStore{rel: rel}, &fakeEnsurer{}, &fakePublisher{}, activity)
	job := newJobFor(rel)
	job.Attempt = 3
	w.HandleFinalFailure(context.Background(), job, errors.New("provider down"))

	failed := activity.byType(activitymodels.EventPublicationFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, true, failed[0].metadata["finalFailure"])
	assert.Equal(t, 3, failed[0].metadata["attempt"])
}
