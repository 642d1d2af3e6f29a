package pubsvc

import (
	"errors"
	"testing"
	"time"

	pubmodels "brint/internal/api/publication/models"
	"brint/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCursorRoundTrip(t *testing.T) {
	id := primitive.NewObjectID()
	original := listCursor{
		CreatedAt: time.Now().UnixMilli(),
		ID:        id.Hex(),
	}

	encoded := encodeCursor(original)
	require.NotEmpty(t, encoded)

	decoded, err := decodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, original.CreatedAt, decoded.CreatedAt)
	assert.Equal(t, original.ID, decoded.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, cursor := range []string{
		"không phải base64!!!",
		"aGVsbG8",           // base64 hợp lệ nhưng không phải JSON
		"eyJjIjoiYWJjIn0",   // JSON nhưng sai kiểu field
	} {
		_, err := decodeCursor(cursor)
		require.Error(t, err, "cursor %q phải bị từ chối", cursor)

		var customErr *common.Error
		require.True(t, errors.As(err, &customErr))
		assert.Equal(t, common.ErrCodeValidationFormat.Code, customErr.Code.Code)
	}
}

func TestCursorIsOpaqueURLSafe(t *testing.T) {
	encoded := encodeCursor(listCursor{
		CreatedAt: 1724457600000,
		ID:        primitive.NewObjectID().Hex(),
	})

	// Cursor đi qua query string nên không được chứa ký tự cần escape
	for _, ch := range []string{"+", "/", "=", " "} {
		assert.NotContains(t, encoded, ch)
	}
}

func TestScheduledReadyFilter_IncludesImmediateAndDue(t *testing.T) {
	now := time.Now().UnixMilli()
	filter := scheduledReadyFilter(now)

	assert.Equal(t, pubmodels.PublicationStatusScheduled, filter["status"])
	// Chỉ nhặt publication chưa gắn job
	assert.Equal(t, bson.M{"$in": bson.A{nil, ""}}, filter["jobId"])

	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
	// Nhánh đăng-ngay: không có scheduledAt (hoặc 0) cũng phải được nhặt,
	// không chỉ các publication đặt lịch tương lai
	assert.Equal(t, bson.M{"scheduledAt": bson.M{"$in": bson.A{nil, int64(0)}}}, or[0])
	// Nhánh theo lịch: đã đến giờ
	assert.Equal(t, bson.M{"scheduledAt": bson.M{"$lte": now}}, or[1])
}

func TestBrandListFilter_OptionalStatusAndPlatform(t *testing.T) {
	brandID := primitive.NewObjectID()

	filter, err := brandListFilter(brandID, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, bson.M{"brandId": brandID}, filter)

	filter, err = brandListFilter(brandID, pubmodels.PublicationStatusFailed, pubmodels.PlatformFacebook, "")
	require.NoError(t, err)
	assert.Equal(t, pubmodels.PublicationStatusFailed, filter["status"])
	assert.Equal(t, pubmodels.PlatformFacebook, filter["platform"])
}

func TestBrandListFilter_CursorAddsKeysetBound(t *testing.T) {
	brandID := primitive.NewObjectID()
	lastID := primitive.NewObjectID()
	cursor := encodeCursor(listCursor{CreatedAt: 1724457600000, ID: lastID.Hex()})

	filter, err := brandListFilter(brandID, "", "", cursor)
	require.NoError(t, err)

	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
	assert.Equal(t, bson.M{"createdAt": bson.M{"$lt": int64(1724457600000)}}, or[0])
	assert.Equal(t, bson.M{"createdAt": int64(1724457600000), "_id": bson.M{"$lt": lastID}}, or[1])

	_, err = brandListFilter(brandID, "", "", "cursor rác")
	require.Error(t, err)
}
