package token

import (
	"context"
	"errors"
	"testing"
	"time"

	socialmodels "brint/internal/api/social/models"
	"brint/internal/common"
	"brint/internal/credential"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAccountStore struct {
	account socialmodels.SocialAccount
	findErr error

	updatedBlob      string
	updatedExpiresAt int64
	markedValidated  bool
	markedExpired    bool
	expiredReason    string
}

func (f *fakeAccountStore) FindOneById(ctx context.Context, id primitive.ObjectID) (socialmodels.SocialAccount, error) {
	if f.findErr != nil {
		return socialmodels.SocialAccount{}, f.findErr
	}
	if f.account.ID != id {
		return socialmodels.SocialAccount{}, common.ErrNotFound
	}
	return f.account, nil
}

func (f *fakeAccountStore) UpdateCredentials(ctx context.Context, id primitive.ObjectID, blob string, expiresAt int64) (socialmodels.SocialAccount, error) {
	f.updatedBlob = blob
	f.updatedExpiresAt = expiresAt
	f.account.Credentials = blob
	f.account.TokenExpiresAt = expiresAt
	f.account.Status = socialmodels.SocialAccountStatusActive
	return f.account, nil
}

func (f *fakeAccountStore) MarkValidated(ctx context.Context, id primitive.ObjectID) (socialmodels.SocialAccount, error) {
	f.markedValidated = true
	return f.account, nil
}

func (f *fakeAccountStore) MarkExpired(ctx context.Context, id primitive.ObjectID, reason string) (socialmodels.SocialAccount, error) {
	f.markedExpired = true
	f.expiredReason = reason
	f.account.Status = socialmodels.SocialAccountStatusExpired
	f.account.LastError = reason
	return f.account, nil
}

type fakeTokenAPI struct {
	validateValid bool
	validateErr   error
	validateCalls int

	refreshToken     string
	refreshExpiresAt int64
	refreshErr       error
	refreshCalls     int
}

func (f *fakeTokenAPI) Validate(ctx context.Context, accessToken string) (bool, error) {
	f.validateCalls++
	return f.validateValid, f.validateErr
}

func (f *fakeTokenAPI) RefreshFromParentToken(ctx context.Context, parentToken, providerAccountID string) (string, int64, error) {
	f.refreshCalls++
	return f.refreshToken, f.refreshExpiresAt, f.refreshErr
}

func newTestAccount(t *testing.T, codec *credential.Codec, tokenExpiresAt int64, withParent bool) socialmodels.SocialAccount {
	t.Helper()

	blob, err := codec.Encrypt(credential.TokenData{
		Platform:    "facebook",
		AccessToken: "page-token",
		TokenType:   "page",
		ExpiresAt:   tokenExpiresAt,
	})
	require.NoError(t, err)

	account := socialmodels.SocialAccount{
		ID:                primitive.NewObjectID(),
		Platform:          "facebook",
		ExternalAccountID: "page-1",
		Credentials:       blob,
		TokenExpiresAt:    tokenExpiresAt,
		Status:            socialmodels.SocialAccountStatusActive,
	}

	if withParent {
		parentBlob, err := codec.Encrypt(credential.TokenData{
			Platform:    "facebook",
			AccessToken: "user-token",
			TokenType:   "user",
		})
		require.NoError(t, err)
		account.ParentCredentials = parentBlob
	}

	return account
}

func TestEnsureValid_FreshTokenValidated(t *testing.T) {
	codec := credential.NewCodec("secret")
	expiresAt := time.Now().Add(30 * 24 * time.Hour).UnixMilli()
	store := &fakeAccountStore{account: newTestAccount(t, codec, expiresAt, false)}
	api := &fakeTokenAPI{validateValid: true}

	result, err := NewService(store, api, codec).EnsureValid(context.Background(), store.account.ID)
	require.NoError(t, err)

	assert.Equal(t, "page-token", result.Token)
	assert.False(t, result.WasRefreshed)
	assert.True(t, store.markedValidated)
	assert.Equal(t, 0, api.refreshCalls)
}

func TestEnsureValid_ValidationNetworkErrorReusesToken(t *testing.T) {
	// Token còn 30 ngày, probe lỗi mạng → vẫn trả token cũ, không refresh
	codec := credential.NewCodec("secret")
	expiresAt := time.Now().Add(30 * 24 * time.Hour).UnixMilli()
	store := &fakeAccountStore{account: newTestAccount(t, codec, expiresAt, true)}
	api := &fakeTokenAPI{validateErr: errors.New("connection reset")}

	result, err := NewService(store, api, codec).EnsureValid(context.Background(), store.account.ID)
	require.NoError(t, err)

	assert.Equal(t, "page-token", result.Token)
	assert.False(t, result.WasRefreshed)
	assert.Equal(t, 0, api.refreshCalls)
}

func TestEnsureValid_NoExpirySkipsRefresh(t *testing.T) {
	codec := credential.NewCodec("secret")
	store := &fakeAccountStore{account: newTestAccount(t, codec, 0, false)}
	api := &fakeTokenAPI{validateValid: true}

	result, err := NewService(store, api, codec).EnsureValid(context.Background(), store.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "page-token", result.Token)
	assert.Equal(t, 1, api.validateCalls)
}

func TestEnsureValid_ExpiringSoonNoParentReusesOptimistically(t *testing.T) {
	// Còn 2 ngày (trong cửa sổ 7 ngày) nhưng chưa quá hạn → dùng lại
	codec := credential.NewCodec("secret")
	expiresAt := time.Now().Add(2 * 24 * time.Hour).UnixMilli()
	store := &fakeAccountStore{account: newTestAccount(t, codec, expiresAt, false)}
	api := &fakeTokenAPI{}

	result, err := NewService(store, api, codec).EnsureValid(context.Background(), store.account.ID)
	require.NoError(t, err)

	assert.Equal(t, "page-token", result.Token)
	assert.False(t, store.markedExpired)
}

func TestEnsureValid_HardExpiredNoParentIsReauthRequired(t *testing.T) {
	codec := credential.NewCodec("secret")
	expiresAt := time.Now().Add(-time.Hour).UnixMilli()
	store := &fakeAccountStore{account: newTestAccount(t, codec, expiresAt, false)}
	api := &fakeTokenAPI{}

	_, err := NewService(store, api, codec).EnsureValid(context.Background(), store.account.ID)
	require.Error(t, err)

	assert.True(t, errors.Is(err, common.ErrPipeReauthRequired))
	assert.True(t, store.markedExpired)
}

func TestEnsureValid_RefreshSuccessPersistsNewToken(t *testing.T) {
	codec := credential.NewCodec("secret")
	expiresAt := time.Now().Add(2 * 24 * time.Hour).UnixMilli()
	store := &fakeAccountStore{account: newTestAccount(t, codec, expiresAt, true)}
	api := &fakeTokenAPI{refreshToken: "fresh-page-token"}

	result, err := NewService(store, api, codec).EnsureValid(context.Background(), store.account.ID)
	require.NoError(t, err)

	assert.Equal(t, "fresh-page-token", result.Token)
	assert.True(t, result.WasRefreshed)
	require.NotEmpty(t, store.updatedBlob)

	// Blob đã persist phải giải mã ra token mới
	data, err := codec.DecryptForPlatform(store.updatedBlob, "facebook")
	require.NoError(t, err)
	assert.Equal(t, "fresh-page-token", data.AccessToken)
}

func TestEnsureValid_RefreshFailureNotHardExpiredReusesOldToken(t *testing.T) {
	codec := credential.NewCodec("secret")
	expiresAt := time.Now().Add(2 * 24 * time.Hour).UnixMilli()
	store := &fakeAccountStore{account: newTestAccount(t, codec, expiresAt, true)}
	api := &fakeTokenAPI{refreshErr: common.NewProviderError(190, 0, "token invalid")}

	result, err := NewService(store, api, codec).EnsureValid(context.Background(), store.account.ID)
	require.NoError(t, err)

	assert.Equal(t, "page-token", result.Token)
	assert.False(t, result.WasRefreshed)
	assert.False(t, store.markedExpired)
}

func TestEnsureValid_RefreshFailureHardExpiredMarksExpiredButReturnsToken(t *testing.T) {
	// Quá hạn cứng + refresh fail: persist expired nhưng vẫn trả token cũ —
	// provider từ chối mới là tín hiệu chính thức.
	codec := credential.NewCodec("secret")
	expiresAt := time.Now().Add(-time.Hour).UnixMilli()
	store := &fakeAccountStore{account: newTestAccount(t, codec, expiresAt, true)}
	api := &fakeTokenAPI{refreshErr: common.NewProviderError(190, 0, "token invalid")}

	result, err := NewService(store, api, codec).EnsureValid(context.Background(), store.account.ID)
	require.NoError(t, err)

	assert.Equal(t, "page-token", result.Token)
	assert.True(t, store.markedExpired)
	// Lỗi provider phải được persist cùng status=expired để chẩn đoán
	assert.Equal(t, "token invalid", store.expiredReason)
}

func TestEnsureValid_TransientReadErrorPropagates(t *testing.T) {
	// Lỗi đọc account (kết nối database...) không được gập thành not-found:
	// not-found là terminal, còn lỗi kết nối phải để caller retry
	codec := credential.NewCodec("secret")
	store := &fakeAccountStore{findErr: common.ErrConnection}

	_, err := NewService(store, &fakeTokenAPI{}, codec).EnsureValid(context.Background(), primitive.NewObjectID())
	require.Error(t, err)

	assert.True(t, errors.Is(err, common.ErrConnection))
	assert.False(t, errors.Is(err, common.ErrPipeNotFound))
}

func TestEnsureValid_MissingAccountIsNotFound(t *testing.T) {
	codec := credential.NewCodec("secret")
	store := &fakeAccountStore{account: newTestAccount(t, codec, 0, false)}

	_, err := NewService(store, &fakeTokenAPI{}, codec).EnsureValid(context.Background(), primitive.NewObjectID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPipeNotFound))
}

func TestEnsureValid_WrongPlatformCredentialFails(t *testing.T) {
	codec := credential.NewCodec("secret")
	account := newTestAccount(t, codec, 0, false)

	blob, err := codec.Encrypt(credential.TokenData{Platform: "instagram", AccessToken: "x"})
	require.NoError(t, err)
	account.Credentials = blob

	store := &fakeAccountStore{account: account}
	_, err = NewService(store, &fakeTokenAPI{}, codec).EnsureValid(context.Background(), account.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPipeCredentials))
}

func TestIsExpiredOrExpiringSoon(t *testing.T) {
	now := time.Now()

	assert.False(t, IsExpiredOrExpiringSoon(0, now))
	assert.False(t, IsExpiredOrExpiringSoon(now.Add(30*24*time.Hour).UnixMilli(), now))
	assert.True(t, IsExpiredOrExpiringSoon(now.Add(2*24*time.Hour).UnixMilli(), now))
	assert.True(t, IsExpiredOrExpiringSoon(now.Add(-time.Hour).UnixMilli(), now))
}
