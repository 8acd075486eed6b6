package grant

import (
	"context"
	"errors"
	"testing"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webtor-io/paypal-permissions/models"
	"github.com/webtor-io/paypal-permissions/services/nvp"
)

// --- Mock implementations ---

type mockApi struct {
	requestResp  *nvp.Response
	requestErr   error
	tokenResp    *nvp.Response
	tokenErr     error
	personalResp *nvp.Response
	personalErr  error

	callback      string
	scope         any
	exchanged     []string
	personalCalls int
	advancedCalls int
}

func (m *mockApi) RequestPermissions(_ context.Context, callback string, scope any) (*nvp.Response, error) {
	m.callback = callback
	m.scope = scope
	return m.requestResp, m.requestErr
}

func (m *mockApi) GetAccessToken(_ context.Context, requestToken, verifier string) (*nvp.Response, error) {
	m.exchanged = append(m.exchanged, requestToken, verifier)
	return m.tokenResp, m.tokenErr
}

func (m *mockApi) GetBasicPersonalData(_ context.Context, _, _ string) (*nvp.Response, error) {
	m.personalCalls++
	return m.personalResp, m.personalErr
}

func (m *mockApi) GetAdvancedPersonalData(_ context.Context, _, _ string) (*nvp.Response, error) {
	m.advancedCalls++
	return m.personalResp, m.personalErr
}

func (m *mockApi) RedirectURL(requestToken string) string {
	return "https://paypal.test/grant?request_token=" + requestToken
}

type mockPending struct {
	items map[string]*PendingRequest
	ttl   time.Duration
}

func (m *mockPending) Put(_ context.Context, requestToken string, p *PendingRequest, ttl time.Duration) error {
	if m.items == nil {
		m.items = map[string]*PendingRequest{}
	}
	m.items[requestToken] = p
	m.ttl = ttl
	return nil
}

func (m *mockPending) Get(_ context.Context, requestToken string) (*PendingRequest, error) {
	return m.items[requestToken], nil
}

func (m *mockPending) Delete(_ context.Context, requestToken string) error {
	delete(m.items, requestToken)
	return nil
}

type mockGrants struct {
	items   map[uuid.UUID]*models.PermissionGrant
	gets    int
	updated *models.PermissionGrant
}

func (m *mockGrants) Create(_ context.Context, g *models.PermissionGrant) error {
	if m.items == nil {
		m.items = map[uuid.UUID]*models.PermissionGrant{}
	}
	m.items[g.ID] = g
	return nil
}

func (m *mockGrants) Get(ctx context.Context, id uuid.UUID) (*models.PermissionGrant, error) {
	m.gets++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.items[id], nil
}

func (m *mockGrants) UpdatePersonalData(_ context.Context, g *models.PermissionGrant) error {
	m.updated = g
	return nil
}

// --- Test helpers ---

func newTestService(api *mockApi) (*Service, *mockPending, *mockGrants) {
	pending := &mockPending{}
	grants := &mockGrants{}
	s := NewService(api, pending, grants, Config{
		Domain:       "https://shop.example.com/",
		RequestTTL:   time.Hour,
		CacheExpire:  time.Minute,
		DefaultScope: []string{"ACCESS_BASIC_PERSONAL_DATA"},
	})
	return s, pending, grants
}

func personalData() *nvp.Response {
	return nvp.DecodePersonalData("responseEnvelope.ack=Success" +
		"&response.personalData(0).personalDataKey=http://axschema.org/contact/email" +
		"&response.personalData(0).personalDataValue=a%40b.com" +
		"&response.personalData(1).personalDataKey=https://www.paypal.com/webapps/auth/schema/payerID" +
		"&response.personalData(1).personalDataValue=PAYER1")
}

// --- Tests ---

func TestService_Start(t *testing.T) {
	api := &mockApi{requestResp: &nvp.Response{Ack: nvp.AckSuccess, Token: "REQ"}}
	s, pending, _ := newTestService(api)

	u, err := s.Start(context.Background(), []string{"REFUND"})
	require.NoError(t, err)

	assert.Equal(t, "https://paypal.test/grant?request_token=REQ", u)
	assert.Equal(t, "https://shop.example.com/permissions/callback", api.callback)
	assert.Equal(t, []string{"REFUND"}, api.scope)
	require.Contains(t, pending.items, "REQ")
	assert.Equal(t, []string{"REFUND"}, pending.items["REQ"].Scope)
	assert.Equal(t, time.Hour, pending.ttl)
}

func TestService_Start_DefaultScope(t *testing.T) {
	api := &mockApi{requestResp: &nvp.Response{Token: "REQ"}}
	s, _, _ := newTestService(api)

	_, err := s.Start(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACCESS_BASIC_PERSONAL_DATA"}, api.scope)
}

func TestService_Start_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		s, pending, _ := newTestService(&mockApi{requestErr: errors.New("boom")})
		_, err := s.Start(context.Background(), nil)
		assert.Error(t, err)
		assert.Empty(t, pending.items)
	})

	t.Run("missing token", func(t *testing.T) {
		s, _, _ := newTestService(&mockApi{requestResp: &nvp.Response{Ack: nvp.AckSuccess}})
		_, err := s.Start(context.Background(), nil)
		assert.Error(t, err)
	})
}

func TestService_Complete(t *testing.T) {
	api := &mockApi{
		requestResp:  &nvp.Response{Token: "REQ"},
		tokenResp:    &nvp.Response{Token: "ACCESS", TokenSecret: "SECRET"},
		personalResp: personalData(),
	}
	s, pending, grants := newTestService(api)
	_, err := s.Start(context.Background(), []string{"REFUND"})
	require.NoError(t, err)

	g, err := s.Complete(context.Background(), "REQ", "VER")
	require.NoError(t, err)

	assert.Equal(t, []string{"REQ", "VER"}, api.exchanged)
	assert.Equal(t, "ACCESS", g.AccessToken)
	assert.Equal(t, "SECRET", g.TokenSecret)
	assert.Equal(t, "a@b.com", g.Email)
	assert.Equal(t, "PAYER1", g.PayerID)
	assert.Equal(t, []string{"REFUND"}, g.Scope)
	assert.Contains(t, grants.items, g.ID)
	assert.Same(t, g, grants.updated)
	assert.Empty(t, pending.items)

	_, err = s.Complete(context.Background(), "REQ", "VER")
	assert.ErrorIs(t, err, ErrUnknownRequestToken)
}

func TestService_Complete_UnknownToken(t *testing.T) {
	api := &mockApi{}
	s, _, _ := newTestService(api)

	_, err := s.Complete(context.Background(), "NOPE", "VER")
	assert.ErrorIs(t, err, ErrUnknownRequestToken)
	assert.Empty(t, api.exchanged)

	_, err = s.Complete(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrUnknownRequestToken)
}

func TestService_Complete_MissingSecret(t *testing.T) {
	api := &mockApi{
		requestResp: &nvp.Response{Token: "REQ"},
		tokenResp:   &nvp.Response{Token: "ACCESS"},
	}
	s, pending, grants := newTestService(api)
	_, err := s.Start(context.Background(), nil)
	require.NoError(t, err)

	_, err = s.Complete(context.Background(), "REQ", "VER")
	assert.Error(t, err)
	assert.Zero(t, api.personalCalls)
	assert.Empty(t, grants.items)
	assert.Contains(t, pending.items, "REQ")
}

func TestService_Complete_ExchangeFailureKeepsPending(t *testing.T) {
	api := &mockApi{
		requestResp: &nvp.Response{Token: "REQ"},
		tokenErr:    errors.New("timeout"),
	}
	s, pending, _ := newTestService(api)
	_, err := s.Start(context.Background(), nil)
	require.NoError(t, err)

	_, err = s.Complete(context.Background(), "REQ", "VER")
	require.Error(t, err)
	assert.Contains(t, pending.items, "REQ")

	api.tokenErr = nil
	api.tokenResp = &nvp.Response{Token: "ACCESS", TokenSecret: "SECRET"}
	api.personalResp = personalData()
	g, err := s.Complete(context.Background(), "REQ", "VER")
	require.NoError(t, err)
	assert.Equal(t, "ACCESS", g.AccessToken)
	assert.Empty(t, pending.items)
}

func TestService_Complete_PersonalDataFailure(t *testing.T) {
	api := &mockApi{
		requestResp: &nvp.Response{Token: "REQ"},
		tokenResp:   &nvp.Response{Token: "ACCESS", TokenSecret: "SECRET"},
		personalErr: &nvp.APIError{Ack: nvp.AckFailure},
	}
	s, pending, grants := newTestService(api)
	_, err := s.Start(context.Background(), []string{"REFUND"})
	require.NoError(t, err)

	g, err := s.Complete(context.Background(), "REQ", "VER")
	require.NoError(t, err)

	assert.Equal(t, 1, api.personalCalls)
	require.Contains(t, grants.items, g.ID)
	stored := grants.items[g.ID]
	assert.Equal(t, "ACCESS", stored.AccessToken)
	assert.Equal(t, "SECRET", stored.TokenSecret)
	assert.Equal(t, []string{"REFUND"}, stored.Scope)
	assert.Empty(t, stored.Email)
	assert.Nil(t, grants.updated)
	assert.Empty(t, pending.items)
}

func TestService_Get(t *testing.T) {
	s, _, grants := newTestService(&mockApi{})
	id := uuid.NewV4()
	grants.items = map[uuid.UUID]*models.PermissionGrant{
		id: {ID: id, Email: "a@b.com"},
	}

	g, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", g.Email)

	_, err = s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, grants.gets)

	_, err = s.Get(context.Background(), uuid.NewV4())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Get_CancelledCaller(t *testing.T) {
	s, _, grants := newTestService(&mockApi{})
	id := uuid.NewV4()
	grants.items = map[uuid.UUID]*models.PermissionGrant{
		id: {ID: id, Email: "a@b.com"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", g.Email)

	g, err = s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", g.Email)
}

func TestService_Refresh(t *testing.T) {
	api := &mockApi{personalResp: personalData()}
	s, _, grants := newTestService(api)
	id := uuid.NewV4()
	grants.items = map[uuid.UUID]*models.PermissionGrant{
		id: {ID: id, AccessToken: "ACCESS", TokenSecret: "SECRET", Email: "old@b.com"},
	}

	g, err := s.Refresh(context.Background(), id, false)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", g.Email)
	assert.Same(t, g, grants.updated)
	assert.Equal(t, 1, api.personalCalls)
	assert.Zero(t, api.advancedCalls)

	_, err = s.Refresh(context.Background(), uuid.NewV4(), false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Refresh_Advanced(t *testing.T) {
	api := &mockApi{personalResp: personalData()}
	s, _, grants := newTestService(api)
	id := uuid.NewV4()
	grants.items = map[uuid.UUID]*models.PermissionGrant{
		id: {ID: id, AccessToken: "ACCESS", TokenSecret: "SECRET"},
	}

	g, err := s.Refresh(context.Background(), id, true)
	require.NoError(t, err)
	assert.Equal(t, "PAYER1", g.PayerID)
	assert.Equal(t, 1, api.advancedCalls)
	assert.Zero(t, api.personalCalls)
}

func TestParseScope(t *testing.T) {
	assert.Nil(t, ParseScope(""))
	assert.Nil(t, ParseScope(" , ,"))
	assert.Equal(t, []string{"REFUND", "EXPRESS_CHECKOUT"}, ParseScope(" REFUND, ,EXPRESS_CHECKOUT,"))
	assert.Equal(t, []string{"a", "b", "c"}, ParseScope("a,b", "", "c"))
}
