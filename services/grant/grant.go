package grant

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"github.com/webtor-io/lazymap"
	"github.com/webtor-io/paypal-permissions/models"
	"github.com/webtor-io/paypal-permissions/services/common"
	"github.com/webtor-io/paypal-permissions/services/nvp"
)

const (
	requestTTLFlag  = "grant-request-ttl"
	cacheExpireFlag = "grant-cache-expire"
	scopeFlag       = "grant-default-scope"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.DurationFlag{
			Name:   requestTTLFlag,
			Usage:  "how long a permission request waits for user approval",
			Value:  3 * time.Hour,
			EnvVar: "GRANT_REQUEST_TTL",
		},
		cli.DurationFlag{
			Name:   cacheExpireFlag,
			Usage:  "grant cache expire period",
			Value:  time.Minute,
			EnvVar: "GRANT_CACHE_EXPIRE",
		},
		cli.StringFlag{
			Name:   scopeFlag,
			Usage:  "scope requested when none is given",
			Value:  "ACCESS_BASIC_PERSONAL_DATA",
			EnvVar: "GRANT_DEFAULT_SCOPE",
		},
	)
}

var (
	ErrUnknownRequestToken = errors.New("unknown or expired request token")
	ErrNotFound            = errors.New("grant not found")
)

// Api is the part of the permissions client the grant flow needs.
type Api interface {
	RequestPermissions(ctx context.Context, callback string, scope any) (*nvp.Response, error)
	GetAccessToken(ctx context.Context, requestToken, verifier string) (*nvp.Response, error)
	GetBasicPersonalData(ctx context.Context, accessToken, tokenSecret string) (*nvp.Response, error)
	GetAdvancedPersonalData(ctx context.Context, accessToken, tokenSecret string) (*nvp.Response, error)
	RedirectURL(requestToken string) string
}

type Config struct {
	Domain       string
	RequestTTL   time.Duration
	CacheExpire  time.Duration
	DefaultScope []string
}

// Service drives the request, approve, exchange and fetch sequence of
// delegated permissions.
type Service struct {
	api     Api
	pending PendingStore
	grants  GrantStore
	cfg     Config
	cache   lazymap.LazyMap[*models.PermissionGrant]
}

func New(c *cli.Context, api Api, pending PendingStore, grants GrantStore) *Service {
	return NewService(api, pending, grants, Config{
		Domain:       c.String(common.DomainFlag),
		RequestTTL:   c.Duration(requestTTLFlag),
		CacheExpire:  c.Duration(cacheExpireFlag),
		DefaultScope: ParseScope(c.String(scopeFlag)),
	})
}

func NewService(api Api, pending PendingStore, grants GrantStore, cfg Config) *Service {
	return &Service{
		api:     api,
		pending: pending,
		grants:  grants,
		cfg:     cfg,
		cache: lazymap.New[*models.PermissionGrant](&lazymap.Config{
			Expire:      cfg.CacheExpire,
			ErrorExpire: 10 * time.Second,
		}),
	}
}

// ParseScope splits comma separated scope values, dropping blank entries.
func ParseScope(v ...string) []string {
	var scope []string
	for _, vv := range v {
		for _, sc := range strings.Split(vv, ",") {
			sc = strings.TrimSpace(sc)
			if sc != "" {
				scope = append(scope, sc)
			}
		}
	}
	return scope
}

func (s *Service) callbackURL() string {
	return common.AbsURL(s.cfg.Domain, common.CallbackPath)
}

// Start requests permissions for scope and returns the URL the user has to
// visit to approve them.
func (s *Service) Start(ctx context.Context, scope []string) (string, error) {
	if len(scope) == 0 {
		scope = s.cfg.DefaultScope
	}
	cb := s.callbackURL()
	resp, err := s.api.RequestPermissions(ctx, cb, scope)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("no request token in response")
	}
	err = s.pending.Put(ctx, resp.Token, &PendingRequest{
		Scope:     scope,
		Callback:  cb,
		CreatedAt: time.Now(),
	}, s.cfg.RequestTTL)
	if err != nil {
		return "", err
	}
	log.WithField("scope", scope).
		WithField("correlation_id", resp.CorrelationID).
		Info("permissions requested")
	return s.api.RedirectURL(resp.Token), nil
}

// Complete exchanges an approved request token for an access token and
// stores the grant. Personal data is fetched afterwards and a failure there
// leaves the grant without it until Refresh.
func (s *Service) Complete(ctx context.Context, requestToken, verifier string) (*models.PermissionGrant, error) {
	if requestToken == "" || verifier == "" {
		return nil, ErrUnknownRequestToken
	}
	p, err := s.pending.Get(ctx, requestToken)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrUnknownRequestToken
	}
	at, err := s.api.GetAccessToken(ctx, requestToken, verifier)
	if err != nil {
		return nil, err
	}
	if at.Token == "" || at.TokenSecret == "" {
		return nil, errors.New("no access token in response")
	}
	g := &models.PermissionGrant{
		ID:           uuid.NewV4(),
		RequestToken: requestToken,
		AccessToken:  at.Token,
		TokenSecret:  at.TokenSecret,
		Scope:        p.Scope,
	}
	if err := s.grants.Create(ctx, g); err != nil {
		return nil, errors.Wrap(err, "failed to store grant")
	}
	if err := s.pending.Delete(ctx, requestToken); err != nil {
		log.WithError(err).Warn("failed to drop pending request")
	}
	log.WithField("grant_id", g.ID).
		WithField("scope", g.Scope).
		Info("permissions granted")
	if err := s.fetchPersonalData(ctx, g, false); err != nil {
		log.WithError(err).
			WithField("grant_id", g.ID).
			Warn("failed to fetch personal data")
	}
	return g, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.PermissionGrant, error) {
	// loads are shared between callers and outlive the first one's request
	lctx := context.WithoutCancel(ctx)
	return s.cache.Get(id.String(), func() (*models.PermissionGrant, error) {
		return s.get(lctx, id)
	})
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*models.PermissionGrant, error) {
	g, err := s.grants.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get grant")
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// Refresh fetches personal data again with the stored token pair, from the
// advanced endpoint if asked. It reads through to the store, so cached copies
// may lag until they expire.
func (s *Service) Refresh(ctx context.Context, id uuid.UUID, advanced bool) (*models.PermissionGrant, error) {
	g, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fetchPersonalData(ctx, g, advanced); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) fetchPersonalData(ctx context.Context, g *models.PermissionGrant, advanced bool) error {
	fetch := s.api.GetBasicPersonalData
	if advanced {
		fetch = s.api.GetAdvancedPersonalData
	}
	pd, err := fetch(ctx, g.AccessToken, g.TokenSecret)
	if err != nil {
		return err
	}
	applyPersonalData(g, pd.PersonalData)
	if err := s.grants.UpdatePersonalData(ctx, g); err != nil {
		return errors.Wrap(err, "failed to update grant")
	}
	return nil
}

func applyPersonalData(g *models.PermissionGrant, pd nvp.PersonalData) {
	g.PayerID = pd.Get(nvp.AttributePayerID)
	g.Email = pd.Get(nvp.AttributeEmail)
	g.FirstName = pd.Get(nvp.AttributeFirstName)
	g.LastName = pd.Get(nvp.AttributeLastName)
	g.FullName = pd.Get(nvp.AttributeFullName)
	g.Country = pd.Get(nvp.AttributeCountry)
}
