package permissions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"github.com/webtor-io/paypal-permissions/services/nvp"
	"github.com/webtor-io/paypal-permissions/services/signature"
)

const (
	loginFlag       = "paypal-login"
	passwordFlag    = "paypal-password"
	signatureFlag   = "paypal-signature"
	appIDFlag       = "paypal-app-id"
	environmentFlag = "paypal-environment"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   loginFlag,
			Usage:  "paypal api username",
			EnvVar: "PAYPAL_LOGIN",
		},
		cli.StringFlag{
			Name:   passwordFlag,
			Usage:  "paypal api password",
			EnvVar: "PAYPAL_PASSWORD",
		},
		cli.StringFlag{
			Name:   signatureFlag,
			Usage:  "paypal api signature",
			EnvVar: "PAYPAL_SIGNATURE",
		},
		cli.StringFlag{
			Name:   appIDFlag,
			Usage:  "paypal application id",
			EnvVar: "PAYPAL_APP_ID",
			Value:  "APP-80W284485P519543T",
		},
		cli.StringFlag{
			Name:   environmentFlag,
			Usage:  "paypal environment (sandbox or production)",
			EnvVar: "PAYPAL_ENVIRONMENT",
			Value:  Sandbox.String(),
		},
	)
}

// Credentials are the API caller credentials sent with every request.
type Credentials struct {
	Login     string
	Password  string
	Signature string
	AppID     string
}

// Api is a client of the PayPal Permissions service speaking NVP.
type Api struct {
	cl        *http.Client
	creds     Credentials
	endpoints Endpoints
	signer    *signature.Signer
}

// New returns nil if no login is configured.
func New(c *cli.Context, cl *http.Client) (*Api, error) {
	login := c.String(loginFlag)
	if login == "" {
		return nil, nil
	}
	env, err := ParseEnvironment(c.String(environmentFlag))
	if err != nil {
		return nil, err
	}
	log.WithField("environment", env).Info("paypal permissions api configured")
	return NewApi(cl, Credentials{
		Login:     login,
		Password:  c.String(passwordFlag),
		Signature: c.String(signatureFlag),
		AppID:     c.String(appIDFlag),
	}, EndpointsFor(env)), nil
}

func NewApi(cl *http.Client, creds Credentials, endpoints Endpoints) *Api {
	return &Api{
		cl:        cl,
		creds:     creds,
		endpoints: endpoints,
		signer:    signature.New(creds.Login, creds.Password),
	}
}

func (s *Api) Signer() *signature.Signer {
	return s.signer
}

func (s *Api) Endpoints() Endpoints {
	return s.endpoints
}

// RedirectURL is where the user grants the requested permissions.
func (s *Api) RedirectURL(requestToken string) string {
	return fmt.Sprintf(s.endpoints.RedirectUser, requestToken)
}

func (s *Api) RequestPermissions(ctx context.Context, callback string, scope any) (*nvp.Response, error) {
	q := nvp.EncodeRequestPermissions(callback, scope)
	body, err := s.get(ctx, s.endpoints.RequestPermissions, q)
	if err != nil {
		return nil, errors.Wrap(err, "failed to request permissions")
	}
	return s.check(nvp.DecodeRequestPermissions(body), "request permissions")
}

func (s *Api) GetAccessToken(ctx context.Context, requestToken, verifier string) (*nvp.Response, error) {
	q := nvp.EncodeGetAccessToken(requestToken, verifier)
	body, err := s.get(ctx, s.endpoints.GetAccessToken, q)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get access token")
	}
	return s.check(nvp.DecodeGetAccessToken(body), "get access token")
}

func (s *Api) GetBasicPersonalData(ctx context.Context, accessToken, tokenSecret string) (*nvp.Response, error) {
	return s.personalData(ctx, s.endpoints.GetBasicPersonalData, accessToken, tokenSecret)
}

func (s *Api) GetAdvancedPersonalData(ctx context.Context, accessToken, tokenSecret string) (*nvp.Response, error) {
	return s.personalData(ctx, s.endpoints.GetAdvancedPersonalData, accessToken, tokenSecret)
}

func (s *Api) personalData(ctx context.Context, u, accessToken, tokenSecret string) (*nvp.Response, error) {
	h := map[string]string{
		signature.HeaderName: s.signer.AuthorizationHeader(u, accessToken, tokenSecret),
	}
	body, err := s.post(ctx, u, nvp.EncodePersonalData(), h)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get personal data")
	}
	return s.check(nvp.DecodePersonalData(body), "get personal data")
}

func (s *Api) check(r *nvp.Response, op string) (*nvp.Response, error) {
	if err := r.Err(); err != nil {
		log.WithError(err).
			WithField("correlation_id", r.CorrelationID).
			WithField("ack", r.Ack).
			Warnf("failed to %v", op)
		return nil, errors.Wrapf(err, "failed to %v", op)
	}
	return r, nil
}

func (s *Api) get(ctx context.Context, u string, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u+"?"+query, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	return s.doRequest(req, nil)
}

func (s *Api) post(ctx context.Context, u string, body string, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", u, strings.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.doRequest(req, headers)
}

func (s *Api) doRequest(req *http.Request, headers map[string]string) (string, error) {
	req.Header.Set("X-PAYPAL-SECURITY-USERID", s.creds.Login)
	req.Header.Set("X-PAYPAL-SECURITY-PASSWORD", s.creds.Password)
	req.Header.Set("X-PAYPAL-SECURITY-SIGNATURE", s.creds.Signature)
	req.Header.Set("X-PAYPAL-APPLICATION-ID", s.creds.AppID)
	req.Header.Set("X-PAYPAL-REQUEST-DATA-FORMAT", "NV")
	req.Header.Set("X-PAYPAL-RESPONSE-DATA-FORMAT", "NV")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.cl.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to execute request")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("unexpected status code %d", resp.StatusCode)
	}

	return string(body), nil
}
