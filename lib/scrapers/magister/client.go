package magister

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"magister-backend/lib/restyutil"
	"magister-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/magister")

// DefaultAuthCode is the placeholder challenge code used when the
// account bundle does not carry an encoded one. Some school
// deployments accept it as-is.
const DefaultAuthCode = "00000000000000000000000000000000"

const csrfCookieName = "XSRF-TOKEN"

type Client struct {
	// the school's API host, e.g. "myschool.magister.net"
	SchoolServer string
	// the shared identity provider host
	AccountsServer string

	http        *resty.Client
	jar         *cookiejar.Jar
	authCode    string
	csrfToken   string
	accessToken string
}

type ClientOptions struct {
	SchoolServer   string
	AccountsServer string
	// fallback challenge code, DefaultAuthCode when empty
	AuthCode string
	// protocol dump destination for debugging, nil disables dumps
	InstrumentOutput restyutil.InstrumentOutput
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.SchoolServer == "" {
		return nil, fmt.Errorf("school server is required")
	}
	if opts.AccountsServer == "" {
		opts.AccountsServer = "accounts.magister.net"
	}
	if opts.AuthCode == "" {
		opts.AuthCode = DefaultAuthCode
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(time.Second * 30)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")

	telemetry.InstrumentResty(client, "scrapers/magister/http")
	restyutil.InstrumentClient(client, opts.InstrumentOutput)

	c := &Client{
		SchoolServer:   opts.SchoolServer,
		AccountsServer: opts.AccountsServer,
		http:           client,
		jar:            jar,
		authCode:       opts.AuthCode,
	}
	client.OnBeforeRequest(c.attachSessionHeaders)
	return c, nil
}

// attachSessionHeaders injects the CSRF and bearer headers once they
// are known. Both accumulate over the lifetime of one login+scrape run.
func (c *Client) attachSessionHeaders(_ *resty.Client, req *resty.Request) error {
	if c.csrfToken != "" {
		req.Header.Set("X-XSRF-TOKEN", c.csrfToken)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	return nil
}

func (c *Client) AccessToken() string {
	return c.accessToken
}

// SetAccessToken installs a previously cached bearer token, skipping
// the login sequence.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// Request fetches `link`, issuing a POST when a body is present. A
// body starting with '{' or '[' is sent as JSON. Error statuses do
// not produce an error: the body is returned for the caller to
// inspect, matching how the portal reports most failures.
func (c *Client) Request(ctx context.Context, link string, body []byte) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if body == nil {
		return req.Get(link)
	}
	if len(body) > 0 && (body[0] == '{' || body[0] == '[') {
		req.SetHeader("Content-Type", "application/json")
	}
	return req.SetBody(body).Post(link)
}

// RequestWithFinalURL additionally reports the URL landed on after
// following the redirect chain. The login sequence needs this twice:
// once to capture the CSRF-cookie-setting redirect and once for the
// post-login callback whose fragment carries the token.
func (c *Client) RequestWithFinalURL(ctx context.Context, link string, body []byte) (*url.URL, *resty.Response, error) {
	res, err := c.Request(ctx, link, body)
	if err != nil {
		return nil, nil, err
	}
	final := res.RawResponse.Request.URL
	return final, res, nil
}

// requestJSON fetches `link` and decodes the response into `out`.
// Malformed JSON on an otherwise healthy endpoint is fatal unless the
// body carries a known needs-reauthentication signature.
func (c *Client) requestJSON(ctx context.Context, link string, body []byte, out any) error {
	res, err := c.Request(ctx, link, body)
	if err != nil {
		return err
	}
	err = json.Unmarshal(res.Body(), out)
	if err != nil {
		text := string(res.Body())
		for _, phrase := range authRequiredPhrases {
			if strings.Contains(text, phrase) {
				return &AuthRequiredError{Reason: phrase}
			}
		}
		return fmt.Errorf("decoding response of %s: %w", link, err)
	}
	return nil
}

// csrfFromJar finds the CSRF token cookie the identity provider sets
// during the authorize redirect chain.
func (c *Client) csrfFromJar() string {
	u := &url.URL{Scheme: "https", Host: c.AccountsServer, Path: "/"}
	for _, cookie := range c.jar.Cookies(u) {
		if cookie.Name == csrfCookieName {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) accountsURL(path string) string {
	return fmt.Sprintf("https://%s%s", c.AccountsServer, path)
}

// apiGet performs an authenticated GET against the school's API,
// joining `parts` into the path, with an optional query string.
func (c *Client) apiGet(ctx context.Context, out any, query url.Values, parts ...any) error {
	segments := make([]string, len(parts))
	for i, p := range parts {
		segments[i] = fmt.Sprint(p)
	}
	link := fmt.Sprintf("https://%s/api/%s", c.SchoolServer, strings.Join(segments, "/"))
	if len(query) > 0 {
		link += "?" + query.Encode()
	}
	return c.requestJSON(ctx, link, nil, out)
}
