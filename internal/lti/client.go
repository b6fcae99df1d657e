// Package lti implements the LTI 1.1 Basic Outcomes grade passback used to
// write quiz results into an LMS gradebook.
package lti

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotConfigured is returned when no consumer credentials are set.
var ErrNotConfigured = errors.New("lti consumer credentials not configured")

// Launch holds the outcome parameters captured from an LTI launch. They are
// required later to write the user's grade back.
type Launch struct {
	OutcomeURL string
	SourcedID  string
}

// Client signs and sends replaceResult requests to the LMS outcome service.
// Launches are kept in memory for the lifetime of the process, matching the
// session lifecycle.
type Client struct {
	consumerKey    string
	consumerSecret string
	http           *http.Client
	log            *logrus.Logger

	mu       sync.RWMutex
	launches map[string]Launch // user id -> launch

	now   func() time.Time
	nonce func() string
}

// NewClient creates an outcomes client. Returns nil when credentials are
// missing so callers can treat passback as disabled.
func NewClient(consumerKey, consumerSecret string, log *logrus.Logger) *Client {
	if consumerKey == "" || consumerSecret == "" {
		return nil
	}
	return &Client{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		http:           &http.Client{Timeout: 15 * time.Second},
		log:            log,
		launches:       make(map[string]Launch),
		now:            time.Now,
		nonce:          randomNonce,
	}
}

// ConsumerKey returns the configured consumer key.
func (c *Client) ConsumerKey() string { return c.consumerKey }

// VerifyLaunch checks the OAuth 1.0 signature of an LTI launch request.
// The form must already be parsed. The comparison is constant-time.
func (c *Client) VerifyLaunch(r *http.Request) bool {
	if r.PostFormValue("oauth_consumer_key") != c.consumerKey {
		return false
	}
	provided := r.PostFormValue("oauth_signature")
	if provided == "" {
		return false
	}

	params := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if k == "oauth_signature" || len(vs) == 0 {
			continue
		}
		params[k] = vs[0]
	}

	expected := c.sign(r.Method, launchURL(r), params)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// launchURL reconstructs the URL the LMS signed against. Behind a proxy the
// forwarded proto header wins over the local connection's scheme.
func launchURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.Path
}

// RegisterLaunch stores a user's outcome parameters from an LTI launch.
func (c *Client) RegisterLaunch(userID string, launch Launch) {
	if launch.OutcomeURL == "" || launch.SourcedID == "" {
		return
	}
	c.mu.Lock()
	c.launches[userID] = launch
	c.mu.Unlock()
	c.log.WithField("user_id", userID).Info("lti launch registered")
}

// SendGrade writes the percentage into the gradebook of the user's launch.
// Users without a registered launch are skipped silently; they did not come
// from an LMS.
func (c *Client) SendGrade(ctx context.Context, userID string, percentage float64) error {
	c.mu.RLock()
	launch, ok := c.launches[userID]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	score := percentage / 100
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return c.replaceResult(ctx, launch, score)
}

func (c *Client) replaceResult(ctx context.Context, launch Launch, score float64) error {
	messageID := fmt.Sprintf("oppatalent_%d", c.now().UnixNano())
	body := buildReplaceResultXML(messageID, launch.SourcedID, score)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, launch.OutcomeURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("lti request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Authorization", c.authorizationHeader(launch.OutcomeURL, body))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lti post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lti post: outcome service returned %s", resp.Status)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("lti response: %w", err)
	}
	if code := parseCodeMajor(respBody); code != "success" {
		return fmt.Errorf("lti response: codeMajor %q", code)
	}
	return nil
}

// authorizationHeader builds the OAuth 1.0 header for a signed-body POST.
// The body participates via oauth_body_hash as LTI 1.1 requires.
func (c *Client) authorizationHeader(rawURL, body string) string {
	bodyHash := sha1.Sum([]byte(body))
	params := map[string]string{
		"oauth_consumer_key":     c.consumerKey,
		"oauth_nonce":            c.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", c.now().Unix()),
		"oauth_version":          "1.0",
		"oauth_body_hash":        base64.StdEncoding.EncodeToString(bodyHash[:]),
	}
	params["oauth_signature"] = c.sign(http.MethodPost, rawURL, params)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("OAuth ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, `%s="%s"`, k, percentEncode(params[k]))
	}
	return b.String()
}

func (c *Client) sign(method, rawURL string, params map[string]string) string {
	baseURL, query := splitURL(rawURL)

	pairs := make([]string, 0, len(params)+4)
	for k, v := range params {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(v))
	}
	for k, vs := range query {
		for _, v := range vs {
			pairs = append(pairs, percentEncode(k)+"="+percentEncode(v))
		}
	}
	sort.Strings(pairs)

	base := strings.Join([]string{
		method,
		percentEncode(baseURL),
		percentEncode(strings.Join(pairs, "&")),
	}, "&")

	key := percentEncode(c.consumerSecret) + "&" // no token secret in LTI 1.1
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func splitURL(rawURL string) (string, url.Values) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, nil
	}
	query := u.Query()
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), query
}

// percentEncode applies the stricter RFC 3986 encoding OAuth requires.
func percentEncode(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func buildReplaceResultXML(messageID, sourcedID string, score float64) string {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, `<imsx_POXEnvelopeRequest xmlns="http://www.imsglobal.org/services/ltiv1p1/xsd/imsoms_v1p0">
  <imsx_POXHeader>
    <imsx_POXRequestHeaderInfo>
      <imsx_version>V1.0</imsx_version>
      <imsx_messageIdentifier>%s</imsx_messageIdentifier>
    </imsx_POXRequestHeaderInfo>
  </imsx_POXHeader>
  <imsx_POXBody>
    <replaceResultRequest>
      <resultRecord>
        <sourcedGUID>
          <sourcedId>%s</sourcedId>
        </sourcedGUID>
        <result>
          <resultScore>
            <language>en</language>
            <textString>%.4f</textString>
          </resultScore>
        </result>
      </resultRecord>
    </replaceResultRequest>
  </imsx_POXBody>
</imsx_POXEnvelopeRequest>`, escapeXML(messageID), escapeXML(sourcedID), score)
	return buf.String()
}

func escapeXML(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func parseCodeMajor(body []byte) string {
	type response struct {
		CodeMajor string `xml:"imsx_POXHeader>imsx_POXResponseHeaderInfo>imsx_statusInfo>imsx_codeMajor"`
	}
	var r response
	if err := xml.Unmarshal(body, &r); err != nil {
		return ""
	}
	return r.CodeMajor
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
