package lti

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

const successResponse = `<?xml version="1.0" encoding="UTF-8"?>
<imsx_POXEnvelopeResponse xmlns="http://www.imsglobal.org/services/ltiv1p1/xsd/imsoms_v1p0">
  <imsx_POXHeader>
    <imsx_POXResponseHeaderInfo>
      <imsx_statusInfo>
        <imsx_codeMajor>success</imsx_codeMajor>
      </imsx_statusInfo>
    </imsx_POXResponseHeaderInfo>
  </imsx_POXHeader>
  <imsx_POXBody/>
</imsx_POXEnvelopeResponse>`

func newTestClient(t *testing.T) *Client {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := NewClient("key", "secret", log)
	if c == nil {
		t.Fatal("client must be constructable with credentials")
	}
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	c.nonce = func() string { return "fixednonce" }
	return c
}

func TestNewClientWithoutCredentials(t *testing.T) {
	if c := NewClient("", "", logrus.New()); c != nil {
		t.Error("missing credentials must yield a nil client")
	}
}

func TestSendGradeWithoutLaunchIsNoop(t *testing.T) {
	c := newTestClient(t)
	if err := c.SendGrade(context.Background(), "unknown", 80); err != nil {
		t.Errorf("SendGrade without launch = %v, want nil", err)
	}
}

func TestSendGradeReplaceResult(t *testing.T) {
	var gotBody string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(successResponse))
	}))
	defer server.Close()

	c := newTestClient(t)
	c.RegisterLaunch("user-1", Launch{OutcomeURL: server.URL + "/grade", SourcedID: "abc:123"})

	if err := c.SendGrade(context.Background(), "user-1", 85); err != nil {
		t.Fatalf("SendGrade: %v", err)
	}

	if !strings.Contains(gotBody, "<sourcedId>abc:123</sourcedId>") {
		t.Errorf("body missing sourcedId:\n%s", gotBody)
	}
	if !strings.Contains(gotBody, "<textString>0.8500</textString>") {
		t.Errorf("body missing clamped score:\n%s", gotBody)
	}
	for _, part := range []string{
		`oauth_consumer_key="key"`,
		`oauth_signature_method="HMAC-SHA1"`,
		"oauth_body_hash=",
		"oauth_signature=",
	} {
		if !strings.Contains(gotAuth, part) {
			t.Errorf("authorization header missing %s: %s", part, gotAuth)
		}
	}
}

func TestSendGradeClampsScore(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(successResponse))
	}))
	defer server.Close()

	c := newTestClient(t)
	c.RegisterLaunch("user-1", Launch{OutcomeURL: server.URL, SourcedID: "s"})

	if err := c.SendGrade(context.Background(), "user-1", 140); err != nil {
		t.Fatalf("SendGrade: %v", err)
	}
	if !strings.Contains(gotBody, "<textString>1.0000</textString>") {
		t.Errorf("score not clamped to 1:\n%s", gotBody)
	}
}

func TestSendGradeFailureCodeMajor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Replace(successResponse, "success", "failure", 1)))
	}))
	defer server.Close()

	c := newTestClient(t)
	c.RegisterLaunch("user-1", Launch{OutcomeURL: server.URL, SourcedID: "s"})

	if err := c.SendGrade(context.Background(), "user-1", 50); err == nil {
		t.Fatal("failure codeMajor must surface as an error")
	}
}

func TestRegisterLaunchIgnoresIncomplete(t *testing.T) {
	c := newTestClient(t)
	c.RegisterLaunch("user-1", Launch{OutcomeURL: "", SourcedID: "s"})
	if err := c.SendGrade(context.Background(), "user-1", 50); err != nil {
		t.Errorf("incomplete launch must not be registered: %v", err)
	}
}

func signedLaunchForm(c *Client, target string, form url.Values) url.Values {
	params := make(map[string]string, len(form))
	for k, vs := range form {
		params[k] = vs[0]
	}
	form.Set("oauth_signature", c.sign(http.MethodPost, target, params))
	return form
}

func launchRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.ParseForm()
	return req
}

func TestVerifyLaunch(t *testing.T) {
	c := newTestClient(t)
	target := "http://lms.example.edu/api/lti/launch"
	baseForm := func() url.Values {
		return url.Values{
			"oauth_consumer_key":      {"key"},
			"oauth_nonce":             {"fixednonce"},
			"oauth_signature_method":  {"HMAC-SHA1"},
			"oauth_timestamp":         {"1700000000"},
			"oauth_version":           {"1.0"},
			"user_id":                 {"user-1"},
			"lis_outcome_service_url": {"https://lms.example.edu/outcomes"},
			"lis_result_sourcedid":    {"abc:123"},
		}
	}

	t.Run("valid signature", func(t *testing.T) {
		form := signedLaunchForm(c, target, baseForm())
		if !c.VerifyLaunch(launchRequest(target, form)) {
			t.Error("correctly signed launch rejected")
		}
	})

	t.Run("tampered parameter", func(t *testing.T) {
		form := signedLaunchForm(c, target, baseForm())
		form.Set("lis_result_sourcedid", "attacker:999")
		if c.VerifyLaunch(launchRequest(target, form)) {
			t.Error("tampered launch accepted")
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		if c.VerifyLaunch(launchRequest(target, baseForm())) {
			t.Error("unsigned launch accepted")
		}
	})

	t.Run("wrong consumer key", func(t *testing.T) {
		form := baseForm()
		form.Set("oauth_consumer_key", "other")
		other := NewClient("other", "othersecret", logrus.New())
		form = signedLaunchForm(other, target, form)
		if c.VerifyLaunch(launchRequest(target, form)) {
			t.Error("launch signed with foreign credentials accepted")
		}
	})

	t.Run("wrong url", func(t *testing.T) {
		form := signedLaunchForm(c, "http://evil.example.com/api/lti/launch", baseForm())
		if c.VerifyLaunch(launchRequest(target, form)) {
			t.Error("launch signed for a different url accepted")
		}
	})
}

func TestSignatureIsDeterministic(t *testing.T) {
	c := newTestClient(t)
	params := map[string]string{
		"oauth_consumer_key":     "key",
		"oauth_nonce":            "fixednonce",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1700000000",
		"oauth_version":          "1.0",
	}
	first := c.sign(http.MethodPost, "https://lms.example.edu/outcomes?x=1", params)
	second := c.sign(http.MethodPost, "https://lms.example.edu/outcomes?x=1", params)
	if first != second || first == "" {
		t.Errorf("signature not deterministic: %q vs %q", first, second)
	}
}
