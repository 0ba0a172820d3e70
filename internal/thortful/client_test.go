package thortful

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(ClientOpts{
		APIKey:      "key-123",
		APISecret:   "secret-456",
		AuthBaseURL: srv.URL,
		SwapURL:     srv.URL + "/v1/faceswap?variation=true",
		CDNBaseURL:  srv.URL,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestDefaultSwapURL_UsesWWWHost(t *testing.T) {
	// The api. host accepts swap requests but never completes them; the
	// www host is the one that renders. Pin the default so nobody swaps
	// them back.
	want := "https://www.thortful.com/api/v1/faceswap?variation=true"
	if DefaultSwapURL != want {
		t.Errorf("DefaultSwapURL = %q, want %q", DefaultSwapURL, want)
	}

	c, err := New(ClientOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if c.swapURL != want {
		t.Errorf("swapURL default = %q, want %q", c.swapURL, want)
	}
}

func TestAuthenticate_RequiresCredentials(t *testing.T) {
	c, err := New(ClientOpts{})
	if err != nil {
		t.Fatalf("new client without credentials: %v", err)
	}
	_, err = c.Authenticate(context.Background(), LoginOpts{Email: "a@b.c", Password: "pw"})
	if err == nil {
		t.Fatal("expected error authenticating without API credentials")
	}
}

func TestAuthenticate_TwoStep(t *testing.T) {
	var enquireHit, loginHit bool

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/enquire":
			enquireHit = true
			if r.Header.Get("API_KEY") != "key-123" {
				t.Errorf("enquire API_KEY = %q", r.Header.Get("API_KEY"))
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"anonymous_token":"anon-token-xyz"}`)
		case "/auth/thortful/login":
			loginHit = true
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			if r.PostForm.Get("anonymous_token") != "anon-token-xyz" {
				t.Errorf("anonymous_token = %q", r.PostForm.Get("anonymous_token"))
			}
			if r.PostForm.Get("address") != "tester@example.com" {
				t.Errorf("address = %q", r.PostForm.Get("address"))
			}
			if r.PostForm.Get("device_id") == "" {
				t.Error("device_id should default when unset")
			}
			fmt.Fprint(w, `{"token":"user-token-abc","profile_id":"66aa45f0a15a6b1394759d25"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	h, err := c.Authenticate(context.Background(), LoginOpts{
		Email:    "tester@example.com",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !enquireHit || !loginHit {
		t.Fatalf("enquire=%v login=%v, want both", enquireHit, loginHit)
	}
	if h.UserToken != "user-token-abc" {
		t.Errorf("UserToken = %q", h.UserToken)
	}
	if h.CustomerID != "66aa45f0a15a6b1394759d25" {
		t.Errorf("CustomerID = %q", h.CustomerID)
	}
	if h.SavedAt.IsZero() {
		t.Error("SavedAt should be set")
	}
}

func TestAuthenticate_AlternateTokenKeys(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/enquire":
			fmt.Fprint(w, `{"token":"anon-from-token-key"}`)
		case "/auth/thortful/login":
			fmt.Fprint(w, `{"access_token":"tok-2","user_id":"uid-9"}`)
		}
	}))

	h, err := c.Authenticate(context.Background(), LoginOpts{Email: "a@b.c", Password: "p"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if h.UserToken != "tok-2" {
		t.Errorf("UserToken = %q, want tok-2", h.UserToken)
	}
	if h.CustomerID != "uid-9" {
		t.Errorf("CustomerID = %q, want uid-9", h.CustomerID)
	}
}

func TestAuthenticate_NoToken(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/enquire":
			fmt.Fprint(w, `{"anonymous_token":"anon"}`)
		case "/auth/thortful/login":
			fmt.Fprint(w, `{"status":"ok"}`)
		}
	}))

	if _, err := c.Authenticate(context.Background(), LoginOpts{Email: "a@b.c", Password: "p"}); err == nil {
		t.Fatal("expected error when login response has no token")
	}
}

func TestSwap_InlineImage(t *testing.T) {
	imgB64 := base64.StdEncoding.EncodeToString([]byte("card-jpeg"))
	var gotPayload map[string]string

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("user_token") != "tok" {
			t.Errorf("user_token = %q", r.Header.Get("user_token"))
		}
		if r.Header.Get("x-thortful-customer-id") != "cust-1" {
			t.Errorf("customer id = %q", r.Header.Get("x-thortful-customer-id"))
		}
		json.NewDecoder(r.Body).Decode(&gotPayload)
		fmt.Fprintf(w, `{"image":%q,"generation_time":"12.5"}`, imgB64)
	}))

	auth := &AuthHeaders{APIKey: "key-123", APISecret: "secret-456", UserToken: "tok", CustomerID: "cust-1"}
	res, err := c.Swap(context.Background(), auth, "c291cmNl", "67816ae75990fc276575cd07")
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	// Both id spellings ride along for endpoint compatibility.
	if gotPayload["targetCardId"] != "67816ae75990fc276575cd07" {
		t.Errorf("targetCardId = %q", gotPayload["targetCardId"])
	}
	if gotPayload["target_card_id"] != "67816ae75990fc276575cd07" {
		t.Errorf("target_card_id = %q", gotPayload["target_card_id"])
	}
	if string(res.Image) != "card-jpeg" {
		t.Errorf("image = %q", res.Image)
	}
	if res.GenerationTime != "12.5" {
		t.Errorf("GenerationTime = %q", res.GenerationTime)
	}
}

func TestSwap_ResultURL(t *testing.T) {
	var srvURL string
	c, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/result.jpg":
			w.Write([]byte("fetched-jpeg"))
		default:
			fmt.Fprintf(w, `{"result_url":%q}`, srvURL+"/result.jpg")
		}
	}))
	srvURL = srv.URL

	auth := &AuthHeaders{APIKey: "k", APISecret: "s", UserToken: "t"}
	res, err := c.Swap(context.Background(), auth, "src", "card-id")
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if string(res.Image) != "fetched-jpeg" {
		t.Errorf("image = %q", res.Image)
	}
}

func TestSwap_NoImageData(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"queued"}`)
	}))

	auth := &AuthHeaders{APIKey: "k", APISecret: "s", UserToken: "t"}
	if _, err := c.Swap(context.Background(), auth, "src", "card-id"); err == nil {
		t.Fatal("expected error when response has no image")
	}
}

func TestSwap_HTTPError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "expired token")
	}))

	auth := &AuthHeaders{APIKey: "k", APISecret: "s", UserToken: "t"}
	_, err := c.Swap(context.Background(), auth, "src", "card-id")
	if err == nil {
		t.Fatal("expected error for 403")
	}
}
