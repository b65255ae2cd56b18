package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/grvc/ambassadors/internal/services"
	"github.com/grvc/ambassadors/internal/session"
	"github.com/grvc/ambassadors/internal/store"
	"github.com/grvc/ambassadors/internal/wizard"
)

func testEvent(deadline time.Time) wizard.EventConfig {
	return wizard.EventConfig{
		EventName:       "Test congress",
		RegistrationFee: "KES 1,000",
		Deadline:        deadline,
		Churches: []wizard.Church{
			{ID: "nairobi", Name: "Nairobi Central SDA Church"},
			{ID: "kisumu", Name: "Kisumu Central SDA Church"},
		},
		Instructions:       []string{"Read this first."},
		IsRegistrationOpen: true,
	}
}

type testApp struct {
	srv      *httptest.Server
	client   *http.Client
	store    store.Store
	sessions *session.Manager
}

func newTestApp(t *testing.T, cfg wizard.EventConfig, sink wizard.Sink) *testApp {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if sink == nil {
		sink = services.NewRecorder(st, nil, cfg, zerolog.Nop())
	}
	sm := session.NewManager(func() *wizard.Wizard {
		return wizard.New(cfg, wizard.WithSink(sink))
	}, time.Hour)
	t.Cleanup(sm.Close)

	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "amb.jpeg"), []byte("jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(Router(Deps{
		Log:          zerolog.Nop(),
		Sessions:     sm,
		Store:        st,
		Event:        cfg,
		StaticDir:    static,
		LiveInterval: 20 * time.Millisecond,
	}))
	t.Cleanup(srv.Close)

	return &testApp{srv: srv, client: newClient(t), store: st, sessions: sm}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.srv.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

type stateJSON struct {
	Step       int  `json:"step"`
	IsClosed   bool `json:"isClosed"`
	CanAdvance bool `json:"canAdvance"`
	CanSubmit  bool `json:"canSubmit"`
	TimeLeft   struct {
		Days int `json:"days"`
	} `json:"timeLeft"`
	Form struct {
		Church   string `json:"church"`
		Attendee struct {
			Name string `json:"name"`
		} `json:"attendee"`
		PaymentMethod string `json:"paymentMethod"`
	} `json:"form"`
}

func (a *testApp) state(t *testing.T) stateJSON {
	t.Helper()
	_, body := a.get(t, "/wizard/state")
	var s stateJSON
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		t.Fatalf("decode state %q: %v", body, err)
	}
	return s
}

func TestRouterHealthz(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(48*time.Hour)), nil)
	resp, body := a.get(t, "/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}
}

var codeRE = regexp.MustCompile(`REG-[0-9A-F]{8}`)

func TestRouterFullRegistration(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(48*time.Hour)), nil)

	resp, body := a.get(t, "/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Step 1: Instructions") || !strings.Contains(body, "Read this first.") {
		t.Fatalf("home = %d\n%s", resp.StatusCode, body)
	}
	if s := a.state(t); s.Step != 1 || s.TimeLeft.Days < 1 || s.Form.PaymentMethod != "mpesa" {
		t.Fatalf("initial state = %+v", s)
	}

	a.post(t, "/wizard/next", nil)
	if s := a.state(t); s.Step != 2 {
		t.Fatalf("after start: step %d", s.Step)
	}

	// church gate: refused silently
	resp, _ = a.post(t, "/wizard/next", nil)
	if resp.StatusCode != http.StatusOK || a.state(t).Step != 2 {
		t.Fatalf("church gate let an empty church through")
	}

	a.post(t, "/wizard/next", url.Values{"church": {"nairobi"}})
	if s := a.state(t); s.Step != 3 || s.Form.Church != "nairobi" {
		t.Fatalf("after church: %+v", s)
	}

	a.post(t, "/wizard/next", url.Values{"name": {"Jane Doe"}, "title": {"Ms"}, "email": {"jane@example.com"}})
	if a.state(t).Step != 3 {
		t.Fatal("attendee gate let an incomplete attendee through")
	}
	a.post(t, "/wizard/next", url.Values{"phone": {"0712345678"}})
	_, body = a.get(t, "/")
	if !strings.Contains(body, "Step 4: Confirm Details") || !strings.Contains(body, "Ms Jane Doe") || !strings.Contains(body, "Nairobi Central SDA Church") {
		t.Fatalf("confirm page:\n%s", body)
	}

	a.post(t, "/wizard/prev", nil)
	if a.state(t).Step != 3 {
		t.Fatal("prev did not go back")
	}
	a.post(t, "/wizard/next", nil)
	a.post(t, "/wizard/next", nil)
	if a.state(t).Step != 5 {
		t.Fatal("did not reach billing")
	}

	// billing gate
	resp, _ = a.post(t, "/wizard/submit", nil)
	if resp.Request.URL.Path != "/" {
		t.Fatalf("submit without phone navigated to %s", resp.Request.URL.Path)
	}

	resp, body = a.post(t, "/wizard/submit", url.Values{"phoneNumber": {"0712 345 678"}})
	if resp.Request.URL.Path != wizard.ConfirmationPath {
		t.Fatalf("submit landed on %s", resp.Request.URL.Path)
	}
	code := codeRE.FindString(body)
	if code == "" || !strings.Contains(body, "Ms Jane Doe") || !strings.Contains(body, "M-Pesa") {
		t.Fatalf("confirmation page:\n%s", body)
	}

	reg, err := a.store.ByCode(context.Background(), code)
	if err != nil {
		t.Fatalf("ByCode(%s): %v", code, err)
	}
	if reg.ChurchID != "nairobi" || reg.MSISDN != "254712345678" {
		t.Errorf("stored %+v", reg)
	}

	resp, png := a.get(t, "/qr/"+code+".png")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" || !strings.HasPrefix(png, "\x89PNG") {
		t.Errorf("qr = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if resp, _ := a.get(t, "/qr/"+strings.ToLower(code)+".png"); resp.StatusCode != http.StatusOK {
		t.Errorf("lower-case qr code = %d", resp.StatusCode)
	}
	if resp, _ := a.get(t, "/qr/REG-00000000.png"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown qr code = %d", resp.StatusCode)
	}

	other := &testApp{srv: a.srv, client: newClient(t)}
	if _, body := other.get(t, "/confirmation?code="+code); !strings.Contains(body, code) || !strings.Contains(body, "Jane Doe") {
		t.Errorf("code lookup page:\n%s", body)
	}
	if _, body := other.get(t, "/confirmation?code=REG-00000000"); !strings.Contains(body, "Code not found.") {
		t.Errorf("missing code page:\n%s", body)
	}
	if resp, _ := other.get(t, "/confirmation"); resp.Request.URL.Path != "/" {
		t.Errorf("confirmation without receipt landed on %s", resp.Request.URL.Path)
	}

	// a completed session starts over on the next visit
	if s := a.state(t); s.Step != 1 || s.Form.Church != "" {
		t.Errorf("state after completion = %+v", s)
	}
}

func TestRouterFieldJSON(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(48*time.Hour)), nil)
	a.post(t, "/wizard/next", nil)

	req, _ := http.NewRequest(http.MethodPost, a.srv.URL+"/wizard/field",
		strings.NewReader(url.Values{"field": {"church"}, "value": {"kisumu"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var s stateJSON
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Step != 2 || s.Form.Church != "kisumu" || !s.CanAdvance {
		t.Errorf("state = %+v", s)
	}

	// unknown fields and card payments (disabled) are ignored
	a.post(t, "/wizard/field", url.Values{"field": {"paymentMethod"}, "value": {"card"}})
	a.post(t, "/wizard/field", url.Values{"field": {"bogus"}, "value": {"x"}})
	if s := a.state(t); s.Form.PaymentMethod != "mpesa" {
		t.Errorf("paymentMethod = %q", s.Form.PaymentMethod)
	}
}

type failingSink struct{}

func (failingSink) Record(context.Context, wizard.Submission) (wizard.Receipt, error) {
	return wizard.Receipt{}, errors.New("database is locked")
}

func TestRouterSubmitFailure(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(48*time.Hour)), failingSink{})
	a.post(t, "/wizard/next", nil)
	a.post(t, "/wizard/next", url.Values{"church": {"nairobi"}})
	a.post(t, "/wizard/next", url.Values{"name": {"Jane"}, "title": {"Ms"}, "email": {"j@x.io"}, "phone": {"0712345678"}})
	a.post(t, "/wizard/next", nil)

	resp, body := a.post(t, "/wizard/submit", url.Values{"phoneNumber": {"0712345678"}})
	if resp.Request.URL.Path != "/" || !strings.Contains(body, "Registration could not be saved. Please try again.") {
		t.Fatalf("landed on %s\n%s", resp.Request.URL.Path, body)
	}
	if s := a.state(t); s.Step != 5 || s.Form.Attendee.Name != "Jane" || !s.CanSubmit {
		t.Errorf("state after failed submit = %+v", s)
	}
}

func TestRouterClosed(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(-time.Hour)), nil)

	_, body := a.get(t, "/")
	if !strings.Contains(body, "Registration is closed.") || !strings.Contains(body, "0 days, 0 hrs, 0 mins, 0s") {
		t.Fatalf("closed page:\n%s", body)
	}
	a.post(t, "/wizard/next", nil)
	if s := a.state(t); s.Step != 1 || !s.IsClosed {
		t.Errorf("closed state = %+v", s)
	}

	conn := dialLive(t, a)
	var f struct {
		IsClosed bool `json:"isClosed"`
		Step     int  `json:"step"`
	}
	if err := wsjson.Read(context.Background(), conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !f.IsClosed || f.Step != 1 {
		t.Errorf("frame = %+v", f)
	}
	_, _, err := conn.Read(context.Background())
	if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Errorf("expected normal closure, got %v", err)
	}
}

func TestRouterLiveCountdown(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(48*time.Hour)), nil)
	a.get(t, "/")

	conn := dialLive(t, a)
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		var f struct {
			TimeLeft struct {
				Days int `json:"days"`
			} `json:"timeLeft"`
			Countdown string `json:"countdown"`
			IsClosed  bool   `json:"isClosed"`
		}
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if f.IsClosed || f.TimeLeft.Days < 1 || !strings.Contains(f.Countdown, "days") {
			t.Errorf("frame %d = %+v", i, f)
		}
	}
}

func TestRouterLiveWithoutSession(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(48*time.Hour)), nil)
	resp, _ := a.get(t, "/wizard/live")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestRouterLiveEndsWithSession(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(48*time.Hour)), nil)
	a.get(t, "/")

	conn := dialLive(t, a)
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var f struct {
		IsClosed bool `json:"isClosed"`
	}
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}

	a.post(t, "/wizard/restart", nil)
	for {
		err := wsjson.Read(ctx, conn, &f)
		if err == nil {
			continue
		}
		if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
			t.Fatalf("expected normal closure after restart, got %v", err)
		}
		return
	}
}

func TestRouterStateCreatesNoSession(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(48*time.Hour)), nil)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(a.srv.URL + "/wizard/state")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || len(resp.Cookies()) != 0 {
			t.Fatalf("state = %d, cookies %v", resp.StatusCode, resp.Cookies())
		}
	}
	if s := a.state(t); s.Step != 1 || s.TimeLeft.Days < 1 || s.IsClosed {
		t.Errorf("cookieless state = %+v", s)
	}
	if n := a.sessions.Len(); n != 0 {
		t.Errorf("sessions = %d, want 0", n)
	}
}

func TestRouterDoubleSubmit(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(48*time.Hour)), nil)
	a.post(t, "/wizard/next", nil)
	a.post(t, "/wizard/next", url.Values{"church": {"nairobi"}})
	a.post(t, "/wizard/next", url.Values{"name": {"Jane"}, "title": {"Ms"}, "email": {"j@x.io"}, "phone": {"0712345678"}})
	a.post(t, "/wizard/next", nil)

	form := url.Values{"phoneNumber": {"0712345678"}}
	_, first := a.post(t, "/wizard/submit", form)
	resp, second := a.post(t, "/wizard/submit", form)
	if resp.Request.URL.Path != wizard.ConfirmationPath {
		t.Fatalf("second submit landed on %s", resp.Request.URL.Path)
	}
	code := codeRE.FindString(first)
	if code == "" || codeRE.FindString(second) != code {
		t.Errorf("codes %q and %q", code, codeRE.FindString(second))
	}
}

func dialLive(t *testing.T, a *testApp) *websocket.Conn {
	t.Helper()
	u, _ := url.Parse(a.srv.URL)
	header := http.Header{}
	for _, c := range a.client.Jar.Cookies(u) {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(a.srv.URL, "http")+"/wizard/live",
		&websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestRouterRestartAndStatic(t *testing.T) {
	a := newTestApp(t, testEvent(time.Now().Add(48*time.Hour)), nil)
	a.post(t, "/wizard/next", url.Values{})
	a.post(t, "/wizard/next", url.Values{"church": {"nairobi"}})
	if a.state(t).Step != 3 {
		t.Fatal("setup failed")
	}

	_, body := a.post(t, "/wizard/restart", nil)
	if !strings.Contains(body, "Started a new registration.") {
		t.Errorf("restart page:\n%s", body)
	}
	if s := a.state(t); s.Step != 1 || s.Form.Church != "" {
		t.Errorf("state after restart = %+v", s)
	}

	resp, body := a.get(t, "/static/amb.jpeg")
	if resp.StatusCode != http.StatusOK || body != "jpeg" {
		t.Errorf("static = %d %q", resp.StatusCode, body)
	}
}
