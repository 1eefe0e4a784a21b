package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// client carries session cookies across requests like a browser would.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, handler: h, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) signIn(user string) {
	c.t.Helper()
	if w := c.do(http.MethodPost, "/session", map[string]string{"user_id": user}); w.Code != http.StatusOK {
		c.t.Fatalf("sign in: status %d body %s", w.Code, w.Body.String())
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func areaBody() map[string]any {
	return map[string]any{"latitude": 40.4, "longitude": -3.7, "radius_km": 10}
}

func TestSession_SignIn(t *testing.T) {
	tests := []struct {
		name string
		body any
		want int
	}{
		{"valid", map[string]string{"user_id": "alice_01"}, http.StatusOK},
		{"empty", map[string]string{"user_id": ""}, http.StatusUnprocessableEntity},
		{"bad characters", map[string]string{"user_id": "alice/bob"}, http.StatusBadRequest},
		{"too long", map[string]string{"user_id": strings.Repeat("a", 129)}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			w := newClient(t, env.router).do(http.MethodPost, "/session", tt.body)
			expectStatus(t, w, tt.want)
		})
	}
}

func TestProtectedRoutes_RequireSession(t *testing.T) {
	env := newTestEnv()
	c := newClient(t, env.router)
	for _, path := range []string{"/timeline/items", "/timeline/filters", "/items/x"} {
		expectStatus(t, c.do(http.MethodGet, path, nil), http.StatusUnauthorized)
	}
}

func TestItems_CreateGetImages(t *testing.T) {
	env := newTestEnv()
	c := newClient(t, env.router)
	c.signIn("alice")

	img := base64.StdEncoding.EncodeToString(pngBytes)
	w := c.do(http.MethodPost, "/items", map[string]any{
		"name":        "Brown wallet",
		"details":     "Leather",
		"category":    "found",
		"subcategory": "accessories",
		"latitude":    40.4,
		"longitude":   -3.7,
		"images":      []string{img, img},
	})
	expectStatus(t, w, http.StatusCreated)
	created := decode[ItemResponse](t, w)
	if !strings.HasPrefix(created.ID, "alice") || created.CreatedBy != "alice" || created.ThumbnailURL == "" {
		t.Fatalf("unexpected item %+v", created)
	}
	if _, ok := env.geo.locs[created.ID]; !ok {
		t.Fatal("expected the item to be geo-indexed")
	}

	w = c.do(http.MethodGet, "/items/"+created.ID, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[ItemResponse](t, w); got.Name != "Brown wallet" || got.Subcategory != "accessories" {
		t.Fatalf("unexpected item %+v", got)
	}

	w = c.do(http.MethodGet, "/items/"+created.ID+"/images", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[ImagesResponse](t, w); len(got.URLs) != 2 || !strings.HasSuffix(got.URLs[0], "_0") {
		t.Fatalf("unexpected images %+v", got)
	}

	expectStatus(t, c.do(http.MethodGet, "/items/nobody20240101000000", nil), http.StatusNotFound)
}

func TestItems_CreateRejects(t *testing.T) {
	lat, lng := 40.4, -3.7
	valid := func() map[string]any {
		return map[string]any{
			"name": "n", "details": "d", "category": "lost", "subcategory": "others",
			"latitude": lat, "longitude": lng,
		}
	}
	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   int
	}{
		{"missing name", func(m map[string]any) { delete(m, "name") }, http.StatusUnprocessableEntity},
		{"unknown category", func(m map[string]any) { m["category"] = "stolen" }, http.StatusUnprocessableEntity},
		{"missing latitude", func(m map[string]any) { delete(m, "latitude") }, http.StatusUnprocessableEntity},
		{"latitude out of range", func(m map[string]any) { m["latitude"] = 91.0 }, http.StatusUnprocessableEntity},
		{"malformed json", func(m map[string]any) { m["name"] = 42 }, http.StatusBadRequest},
		{"unknown subcategory", func(m map[string]any) { m["subcategory"] = "jewels" }, http.StatusUnprocessableEntity},
		{"adoption outside pets", func(m map[string]any) { m["category"] = "adoption" }, http.StatusUnprocessableEntity},
		{"not an image", func(m map[string]any) {
			m["images"] = []string{base64.StdEncoding.EncodeToString([]byte("plain text"))}
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			c := newClient(t, env.router)
			c.signIn("alice")
			body := valid()
			tt.mutate(body)
			expectStatus(t, c.do(http.MethodPost, "/items", body), tt.want)
		})
	}
}

func TestTimeline_PagingFlow(t *testing.T) {
	env := newTestEnv()
	env.seed("bob1", "bob", "red umbrella", "lost", "others", 40.401)
	env.seed("bob2", "bob", "brown wallet", "found", "accessories", 40.402)
	env.seed("bob3", "bob", "black wallet", "lost", "accessories", 40.403)
	c := newClient(t, env.router)
	c.signIn("alice")

	expectStatus(t, c.do(http.MethodPost, "/timeline/pages", nil), http.StatusBadRequest)

	w := c.do(http.MethodPut, "/timeline/area", areaBody())
	expectStatus(t, w, http.StatusOK)
	if area := decode[AreaResponse](t, w); area.RadiusKm != 10 {
		t.Fatalf("unexpected area %+v", area)
	}

	w = c.do(http.MethodPost, "/timeline/pages", nil)
	expectStatus(t, w, http.StatusOK)
	page := decode[PageResponse](t, w)
	if page.Status != "loaded" || page.Range != nil || page.Loaded != 2 || page.Total != 3 || page.ItemsCount != 2 {
		t.Fatalf("unexpected first page %+v", page)
	}

	w = c.do(http.MethodPost, "/timeline/pages", nil)
	page = decode[PageResponse](t, w)
	if page.Range == nil || page.Range.Start != 2 || page.Range.End != 3 {
		t.Fatalf("unexpected second page %+v", page)
	}

	w = c.do(http.MethodPost, "/timeline/pages", nil)
	if page = decode[PageResponse](t, w); page.Status != "exhausted" {
		t.Fatalf("expected exhausted, got %+v", page)
	}

	w = c.do(http.MethodPost, "/timeline/thumbnails", nil)
	expectStatus(t, w, http.StatusOK)
	if page = decode[PageResponse](t, w); page.ThumbnailsCount != 2 {
		t.Fatalf("unexpected thumbnails page %+v", page)
	}

	w = c.do(http.MethodGet, "/timeline/items?offset=0&limit=10", nil)
	expectStatus(t, w, http.StatusOK)
	items := decode[ItemsResponse](t, w)
	if len(items.Items) != 3 || items.Items[0].ID != "bob1" || items.Items[0].ThumbnailURL == "" {
		t.Fatalf("unexpected items %+v", items)
	}

	for _, q := range []string{"offset=-1", "limit=0", "limit=101", "limit=x"} {
		expectStatus(t, c.do(http.MethodGet, "/timeline/items?"+q, nil), http.StatusBadRequest)
	}
}

func TestTimeline_Filters(t *testing.T) {
	env := newTestEnv()
	env.seed("bob1", "bob", "red umbrella", "lost", "others", 40.401)
	env.seed("bob2", "bob", "brown wallet", "found", "accessories", 40.402)
	env.seed("bob3", "bob", "black wallet", "lost", "accessories", 40.403)
	c := newClient(t, env.router)
	c.signIn("alice")
	expectStatus(t, c.do(http.MethodPut, "/timeline/area", areaBody()), http.StatusOK)

	w := c.do(http.MethodPut, "/timeline/filters/search", map[string]string{"value": "wallet"})
	expectStatus(t, w, http.StatusOK)
	if page := decode[PageResponse](t, w); page.Total != 2 || page.ItemsCount != 2 {
		t.Fatalf("unexpected search page %+v", page)
	}

	w = c.do(http.MethodPut, "/timeline/filters/category", map[string]string{"value": "lost"})
	expectStatus(t, w, http.StatusOK)
	if page := decode[PageResponse](t, w); page.Total != 1 {
		t.Fatalf("unexpected category page %+v", page)
	}

	w = c.do(http.MethodGet, "/timeline/filters", nil)
	expectStatus(t, w, http.StatusOK)
	if f := decode[FiltersResponse](t, w); f.Mode != "category+search" || f.Text != "wallet" || f.Category != "lost" {
		t.Fatalf("unexpected filters %+v", f)
	}

	w = c.do(http.MethodDelete, "/timeline/filters/search", nil)
	expectStatus(t, w, http.StatusOK)
	if page := decode[PageResponse](t, w); page.Total != 2 {
		t.Fatalf("expected the two lost items, got %+v", page)
	}

	expectStatus(t, c.do(http.MethodPut, "/timeline/filters/colour", map[string]string{"value": "red"}), http.StatusBadRequest)
	expectStatus(t, c.do(http.MethodDelete, "/timeline/filters/colour", nil), http.StatusBadRequest)
}

func TestTimeline_ResetAndMine(t *testing.T) {
	env := newTestEnv()
	env.seed("alice1", "alice", "blue scarf", "lost", "clothes", 50.0)
	env.seed("bob1", "bob", "brown wallet", "found", "accessories", 40.401)
	c := newClient(t, env.router)
	c.signIn("alice")
	expectStatus(t, c.do(http.MethodPut, "/timeline/area", areaBody()), http.StatusOK)
	expectStatus(t, c.do(http.MethodPost, "/timeline/pages", nil), http.StatusOK)

	expectStatus(t, c.do(http.MethodPost, "/timeline/reset", map[string]bool{"full": false}), http.StatusNoContent)
	w := c.do(http.MethodGet, "/timeline/items", nil)
	if items := decode[ItemsResponse](t, w); items.ItemsCount != 0 {
		t.Fatalf("expected no loaded items after reset, got %+v", items)
	}

	w = c.do(http.MethodPost, "/timeline/mine", nil)
	expectStatus(t, w, http.StatusOK)
	if page := decode[PageResponse](t, w); page.Total != 1 || page.Base != "owner" {
		t.Fatalf("unexpected owner page %+v", page)
	}
	w = c.do(http.MethodGet, "/timeline/items", nil)
	if items := decode[ItemsResponse](t, w); len(items.Items) != 1 || items.Items[0].ID != "alice1" {
		t.Fatalf("unexpected owner items %+v", items)
	}

	expectStatus(t, c.do(http.MethodPost, "/timeline/reset", nil), http.StatusNoContent)
}

func TestTimeline_PerSession(t *testing.T) {
	env := newTestEnv()
	env.seed("bob1", "bob", "brown wallet", "found", "accessories", 40.401)

	alice := newClient(t, env.router)
	alice.signIn("alice")
	expectStatus(t, alice.do(http.MethodPut, "/timeline/area", areaBody()), http.StatusOK)
	expectStatus(t, alice.do(http.MethodPost, "/timeline/pages", nil), http.StatusOK)

	carol := newClient(t, env.router)
	carol.signIn("carol")
	expectStatus(t, carol.do(http.MethodPost, "/timeline/pages", nil), http.StatusBadRequest)

	if n := env.svcs.Timelines.Len(); n != 2 {
		t.Fatalf("expected two timelines, got %d", n)
	}
}

func TestSession_ReleasesTimeline(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   any
	}{
		{"sign out", http.MethodDelete, nil},
		{"sign in as someone else", http.MethodPost, map[string]string{"user_id": "dave"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			c := newClient(t, env.router)
			c.signIn("alice")
			expectStatus(t, c.do(http.MethodPut, "/timeline/area", areaBody()), http.StatusOK)
			if n := env.svcs.Timelines.Len(); n != 1 {
				t.Fatalf("expected one timeline, got %d", n)
			}

			c.do(tt.method, "/session", tt.body)
			if n := env.svcs.Timelines.Len(); n != 0 {
				t.Fatalf("expected the timeline to be released, got %d live", n)
			}
		})
	}
}

func TestTimeline_Changes(t *testing.T) {
	env := newTestEnv()
	env.seed("bob1", "bob", "brown wallet", "found", "accessories", 40.401)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	c := newClient(t, env.router)
	c.signIn("alice")
	expectStatus(t, c.do(http.MethodPut, "/timeline/area", areaBody()), http.StatusOK)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/timeline/changes", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	expectStatus(t, c.do(http.MethodPost, "/timeline/pages", nil), http.StatusOK)

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var ev ChangeEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decode event %q: %v", data, err)
		}
		if ev.Track != "items" || ev.Range != nil {
			t.Fatalf("unexpected event %+v", ev)
		}
		return
	}
	t.Fatalf("stream ended without a change: %v", sc.Err())
}
