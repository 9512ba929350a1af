package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func getJSON(t *testing.T, srv *httptest.Server, path string, q url.Values, wantCode int) map[string]any {
	t.Helper()
	resp, err := http.Get(srv.URL + path + "?" + q.Encode())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantCode {
		t.Fatalf("GET %s: status=%d, want %d", path, resp.StatusCode, wantCode)
	}
	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return out
}

func TestHTTPEndpoints(t *testing.T) {
	srv := httptest.NewServer(newTestService(t, Options{}).HTTPHandler())
	defer srv.Close()

	out := getJSON(t, srv, "/simulate", url.Values{
		"start": {"12"}, "end": {"16"}, "lvl": {"150"}, "n": {"800"}, "parallel": {"true"},
	}, http.StatusOK)
	id, _ := out["id"].(string)
	if id == "" || out["size"] != float64(800) {
		t.Fatalf("simulate=%v", out)
	}

	out = getJSON(t, srv, "/percentile", url.Values{"id": {id}, "p": {"0"}, "metric": {"attempts"}}, http.StatusOK)
	if v, _ := out["value"].(float64); v < 4 {
		t.Fatalf("min attempts=%v", out["value"])
	}
	out = getJSON(t, srv, "/probability", url.Values{"id": {id}, "c": {"4"}, "metric": {"taps"}}, http.StatusOK)
	if out["probability"] != float64(0) {
		t.Fatalf("P(attempts<4)=%v", out["probability"])
	}
	out = getJSON(t, srv, "/histogram", url.Values{"id": {id}, "bins": {"5"}}, http.StatusOK)
	if counts, _ := out["counts"].([]any); len(counts) == 0 {
		t.Fatalf("histogram=%v", out)
	}
	out = getJSON(t, srv, "/overview", url.Values{"id": {id}}, http.StatusOK)
	if text, _ := out["text"].(string); text == "" {
		t.Fatalf("overview=%v", out)
	}
	out = getJSON(t, srv, "/fit", url.Values{"id": {id}, "model": {"normal"}}, http.StatusOK)
	if out["model"] != "normal" {
		t.Fatalf("fit=%v", out)
	}
	getJSON(t, srv, "/healthz", nil, http.StatusOK)
}

func TestHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(newTestService(t, Options{}).HTTPHandler())
	defer srv.Close()

	cases := []struct {
		path string
		q    url.Values
		want int
	}{
		{"/simulate", url.Values{"start": {"15"}}, http.StatusBadRequest},
		{"/simulate", url.Values{"start": {"x"}, "end": {"16"}, "lvl": {"150"}, "n": {"10"}}, http.StatusBadRequest},
		{"/simulate", url.Values{"start": {"21"}, "end": {"15"}, "lvl": {"150"}, "n": {"10"}}, http.StatusBadRequest},
		{"/percentile", url.Values{"id": {"nope"}, "p": {"0.5"}}, http.StatusNotFound},
		{"/percentile", url.Values{"id": {"nope"}, "p": {"2"}}, http.StatusNotFound},
		{"/overview", url.Values{}, http.StatusBadRequest},
		{"/probability", url.Values{"id": {"nope"}}, http.StatusBadRequest},
	}
	for _, c := range cases {
		getJSON(t, srv, c.path, c.q, c.want)
	}
}
