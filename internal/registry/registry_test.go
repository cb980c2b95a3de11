package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeartbeatPostsStationJSON(t *testing.T) {
	var gotAuth string
	var gotStation Station
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotStation)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key", Station{ID: "station-1", Name: "Night Shift"}, nil)
	c.Heartbeat()

	if gotAuth != "Bearer secret-key" {
		t.Fatalf("Authorization = %q, want Bearer secret-key", gotAuth)
	}
	if gotStation.Name != "Night Shift" {
		t.Fatalf("Station.Name = %q, want Night Shift", gotStation.Name)
	}
}

func TestHeartbeatGeneratesIDWhenEmpty(t *testing.T) {
	c := New("", "", Station{}, nil)
	if c.station.ID == "" {
		t.Fatal("expected a generated station ID")
	}
}

func TestHeartbeatNoOpWithEmptyURL(t *testing.T) {
	c := New("", "", Station{Name: "x"}, nil)
	c.Heartbeat() // must not panic or block
}

func TestHeartbeatSwallowsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "", Station{Name: "x"}, nil)
	c.Heartbeat() // must not panic despite a 500
}
