package smarther

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casaops/go-smarther/internal/util"
)

func newAPIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func assertAPIHeaders(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
	}
	if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "subkey" {
		t.Errorf("Ocp-Apim-Subscription-Key = %q, want %q", got, "subkey")
	}
	if got := r.Header.Get("Accept-Encoding"); got != util.AcceptedEncodings {
		t.Errorf("Accept-Encoding = %q, want %q", got, util.AcceptedEncodings)
	}
}

func validTestGrant() Grant {
	return TokenGrant("tok", "ref", time.Now().Add(time.Hour))
}

func TestGetPlants(t *testing.T) {
	t.Parallel()

	apiSrv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want %q", r.Method, http.MethodGet)
		}
		if r.URL.Path != "/plants" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/plants")
		}
		assertAPIHeaders(t, r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"plants":[{"id":"p1","name":"Home"},{"id":"p2","name":"Office"}]}`)
	})

	authorized := newAuthorizedForTest(t, validTestGrant(), WithAPIURL(apiSrv.URL))
	plants, err := authorized.GetPlants(context.Background())
	if err != nil {
		t.Fatalf("GetPlants returned error: %v", err)
	}
	if len(plants.Plants) != 2 {
		t.Fatalf("len(plants) = %d, want 2", len(plants.Plants))
	}
	if plants.Plants[0].ID != "p1" || plants.Plants[0].Name != "Home" {
		t.Errorf("first plant = %+v, want p1/Home", plants.Plants[0])
	}
}

func TestGetTopology(t *testing.T) {
	t.Parallel()

	apiSrv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plants/p1/topology" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/plants/p1/topology")
		}
		assertAPIHeaders(t, r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"plant":{"id":"p1","name":"Home","modules":[{"device":"chronothermostat","name":"Living room","id":"m1"}]}}`)
	})

	authorized := newAuthorizedForTest(t, validTestGrant(), WithAPIURL(apiSrv.URL))
	topology, err := authorized.GetTopology(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetTopology returned error: %v", err)
	}
	if len(topology.Plant.Modules) != 1 {
		t.Fatalf("len(modules) = %d, want 1", len(topology.Plant.Modules))
	}
	if got := topology.Plant.Modules[0].ID; got != "m1" {
		t.Errorf("module id = %q, want %q", got, "m1")
	}
}

func TestGetDeviceStatus(t *testing.T) {
	t.Parallel()

	wantPath := "/chronothermostat/thermoregulation/addressLocation/plants/p1/modules/parameter/id/value/m1"
	apiSrv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		assertAPIHeaders(t, r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, statusMessage)
	})

	authorized := newAuthorizedForTest(t, validTestGrant(), WithAPIURL(apiSrv.URL))
	status, err := authorized.GetDeviceStatus(context.Background(), "p1", "m1")
	if err != nil {
		t.Fatalf("GetDeviceStatus returned error: %v", err)
	}
	if len(status.Chronothermostats) != 1 {
		t.Fatalf("len(chronothermostats) = %d, want 1", len(status.Chronothermostats))
	}
	if got := status.Chronothermostats[0].Function; got != FunctionHeating {
		t.Errorf("function = %q, want %q", got, FunctionHeating)
	}
}

func TestSetDeviceStatus(t *testing.T) {
	t.Parallel()

	var sent SetStatusRequest
	apiSrv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want %q", r.Method, http.MethodPost)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want %q", got, "application/json")
		}
		assertAPIHeaders(t, r)
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Errorf("request body does not decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	authorized := newAuthorizedForTest(t, validTestGrant(), WithAPIURL(apiSrv.URL))
	setPoint := Celsius(21.5)
	request := &SetStatusRequest{
		Function: FunctionHeating,
		Mode:     ModeManual,
		SetPoint: &setPoint,
	}
	if err := authorized.SetDeviceStatus(context.Background(), "p1", "m1", request); err != nil {
		t.Fatalf("SetDeviceStatus returned error: %v", err)
	}
	if sent.Function != FunctionHeating || sent.Mode != ModeManual {
		t.Errorf("sent request = %+v, want HEATING/MANUAL", sent)
	}
	if sent.SetPoint == nil || sent.SetPoint.Value != 21.5 {
		t.Errorf("sent set point = %+v, want 21.5", sent.SetPoint)
	}
}

func TestSetDeviceStatusValidatesBeforeSending(t *testing.T) {
	t.Parallel()

	var apiCalls int32
	apiSrv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiCalls, 1)
	})

	authorized := newAuthorizedForTest(t, validTestGrant(), WithAPIURL(apiSrv.URL))
	request := &SetStatusRequest{Function: FunctionHeating, Mode: ModeManual}
	if err := authorized.SetDeviceStatus(context.Background(), "p1", "m1", request); err == nil {
		t.Fatal("SetDeviceStatus should reject a manual request without a set point")
	}
	if got := atomic.LoadInt32(&apiCalls); got != 0 {
		t.Errorf("api calls = %d, want 0 for an invalid request", got)
	}
}

func TestOperationsFailWithoutUsableGrant(t *testing.T) {
	t.Parallel()

	var apiCalls int32
	apiSrv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiCalls, 1)
	})

	authorized := newAuthorizedForTest(t, NoGrant(), WithAPIURL(apiSrv.URL))
	_, err := authorized.GetPlants(context.Background())
	var authErr *AuthenticationError
	ok := errors.As(err, &authErr)
	if !ok || authErr.Type != ErrNoValidToken.Type {
		t.Errorf("GetPlants error = %v, want type %q", err, ErrNoValidToken.Type)
	}
	if got := atomic.LoadInt32(&apiCalls); got != 0 {
		t.Errorf("api calls = %d, want 0 without a usable grant", got)
	}
}

func TestAPIErrorOnUnexpectedStatus(t *testing.T) {
	t.Parallel()

	apiSrv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plant not found", http.StatusNotFound)
	})

	authorized := newAuthorizedForTest(t, validTestGrant(), WithAPIURL(apiSrv.URL))
	_, err := authorized.GetPlants(context.Background())
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	if !ok {
		t.Fatalf("GetPlants error = %v, want an api error", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", apiErr.StatusCode, http.StatusNotFound)
	}
}

func TestGzipEncodedResponse(t *testing.T) {
	t.Parallel()

	apiSrv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{"plants":[{"id":"p1","name":"Home"}]}`))
		_ = gz.Close()
	})

	authorized := newAuthorizedForTest(t, validTestGrant(), WithAPIURL(apiSrv.URL))
	plants, err := authorized.GetPlants(context.Background())
	if err != nil {
		t.Fatalf("GetPlants returned error: %v", err)
	}
	if len(plants.Plants) != 1 || plants.Plants[0].ID != "p1" {
		t.Errorf("plants = %+v, want a single p1 entry", plants.Plants)
	}
}
