package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateDataSourceMasksSecrets(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: storageListing()})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := `{"name":"warehouse","type":"stub","options":{"endpoint":"play.min.io","secret_key":"hunter2"}}`
	resp, err := http.Post(ts.URL+"/api/data_sources", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /api/data_sources: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var ds dataSourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&ds); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ds.Name != "warehouse" {
		t.Errorf("name = %q, want warehouse", ds.Name)
	}
	if got := ds.Options["secret_key"]; got == "hunter2" {
		t.Error("secret_key echoed back unmasked")
	}
	if got := ds.Options["endpoint"]; got != "play.min.io" {
		t.Errorf("endpoint = %v, want play.min.io", got)
	}
}

func TestCreateDataSourceValidation(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: storageListing()})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"missing name", `{"type":"stub","options":{"endpoint":"e"}}`, http.StatusBadRequest},
		{"missing type", `{"name":"a","options":{"endpoint":"e"}}`, http.StatusBadRequest},
		{"unknown type", `{"name":"a","type":"postgres","options":{"endpoint":"e"}}`, http.StatusBadRequest},
		{"missing required option", `{"name":"a","type":"stub","options":{}}`, http.StatusBadRequest},
		{"invalid JSON", `not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/data_sources", "application/json", bytes.NewBufferString(tt.body))
			if err != nil {
				t.Fatalf("POST /api/data_sources: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
		})
	}
}

func TestCreateDataSourceDuplicateName(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: storageListing()})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := `{"name":"warehouse","type":"stub","options":{"endpoint":"e"}}`
	first, err := http.Post(ts.URL+"/api/data_sources", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("first POST: %v", err)
	}
	first.Body.Close()

	second, err := http.Post(ts.URL+"/api/data_sources", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("second POST: %v", err)
	}
	defer second.Body.Close()

	if second.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", second.StatusCode)
	}
}

func TestListDataSourcesMasksSecrets(t *testing.T) {
	srv, s := newTestServer(t, &stubRunner{result: storageListing()})
	createTestDataSource(t, s, "warehouse", "stub")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/data_sources")
	if err != nil {
		t.Fatalf("GET /api/data_sources: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if strings.Contains(string(raw), "hunter2") {
		t.Error("secret value leaked in list response")
	}

	var sources []dataSourceResponse
	if err := json.Unmarshal(raw, &sources); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("list length = %d, want 1", len(sources))
	}
}

func TestGetDataSourceNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: storageListing()})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/data_sources/no-such-id")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteDataSource(t *testing.T) {
	srv, s := newTestServer(t, &stubRunner{result: storageListing()})
	ds := createTestDataSource(t, s, "warehouse", "stub")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/data_sources/"+ds.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	again, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second DELETE: %v", err)
	}
	defer again.Body.Close()
	if again.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", again.StatusCode)
	}
}

func TestTestDataSourceConnection(t *testing.T) {
	srv, s := newTestServer(t, &stubRunner{result: storageListing()})
	ds := createTestDataSource(t, s, "warehouse", "stub")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/data_sources/"+ds.ID+"/test", "application/json", nil)
	if err != nil {
		t.Fatalf("POST test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestTestDataSourceConnectionFailure(t *testing.T) {
	connErr := errors.New("backend unavailable: connection test failed: connection refused")
	srv, s := newTestServer(t, &stubRunner{connErr: connErr})
	ds := createTestDataSource(t, s, "warehouse", "stub")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/data_sources/"+ds.ID+"/test", "application/json", nil)
	if err != nil {
		t.Fatalf("POST test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	var fail failResponse
	if err := json.NewDecoder(resp.Body).Decode(&fail); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(fail.Message, "connection refused") {
		t.Errorf("message %q does not carry the connectivity cause", fail.Message)
	}
}

func TestListRunners(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: storageListing()})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/runners")
	if err != nil {
		t.Fatalf("GET /api/runners: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var infos []struct {
		Type   string `json:"type"`
		Name   string `json:"name"`
		Schema struct {
			Required []string `json:"required"`
			Secret   []string `json:"secret"`
		} `json:"configuration_schema"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("runners length = %d, want 1", len(infos))
	}
	if infos[0].Type != "stub" {
		t.Errorf("type = %q, want stub", infos[0].Type)
	}
	if len(infos[0].Schema.Secret) != 1 || infos[0].Schema.Secret[0] != "secret_key" {
		t.Errorf("schema secret = %v, want [secret_key]", infos[0].Schema.Secret)
	}
}
