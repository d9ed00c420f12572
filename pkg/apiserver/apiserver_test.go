package apiserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cr8s-go/cr8s/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(store.NewMemStore())
	ts := httptest.NewServer(srv.NewContainer())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

// TestRegisterAndList covers spec.md §8 scenario 1.
func TestRegisterAndList(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts, "/nodes", map[string]interface{}{"port": 1000, "name": "n1"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	listResp, err := http.Get(ts.URL + "/nodes")
	require.NoError(t, err)
	defer listResp.Body.Close()
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	var nodes []map[string]interface{}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "Ready", nodes[0]["status"])
}

// TestDuplicateNodeAddrRejected covers spec.md §8 scenario 2.
func TestDuplicateNodeAddrRejected(t *testing.T) {
	_, ts := newTestServer(t)

	resp1 := postJSON(t, ts, "/nodes", map[string]interface{}{"port": 1000, "name": "n1"})
	assert.Equal(t, http.StatusCreated, resp1.StatusCode)
	resp1.Body.Close()

	resp2 := postJSON(t, ts, "/nodes", map[string]interface{}{"port": 1000, "name": "n2"})
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)
	resp2.Body.Close()
}

func TestCreatePodRejectsDuplicateContainerNames(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts, "/pods", map[string]interface{}{
		"name": "bad-pod",
		"containers": []map[string]interface{}{
			{"name": "c1", "image": "nginx"},
			{"name": "c1", "image": "redis"},
		},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBindRejectsUnknownNode(t *testing.T) {
	_, ts := newTestServer(t)

	createResp := postJSON(t, ts, "/pods", map[string]interface{}{
		"name":       "p1",
		"containers": []map[string]interface{}{{"name": "c1", "image": "nginx"}},
	})
	createResp.Body.Close()

	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/pods/p1", strings.NewReader(
		`{"pod_field":"NodeName","value":"nope"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// TestWatchDeliversBacklogThenLive covers spec.md §8 scenario 3.
func TestWatchDeliversBacklogThenLive(t *testing.T) {
	_, ts := newTestServer(t)

	postJSON(t, ts, "/nodes", map[string]interface{}{"port": 1000, "name": "n1"}).Body.Close()
	postJSON(t, ts, "/pods", map[string]interface{}{
		"name":       "nginx-pod",
		"containers": []map[string]interface{}{{"name": "c1", "image": "nginx"}},
	}).Body.Close()

	bindResp, err := http.NewRequest(http.MethodPatch, ts.URL+"/pods/nginx-pod", strings.NewReader(
		`{"pod_field":"NodeName","value":"n1"}`))
	require.NoError(t, err)
	bindResp.Header.Set("Content-Type", "application/json")
	r, err := http.DefaultClient.Do(bindResp)
	require.NoError(t, err)
	r.Body.Close()

	watchResp, err := http.Get(ts.URL + "/pods?watch=true&nodeName=n1")
	require.NoError(t, err)
	defer watchResp.Body.Close()

	scanner := bufio.NewScanner(watchResp.Body)
	require.True(t, scanner.Scan())

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &first))
	assert.Equal(t, "Added", first["event_type"])
	pod := first["pod"].(map[string]interface{})
	spec := pod["spec"].(map[string]interface{})
	assert.Equal(t, "n1", spec["nodeName"])

	postJSON(t, ts, "/pods", map[string]interface{}{
		"name":       "p2",
		"containers": []map[string]interface{}{{"name": "c1", "image": "nginx"}},
	}).Body.Close()
	bindP2, err := http.NewRequest(http.MethodPatch, ts.URL+"/pods/p2", strings.NewReader(
		`{"pod_field":"NodeName","value":"n1"}`))
	require.NoError(t, err)
	bindP2.Header.Set("Content-Type", "application/json")
	r2, err := http.DefaultClient.Do(bindP2)
	require.NoError(t, err)
	r2.Body.Close()

	require.True(t, scanner.Scan())
	var live map[string]interface{}
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &live))
	assert.Equal(t, "Modified", live["event_type"])
	livePod := live["pod"].(map[string]interface{})
	assert.Equal(t, "p2", livePod["metadata"].(map[string]interface{})["name"])
	assert.Equal(t, "n1", livePod["spec"].(map[string]interface{})["nodeName"])
}
