package server

import (
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "sync/atomic"
    "testing"

    "github.com/pion/webrtc/v3"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "bifrost/internal/frame"
    "bifrost/internal/stream"
)

type idleSource struct{}

func (idleSource) Next() (*frame.Frame, bool) { return nil, true }
func (idleSource) Stop()                      {}

type fakePipe struct{ stopped *atomic.Int32 }

func (f fakePipe) Stop() { f.stopped.Add(1) }

type harness struct {
    srv     *WhepServer
    http    *httptest.Server
    starts  atomic.Int32
    stopped atomic.Int32
    mu      sync.Mutex
    last    stream.PipelineConfig
}

func (h *harness) lastConfig() stream.PipelineConfig {
    h.mu.Lock()
    defer h.mu.Unlock()
    return h.last
}

func newHarness(t *testing.T) *harness {
    t.Helper()
    h := &harness{}
    h.srv = NewWhepServer(Config{FPS: 25, Width: 64, Height: 48, Format: frame.YUV420P8}, idleSource{},
        func() map[string]uint64 { return map[string]uint64{"frames": 7} })
    h.srv.SetStartFunc(func(cfg stream.PipelineConfig) (Stopper, error) {
        h.starts.Add(1)
        h.mu.Lock()
        h.last = cfg
        h.mu.Unlock()
        return fakePipe{&h.stopped}, nil
    })
    mux := http.NewServeMux()
    h.srv.RegisterRoutes(mux)
    h.http = httptest.NewServer(mux)
    t.Cleanup(func() {
        h.http.Close()
        h.srv.Close()
    })
    return h
}

func offer(t *testing.T) (*webrtc.PeerConnection, string) {
    t.Helper()
    pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
    require.NoError(t, err)
    t.Cleanup(func() { _ = pc.Close() })
    _, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly})
    require.NoError(t, err)
    o, err := pc.CreateOffer(nil)
    require.NoError(t, err)
    gathered := webrtc.GatheringCompletePromise(pc)
    require.NoError(t, pc.SetLocalDescription(o))
    <-gathered
    return pc, pc.LocalDescription().SDP
}

func (h *harness) post(t *testing.T, sdp string) *http.Response {
    t.Helper()
    resp, err := http.Post(h.http.URL+"/whep", "application/sdp", strings.NewReader(sdp))
    require.NoError(t, err)
    return resp
}

func (h *harness) delete(t *testing.T, path string) int {
    t.Helper()
    req, err := http.NewRequest(http.MethodDelete, h.http.URL+path, nil)
    require.NoError(t, err)
    resp, err := http.DefaultClient.Do(req)
    require.NoError(t, err)
    resp.Body.Close()
    return resp.StatusCode
}

func TestWHEPSessionLifecycle(t *testing.T) {
    h := newHarness(t)

    pc, sdp := offer(t)
    resp := h.post(t, sdp)
    body, _ := io.ReadAll(resp.Body)
    resp.Body.Close()
    require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
    assert.Equal(t, "application/sdp", resp.Header.Get("Content-Type"))
    loc := resp.Header.Get("Location")
    assert.True(t, strings.HasPrefix(loc, "/whep/"))
    require.NoError(t, pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: string(body)}))
    assert.Contains(t, string(body), "H264")

    assert.Equal(t, 1, h.srv.Sessions())
    assert.Equal(t, int32(1), h.starts.Load())
    cfg := h.lastConfig()
    assert.Equal(t, 64, cfg.Width)
    assert.Equal(t, frame.YUV420P8, cfg.Format)
    assert.NotNil(t, cfg.Track)

    _, sdp2 := offer(t)
    resp = h.post(t, sdp2)
    resp.Body.Close()
    require.Equal(t, http.StatusCreated, resp.StatusCode)
    assert.Equal(t, 2, h.srv.Sessions())
    assert.Equal(t, int32(1), h.starts.Load(), "encoder is shared")

    assert.Equal(t, http.StatusNoContent, h.delete(t, loc))
    assert.Equal(t, 1, h.srv.Sessions())
    assert.Equal(t, int32(0), h.stopped.Load())
    assert.Equal(t, http.StatusNotFound, h.delete(t, loc))

    h.srv.Close()
    assert.Equal(t, 0, h.srv.Sessions())
    assert.Equal(t, int32(1), h.stopped.Load(), "last session stops the encoder")
}

func TestWHEPRejectsBadRequests(t *testing.T) {
    h := newHarness(t)

    resp, err := http.Get(h.http.URL + "/whep")
    require.NoError(t, err)
    resp.Body.Close()
    assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

    resp = h.post(t, "")
    resp.Body.Close()
    assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

    resp = h.post(t, "not an sdp")
    resp.Body.Close()
    assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
    assert.Equal(t, 0, h.srv.Sessions())
    assert.Equal(t, int32(0), h.starts.Load())
}

func TestHealth(t *testing.T) {
    h := newHarness(t)
    resp, err := http.Get(h.http.URL + "/health")
    require.NoError(t, err)
    defer resp.Body.Close()
    var body struct {
        Status   string            `json:"status"`
        Version  string            `json:"version"`
        Sessions int               `json:"sessions"`
        Filter   map[string]uint64 `json:"filter"`
        Stream   map[string]uint64 `json:"stream"`
    }
    require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
    assert.Equal(t, "ok", body.Status)
    assert.NotEmpty(t, body.Version)
    assert.Equal(t, uint64(7), body.Filter["frames"])
    assert.Contains(t, body.Stream, "samples_sent")
}

func TestIndexPage(t *testing.T) {
    h := newHarness(t)
    resp, err := http.Get(h.http.URL + "/")
    require.NoError(t, err)
    b, _ := io.ReadAll(resp.Body)
    resp.Body.Close()
    assert.Contains(t, string(b), "/whep")

    resp, err = http.Get(h.http.URL + "/nope")
    require.NoError(t, err)
    resp.Body.Close()
    assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
