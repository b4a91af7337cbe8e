package server

import (
    "encoding/json"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "strings"
    "sync"

    "github.com/google/uuid"
    "github.com/pion/webrtc/v3"

    "bifrost/internal/frame"
    "bifrost/internal/stream"
    "bifrost/internal/version"
)

type Config struct {
    Host   string
    Port   int
    FPS    int
    Width  int
    Height int
    Format frame.Format
}

// Stopper is a running encoder.
type Stopper interface{ Stop() }

// StartFunc starts the encoder feeding track. It is stream.StartH264Pipeline
// outside of tests.
type StartFunc func(stream.PipelineConfig) (Stopper, error)

func startH264(cfg stream.PipelineConfig) (Stopper, error) { return stream.StartH264Pipeline(cfg) }

// WhepServer serves one filtered clip to any number of WHEP viewers. All
// sessions share a single encoder, started with the first session and
// stopped when the last one leaves.
type WhepServer struct {
    cfg      Config
    src      stream.Source
    stats    func() map[string]uint64
    start    StartFunc
    bc       *stream.SampleBroadcaster
    mu       sync.Mutex
    sessions map[string]*session
    pipe     Stopper
}

type session struct {
    pc     *webrtc.PeerConnection
    remove func()
}

// NewWhepServer builds a server streaming src. stats, when not nil, is
// reported under "filter" on /health.
func NewWhepServer(cfg Config, src stream.Source, stats func() map[string]uint64) *WhepServer {
    return &WhepServer{
        cfg:      cfg,
        src:      src,
        stats:    stats,
        start:    startH264,
        bc:       stream.NewSampleBroadcaster(),
        sessions: map[string]*session{},
    }
}

// SetStartFunc replaces the encoder starter.
func (s *WhepServer) SetStartFunc(f StartFunc) { s.start = f }

func (s *WhepServer) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/whep", s.handleWHEPPost)
    mux.HandleFunc("/whep/", s.handleWHEPResource)
    mux.HandleFunc("/health", s.handleHealth)
    mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/" {
            http.NotFound(w, r)
            return
        }
        w.Header().Set("Content-Type", "text/html; charset=utf-8")
        io.WriteString(w, indexHTML)
    })
}

// Sessions is the number of connected viewers.
func (s *WhepServer) Sessions() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.sessions)
}

func (s *WhepServer) handleHealth(w http.ResponseWriter, r *http.Request) {
    body := map[string]any{
        "status":   "ok",
        "version":  version.String(),
        "sessions": s.Sessions(),
        "stream":   stream.GetCounters(),
    }
    if s.stats != nil { body["filter"] = s.stats() }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(body)
}

func (s *WhepServer) handleWHEPPost(w http.ResponseWriter, r *http.Request) {
    if r.Method == http.MethodOptions {
        allowCORS(w, r)
        w.WriteHeader(http.StatusNoContent)
        return
    }
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    offerSDP, err := io.ReadAll(r.Body)
    if err != nil || len(offerSDP) == 0 {
        http.Error(w, "empty offer", http.StatusBadRequest)
        return
    }

    me := webrtc.MediaEngine{}
    if err := me.RegisterDefaultCodecs(); err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    api := webrtc.NewAPI(webrtc.WithMediaEngine(&me))
    pc, err := api.NewPeerConnection(webrtc.Configuration{})
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    id := uuid.NewString()
    log := slog.With("session", id)

    track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264}, "video", "bifrost")
    if err != nil {
        _ = pc.Close()
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    if _, err := pc.AddTrack(track); err != nil {
        _ = pc.Close()
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: string(offerSDP)}); err != nil {
        _ = pc.Close()
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    answer, err := pc.CreateAnswer(nil)
    if err != nil {
        _ = pc.Close()
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    gatherComplete := webrtc.GatheringCompletePromise(pc)
    if err := pc.SetLocalDescription(answer); err != nil {
        _ = pc.Close()
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    <-gatherComplete

    if err := s.addSession(id, pc, track); err != nil {
        _ = pc.Close()
        http.Error(w, fmt.Sprintf("pipeline error: %v", err), http.StatusInternalServerError)
        return
    }
    log.Info("whep: session created", "remote", r.RemoteAddr)

    pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
        log.Info("whep: session state", "state", state.String())
        switch state {
        case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
            s.closeSession(id)
        }
    })

    allowCORS(w, r)
    w.Header().Set("Content-Type", "application/sdp")
    w.Header().Set("Location", "/whep/"+id)
    w.WriteHeader(http.StatusCreated)
    _, _ = io.WriteString(w, pc.LocalDescription().SDP)
}

// addSession registers the track with the broadcaster, starting the
// shared encoder if this is the first viewer.
func (s *WhepServer) addSession(id string, pc *webrtc.PeerConnection, track stream.SampleWriter) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.pipe == nil {
        p, err := s.start(stream.PipelineConfig{
            Width:  s.cfg.Width,
            Height: s.cfg.Height,
            FPS:    s.cfg.FPS,
            Format: s.cfg.Format,
            Source: s.src,
            Track:  s.bc,
        })
        if err != nil { return err }
        s.pipe = p
    }
    s.sessions[id] = &session{pc: pc, remove: s.bc.Add(track)}
    return nil
}

func (s *WhepServer) handleWHEPResource(w http.ResponseWriter, r *http.Request) {
    allowCORS(w, r)
    id := strings.TrimPrefix(r.URL.Path, "/whep/")
    switch r.Method {
    case http.MethodPatch, http.MethodOptions:
        w.WriteHeader(http.StatusNoContent)
    case http.MethodDelete:
        if !s.closeSession(id) {
            http.Error(w, "no such session", http.StatusNotFound)
            return
        }
        w.WriteHeader(http.StatusNoContent)
    default:
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
    }
}

func (s *WhepServer) closeSession(id string) bool {
    s.mu.Lock()
    sess := s.sessions[id]
    delete(s.sessions, id)
    var pipe Stopper
    if sess != nil && len(s.sessions) == 0 {
        pipe, s.pipe = s.pipe, nil
    }
    s.mu.Unlock()
    if sess == nil { return false }
    sess.remove()
    _ = sess.pc.Close()
    if pipe != nil { pipe.Stop() }
    slog.Info("whep: session closed", "session", id)
    return true
}

// Close ends every session and the encoder.
func (s *WhepServer) Close() {
    s.mu.Lock()
    ids := make([]string, 0, len(s.sessions))
    for id := range s.sessions { ids = append(ids, id) }
    s.mu.Unlock()
    for _, id := range ids { s.closeSession(id) }
    s.bc.Close()
}

func allowCORS(w http.ResponseWriter, r *http.Request) {
    origin := r.Header.Get("Origin")
    if origin == "" { origin = "*" }
    w.Header().Set("Access-Control-Allow-Origin", origin)
    w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
    w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
    w.Header().Set("Access-Control-Expose-Headers", "Location")
}

const indexHTML = `<!doctype html>
<meta charset="utf-8" />
<title>bifrost preview</title>
<style>body{font-family:system-ui;margin:2rem}video{width:80vw;max-width:1280px;background:#000}pre{color:#555}</style>
<div>
  <input id="ep" value="/whep" style="width:30rem"/>
  <button id="play">Play</button>
  <button id="stop" disabled>Stop</button>
</div>
<video id="v" playsinline autoplay muted></video>
<pre id="health"></pre>
<script>
let pc=null, res=null; const $=id=>document.getElementById(id);
$("play").onclick = async ()=>{
  pc=new RTCPeerConnection();
  pc.ontrack = ev=>{$("v").srcObject=ev.streams[0];}
  pc.addTransceiver('video',{direction:'recvonly'});
  const offer = await pc.createOffer();
  await pc.setLocalDescription(offer);
  const resp=await fetch($("ep").value,{method:'POST',headers:{'Content-Type':'application/sdp'},body:offer.sdp});
  res=resp.headers.get('Location');
  await pc.setRemoteDescription({type:'answer', sdp: await resp.text()});
  $("stop").disabled=false;
}
$("stop").onclick = async ()=>{
  if(res){await fetch(res,{method:'DELETE'})} if(pc){pc.close()} $("stop").disabled=true;
}
setInterval(async ()=>{$("health").textContent=JSON.stringify(await (await fetch('/health')).json(),null,2)},1000);
</script>`
