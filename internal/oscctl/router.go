// Package oscctl is the OSC control plane: it turns the wire protocol
// of spec.md §6 into supervisor/patch/ring calls, owns the patch
// staging area for /patch/create|connect|remove|commit|abort, and runs
// the sequencer that emits gate/param commands on its own step clock.
package oscctl

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/hypebeast/go-osc/osc"
	"github.com/norsninja/chronus/internal/logging"
	"github.com/norsninja/chronus/internal/patch"
	"github.com/norsninja/chronus/internal/ring"
	"github.com/norsninja/chronus/internal/supervisor"
)

// Router dispatches inbound OSC messages against one supervisor.
type Router struct {
	sv     *supervisor.Supervisor
	logger *logging.Logger

	server      *osc.Server
	replyClient *osc.Client

	stage *patchStage
	seq   *sequencer

	seqCounter atomic.Uint64
}

// NewRouter builds a router listening on oscHost:oscPort and replying
// (record/status, engine/status) to vizHost:vizPort — the same
// broadcast channel the visualizer already listens on, since spec.md
// describes both as "a broadcast path" without a distinct reply
// address.
func NewRouter(sv *supervisor.Supervisor, logger *logging.Logger, oscHost string, oscPort int, vizHost string, vizPort int) *Router {
	r := &Router{
		sv:          sv,
		logger:      logger,
		replyClient: osc.NewClient(vizHost, vizPort),
		stage:       newPatchStage(),
	}
	r.seq = newSequencer(r)
	r.server = &osc.Server{
		Addr:       oscHost + ":" + strconv.Itoa(oscPort),
		Dispatcher: dispatcherFunc(r.route),
	}
	return r
}

// dispatcherFunc adapts a plain function to osc.Dispatcher, since every
// address in this protocol carries dynamic path segments (module ids,
// track ids) that a fixed-address registry can't match.
type dispatcherFunc func(msg *osc.Message)

func (f dispatcherFunc) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		f(p)
	case *osc.Bundle:
		for _, m := range p.Messages {
			f(m)
		}
	}
}

// ListenAndServe blocks serving OSC messages until the process exits
// or the underlying UDP listener errors.
func (r *Router) ListenAndServe() error {
	return r.server.ListenAndServe()
}

// Stop halts the sequencer; the OSC server itself has no separate
// shutdown hook in this library version and is expected to die with
// the process.
func (r *Router) Stop() {
	r.seq.Stop()
}

func (r *Router) route(msg *osc.Message) {
	addr := msg.Address
	switch {
	case strings.HasPrefix(addr, "/mod/"):
		r.handleMod(addr, msg)
	case strings.HasPrefix(addr, "/gate/"):
		r.handleGate(addr, msg)
	case addr == "/patch/create":
		r.handlePatchCreate(msg)
	case addr == "/patch/connect":
		r.handlePatchConnect(msg)
	case addr == "/patch/remove":
		r.handlePatchRemove(msg)
	case addr == "/patch/commit":
		r.handlePatchCommit()
	case addr == "/patch/abort":
		r.handlePatchAbort()
	case addr == "/record/start":
		r.handleRecordStart(msg)
	case addr == "/record/stop":
		r.handleRecordStop()
	case addr == "/record/status":
		r.handleRecordStatus()
	case addr == "/seq/add":
		r.handleSeqAdd(msg)
	case addr == "/seq/remove":
		r.handleSeqRemove(msg)
	case addr == "/seq/clear":
		r.seq.Clear()
	case addr == "/seq/start":
		r.seq.Start()
	case addr == "/seq/stop":
		r.seq.Stop()
	case addr == "/seq/bpm":
		r.handleSeqBPM(msg)
	case addr == "/seq/swing":
		r.handleSeqSwing(msg)
	case addr == "/seq/update/pattern":
		r.handleSeqUpdatePattern(msg)
	case addr == "/seq/update/notes":
		r.handleSeqUpdateNotes(msg)
	case addr == "/engine/status":
		r.handleEngineStatus()
	default:
		r.logger.Warn("unrecognized OSC address, dropped", "address", addr)
	}
}

func (r *Router) handleMod(addr string, msg *osc.Message) {
	parts := strings.Split(strings.TrimPrefix(addr, "/mod/"), "/")
	if len(parts) < 2 {
		r.logger.Warn("malformed /mod address, dropped", "address", addr)
		return
	}
	moduleID := parts[0]
	paramName := strings.Join(parts[1:], "/")
	value, ok := argFloat32(msg, 0)
	if !ok {
		r.logger.Warn("missing /mod value, dropped", "address", addr)
		return
	}
	r.writeParam(moduleID, paramName, value)
}

func (r *Router) handleGate(addr string, msg *osc.Message) {
	moduleID := strings.TrimPrefix(addr, "/gate/")
	v, ok := argFloat32(msg, 0)
	if !ok {
		r.logger.Warn("missing /gate value, dropped", "address", addr)
		return
	}
	r.writeGate(moduleID, v != 0)
}

// writeParam routes a PARAM_SET to the active slot, and, while a
// commit is in flight, also to the standby slot — spec.md §4.5's "OSC
// parameter routing" broadcast rule.
func (r *Router) writeParam(moduleID, paramName string, value float32) {
	r.writeParamTo(r.sv.ActiveHost(), r.sv.ActiveCommandRing(), moduleID, paramName, value)
	if r.sv.PendingCommit() {
		r.writeParamTo(r.sv.StandbyHost(), r.sv.StandbyCommandRing(), moduleID, paramName, value)
	}
}

func (r *Router) writeParamTo(host *patch.Host, cmdRing *ring.CommandRing, moduleID, paramName string, value float32) {
	midx, pidx, ok := host.ResolveParam(moduleID, paramName)
	if !ok {
		r.logger.Warn("unknown module/param, dropped", "module", moduleID, "param", paramName)
		return
	}
	cmd := ring.Command{Seq: r.seqCounter.Add(1), Op: ring.OpParamSet, ModuleID: midx, ParamID: pidx, Value: value}
	if err := cmdRing.Write(cmd); err != nil {
		r.logger.Warn("command ring full, param dropped", "module", moduleID, "param", paramName)
	}
}

func (r *Router) writeGate(moduleID string, on bool) {
	r.writeGateTo(r.sv.ActiveHost(), r.sv.ActiveCommandRing(), moduleID, on)
	if r.sv.PendingCommit() {
		r.writeGateTo(r.sv.StandbyHost(), r.sv.StandbyCommandRing(), moduleID, on)
	}
}

func (r *Router) writeGateTo(host *patch.Host, cmdRing *ring.CommandRing, moduleID string, on bool) {
	midx, ok := host.ResolveModule(moduleID)
	if !ok {
		r.logger.Warn("unknown module, gate dropped", "module", moduleID)
		return
	}
	val := float32(0)
	if on {
		val = 1
	}
	cmd := ring.Command{Seq: r.seqCounter.Add(1), Op: ring.OpGate, ModuleID: midx, Value: val}
	if err := cmdRing.Write(cmd); err != nil {
		r.logger.Warn("command ring full, gate dropped", "module", moduleID)
	}
}

func (r *Router) handlePatchCreate(msg *osc.Message) {
	id, ok1 := argString(msg, 0)
	typ, ok2 := argString(msg, 1)
	if !ok1 || !ok2 {
		r.logger.Warn("malformed /patch/create, dropped")
		return
	}
	if err := r.stage.create(id, typ); err != nil {
		r.logger.Warn("/patch/create rejected", "err", err)
	}
}

func (r *Router) handlePatchConnect(msg *osc.Message) {
	src, ok1 := argString(msg, 0)
	dst, ok2 := argString(msg, 1)
	if !ok1 || !ok2 {
		r.logger.Warn("malformed /patch/connect, dropped")
		return
	}
	if err := r.stage.connect(src, dst); err != nil {
		r.logger.Warn("/patch/connect rejected", "err", err)
	}
}

func (r *Router) handlePatchRemove(msg *osc.Message) {
	id, ok := argString(msg, 0)
	if !ok {
		r.logger.Warn("malformed /patch/remove, dropped")
		return
	}
	if err := r.stage.remove(id); err != nil {
		r.logger.Warn("/patch/remove rejected", "err", err)
	}
}

func (r *Router) handlePatchCommit() {
	spec := r.stage.snapshot()
	if err := r.sv.Commit(spec); err != nil {
		r.logger.Error("patch commit failed", "err", err)
		r.reply("/patch/commit/error", err.Error())
		return
	}
	r.stage.markCommitted(spec)
	r.logger.Info("patch committed", "modules", len(spec.Modules))
}

func (r *Router) handlePatchAbort() {
	r.sv.Abort()
	r.stage.abort()
}

func (r *Router) handleRecordStart(msg *osc.Message) {
	name, _ := argString(msg, 0)
	if err := r.sv.StartRecording(name); err != nil {
		r.logger.Warn("/record/start failed", "err", err)
	}
}

func (r *Router) handleRecordStop() {
	r.sv.StopRecording()
}

func (r *Router) handleRecordStatus() {
	r.reply("/record/status", r.sv.Status().AsOSCArgs()...)
}

func (r *Router) handleEngineStatus() {
	r.reply("/engine/status", r.sv.Status().AsOSCArgs()...)
}

func (r *Router) handleSeqAdd(msg *osc.Message) {
	trackID, ok1 := argString(msg, 0)
	voiceID, ok2 := argString(msg, 1)
	pattern, ok3 := argString(msg, 2)
	if !ok1 || !ok2 || !ok3 {
		r.logger.Warn("malformed /seq/add, dropped")
		return
	}
	var baseFreq, filterFreq float32
	if v, ok := argFloat32(msg, 3); ok {
		baseFreq = v
	}
	if v, ok := argFloat32(msg, 4); ok {
		filterFreq = v
	}
	var notes []float32
	if s, ok := argString(msg, 5); ok && s != "" {
		parsed, err := ParseNoteList(s)
		if err != nil {
			r.logger.Warn("/seq/add notes rejected", "err", err)
		} else {
			notes = parsed
		}
	}
	if err := r.seq.AddTrack(trackID, voiceID, pattern, baseFreq, filterFreq, notes); err != nil {
		r.logger.Warn("/seq/add rejected", "err", err)
	}
}

func (r *Router) handleSeqRemove(msg *osc.Message) {
	id, ok := argString(msg, 0)
	if !ok {
		return
	}
	r.seq.RemoveTrack(id)
}

func (r *Router) handleSeqBPM(msg *osc.Message) {
	v, ok := argFloat32(msg, 0)
	if !ok {
		return
	}
	if err := r.seq.SetBPM(float64(v)); err != nil {
		r.logger.Warn("/seq/bpm rejected", "err", err)
	}
}

func (r *Router) handleSeqSwing(msg *osc.Message) {
	v, ok := argFloat32(msg, 0)
	if !ok {
		return
	}
	if err := r.seq.SetSwing(float64(v)); err != nil {
		r.logger.Warn("/seq/swing rejected", "err", err)
	}
}

func (r *Router) handleSeqUpdatePattern(msg *osc.Message) {
	id, ok1 := argString(msg, 0)
	pattern, ok2 := argString(msg, 1)
	if !ok1 || !ok2 {
		return
	}
	if err := r.seq.UpdatePattern(id, pattern); err != nil {
		r.logger.Warn("/seq/update/pattern rejected", "err", err)
	}
}

func (r *Router) handleSeqUpdateNotes(msg *osc.Message) {
	id, ok1 := argString(msg, 0)
	csv, ok2 := argString(msg, 1)
	if !ok1 || !ok2 {
		return
	}
	notes, err := ParseNoteList(csv)
	if err != nil {
		r.logger.Warn("/seq/update/notes rejected", "err", err)
		return
	}
	if err := r.seq.UpdateNotes(id, notes); err != nil {
		r.logger.Warn("/seq/update/notes rejected", "err", err)
	}
}

func (r *Router) reply(addr string, args ...interface{}) {
	msg := osc.NewMessage(addr)
	for _, a := range args {
		msg.Append(a)
	}
	_ = r.replyClient.Send(msg)
}

func argString(msg *osc.Message, i int) (string, bool) {
	if i >= len(msg.Arguments) {
		return "", false
	}
	s, ok := msg.Arguments[i].(string)
	return s, ok
}

// argFloat32 accepts any of go-osc's numeric argument types so a
// sender that sends an OSC int where a float is expected still works.
func argFloat32(msg *osc.Message, i int) (float32, bool) {
	if i >= len(msg.Arguments) {
		return 0, false
	}
	switch v := msg.Arguments[i].(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	case int32:
		return float32(v), true
	case int64:
		return float32(v), true
	default:
		return 0, false
	}
}
