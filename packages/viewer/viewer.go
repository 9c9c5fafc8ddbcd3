package viewer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
)

// NetworkErrorMessage is shown when a dispatch received no response.
const NetworkErrorMessage = "Couldn't connect to server"

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// CancelPolicy decides where Cancel leads from Loading.
type CancelPolicy string

const (
	// CancelRestore returns to the snapshot shown before loading, or Idle if none.
	CancelRestore CancelPolicy = "restore"
	// CancelReset always returns to Idle.
	CancelReset CancelPolicy = "reset"
)

// ParseCancelPolicy accepts "restore" and "reset"; empty means restore.
func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch CancelPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CancelRestore:
		return CancelRestore, nil
	case CancelReset:
		return CancelReset, nil
	default:
		return "", fmt.Errorf("unknown cancel policy %q (want restore or reset)", s)
	}
}

// View is an immutable rendering of the viewer state.
type View struct {
	Phase     Phase
	Snapshot  *dispatch.Snapshot
	Class     StatusClass
	CanCancel bool
	Message   string
}

func (v View) Loading() bool {
	return v.Phase == PhaseLoading
}

// Success reports a settled view with an HTTP status, whatever its class.
func (v View) Success() bool {
	return v.Phase == PhaseSettled && v.Snapshot != nil && !v.Snapshot.NetworkError
}

// Failed reports a settled view without a response.
func (v View) Failed() bool {
	return v.Phase == PhaseSettled && v.Snapshot != nil && v.Snapshot.NetworkError
}

// Viewer is the response pane state machine: Idle -> Loading -> Settled.
type Viewer struct {
	mu       sync.Mutex
	policy   CancelPolicy
	phase    Phase
	current  *dispatch.Snapshot
	previous *dispatch.Snapshot
}

func New(policy CancelPolicy) *Viewer {
	if policy == "" {
		policy = CancelRestore
	}
	return &Viewer{policy: policy}
}

// Show displays snap, or Idle when snap is nil, without any transition rules. It is used
// when the editor switches to another request.
func (v *Viewer) Show(snap *dispatch.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.previous = nil
	v.current = copySnapshot(snap)
	if snap == nil {
		v.phase = PhaseIdle
	} else {
		v.phase = PhaseSettled
	}
}

// StartLoading enters Loading, remembering what was shown for a restoring cancel.
// Calling it while already loading keeps the remembered snapshot.
func (v *Viewer) StartLoading() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.phase != PhaseLoading {
		v.previous = v.current
	}
	v.current = nil
	v.phase = PhaseLoading
}

// Settle leaves Loading with snap. It reports false, changing nothing, when the viewer
// is not loading.
func (v *Viewer) Settle(snap dispatch.Snapshot) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.phase != PhaseLoading {
		return false
	}
	v.current = copySnapshot(&snap)
	v.previous = nil
	v.phase = PhaseSettled
	return true
}

// Cancel leaves Loading according to the policy. It reports false when not loading.
func (v *Viewer) Cancel() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.phase != PhaseLoading {
		return false
	}
	if v.policy == CancelRestore && v.previous != nil {
		v.current = v.previous
		v.phase = PhaseSettled
	} else {
		v.current = nil
		v.phase = PhaseIdle
	}
	v.previous = nil
	return true
}

func (v *Viewer) View() View {
	v.mu.Lock()
	defer v.mu.Unlock()

	view := View{Phase: v.phase, CanCancel: v.phase == PhaseLoading}
	if v.phase != PhaseSettled || v.current == nil {
		return view
	}
	view.Snapshot = copySnapshot(v.current)
	view.Class = Classify(v.current.HTTPStatus)
	if v.current.NetworkError {
		view.Class = ClassError
		view.Message = NetworkErrorMessage
	}
	return view
}

func copySnapshot(s *dispatch.Snapshot) *dispatch.Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
