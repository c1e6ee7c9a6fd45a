package download

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lensvault/lensvault_server/internal/archive"
	"github.com/lensvault/lensvault_server/internal/pinauth"
	"github.com/lensvault/lensvault_server/internal/portfolio"
	"github.com/rs/zerolog/log"
)

// ProgressPublisher receives archive progress updates for a session. The
// websocket hub implements it; a nil publisher just drops them.
type ProgressPublisher interface {
	PublishProgress(sessionID string, update archive.ProgressUpdate)
}

// requestState is the router's per-session bookkeeping: the target parked
// while PIN authorization runs, and whether an archive job is in flight.
type requestState struct {
	pending   *Target
	jobActive bool
}

type Router struct {
	retriever archive.Retriever
	assembler *archive.Assembler
	config    Config
	publisher ProgressPublisher

	mu     sync.Mutex
	states map[string]*requestState
}

func NewRouter(retriever archive.Retriever, assembler *archive.Assembler, config Config) *Router {
	return &Router{
		retriever: retriever,
		assembler: assembler,
		config:    config,
		states:    make(map[string]*requestState),
	}
}

func (r *Router) SetProgressPublisher(p ProgressPublisher) {
	r.publisher = p
}

// Plan returns the routing verdict for a target without performing any I/O
// and without touching session state.
func (r *Router) Plan(sess *pinauth.Session, caps Capabilities, item *portfolio.Item, target Target) (Decision, error) {
	if sess.State.Required && !sess.State.Granted && !caps.Admin {
		return Decision{Kind: DecisionPinRequired}, nil
	}

	if !target.All {
		if target.Index < 0 || target.Index >= len(item.Media) {
			return Decision{}, ErrIndexInvalid
		}
		d := item.Media[target.Index]
		if isExternalVideo(d, r.config.ExternalVideoHosts) {
			return Decision{Kind: DecisionRedirect, RedirectURL: d.SourceURL}, nil
		}
		return Decision{Kind: DecisionSingle, Index: target.Index}, nil
	}

	if len(item.Media) == 0 {
		return Decision{Kind: DecisionNone}, nil
	}
	// A portfolio whose only asset is an externally hosted video degrades to
	// the same navigation behavior as a single-asset request; no empty
	// archive is ever produced.
	if len(item.Media) == 1 && isExternalVideo(item.Media[0], r.config.ExternalVideoHosts) {
		return Decision{Kind: DecisionRedirect, RedirectURL: item.Media[0].SourceURL}, nil
	}
	return Decision{Kind: DecisionArchive}, nil
}

// Request executes a download request against a session. When PIN
// authorization is still outstanding the target is parked on the session and
// nothing else happens; Resume replays it after a grant.
func (r *Router) Request(ctx context.Context, sess *pinauth.Session, caps Capabilities, item *portfolio.Item, target Target, sink SaveSink) (Outcome, error) {
	decision, err := r.Plan(sess, caps, item, target)
	if err != nil {
		return Outcome{}, err
	}

	switch decision.Kind {
	case DecisionPinRequired:
		r.setPending(sess.ID, target)
		log.Debug().
			Str("sessionId", sess.ID).
			Str("portfolioId", item.ID).
			Msg("Download parked pending PIN authorization")
		return Outcome{Kind: OutcomePinRequired}, nil

	case DecisionRedirect:
		return Outcome{Kind: OutcomeRedirected, RedirectURL: decision.RedirectURL}, nil

	case DecisionNone:
		return Outcome{Kind: OutcomeNone}, nil

	case DecisionSingle:
		return r.saveSingle(ctx, item.Media[decision.Index], sink)

	case DecisionArchive:
		return r.saveArchive(ctx, sess, item, sink)
	}

	return Outcome{}, fmt.Errorf("unhandled decision kind %q", decision.Kind)
}

// Resume replays the target parked by a PIN-gated request. The pending slot
// is cleared first; a replay that parks itself again would mean the grant
// never happened.
func (r *Router) Resume(ctx context.Context, sess *pinauth.Session, caps Capabilities, item *portfolio.Item, sink SaveSink) (Outcome, error) {
	target, ok := r.takePending(sess.ID)
	if !ok {
		return Outcome{Kind: OutcomeNone}, nil
	}
	return r.Request(ctx, sess, caps, item, target, sink)
}

// PendingTarget peeks at the parked target without consuming it.
func (r *Router) PendingTarget(sessionID string) (Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, exists := r.states[sessionID]
	if !exists || st.pending == nil {
		return Target{}, false
	}
	return *st.pending, true
}

func (r *Router) saveSingle(ctx context.Context, d portfolio.MediaDescriptor, sink SaveSink) (Outcome, error) {
	result := r.retriever.Retrieve(ctx, d)
	if result.Failed() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrAssetUnavailable, result.Failure.Reason)
	}
	if err := sink.Save(d.SuggestedFilename, contentTypeFor(d.SuggestedFilename), result.Data); err != nil {
		return Outcome{}, fmt.Errorf("failed to save asset: %w", err)
	}
	return Outcome{Kind: OutcomeSaved}, nil
}

func (r *Router) saveArchive(ctx context.Context, sess *pinauth.Session, item *portfolio.Item, sink SaveSink) (Outcome, error) {
	if !r.tryStartJob(sess.ID) {
		return Outcome{}, ErrJobInFlight
	}
	defer r.endJob(sess.ID)

	media := r.archivable(item.Media)

	var onProgress func(archive.ProgressUpdate)
	if r.publisher != nil {
		sessionID := sess.ID
		onProgress = func(u archive.ProgressUpdate) {
			r.publisher.PublishProgress(sessionID, u)
		}
	}

	result, err := r.assembler.Build(ctx, media, onProgress)
	if err != nil {
		return Outcome{}, err
	}

	name := archive.ArchiveName(item.Title)
	if err := sink.Save(name, "application/zip", result.Archive); err != nil {
		return Outcome{}, fmt.Errorf("failed to save archive: %w", err)
	}
	return Outcome{Kind: OutcomeSaved, Failed: result.Failures}, nil
}

// archivable drops externally hosted videos from a build list; those are
// navigation targets, never file downloads.
func (r *Router) archivable(media []portfolio.MediaDescriptor) []portfolio.MediaDescriptor {
	result := make([]portfolio.MediaDescriptor, 0, len(media))
	for _, d := range media {
		if !isExternalVideo(d, r.config.ExternalVideoHosts) {
			result = append(result, d)
		}
	}
	return result
}

func (r *Router) stateFor(sessionID string) *requestState {
	st, exists := r.states[sessionID]
	if !exists {
		st = &requestState{}
		r.states[sessionID] = st
	}
	return st
}

func (r *Router) setPending(sessionID string, target Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := target
	r.stateFor(sessionID).pending = &t
}

func (r *Router) takePending(sessionID string) (Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.stateFor(sessionID)
	if st.pending == nil {
		return Target{}, false
	}
	target := *st.pending
	st.pending = nil
	return target, true
}

func (r *Router) tryStartJob(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.stateFor(sessionID)
	if st.jobActive {
		return false
	}
	st.jobActive = true
	return true
}

func (r *Router) endJob(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateFor(sessionID).jobActive = false
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}
