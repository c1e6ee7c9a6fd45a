package download

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lensvault/lensvault_server/internal/archive"
	"github.com/lensvault/lensvault_server/internal/fetch"
	"github.com/lensvault/lensvault_server/internal/pinauth"
	"github.com/lensvault/lensvault_server/internal/portfolio"
)

type stubRetriever struct {
	data    map[string][]byte
	blockCh chan struct{} // when set, Retrieve waits until closed
}

func (s *stubRetriever) Retrieve(ctx context.Context, d portfolio.MediaDescriptor) fetch.Result {
	if s.blockCh != nil {
		<-s.blockCh
	}
	result := fetch.Result{Descriptor: d}
	body, ok := s.data[d.SourceURL]
	if !ok {
		result.Failure = &fetch.Failure{Reason: fetch.ReasonNetwork, Err: fmt.Errorf("unreachable")}
		return result
	}
	result.Data = body
	return result
}

type memorySink struct {
	filename    string
	contentType string
	data        []byte
	saves       int
}

func (m *memorySink) Save(filename, contentType string, data []byte) error {
	m.filename = filename
	m.contentType = contentType
	m.data = data
	m.saves++
	return nil
}

type recordingPublisher struct {
	updates []archive.ProgressUpdate
}

func (r *recordingPublisher) PublishProgress(sessionID string, update archive.ProgressUpdate) {
	r.updates = append(r.updates, update)
}

func testConfig() Config {
	return Config{ExternalVideoHosts: []string{"youtube.com", "youtu.be", "vimeo.com"}}
}

func testItem(pinHash string, media ...portfolio.MediaDescriptor) *portfolio.Item {
	return &portfolio.Item{
		ID:      "portfolio-1",
		Title:   "Summer Wedding",
		Slug:    "summer-wedding",
		PinHash: pinHash,
		Media:   media,
	}
}

func image(url, filename string) portfolio.MediaDescriptor {
	return portfolio.MediaDescriptor{Kind: portfolio.KindImage, SourceURL: url, SuggestedFilename: filename}
}

func externalVideo(url string) portfolio.MediaDescriptor {
	return portfolio.MediaDescriptor{Kind: portfolio.KindVideo, SourceURL: url, SuggestedFilename: "video.mp4"}
}

func newTestRouter(retriever archive.Retriever) *Router {
	return NewRouter(retriever, archive.NewAssembler(retriever), testConfig())
}

func newSession(pinRequired bool) (*pinauth.Store, *pinauth.Session) {
	store := pinauth.NewStore(time.Hour)
	return store, store.Create("portfolio-1", pinRequired)
}

func TestRequest_ShouldParkTargetWhenPinOutstanding(t *testing.T) {
	// given
	retriever := &stubRetriever{data: map[string][]byte{"https://cdn/a": []byte("aaa")}}
	router := newTestRouter(retriever)
	_, sess := newSession(true)
	item := testItem("some-hash", image("https://cdn/a", "a.jpg"))
	sink := &memorySink{}

	// when
	outcome, err := router.Request(context.Background(), sess, Capabilities{}, item, SingleAsset(0), sink)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomePinRequired {
		t.Errorf("expected pin_required outcome, got %s", outcome.Kind)
	}
	if sink.saves != 0 {
		t.Error("expected no save before authorization")
	}
	target, pending := router.PendingTarget(sess.ID)
	if !pending || target.All || target.Index != 0 {
		t.Errorf("expected parked single target, got pending=%v target=%+v", pending, target)
	}
}

func TestResume_ShouldReplayParkedTargetAfterGrant(t *testing.T) {
	// given
	retriever := &stubRetriever{data: map[string][]byte{"https://cdn/a": []byte("aaa")}}
	router := newTestRouter(retriever)
	store, sess := newSession(true)
	item := testItem("some-hash", image("https://cdn/a", "a.jpg"))
	sink := &memorySink{}

	if _, err := router.Request(context.Background(), sess, Capabilities{}, item, SingleAsset(0), sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// when
	if err := store.Grant(sess.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome, err := router.Resume(context.Background(), sess, Capabilities{}, item, sink)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeSaved {
		t.Errorf("expected saved outcome, got %s", outcome.Kind)
	}
	if sink.filename != "a.jpg" || string(sink.data) != "aaa" {
		t.Errorf("unexpected save: %s %q", sink.filename, sink.data)
	}
	if _, pending := router.PendingTarget(sess.ID); pending {
		t.Error("expected pending target to be consumed")
	}
}

func TestResume_ShouldDoNothingWithoutParkedTarget(t *testing.T) {
	// given
	router := newTestRouter(&stubRetriever{})
	_, sess := newSession(false)
	item := testItem("", image("https://cdn/a", "a.jpg"))
	sink := &memorySink{}

	// when
	outcome, err := router.Resume(context.Background(), sess, Capabilities{}, item, sink)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeNone {
		t.Errorf("expected none outcome, got %s", outcome.Kind)
	}
	if sink.saves != 0 {
		t.Error("expected no save")
	}
}

func TestRequest_ShouldBypassPinForAdmin(t *testing.T) {
	// given
	retriever := &stubRetriever{data: map[string][]byte{"https://cdn/a": []byte("aaa")}}
	router := newTestRouter(retriever)
	_, sess := newSession(true)
	item := testItem("some-hash", image("https://cdn/a", "a.jpg"))
	sink := &memorySink{}

	// when
	outcome, err := router.Request(context.Background(), sess, Capabilities{Admin: true}, item, SingleAsset(0), sink)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeSaved {
		t.Errorf("expected saved outcome, got %s", outcome.Kind)
	}
}

func TestRequest_ShouldProceedWithoutPinRequirement(t *testing.T) {
	// given
	retriever := &stubRetriever{data: map[string][]byte{"https://cdn/a": []byte("aaa")}}
	router := newTestRouter(retriever)
	_, sess := newSession(false)
	item := testItem("", image("https://cdn/a", "a.jpg"))
	sink := &memorySink{}

	// when
	outcome, err := router.Request(context.Background(), sess, Capabilities{}, item, SingleAsset(0), sink)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeSaved {
		t.Errorf("expected saved outcome, got %s", outcome.Kind)
	}
	if sink.contentType != "image/jpeg" {
		t.Errorf("expected image/jpeg content type, got %s", sink.contentType)
	}
}

func TestRequest_ShouldRedirectExternalVideo(t *testing.T) {
	// given
	router := newTestRouter(&stubRetriever{})
	_, sess := newSession(false)
	item := testItem("",
		externalVideo("https://www.youtube.com/watch?v=abc"),
		image("https://cdn/a", "a.jpg"),
	)
	sink := &memorySink{}

	// when
	outcome, err := router.Request(context.Background(), sess, Capabilities{}, item, SingleAsset(0), sink)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeRedirected {
		t.Errorf("expected redirected outcome, got %s", outcome.Kind)
	}
	if outcome.RedirectURL != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("unexpected redirect URL: %s", outcome.RedirectURL)
	}
	if sink.saves != 0 {
		t.Error("expected no save for external video")
	}
}

func TestRequest_ShouldFailWhenSingleAssetUnreachable(t *testing.T) {
	// given
	router := newTestRouter(&stubRetriever{data: map[string][]byte{}})
	_, sess := newSession(false)
	item := testItem("", image("https://cdn/a", "a.jpg"))

	// when
	_, err := router.Request(context.Background(), sess, Capabilities{}, item, SingleAsset(0), &memorySink{})

	// then
	if !errors.Is(err, ErrAssetUnavailable) {
		t.Errorf("expected ErrAssetUnavailable, got %v", err)
	}
}

func TestRequest_ShouldRejectInvalidIndex(t *testing.T) {
	// given
	router := newTestRouter(&stubRetriever{})
	_, sess := newSession(false)
	item := testItem("", image("https://cdn/a", "a.jpg"))

	// when
	_, err := router.Request(context.Background(), sess, Capabilities{}, item, SingleAsset(5), &memorySink{})

	// then
	if !errors.Is(err, ErrIndexInvalid) {
		t.Errorf("expected ErrIndexInvalid, got %v", err)
	}
}

func TestRequest_DownloadAll_ShouldSaveArchiveWithFailures(t *testing.T) {
	// given
	retriever := &stubRetriever{data: map[string][]byte{
		"https://cdn/a": []byte("aaa"),
	}}
	router := newTestRouter(retriever)
	_, sess := newSession(false)
	item := testItem("",
		image("https://cdn/a", "a.jpg"),
		image("https://cdn/broken", "b.jpg"),
	)
	sink := &memorySink{}

	// when
	outcome, err := router.Request(context.Background(), sess, Capabilities{}, item, AllAssets(), sink)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeSaved {
		t.Errorf("expected saved outcome, got %s", outcome.Kind)
	}
	if len(outcome.Failed) != 1 || outcome.Failed[0].SuggestedFilename != "b.jpg" {
		t.Errorf("unexpected failures: %+v", outcome.Failed)
	}
	if sink.filename != "summer-wedding.zip" {
		t.Errorf("unexpected archive name: %s", sink.filename)
	}
	if sink.contentType != "application/zip" {
		t.Errorf("unexpected content type: %s", sink.contentType)
	}
}

func TestRequest_DownloadAll_ShouldExcludeExternalVideosFromArchive(t *testing.T) {
	// given
	retriever := &stubRetriever{data: map[string][]byte{
		"https://cdn/a": []byte("aaa"),
	}}
	router := newTestRouter(retriever)
	_, sess := newSession(false)
	publisher := &recordingPublisher{}
	router.SetProgressPublisher(publisher)
	item := testItem("",
		externalVideo("https://vimeo.com/12345"),
		image("https://cdn/a", "a.jpg"),
	)
	sink := &memorySink{}

	// when
	outcome, err := router.Request(context.Background(), sess, Capabilities{}, item, AllAssets(), sink)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeSaved {
		t.Errorf("expected saved outcome, got %s", outcome.Kind)
	}
	// Only the image counts toward the job; the external video is navigation.
	if len(publisher.updates) != 1 || publisher.updates[0].Total != 1 {
		t.Errorf("unexpected progress updates: %+v", publisher.updates)
	}
}

func TestRequest_DownloadAll_ShouldRedirectWhenOnlyAssetIsExternalVideo(t *testing.T) {
	// given
	router := newTestRouter(&stubRetriever{})
	_, sess := newSession(false)
	item := testItem("", externalVideo("https://youtu.be/abc"))
	sink := &memorySink{}

	// when
	outcome, err := router.Request(context.Background(), sess, Capabilities{}, item, AllAssets(), sink)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeRedirected {
		t.Errorf("expected redirected outcome, got %s", outcome.Kind)
	}
	if sink.saves != 0 {
		t.Error("expected no archive for a sole external video")
	}
}

func TestRequest_DownloadAll_ShouldDoNothingForEmptyPortfolio(t *testing.T) {
	// given
	router := newTestRouter(&stubRetriever{})
	_, sess := newSession(false)
	item := testItem("")
	sink := &memorySink{}

	// when
	outcome, err := router.Request(context.Background(), sess, Capabilities{}, item, AllAssets(), sink)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeNone {
		t.Errorf("expected none outcome, got %s", outcome.Kind)
	}
}

func TestRequest_DownloadAll_ShouldFailWhenEveryAssetUnreachable(t *testing.T) {
	// given
	router := newTestRouter(&stubRetriever{data: map[string][]byte{}})
	_, sess := newSession(false)
	item := testItem("",
		image("https://cdn/a", "a.jpg"),
		image("https://cdn/b", "b.jpg"),
	)

	// when
	_, err := router.Request(context.Background(), sess, Capabilities{}, item, AllAssets(), &memorySink{})

	// then
	if !errors.Is(err, archive.ErrAllFailed) {
		t.Errorf("expected ErrAllFailed, got %v", err)
	}
}

func TestRequest_DownloadAll_ShouldRejectConcurrentJob(t *testing.T) {
	// given
	blockCh := make(chan struct{})
	retriever := &stubRetriever{
		data:    map[string][]byte{"https://cdn/a": []byte("aaa"), "https://cdn/b": []byte("bbb")},
		blockCh: blockCh,
	}
	router := newTestRouter(retriever)
	_, sess := newSession(false)
	item := testItem("",
		image("https://cdn/a", "a.jpg"),
		image("https://cdn/b", "b.jpg"),
	)

	firstDone := make(chan error, 1)
	go func() {
		_, err := router.Request(context.Background(), sess, Capabilities{}, item, AllAssets(), &memorySink{})
		firstDone <- err
	}()

	// Wait until the first job holds the in-flight flag.
	deadline := time.After(time.Second)
	for {
		router.mu.Lock()
		active := router.states[sess.ID] != nil && router.states[sess.ID].jobActive
		router.mu.Unlock()
		if active {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first job never started")
		case <-time.After(time.Millisecond):
		}
	}

	// when
	_, err := router.Request(context.Background(), sess, Capabilities{}, item, AllAssets(), &memorySink{})

	// then
	if !errors.Is(err, ErrJobInFlight) {
		t.Errorf("expected ErrJobInFlight, got %v", err)
	}

	close(blockCh)
	if err := <-firstDone; err != nil {
		t.Fatalf("first job failed: %v", err)
	}

	// The flag clears once the job finishes.
	outcome, err := router.Request(context.Background(), sess, Capabilities{}, item, AllAssets(), &memorySink{})
	if err != nil {
		t.Fatalf("unexpected error after job completion: %v", err)
	}
	if outcome.Kind != OutcomeSaved {
		t.Errorf("expected saved outcome, got %s", outcome.Kind)
	}
}

func TestIsExternalVideo_ShouldMatchHostSuffixes(t *testing.T) {
	hosts := testConfig().ExternalVideoHosts

	cases := []struct {
		descriptor portfolio.MediaDescriptor
		expected   bool
	}{
		{externalVideo("https://www.youtube.com/watch?v=abc"), true},
		{externalVideo("https://youtu.be/abc"), true},
		{externalVideo("https://player.vimeo.com/video/1"), true},
		{externalVideo("https://cdn.example.com/clip.mp4"), false},
		{externalVideo("https://notyoutube.com/watch"), false},
		{image("https://www.youtube.com/frame.jpg", "frame.jpg"), false},
	}

	for _, c := range cases {
		if got := isExternalVideo(c.descriptor, hosts); got != c.expected {
			t.Errorf("isExternalVideo(%s) = %v, expected %v", c.descriptor.SourceURL, got, c.expected)
		}
	}
}
