package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lensvault/lensvault_server/internal/portfolio"
)

func testDescriptor(url string) portfolio.MediaDescriptor {
	return portfolio.MediaDescriptor{
		Kind:              portfolio.KindImage,
		SourceURL:         url,
		SuggestedFilename: "photo.jpg",
	}
}

func TestRetrieve_ShouldReturnBodyOnSuccess(t *testing.T) {
	// given
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()
	retriever := NewRetriever(Config{TimeoutSeconds: 5})

	// when
	result := retriever.Retrieve(context.Background(), testDescriptor(server.URL))

	// then
	if result.Failed() {
		t.Fatalf("unexpected failure: %+v", result.Failure)
	}
	if string(result.Data) != "image-bytes" {
		t.Errorf("unexpected body: %q", result.Data)
	}
}

func TestRetrieve_ShouldFailOnErrorStatus(t *testing.T) {
	// given
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	retriever := NewRetriever(Config{TimeoutSeconds: 5})

	// when
	result := retriever.Retrieve(context.Background(), testDescriptor(server.URL))

	// then
	if !result.Failed() {
		t.Fatal("expected failure")
	}
	if result.Failure.Reason != ReasonStatus {
		t.Errorf("expected status reason, got %s", result.Failure.Reason)
	}
	if result.Failure.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", result.Failure.Status)
	}
}

func TestRetrieve_ShouldFailOnEmptyBody(t *testing.T) {
	// given
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with no body
	}))
	defer server.Close()
	retriever := NewRetriever(Config{TimeoutSeconds: 5})

	// when
	result := retriever.Retrieve(context.Background(), testDescriptor(server.URL))

	// then
	if !result.Failed() {
		t.Fatal("expected failure")
	}
	if result.Failure.Reason != ReasonEmptyBody {
		t.Errorf("expected empty_body reason, got %s", result.Failure.Reason)
	}
}

func TestRetrieve_ShouldFailOnUnreachableHost(t *testing.T) {
	// given
	retriever := NewRetriever(Config{TimeoutSeconds: 1})

	// when
	result := retriever.Retrieve(context.Background(), testDescriptor("http://127.0.0.1:1/none"))

	// then
	if !result.Failed() {
		t.Fatal("expected failure")
	}
	if result.Failure.Reason != ReasonNetwork {
		t.Errorf("expected network reason, got %s", result.Failure.Reason)
	}
}

func TestRetrieve_ShouldFailWhenContextCancelled(t *testing.T) {
	// given
	retriever := NewRetriever(Config{TimeoutSeconds: 5})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when
	result := retriever.Retrieve(ctx, testDescriptor("http://127.0.0.1:1/none"))

	// then
	if !result.Failed() {
		t.Fatal("expected failure")
	}
	if result.Failure.Reason != ReasonCancelled {
		t.Errorf("expected cancelled reason, got %s", result.Failure.Reason)
	}
}
