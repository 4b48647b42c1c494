package extract_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"omdbetl/internal/extract"
	"omdbetl/internal/pkg/omdb"
	"omdbetl/internal/testhelpers"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeFetcher replays scripted results per identifier and records calls.
type fakeFetcher struct {
	results map[string][]error
	calls   []string
	events  *[]string
}

func newFakeFetcher(events *[]string) *fakeFetcher {
	return &fakeFetcher{results: map[string][]error{}, events: events}
}

// failThen makes the first len(errs) attempts for id fail with errs.
func (f *fakeFetcher) failThen(id string, errs ...error) {
	f.results[id] = errs
}

func (f *fakeFetcher) Fetch(ctx context.Context, id string) (*omdb.RawMovie, error) {
	f.calls = append(f.calls, id)
	if f.events != nil {
		*f.events = append(*f.events, "fetch:"+id)
	}
	if errs := f.results[id]; len(errs) > 0 {
		f.results[id] = errs[1:]
		return nil, errs[0]
	}
	return omdb.NewRawMovie([]byte(fmt.Sprintf(`{"imdbID":%q,"Title":"Movie %s"}`, id, id)))
}

var _ = Describe("Extractor", func() {
	var (
		events  []string
		sleeps  []time.Duration
		fetcher *fakeFetcher
		ex      *extract.Extractor
		ctx     context.Context
	)

	BeforeEach(func() {
		events = nil
		sleeps = nil
		fetcher = newFakeFetcher(&events)
		ex = extract.New(fetcher, 300*time.Millisecond, 2, 600*time.Millisecond, nil)
		ex.Sleep = func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			events = append(events, fmt.Sprintf("sleep:%s", d))
			return nil
		}
		ctx = context.Background()
	})

	Describe("CleanIdentifiers", func() {
		It("trims, drops blanks and keeps first occurrences in order", func() {
			Expect(extract.CleanIdentifiers([]string{" tt2 ", "", "tt1", "tt2", "   ", "tt3", "tt1 "})).
				To(Equal([]string{"tt2", "tt1", "tt3"}))
		})

		It("returns an empty list for no input", func() {
			Expect(extract.CleanIdentifiers(nil)).To(BeEmpty())
		})
	})

	It("fetches each unique identifier once, in order, pausing between them", func() {
		raw, err := ex.Extract(ctx, []string{"tt1", " tt2", "tt1", "", "tt3"})
		Expect(err).NotTo(HaveOccurred())

		Expect(raw).To(HaveLen(3))
		Expect(raw[0].Get("imdbID")).To(Equal("tt1"))
		Expect(raw[1].Get("imdbID")).To(Equal("tt2"))
		Expect(raw[2].Get("imdbID")).To(Equal("tt3"))
		Expect(fetcher.calls).To(Equal([]string{"tt1", "tt2", "tt3"}))
		Expect(events).To(Equal([]string{
			"fetch:tt1", "sleep:300ms", "fetch:tt2", "sleep:300ms", "fetch:tt3",
		}))
	})

	It("does not pause when the delay is zero", func() {
		ex.Delay = 0
		_, err := ex.Extract(ctx, []string{"tt1", "tt2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(sleeps).To(BeEmpty())
	})

	It("returns nothing for an empty list", func() {
		raw, err := ex.Extract(ctx, []string{" ", ""})
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(BeEmpty())
		Expect(fetcher.calls).To(BeEmpty())
	})

	It("retries transient failures with linear backoff", func() {
		fetcher.failThen("tt1", errors.New("connection reset"), omdb.ErrMalformedResponse)

		raw, err := ex.Extract(ctx, []string{"tt1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(HaveLen(1))
		Expect(fetcher.calls).To(Equal([]string{"tt1", "tt1", "tt1"}))
		Expect(sleeps).To(Equal([]time.Duration{600 * time.Millisecond, 1200 * time.Millisecond}))
	})

	It("wraps the last cause once retries are exhausted", func() {
		cause := errors.New("i/o timeout")
		fetcher.failThen("tt9", errors.New("first"), errors.New("second"), cause)

		raw, err := ex.Extract(ctx, []string{"tt1", "tt9", "tt2"})
		Expect(raw).To(BeNil())

		var fetchErr *extract.FetchError
		Expect(errors.As(err, &fetchErr)).To(BeTrue())
		Expect(fetchErr.ID).To(Equal("tt9"))
		Expect(fetchErr.Attempts).To(Equal(3))
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(Equal("network/parse failure fetching tt9: i/o timeout"))
		Expect(fetcher.calls).To(Equal([]string{"tt1", "tt9", "tt9", "tt9"}))
	})

	It("does not retry logical failures and aborts the extraction", func() {
		fetcher.failThen("tt0", &omdb.APIError{ID: "tt0", Message: "Incorrect IMDb ID."})

		raw, err := ex.Extract(ctx, []string{"tt1", "tt0", "tt2"})
		Expect(raw).To(BeNil())
		Expect(extract.IsLogical(err)).To(BeTrue())
		Expect(err).To(MatchError("OMDb error for tt0: Incorrect IMDb ID."))
		Expect(fetcher.calls).To(Equal([]string{"tt1", "tt0"}))
		Expect(sleeps).To(Equal([]time.Duration{300 * time.Millisecond}))
	})

	It("treats a negative retry count as a single attempt", func() {
		ex.MaxRetries = -1
		fetcher.failThen("tt1", errors.New("boom"))

		_, err := ex.Extract(ctx, []string{"tt1"})
		var fetchErr *extract.FetchError
		Expect(errors.As(err, &fetchErr)).To(BeTrue())
		Expect(fetchErr.Attempts).To(Equal(1))
	})

	It("stops waiting when the context is cancelled", func() {
		ex.Sleep = nil
		ex.Delay = time.Hour
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := ex.Extract(cctx, []string{"tt1", "tt2"})
		Expect(err).To(MatchError(context.Canceled))
		Expect(fetcher.calls).To(Equal([]string{"tt1"}))
	})

	Context("against the OMDb client", func() {
		var client *omdb.Client

		BeforeEach(func() {
			testhelpers.Activate()
			client = omdb.New("test-omdb-api-key", "https://www.omdbapi.com/", time.Second)
			client.UseDefaultClient()
			ex.Fetcher = client
		})

		AfterEach(func() {
			testhelpers.Deactivate()
		})

		It("gives up after three timeouts with max_retries=2", func() {
			exp := testhelpers.New("https://www.omdbapi.com").
				Get("/?i=tt0111161&plot=short").
				ReplyError(testhelpers.ErrTimeout).
				Times(3)

			_, err := ex.Extract(ctx, []string{"tt0111161"})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("tt0111161"))
			Expect(err.Error()).To(ContainSubstring("i/o timeout"))
			Expect(exp.Hits()).To(Equal(3))
			Expect(testhelpers.IsDone()).To(BeTrue())
		})

		It("recovers when a retry succeeds", func() {
			testhelpers.New("https://www.omdbapi.com").
				Get("/?i=tt0111161").
				Reply(502).
				BodyString("Bad Gateway")
			testhelpers.New("https://www.omdbapi.com").
				Get("/?i=tt0111161").
				Reply(200).
				Body(testhelpers.MustLoadFixture("tt0111161.json"))

			raw, err := ex.Extract(ctx, []string{"tt0111161"})
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(HaveLen(1))
			Expect(raw[0].Get("Title")).To(Equal("The Shawshank Redemption"))
			Expect(sleeps).To(Equal([]time.Duration{600 * time.Millisecond}))
		})

		It("retries a body with trailing data", func() {
			garbled := testhelpers.New("https://www.omdbapi.com").
				Get("/?i=tt0111161").
				Reply(200).
				BodyString(`{"imdbID":"tt0111161","Title":"X","Response":"True"} <html>oops`)
			testhelpers.New("https://www.omdbapi.com").
				Get("/?i=tt0111161").
				Reply(200).
				Body(testhelpers.MustLoadFixture("tt0111161.json"))

			raw, err := ex.Extract(ctx, []string{"tt0111161"})
			Expect(err).NotTo(HaveOccurred())
			Expect(garbled.Hits()).To(Equal(1))
			Expect(raw).To(HaveLen(1))
			Expect(json.Valid(raw[0].Body)).To(BeTrue())
			Expect(raw[0].Get("Title")).To(Equal("The Shawshank Redemption"))
		})

		It("fails fast on an OMDb rejection", func() {
			exp := testhelpers.New("https://www.omdbapi.com").
				Get("/?i=tt0000000").
				Reply(200).
				Body(testhelpers.MustLoadFixture("not_found.json")).
				Times(3)

			_, err := ex.Extract(ctx, []string{"tt0000000"})
			Expect(extract.IsLogical(err)).To(BeTrue())
			Expect(exp.Hits()).To(Equal(1))
		})
	})
})
