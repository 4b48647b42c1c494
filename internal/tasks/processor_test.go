package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"omdbetl/internal/config"
	"omdbetl/internal/models"
	"omdbetl/internal/tasks"
	"omdbetl/internal/testhelpers"

	"github.com/hibiken/asynq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	cfg, err := config.LoadConfig()
	Expect(err).NotTo(HaveOccurred())
	cfg.OMDbBaseURL = config.DefaultOMDbBaseURL
	cfg.RequestDelay = 0
	cfg.RetryBackoff = 0
	cfg.MaxRetries = 2
	return cfg
}

var _ = Describe("NewRunPipelineTask", func() {
	It("carries the identifiers", func() {
		task, err := tasks.NewRunPipelineTask([]string{"tt0111161", "tt0068646"}, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(task.Type()).To(Equal(tasks.TypeTaskRunPipeline))

		var payload tasks.RunPipelinePayload
		Expect(json.Unmarshal(task.Payload(), &payload)).To(Succeed())
		Expect(payload.IDs).To(Equal([]string{"tt0111161", "tt0068646"}))
		Expect(payload.InputPath).To(BeEmpty())
	})
})

var _ = Describe("HandleRunPipelineTask", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("does not retry a malformed payload", func() {
		p := tasks.NewTaskProcessor(nil, testConfig(), nil)

		err := p.HandleRunPipelineTask(ctx, asynq.NewTask(tasks.TypeTaskRunPipeline, []byte("{")))
		Expect(errors.Is(err, asynq.SkipRetry)).To(BeTrue())
	})

	It("does not retry a missing input file", func() {
		p := tasks.NewTaskProcessor(nil, testConfig(), nil)
		path := filepath.Join(GinkgoT().TempDir(), "missing.txt")

		task, err := tasks.NewRunPipelineTask(nil, path)
		Expect(err).NotTo(HaveOccurred())

		err = p.HandleRunPipelineTask(ctx, task)
		Expect(err).To(MatchError(ContainSubstring("input file not found: " + path)))
		Expect(errors.Is(err, asynq.SkipRetry)).To(BeTrue())
	})

	Context("with a database", func() {
		var (
			dbConn *gorm.DB
			p      *tasks.TaskProcessor
		)

		BeforeEach(func() {
			dbConn = testhelpers.OpenTestDB()
			p = tasks.NewTaskProcessor(dbConn, testConfig(), nil)

			testhelpers.Activate()
			p.GetOMDbClient().UseDefaultClient()
		})

		AfterEach(func() {
			testhelpers.Deactivate()
		})

		It("loads movies and records a succeeded run", func() {
			testhelpers.New("https://www.omdbapi.com").
				Get("/?i=tt0111161&plot=short").
				Reply(200).
				Body(testhelpers.MustLoadFixture("tt0111161.json"))

			task, err := tasks.NewRunPipelineTask([]string{"tt0111161"}, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.HandleRunPipelineTask(ctx, task)).To(Succeed())
			Expect(testhelpers.IsDone()).To(BeTrue())

			movies, err := gorm.G[models.Movie](dbConn).Find(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(movies).To(HaveLen(1))
			Expect(movies[0].Title).To(Equal("The Shawshank Redemption"))

			runs, err := gorm.G[models.EtlRun](dbConn).Find(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].Status).To(Equal(models.RunStatusSucceeded))
			Expect(runs[0].RecordsExtracted).To(Equal(1))
			Expect(runs[0].RecordsLoaded).To(Equal(1))
		})

		It("reads identifiers from the input file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "ids.txt")
			Expect(os.WriteFile(path, []byte("tt0111161\n\n"), 0o644)).To(Succeed())

			testhelpers.New("https://www.omdbapi.com").
				Get("/?i=tt0111161").
				Reply(200).
				Body(testhelpers.MustLoadFixture("tt0111161.json"))

			task, err := tasks.NewRunPipelineTask(nil, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.HandleRunPipelineTask(ctx, task)).To(Succeed())

			count, err := gorm.G[models.Movie](dbConn).Count(ctx, "imdb_id")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("records a rejected identifier as a failed run without retrying", func() {
			testhelpers.New("https://www.omdbapi.com").
				Get("/?i=tt0000000").
				Reply(200).
				Body(testhelpers.MustLoadFixture("not_found.json"))

			task, err := tasks.NewRunPipelineTask([]string{"tt0000000"}, "")
			Expect(err).NotTo(HaveOccurred())

			err = p.HandleRunPipelineTask(ctx, task)
			Expect(errors.Is(err, asynq.SkipRetry)).To(BeTrue())

			count, err := gorm.G[models.Movie](dbConn).Count(ctx, "imdb_id")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())

			runs, err := gorm.G[models.EtlRun](dbConn).Find(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].Status).To(Equal(models.RunStatusFailed))
			Expect(runs[0].RecordsLoaded).To(BeZero())
			Expect(runs[0].ErrorMessage).To(HaveValue(ContainSubstring("tt0000000")))
			Expect(runs[0].FinishedAt).NotTo(BeNil())
		})
	})
})
