package main

import (
	"os"
	"os/signal"
	"syscall"

	clipsRepository "github.com/amankumarsingh77/clipflow/internal/clips/repository"
	clipsUsecase "github.com/amankumarsingh77/clipflow/internal/clips/usecase"
	jobsRepository "github.com/amankumarsingh77/clipflow/internal/jobs/repository"
	jobsUsecase "github.com/amankumarsingh77/clipflow/internal/jobs/usecase"
	"github.com/amankumarsingh77/clipflow/internal/media"
	storageRepository "github.com/amankumarsingh77/clipflow/internal/storage/repository"
	uploadsUsecase "github.com/amankumarsingh77/clipflow/internal/uploads/usecase"
	videoRepository "github.com/amankumarsingh77/clipflow/internal/videofiles/repository"
	videoUsecase "github.com/amankumarsingh77/clipflow/internal/videofiles/usecase"
	"github.com/amankumarsingh77/clipflow/internal/worker"
	"github.com/spf13/cobra"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume pipeline jobs and expire stale uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := ctx.connect(runCtx, true)
			if err != nil {
				return err
			}
			defer d.Close()

			cfg, log := ctx.config, ctx.logger
			if concurrency > 0 {
				cfg.Worker.WorkerCount = concurrency
			}
			vRepo := videoRepository.NewVideoRepo(d.db)
			cRepo := clipsRepository.NewClipRepo(d.db)
			store := storageRepository.NewAwsRepository(d.s3Client, d.presignClient, cfg.S3.PublicBaseURL)
			jobsUC := jobsUsecase.NewJobsUseCase(cfg, jobsRepository.NewJobsRedisRepo(d.redis, cfg.Queue), log)
			videoUC := videoUsecase.NewVideoUseCase(cfg, vRepo, cRepo, store, jobsUC, log)
			clipsUC := clipsUsecase.NewClipsUseCase(cfg, cRepo, store, jobsUC, log)
			uploadUC := uploadsUsecase.NewUploadUseCase(cfg, vRepo, store, jobsUC, log)

			handler := worker.NewStageHandler(cfg, videoUC, clipsUC, jobsUC, media.NewCommandExecutor(cfg, log), log)
			w := worker.NewWorker(cfg, jobsUC, uploadUC, handler, log)
			w.Start(runCtx)
			<-runCtx.Done()
			log.Info("Shutting down worker")
			w.Wait()
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Override Worker.WorkerCount")
	return cmd
}
