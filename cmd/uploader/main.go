// Command uploader sends local files or the objects under a bucket prefix to
// the image backend, one at a time, and prints each outcome.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memorylens/internal/api"
	"memorylens/internal/config"
	"memorylens/internal/model"
	"memorylens/internal/notify"
	"memorylens/internal/session"
	"memorylens/internal/source"
	"memorylens/internal/store"
	"memorylens/internal/upload"
)

const tokenEnv = "MEMORYLENS_TOKEN"

func main() {
	bucket := flag.String("bucket", "", "upload objects from this MinIO/S3 bucket instead of local paths")
	prefix := flag.String("prefix", "", "object key prefix within -bucket")
	subject := flag.String("subject", "", "mint a token for this subject with SESSION_SECRET when "+tokenEnv+" is unset")
	ttl := flag.Duration("ttl", 15*time.Minute, "lifetime of minted tokens")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := collect(ctx, cfg, *bucket, *prefix, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	if len(files) == 0 {
		log.Fatal("nothing to upload: pass file or directory paths, or -bucket")
	}

	tokens, err := tokenSource(cfg, *subject, *ttl)
	if err != nil {
		log.Fatal(err)
	}

	client := api.New(cfg.APIBaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithUploadTimeout(cfg.UploadTimeout),
	)
	st := store.New(client,
		store.WithTokens(tokens),
		store.WithNotifier(notify.Log{}),
		store.WithObserver(store.ObserverFunc(func(p model.UploadProgress) {
			if p.Status == model.UploadUploading {
				log.Printf("upload_progress filename=%q progress=%d", p.Filename, p.Progress)
			}
		})),
	)

	batch := upload.NewFlow(st).HandleFiles(ctx, files)
	for _, o := range batch.Outcomes {
		if o.Result.Success {
			fmt.Printf("ok      %s -> %s\n", o.Filename, o.Result.Data.ID)
		} else {
			fmt.Printf("failed  %s: %v\n", o.Filename, o.Result.Err)
		}
	}
	for _, name := range batch.Skipped {
		fmt.Printf("skipped %s: not an image\n", name)
	}
	for _, name := range batch.Pending {
		fmt.Printf("pending %s: interrupted\n", name)
	}

	sum := upload.Summarize(st.Snapshot().Uploads)
	fmt.Printf("%d uploaded, %d failed, %d skipped, %d pending\n",
		sum.Complete, sum.Failed, len(batch.Skipped), len(batch.Pending))

	if batch.Failed() > 0 || len(batch.Pending) > 0 || len(batch.Outcomes) == 0 {
		os.Exit(1)
	}
}

func collect(ctx context.Context, cfg *config.Config, bucket, prefix string, paths []string) ([]model.File, error) {
	if bucket == "" {
		return source.Paths(paths)
	}
	b, err := source.NewBucket(source.BucketConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		UseSSL:    cfg.Minio.UseSSL,
		Region:    cfg.Minio.Region,
		Bucket:    bucket,
	})
	if err != nil {
		return nil, err
	}
	return b.List(ctx, prefix)
}

func tokenSource(cfg *config.Config, subject string, ttl time.Duration) (session.TokenSource, error) {
	if tok := os.Getenv(tokenEnv); tok != "" {
		return session.StaticToken(tok), nil
	}
	if subject == "" {
		return nil, errors.New(tokenEnv + " is empty and -subject was not given")
	}
	return session.NewMinted(cfg.SessionSecret, subject, ttl), nil
}
