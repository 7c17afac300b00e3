package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/textsumlab/sumpipe/pkg/pipeline"
	"github.com/textsumlab/sumpipe/pkg/version"
)

const ErrExitCode = 1

func main() {
	if err := NewSumpipeCmd().Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(ErrExitCode)
	}
}

func NewSumpipeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sumpipe",
		Short:        "text summarization data pipeline",
		Version:      version.Get().String(),
		SilenceUsage: true,
	}
	cmd.AddCommand(
		NewRunCmd(),
		NewIngestCmd(),
		NewTransformCmd(),
		NewConfigCmd(),
		NewRunsCmd(),
	)
	return cmd
}

func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	ctx = logr.NewContext(ctx, stdr.NewWithOptions(log.Default(), stdr.Options{LogCaller: stdr.Error}))
	return ctx, cancel
}

func bindPipelineFlags(cmd *cobra.Command, options *pipeline.Options) {
	flags := cmd.Flags()
	flags.StringVar(&options.ConfigFile, "config", options.ConfigFile, "config document path")
	flags.StringVar(&options.ParamsFile, "params", options.ParamsFile, "params document path")
	flags.StringVar(&options.ArtifactsRoot, "artifacts-root", options.ArtifactsRoot, "artifacts base directory")
	flags.StringVar(&options.LedgerPath, "ledger", options.LedgerPath, "run ledger path")
	flags.StringVar(&options.Run, "run", options.Run, "run timestamp to operate on, empty starts a new run")
	flags.StringVar(&options.S3.Bucket, "s3-bucket", options.S3.Bucket, "s3 bucket, defaults to s3_handler.bucket_name")
	flags.StringVar(&options.S3.URL, "s3-url", options.S3.URL, "s3 endpoint url")
	flags.StringVar(&options.S3.AccessKey, "s3-access-key", options.S3.AccessKey, "s3 access key")
	flags.StringVar(&options.S3.SecretKey, "s3-secret-key", options.S3.SecretKey, "s3 secret key")
	flags.StringVar(&options.S3.Region, "s3-region", options.S3.Region, "s3 region")
}
