package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/workout/internal/logging"
	"github.com/spf13/pflag"
)

// StoreFactory opens the object store for a command. Tests swap in a fake.
type StoreFactory func(ctx context.Context, opts S3Options) (ObjectStore, error)

// DefaultStoreFactory returns a real S3 client.
func DefaultStoreFactory(ctx context.Context, opts S3Options) (ObjectStore, error) {
	return NewS3Client(ctx, opts)
}

const usage = `Usage: deploy <command> [flags]

Commands:
  api        zip the API files and upload the bundle
  frontend   upload a static site directory
  env        write the frontend production env file

Run 'deploy <command> --help' for command flags.
`

// Run executes one deploy command. args excludes the program name.
func Run(ctx context.Context, args []string, stdout io.Writer, stores StoreFactory) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "api":
		return runAPI(ctx, rest, stdout, stores)
	case "frontend":
		return runFrontend(ctx, rest, stdout, stores)
	case "env":
		return runEnv(rest, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	fmt.Fprint(stdout, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

type commonFlags struct {
	bucket   string
	s3       S3Options
	logLevel string
}

func (c *commonFlags) add(fs *pflag.FlagSet) {
	fs.StringVar(&c.bucket, "bucket", "", "target S3 bucket (required)")
	fs.StringVar(&c.s3.Region, "region", "", "AWS region (default from the AWS config chain)")
	fs.StringVar(&c.s3.Endpoint, "endpoint", "", "S3-compatible endpoint URL, e.g. http://localhost:9000")
	fs.StringVar(&c.s3.AccessKey, "access-key", "", "static access key id (with --secret-key; default from the AWS credential chain)")
	fs.StringVar(&c.s3.SecretKey, "secret-key", "", "static secret access key")
	fs.StringVar(&c.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func (c *commonFlags) open(ctx context.Context, stores StoreFactory) (ObjectStore, error) {
	if c.bucket == "" {
		return nil, errors.New("--bucket is required")
	}
	if (c.s3.AccessKey == "") != (c.s3.SecretKey == "") {
		return nil, errors.New("--access-key and --secret-key must be given together")
	}
	return stores(ctx, c.s3)
}

// parse handles --help uniformly: it prints the flags and reports done.
func parse(fs *pflag.FlagSet, args []string, stdout io.Writer) (done bool, err error) {
	fs.SetOutput(stdout)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func runAPI(ctx context.Context, args []string, stdout io.Writer, stores StoreFactory) error {
	var (
		c     commonFlags
		key   string
		files []string
	)
	fs := pflag.NewFlagSet("deploy api", pflag.ContinueOnError)
	c.add(fs)
	fs.StringVar(&key, "key", DefaultBundleKey, "object key of the bundle")
	fs.StringSliceVar(&files, "file", nil, "file to include; repeat or comma-separate")

	if done, err := parse(fs, args, stdout); done || err != nil {
		return err
	}
	files = append(files, fs.Args()...)
	if len(files) == 0 {
		return errors.New("at least one --file is required")
	}

	store, err := c.open(ctx, stores)
	if err != nil {
		return err
	}
	logger := logging.NewText(stdout, c.logLevel).With("command", "api")
	return DeployAPI(ctx, store, c.bucket, key, files, logger)
}

func runFrontend(ctx context.Context, args []string, stdout io.Writer, stores StoreFactory) error {
	var (
		c     commonFlags
		dir   string
		prune bool
	)
	fs := pflag.NewFlagSet("deploy frontend", pflag.ContinueOnError)
	c.add(fs)
	fs.StringVar(&dir, "dir", "out", "directory holding the built site")
	fs.BoolVar(&prune, "delete", false, "delete bucket objects with no local counterpart")

	if done, err := parse(fs, args, stdout); done || err != nil {
		return err
	}

	store, err := c.open(ctx, stores)
	if err != nil {
		return err
	}
	logger := logging.NewText(stdout, c.logLevel).With("command", "frontend")
	_, err = SyncDir(ctx, store, c.bucket, dir, prune, logger)
	return err
}

func runEnv(args []string, stdout io.Writer) error {
	var (
		env FrontendEnv
		out string
	)
	fs := pflag.NewFlagSet("deploy env", pflag.ContinueOnError)
	fs.StringVar(&env.UserPoolID, "pool", "", "Cognito user pool id")
	fs.StringVar(&env.ClientID, "client", "", "Cognito app client id")
	fs.StringVar(&env.APIURL, "api-url", "", "public base URL of the API")
	fs.StringVar(&out, "out", ".env.production", "file to write")

	if done, err := parse(fs, args, stdout); done || err != nil {
		return err
	}

	if err := WriteFrontendEnv(out, env); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Created %s\n  API URL: %s\n", out, env.APIURL)
	return nil
}
