package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/trinio-labs/bake/actioncache"
	"github.com/trinio-labs/bake/cachestrategy"
	"github.com/trinio-labs/bake/cas"
	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/hash"
)

// cacheDir returns the blob/manifest root: BAKE_CACHE_DIR if set,
// else the project's configured cache.dir, else
// <project root>/.bake/cache.
func cacheDir(project *config.Project, env map[string]string) string {
	if dir := env["BAKE_CACHE_DIR"]; dir != "" {
		return dir
	}
	if project.Cache.Dir != "" {
		return project.Cache.Dir
	}
	return filepath.Join(project.Root, ".bake", "cache")
}

// buildCacheStrategy wires the local blob tier plus any configured
// remote tiers into a cachestrategy.Strategy. --cache/--skip-cache
// override the project's configured mode.
func buildCacheStrategy(ctx context.Context, project *config.Project, env map[string]string) (*cachestrategy.Strategy, error) {
	mode, err := resolvedCacheMode(project.Cache.Mode)
	if err != nil {
		return nil, err
	}

	local, remotes, err := buildBlobTiers(ctx, project, env)
	if err != nil {
		return nil, err
	}

	secret, _ := actioncache.SecretFromEnv()

	return cachestrategy.New(mode, local, remotes, hash.DefaultAlgo, secret), nil
}

// buildBlobTiers builds the local tier plus every configured remote
// tier, independent of cache mode — used both by buildCacheStrategy
// (which orders and filters them per mode) and by -c/--clean's
// selector-scoped path, which needs direct Delete access to the same
// tiers a normal run would Lookup/Store against.
func buildBlobTiers(ctx context.Context, project *config.Project, env map[string]string) (cas.Tier, []cas.Tier, error) {
	local := cas.Tier{
		Name:  "local",
		Store: cas.NewLocalBlobStore(filepath.Join(cacheDir(project, env), "blobs")),
	}

	remotes, err := buildRemoteTiers(ctx, project.Cache.Remote)
	if err != nil {
		return cas.Tier{}, nil, err
	}

	return local, remotes, nil
}

func resolvedCacheMode(configured string) (cachestrategy.Mode, error) {
	if flagSkipCache {
		return cachestrategy.Disabled, nil
	}
	if flagCacheMode != "" {
		return cachestrategy.ParseMode(strings.ReplaceAll(flagCacheMode, "-", "_"))
	}
	return cachestrategy.ParseMode(configured)
}

// buildRemoteTiers constructs one cas.Tier per configured remote,
// dispatching on driver. Options carries driver-specific overrides not
// common to every remote kind (e.g. an S3-compatible endpoint for a
// non-AWS object store, or static credentials for a bucket this
// process's ambient credential chain can't reach).
func buildRemoteTiers(ctx context.Context, tiers []config.RemoteTier) ([]cas.Tier, error) {
	out := make([]cas.Tier, 0, len(tiers))
	for _, t := range tiers {
		switch t.Driver {
		case "s3":
			store, err := newS3Tier(ctx, t)
			if err != nil {
				return nil, fmt.Errorf("cmd: remote tier %q: %w", t.Name, err)
			}
			out = append(out, cas.Tier{Name: t.Name, Store: store})
		case "gcs":
			store, err := cas.NewGCSBlobStore(ctx, t.Bucket, t.Prefix)
			if err != nil {
				return nil, fmt.Errorf("cmd: remote tier %q: %w", t.Name, err)
			}
			out = append(out, cas.Tier{Name: t.Name, Store: store})
		default:
			return nil, fmt.Errorf("cmd: remote tier %q: unknown driver %q", t.Name, t.Driver)
		}
	}
	return out, nil
}

func newS3Tier(ctx context.Context, t config.RemoteTier) (*cas.S3BlobStore, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if t.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(t.Region))
	}
	if accessKey, _ := t.Options["access_key_id"].(string); accessKey != "" {
		secretKey, _ := t.Options["secret_access_key"].(string)
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint, _ := t.Options["endpoint"].(string); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return cas.NewS3BlobStore(client, t.Bucket, t.Prefix), nil
}
