package assumerole

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
	"github.com/bedrock-gateway/bedrock-assumerole/monitor"
)

// DefaultExpiryBuffer is how long before expiry cached credentials are refreshed.
const DefaultExpiryBuffer = 5 * time.Minute

// STSClient is the subset of the STS API used here.
type STSClient interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// STSClientFactory builds an STS client authenticated with the base keys.
type STSClientFactory func(ctx context.Context, base BaseCredentials) (STSClient, error)

// NewSTSClient is the default STSClientFactory.
func NewSTSClient(ctx context.Context, base BaseCredentials) (STSClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(base.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			base.AccessKeyID, base.SecretAccessKey, "")))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return sts.NewFromConfig(cfg), nil
}

type Option func(*Provider)

func WithCache(c Cache) Option {
	return func(p *Provider) { p.cache = c }
}

func WithSTSClientFactory(f STSClientFactory) Option {
	return func(p *Provider) { p.newClient = f }
}

func WithExpiryBuffer(d time.Duration) Option {
	return func(p *Provider) { p.buffer = d }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// Provider returns cached temporary credentials, assuming the role when the
// cached ones are missing or about to expire.
type Provider struct {
	cache     Cache
	newClient STSClientFactory
	buffer    time.Duration
	now       func() time.Time
}

func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		cache:     NewMemoryCache(),
		newClient: NewSTSClient,
		buffer:    DefaultExpiryBuffer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Retrieve validates base and returns usable temporary credentials.
func (p *Provider) Retrieve(ctx context.Context, base BaseCredentials) (*TemporaryCredentials, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}

	key := base.CacheKey()
	if cached, ok := p.cache.Get(ctx, key); ok && cached.ValidFor(p.now(), p.buffer) {
		monitor.RecordCredentialLookup(monitor.CredentialCacheHit)
		return cached, nil
	}

	creds, err := p.AssumeRole(ctx, base)
	if err != nil {
		monitor.RecordCredentialLookup(monitor.CredentialError)
		return nil, err
	}
	monitor.RecordCredentialLookup(monitor.CredentialAssumed)

	ttl := creds.Expiration.Sub(p.now()) - p.buffer
	if err = p.cache.Set(ctx, key, creds, ttl); err != nil {
		logger.Logger.Warn("failed to cache temporary credentials", zap.Error(err))
	}
	return creds, nil
}

// AssumeRole always calls STS, bypassing the cache.
func (p *Provider) AssumeRole(ctx context.Context, base BaseCredentials) (*TemporaryCredentials, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}

	lg := logger.Logger.With(
		zap.String("role_arn", base.RoleArn),
		zap.String("region", base.Region),
		zap.Int("duration_seconds", base.DurationSeconds),
		zap.String("access_key_id_prefix", MaskKey(base.AccessKeyID)),
	)
	lg.Debug("assuming role")

	client, err := p.newClient(ctx, base)
	if err != nil {
		return nil, errors.Wrap(err, "create sts client")
	}

	out, err := client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(base.RoleArn),
		RoleSessionName: aws.String(base.SessionName),
		DurationSeconds: aws.Int32(int32(base.DurationSeconds)),
	})
	if err != nil {
		lg.Error("assume role failed", zap.Error(err))
		return nil, errors.Wrapf(err, "assume role %s", base.RoleArn)
	}
	if out == nil || out.Credentials == nil {
		return nil, ErrNoTemporaryCredentials
	}

	creds := &TemporaryCredentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Expiration:      aws.ToTime(out.Credentials.Expiration),
	}
	lg.Info("assume role succeeded",
		zap.String("temporary_key_prefix", MaskKey(creds.AccessKeyID)),
		zap.Time("expiration", creds.Expiration),
		zap.Duration("expires_in", creds.Expiration.Sub(p.now()).Truncate(time.Second)))
	return creds, nil
}
