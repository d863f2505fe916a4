package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/groundstation/factsys/source"
	"github.com/groundstation/factsys/types"
	"github.com/groundstation/factsys/watcher"
)

// GetParameterAPI is the subset of *ssm.Client used by SSMSource.
type GetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource loads a parameter document from one SSM parameter.
// It is read-only; Save returns source.ErrSaveNotSupported.
type SSMSource struct {
	name        string
	withDecrypt bool
	cfg         clientConfig
	client      GetParameterAPI

	clientInit    sync.Once
	clientInitErr error
}

var (
	_ source.WatchableSource = (*SSMSource)(nil)
	_ types.DetailsFiller    = (*SSMSource)(nil)
)

// SSMOption configures an SSMSource.
type SSMOption func(*SSMSource)

func (SSMOption) awsSourceOption() {}

// WithClient sets the SSM client. It takes precedence over WithAWSConfig.
func WithClient(client GetParameterAPI) SSMOption {
	return func(s *SSMSource) {
		s.client = client
	}
}

// WithDecryption enables decryption of SecureString parameters.
func WithDecryption(decrypt bool) SSMOption {
	return func(s *SSMSource) {
		s.withDecrypt = decrypt
	}
}

// NewSSMSource returns a source for the SSM parameter name.
//
//	l := layer.New("fleet", aws.NewSSMSource("/fleet/params"), yaml.New())
func NewSSMSource(name string, opts ...Option) *SSMSource {
	s := &SSMSource{name: name}
	for _, opt := range opts {
		switch o := opt.(type) {
		case ClientOption:
			o(&s.cfg)
		case SSMOption:
			o(s)
		}
	}
	return s
}

func (s *SSMSource) ensureClient(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	s.clientInit.Do(func() {
		cfg, err := loadAWSConfig(ctx, &s.cfg)
		if err != nil {
			s.clientInitErr = err
			return
		}
		s.client = ssm.NewFromConfig(cfg)
	})
	return s.clientInitErr
}

func (s *SSMSource) getParameter(ctx context.Context) (version int64, value []byte, err error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	if err := s.ensureClient(ctx); err != nil {
		return 0, nil, err
	}

	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.name),
		WithDecryption: aws.Bool(s.withDecrypt),
	})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get parameter %q: %w", s.name, err)
	}
	if out.Parameter == nil {
		return 0, nil, fmt.Errorf("parameter %q not found", s.name)
	}
	if out.Parameter.Value == nil {
		return 0, nil, fmt.Errorf("parameter %q has no value", s.name)
	}
	return out.Parameter.Version, []byte(*out.Parameter.Value), nil
}

// Type returns source.TypeSSM.
func (s *SSMSource) Type() source.SourceType {
	return source.TypeSSM
}

// Name returns the SSM parameter name.
func (s *SSMSource) Name() string {
	return s.name
}

// FillDetails implements types.DetailsFiller.
func (s *SSMSource) FillDetails(d *types.Details) {
	d.Path = s.name
}

// Load fetches the parameter value.
func (s *SSMSource) Load(ctx context.Context) ([]byte, error) {
	_, value, err := s.getParameter(ctx)
	return value, err
}

// Save returns source.ErrSaveNotSupported.
func (s *SSMSource) Save(ctx context.Context, updateFunc source.UpdateFunc) error {
	return source.ErrSaveNotSupported
}

// CanSave returns false.
func (s *SSMSource) CanSave() bool {
	return false
}

// Watch polls the parameter and reports a change only when its version moves.
func (s *SSMSource) Watch() (watcher.WatcherInitializer, error) {
	var lastVersion int64
	var hasVersion bool

	poll := func(ctx context.Context) (bool, []byte, error) {
		version, value, err := s.getParameter(ctx)
		if err != nil {
			return false, nil, err
		}
		if hasVersion && version == lastVersion {
			return false, nil, nil
		}
		lastVersion = version
		hasVersion = true
		return true, value, nil
	}
	return watcher.NewPolling(poll), nil
}
