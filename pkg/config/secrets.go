package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

const secretPrefix = "sm://"

// SecretResolver turns a secret reference into its value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// SecretManager resolves references against Google Secret Manager. A short
// reference such as sm://telegram-token expands to the latest version in
// project.
type SecretManager struct {
	client  *secretmanager.Client
	project string
}

func NewSecretManager(ctx context.Context, project string) (*SecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return &SecretManager{client: client, project: project}, nil
}

func (s *SecretManager) Resolve(ctx context.Context, ref string) (string, error) {
	name, err := SecretName(ref, s.project)
	if err != nil {
		return "", err
	}

	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

func (s *SecretManager) Close() error {
	return s.client.Close()
}

// SecretName expands an sm:// reference into a full secret version name.
func SecretName(ref, project string) (string, error) {
	name := strings.TrimPrefix(ref, secretPrefix)
	if name == "" {
		return "", fmt.Errorf("empty secret reference")
	}
	if strings.HasPrefix(name, "projects/") {
		if !strings.Contains(name, "/versions/") {
			name += "/versions/latest"
		}
		return name, nil
	}
	if project == "" {
		return "", fmt.Errorf("secret %q needs GOOGLE_CLOUD_PROJECT to be set", name)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, name), nil
}

// secretLoader reads environment values, resolving sm:// references on
// demand. The first failure is kept and reported by Err.
type secretLoader struct {
	ctx      context.Context
	resolver SecretResolver
	closer   func() error
	err      error
}

func newSecretLoader(ctx context.Context, resolver SecretResolver) *secretLoader {
	return &secretLoader{ctx: ctx, resolver: resolver}
}

func (l *secretLoader) env(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		value = fallback
	}
	if !strings.HasPrefix(value, secretPrefix) || l.err != nil {
		return value
	}

	if l.resolver == nil {
		sm, err := NewSecretManager(l.ctx, os.Getenv("GOOGLE_CLOUD_PROJECT"))
		if err != nil {
			l.err = err
			return ""
		}
		l.resolver, l.closer = sm, sm.Close
	}

	resolved, err := l.resolver.Resolve(l.ctx, value)
	if err != nil {
		l.err = fmt.Errorf("resolve %s: %w", key, err)
		return ""
	}
	return resolved
}

func (l *secretLoader) Err() error {
	return l.err
}

func (l *secretLoader) Close() {
	if l.closer != nil {
		_ = l.closer()
	}
}
