package submit

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
)

// credentialRenewalMargin is subtracted from a credential's validity when it
// is cached, so a cached handle is never returned too close to its expiry.
const credentialRenewalMargin = time.Minute

// CredentialCache hands out pilot credentials, reusing a previously issued
// handle for the same identity while it remains comfortably valid.
type CredentialCache struct {
	provider domain.CredentialProvider
	cache    *gocache.Cache
}

func NewCredentialCache(provider domain.CredentialProvider) *CredentialCache {
	return &CredentialCache{
		provider: provider,
		cache:    gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

func (c *CredentialCache) Get(ownerDN, ownerGroup string, validity time.Duration) (domain.Credential, error) {
	key := credentialKey(ownerDN, ownerGroup)
	if cached, ok := c.cache.Get(key); ok {
		return cached.(domain.Credential), nil
	}

	credential, err := c.provider.GetCredential(ownerDN, ownerGroup, validity)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get credential for %s@%s", ownerDN, ownerGroup)
	}

	ttl := validity - credentialRenewalMargin
	if ttl > 0 {
		c.cache.Set(key, credential, ttl)
	}
	return credential, nil
}

func credentialKey(ownerDN, ownerGroup string) string {
	return fmt.Sprintf("%s\x00%s", ownerDN, ownerGroup)
}
