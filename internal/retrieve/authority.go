package retrieve

import (
	"net/url"
	"strings"

	"github.com/ppiankov/credence/internal/model"
)

// AuthorityClassifier places evidence sources into authority tiers by host
type AuthorityClassifier struct {
	domainMap map[string]model.AuthorityTier
	primary   []string
	secondary []string
}

// NewAuthorityClassifier creates a classifier from config; nil uses the defaults
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Authority
	}

	classifier := &AuthorityClassifier{
		domainMap: make(map[string]model.AuthorityTier, len(config.DomainMap)),
	}
	for host, tier := range config.DomainMap {
		classifier.domainMap[strings.ToLower(host)] = parseTier(tier)
	}
	for _, domain := range config.PrimaryDomains {
		classifier.primary = append(classifier.primary, strings.ToLower(domain))
	}
	for _, domain := range config.SecondaryDomains {
		classifier.secondary = append(classifier.secondary, strings.ToLower(domain))
	}

	return classifier
}

// Classify returns the tier for a source URL. Unparseable URLs are tertiary.
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return model.TierTertiary
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(host, a.primary) {
		return model.TierPrimary
	}
	if matchesDomain(host, a.secondary) {
		return model.TierSecondary
	}

	// Government and academic hosts outside the configured lists
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

// matchesDomain reports whether host equals or is a subdomain of any domain.
// Bare suffixes such as "gov" match hosts ending in ".gov".
func matchesDomain(host string, domains []string) bool {
	for _, domain := range domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func parseTier(tier string) model.AuthorityTier {
	switch strings.ToLower(tier) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
