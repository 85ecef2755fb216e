package scraper

import (
	"sort"

	"policy-watch/internal/infra/fetcher"
)

// LegalWeight grades how binding a source's documents are when the
// assistant cites them.
type LegalWeight string

const (
	WeightRegulatory    LegalWeight = "regulatory"
	WeightGuidance      LegalWeight = "guidance"
	WeightInformational LegalWeight = "informational"
)

// DocumentClass is the ingestion classification attached to everything a
// source produces: the document type recorded on ingested documents and
// the legal weight of the source family.
type DocumentClass struct {
	DocumentType string
	LegalWeight  LegalWeight
}

// RegistryConfig carries the per-deployment knobs the scraper variants
// need: which agency the bulletin scraper watches and which partner hosts
// the MCO scraper may follow off-site.
type RegistryConfig struct {
	BulletinAgencyKeyword string
	MCOAllowHosts         []string
}

// DefaultRegistryConfig returns the registry knobs for the default
// deployment.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		BulletinAgencyKeyword: "Human Services",
	}
}

// Registry maps source types to their scraper and document class. It is
// built once at startup and passed to the monitor service and CLI; an
// unknown source type yields *ConfigurationError, which is fatal for that
// one operation but never for a whole run.
type Registry struct {
	scrapers map[string]Scraper
	classes  map[string]DocumentClass
}

// NewRegistry builds the registry over the shared fetchers. pageFetcher
// carries the page resilience profiles; feedFetcher the more aggressive
// feed profiles.
func NewRegistry(pageFetcher, feedFetcher *fetcher.Fetcher, cfg RegistryConfig) *Registry {
	return &Registry{
		scrapers: map[string]Scraper{
			"opsmemo":  NewOpsMemoScraper(pageFetcher),
			"handbook": NewHandbookScraper(pageFetcher),
			"bulletin": NewBulletinScraper(pageFetcher, cfg.BulletinAgencyKeyword),
			"pubhub":   NewPubHubScraper(pageFetcher),
			"mco":      NewMCOScraper(pageFetcher, cfg.MCOAllowHosts),
			"rssfeed":  NewRSSFeedScraper(feedFetcher),
		},
		classes: map[string]DocumentClass{
			"opsmemo":  {DocumentType: "ops_memo", LegalWeight: WeightGuidance},
			"handbook": {DocumentType: "handbook_section", LegalWeight: WeightRegulatory},
			"bulletin": {DocumentType: "legal_bulletin", LegalWeight: WeightRegulatory},
			"pubhub":   {DocumentType: "publication", LegalWeight: WeightInformational},
			"mco":      {DocumentType: "mco_handbook", LegalWeight: WeightGuidance},
			"rssfeed":  {DocumentType: "news_release", LegalWeight: WeightInformational},
		},
	}
}

// Scraper returns the scraper for a source type.
func (r *Registry) Scraper(sourceType string) (Scraper, error) {
	s, ok := r.scrapers[sourceType]
	if !ok {
		return nil, &ConfigurationError{SourceType: sourceType}
	}
	return s, nil
}

// DocumentClass returns the ingestion classification for a source type.
func (r *Registry) DocumentClass(sourceType string) (DocumentClass, error) {
	c, ok := r.classes[sourceType]
	if !ok {
		return DocumentClass{}, &ConfigurationError{SourceType: sourceType}
	}
	return c, nil
}

// SourceTypes returns the known source types in sorted order.
func (r *Registry) SourceTypes() []string {
	types := make([]string, 0, len(r.scrapers))
	for t := range r.scrapers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
