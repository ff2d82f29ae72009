package store

import "github.com/jlevy/tbd/internal/types"

// Provider adapts a data-sync root to types.IssueProvider, the minimal
// read surface the list command reads open issues through. Grounded on the
// teacher's internal/storage.StorageProvider, which performs the same
// adaptation over its SQL-backed Storage interface.
type Provider struct {
	DataSyncRoot string
	Prefix       string
}

// NewProvider builds a Provider over a data-sync root and the
// configured display id prefix.
func NewProvider(dataSyncRoot, prefix string) *Provider {
	return &Provider{DataSyncRoot: dataSyncRoot, Prefix: prefix}
}

// GetOpenIssues returns issues with status open or in_progress.
func (p *Provider) GetOpenIssues() ([]*types.Issue, error) {
	all, err := List(p.DataSyncRoot)
	if err != nil {
		return nil, err
	}
	var open []*types.Issue
	for _, issue := range all {
		if issue.Status == types.StatusOpen || issue.Status == types.StatusInProgress {
			open = append(open, issue)
		}
	}
	return open, nil
}

// GetIssuePrefix returns the configured display id prefix.
func (p *Provider) GetIssuePrefix() string {
	if p.Prefix == "" {
		return "tbd"
	}
	return p.Prefix
}

var _ types.IssueProvider = (*Provider)(nil)
