package index

import "github.com/watchmonkey/stocktags/internal/tags"

// StockRecord is one tracked equity as supplied by the data-fetch layer.
type StockRecord struct {
	StockCode          string   `json:"stock_code" yaml:"stock_code"`
	StockName          string   `json:"stock_name" yaml:"stock_name"`
	CompanyName        string   `json:"company_name" yaml:"company_name"`
	Exchange           string   `json:"exchange" yaml:"exchange"`
	BusinessScope      string   `json:"business_scope" yaml:"business_scope"`
	CompanyDescription string   `json:"company_description" yaml:"company_description"`
	SectorsConcepts    []string `json:"sectors_concepts" yaml:"sectors_concepts"`
	CustomTags         string   `json:"custom_tags" yaml:"custom_tags"`
	OfficialWebsite    string   `json:"official_website" yaml:"official_website"`
	UnderwritingMethod string   `json:"underwriting_method" yaml:"underwriting_method"`
	CreatedAt          string   `json:"created_at" yaml:"created_at"`
	UpdatedAt          string   `json:"updated_at" yaml:"updated_at"`
}

// TagKey is a tag identity inside one category: the name plus an optional
// detail. A missing detail differs from an empty one.
type TagKey struct {
	Name      string
	Detail    string
	HasDetail bool
}

// KeyOf returns the identity of a parsed entry.
func KeyOf(e tags.Entry) TagKey {
	if e.Detail == nil {
		return TagKey{Name: e.Name}
	}
	return TagKey{Name: e.Name, Detail: *e.Detail, HasDetail: true}
}

// NewKey builds an identity from a name and an optional detail.
func NewKey(name string, detail *string) TagKey {
	return KeyOf(tags.Entry{Name: name, Detail: detail})
}

// DetailPtr returns the detail as an optional string.
func (k TagKey) DetailPtr() *string {
	if !k.HasDetail {
		return nil
	}
	d := k.Detail
	return &d
}

// Manifest is the envelope written around a snapshot file.
type Manifest struct {
	SnapshotVersion int    `json:"snapshot_version" yaml:"snapshot_version"`
	CreatedAt       string `json:"created_at" yaml:"created_at"`
	Source          string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Snapshot is a materialized list of stock records plus its manifest.
type Snapshot struct {
	Manifest Manifest      `json:"manifest" yaml:"manifest"`
	Stocks   []StockRecord `json:"stocks" yaml:"stocks"`
}

// DataStatistics summarizes the loaded records.
type DataStatistics struct {
	TotalStocks     int
	StocksWithTags  int
	TotalCategories int
}
