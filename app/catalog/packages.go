package catalog

// PackagePlan is the carrier's identity for a purchasable SKU.
type PackagePlan struct {
	LocationCode string
	PackageCode  string
}

// Table maps storefront price ids to carrier packages. It is static and
// read-only at request time; Resolve never fails. An unmapped SKU falls back
// to the configured default plan so a paid customer is always provisioned
// with something sellable instead of failing closed.
type Table struct {
	plans    map[string]PackagePlan
	fallback PackagePlan
}

func NewTable(fallback PackagePlan) *Table {
	if fallback.LocationCode == "" || fallback.PackageCode == "" {
		fallback = PackagePlan{LocationCode: "US", PackageCode: "US_5GB_30D"}
	}
	return &Table{plans: productionPlans, fallback: fallback}
}

func (t *Table) Resolve(priceID string) PackagePlan {
	if plan, ok := t.plans[priceID]; ok {
		return plan
	}
	return t.fallback
}

// Default returns the fail-open fallback plan.
func (t *Table) Default() PackagePlan {
	return t.fallback
}

var productionPlans = map[string]PackagePlan{
	// USA
	"price_us_5gb_prod":             {LocationCode: "US", PackageCode: "US_5GB_30D"},
	"price_us_10gb_prod":            {LocationCode: "US", PackageCode: "US_10GB_30D"},
	"price_1SqhSYCPrRzENMHl0tebNgtr": {LocationCode: "US", PackageCode: "PKY3WHPRZ"},
	// United Kingdom
	"price_uk_3gb_prod":       {LocationCode: "GB", PackageCode: "GB_3GB_30D"},
	"price_uk_10gb_prod":      {LocationCode: "GB", PackageCode: "GB_10GB_30D"},
	"price_uk_unlimited_prod": {LocationCode: "GB", PackageCode: "GB_UL_30D"},
	// France
	"price_fr_5gb_prod":       {LocationCode: "FR", PackageCode: "FR_5GB_30D"},
	"price_fr_15gb_prod":      {LocationCode: "FR", PackageCode: "FR_15GB_30D"},
	"price_fr_unlimited_prod": {LocationCode: "FR", PackageCode: "FR_UL_30D"},
	// Germany
	"price_de_5gb_prod":       {LocationCode: "DE", PackageCode: "DE_5GB_30D"},
	"price_de_15gb_prod":      {LocationCode: "DE", PackageCode: "DE_15GB_30D"},
	"price_de_unlimited_prod": {LocationCode: "DE", PackageCode: "DE_UL_30D"},
	// Spain
	"price_es_5gb_prod":       {LocationCode: "ES", PackageCode: "ES_5GB_30D"},
	"price_es_15gb_prod":      {LocationCode: "ES", PackageCode: "ES_15GB_30D"},
	"price_es_unlimited_prod": {LocationCode: "ES", PackageCode: "ES_UL_30D"},
	// Italy
	"price_it_5gb_prod":       {LocationCode: "IT", PackageCode: "IT_5GB_30D"},
	"price_it_15gb_prod":      {LocationCode: "IT", PackageCode: "IT_15GB_30D"},
	"price_it_unlimited_prod": {LocationCode: "IT", PackageCode: "IT_UL_30D"},
	// Canada
	"price_ca_5gb_prod":       {LocationCode: "CA", PackageCode: "CA_5GB_30D"},
	"price_ca_15gb_prod":      {LocationCode: "CA", PackageCode: "CA_15GB_30D"},
	"price_ca_unlimited_prod": {LocationCode: "CA", PackageCode: "CA_UL_30D"},
	// Japan
	"price_jp_3gb_prod":       {LocationCode: "JP", PackageCode: "JP_3GB_30D"},
	"price_jp_10gb_prod":      {LocationCode: "JP", PackageCode: "JP_10GB_30D"},
	"price_jp_unlimited_prod": {LocationCode: "JP", PackageCode: "JP_UL_30D"},
	// Australia
	"price_au_5gb_prod":       {LocationCode: "AU", PackageCode: "AU_5GB_30D"},
	"price_au_15gb_prod":      {LocationCode: "AU", PackageCode: "AU_15GB_30D"},
	"price_au_unlimited_prod": {LocationCode: "AU", PackageCode: "AU_UL_30D"},
	// South Korea
	"price_kr_5gb_prod":       {LocationCode: "KR", PackageCode: "KR_5GB_30D"},
	"price_kr_15gb_prod":      {LocationCode: "KR", PackageCode: "KR_15GB_30D"},
	"price_kr_unlimited_prod": {LocationCode: "KR", PackageCode: "KR_UL_30D"},
	// Ireland
	"price_ie_5gb_prod":       {LocationCode: "IE", PackageCode: "IE_5GB_30D"},
	"price_ie_15gb_prod":      {LocationCode: "IE", PackageCode: "IE_15GB_30D"},
	"price_ie_unlimited_prod": {LocationCode: "IE", PackageCode: "IE_UL_30D"},
	// Mexico
	"price_mx_5gb_prod":       {LocationCode: "MX", PackageCode: "MX_5GB_30D"},
	"price_mx_10gb_prod":      {LocationCode: "MX", PackageCode: "MX_10GB_30D"},
	"price_mx_unlimited_prod": {LocationCode: "MX", PackageCode: "MX_UL_30D"},
}
