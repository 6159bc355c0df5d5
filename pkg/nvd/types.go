package nvd

// Response is a page of https://csrc.nist.gov/schema/nvd/api/2.0/cve_api_json_2.0.schema
type Response struct {
	ResultsPerPage  int             `json:"resultsPerPage"`
	StartIndex      int             `json:"startIndex"`
	TotalResults    int             `json:"totalResults"`
	Format          string          `json:"format,omitempty"`
	Version         string          `json:"version,omitempty"`
	Timestamp       string          `json:"timestamp,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

type Vulnerability struct {
	Cve Cve `json:"cve"`
}

// Cve is the `cve_item` of the API schema, limited to the fields summaries are built from.
type Cve struct {
	ID               string       `json:"id"`
	SourceIdentifier string       `json:"sourceIdentifier,omitempty"`
	Published        string       `json:"published"`
	LastModified     string       `json:"lastModified"`
	VulnStatus       string       `json:"vulnStatus,omitempty"`
	CisaExploitAdd   string       `json:"cisaExploitAdd,omitempty"`
	Descriptions     []LangString `json:"descriptions"`
	Metrics          Metrics      `json:"metrics,omitempty"`
	References       []Reference  `json:"references"`
}

type LangString struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type Reference struct {
	URL    string   `json:"url"`
	Source string   `json:"source,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type Metrics struct {
	CvssMetricV31 []CvssMetricV3 `json:"cvssMetricV31,omitempty"`
	CvssMetricV30 []CvssMetricV3 `json:"cvssMetricV30,omitempty"`
	CvssMetricV2  []CvssMetricV2 `json:"cvssMetricV2,omitempty"`
}

// CvssMetricV3 covers v3.0 and v3.1, they only differ in the vectorString pattern.
type CvssMetricV3 struct {
	Source   string   `json:"source"`
	Type     string   `json:"type"`
	CvssData CvssData `json:"cvssData"`
}

type CvssMetricV2 struct {
	Source       string   `json:"source"`
	Type         string   `json:"type"`
	CvssData     CvssData `json:"cvssData"`
	BaseSeverity string   `json:"baseSeverity,omitempty"`
}

type CvssData struct {
	Version      string  `json:"version"`
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity,omitempty"`
}
