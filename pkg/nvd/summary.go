package nvd

import (
	"github.com/aquasecurity/vulner/pkg/set"
	"github.com/aquasecurity/vulner/pkg/types"
)

// Summaries condenses a CVE response. CVEs in knownExploited are flagged.
func Summaries(resp Response, knownExploited set.Set[string]) []types.CveSummary {
	summaries := make([]types.CveSummary, 0, len(resp.Vulnerabilities))
	for _, v := range resp.Vulnerabilities {
		cve := v.Cve
		if cve.ID == "" {
			continue
		}

		urls := []string{DetailURL(cve.ID)}
		for _, ref := range cve.References {
			urls = append(urls, ref.URL)
		}

		severity, score := severity(cve.Metrics)
		summaries = append(summaries, types.CveSummary{
			ID:             cve.ID,
			Description:    description(cve.Descriptions),
			URLs:           urls,
			Severity:       severity,
			Score:          score,
			KnownExploited: knownExploited.Contains(cve.ID),
		})
	}
	return summaries
}

func description(descriptions []LangString) string {
	for _, d := range descriptions {
		if d.Lang == "en" {
			return d.Value
		}
	}
	return ""
}

// severity prefers the primary CVSS v3.1 score, then v3.0, then v2.
func severity(m Metrics) (string, float64) {
	for _, metrics := range [][]CvssMetricV3{m.CvssMetricV31, m.CvssMetricV30} {
		if data, ok := primary(metrics); ok {
			return data.BaseSeverity, data.BaseScore
		}
	}
	var v2 *CvssMetricV2
	for i, metric := range m.CvssMetricV2 {
		if v2 == nil || metric.Type == "Primary" {
			v2 = &m.CvssMetricV2[i]
		}
	}
	if v2 != nil {
		return v2.BaseSeverity, v2.CvssData.BaseScore
	}
	return "", 0
}

func primary(metrics []CvssMetricV3) (CvssData, bool) {
	if len(metrics) == 0 {
		return CvssData{}, false
	}
	for _, metric := range metrics {
		if metric.Type == "Primary" {
			return metric.CvssData, true
		}
	}
	return metrics[0].CvssData, true
}
