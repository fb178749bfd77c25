package report

import (
	"fmt"
	"strings"

	"trialloc/domain/balance"
	"trialloc/domain/cohort"
	"trialloc/ports"
)

// RenderMarkdown produces the balance report for one allocation run:
// score decomposition plus per-covariate group means over the raw data,
// so reviewers can judge balance in the original units.
func RenderMarkdown(record *ports.AllocationRecord, raw *cohort.CovariateMatrix) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Allocation %s\n\n", record.ID)
	fmt.Fprintf(&b, "- Cohort: `%s`\n", shortHash(string(record.CohortHash)))
	fmt.Fprintf(&b, "- Backend: %s\n", record.Backend)
	fmt.Fprintf(&b, "- Runtime: %dms\n\n", record.RuntimeMs)

	writeScore(&b, record.Score)

	if raw != nil && record.Assignment != nil && record.Assignment.Size() == raw.RowCount() {
		writeGroupMeans(&b, raw, record.Assignment)
	}

	return b.String()
}

func writeScore(b *strings.Builder, score *balance.DiscrepancyScore) {
	fmt.Fprintf(b, "## Discrepancy\n\n")
	fmt.Fprintf(b, "| Component | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| First moments | %.6f |\n", score.FirstMoment)
	fmt.Fprintf(b, "| Second moments (rho=%.2f) | %.6f |\n", score.Rho, score.SecondMoment)
	fmt.Fprintf(b, "| **Total** | **%.6f** |\n\n", score.Total)
}

func writeGroupMeans(b *strings.Builder, raw *cohort.CovariateMatrix, assignment *cohort.GroupAssignment) {
	fmt.Fprintf(b, "## Group means (raw units)\n\n")
	fmt.Fprintf(b, "| Covariate | Group 1 | Group 2 | Delta |\n|---|---|---|---|\n")

	for j, key := range raw.CovariateKeys {
		var sum1, sum2 float64
		var n1, n2 int
		for i, row := range raw.Data {
			if assignment.Group1[i] == 1 {
				sum1 += row[j]
				n1++
			} else {
				sum2 += row[j]
				n2++
			}
		}
		mean1 := sum1 / float64(n1)
		mean2 := sum2 / float64(n2)
		fmt.Fprintf(b, "| %s | %.4f | %.4f | %.4f |\n", key, mean1, mean2, mean1-mean2)
	}
	b.WriteString("\n")
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
