package starforce

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// overviewPercents is the fixed battery printed by Overview.
var overviewPercents = []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 99}

// Overview renders the percentile battery of all three metrics as a table:
//
//	<Starforce Result | 15 -> 21 | lvl150 | n=100,000>
//	PERCENTILES
//	-----------
//	0%  | costs: 1,234,500 | attempts: 12 | booms: 0
func (r *ResultSet) Overview() (string, error) {
	if r.Size() == 0 {
		return "", fmt.Errorf("%w: empty result set", ErrInvalidArgument)
	}
	r.Sort()
	p := message.NewPrinter(language.English)

	rows := make([][metricCount]string, len(overviewPercents))
	var widths [metricCount]int
	for i, pct := range overviewPercents {
		for _, m := range Metrics {
			v, err := r.Percentile(float64(pct)/100, m)
			if err != nil {
				return "", err
			}
			s := p.Sprintf("%d", v)
			if m != Costs {
				s = fmt.Sprintf("%d", v)
			}
			rows[i][m] = s
			widths[m] = max(widths[m], len(s))
		}
	}

	var b strings.Builder
	b.WriteString(r.String())
	b.WriteString("\nPERCENTILES\n-----------\n")
	for i, pct := range overviewPercents {
		fmt.Fprintf(&b, "%-4s|", fmt.Sprintf("%d%%", pct))
		for _, m := range Metrics {
			fmt.Fprintf(&b, " %s: %-*s", m, widths[m], rows[i][m])
			if m != Booms {
				b.WriteString("|")
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
