package builders

import (
	"strconv"
	"strings"
)

// NormalizeContig renders a chromosome name in the convention of the
// reference genome: GRCh38 uses "chr1".."chrM", GRCh37 uses "1".."MT".
// Unrecognised genomes leave the name untouched.
func NormalizeContig(chrom, refGenome string) string {
	bare := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(chrom), "chr"), "CHR")
	switch refGenome {
	case "GRCh38":
		if bare == "MT" {
			bare = "M"
		}
		return "chr" + bare
	case "GRCh37":
		if bare == "M" {
			bare = "MT"
		}
		return bare
	default:
		return chrom
	}
}

func parseSpan(start, end string) (int64, int64, bool) {
	s, err := strconv.ParseInt(strings.TrimSpace(start), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	e, err := strconv.ParseInt(strings.TrimSpace(end), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return s, e, true
}
