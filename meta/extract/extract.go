// Package extract holds the per-field parsers used by the block reader. Each parser
// works on a single input line and never looks at neighbouring lines.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/CatalogLoad/meta/ds"
	"github.com/CatalogLoad/metaerr"
)

const dateLayout = "2006-1-2"

// "Label[123]" and "Label [123]"; the id must close the label.
var reCategory = regexp.MustCompile(`^(.*?)\s*\[(\d+)\]\s*$`)

// CategoryID extracts the numeric id and the name from a category label.
// ok is false for labels without a trailing bracketed number.
func CategoryID(label string) (id int64, name string, ok bool) {
	m := reCategory.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, "", false
	}
	id, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		// digits only, so this is overflow
		return 0, "", false
	}
	return id, strings.TrimSpace(m[1]), true
}

// CategoryPath splits "   |Books[283155]|Subjects[1000]|" into its labels.
func CategoryPath(line string) ds.CategoryPath {
	var path ds.CategoryPath
	for _, s := range strings.Split(strings.TrimSpace(line), "|") {
		if s = strings.TrimSpace(s); len(s) > 0 {
			path = append(path, s)
		}
	}
	return path
}

// Similar parses the value of a "similar:" line. The first token is the declared count.
func Similar(value string) (ds.Similar, error) {
	f := strings.Fields(value)
	if len(f) == 0 {
		return ds.Similar{}, fmt.Errorf("%w: missing similar count", metaerr.ErrMalformed)
	}
	n, err := strconv.Atoi(f[0])
	if err != nil {
		return ds.Similar{}, fmt.Errorf("%w: similar count %q", metaerr.ErrMalformed, f[0])
	}
	return ds.Similar{Declared: n, ASINs: f[1:]}, nil
}

// ReviewAggregate parses "reviews: total: 8  downloaded: 8  avg rating: 4.5".
func ReviewAggregate(line string) (ds.ReviewAgg, error) {
	var agg ds.ReviewAgg

	parts := strings.Fields(line)
	total, err := after(parts, "total:", 1)
	if err != nil {
		return agg, err
	}
	downloaded, err := after(parts, "downloaded:", 1)
	if err != nil {
		return agg, err
	}
	// "avg" "rating:" <value>
	avg, err := after(parts, "avg", 2)
	if err != nil {
		return agg, err
	}

	if agg.Total, err = strconv.Atoi(total); err != nil {
		return agg, fmt.Errorf("%w: total %q", metaerr.ErrMalformed, total)
	}
	if agg.Downloaded, err = strconv.Atoi(downloaded); err != nil {
		return agg, fmt.Errorf("%w: downloaded %q", metaerr.ErrMalformed, downloaded)
	}
	if agg.AvgRating, err = strconv.ParseFloat(avg, 64); err != nil {
		return agg, fmt.Errorf("%w: avg rating %q", metaerr.ErrMalformed, avg)
	}
	return agg, nil
}

// IsReviewDetail reports whether the first four non-indentation characters are digits,
// i.e. the line starts with a review year.
func IsReviewDetail(line string) bool {
	s := strings.TrimLeft(line, " \t")
	if len(s) < 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ReviewDetail parses "2000-7-28  cutomer: A2JW67OY8U6HHK  rating: 5  votes:  10  helpful:   9".
// Values are positional: 0 date, 2 customer, 4 rating, 6 votes, 8 helpful.
func ReviewDetail(line string) (ds.ReviewDetail, error) {
	var rd ds.ReviewDetail

	parts := strings.Fields(line)
	if len(parts) != 9 {
		return rd, fmt.Errorf("%w: review line has %d tokens, want 9", metaerr.ErrMalformed, len(parts))
	}
	d, err := time.Parse(dateLayout, parts[0])
	if err != nil {
		return rd, fmt.Errorf("%w: review date %q", metaerr.ErrMalformed, parts[0])
	}
	rd.Date = d.Format("2006-01-02")
	rd.Customer = parts[2]
	if len(rd.Customer) == 0 {
		return rd, fmt.Errorf("%w: empty customer id", metaerr.ErrMalformed)
	}
	if rd.Rating, err = strconv.Atoi(parts[4]); err != nil {
		return rd, fmt.Errorf("%w: rating %q", metaerr.ErrMalformed, parts[4])
	}
	if rd.Votes, err = strconv.Atoi(parts[6]); err != nil {
		return rd, fmt.Errorf("%w: votes %q", metaerr.ErrMalformed, parts[6])
	}
	if rd.Helpful, err = strconv.Atoi(parts[8]); err != nil {
		return rd, fmt.Errorf("%w: helpful %q", metaerr.ErrMalformed, parts[8])
	}
	return rd, nil
}

// after returns the token off positions past the first token equal to label.
func after(parts []string, label string, off int) (string, error) {
	for i, p := range parts {
		if p != label {
			continue
		}
		if i+off >= len(parts) {
			return "", fmt.Errorf("%w: no value after %q", metaerr.ErrMalformed, label)
		}
		return parts[i+off], nil
	}
	return "", fmt.Errorf("%w: missing %q", metaerr.ErrMalformed, label)
}
