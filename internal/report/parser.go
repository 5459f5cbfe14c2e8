package report

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/radiusdt/adboard/internal/models"
	"go.uber.org/zap"
)

// ParseError means the payload had no usable rows at all: empty input,
// a missing header, or every data row malformed. An empty report is not
// silently treated as zero rows.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "report: " + e.Reason
}

// Parser converts the delimited export payload into report rows.
// Malformed rows are skipped with a warning, never aborting the parse.
type Parser struct {
	logger *zap.Logger
}

// NewParser constructs a Parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Result carries the parsed rows plus parse bookkeeping.
type Result struct {
	Rows    []models.ReportRow
	Skipped int
}

// Column aliases, lowercased. The export names columns after the display
// locale; both the verbose export names and short API names are accepted.
var columnAliases = map[string]string{
	"reporting starts": "date",
	"date":             "date",
	"account name":     "account_name",
	"account_name":     "account_name",
	"campaign name":    "campaign_name",
	"campaign_name":    "campaign_name",
	"ad set name":      "adset_name",
	"adset name":       "adset_name",
	"adset_name":       "adset_name",
	"ad name":          "ad_name",
	"ad_name":          "ad_name",
	"impressions":      "impressions",
	"link clicks":      "clicks",
	"clicks":           "clicks",
	"reach":            "reach",
	"frequency":        "frequency",
	"actions":          "actions",
	"website purchase roas (return on ad spend)": "purchase_roas",
	"website_purchase_roas":                      "purchase_roas",
	"purchase roas":                              "purchase_roas",
}

func canonicalColumn(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if c, ok := columnAliases[n]; ok {
		return c
	}
	// "Amount spent (INR)" and friends: currency suffix varies by account.
	if strings.HasPrefix(n, "amount spent") || n == "spend" {
		return "spend"
	}
	return ""
}

// Parse converts raw delimited text into report rows. Blank lines are
// discarded first; fields are comma-delimited, double-quote-quoted and
// backslash-escaped. Numeric coercion failures leave the field missing
// (zero) rather than dropping the row; rows with the wrong field count
// or an unparseable date are skipped and counted.
func (p *Parser) Parse(payload string) (*Result, error) {
	lines := make([]string, 0, 64)
	for _, line := range strings.Split(payload, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, &ParseError{Reason: "empty payload"}
	}

	header, err := parseLine(lines[0])
	if err != nil {
		return nil, &ParseError{Reason: "unparseable header: " + err.Error()}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		if c := canonicalColumn(name); c != "" {
			cols[c] = i
		}
	}
	if _, ok := cols["date"]; !ok {
		return nil, &ParseError{Reason: "header has no date column"}
	}

	res := &Result{Rows: make([]models.ReportRow, 0, len(lines)-1)}
	for lineNo, line := range lines[1:] {
		fields, err := parseLine(line)
		if err != nil || len(fields) != len(header) {
			res.Skipped++
			p.logger.Warn("skipping malformed report row",
				zap.Int("line", lineNo+2),
				zap.Int("fields", len(fields)),
				zap.Int("expected", len(header)),
			)
			continue
		}

		row, ok := p.buildRow(cols, fields)
		if !ok {
			res.Skipped++
			p.logger.Warn("skipping report row with unparseable date", zap.Int("line", lineNo+2))
			continue
		}
		res.Rows = append(res.Rows, row)
	}

	if len(res.Rows) == 0 {
		return nil, &ParseError{Reason: "no parseable rows in payload"}
	}
	return res, nil
}

func (p *Parser) buildRow(cols map[string]int, fields []string) (models.ReportRow, bool) {
	get := func(col string) string {
		if i, ok := cols[col]; ok {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	date, err := time.Parse("2006-01-02", get("date"))
	if err != nil {
		return models.ReportRow{}, false
	}

	return models.ReportRow{
		AccountName:  get("account_name"),
		CampaignName: get("campaign_name"),
		AdSetName:    get("adset_name"),
		AdName:       get("ad_name"),
		Date:         date.UTC(),
		Impressions:  coerceInt(get("impressions")),
		Clicks:       coerceInt(get("clicks")),
		Spend:        coerceFloat(get("spend")),
		Reach:        coerceInt(get("reach")),
		Frequency:    coerceFloat(get("frequency")),
		PurchaseROAS: coerceFloat(get("purchase_roas")),
		Actions:      get("actions"),
	}, true
}

// parseLine parses one delimited record. Backslash-escaped quotes are
// rewritten to the doubled-quote form encoding/csv understands.
func parseLine(line string) ([]string, error) {
	line = strings.ReplaceAll(line, `\"`, `""`)
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	return r.Read()
}

// coerceInt converts a numeric field, returning 0 (missing) when the
// value does not coerce.
func coerceInt(s string) int64 {
	if s == "" {
		return 0
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// coerceFloat converts a numeric field, returning 0 (missing) when the
// value does not coerce.
func coerceFloat(s string) float64 {
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return 0
}
