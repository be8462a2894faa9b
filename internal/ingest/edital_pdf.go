package ingest

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	rpdf "rsc.io/pdf"
)

// valueLabelHints mark snippets likely to carry the estimated value of
// the notice rather than an incidental amount.
var valueLabelHints = []string{
	"valor estimado", "valor total", "valor global", "valor máximo", "valor de referência",
}

var openingLabelHints = []string{
	"abertura", "sessão pública", "recebimento das propostas", "data limite", "encerramento",
}

var brlValueRegex = regexp.MustCompile(`R\$\s*([\d.]+,\d{2})`)

var brDateRegexes = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/20\d{2}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s+de\s+(janeiro|fevereiro|março|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)\s+de\s+20\d{2}\b`),
}

var brMonths = map[string]time.Month{
	"janeiro": time.January, "fevereiro": time.February, "março": time.March,
	"abril": time.April, "maio": time.May, "junho": time.June,
	"julho": time.July, "agosto": time.August, "setembro": time.September,
	"outubro": time.October, "novembro": time.November, "dezembro": time.December,
}

// EditalFacts carries what could be extracted from a notice document.
type EditalFacts struct {
	EstimatedValue *float64
	OpeningDate    *time.Time
	Text           string
}

// IsPDF sniffs whether a payload is a PDF, by magic bytes or header.
func IsPDF(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return bytes.HasPrefix(body, []byte("%PDF-"))
}

// ExtractPDFText pulls the text layer out of an edital PDF. The parser
// panics on some malformed files, so recovery turns that into an error.
func ExtractPDFText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		for _, fragment := range page.Content().Text {
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// ExtractEditalFacts parses an edital PDF and mines the estimated value
// and proposal-opening date from its text.
func ExtractEditalFacts(content []byte) (*EditalFacts, error) {
	text, err := ExtractPDFText(content)
	if err != nil {
		return nil, err
	}

	facts := &EditalFacts{Text: text}
	facts.EstimatedValue = findEstimatedValue(text)
	facts.OpeningDate = findOpeningDate(text)
	return facts, nil
}

// findEstimatedValue prefers amounts near a value label; when no labeled
// amount exists it falls back to the largest amount in the document.
func findEstimatedValue(text string) *float64 {
	lower := strings.ToLower(text)

	var best *float64
	var labeled *float64

	for _, loc := range brlValueRegex.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[2]:loc[3]]
		value, err := parseBRLAmount(raw)
		if err != nil {
			continue
		}

		if best == nil || value > *best {
			v := value
			best = &v
		}

		start := loc[0] - 60
		if start < 0 {
			start = 0
		}
		snippet := lower[start:loc[0]]
		for _, hint := range valueLabelHints {
			if strings.Contains(snippet, hint) {
				if labeled == nil || value > *labeled {
					v := value
					labeled = &v
				}
				break
			}
		}
	}

	if labeled != nil {
		return labeled
	}
	return best
}

func findOpeningDate(text string) *time.Time {
	lower := strings.ToLower(text)

	var fallback *time.Time
	for _, expr := range brDateRegexes {
		for _, loc := range expr.FindAllStringIndex(text, -1) {
			token := strings.TrimSpace(text[loc[0]:loc[1]])
			parsed, err := parseBRDate(token)
			if err != nil {
				continue
			}

			start := loc[0] - 80
			if start < 0 {
				start = 0
			}
			snippet := lower[start:loc[0]]
			for _, hint := range openingLabelHints {
				if strings.Contains(snippet, hint) {
					t := parsed
					return &t
				}
			}

			if fallback == nil {
				t := parsed
				fallback = &t
			}
		}
	}

	return fallback
}

// parseBRLAmount converts "1.234.567,89" into a float.
func parseBRLAmount(raw string) (float64, error) {
	normalized := strings.ReplaceAll(raw, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	return strconv.ParseFloat(normalized, 64)
}

func parseBRDate(token string) (time.Time, error) {
	token = strings.TrimSpace(strings.ToLower(token))

	if t, err := time.Parse("02/01/2006", token); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2/1/2006", token); err == nil {
		return t, nil
	}

	// "12 de março de 2024"
	parts := strings.Split(token, " de ")
	if len(parts) == 3 {
		day, dayErr := strconv.Atoi(strings.TrimSpace(parts[0]))
		month, monthOK := brMonths[strings.TrimSpace(parts[1])]
		year, yearErr := strconv.Atoi(strings.TrimSpace(parts[2]))
		if dayErr == nil && monthOK && yearErr == nil {
			return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date: %s", token)
}
