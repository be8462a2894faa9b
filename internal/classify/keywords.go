package classify

import (
	"regexp"
	"strings"
)

const maxKeywords = 10

var tokenPattern = regexp.MustCompile(`[a-z0-9]+(?:-[a-z0-9]+)*`)

// stopwords are Portuguese function words plus boilerplate that carries no
// signal in procurement object descriptions.
var stopwords = map[string]bool{
	"a": true, "o": true, "e": true, "de": true, "da": true, "do": true,
	"das": true, "dos": true, "em": true, "no": true, "na": true,
	"nos": true, "nas": true, "um": true, "uma": true, "para": true,
	"por": true, "com": true, "sem": true, "ao": true, "aos": true,
	"que": true, "ou": true, "se": true, "sua": true, "seu": true,
	"suas": true, "seus": true, "pela": true, "pelo": true, "entre": true,
	"sobre": true, "ate": true, "como": true, "mais": true,
	// procurement boilerplate
	"contratacao": true, "aquisicao": true, "empresa": true,
	"empresas": true, "servico": true, "servicos": true,
	"fornecimento": true, "objeto": true, "presente": true,
	"licitacao": true, "atender": true, "necessidades": true,
	"eventual": true, "futura": true, "visando": true,
	"especializada": true, "destinado": true, "destinados": true,
	"conforme": true, "termo": true, "referencia": true, "anexo": true,
	"municipio": true, "municipal": true, "secretaria": true,
	"prefeitura": true, "estado": true, "demanda": true,
}

// Keywords extracts up to 10 signal-bearing tokens from a description,
// normalized and deduplicated, preserving order of first appearance.
// Used to derive Contract.Keywords and market-analysis candidate overlap.
func Keywords(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	tokens := tokenPattern.FindAllString(normalized, -1)
	out := make([]string, 0, maxKeywords)
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if len(tok) <= 2 || stopwords[tok] {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) == maxKeywords {
			break
		}
	}

	return out
}

// KeywordOverlap counts how many of the query keywords appear in the
// candidate set (exact token match after normalization).
func KeywordOverlap(query, candidate []string) int {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}

	set := make(map[string]bool, len(candidate))
	for _, kw := range candidate {
		set[strings.TrimSpace(kw)] = true
	}

	overlap := 0
	for _, kw := range query {
		if set[strings.TrimSpace(kw)] {
			overlap++
		}
	}
	return overlap
}
