// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package support

import (
	"strings"

	"github.com/AleutianAI/Switchboard/pkg/textutil"
)

// Ticket priorities, ordered from most to least urgent.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// CategoryOther is assigned when no category term matches.
const CategoryOther = "outros"

// categoryBucket keeps category matching order deterministic: the first
// bucket with a matching term wins.
type categoryBucket struct {
	name  string
	terms []string
}

func defaultCategoryBuckets() []categoryBucket {
	return []categoryBucket{
		{"pagamentos", []string{"pagamento", "cobranca", "fatura", "credito", "debito", "boleto"}},
		{"acesso", []string{"acesso", "acessar", "login", "senha", "entrar", "bloqueado"}},
		{"dispositivo", []string{"maquininha", "pos", "terminal", "tap to pay", "tap"}},
		{"conta", []string{"cadastro", "conta", "dados", "perfil", "atualizar cadastro"}},
	}
}

func defaultSeverityTerms() map[string][]string {
	return map[string][]string{
		PriorityCritical: {
			"queda geral",
			"fora do ar",
			"indisponivel",
			"fraude",
			"cobranca duplicada",
			"vazamento",
		},
		PriorityHigh: {
			"nao consigo acessar",
			"nao recebi",
			"pagamento travado",
			"erro geral",
		},
	}
}

var escalationRequestTerms = []string{"falar com humano", "atendente", "suporte humano", "pessoa"}

var repeatIssueTerms = []string{"de novo", "novamente", "mais uma vez", "continua", "nada resolvido"}

// PolicyDecision is the keyword classification of a support message.
type PolicyDecision struct {
	Category   string `json:"category"`
	Priority   string `json:"priority"`
	Escalation bool   `json:"escalation"`
}

// Policy classifies support messages into category, priority, and an
// escalation flag using keyword term tables. Immutable after construction.
type Policy struct {
	categories     []categoryBucket
	severity       map[string][]string
	escalationAuto bool
}

// NewPolicy builds a Policy from the built-in term tables merged with
// operator overrides.
//
// Both override strings use the "key:term,term;key:term" form accepted by
// ParseTermOverrides. Category overrides replace the terms of an existing
// category, or append a new category bucket after the defaults. Severity
// overrides always extend the level's term list.
func NewPolicy(categoryOverrides, severityOverrides string, escalationAuto bool) *Policy {
	p := &Policy{
		categories:     defaultCategoryBuckets(),
		severity:       defaultSeverityTerms(),
		escalationAuto: escalationAuto,
	}

	for key, terms := range ParseTermOverrides(categoryOverrides) {
		replaced := false
		for i := range p.categories {
			if p.categories[i].name == key {
				p.categories[i].terms = terms
				replaced = true
				break
			}
		}
		if !replaced {
			p.categories = append(p.categories, categoryBucket{name: key, terms: terms})
		}
	}

	for level, terms := range ParseTermOverrides(severityOverrides) {
		p.severity[level] = append(p.severity[level], terms...)
	}

	return p
}

// Decide classifies a message. Matching is substring containment over the
// lowercased, accent-folded text.
func (p *Policy) Decide(message string) PolicyDecision {
	text := normalizePolicy(message)
	category := p.classifyCategory(text)
	priority, escalation := p.classifyPriority(text)

	if hasAnyTerm(text, escalationRequestTerms) || hasAnyTerm(text, repeatIssueTerms) {
		escalation = true
	}
	if p.escalationAuto && (priority == PriorityCritical || priority == PriorityHigh) {
		escalation = true
	}

	return PolicyDecision{Category: category, Priority: priority, Escalation: escalation}
}

func (p *Policy) classifyCategory(text string) string {
	for _, bucket := range p.categories {
		if hasAnyTerm(text, bucket.terms) {
			return bucket.name
		}
	}
	return CategoryOther
}

func (p *Policy) classifyPriority(text string) (string, bool) {
	if hasAnyTerm(text, p.severity[PriorityCritical]) {
		return PriorityCritical, true
	}
	if hasAnyTerm(text, p.severity[PriorityHigh]) {
		return PriorityHigh, true
	}
	if strings.Contains(text, "nao funciona") || strings.Contains(text, "nao consigo") {
		return PriorityMedium, false
	}
	return PriorityLow, false
}

// ParseTermOverrides parses a "key:a,b;key2:c" override string into a
// lowercase term table. Malformed pairs (no colon) and empty terms are
// skipped rather than rejected.
func ParseTermOverrides(value string) map[string][]string {
	overrides := make(map[string][]string)
	for _, pair := range strings.Split(value, ";") {
		key, rawTerms, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		var terms []string
		for _, term := range strings.Split(rawTerms, ",") {
			term = strings.ToLower(strings.TrimSpace(term))
			if term != "" {
				terms = append(terms, term)
			}
		}
		if len(terms) > 0 {
			overrides[key] = terms
		}
	}
	return overrides
}

func hasAnyTerm(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func normalizePolicy(message string) string {
	return textutil.FoldAccents(strings.ToLower(message))
}
